package cover

import (
	"fmt"
	"strings"

	"covercraft/internal/models"
)

const (
	defaultGenre = "Unknown"
	defaultStyle = "Minimalist"
)

// Prompt renders the image-generation prompt for a cover request.
func Prompt(req models.CoverRequest) string {
	author := strings.TrimSpace(req.RequesterName)
	if author == "" {
		author = "Anonymous"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Design a book cover for the novel %q by %s.\n", req.Title, author)
	fmt.Fprintf(&b, "Genre: %s. Style: %s.\n", defaultGenre, defaultStyle)
	fmt.Fprintf(&b, "Portrait orientation sized for %s (%s pixels).\n", req.Platform.Label(), req.Platform.Dimensions())
	b.WriteString("Render the title legibly near the top and the author name near the bottom.")
	return b.String()
}
