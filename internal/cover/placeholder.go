package cover

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"covercraft/internal/models"
)

const (
	// DefaultPlaceholderBase is the placeholder-image service used when none is configured
	DefaultPlaceholderBase = "https://placehold.co"

	placeholderBackground = "cccccc"
	placeholderForeground = "000000"
)

// Placeholder builds placeholder-image URLs sized for the requested platform.
type Placeholder struct {
	base string
}

// NewPlaceholder returns a Placeholder for the given service base URL.
func NewPlaceholder(base string) *Placeholder {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultPlaceholderBase
	}
	return &Placeholder{base: base}
}

func (p *Placeholder) Produce(_ context.Context, req models.CoverRequest) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}
	if _, ok := models.ParsePlatform(string(req.Platform)); !ok {
		return "", fmt.Errorf("cover: unknown platform %q", req.Platform)
	}
	return placeholderURL(p.base, req.Title, req.Platform), nil
}

// StaticURL is the last-resort cover reference. It needs no network and is
// stable for a given title and platform.
func StaticURL(title string, platform models.Platform) string {
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	return placeholderURL(DefaultPlaceholderBase, title, platform)
}

func placeholderURL(base, title string, platform models.Platform) string {
	return fmt.Sprintf("%s/%s/%s/%s.png?text=%s",
		base, platform.Dimensions(), placeholderBackground, placeholderForeground, url.QueryEscape(title))
}
