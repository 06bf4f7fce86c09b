package conversation

import (
	"fmt"

	"covercraft/internal/models"
)

// EventKind identifies the dispatch entry an event is routed to
type EventKind int

const (
	EventCommand EventKind = iota
	EventCallback
	EventText
)

// Event is a transport-neutral inbound update from one user.
type Event struct {
	Kind        EventKind
	UserID      string
	ChatID      int64
	DisplayName string
	Contact     string

	// Command is the command name without the leading slash, e.g. "generate"
	Command string
	// Data is the callback payload of a pressed button
	Data string
	// Text is the body of a plain message
	Text string
}

// ReplyKind tells the transport how to render a reply
type ReplyKind int

const (
	ReplyText ReplyKind = iota
	ReplyPhoto
)

// Button is an inline button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Reply is an outbound message for the user who sent the event.
type Reply struct {
	Kind     ReplyKind
	Text     string // message text, or the photo caption
	PhotoURL string
	Buttons  [][]Button
}

func textReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

// Callback payload prefixes
const (
	callbackPlatform = "platform"
	callbackCancel   = "cancel"
)

// PlatformCallback encodes a platform button for a session.
func PlatformCallback(sessionID string, p models.Platform) string {
	return fmt.Sprintf("%s:%s:%s", callbackPlatform, sessionID, p)
}

// CancelCallback encodes the cancel button for a session.
func CancelCallback(sessionID string) string {
	return fmt.Sprintf("%s:%s", callbackCancel, sessionID)
}
