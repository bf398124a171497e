// Package chat defines the transport-neutral contract between the Telegram
// adapter and the conversation engines.
package chat

import (
	"context"
	"strconv"
	"strings"
)

// Kind classifies inbound events.
type Kind int

const (
	// KindCommand is a slash command such as /start.
	KindCommand Kind = iota + 1
	// KindButton is an inline keyboard press.
	KindButton
	// KindText is a free-form text message.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindButton:
		return "button"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Identity describes the user behind an event.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName joins the first and last name, falling back to @username and
// finally to the numeric id.
func (i Identity) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(i.FirstName) + " " + strings.TrimSpace(i.LastName))
	if name != "" {
		return name
	}
	if u := strings.TrimSpace(i.Username); u != "" {
		return "@" + u
	}
	return strconv.FormatInt(i.ID, 10)
}

// Handle references a message previously sent by the bot.
type Handle struct {
	ChatID    int64
	MessageID string
}

// IsZero reports whether the handle points nowhere.
func (h Handle) IsZero() bool {
	return h.MessageID == ""
}

// Event is one inbound interaction.
type Event struct {
	Kind Kind
	// Name is the command name without the slash, or the button callback id.
	Name string
	// Data carries the callback payload for buttons.
	Data string
	// Text is the raw message text for text events and command arguments.
	Text   string
	User   Identity
	ChatID int64
	// Source is the message carrying the pressed button, when known.
	Source Handle
}

// Button is one inline button.
type Button struct {
	Label string
	Data  string
}

// Message is an outbound message.
type Message struct {
	Text string
	// Markdown enables Telegram Markdown rendering of Text.
	Markdown bool
	// Buttons are laid out row by row.
	Buttons [][]Button
}

// Messenger delivers messages to a chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, msg Message) (Handle, error)
	Edit(ctx context.Context, h Handle, msg Message) error
	Delete(ctx context.Context, h Handle) error
}

// Text builds a plain message.
func Text(s string) Message {
	return Message{Text: s}
}
