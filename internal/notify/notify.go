// Package notify builds progress digests and delivers them to chat platforms
// on a schedule.
package notify

import "context"

// Notifier delivers a message to one chat platform.
type Notifier interface {
	// Name identifies the platform in logs, e.g. "slack".
	Name() string

	// Send posts msg to the notifier's configured channel.
	Send(ctx context.Context, msg Message) error
}

// Message is a platform-neutral chat message.
type Message struct {
	Text  string // headline, also used as fallback text
	Items []Item // one attachment or embed per item
}

// Item is a single highlighted entry within a Message.
type Item struct {
	Title  string
	Body   string
	Color  string // hex, e.g. "#d9534f"
	Fields []Field
}

// Field is a key-value pair displayed in an item.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}
