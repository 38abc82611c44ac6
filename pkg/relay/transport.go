package relay

import (
	"context"

	"github.com/tinyland-inc/tinydesk/pkg/bus"
)

// Button is one inline control attached to an outbound message. Data is
// the opaque callback payload the transport echoes back on a press.
type Button struct {
	Text string
	Data string
}

// SendRequest is one outbound delivery: text or media to a chat, with an
// optional forum thread, reply target and inline keyboard.
type SendRequest struct {
	ChatID   string
	ThreadID int
	Text     string
	Media    *bus.Media
	ReplyTo  string
	Keyboard [][]Button
}

// Transport is the delivery capability the orchestrator consumes. The
// core never talks to a network itself; all blocking happens behind this
// interface and is awaited synchronously per event. Send returns the
// transport's identifier for the sent copy, which every later
// correlation is keyed by.
type Transport interface {
	Send(ctx context.Context, req SendRequest) (string, error)
	Edit(ctx context.Context, chatID, messageID, text string, keyboard [][]Button) error
}
