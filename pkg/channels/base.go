// Package channels adapts concrete bot transports to the relay core:
// inbound platform updates are classified into bus events, and the relay
// Transport capability is implemented on top of the platform's send/edit
// calls.
package channels

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tinyland-inc/tinydesk/pkg/bus"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
	IsAllowed(senderID string) bool
}

type BaseChannel struct {
	bus       *bus.EventBus
	running   atomic.Bool
	name      string
	allowList []string
}

func NewBaseChannel(name string, eventBus *bus.EventBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		bus:       eventBus,
		name:      name,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

// IsAllowed applies the configured allowlist. An empty list admits
// everyone. Entries may be a bare id, a bare @username, or the compound
// "id|username" form kept for legacy Telegram allowlist entries.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart := senderID
	userPart := ""
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
		userPart = senderID[idx+1:]
	}

	for _, allowed := range c.allowList {
		trimmed := strings.TrimPrefix(allowed, "@")
		allowedID := trimmed
		allowedUser := ""
		if idx := strings.Index(trimmed, "|"); idx > 0 {
			allowedID = trimmed[:idx]
			allowedUser = trimmed[idx+1:]
		}

		if senderID == allowed ||
			idPart == allowed ||
			senderID == trimmed ||
			idPart == trimmed ||
			idPart == allowedID ||
			(allowedUser != "" && senderID == allowedUser) ||
			(userPart != "" && (userPart == allowed || userPart == trimmed || userPart == allowedUser)) {
			return true
		}
	}

	return false
}

// Publish forwards a classified event to the orchestrator loop, stamping
// it with a correlation scope.
func (c *BaseChannel) Publish(ctx context.Context, ev bus.Event) {
	ev.Scope = BuildEventScope(c.name, ev.Chat.ID, ev.MessageID)
	_ = c.bus.Publish(ctx, ev)
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

// BuildEventScope constructs a correlation key for event-level logging.
func BuildEventScope(channel, chatID, messageID string) string {
	id := messageID
	if id == "" {
		id = uuid.New().String()
	}
	return channel + ":" + chatID + ":" + id
}
