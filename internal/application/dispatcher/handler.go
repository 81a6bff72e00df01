package dispatcher

import (
	"context"

	"github.com/garyjia/expense-manager/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// AnyEvent subscribes a handler to every event type
const AnyEvent event.Type = "*"

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
