package service

import (
	"context"

	"github.com/garyjia/expense-manager/internal/application/dispatcher"
	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/event"
)

// RegisterEventHandlers subscribes the in-app notifier to expense decisions
// and forwards every event to the broker when a publisher is configured.
func RegisterEventHandlers(d dispatcher.Dispatcher, notifications NotificationService, publisher port.EventPublisher) {
	for _, t := range []event.Type{event.TypeExpenseApproved, event.TypeExpenseRejected, event.TypeExpenseReimbursed} {
		d.Subscribe(t, "notify-expense-owner", notifications.NotifyExpenseOwner)
	}

	if publisher != nil {
		d.Subscribe(dispatcher.AnyEvent, "broker-publisher", func(ctx context.Context, evt *event.Event) error {
			return publisher.Publish(ctx, evt)
		})
	}
}
