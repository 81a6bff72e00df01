package service

import (
	"context"
	"fmt"

	"github.com/garyjia/expense-manager/internal/application/dispatcher"
	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/internal/domain/event"
	"github.com/garyjia/expense-manager/pkg/utils"
)

const maxBroadcastLength = 2000

// NotificationService manages in-app notifications
type NotificationService interface {
	// Broadcast sends message to every other member of the caller's organization
	Broadcast(ctx context.Context, p authz.Principal, message string) (int, error)
	List(ctx context.Context, p authz.Principal, limit int) (*NotificationList, error)
	MarkRead(ctx context.Context, p authz.Principal, id string) error

	// NotifyExpenseOwner is a dispatcher handler telling submitters about
	// decisions on their expenses
	NotifyExpenseOwner(ctx context.Context, evt *event.Event) error
}

// NotificationList is a page of notifications with the unread count
type NotificationList struct {
	Items  []*entity.Notification `json:"items"`
	Unread int64                  `json:"unread"`
}

type notificationServiceImpl struct {
	notifications port.NotificationRepository
	users         port.UserRepository
	dispatcher    dispatcher.Dispatcher
	clock         port.Clock
	logger        Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notifications port.NotificationRepository,
	users port.UserRepository,
	d dispatcher.Dispatcher,
	clock port.Clock,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notifications: notifications,
		users:         users,
		dispatcher:    d,
		clock:         clockOrSystem(clock),
		logger:        logger,
	}
}

func (s *notificationServiceImpl) Broadcast(ctx context.Context, p authz.Principal, message string) (int, error) {
	if err := authz.Authorize(p, authz.BroadcastNotification); err != nil {
		return 0, err
	}

	message = utils.SanitizeString(message)
	if message == "" {
		return 0, invalid("message", "is required")
	}
	if len(message) > maxBroadcastLength {
		return 0, invalid("message", "must be at most %d characters", maxBroadcastLength)
	}

	members, err := s.users.ListByOrganization(ctx, p.OrganizationID())
	if err != nil {
		return 0, fmt.Errorf("list members: %w", err)
	}

	now := s.clock.Now().UTC()
	batch := make([]*entity.Notification, 0, len(members))
	for _, m := range members {
		if m.ID == p.UserID() {
			continue
		}
		batch = append(batch, &entity.Notification{
			ID:             entity.NewID(),
			OrganizationID: p.OrganizationID(),
			SenderID:       p.UserID(),
			RecipientID:    m.ID,
			Message:        message,
			CreatedAt:      now,
		})
	}

	if err := s.notifications.CreateBatch(ctx, batch); err != nil {
		s.logger.Error("Failed to broadcast notification", "error", err, "organization_id", p.OrganizationID())
		return 0, err
	}

	s.logger.Info("Notification broadcast", "organization_id", p.OrganizationID(), "recipients", len(batch))
	if s.dispatcher != nil && len(batch) > 0 {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeBroadcastSent, p.OrganizationID(), "", p.UserID(), map[string]interface{}{
			event.KeyMessage:   message,
			event.KeyRecipient: len(batch),
		}))
	}
	return len(batch), nil
}

func (s *notificationServiceImpl) List(ctx context.Context, p authz.Principal, limit int) (*NotificationList, error) {
	if err := authz.Authorize(p, authz.ViewNotifications); err != nil {
		return nil, err
	}

	items, err := s.notifications.ListByRecipient(ctx, p.OrganizationID(), p.UserID(), limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.CountUnread(ctx, p.OrganizationID(), p.UserID())
	if err != nil {
		return nil, err
	}
	return &NotificationList{Items: items, Unread: unread}, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.Authorize(p, authz.ViewNotifications); err != nil {
		return err
	}
	return s.notifications.MarkRead(ctx, p.OrganizationID(), p.UserID(), id)
}

func (s *notificationServiceImpl) NotifyExpenseOwner(ctx context.Context, evt *event.Event) error {
	ownerID := evt.GetPayloadString(event.KeyOwnerID)
	if ownerID == "" || ownerID == evt.ActorID {
		return nil
	}

	message := decisionMessage(evt)
	if message == "" {
		return nil
	}

	err := s.notifications.CreateBatch(ctx, []*entity.Notification{{
		ID:             entity.NewID(),
		OrganizationID: evt.OrganizationID,
		SenderID:       evt.ActorID,
		RecipientID:    ownerID,
		Message:        message,
		CreatedAt:      s.clock.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("notify expense owner: %w", err)
	}
	return nil
}

func decisionMessage(evt *event.Event) string {
	title := evt.GetPayloadString(event.KeyTitle)
	amount := evt.GetPayloadString(event.KeyAmount)
	currency := evt.GetPayloadString(event.KeyCurrency)

	switch evt.Type {
	case event.TypeExpenseApproved:
		return fmt.Sprintf("Your expense %q (%s %s) was approved", title, amount, currency)
	case event.TypeExpenseRejected:
		return fmt.Sprintf("Your expense %q (%s %s) was rejected: %s", title, amount, currency, evt.GetPayloadString(event.KeyReason))
	case event.TypeExpenseReimbursed:
		return fmt.Sprintf("Your expense %q (%s %s) was reimbursed", title, amount, currency)
	default:
		return ""
	}
}
