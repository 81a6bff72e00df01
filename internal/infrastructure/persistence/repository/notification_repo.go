package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlite.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts notifications in one statement
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []*entity.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := r.db.Conn(ctx).Omit("Sender").CreateInBatches(notifications, 100).Error; err != nil {
		r.logger.Error("Failed to create notifications",
			zap.Int("count", len(notifications)),
			zap.Error(err))
		return fmt.Errorf("failed to create notifications: %w", translate(err))
	}
	return nil
}

// ListByRecipient returns a recipient's notifications, newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, orgID, recipientID string, limit int) ([]*entity.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var notifications []*entity.Notification
	err := r.db.Conn(ctx).
		Preload("Sender").
		Where("organization_id = ? AND recipient_id = ?", orgID, recipientID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		r.logger.Error("Failed to list notifications",
			zap.String("recipient_id", recipientID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags a notification as read. Only the recipient can do this.
func (r *NotificationRepository) MarkRead(ctx context.Context, orgID, recipientID, id string) error {
	result := r.db.Conn(ctx).Model(&entity.Notification{}).
		Where("organization_id = ? AND recipient_id = ? AND id = ?", orgID, recipientID, id).
		Update("read", true)
	if result.Error != nil {
		r.logger.Error("Failed to mark notification read", zap.String("id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to mark notification read: %w", port.ErrNotFound)
	}
	return nil
}

// CountUnread counts unread notifications of a recipient
func (r *NotificationRepository) CountUnread(ctx context.Context, orgID, recipientID string) (int64, error) {
	var count int64
	err := r.db.Conn(ctx).Model(&entity.Notification{}).
		Where("organization_id = ? AND recipient_id = ? AND read = ?", orgID, recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}
