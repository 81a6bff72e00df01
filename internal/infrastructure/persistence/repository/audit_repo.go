package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/internal/infrastructure/persistence/sqlite"
)

// AuditLogRepository implements port.AuditLogRepository
type AuditLogRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *sqlite.DB, logger *zap.Logger) port.AuditLogRepository {
	return &AuditLogRepository{db: db, logger: logger}
}

// Create appends an audit record
func (r *AuditLogRepository) Create(ctx context.Context, log *entity.AuditLog) error {
	if err := r.db.Conn(ctx).Create(log).Error; err != nil {
		r.logger.Error("Failed to create audit log",
			zap.String("action", log.Action),
			zap.String("target", log.Target),
			zap.Error(err))
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// ListByOrganization returns the latest audit records
func (r *AuditLogRepository) ListByOrganization(ctx context.Context, orgID string, limit int) ([]*entity.AuditLog, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var logs []*entity.AuditLog
	err := r.db.Conn(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}
