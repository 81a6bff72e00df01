package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/internal/infrastructure/persistence/sqlite"
)

// OrganizationRepository implements port.OrganizationRepository
type OrganizationRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sqlite.DB, logger *zap.Logger) port.OrganizationRepository {
	return &OrganizationRepository{db: db, logger: logger}
}

// Create inserts a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *entity.Organization) error {
	if err := r.db.Conn(ctx).Create(org).Error; err != nil {
		r.logger.Error("Failed to create organization", zap.String("slug", org.Slug), zap.Error(err))
		return fmt.Errorf("failed to create organization: %w", translate(err))
	}
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*entity.Organization, error) {
	return r.first(ctx, "id = ?", id)
}

// GetBySlug retrieves an organization by slug
func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*entity.Organization, error) {
	return r.first(ctx, "slug = ?", slug)
}

func (r *OrganizationRepository) first(ctx context.Context, query string, arg string) (*entity.Organization, error) {
	var org entity.Organization
	err := r.db.Conn(ctx).Where(query, arg).First(&org).Error
	if err != nil {
		err = translate(err)
		if !errors.Is(err, port.ErrNotFound) {
			r.logger.Error("Failed to get organization", zap.String("key", arg), zap.Error(err))
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// Update saves all organization settings
func (r *OrganizationRepository) Update(ctx context.Context, org *entity.Organization) error {
	result := r.db.Conn(ctx).Model(&entity.Organization{}).Where("id = ?", org.ID).Select("*").Omit("id", "created_at").Updates(org)
	if result.Error != nil {
		r.logger.Error("Failed to update organization", zap.String("id", org.ID), zap.Error(result.Error))
		return fmt.Errorf("failed to update organization: %w", translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update organization: %w", port.ErrNotFound)
	}
	return nil
}
