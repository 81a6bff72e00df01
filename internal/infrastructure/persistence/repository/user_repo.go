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

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlite.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{db: db, logger: logger}
}

// Create inserts a user. A duplicate email yields port.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	if err := r.db.Conn(ctx).Create(user).Error; err != nil {
		err = translate(err)
		if !errors.Is(err, port.ErrConflict) {
			r.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user within an organization
func (r *UserRepository) GetByID(ctx context.Context, orgID, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.Conn(ctx).Where("organization_id = ? AND id = ?", orgID, id).First(&user).Error
	if err != nil {
		return nil, r.getError(err, id)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email across organizations; used for sign-in
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.Conn(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, r.getError(err, email)
	}
	return &user, nil
}

func (r *UserRepository) getError(err error, key string) error {
	err = translate(err)
	if !errors.Is(err, port.ErrNotFound) {
		r.logger.Error("Failed to get user", zap.String("key", key), zap.Error(err))
	}
	return fmt.Errorf("failed to get user: %w", err)
}

// ListByOrganization returns members ordered by name
func (r *UserRepository) ListByOrganization(ctx context.Context, orgID string) ([]*entity.User, error) {
	var users []*entity.User
	err := r.db.Conn(ctx).Where("organization_id = ?", orgID).Order("name ASC, email ASC").Find(&users).Error
	if err != nil {
		r.logger.Error("Failed to list users", zap.String("organization_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update saves profile, role, permission flags and password hash
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	result := r.db.Conn(ctx).Model(&entity.User{}).
		Where("organization_id = ? AND id = ?", user.OrganizationID, user.ID).
		Select("*").Omit("id", "organization_id", "created_at").
		Updates(user)
	if result.Error != nil {
		err := translate(result.Error)
		if !errors.Is(err, port.ErrConflict) {
			r.logger.Error("Failed to update user", zap.String("id", user.ID), zap.Error(err))
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update user: %w", port.ErrNotFound)
	}
	return nil
}
