package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/internal/infrastructure/persistence/sqlite"
)

// PolicyRepository implements port.PolicyRepository
type PolicyRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *sqlite.DB, logger *zap.Logger) port.PolicyRepository {
	return &PolicyRepository{db: db, logger: logger}
}

func (r *PolicyRepository) Create(ctx context.Context, policy *entity.Policy) error {
	if err := r.db.Conn(ctx).Omit("Category").Create(policy).Error; err != nil {
		r.logger.Error("Failed to create policy", zap.String("name", policy.Name), zap.Error(err))
		return fmt.Errorf("failed to create policy: %w", translate(err))
	}
	return nil
}

// ListByOrganization returns policies oldest first; ties break on id so the
// "first" policy is stable.
func (r *PolicyRepository) ListByOrganization(ctx context.Context, orgID string) ([]*entity.Policy, error) {
	var policies []*entity.Policy
	err := r.db.Conn(ctx).
		Preload("Category").
		Where("organization_id = ?", orgID).
		Order("created_at ASC, id ASC").
		Find(&policies).Error
	if err != nil {
		r.logger.Error("Failed to list policies", zap.String("organization_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return policies, nil
}

func (r *PolicyRepository) Delete(ctx context.Context, orgID, id string) error {
	return deleteScoped(r.db.Conn(ctx), r.logger, &entity.Policy{}, "policy", orgID, id)
}

// BudgetRepository implements port.BudgetRepository
type BudgetRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db *sqlite.DB, logger *zap.Logger) port.BudgetRepository {
	return &BudgetRepository{db: db, logger: logger}
}

func (r *BudgetRepository) Create(ctx context.Context, budget *entity.Budget) error {
	if err := r.db.Conn(ctx).Omit("Category").Create(budget).Error; err != nil {
		r.logger.Error("Failed to create budget", zap.String("name", budget.Name), zap.Error(err))
		return fmt.Errorf("failed to create budget: %w", translate(err))
	}
	return nil
}

// FindByCategory returns the oldest budget of the category
func (r *BudgetRepository) FindByCategory(ctx context.Context, orgID, categoryID string) (*entity.Budget, error) {
	var budget entity.Budget
	err := r.db.Conn(ctx).
		Where("organization_id = ? AND category_id = ?", orgID, categoryID).
		Order("created_at ASC, id ASC").
		First(&budget).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find budget: %w", translate(err))
	}
	return &budget, nil
}

func (r *BudgetRepository) List(ctx context.Context, orgID string) ([]*entity.Budget, error) {
	var budgets []*entity.Budget
	err := r.db.Conn(ctx).Preload("Category").Where("organization_id = ?", orgID).Order("created_at ASC").Find(&budgets).Error
	if err != nil {
		r.logger.Error("Failed to list budgets", zap.String("organization_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	return budgets, nil
}

func (r *BudgetRepository) Delete(ctx context.Context, orgID, id string) error {
	return deleteScoped(r.db.Conn(ctx), r.logger, &entity.Budget{}, "budget", orgID, id)
}

// deleteScoped deletes one row of model within an organization
func deleteScoped(conn *gorm.DB, logger *zap.Logger, model interface{}, name, orgID, id string) error {
	result := conn.Where("organization_id = ? AND id = ?", orgID, id).Delete(model)
	if result.Error != nil {
		logger.Error("Failed to delete "+name, zap.String("id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to delete %s: %w", name, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete %s: %w", name, port.ErrNotFound)
	}
	return nil
}
