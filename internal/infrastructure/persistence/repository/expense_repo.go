package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/internal/infrastructure/persistence/sqlite"
)

const defaultListLimit = 50

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sqlite.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{db: db, logger: logger}
}

// Create inserts a new expense. Associations are never written.
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	if err := r.db.Conn(ctx).Omit(clauseAssociations...).Create(expense).Error; err != nil {
		r.logger.Error("Failed to create expense",
			zap.String("organization_id", expense.OrganizationID),
			zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", translate(err))
	}
	return nil
}

// GetByID retrieves an expense with its user, category and store
func (r *ExpenseRepository) GetByID(ctx context.Context, orgID, id string) (*entity.Expense, error) {
	var expense entity.Expense
	err := r.withAssociations(r.db.Conn(ctx)).
		Where("expenses.organization_id = ? AND expenses.id = ?", orgID, id).
		First(&expense).Error
	if err != nil {
		err = translate(err)
		if !errors.Is(err, port.ErrNotFound) {
			r.logger.Error("Failed to get expense", zap.String("id", id), zap.Error(err))
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return &expense, nil
}

// Update saves the mutable columns of an expense
func (r *ExpenseRepository) Update(ctx context.Context, expense *entity.Expense) error {
	result := r.db.Conn(ctx).Model(&entity.Expense{}).
		Where("organization_id = ? AND id = ?", expense.OrganizationID, expense.ID).
		Select("title", "amount", "currency", "date", "notes", "category_id", "store_id",
			"status", "receipt_url", "approved_by_id", "approved_at", "rejected_reason",
			"reimbursed_at", "updated_at").
		Updates(expense)
	if result.Error != nil {
		r.logger.Error("Failed to update expense", zap.String("id", expense.ID), zap.Error(result.Error))
		return fmt.Errorf("failed to update expense: %w", translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update expense: %w", port.ErrNotFound)
	}
	return nil
}

// Delete removes an expense
func (r *ExpenseRepository) Delete(ctx context.Context, orgID, id string) error {
	return deleteScoped(r.db.Conn(ctx), r.logger, &entity.Expense{}, "expense", orgID, id)
}

// List returns expenses matching the filter, newest first
func (r *ExpenseRepository) List(ctx context.Context, filter port.ExpenseFilter) ([]*entity.Expense, error) {
	q := r.db.Conn(ctx).Model(&entity.Expense{}).
		Where("expenses.organization_id = ?", filter.OrganizationID)

	if filter.UserID != "" {
		q = q.Where("expenses.user_id = ?", filter.UserID)
	}
	if filter.CategoryID != "" {
		q = q.Where("expenses.category_id = ?", filter.CategoryID)
	}
	if filter.Status != "" {
		q = q.Where("expenses.status = ?", filter.Status)
	}
	if !filter.CreatedFrom.IsZero() {
		q = q.Where("expenses.created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		q = q.Where("expenses.created_at < ?", filter.CreatedTo.UTC())
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Joins("LEFT JOIN users ON users.id = expenses.user_id").
			Joins("LEFT JOIN categories ON categories.id = expenses.category_id").
			Joins("LEFT JOIN stores ON stores.id = expenses.store_id").
			Where("expenses.title LIKE ? OR expenses.notes LIKE ? OR users.name LIKE ? OR users.email LIKE ? OR categories.name LIKE ? OR stores.name LIKE ?",
				p, p, p, p, p, p)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var expenses []*entity.Expense
	err := r.withAssociations(q).
		Select("expenses.*").
		Order("expenses.created_at DESC, expenses.id DESC").
		Limit(limit).
		Find(&expenses).Error
	if err != nil {
		r.logger.Error("Failed to list expenses",
			zap.String("organization_id", filter.OrganizationID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

// SumAmounts adds up the amounts selected by q. Amounts are stored as text
// and summed in decimal to keep exact currency arithmetic.
func (r *ExpenseRepository) SumAmounts(ctx context.Context, sq port.SpendQuery) (decimal.Decimal, error) {
	column := "created_at"
	if sq.ByExpenseDate {
		column = "date"
	}

	q := r.db.Conn(ctx).Model(&entity.Expense{}).
		Where("organization_id = ?", sq.OrganizationID)
	if sq.CategoryID != "" {
		q = q.Where("category_id = ?", sq.CategoryID)
	}
	if sq.UserID != "" {
		q = q.Where("user_id = ?", sq.UserID)
	}
	if !sq.From.IsZero() {
		q = q.Where(column+" >= ?", sq.From.UTC())
	}
	if !sq.To.IsZero() {
		q = q.Where(column+" < ?", sq.To.UTC())
	}
	if len(sq.ExcludeStatuses) > 0 {
		q = q.Where("status NOT IN ?", sq.ExcludeStatuses)
	}

	var amounts []string
	if err := q.Pluck("amount", &amounts).Error; err != nil {
		r.logger.Error("Failed to sum expense amounts",
			zap.String("organization_id", sq.OrganizationID),
			zap.String("category_id", sq.CategoryID),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to sum expense amounts: %w", err)
	}

	total := decimal.Zero
	for _, raw := range amounts {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid stored amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}
	return total, nil
}

type statusCount struct {
	Status entity.ExpenseStatus
	Total  int64
}

// CountByStatus counts expenses per status, optionally for one user
func (r *ExpenseRepository) CountByStatus(ctx context.Context, orgID, userID string) (map[entity.ExpenseStatus]int64, error) {
	q := r.db.Conn(ctx).Model(&entity.Expense{}).Where("organization_id = ?", orgID)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	var rows []statusCount
	if err := q.Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error; err != nil {
		r.logger.Error("Failed to count expenses", zap.String("organization_id", orgID), zap.Error(err))
		return nil, fmt.Errorf("failed to count expenses: %w", err)
	}

	counts := make(map[entity.ExpenseStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

var clauseAssociations = []string{"User", "Category", "Store"}

func (r *ExpenseRepository) withAssociations(q *gorm.DB) *gorm.DB {
	return q.Preload("User").Preload("Category").Preload("Store")
}
