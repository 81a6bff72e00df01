package port

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-manager/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a record does not exist within the tenant
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write violates a uniqueness rule
	ErrConflict = errors.New("record conflicts with existing data")
)

// OrganizationRepository defines persistence operations for Organization
type OrganizationRepository interface {
	Create(ctx context.Context, org *entity.Organization) error
	GetByID(ctx context.Context, id string) (*entity.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Organization, error)
	Update(ctx context.Context, org *entity.Organization) error
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, orgID, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
}

// CategoryRepository defines persistence operations for Category
type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, orgID, id string) (*entity.Category, error)
	List(ctx context.Context, orgID, search string) ([]*entity.Category, error)
	Delete(ctx context.Context, orgID, id string) error
}

// StoreRepository defines persistence operations for Store
type StoreRepository interface {
	Create(ctx context.Context, store *entity.Store) error
	GetByID(ctx context.Context, orgID, id string) (*entity.Store, error)
	List(ctx context.Context, orgID, search string) ([]*entity.Store, error)
	Delete(ctx context.Context, orgID, id string) error
}

// PolicyRepository defines persistence operations for Policy
type PolicyRepository interface {
	Create(ctx context.Context, policy *entity.Policy) error
	// ListByOrganization returns policies oldest first
	ListByOrganization(ctx context.Context, orgID string) ([]*entity.Policy, error)
	Delete(ctx context.Context, orgID, id string) error
}

// BudgetRepository defines persistence operations for Budget
type BudgetRepository interface {
	Create(ctx context.Context, budget *entity.Budget) error
	// FindByCategory returns the first budget for the category or ErrNotFound
	FindByCategory(ctx context.Context, orgID, categoryID string) (*entity.Budget, error)
	List(ctx context.Context, orgID string) ([]*entity.Budget, error)
	Delete(ctx context.Context, orgID, id string) error
}

// ExpenseFilter selects expenses within one organization
type ExpenseFilter struct {
	OrganizationID string
	UserID         string
	CategoryID     string
	Status         entity.ExpenseStatus
	Search         string
	CreatedFrom    time.Time
	CreatedTo      time.Time
	Limit          int
}

// SpendQuery selects the expenses whose amounts are summed. From is
// inclusive and To exclusive.
type SpendQuery struct {
	OrganizationID  string
	CategoryID      string
	UserID          string
	From            time.Time
	To              time.Time
	ByExpenseDate   bool
	ExcludeStatuses []entity.ExpenseStatus
}

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, orgID, id string) (*entity.Expense, error)
	Update(ctx context.Context, expense *entity.Expense) error
	Delete(ctx context.Context, orgID, id string) error
	// List returns matching expenses newest first with user, category and store loaded
	List(ctx context.Context, filter ExpenseFilter) ([]*entity.Expense, error)
	SumAmounts(ctx context.Context, q SpendQuery) (decimal.Decimal, error)
	CountByStatus(ctx context.Context, orgID, userID string) (map[entity.ExpenseStatus]int64, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []*entity.Notification) error
	ListByRecipient(ctx context.Context, orgID, recipientID string, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, orgID, recipientID, id string) error
	CountUnread(ctx context.Context, orgID, recipientID string) (int64, error)
}

// AuditLogRepository defines persistence operations for AuditLog
type AuditLogRepository interface {
	Create(ctx context.Context, log *entity.AuditLog) error
	ListByOrganization(ctx context.Context, orgID string, limit int) ([]*entity.AuditLog, error)
}

// TransactionManager runs fn in a transaction carried by the context.
// Nested calls join the outer transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
