package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single spending claim submitted by a user
type Expense struct {
	ID             string          `json:"id" gorm:"primaryKey;size:36"`
	OrganizationID string          `json:"organization_id" gorm:"index;not null"`
	UserID         string          `json:"user_id" gorm:"index;not null"`
	User           *User           `json:"user,omitempty" gorm:"foreignKey:UserID"`
	CategoryID     *string         `json:"category_id,omitempty"`
	Category       *Category       `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	StoreID        *string         `json:"store_id,omitempty"`
	Store          *Store          `json:"store,omitempty" gorm:"foreignKey:StoreID"`
	Title          string          `json:"title" gorm:"not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:text;not null"`
	Currency       string          `json:"currency" gorm:"size:3"`
	Date           time.Time       `json:"date"`
	Notes          string          `json:"notes,omitempty"`
	Status         ExpenseStatus   `json:"status" gorm:"index;not null"`
	ReceiptURL     string          `json:"receipt_url,omitempty"`
	ApprovedByID   *string         `json:"approved_by_id,omitempty"`
	ApprovedAt     *time.Time      `json:"approved_at,omitempty"`
	RejectedReason *string         `json:"rejected_reason,omitempty"`
	ReimbursedAt   *time.Time      `json:"reimbursed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CategoryName returns the category name or the uncategorized label
func (e *Expense) CategoryName() string {
	if e.Category == nil {
		return UncategorizedLabel
	}
	return e.Category.Name
}

// StoreName returns the store name or an empty string
func (e *Expense) StoreName() string {
	if e.Store == nil {
		return ""
	}
	return e.Store.Name
}

// MarkApproved records an approval and clears any earlier rejection
func (e *Expense) MarkApproved(approverID string, at time.Time) {
	e.Status = ExpenseStatusApproved
	e.ApprovedByID = &approverID
	e.ApprovedAt = &at
	e.RejectedReason = nil
	e.UpdatedAt = at
}

// MarkRejected records a rejection and clears approval fields
func (e *Expense) MarkRejected(reason string, at time.Time) {
	e.Status = ExpenseStatusRejected
	e.RejectedReason = &reason
	e.ApprovedByID = nil
	e.ApprovedAt = nil
	e.UpdatedAt = at
}

// MarkReimbursed records the payout time
func (e *Expense) MarkReimbursed(at time.Time) {
	e.Status = ExpenseStatusReimbursed
	e.ReimbursedAt = &at
	e.UpdatedAt = at
}
