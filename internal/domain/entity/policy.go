package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy caps spending. With PerExpense set and MaxAmount present it caps a
// single expense; MonthlyLimit caps the aggregate spend of a calendar month.
type Policy struct {
	ID             string           `json:"id" gorm:"primaryKey;size:36"`
	OrganizationID string           `json:"organization_id" gorm:"index;not null"`
	CategoryID     *string          `json:"category_id,omitempty"`
	Category       *Category        `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Name           string           `json:"name" gorm:"not null"`
	MaxAmount      *decimal.Decimal `json:"max_amount,omitempty" gorm:"type:text"`
	PerExpense     bool             `json:"per_expense"`
	MonthlyLimit   *decimal.Decimal `json:"monthly_limit,omitempty" gorm:"type:text"`
	AppliesToRole  *Role            `json:"applies_to_role,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// CapsSingleExpense reports whether the policy limits an individual expense
func (p *Policy) CapsSingleExpense() bool {
	return p.PerExpense && p.MaxAmount != nil
}

// Budget is a monthly spending ceiling for one category
type Budget struct {
	ID             string          `json:"id" gorm:"primaryKey;size:36"`
	OrganizationID string          `json:"organization_id" gorm:"index;not null"`
	CategoryID     *string         `json:"category_id,omitempty"`
	Category       *Category       `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Name           string          `json:"name" gorm:"not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:text;not null"`
	Period         string          `json:"period" gorm:"default:Monthly"`
	CreatedAt      time.Time       `json:"created_at"`
}
