package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Organization is a tenant. Settings are stored and returned to clients but
// are not consulted by policy evaluation.
type Organization struct {
	ID                         string           `json:"id" gorm:"primaryKey;size:36"`
	Name                       string           `json:"name" gorm:"not null"`
	Slug                       string           `json:"slug" gorm:"uniqueIndex;not null"`
	DefaultCurrency            string           `json:"default_currency" gorm:"size:3;default:INR"`
	Timezone                   string           `json:"timezone" gorm:"default:UTC"`
	FiscalYearStart            int              `json:"fiscal_year_start" gorm:"default:1"`
	DateFormat                 string           `json:"date_format" gorm:"default:DD/MM/YYYY"`
	NumberFormat               string           `json:"number_format" gorm:"default:en-IN"`
	BrandColor                 string           `json:"brand_color,omitempty"`
	ContactEmail               string           `json:"contact_email,omitempty"`
	Address                    string           `json:"address,omitempty"`
	Phone                      string           `json:"phone,omitempty"`
	Website                    string           `json:"website,omitempty"`
	TaxID                      string           `json:"tax_id,omitempty"`
	BusinessRegistrationNumber string           `json:"business_registration_number,omitempty"`
	LogoURL                    string           `json:"logo_url,omitempty"`
	Description                string           `json:"description,omitempty"`
	AutoApprovalLimit          *decimal.Decimal `json:"auto_approval_limit,omitempty" gorm:"type:text"`
	ReceiptRequiredThreshold   *decimal.Decimal `json:"receipt_required_threshold,omitempty" gorm:"type:text"`
	DefaultMileageRate         *decimal.Decimal `json:"default_mileage_rate,omitempty" gorm:"type:text"`
	EnableTaxCalculation       bool             `json:"enable_tax_calculation"`
	ExpenseSubmissionDeadline  *int             `json:"expense_submission_deadline,omitempty"`
	EnableEmailNotifications   bool             `json:"enable_email_notifications"`
	CreatedAt                  time.Time        `json:"created_at"`
	UpdatedAt                  time.Time        `json:"updated_at"`
}

// Default organization settings
const (
	DefaultCurrency     = "INR"
	DefaultTimezone     = "UTC"
	DefaultDateFormat   = "DD/MM/YYYY"
	DefaultNumberFormat = "en-IN"
)

// ApplyDefaults fills unset settings with their defaults
func (o *Organization) ApplyDefaults() {
	if o.DefaultCurrency == "" {
		o.DefaultCurrency = DefaultCurrency
	}
	if o.Timezone == "" {
		o.Timezone = DefaultTimezone
	}
	if o.FiscalYearStart == 0 {
		o.FiscalYearStart = 1
	}
	if o.DateFormat == "" {
		o.DateFormat = DefaultDateFormat
	}
	if o.NumberFormat == "" {
		o.NumberFormat = DefaultNumberFormat
	}
}
