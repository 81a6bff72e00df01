package service

import (
	"context"
	"strings"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/pkg/utils"
)

// OrganizationService reads and updates tenant settings
type OrganizationService interface {
	Get(ctx context.Context, p authz.Principal) (*entity.Organization, error)
	UpdateSettings(ctx context.Context, p authz.Principal, req UpdateOrganizationRequest) (*entity.Organization, error)
}

// UpdateOrganizationRequest changes the non-nil settings. Amount settings are
// decimal strings; an empty string clears them.
type UpdateOrganizationRequest struct {
	Name                       *string `json:"name"`
	DefaultCurrency            *string `json:"default_currency"`
	Timezone                   *string `json:"timezone"`
	FiscalYearStart            *int    `json:"fiscal_year_start"`
	DateFormat                 *string `json:"date_format"`
	NumberFormat               *string `json:"number_format"`
	BrandColor                 *string `json:"brand_color"`
	ContactEmail               *string `json:"contact_email"`
	Address                    *string `json:"address"`
	Phone                      *string `json:"phone"`
	Website                    *string `json:"website"`
	TaxID                      *string `json:"tax_id"`
	BusinessRegistrationNumber *string `json:"business_registration_number"`
	LogoURL                    *string `json:"logo_url"`
	Description                *string `json:"description"`
	AutoApprovalLimit          *string `json:"auto_approval_limit"`
	ReceiptRequiredThreshold   *string `json:"receipt_required_threshold"`
	DefaultMileageRate         *string `json:"default_mileage_rate"`
	EnableTaxCalculation       *bool   `json:"enable_tax_calculation"`
	ExpenseSubmissionDeadline  *int    `json:"expense_submission_deadline"`
	EnableEmailNotifications   *bool   `json:"enable_email_notifications"`
}

type organizationServiceImpl struct {
	orgs      port.OrganizationRepository
	txManager port.TransactionManager
	audit     auditWriter
	logger    Logger
}

// NewOrganizationService creates a new OrganizationService
func NewOrganizationService(
	orgs port.OrganizationRepository,
	auditLogs port.AuditLogRepository,
	txManager port.TransactionManager,
	clock port.Clock,
	logger Logger,
) OrganizationService {
	return &organizationServiceImpl{
		orgs:      orgs,
		txManager: txManager,
		audit:     auditWriter{repo: auditLogs, clock: clockOrSystem(clock)},
		logger:    logger,
	}
}

func (s *organizationServiceImpl) Get(ctx context.Context, p authz.Principal) (*entity.Organization, error) {
	if p.IsZero() {
		return nil, authz.ErrUnauthenticated
	}
	return s.orgs.GetByID(ctx, p.OrganizationID())
}

func (s *organizationServiceImpl) UpdateSettings(ctx context.Context, p authz.Principal, req UpdateOrganizationRequest) (*entity.Organization, error) {
	if err := authz.Authorize(p, authz.ManageOrganization); err != nil {
		return nil, err
	}

	var org *entity.Organization
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		org, err = s.orgs.GetByID(txCtx, p.OrganizationID())
		if err != nil {
			return err
		}
		if err := applySettings(org, req); err != nil {
			return err
		}
		if err := s.orgs.Update(txCtx, org); err != nil {
			return err
		}
		return s.audit.record(txCtx, org.ID, p.UserID(), entity.AuditActionUpdateSettings, org.ID, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Organization settings updated", "id", org.ID, "actor_id", p.UserID())
	return org, nil
}

func applySettings(org *entity.Organization, req UpdateOrganizationRequest) error {
	if req.Name != nil {
		name := utils.SanitizeString(*req.Name)
		if name == "" {
			return invalid("name", "is required")
		}
		org.Name = name
	}
	if req.DefaultCurrency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.DefaultCurrency))
		if err := utils.ValidateCurrency(currency); err != nil {
			return invalid("default_currency", "%v", err)
		}
		org.DefaultCurrency = currency
	}
	if req.FiscalYearStart != nil {
		if *req.FiscalYearStart < 1 || *req.FiscalYearStart > 12 {
			return invalid("fiscal_year_start", "must be a month between 1 and 12")
		}
		org.FiscalYearStart = *req.FiscalYearStart
	}
	if req.BrandColor != nil && *req.BrandColor != "" {
		if err := utils.ValidateHexColor(*req.BrandColor); err != nil {
			return invalid("brand_color", "%v", err)
		}
	}
	if req.ContactEmail != nil && *req.ContactEmail != "" {
		if err := utils.ValidateEmail(utils.NormalizeEmail(*req.ContactEmail)); err != nil {
			return invalid("contact_email", "%v", err)
		}
	}
	if req.ExpenseSubmissionDeadline != nil && *req.ExpenseSubmissionDeadline < 0 {
		return invalid("expense_submission_deadline", "must not be negative")
	}

	text := []struct {
		src *string
		dst *string
	}{
		{req.Timezone, &org.Timezone},
		{req.DateFormat, &org.DateFormat},
		{req.NumberFormat, &org.NumberFormat},
		{req.BrandColor, &org.BrandColor},
		{req.ContactEmail, &org.ContactEmail},
		{req.Address, &org.Address},
		{req.Phone, &org.Phone},
		{req.Website, &org.Website},
		{req.TaxID, &org.TaxID},
		{req.BusinessRegistrationNumber, &org.BusinessRegistrationNumber},
		{req.LogoURL, &org.LogoURL},
		{req.Description, &org.Description},
	}
	for _, f := range text {
		if f.src != nil {
			*f.dst = utils.SanitizeString(*f.src)
		}
	}

	var err error
	if req.AutoApprovalLimit != nil {
		if org.AutoApprovalLimit, err = optionalAmount("auto_approval_limit", *req.AutoApprovalLimit); err != nil {
			return err
		}
	}
	if req.ReceiptRequiredThreshold != nil {
		if org.ReceiptRequiredThreshold, err = optionalAmount("receipt_required_threshold", *req.ReceiptRequiredThreshold); err != nil {
			return err
		}
	}
	if req.DefaultMileageRate != nil {
		if org.DefaultMileageRate, err = optionalAmount("default_mileage_rate", *req.DefaultMileageRate); err != nil {
			return err
		}
	}

	if req.EnableTaxCalculation != nil {
		org.EnableTaxCalculation = *req.EnableTaxCalculation
	}
	if req.EnableEmailNotifications != nil {
		org.EnableEmailNotifications = *req.EnableEmailNotifications
	}
	if req.ExpenseSubmissionDeadline != nil {
		org.ExpenseSubmissionDeadline = req.ExpenseSubmissionDeadline
	}

	org.ApplyDefaults()
	return nil
}
