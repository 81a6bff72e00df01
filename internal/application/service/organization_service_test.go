package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/entity"
)

func newOrganizationFixture() (OrganizationService, *mockOrgRepo, *mockAuditRepo) {
	orgs := &mockOrgRepo{org: &entity.Organization{
		ID:              testOrgID,
		Name:            "Demo",
		Slug:            "demo-org",
		DefaultCurrency: "INR",
		FiscalYearStart: 4,
	}}
	audit := &mockAuditRepo{}
	return NewOrganizationService(orgs, audit, &mockTxManager{}, fixedClock{now: testNow}, &mockLogger{}), orgs, audit
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func TestOrganizationService_Get(t *testing.T) {
	svc, _, _ := newOrganizationFixture()

	org, err := svc.Get(context.Background(), employee)
	require.NoError(t, err)
	assert.Equal(t, "demo-org", org.Slug)

	_, err = svc.Get(context.Background(), authz.Principal{})
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)
}

func TestOrganizationService_UpdateSettings(t *testing.T) {
	svc, orgs, audit := newOrganizationFixture()

	enabled := true
	org, err := svc.UpdateSettings(context.Background(), admin, UpdateOrganizationRequest{
		Name:                     strPtr("Demo Ltd"),
		DefaultCurrency:          strPtr("usd"),
		BrandColor:               strPtr("#112233"),
		AutoApprovalLimit:        strPtr("250.50"),
		EnableEmailNotifications: &enabled,
	})
	require.NoError(t, err)

	assert.Equal(t, "Demo Ltd", org.Name)
	assert.Equal(t, "USD", org.DefaultCurrency)
	assert.Equal(t, "#112233", org.BrandColor)
	assert.Equal(t, 4, org.FiscalYearStart)
	require.NotNil(t, org.AutoApprovalLimit)
	assert.True(t, org.AutoApprovalLimit.Equal(decimal.RequireFromString("250.50")))
	assert.True(t, org.EnableEmailNotifications)
	assert.Equal(t, entity.DefaultTimezone, org.Timezone)
	assert.Same(t, org, orgs.updated)
	assert.Equal(t, []string{entity.AuditActionUpdateSettings}, audit.actions())
}

func TestOrganizationService_UpdateSettingsClearsAmount(t *testing.T) {
	svc, orgs, _ := newOrganizationFixture()
	orgs.org.DefaultMileageRate = decimalPtr("8")

	org, err := svc.UpdateSettings(context.Background(), admin, UpdateOrganizationRequest{DefaultMileageRate: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, org.DefaultMileageRate)
}

func TestOrganizationService_UpdateSettingsValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   UpdateOrganizationRequest
		field string
	}{
		{"empty name", UpdateOrganizationRequest{Name: strPtr(" ")}, "name"},
		{"bad currency", UpdateOrganizationRequest{DefaultCurrency: strPtr("EURO")}, "default_currency"},
		{"fiscal month", UpdateOrganizationRequest{FiscalYearStart: intPtr(13)}, "fiscal_year_start"},
		{"bad color", UpdateOrganizationRequest{BrandColor: strPtr("red")}, "brand_color"},
		{"bad contact", UpdateOrganizationRequest{ContactEmail: strPtr("finance")}, "contact_email"},
		{"negative deadline", UpdateOrganizationRequest{ExpenseSubmissionDeadline: intPtr(-1)}, "expense_submission_deadline"},
		{"bad threshold", UpdateOrganizationRequest{ReceiptRequiredThreshold: strPtr("-10")}, "receipt_required_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, orgs, audit := newOrganizationFixture()

			_, err := svc.UpdateSettings(context.Background(), admin, tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Nil(t, orgs.updated)
			assert.Empty(t, audit.logs)
		})
	}
}

func TestOrganizationService_UpdateSettingsRequiresAdmin(t *testing.T) {
	svc, orgs, _ := newOrganizationFixture()

	_, err := svc.UpdateSettings(context.Background(), manager, UpdateOrganizationRequest{Name: strPtr("Hijacked")})
	assert.ErrorIs(t, err, authz.ErrDenied)
	assert.Nil(t, orgs.updated)
}
