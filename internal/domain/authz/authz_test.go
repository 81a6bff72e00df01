package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/expense-manager/internal/domain/entity"
)

func TestAuthorize_ByRole(t *testing.T) {
	admin := NewPrincipal("u1", "org", entity.RoleAdmin, entity.Permissions{})
	manager := NewPrincipal("u2", "org", entity.RoleManager, entity.Permissions{})
	accountant := NewPrincipal("u3", "org", entity.RoleAccountant, entity.Permissions{})
	employee := NewPrincipal("u4", "org", entity.RoleEmployee, entity.Permissions{})

	tests := []struct {
		name      string
		principal Principal
		cap       Capability
		allowed   bool
	}{
		{"employee submits", employee, SubmitExpense, true},
		{"employee approves", employee, ApproveExpense, false},
		{"manager approves", manager, ApproveExpense, true},
		{"manager edits policies", manager, EditPolicies, false},
		{"accountant reimburses", accountant, ReimburseExpense, true},
		{"manager reimburses", manager, ReimburseExpense, false},
		{"admin reimburses", admin, ReimburseExpense, true},
		{"admin broadcasts", admin, BroadcastNotification, true},
		{"manager broadcasts", manager, BroadcastNotification, false},
		{"employee views reports", employee, ViewReports, false},
		{"admin views reports", admin, ViewReports, true},
		{"employee views all expenses", employee, ViewAllExpenses, false},
		{"admin manages organization", admin, ManageOrganization, true},
		{"unknown capability", admin, Capability("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.principal, tt.cap)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrDenied)
			}
		})
	}
}

func TestAuthorize_PermissionFlags(t *testing.T) {
	employee := NewPrincipal("u4", "org", entity.RoleEmployee, entity.Permissions{
		CanViewApprovalPage:   true,
		CanViewReports:        true,
		CanManagePolicies:     true,
		CanManageStores:       true,
		CanViewTeamPage:       true,
		CanManageTeamExpenses: true,
	})

	for _, c := range []Capability{ApproveExpense, ViewReports, ViewPolicies, ViewStores, ViewTeam, ViewAllExpenses} {
		assert.NoError(t, Authorize(employee, c), c)
	}

	// flags grant viewing, never editing
	for _, c := range []Capability{EditPolicies, EditStores, ManageTeam, ManageOrganization} {
		assert.ErrorIs(t, Authorize(employee, c), ErrDenied, c)
	}
}

func TestAuthorize_Unauthenticated(t *testing.T) {
	assert.ErrorIs(t, Authorize(Principal{}, SubmitExpense), ErrUnauthenticated)
	assert.False(t, Principal{}.Allows(SubmitExpense))
}

func TestPrincipalFromUser(t *testing.T) {
	u := &entity.User{
		ID:             "u1",
		OrganizationID: "org",
		Role:           entity.RoleManager,
		Permissions:    entity.Permissions{CanViewReports: true},
	}

	p := PrincipalFromUser(u)
	u.Role = entity.RoleEmployee
	u.Permissions.CanViewReports = false

	assert.Equal(t, entity.RoleManager, p.Role())
	assert.True(t, p.Permissions().CanViewReports)
	assert.Equal(t, "u1", p.UserID())
	assert.Equal(t, "org", p.OrganizationID())
}
