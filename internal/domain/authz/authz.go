// Package authz decides whether a signed-in member may perform an action.
//
// Every capability check in the service goes through Authorize. The Principal
// is built once per request from the session token and is never mutated, so
// a permission change only takes effect after the member signs in again.
package authz

import (
	"errors"
	"fmt"

	"github.com/garyjia/expense-manager/internal/domain/entity"
)

// ErrDenied is returned when a principal lacks a capability
var ErrDenied = errors.New("permission denied")

// ErrUnauthenticated is returned when no principal is available
var ErrUnauthenticated = errors.New("not authenticated")

// Capability names an action guarded by authorization
type Capability string

const (
	SubmitExpense         Capability = "expense:submit"
	ViewOwnExpenses       Capability = "expense:view_own"
	ViewAllExpenses       Capability = "expense:view_all"
	ApproveExpense        Capability = "expense:approve"
	ReimburseExpense      Capability = "expense:reimburse"
	ViewReports           Capability = "report:view"
	ViewPolicies          Capability = "policy:view"
	EditPolicies          Capability = "policy:edit"
	ViewStores            Capability = "store:view"
	EditStores            Capability = "store:edit"
	ViewTeam              Capability = "team:view"
	ManageTeam            Capability = "team:manage"
	ManageOrganization    Capability = "organization:manage"
	BroadcastNotification Capability = "notification:broadcast"
	ViewNotifications     Capability = "notification:view"
	ViewDashboard         Capability = "dashboard:view"
)

// Principal is the authenticated identity attached to a request
type Principal struct {
	userID         string
	organizationID string
	role           entity.Role
	permissions    entity.Permissions
}

// NewPrincipal builds an immutable principal
func NewPrincipal(userID, organizationID string, role entity.Role, perms entity.Permissions) Principal {
	return Principal{
		userID:         userID,
		organizationID: organizationID,
		role:           role,
		permissions:    perms,
	}
}

// PrincipalFromUser builds a principal from a stored user
func PrincipalFromUser(u *entity.User) Principal {
	return NewPrincipal(u.ID, u.OrganizationID, u.Role, u.Permissions)
}

func (p Principal) UserID() string                  { return p.userID }
func (p Principal) OrganizationID() string          { return p.organizationID }
func (p Principal) Role() entity.Role               { return p.role }
func (p Principal) Permissions() entity.Permissions { return p.permissions }

// IsZero reports whether the principal is unset
func (p Principal) IsZero() bool {
	return p.userID == "" || p.organizationID == ""
}

// IsAdmin reports whether the principal holds the ADMIN role
func (p Principal) IsAdmin() bool {
	return p.role == entity.RoleAdmin
}

// Allows reports whether the principal holds the capability
func (p Principal) Allows(c Capability) bool {
	if p.IsZero() {
		return false
	}

	perms := p.permissions
	switch c {
	case SubmitExpense, ViewOwnExpenses, ViewNotifications, ViewDashboard:
		return true
	case ViewAllExpenses:
		return p.IsAdmin() || perms.CanManageTeamExpenses
	case ApproveExpense:
		return p.IsAdmin() || p.role == entity.RoleManager || perms.CanViewApprovalPage
	case ReimburseExpense:
		return p.IsAdmin() || p.role == entity.RoleAccountant
	case ViewReports:
		return p.IsAdmin() || perms.CanViewReports
	case ViewPolicies:
		return p.IsAdmin() || perms.CanManagePolicies
	case ViewStores:
		return p.IsAdmin() || perms.CanManageStores
	case ViewTeam:
		return p.IsAdmin() || perms.CanViewTeamPage
	case EditPolicies, EditStores, ManageTeam, ManageOrganization, BroadcastNotification:
		return p.IsAdmin()
	default:
		return false
	}
}

// Authorize returns nil when the principal holds the capability
func Authorize(p Principal, c Capability) error {
	if p.IsZero() {
		return ErrUnauthenticated
	}
	if !p.Allows(c) {
		return fmt.Errorf("%w: %s requires %s", ErrDenied, p.role, c)
	}
	return nil
}
