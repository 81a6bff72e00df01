package entity

import "time"

// Permissions are per-user flags granting access beyond the user's role
type Permissions struct {
	CanViewTeamPage       bool `json:"can_view_team_page"`
	CanViewApprovalPage   bool `json:"can_view_approval_page"`
	CanManageTeamExpenses bool `json:"can_manage_team_expenses"`
	CanViewReports        bool `json:"can_view_reports"`
	CanManagePolicies     bool `json:"can_manage_policies"`
	CanManageStores       bool `json:"can_manage_stores"`
}

// User is a member of exactly one organization
type User struct {
	ID             string      `json:"id" gorm:"primaryKey;size:36"`
	OrganizationID string      `json:"organization_id" gorm:"index;not null"`
	Email          string      `json:"email" gorm:"uniqueIndex;not null"`
	Name           string      `json:"name"`
	Role           Role        `json:"role" gorm:"not null"`
	PasswordHash   string      `json:"-" gorm:"not null"`
	Permissions    Permissions `json:"permissions" gorm:"embedded"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// DisplayName returns the name, falling back to the email
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
