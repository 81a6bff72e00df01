package entity

// Role is a member's role inside an organization
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleAccountant Role = "ACCOUNTANT"
	RoleEmployee   Role = "EMPLOYEE"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAccountant, RoleEmployee:
		return true
	default:
		return false
	}
}

// ExpenseStatus is the lifecycle status of an expense
type ExpenseStatus string

const (
	ExpenseStatusPending    ExpenseStatus = "PENDING"
	ExpenseStatusApproved   ExpenseStatus = "APPROVED"
	ExpenseStatusRejected   ExpenseStatus = "REJECTED"
	ExpenseStatusReimbursed ExpenseStatus = "REIMBURSED"
)

// IsValid reports whether s is a known expense status
func (s ExpenseStatus) IsValid() bool {
	switch s {
	case ExpenseStatusPending, ExpenseStatusApproved, ExpenseStatusRejected, ExpenseStatusReimbursed:
		return true
	default:
		return false
	}
}

// Budget period labels. The period is informational only; every budget is
// enforced against the current calendar month.
const (
	BudgetPeriodMonthly   = "Monthly"
	BudgetPeriodQuarterly = "Quarterly"
	BudgetPeriodYearly    = "Yearly"
)

// Audit actions
const (
	AuditActionSubmitExpense    = "SUBMIT_EXPENSE"
	AuditActionApproveExpense   = "APPROVE_EXPENSE"
	AuditActionRejectExpense    = "REJECT_EXPENSE"
	AuditActionReimburseExpense = "REIMBURSE_EXPENSE"
	AuditActionAddMember        = "ADD_MEMBER"
	AuditActionUpdateMember     = "UPDATE_MEMBER"
	AuditActionUpdateSettings   = "UPDATE_ORGANIZATION"
)

// UncategorizedLabel is used in reports for expenses without a category
const UncategorizedLabel = "Uncategorized"
