package workflow

import "github.com/garyjia/expense-manager/internal/domain/entity"

// State is a position in the expense lifecycle
type State string

const (
	StatePending    State = State(entity.ExpenseStatusPending)
	StateApproved   State = State(entity.ExpenseStatusApproved)
	StateRejected   State = State(entity.ExpenseStatusRejected)
	StateReimbursed State = State(entity.ExpenseStatusReimbursed)
)

// IsTerminal returns true if no further transitions leave the state
func (s State) IsTerminal() bool {
	switch s {
	case StateRejected, StateReimbursed:
		return true
	}
	return false
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state. It runs while
// the package-level lifecycle is initialized, so it reads no package variables.
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateApproved, StateRejected, StateReimbursed:
		return true
	}
	return false
}

// Status converts the state to the persisted expense status
func (s State) Status() entity.ExpenseStatus {
	return entity.ExpenseStatus(s)
}
