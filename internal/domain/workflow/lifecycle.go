package workflow

import (
	"fmt"

	"github.com/garyjia/expense-manager/internal/domain/entity"
)

var expenseLifecycle = newExpenseLifecycle()

func newExpenseLifecycle() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)

	b.Configure(StateApproved).
		Permit(TriggerReimburse, StateReimbursed)

	b.Configure(StateRejected)
	b.Configure(StateReimbursed)

	return b
}

// ForExpense returns a lifecycle machine positioned at the expense's status
func ForExpense(status entity.ExpenseStatus) (StateMachine, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, status)
	}
	return expenseLifecycle.Build(State(status))
}
