package policy

import (
	"errors"
	"fmt"
)

// ReasonCode classifies a rejection
type ReasonCode string

const (
	ReasonPerExpenseLimit    ReasonCode = "PER_EXPENSE_LIMIT"
	ReasonMonthlyBudget      ReasonCode = "MONTHLY_BUDGET"
	ReasonMonthlyPolicyLimit ReasonCode = "MONTHLY_POLICY_LIMIT"
)

const (
	msgPerExpenseLimit    = "exceeds per-expense policy maximum"
	msgMonthlyBudget      = "exceeds monthly category budget"
	msgMonthlyPolicyLimit = "exceeds monthly policy limit"
)

// ErrInvalidAmount is returned for a negative candidate amount
var ErrInvalidAmount = errors.New("amount must not be negative")

// Decision is the outcome of evaluating a candidate expense
type Decision struct {
	Admitted bool
	Code     ReasonCode
	Reason   string
}

// Admit returns an admitting decision
func Admit() Decision {
	return Decision{Admitted: true}
}

// Reject returns a rejecting decision
func Reject(code ReasonCode, reason string) Decision {
	return Decision{Code: code, Reason: reason}
}

// Err converts a rejecting decision into a *RejectionError and returns nil
// for an admitting one.
func (d Decision) Err() error {
	if d.Admitted {
		return nil
	}
	return &RejectionError{Code: d.Code, Message: d.Reason}
}

// RejectionError reports that an expense violates a policy or budget.
// It is an expected outcome, not a failure.
type RejectionError struct {
	Code    ReasonCode
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("expense rejected (%s): %s", e.Code, e.Message)
}

// IsRejection reports whether err carries a policy rejection
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}
