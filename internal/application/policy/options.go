package policy

import (
	"fmt"
	"time"
)

// Scope selects which policies take part in evaluation
type Scope string

const (
	// ScopeOrganization applies the first per-expense policy of the
	// organization to every categorized expense.
	ScopeOrganization Scope = "organization"

	// ScopeMatching applies only policies whose category and role match the
	// candidate, takes the strictest per-expense cap and also enforces
	// monthly policy limits.
	ScopeMatching Scope = "matching"
)

// WindowBasis selects the timestamp that places an expense in a month
type WindowBasis string

const (
	WindowCreatedAt   WindowBasis = "created_at"
	WindowExpenseDate WindowBasis = "expense_date"
)

// Options tune the evaluator. The zero value reproduces the reference
// decision rule.
type Options struct {
	Scope           Scope
	ExcludeRejected bool
	WindowBasis     WindowBasis
	Location        *time.Location
}

func (o Options) withDefaults() Options {
	if o.Scope == "" {
		o.Scope = ScopeOrganization
	}
	if o.WindowBasis == "" {
		o.WindowBasis = WindowCreatedAt
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// Validate checks enum fields
func (o Options) Validate() error {
	switch o.Scope {
	case "", ScopeOrganization, ScopeMatching:
	default:
		return fmt.Errorf("unknown policy scope %q", o.Scope)
	}
	switch o.WindowBasis {
	case "", WindowCreatedAt, WindowExpenseDate:
	default:
		return fmt.Errorf("unknown window basis %q", o.WindowBasis)
	}
	return nil
}
