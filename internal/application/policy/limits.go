package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/entity"
)

// PolicyLimit is the position of one monthly policy limit in the current month
type PolicyLimit struct {
	PolicyID     string          `json:"policy_id"`
	Name         string          `json:"name"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
}

// CategoryLimit is the budget position of one category in the current month
type CategoryLimit struct {
	CategoryID    string           `json:"category_id"`
	CategoryName  string           `json:"category_name"`
	PerExpenseMax *decimal.Decimal `json:"per_expense_max,omitempty"`
	Budget        *decimal.Decimal `json:"budget,omitempty"`
	Spent         decimal.Decimal  `json:"spent"`
	Remaining     *decimal.Decimal `json:"remaining,omitempty"`
	PolicyLimits  []PolicyLimit    `json:"policy_limits,omitempty"`
}

// Limits is what a submitter sees before entering an expense. PerExpenseMax
// is set only when one cap covers every category.
type Limits struct {
	PerExpenseMax *decimal.Decimal `json:"per_expense_max,omitempty"`
	Categories    []CategoryLimit  `json:"categories"`
}

// Limits reports, for a submitter of the given role, the caps and the current
// month's usage of every category, using the same rules as Evaluate.
func (e *Evaluator) Limits(ctx context.Context, orgID string, role entity.Role, categories []*entity.Category) (*Limits, error) {
	policies, err := e.policies.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}

	from, to := e.MonthWindow()
	result := &Limits{Categories: make([]CategoryLimit, 0, len(categories))}
	if e.opts.Scope != ScopeMatching {
		result.PerExpenseMax = firstPerExpenseCap(policies)
	}

	// organization-wide monthly policies share one sum across categories
	sums := make(map[string]decimal.Decimal)
	sum := func(categoryID string) (decimal.Decimal, error) {
		if s, ok := sums[categoryID]; ok {
			return s, nil
		}
		s, err := e.spend.SumAmounts(ctx, e.spendQuery(orgID, categoryID, from, to))
		if err != nil {
			return decimal.Zero, err
		}
		sums[categoryID] = s
		return s, nil
	}

	for _, cat := range categories {
		spent, err := sum(cat.ID)
		if err != nil {
			return nil, fmt.Errorf("sum category spend: %w", err)
		}

		c := Candidate{OrganizationID: orgID, CategoryID: cat.ID, SubmitterRole: role}
		limit := CategoryLimit{
			CategoryID:    cat.ID,
			CategoryName:  cat.Name,
			PerExpenseMax: e.perExpenseCap(policies, c),
			Spent:         spent,
		}

		if e.opts.Scope == ScopeMatching {
			for _, p := range matchingPolicies(policies, c) {
				if p.MonthlyLimit == nil {
					continue
				}
				policySpent, err := sum(policyCategory(p))
				if err != nil {
					return nil, fmt.Errorf("sum policy spend: %w", err)
				}
				limit.PolicyLimits = append(limit.PolicyLimits, PolicyLimit{
					PolicyID:     p.ID,
					Name:         p.Name,
					MonthlyLimit: *p.MonthlyLimit,
					Spent:        policySpent,
					Remaining:    decimal.Max(p.MonthlyLimit.Sub(policySpent), decimal.Zero),
				})
			}
		}

		budget, err := e.budgets.FindByCategory(ctx, orgID, cat.ID)
		switch {
		case errors.Is(err, port.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("load budget: %w", err)
		default:
			amount := budget.Amount
			remaining := decimal.Max(amount.Sub(spent), decimal.Zero)
			limit.Budget = &amount
			limit.Remaining = &remaining
		}

		result.Categories = append(result.Categories, limit)
	}

	return result, nil
}
