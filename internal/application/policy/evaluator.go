// Package policy decides whether a candidate expense may be recorded given
// the organization's spending policies and monthly category budgets.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/entity"
)

// PolicyReader lists an organization's policies, oldest first
type PolicyReader interface {
	ListByOrganization(ctx context.Context, orgID string) ([]*entity.Policy, error)
}

// BudgetReader finds the budget of a category
type BudgetReader interface {
	FindByCategory(ctx context.Context, orgID, categoryID string) (*entity.Budget, error)
}

// SpendReader sums persisted expense amounts
type SpendReader interface {
	SumAmounts(ctx context.Context, q port.SpendQuery) (decimal.Decimal, error)
}

// Candidate is an expense that has not been persisted yet
type Candidate struct {
	OrganizationID string
	CategoryID     string
	SubmitterRole  entity.Role
	Amount         decimal.Decimal
}

// Evaluator applies per-expense caps and monthly budgets. It performs no
// writes; the caller must persist an admitted expense under the same scope
// lock to keep the running total consistent.
type Evaluator struct {
	policies PolicyReader
	budgets  BudgetReader
	spend    SpendReader
	clock    port.Clock
	opts     Options
}

// NewEvaluator creates an evaluator
func NewEvaluator(policies PolicyReader, budgets BudgetReader, spend SpendReader, clock port.Clock, opts Options) *Evaluator {
	if clock == nil {
		clock = port.SystemClock{}
	}
	return &Evaluator{
		policies: policies,
		budgets:  budgets,
		spend:    spend,
		clock:    clock,
		opts:     opts.withDefaults(),
	}
}

// Evaluate returns Admit or Reject for the candidate. Errors are only
// returned for invalid input or data access failures.
func (e *Evaluator) Evaluate(ctx context.Context, c Candidate) (Decision, error) {
	if c.Amount.IsNegative() {
		return Decision{}, ErrInvalidAmount
	}
	if c.CategoryID == "" {
		return Admit(), nil
	}

	policies, err := e.policies.ListByOrganization(ctx, c.OrganizationID)
	if err != nil {
		return Decision{}, fmt.Errorf("load policies: %w", err)
	}

	from, to := e.MonthWindow()

	if limit := e.perExpenseCap(policies, c); limit != nil && c.Amount.GreaterThan(*limit) {
		return Reject(ReasonPerExpenseLimit, msgPerExpenseLimit), nil
	}
	if e.opts.Scope == ScopeMatching {
		decision, err := e.checkMonthlyPolicies(ctx, c, matchingPolicies(policies, c), from, to)
		if err != nil || !decision.Admitted {
			return decision, err
		}
	}

	budget, err := e.budgets.FindByCategory(ctx, c.OrganizationID, c.CategoryID)
	if errors.Is(err, port.ErrNotFound) {
		return Admit(), nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("load budget: %w", err)
	}

	spent, err := e.spend.SumAmounts(ctx, e.spendQuery(c.OrganizationID, c.CategoryID, from, to))
	if err != nil {
		return Decision{}, fmt.Errorf("sum category spend: %w", err)
	}

	if spent.Add(c.Amount).GreaterThan(budget.Amount) {
		return Reject(ReasonMonthlyBudget, msgMonthlyBudget), nil
	}

	return Admit(), nil
}

// MonthWindow returns [first instant of the current month, first instant of
// the next month) in the configured location.
func (e *Evaluator) MonthWindow() (time.Time, time.Time) {
	return MonthBounds(e.clock.Now(), e.opts.Location)
}

// MonthBounds returns the calendar month containing t in loc
func MonthBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	from := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}

func (e *Evaluator) spendQuery(orgID, categoryID string, from, to time.Time) port.SpendQuery {
	q := port.SpendQuery{
		OrganizationID: orgID,
		CategoryID:     categoryID,
		From:           from.UTC(),
		To:             to.UTC(),
		ByExpenseDate:  e.opts.WindowBasis == WindowExpenseDate,
	}
	if e.opts.ExcludeRejected {
		q.ExcludeStatuses = []entity.ExpenseStatus{entity.ExpenseStatusRejected}
	}
	return q
}

func (e *Evaluator) checkMonthlyPolicies(ctx context.Context, c Candidate, applicable []*entity.Policy, from, to time.Time) (Decision, error) {
	for _, p := range applicable {
		if p.MonthlyLimit == nil {
			continue
		}
		spent, err := e.spend.SumAmounts(ctx, e.spendQuery(c.OrganizationID, policyCategory(p), from, to))
		if err != nil {
			return Decision{}, fmt.Errorf("sum policy spend: %w", err)
		}
		if spent.Add(c.Amount).GreaterThan(*p.MonthlyLimit) {
			return Reject(ReasonMonthlyPolicyLimit, msgMonthlyPolicyLimit), nil
		}
	}
	return Admit(), nil
}

// perExpenseCap returns the single-expense cap that applies to c under the
// configured scope, or nil when none does.
func (e *Evaluator) perExpenseCap(policies []*entity.Policy, c Candidate) *decimal.Decimal {
	if e.opts.Scope == ScopeMatching {
		return strictestCap(matchingPolicies(policies, c))
	}
	return firstPerExpenseCap(policies)
}

func strictestCap(policies []*entity.Policy) *decimal.Decimal {
	var strictest *decimal.Decimal
	for _, p := range policies {
		if p.CapsSingleExpense() && (strictest == nil || p.MaxAmount.LessThan(*strictest)) {
			strictest = p.MaxAmount
		}
	}
	return strictest
}

// policyCategory is the category a policy's monthly limit sums over; empty
// means the whole organization.
func policyCategory(p *entity.Policy) string {
	if p.CategoryID == nil {
		return ""
	}
	return *p.CategoryID
}

func firstPerExpenseCap(policies []*entity.Policy) *decimal.Decimal {
	for _, p := range policies {
		if p.CapsSingleExpense() {
			return p.MaxAmount
		}
	}
	return nil
}

func matchingPolicies(policies []*entity.Policy, c Candidate) []*entity.Policy {
	matched := make([]*entity.Policy, 0, len(policies))
	for _, p := range policies {
		if p.CategoryID != nil && *p.CategoryID != c.CategoryID {
			continue
		}
		if p.AppliesToRole != nil && *p.AppliesToRole != c.SubmitterRole {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

// ScopeKey names the resource a candidate contends for: one organization,
// one category, one calendar month of the evaluator's window.
func (e *Evaluator) ScopeKey(orgID, categoryID string) string {
	if categoryID == "" {
		categoryID = "-"
	}
	from, _ := e.MonthWindow()
	return fmt.Sprintf("%s/%s/%s", orgID, categoryID, from.Format("2006-01"))
}
