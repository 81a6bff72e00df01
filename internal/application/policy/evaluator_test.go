package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/entity"
)

const orgID = "org-1"

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// memoryStore backs all three readers with in-memory data
type memoryStore struct {
	policies  []*entity.Policy
	budgets   []*entity.Budget
	expenses  []*entity.Expense
	policyErr error
	budgetErr error
	spendErr  error
	sumCalls  int
}

func (m *memoryStore) ListByOrganization(ctx context.Context, org string) ([]*entity.Policy, error) {
	if m.policyErr != nil {
		return nil, m.policyErr
	}
	var out []*entity.Policy
	for _, p := range m.policies {
		if p.OrganizationID == org {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryStore) FindByCategory(ctx context.Context, org, categoryID string) (*entity.Budget, error) {
	if m.budgetErr != nil {
		return nil, m.budgetErr
	}
	for _, b := range m.budgets {
		if b.OrganizationID == org && b.CategoryID != nil && *b.CategoryID == categoryID {
			return b, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *memoryStore) SumAmounts(ctx context.Context, q port.SpendQuery) (decimal.Decimal, error) {
	m.sumCalls++
	if m.spendErr != nil {
		return decimal.Zero, m.spendErr
	}
	sum := decimal.Zero
	for _, e := range m.expenses {
		if e.OrganizationID != q.OrganizationID {
			continue
		}
		if q.CategoryID != "" && (e.CategoryID == nil || *e.CategoryID != q.CategoryID) {
			continue
		}
		at := e.CreatedAt
		if q.ByExpenseDate {
			at = e.Date
		}
		if at.Before(q.From) || !at.Before(q.To) {
			continue
		}
		excluded := false
		for _, s := range q.ExcludeStatuses {
			if e.Status == s {
				excluded = true
			}
		}
		if !excluded {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func perExpensePolicy(categoryID, max string) *entity.Policy {
	p := &entity.Policy{
		ID:             entity.NewID(),
		OrganizationID: orgID,
		Name:           "cap " + max,
		MaxAmount:      decPtr(max),
		PerExpense:     true,
	}
	if categoryID != "" {
		p.CategoryID = strPtr(categoryID)
	}
	return p
}

func budget(categoryID, amount string) *entity.Budget {
	return &entity.Budget{
		ID:             entity.NewID(),
		OrganizationID: orgID,
		CategoryID:     strPtr(categoryID),
		Name:           categoryID + " budget",
		Amount:         dec(amount),
		Period:         entity.BudgetPeriodMonthly,
	}
}

func expense(categoryID, amount string, createdAt time.Time, status entity.ExpenseStatus) *entity.Expense {
	return &entity.Expense{
		ID:             entity.NewID(),
		OrganizationID: orgID,
		CategoryID:     strPtr(categoryID),
		Amount:         dec(amount),
		Status:         status,
		Date:           createdAt,
		CreatedAt:      createdAt,
	}
}

var now = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

func newTestEvaluator(store *memoryStore, opts Options) *Evaluator {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return NewEvaluator(store, store, store, fixedClock{now: now}, opts)
}

func candidate(categoryID, amount string) Candidate {
	return Candidate{
		OrganizationID: orgID,
		CategoryID:     categoryID,
		SubmitterRole:  entity.RoleEmployee,
		Amount:         dec(amount),
	}
}

func TestEvaluate_PerExpenseTravelScenario(t *testing.T) {
	store := &memoryStore{policies: []*entity.Policy{perExpensePolicy("travel", "500")}}
	ev := newTestEvaluator(store, Options{})

	tests := []struct {
		amount   string
		admitted bool
	}{
		{"0", true},
		{"499.99", true},
		{"500", true},
		{"500.00", true},
		{"500.01", false},
		{"10000", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			d, err := ev.Evaluate(context.Background(), candidate("travel", tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.admitted, d.Admitted)
			if !tt.admitted {
				assert.Equal(t, ReasonPerExpenseLimit, d.Code)
				assert.Equal(t, msgPerExpenseLimit, d.Reason)
			}
		})
	}
}

func TestEvaluate_SuppliesBudgetScenario(t *testing.T) {
	store := &memoryStore{
		budgets: []*entity.Budget{budget("supplies", "1000")},
		expenses: []*entity.Expense{
			expense("supplies", "900", now.Add(-48*time.Hour), entity.ExpenseStatusApproved),
			expense("supplies", "50", now.Add(-time.Hour), entity.ExpenseStatusPending),
		},
	}
	ev := newTestEvaluator(store, Options{})

	d, err := ev.Evaluate(context.Background(), candidate("supplies", "50"))
	require.NoError(t, err)
	assert.True(t, d.Admitted, "filling the budget exactly is admitted")

	d, err = ev.Evaluate(context.Background(), candidate("supplies", "50.01"))
	require.NoError(t, err)
	assert.False(t, d.Admitted)
	assert.Equal(t, ReasonMonthlyBudget, d.Code)
	assert.Equal(t, msgMonthlyBudget, d.Reason)
}

func TestEvaluate_BudgetRejectsRegardlessOfCap(t *testing.T) {
	store := &memoryStore{
		policies: []*entity.Policy{perExpensePolicy("supplies", "5000")},
		budgets:  []*entity.Budget{budget("supplies", "100")},
		expenses: []*entity.Expense{expense("supplies", "90", now, entity.ExpenseStatusPending)},
	}
	ev := newTestEvaluator(store, Options{})

	d, err := ev.Evaluate(context.Background(), candidate("supplies", "11"))
	require.NoError(t, err)
	assert.False(t, d.Admitted)
	assert.Equal(t, ReasonMonthlyBudget, d.Code)
}

func TestEvaluate_NoCategoryAlwaysAdmitted(t *testing.T) {
	store := &memoryStore{
		policies: []*entity.Policy{perExpensePolicy("", "1")},
		budgets:  []*entity.Budget{budget("supplies", "1")},
		policyErr: errors.New("must not be called"),
	}
	ev := newTestEvaluator(store, Options{})

	d, err := ev.Evaluate(context.Background(), candidate("", "999999"))
	require.NoError(t, err)
	assert.True(t, d.Admitted)
	assert.Zero(t, store.sumCalls)
}

func TestEvaluate_FirstPerExpensePolicyAppliesOrganizationWide(t *testing.T) {
	store := &memoryStore{
		policies: []*entity.Policy{
			{ID: "monthly-only", OrganizationID: orgID, Name: "monthly", MonthlyLimit: decPtr("10")},
			{ID: "no-max", OrganizationID: orgID, Name: "flag only", PerExpense: true},
			perExpensePolicy("travel", "500"),
			perExpensePolicy("meals", "50"),
		},
	}
	ev := newTestEvaluator(store, Options{})

	// the travel cap is the first complete per-expense policy and applies to meals too
	d, err := ev.Evaluate(context.Background(), candidate("meals", "400"))
	require.NoError(t, err)
	assert.True(t, d.Admitted)

	d, err = ev.Evaluate(context.Background(), candidate("meals", "501"))
	require.NoError(t, err)
	assert.False(t, d.Admitted)
}

func TestEvaluate_MatchingScope(t *testing.T) {
	manager := entity.RoleManager
	managerPolicy := perExpensePolicy("travel", "2000")
	managerPolicy.AppliesToRole = &manager

	store := &memoryStore{
		policies: []*entity.Policy{
			perExpensePolicy("meals", "50"),
			perExpensePolicy("travel", "500"),
			perExpensePolicy("travel", "300"),
			managerPolicy,
			{ID: "travel-month", OrganizationID: orgID, Name: "travel month", CategoryID: strPtr("travel"), MonthlyLimit: decPtr("600")},
		},
		expenses: []*entity.Expense{expense("travel", "250", now, entity.ExpenseStatusApproved)},
	}
	ev := newTestEvaluator(store, Options{Scope: ScopeMatching})

	t.Run("meals cap does not apply to travel", func(t *testing.T) {
		d, err := ev.Evaluate(context.Background(), candidate("travel", "300"))
		require.NoError(t, err)
		assert.True(t, d.Admitted)
	})

	t.Run("strictest travel cap wins", func(t *testing.T) {
		d, err := ev.Evaluate(context.Background(), candidate("travel", "300.01"))
		require.NoError(t, err)
		assert.Equal(t, ReasonPerExpenseLimit, d.Code)
	})

	t.Run("role scoped policy ignored for other roles", func(t *testing.T) {
		c := candidate("travel", "100")
		c.SubmitterRole = entity.RoleAccountant
		d, err := ev.Evaluate(context.Background(), c)
		require.NoError(t, err)
		assert.True(t, d.Admitted)
	})

	t.Run("monthly policy limit", func(t *testing.T) {
		store.expenses = append(store.expenses, expense("travel", "100", now, entity.ExpenseStatusPending))
		d, err := ev.Evaluate(context.Background(), candidate("travel", "250.01"))
		require.NoError(t, err)
		assert.Equal(t, ReasonMonthlyPolicyLimit, d.Code)
	})
}

func TestEvaluate_CrossMonthUsesCreatedAt(t *testing.T) {
	lastMonth := time.Date(2026, time.February, 27, 12, 0, 0, 0, time.UTC)

	backdated := expense("supplies", "900", now.Add(-time.Hour), entity.ExpenseStatusPending)
	backdated.Date = lastMonth

	oldExpense := expense("supplies", "900", lastMonth, entity.ExpenseStatusPending)
	oldExpense.Date = lastMonth

	store := &memoryStore{
		budgets:  []*entity.Budget{budget("supplies", "1000")},
		expenses: []*entity.Expense{backdated, oldExpense},
	}

	ev := newTestEvaluator(store, Options{})
	d, err := ev.Evaluate(context.Background(), candidate("supplies", "150"))
	require.NoError(t, err)
	assert.False(t, d.Admitted, "backdated expense counts toward the month it was created in")

	d, err = ev.Evaluate(context.Background(), candidate("supplies", "100"))
	require.NoError(t, err)
	assert.True(t, d.Admitted, "last month's expense is outside the window")

	byDate := newTestEvaluator(store, Options{WindowBasis: WindowExpenseDate})
	d, err = byDate.Evaluate(context.Background(), candidate("supplies", "150"))
	require.NoError(t, err)
	assert.True(t, d.Admitted, "keyed on expense date both expenses fall in February")
}

func TestEvaluate_RejectedExpensesCountUnlessExcluded(t *testing.T) {
	store := &memoryStore{
		budgets:  []*entity.Budget{budget("fuel", "100")},
		expenses: []*entity.Expense{expense("fuel", "80", now, entity.ExpenseStatusRejected)},
	}

	d, err := newTestEvaluator(store, Options{}).Evaluate(context.Background(), candidate("fuel", "30"))
	require.NoError(t, err)
	assert.False(t, d.Admitted)

	d, err = newTestEvaluator(store, Options{ExcludeRejected: true}).Evaluate(context.Background(), candidate("fuel", "30"))
	require.NoError(t, err)
	assert.True(t, d.Admitted)
}

func TestEvaluate_Idempotent(t *testing.T) {
	store := &memoryStore{
		policies: []*entity.Policy{perExpensePolicy("it", "700")},
		budgets:  []*entity.Budget{budget("it", "1000")},
		expenses: []*entity.Expense{expense("it", "400", now, entity.ExpenseStatusPending)},
	}
	ev := newTestEvaluator(store, Options{})

	for _, amount := range []string{"100", "600", "600.01", "701"} {
		first, err := ev.Evaluate(context.Background(), candidate("it", amount))
		require.NoError(t, err)
		second, err := ev.Evaluate(context.Background(), candidate("it", amount))
		require.NoError(t, err)
		assert.Equal(t, first, second, amount)
	}
	assert.Len(t, store.expenses, 1)
}

func TestEvaluate_Errors(t *testing.T) {
	boom := errors.New("database is locked")

	t.Run("negative amount", func(t *testing.T) {
		_, err := newTestEvaluator(&memoryStore{}, Options{}).Evaluate(context.Background(), candidate("it", "-1"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("policy lookup failure is not a rejection", func(t *testing.T) {
		_, err := newTestEvaluator(&memoryStore{policyErr: boom}, Options{}).Evaluate(context.Background(), candidate("it", "1"))
		assert.ErrorIs(t, err, boom)
		assert.False(t, IsRejection(err))
	})

	t.Run("budget lookup failure", func(t *testing.T) {
		_, err := newTestEvaluator(&memoryStore{budgetErr: boom}, Options{}).Evaluate(context.Background(), candidate("it", "1"))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("sum failure", func(t *testing.T) {
		store := &memoryStore{budgets: []*entity.Budget{budget("it", "10")}, spendErr: boom}
		_, err := newTestEvaluator(store, Options{}).Evaluate(context.Background(), candidate("it", "1"))
		assert.ErrorIs(t, err, boom)
	})
}

func TestDecision_Err(t *testing.T) {
	assert.NoError(t, Admit().Err())

	err := Reject(ReasonMonthlyBudget, msgMonthlyBudget).Err()
	require.Error(t, err)
	assert.True(t, IsRejection(err))

	var rej *RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, ReasonMonthlyBudget, rej.Code)
}

func TestMonthBounds(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)

	tests := []struct {
		name     string
		at       time.Time
		loc      *time.Location
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			name:     "mid month",
			at:       now,
			loc:      time.UTC,
			wantFrom: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "december rolls into next year",
			at:       time.Date(2026, time.December, 31, 23, 59, 0, 0, time.UTC),
			loc:      time.UTC,
			wantFrom: time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "local month differs from UTC month",
			at:       time.Date(2026, time.April, 30, 20, 0, 0, 0, time.UTC),
			loc:      kolkata,
			wantFrom: time.Date(2026, time.May, 1, 0, 0, 0, 0, kolkata),
			wantTo:   time.Date(2026, time.June, 1, 0, 0, 0, 0, kolkata),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := MonthBounds(tt.at, tt.loc)
			assert.True(t, tt.wantFrom.Equal(from), "from = %s", from)
			assert.True(t, tt.wantTo.Equal(to), "to = %s", to)
		})
	}
}

func TestLimits(t *testing.T) {
	store := &memoryStore{
		policies: []*entity.Policy{perExpensePolicy("travel", "500")},
		budgets:  []*entity.Budget{budget("travel", "1000")},
		expenses: []*entity.Expense{
			expense("travel", "1200", now, entity.ExpenseStatusApproved),
			expense("meals", "30", now, entity.ExpenseStatusPending),
		},
	}
	ev := newTestEvaluator(store, Options{})

	limits, err := ev.Limits(context.Background(), orgID, entity.RoleEmployee, []*entity.Category{
		{ID: "travel", Name: "Travel"},
		{ID: "meals", Name: "Meals"},
	})
	require.NoError(t, err)

	require.NotNil(t, limits.PerExpenseMax)
	assert.True(t, limits.PerExpenseMax.Equal(dec("500")))
	require.Len(t, limits.Categories, 2)

	travel := limits.Categories[0]
	require.NotNil(t, travel.Budget)
	assert.True(t, travel.Spent.Equal(dec("1200")))
	assert.True(t, travel.Remaining.IsZero())

	meals := limits.Categories[1]
	assert.Nil(t, meals.Budget)
	assert.True(t, meals.Spent.Equal(dec("30")))
	require.NotNil(t, meals.PerExpenseMax, "the first cap covers every category")
	assert.True(t, meals.PerExpenseMax.Equal(dec("500")))
	assert.Empty(t, meals.PolicyLimits)
}

func TestLimits_MatchingScope(t *testing.T) {
	manager := entity.RoleManager
	managerCap := perExpensePolicy("travel", "200")
	managerCap.AppliesToRole = &manager

	store := &memoryStore{
		policies: []*entity.Policy{
			perExpensePolicy("meals", "50"),
			perExpensePolicy("travel", "500"),
			managerCap,
			{ID: "org-month", OrganizationID: orgID, Name: "org month", MonthlyLimit: decPtr("1000")},
			{ID: "travel-month", OrganizationID: orgID, Name: "travel month", CategoryID: strPtr("travel"), MonthlyLimit: decPtr("800")},
		},
		expenses: []*entity.Expense{
			expense("travel", "250", now, entity.ExpenseStatusApproved),
			expense("meals", "30", now, entity.ExpenseStatusPending),
		},
	}
	ev := newTestEvaluator(store, Options{Scope: ScopeMatching})
	categories := []*entity.Category{{ID: "travel", Name: "Travel"}, {ID: "meals", Name: "Meals"}}

	limits, err := ev.Limits(context.Background(), orgID, entity.RoleEmployee, categories)
	require.NoError(t, err)
	assert.Nil(t, limits.PerExpenseMax)
	require.Len(t, limits.Categories, 2)

	travel := limits.Categories[0]
	require.NotNil(t, travel.PerExpenseMax)
	assert.True(t, travel.PerExpenseMax.Equal(dec("500")))
	require.Len(t, travel.PolicyLimits, 2)
	assert.Equal(t, "org-month", travel.PolicyLimits[0].PolicyID)
	assert.True(t, travel.PolicyLimits[0].Spent.Equal(dec("280")))
	assert.True(t, travel.PolicyLimits[0].Remaining.Equal(dec("720")))
	assert.Equal(t, "travel-month", travel.PolicyLimits[1].PolicyID)
	assert.True(t, travel.PolicyLimits[1].Remaining.Equal(dec("550")))

	meals := limits.Categories[1]
	require.NotNil(t, meals.PerExpenseMax)
	assert.True(t, meals.PerExpenseMax.Equal(dec("50")))
	require.Len(t, meals.PolicyLimits, 1)
	assert.Equal(t, "org-month", meals.PolicyLimits[0].PolicyID)

	// the reported cap is the one Evaluate enforces
	d, err := ev.Evaluate(context.Background(), candidate("travel", "500"))
	require.NoError(t, err)
	assert.True(t, d.Admitted)
	d, err = ev.Evaluate(context.Background(), candidate("travel", "500.01"))
	require.NoError(t, err)
	assert.Equal(t, ReasonPerExpenseLimit, d.Code)

	limits, err = ev.Limits(context.Background(), orgID, entity.RoleManager, categories)
	require.NoError(t, err)
	assert.True(t, limits.Categories[0].PerExpenseMax.Equal(dec("200")))
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.NoError(t, Options{Scope: ScopeMatching, WindowBasis: WindowExpenseDate}.Validate())
	assert.Error(t, Options{Scope: "everything"}.Validate())
	assert.Error(t, Options{WindowBasis: "updated_at"}.Validate())
}

func TestEvaluator_ScopeKey(t *testing.T) {
	e := newTestEvaluator(&memoryStore{}, Options{Location: time.UTC})

	assert.Equal(t, "org/cat/2026-03", e.ScopeKey("org", "cat"))
	assert.Equal(t, "org/-/2026-03", e.ScopeKey("org", ""))
}
