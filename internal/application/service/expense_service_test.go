package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expense-manager/internal/application/policy"
	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/internal/domain/event"
	"github.com/garyjia/expense-manager/internal/domain/workflow"
)

type expenseFixture struct {
	svc        ExpenseService
	expenses   *mockExpenseRepo
	categories *mockCategoryRepo
	policies   *mockPolicyRepo
	budgets    *mockBudgetRepo
	audit      *mockAuditRepo
	receipts   *mockReceiptStorage
	locker     *mockLocker
	tx         *mockTxManager
	dispatcher *mockDispatcher
}

func newExpenseFixture() *expenseFixture {
	travel := "travel"
	f := &expenseFixture{
		expenses: &mockExpenseRepo{},
		categories: &mockCategoryRepo{categories: map[string]*entity.Category{
			"travel": {ID: "travel", OrganizationID: testOrgID, Name: "Travel"},
			"meals":  {ID: "meals", OrganizationID: testOrgID, Name: "Meals"},
			"other":  {ID: "other", OrganizationID: "org-2", Name: "Elsewhere"},
		}},
		policies: &mockPolicyRepo{policies: []*entity.Policy{{
			ID:             "p1",
			OrganizationID: testOrgID,
			CategoryID:     &travel,
			Name:           "Travel cap",
			MaxAmount:      decimalPtr("500"),
			PerExpense:     true,
		}}},
		budgets:    &mockBudgetRepo{},
		audit:      &mockAuditRepo{},
		receipts:   &mockReceiptStorage{},
		locker:     &mockLocker{},
		tx:         &mockTxManager{},
		dispatcher: &mockDispatcher{},
	}

	clock := fixedClock{now: testNow}
	evaluator := policy.NewEvaluator(f.policies, f.budgets, f.expenses, clock, policy.Options{Location: time.UTC})

	f.svc = NewExpenseService(ExpenseDeps{
		Expenses:      f.expenses,
		Categories:    f.categories,
		Stores:        &mockStoreRepo{stores: map[string]*entity.Store{}},
		Organizations: &mockOrgRepo{org: &entity.Organization{ID: testOrgID, Slug: "demo", DefaultCurrency: "INR"}},
		AuditLogs:     f.audit,
		Receipts:      f.receipts,
		Evaluator:     evaluator,
		Locker:        f.locker,
		TxManager:     f.tx,
		Dispatcher:    f.dispatcher,
		Clock:         clock,
	}, &mockLogger{})
	return f
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func (f *expenseFixture) stored(status entity.ExpenseStatus) *entity.Expense {
	e := &entity.Expense{
		ID:             "exp-1",
		OrganizationID: testOrgID,
		UserID:         employee.UserID(),
		Title:          "Taxi",
		Amount:         decimal.RequireFromString("120"),
		Currency:       "INR",
		Status:         status,
	}
	f.expenses.getByIDFunc = func(ctx context.Context, orgID, id string) (*entity.Expense, error) {
		if orgID != testOrgID || id != e.ID {
			return nil, port.ErrNotFound
		}
		return e, nil
	}
	return e
}

func TestExpenseService_SubmitAdmitsAtCap(t *testing.T) {
	f := newExpenseFixture()

	expense, err := f.svc.Submit(context.Background(), employee, SubmitExpenseRequest{
		Title:      "  Flight  ",
		Amount:     "500",
		Date:       "2026-03-10",
		CategoryID: "travel",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.ExpenseStatusPending, expense.Status)
	assert.Equal(t, "Flight", expense.Title)
	assert.Equal(t, "INR", expense.Currency)
	assert.Equal(t, testOrgID, expense.OrganizationID)
	assert.Equal(t, employee.UserID(), expense.UserID)
	assert.True(t, expense.Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, testNow, expense.CreatedAt)
	assert.Len(t, f.expenses.created, 1)
	assert.Equal(t, []string{"org-1/travel/2026-03"}, f.locker.keys)
	assert.Equal(t, 1, f.tx.calls)
	assert.Equal(t, []string{entity.AuditActionSubmitExpense}, f.audit.actions())
	assert.Equal(t, []event.Type{event.TypeExpenseSubmitted}, f.dispatcher.types())
}

func TestExpenseService_SubmitRejectedByPolicy(t *testing.T) {
	f := newExpenseFixture()

	_, err := f.svc.Submit(context.Background(), employee, SubmitExpenseRequest{
		Title:      "Flight",
		Amount:     "500.01",
		CategoryID: "travel",
		Receipt:    &ReceiptUpload{Filename: "ticket.png", Content: []byte("png")},
	})
	require.Error(t, err)

	var rejection *policy.RejectionError
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, policy.ReasonPerExpenseLimit, rejection.Code)
	assert.Empty(t, f.expenses.created)
	assert.Empty(t, f.audit.logs)
	assert.Empty(t, f.dispatcher.types())
	require.Len(t, f.receipts.saved, 1)
	assert.Equal(t, f.receipts.saved, f.receipts.deleted)
}

func TestExpenseService_SubmitRejectedByBudget(t *testing.T) {
	f := newExpenseFixture()
	meals := "meals"
	f.budgets.budgets = []*entity.Budget{{ID: "b1", OrganizationID: testOrgID, CategoryID: &meals, Amount: decimal.NewFromInt(1000)}}
	f.expenses.sumFunc = func(ctx context.Context, q port.SpendQuery) (decimal.Decimal, error) {
		assert.Equal(t, "meals", q.CategoryID)
		assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), q.From)
		return decimal.NewFromInt(900), nil
	}

	_, err := f.svc.Submit(context.Background(), employee, SubmitExpenseRequest{Title: "Dinner", Amount: "100", CategoryID: "meals"})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), employee, SubmitExpenseRequest{Title: "Dinner", Amount: "100.01", CategoryID: "meals"})
	require.Error(t, err)
	assert.True(t, policy.IsRejection(err))
	assert.Len(t, f.expenses.created, 1)
}

func TestExpenseService_SubmitWithoutCategorySkipsPolicies(t *testing.T) {
	f := newExpenseFixture()

	expense, err := f.svc.Submit(context.Background(), employee, SubmitExpenseRequest{Title: "Misc", Amount: "99999", Currency: "usd"})
	require.NoError(t, err)

	assert.Nil(t, expense.CategoryID)
	assert.Equal(t, "USD", expense.Currency)
	assert.Empty(t, f.locker.keys)
	assert.Zero(t, f.policies.listed)
}

func TestExpenseService_SubmitValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   SubmitExpenseRequest
		field string
	}{
		{"missing title", SubmitExpenseRequest{Title: "   ", Amount: "10"}, "title"},
		{"negative amount", SubmitExpenseRequest{Title: "Taxi", Amount: "-1"}, "amount"},
		{"non numeric amount", SubmitExpenseRequest{Title: "Taxi", Amount: "ten"}, "amount"},
		{"bad date", SubmitExpenseRequest{Title: "Taxi", Amount: "10", Date: "10/03/2026"}, "date"},
		{"unknown category", SubmitExpenseRequest{Title: "Taxi", Amount: "10", CategoryID: "nope"}, "category"},
		{"category of another tenant", SubmitExpenseRequest{Title: "Taxi", Amount: "10", CategoryID: "other"}, "category"},
		{"unknown store", SubmitExpenseRequest{Title: "Taxi", Amount: "10", StoreID: "nope"}, "store"},
		{"bad currency", SubmitExpenseRequest{Title: "Taxi", Amount: "10", Currency: "rupees"}, "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newExpenseFixture()

			_, err := f.svc.Submit(context.Background(), employee, tt.req)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, f.expenses.created)
			assert.Zero(t, f.tx.calls)
		})
	}
}

func TestExpenseService_SubmitInvalidReceipt(t *testing.T) {
	f := newExpenseFixture()
	f.receipts.saveErr = errors.Join(port.ErrInvalidReceipt, errors.New("too large"))

	_, err := f.svc.Submit(context.Background(), employee, SubmitExpenseRequest{
		Title:   "Taxi",
		Amount:  "10",
		Receipt: &ReceiptUpload{Filename: "big.pdf", Content: []byte("x")},
	})
	assert.True(t, IsValidation(err))
	assert.Empty(t, f.expenses.created)
}

func TestExpenseService_SubmitRequiresPrincipal(t *testing.T) {
	f := newExpenseFixture()

	_, err := f.svc.Submit(context.Background(), authz.Principal{}, SubmitExpenseRequest{Title: "Taxi", Amount: "10"})
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)
}

func TestExpenseService_Approve(t *testing.T) {
	f := newExpenseFixture()
	stored := f.stored(entity.ExpenseStatusPending)

	_, err := f.svc.Approve(context.Background(), employee, stored.ID)
	assert.ErrorIs(t, err, authz.ErrDenied)

	expense, err := f.svc.Approve(context.Background(), manager, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ExpenseStatusApproved, expense.Status)
	require.NotNil(t, expense.ApprovedByID)
	assert.Equal(t, manager.UserID(), *expense.ApprovedByID)
	require.NotNil(t, expense.ApprovedAt)
	assert.Equal(t, testNow, *expense.ApprovedAt)
	assert.Equal(t, []string{entity.AuditActionApproveExpense}, f.audit.actions())
	assert.Equal(t, []event.Type{event.TypeExpenseApproved}, f.dispatcher.types())

	_, err = f.svc.Approve(context.Background(), manager, stored.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestExpenseService_RejectRequiresReason(t *testing.T) {
	f := newExpenseFixture()
	stored := f.stored(entity.ExpenseStatusPending)

	_, err := f.svc.Reject(context.Background(), manager, stored.ID, "  ")
	assert.True(t, IsValidation(err))

	expense, err := f.svc.Reject(context.Background(), manager, stored.ID, "missing receipt")
	require.NoError(t, err)
	assert.Equal(t, entity.ExpenseStatusRejected, expense.Status)
	require.NotNil(t, expense.RejectedReason)
	assert.Equal(t, "missing receipt", *expense.RejectedReason)
	assert.Nil(t, expense.ApprovedByID)

	require.Len(t, f.dispatcher.events, 1)
	assert.Equal(t, "missing receipt", f.dispatcher.events[0].GetPayloadString("reason"))
}

func TestExpenseService_RejectedIsFinal(t *testing.T) {
	f := newExpenseFixture()
	stored := f.stored(entity.ExpenseStatusRejected)

	for _, fire := range []func() (*entity.Expense, error){
		func() (*entity.Expense, error) { return f.svc.Approve(context.Background(), admin, stored.ID) },
		func() (*entity.Expense, error) { return f.svc.Reject(context.Background(), admin, stored.ID, "again") },
		func() (*entity.Expense, error) { return f.svc.Reimburse(context.Background(), admin, stored.ID) },
	} {
		_, err := fire()
		assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	}
	assert.Equal(t, entity.ExpenseStatusRejected, stored.Status)
	assert.Empty(t, f.expenses.updated)
}

func TestExpenseService_Reimburse(t *testing.T) {
	f := newExpenseFixture()
	stored := f.stored(entity.ExpenseStatusPending)

	_, err := f.svc.Reimburse(context.Background(), accountant, stored.ID)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	stored.Status = entity.ExpenseStatusApproved
	_, err = f.svc.Reimburse(context.Background(), manager, stored.ID)
	assert.ErrorIs(t, err, authz.ErrDenied)

	expense, err := f.svc.Reimburse(context.Background(), accountant, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ExpenseStatusReimbursed, expense.Status)
	require.NotNil(t, expense.ReimbursedAt)
	assert.Equal(t, []string{entity.AuditActionReimburseExpense}, f.audit.actions())

	_, err = f.svc.Reject(context.Background(), admin, stored.ID, "too late")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestExpenseService_TransitionNotFound(t *testing.T) {
	f := newExpenseFixture()

	_, err := f.svc.Approve(context.Background(), manager, "missing")
	assert.ErrorIs(t, err, port.ErrNotFound)
	assert.Empty(t, f.expenses.updated)
}

func TestExpenseService_GetVisibility(t *testing.T) {
	f := newExpenseFixture()
	stored := f.stored(entity.ExpenseStatusPending)

	got, err := f.svc.Get(context.Background(), employee, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)

	colleague := authz.NewPrincipal("user-2", testOrgID, entity.RoleEmployee, entity.Permissions{})
	_, err = f.svc.Get(context.Background(), colleague, stored.ID)
	assert.ErrorIs(t, err, authz.ErrDenied)

	_, err = f.svc.Get(context.Background(), manager, stored.ID)
	assert.NoError(t, err)

	outsider := authz.NewPrincipal("user-9", "org-2", entity.RoleAdmin, entity.Permissions{})
	_, err = f.svc.Get(context.Background(), outsider, stored.ID)
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestExpenseService_ListScoping(t *testing.T) {
	f := newExpenseFixture()

	_, err := f.svc.List(context.Background(), employee, ListExpensesRequest{Status: "pending", Search: " taxi "})
	require.NoError(t, err)
	_, err = f.svc.List(context.Background(), admin, ListExpensesRequest{})
	require.NoError(t, err)

	require.Len(t, f.expenses.filters, 2)
	assert.Equal(t, employee.UserID(), f.expenses.filters[0].UserID)
	assert.Equal(t, entity.ExpenseStatusPending, f.expenses.filters[0].Status)
	assert.Equal(t, "taxi", f.expenses.filters[0].Search)
	assert.Empty(t, f.expenses.filters[1].UserID)

	_, err = f.svc.List(context.Background(), employee, ListExpensesRequest{Status: "archived"})
	assert.True(t, IsValidation(err))
}

func TestExpenseService_ApprovalQueues(t *testing.T) {
	f := newExpenseFixture()

	_, err := f.svc.ListPending(context.Background(), employee, "")
	assert.ErrorIs(t, err, authz.ErrDenied)

	_, err = f.svc.ListPending(context.Background(), manager, "")
	require.NoError(t, err)
	_, err = f.svc.ListApproved(context.Background(), accountant, "cab")
	require.NoError(t, err)

	require.Len(t, f.expenses.filters, 2)
	assert.Equal(t, entity.ExpenseStatusPending, f.expenses.filters[0].Status)
	assert.Equal(t, entity.ExpenseStatusApproved, f.expenses.filters[1].Status)
	assert.Equal(t, "cab", f.expenses.filters[1].Search)
}

func TestExpenseService_Limits(t *testing.T) {
	f := newExpenseFixture()
	delete(f.categories.categories, "other")

	limits, err := f.svc.Limits(context.Background(), employee)
	require.NoError(t, err)

	require.NotNil(t, limits.PerExpenseMax)
	assert.True(t, limits.PerExpenseMax.Equal(decimal.NewFromInt(500)))
	assert.Len(t, limits.Categories, 2)
}
