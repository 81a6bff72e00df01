package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expense-manager/internal/application/dispatcher"
	"github.com/garyjia/expense-manager/internal/application/policy"
	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/internal/domain/event"
	"github.com/garyjia/expense-manager/internal/domain/workflow"
	"github.com/garyjia/expense-manager/pkg/utils"
)

// ExpenseService manages the expense lifecycle
type ExpenseService interface {
	Submit(ctx context.Context, p authz.Principal, req SubmitExpenseRequest) (*entity.Expense, error)
	Approve(ctx context.Context, p authz.Principal, expenseID string) (*entity.Expense, error)
	Reject(ctx context.Context, p authz.Principal, expenseID, reason string) (*entity.Expense, error)
	Reimburse(ctx context.Context, p authz.Principal, expenseID string) (*entity.Expense, error)
	Get(ctx context.Context, p authz.Principal, expenseID string) (*entity.Expense, error)
	List(ctx context.Context, p authz.Principal, filter ListExpensesRequest) ([]*entity.Expense, error)
	ListPending(ctx context.Context, p authz.Principal, search string) ([]*entity.Expense, error)
	ListApproved(ctx context.Context, p authz.Principal, search string) ([]*entity.Expense, error)
	Limits(ctx context.Context, p authz.Principal) (*policy.Limits, error)
}

// ReceiptUpload is a receipt file attached to a submission
type ReceiptUpload struct {
	Filename string
	Content  []byte
}

// SubmitExpenseRequest is the raw submission as entered by the user
type SubmitExpenseRequest struct {
	Title      string
	Amount     string
	Currency   string
	Date       string
	CategoryID string
	StoreID    string
	Notes      string
	Receipt    *ReceiptUpload
}

// ListExpensesRequest filters an expense listing
type ListExpensesRequest struct {
	Search     string
	Status     string
	CategoryID string
	Limit      int
}

// ExpenseDeps collects the collaborators of the expense service
type ExpenseDeps struct {
	Expenses      port.ExpenseRepository
	Categories    port.CategoryRepository
	Stores        port.StoreRepository
	Organizations port.OrganizationRepository
	AuditLogs     port.AuditLogRepository
	Receipts      port.ReceiptStorage
	Evaluator     *policy.Evaluator
	Locker        port.ScopeLocker
	TxManager     port.TransactionManager
	Dispatcher    dispatcher.Dispatcher
	Clock         port.Clock
}

type expenseServiceImpl struct {
	expenses   port.ExpenseRepository
	categories port.CategoryRepository
	stores     port.StoreRepository
	orgs       port.OrganizationRepository
	receipts   port.ReceiptStorage
	evaluator  *policy.Evaluator
	locker     port.ScopeLocker
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	clock      port.Clock
	audit      auditWriter
	logger     Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(deps ExpenseDeps, logger Logger) ExpenseService {
	clock := clockOrSystem(deps.Clock)
	return &expenseServiceImpl{
		expenses:   deps.Expenses,
		categories: deps.Categories,
		stores:     deps.Stores,
		orgs:       deps.Organizations,
		receipts:   deps.Receipts,
		evaluator:  deps.Evaluator,
		locker:     deps.Locker,
		txManager:  deps.TxManager,
		dispatcher: deps.Dispatcher,
		clock:      clock,
		audit:      auditWriter{repo: deps.AuditLogs, clock: clock},
		logger:     logger,
	}
}

var expenseDateLayouts = []string{"2006-01-02", time.RFC3339}

// Submit validates the request, evaluates it against policies and budgets and
// records an admitted expense as PENDING. A rejected expense is never
// persisted and its receipt is removed.
func (s *expenseServiceImpl) Submit(ctx context.Context, p authz.Principal, req SubmitExpenseRequest) (*entity.Expense, error) {
	if err := authz.Authorize(p, authz.SubmitExpense); err != nil {
		return nil, err
	}

	expense, err := s.buildExpense(ctx, p, req)
	if err != nil {
		return nil, err
	}

	if req.Receipt != nil && len(req.Receipt.Content) > 0 {
		info, err := s.receipts.Save(ctx, p.OrganizationID(), req.Receipt.Filename, req.Receipt.Content)
		if err != nil {
			if errors.Is(err, port.ErrInvalidReceipt) {
				return nil, invalid("receipt", "%v", err)
			}
			s.logger.Error("Failed to store receipt", "error", err, "organization_id", p.OrganizationID())
			return nil, fmt.Errorf("store receipt: %w", err)
		}
		expense.ReceiptURL = info.URL
	}

	if err := s.admitAndCreate(ctx, p, expense); err != nil {
		if expense.ReceiptURL != "" {
			if delErr := s.receipts.Delete(ctx, expense.ReceiptURL); delErr != nil {
				s.logger.Error("Failed to remove receipt of unsaved expense", "error", delErr, "url", expense.ReceiptURL)
			}
		}

		var rejection *policy.RejectionError
		if errors.As(err, &rejection) {
			s.logger.Info("Expense rejected by policy",
				"organization_id", p.OrganizationID(),
				"user_id", p.UserID(),
				"code", rejection.Code,
				"amount", expense.Amount.String())
			return nil, err
		}

		s.logger.Error("Failed to submit expense", "error", err, "organization_id", p.OrganizationID())
		return nil, err
	}

	s.logger.Info("Expense submitted", "id", expense.ID, "organization_id", expense.OrganizationID, "amount", expense.Amount.String())
	s.publish(ctx, event.TypeExpenseSubmitted, p, expense, nil)
	return expense, nil
}

// admitAndCreate runs evaluate-then-insert under the spend scope lock and
// inside a single transaction.
func (s *expenseServiceImpl) admitAndCreate(ctx context.Context, p authz.Principal, expense *entity.Expense) error {
	categoryID := ""
	if expense.CategoryID != nil {
		categoryID = *expense.CategoryID
	}

	if categoryID != "" {
		unlock, err := s.locker.Lock(ctx, s.evaluator.ScopeKey(expense.OrganizationID, categoryID))
		if err != nil {
			return fmt.Errorf("lock spend scope: %w", err)
		}
		defer unlock()
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		decision, err := s.evaluator.Evaluate(txCtx, policy.Candidate{
			OrganizationID: expense.OrganizationID,
			CategoryID:     categoryID,
			SubmitterRole:  p.Role(),
			Amount:         expense.Amount,
		})
		if err != nil {
			return fmt.Errorf("evaluate expense: %w", err)
		}
		if err := decision.Err(); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		expense.CreatedAt = now
		expense.UpdatedAt = now
		if err := s.expenses.Create(txCtx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}

		return s.audit.record(txCtx, expense.OrganizationID, p.UserID(), entity.AuditActionSubmitExpense, expense.ID, map[string]string{
			"amount": expense.Amount.String(),
			"title":  expense.Title,
		})
	})
}

func (s *expenseServiceImpl) buildExpense(ctx context.Context, p authz.Principal, req SubmitExpenseRequest) (*entity.Expense, error) {
	title := utils.SanitizeString(req.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}

	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		return nil, invalid("amount", "%v", err)
	}

	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	orgID := p.OrganizationID()
	categoryID, err := lookupInTenant(ctx, "category", req.CategoryID, func(ctx context.Context, id string) (*entity.Category, error) {
		return s.categories.GetByID(ctx, orgID, id)
	})
	if err != nil {
		return nil, err
	}
	storeID, err := lookupInTenant(ctx, "store", req.StoreID, func(ctx context.Context, id string) (*entity.Store, error) {
		return s.stores.GetByID(ctx, orgID, id)
	})
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		org, err := s.orgs.GetByID(ctx, orgID)
		if err != nil {
			return nil, fmt.Errorf("load organization: %w", err)
		}
		currency = org.DefaultCurrency
	}
	if err := utils.ValidateCurrency(currency); err != nil {
		return nil, invalid("currency", "%v", err)
	}

	return &entity.Expense{
		ID:             entity.NewID(),
		OrganizationID: orgID,
		UserID:         p.UserID(),
		CategoryID:     categoryID,
		StoreID:        storeID,
		Title:          title,
		Amount:         amount,
		Currency:       currency,
		Date:           date,
		Notes:          utils.SanitizeString(req.Notes),
		Status:         entity.ExpenseStatusPending,
	}, nil
}

func (s *expenseServiceImpl) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.clock.Now().UTC(), nil
	}
	for _, layout := range expenseDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalid("date", "expected YYYY-MM-DD, got %q", raw)
}

func (s *expenseServiceImpl) Approve(ctx context.Context, p authz.Principal, expenseID string) (*entity.Expense, error) {
	return s.transition(ctx, p, transitionSpec{
		capability: authz.ApproveExpense,
		trigger:    workflow.TriggerApprove,
		action:     entity.AuditActionApproveExpense,
		eventType:  event.TypeExpenseApproved,
		apply: func(e *entity.Expense, at time.Time) {
			e.MarkApproved(p.UserID(), at)
		},
	}, expenseID)
}

func (s *expenseServiceImpl) Reject(ctx context.Context, p authz.Principal, expenseID, reason string) (*entity.Expense, error) {
	if err := authz.Authorize(p, authz.ApproveExpense); err != nil {
		return nil, err
	}
	reason = utils.SanitizeString(reason)
	if reason == "" {
		return nil, invalid("reason", "is required")
	}

	return s.transition(ctx, p, transitionSpec{
		capability: authz.ApproveExpense,
		trigger:    workflow.TriggerReject,
		action:     entity.AuditActionRejectExpense,
		eventType:  event.TypeExpenseRejected,
		metadata:   map[string]string{"reason": reason},
		apply: func(e *entity.Expense, at time.Time) {
			e.MarkRejected(reason, at)
		},
	}, expenseID)
}

func (s *expenseServiceImpl) Reimburse(ctx context.Context, p authz.Principal, expenseID string) (*entity.Expense, error) {
	return s.transition(ctx, p, transitionSpec{
		capability: authz.ReimburseExpense,
		trigger:    workflow.TriggerReimburse,
		action:     entity.AuditActionReimburseExpense,
		eventType:  event.TypeExpenseReimbursed,
		apply: func(e *entity.Expense, at time.Time) {
			e.MarkReimbursed(at)
		},
	}, expenseID)
}

type transitionSpec struct {
	capability authz.Capability
	trigger    workflow.Trigger
	action     string
	eventType  event.Type
	metadata   map[string]string
	apply      func(e *entity.Expense, at time.Time)
}

// transition moves an expense through the lifecycle and writes the audit
// record in the same transaction.
func (s *expenseServiceImpl) transition(ctx context.Context, p authz.Principal, tr transitionSpec, expenseID string) (*entity.Expense, error) {
	if err := authz.Authorize(p, tr.capability); err != nil {
		return nil, err
	}

	var expense *entity.Expense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		expense, err = s.expenses.GetByID(txCtx, p.OrganizationID(), expenseID)
		if err != nil {
			return err
		}

		machine, err := workflow.ForExpense(expense.Status)
		if err != nil {
			return err
		}
		if err := machine.Fire(txCtx, tr.trigger); err != nil {
			return err
		}

		tr.apply(expense, s.clock.Now().UTC())
		if expense.Status != machine.State().Status() {
			return fmt.Errorf("%w: expense moved to %s, lifecycle expects %s", workflow.ErrInvalidState, expense.Status, machine.State())
		}

		if err := s.expenses.Update(txCtx, expense); err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		return s.audit.record(txCtx, expense.OrganizationID, p.UserID(), tr.action, expense.ID, tr.metadata)
	})
	if err != nil {
		if !errors.Is(err, port.ErrNotFound) && !errors.Is(err, workflow.ErrInvalidTransition) {
			s.logger.Error("Failed to change expense status", "error", err, "id", expenseID, "trigger", tr.trigger)
		}
		return nil, err
	}

	s.logger.Info("Expense status changed", "id", expense.ID, "status", expense.Status, "actor_id", p.UserID())
	s.publish(ctx, tr.eventType, p, expense, tr.metadata)
	return expense, nil
}

func (s *expenseServiceImpl) publish(ctx context.Context, eventType event.Type, p authz.Principal, e *entity.Expense, extra map[string]string) {
	if s.dispatcher == nil {
		return
	}
	payload := map[string]interface{}{
		event.KeyTitle:    e.Title,
		event.KeyAmount:   e.Amount.String(),
		event.KeyCurrency: e.Currency,
		event.KeyStatus:   string(e.Status),
		event.KeyOwnerID:  e.UserID,
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(eventType, e.OrganizationID, e.ID, p.UserID(), payload))
}

// Get returns an expense visible to the caller: their own, or any expense of
// the organization for members who can see or act on team expenses.
func (s *expenseServiceImpl) Get(ctx context.Context, p authz.Principal, expenseID string) (*entity.Expense, error) {
	if err := authz.Authorize(p, authz.ViewOwnExpenses); err != nil {
		return nil, err
	}

	expense, err := s.expenses.GetByID(ctx, p.OrganizationID(), expenseID)
	if err != nil {
		return nil, err
	}

	if expense.UserID != p.UserID() &&
		!p.Allows(authz.ViewAllExpenses) &&
		!p.Allows(authz.ApproveExpense) &&
		!p.Allows(authz.ReimburseExpense) {
		return nil, fmt.Errorf("%w: expense belongs to another member", authz.ErrDenied)
	}
	return expense, nil
}

// List returns the caller's expenses, or the organization's when the caller
// may view team expenses.
func (s *expenseServiceImpl) List(ctx context.Context, p authz.Principal, req ListExpensesRequest) ([]*entity.Expense, error) {
	if err := authz.Authorize(p, authz.ViewOwnExpenses); err != nil {
		return nil, err
	}

	filter := port.ExpenseFilter{
		OrganizationID: p.OrganizationID(),
		CategoryID:     strings.TrimSpace(req.CategoryID),
		Search:         strings.TrimSpace(req.Search),
		Limit:          req.Limit,
	}
	if req.Status != "" {
		status := entity.ExpenseStatus(strings.ToUpper(req.Status))
		if !status.IsValid() {
			return nil, invalid("status", "unknown status %q", req.Status)
		}
		filter.Status = status
	}
	if !p.Allows(authz.ViewAllExpenses) {
		filter.UserID = p.UserID()
	}

	return s.expenses.List(ctx, filter)
}

// ListPending returns the approval queue
func (s *expenseServiceImpl) ListPending(ctx context.Context, p authz.Principal, search string) ([]*entity.Expense, error) {
	return s.listByStatus(ctx, p, authz.ApproveExpense, entity.ExpenseStatusPending, search)
}

// ListApproved returns the expenses awaiting reimbursement
func (s *expenseServiceImpl) ListApproved(ctx context.Context, p authz.Principal, search string) ([]*entity.Expense, error) {
	return s.listByStatus(ctx, p, authz.ReimburseExpense, entity.ExpenseStatusApproved, search)
}

func (s *expenseServiceImpl) listByStatus(ctx context.Context, p authz.Principal, c authz.Capability, status entity.ExpenseStatus, search string) ([]*entity.Expense, error) {
	if err := authz.Authorize(p, c); err != nil {
		return nil, err
	}
	return s.expenses.List(ctx, port.ExpenseFilter{
		OrganizationID: p.OrganizationID(),
		Status:         status,
		Search:         strings.TrimSpace(search),
	})
}

// Limits returns the per-expense cap and the current month's budget position
// of every category
func (s *expenseServiceImpl) Limits(ctx context.Context, p authz.Principal) (*policy.Limits, error) {
	if err := authz.Authorize(p, authz.SubmitExpense); err != nil {
		return nil, err
	}

	categories, err := s.categories.List(ctx, p.OrganizationID(), "")
	if err != nil {
		return nil, err
	}
	return s.evaluator.Limits(ctx, p.OrganizationID(), p.Role(), categories)
}
