package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-manager/internal/application/dispatcher"
	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/internal/domain/event"
)

const testOrgID = "org-1"

var testNow = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockLocker struct {
	mu   sync.Mutex
	keys []string
}

func (m *mockLocker) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return func() {}, nil
}

type mockDispatcher struct {
	dispatcher.Dispatcher
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// Mock repositories

type mockExpenseRepo struct {
	createFunc        func(ctx context.Context, e *entity.Expense) error
	getByIDFunc       func(ctx context.Context, orgID, id string) (*entity.Expense, error)
	updateFunc        func(ctx context.Context, e *entity.Expense) error
	listFunc          func(ctx context.Context, f port.ExpenseFilter) ([]*entity.Expense, error)
	sumFunc           func(ctx context.Context, q port.SpendQuery) (decimal.Decimal, error)
	countByStatusFunc func(ctx context.Context, orgID, userID string) (map[entity.ExpenseStatus]int64, error)

	mu      sync.Mutex
	created []*entity.Expense
	updated []*entity.Expense
	filters []port.ExpenseFilter
}

func (m *mockExpenseRepo) Create(ctx context.Context, e *entity.Expense) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, e)
	}
	m.created = append(m.created, e)
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, orgID, id string) (*entity.Expense, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, orgID, id)
	}
	return nil, port.ErrNotFound
}

func (m *mockExpenseRepo) Update(ctx context.Context, e *entity.Expense) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, e)
	}
	m.updated = append(m.updated, e)
	return nil
}

func (m *mockExpenseRepo) Delete(ctx context.Context, orgID, id string) error {
	return nil
}

func (m *mockExpenseRepo) List(ctx context.Context, f port.ExpenseFilter) ([]*entity.Expense, error) {
	m.mu.Lock()
	m.filters = append(m.filters, f)
	m.mu.Unlock()
	if m.listFunc != nil {
		return m.listFunc(ctx, f)
	}
	return []*entity.Expense{}, nil
}

func (m *mockExpenseRepo) SumAmounts(ctx context.Context, q port.SpendQuery) (decimal.Decimal, error) {
	if m.sumFunc != nil {
		return m.sumFunc(ctx, q)
	}
	return decimal.Zero, nil
}

func (m *mockExpenseRepo) CountByStatus(ctx context.Context, orgID, userID string) (map[entity.ExpenseStatus]int64, error) {
	if m.countByStatusFunc != nil {
		return m.countByStatusFunc(ctx, orgID, userID)
	}
	return map[entity.ExpenseStatus]int64{}, nil
}

type mockCategoryRepo struct {
	categories map[string]*entity.Category
	created    []*entity.Category
	createErr  error
}

func (m *mockCategoryRepo) Create(ctx context.Context, c *entity.Category) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, c)
	return nil
}

func (m *mockCategoryRepo) GetByID(ctx context.Context, orgID, id string) (*entity.Category, error) {
	if c, ok := m.categories[id]; ok && c.OrganizationID == orgID {
		return c, nil
	}
	return nil, port.ErrNotFound
}

func (m *mockCategoryRepo) List(ctx context.Context, orgID, search string) ([]*entity.Category, error) {
	var out []*entity.Category
	for _, c := range m.categories {
		if c.OrganizationID == orgID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCategoryRepo) Delete(ctx context.Context, orgID, id string) error {
	if _, err := m.GetByID(ctx, orgID, id); err != nil {
		return err
	}
	delete(m.categories, id)
	return nil
}

type mockStoreRepo struct {
	stores  map[string]*entity.Store
	created []*entity.Store
}

func (m *mockStoreRepo) Create(ctx context.Context, s *entity.Store) error {
	m.created = append(m.created, s)
	return nil
}

func (m *mockStoreRepo) GetByID(ctx context.Context, orgID, id string) (*entity.Store, error) {
	if s, ok := m.stores[id]; ok && s.OrganizationID == orgID {
		return s, nil
	}
	return nil, port.ErrNotFound
}

func (m *mockStoreRepo) List(ctx context.Context, orgID, search string) ([]*entity.Store, error) {
	var out []*entity.Store
	for _, s := range m.stores {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockStoreRepo) Delete(ctx context.Context, orgID, id string) error {
	return nil
}

type mockPolicyRepo struct {
	policies []*entity.Policy
	listErr  error
	listed   int
}

func (m *mockPolicyRepo) Create(ctx context.Context, p *entity.Policy) error {
	m.policies = append(m.policies, p)
	return nil
}

func (m *mockPolicyRepo) ListByOrganization(ctx context.Context, orgID string) ([]*entity.Policy, error) {
	m.listed++
	return m.policies, m.listErr
}

func (m *mockPolicyRepo) Delete(ctx context.Context, orgID, id string) error {
	return nil
}

type mockBudgetRepo struct {
	budgets []*entity.Budget
}

func (m *mockBudgetRepo) Create(ctx context.Context, b *entity.Budget) error {
	m.budgets = append(m.budgets, b)
	return nil
}

func (m *mockBudgetRepo) FindByCategory(ctx context.Context, orgID, categoryID string) (*entity.Budget, error) {
	for _, b := range m.budgets {
		if b.CategoryID != nil && *b.CategoryID == categoryID {
			return b, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockBudgetRepo) List(ctx context.Context, orgID string) ([]*entity.Budget, error) {
	return m.budgets, nil
}

func (m *mockBudgetRepo) Delete(ctx context.Context, orgID, id string) error {
	return nil
}

type mockOrgRepo struct {
	org       *entity.Organization
	updated   *entity.Organization
	updateErr error
}

func (m *mockOrgRepo) Create(ctx context.Context, org *entity.Organization) error {
	m.org = org
	return nil
}

func (m *mockOrgRepo) GetByID(ctx context.Context, id string) (*entity.Organization, error) {
	if m.org == nil || m.org.ID != id {
		return nil, port.ErrNotFound
	}
	cp := *m.org
	return &cp, nil
}

func (m *mockOrgRepo) GetBySlug(ctx context.Context, slug string) (*entity.Organization, error) {
	if m.org == nil || m.org.Slug != slug {
		return nil, port.ErrNotFound
	}
	return m.org, nil
}

func (m *mockOrgRepo) Update(ctx context.Context, org *entity.Organization) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = org
	return nil
}

type mockUserRepo struct {
	users     []*entity.User
	createErr error
	updated   []*entity.User
}

func (m *mockUserRepo) Create(ctx context.Context, u *entity.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.users = append(m.users, u)
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, orgID, id string) (*entity.User, error) {
	for _, u := range m.users {
		if u.ID == id && u.OrganizationID == orgID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockUserRepo) ListByOrganization(ctx context.Context, orgID string) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range m.users {
		if u.OrganizationID == orgID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) Update(ctx context.Context, u *entity.User) error {
	m.updated = append(m.updated, u)
	return nil
}

type mockNotificationRepo struct {
	created  []*entity.Notification
	marked   []string
	unread   int64
	batchErr error
}

func (m *mockNotificationRepo) CreateBatch(ctx context.Context, n []*entity.Notification) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	m.created = append(m.created, n...)
	return nil
}

func (m *mockNotificationRepo) ListByRecipient(ctx context.Context, orgID, recipientID string, limit int) ([]*entity.Notification, error) {
	var out []*entity.Notification
	for _, n := range m.created {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, orgID, recipientID, id string) error {
	for _, n := range m.created {
		if n.ID == id && n.RecipientID == recipientID {
			m.marked = append(m.marked, id)
			return nil
		}
	}
	return port.ErrNotFound
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, orgID, recipientID string) (int64, error) {
	return m.unread, nil
}

type mockAuditRepo struct {
	logs []*entity.AuditLog
}

func (m *mockAuditRepo) Create(ctx context.Context, log *entity.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAuditRepo) ListByOrganization(ctx context.Context, orgID string, limit int) ([]*entity.AuditLog, error) {
	return m.logs, nil
}

func (m *mockAuditRepo) actions() []string {
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

type mockReceiptStorage struct {
	saveErr error
	saved   []string
	deleted []string
}

func (m *mockReceiptStorage) Save(ctx context.Context, orgID, filename string, content []byte) (*port.ReceiptInfo, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	url := "/uploads/" + orgID + "/" + filename
	m.saved = append(m.saved, url)
	return &port.ReceiptInfo{URL: url, MimeType: "image/png", Size: int64(len(content))}, nil
}

func (m *mockReceiptStorage) Delete(ctx context.Context, url string) error {
	m.deleted = append(m.deleted, url)
	return nil
}

type mockHasher struct{}

func (mockHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (mockHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return ErrInvalidCredentials
	}
	return nil
}

// Principals

func principal(role entity.Role, perms entity.Permissions) authz.Principal {
	return authz.NewPrincipal("user-"+string(role), testOrgID, role, perms)
}

var (
	employee   = principal(entity.RoleEmployee, entity.Permissions{})
	manager    = principal(entity.RoleManager, entity.Permissions{})
	accountant = principal(entity.RoleAccountant, entity.Permissions{})
	admin      = principal(entity.RoleAdmin, entity.Permissions{})
)
