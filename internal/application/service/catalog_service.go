package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/pkg/utils"
)

// CatalogService manages categories, policies, budgets and stores
type CatalogService interface {
	// SubmissionOptions returns the categories and stores any member can pick
	SubmissionOptions(ctx context.Context, p authz.Principal) (*SubmissionOptions, error)

	ListCategories(ctx context.Context, p authz.Principal, search string) ([]*entity.Category, error)
	CreateCategory(ctx context.Context, p authz.Principal, name string) (*entity.Category, error)
	DeleteCategory(ctx context.Context, p authz.Principal, id string) error

	ListPolicies(ctx context.Context, p authz.Principal) ([]*entity.Policy, error)
	CreatePolicy(ctx context.Context, p authz.Principal, req CreatePolicyRequest) (*entity.Policy, error)
	DeletePolicy(ctx context.Context, p authz.Principal, id string) error

	ListBudgets(ctx context.Context, p authz.Principal) ([]*entity.Budget, error)
	CreateBudget(ctx context.Context, p authz.Principal, req CreateBudgetRequest) (*entity.Budget, error)
	DeleteBudget(ctx context.Context, p authz.Principal, id string) error

	ListStores(ctx context.Context, p authz.Principal, search string) ([]*entity.Store, error)
	CreateStore(ctx context.Context, p authz.Principal, req CreateStoreRequest) (*entity.Store, error)
	DeleteStore(ctx context.Context, p authz.Principal, id string) error
}

// SubmissionOptions feeds the expense form
type SubmissionOptions struct {
	Categories []*entity.Category `json:"categories"`
	Stores     []*entity.Store    `json:"stores"`
}

// CreatePolicyRequest describes a new policy. Amounts are decimal strings;
// empty means unset.
type CreatePolicyRequest struct {
	Name          string `json:"name"`
	CategoryID    string `json:"category_id"`
	MaxAmount     string `json:"max_amount"`
	PerExpense    bool   `json:"per_expense"`
	MonthlyLimit  string `json:"monthly_limit"`
	AppliesToRole string `json:"applies_to_role"`
}

// CreateBudgetRequest describes a new category budget
type CreateBudgetRequest struct {
	Name       string `json:"name"`
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Period     string `json:"period"`
}

// CreateStoreRequest describes a new store
type CreateStoreRequest struct {
	Name              string `json:"name"`
	Address           string `json:"address"`
	Type              string `json:"type"`
	NumberOfEmployees *int   `json:"number_of_employees"`
}

type catalogServiceImpl struct {
	categories port.CategoryRepository
	policies   port.PolicyRepository
	budgets    port.BudgetRepository
	stores     port.StoreRepository
	clock      port.Clock
	logger     Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(
	categories port.CategoryRepository,
	policies port.PolicyRepository,
	budgets port.BudgetRepository,
	stores port.StoreRepository,
	clock port.Clock,
	logger Logger,
) CatalogService {
	return &catalogServiceImpl{
		categories: categories,
		policies:   policies,
		budgets:    budgets,
		stores:     stores,
		clock:      clockOrSystem(clock),
		logger:     logger,
	}
}

func (s *catalogServiceImpl) SubmissionOptions(ctx context.Context, p authz.Principal) (*SubmissionOptions, error) {
	if err := authz.Authorize(p, authz.SubmitExpense); err != nil {
		return nil, err
	}

	categories, err := s.categories.List(ctx, p.OrganizationID(), "")
	if err != nil {
		return nil, err
	}
	stores, err := s.stores.List(ctx, p.OrganizationID(), "")
	if err != nil {
		return nil, err
	}
	return &SubmissionOptions{Categories: categories, Stores: stores}, nil
}

func (s *catalogServiceImpl) ListCategories(ctx context.Context, p authz.Principal, search string) ([]*entity.Category, error) {
	if err := authz.Authorize(p, authz.ViewPolicies); err != nil {
		return nil, err
	}
	return s.categories.List(ctx, p.OrganizationID(), strings.TrimSpace(search))
}

func (s *catalogServiceImpl) CreateCategory(ctx context.Context, p authz.Principal, name string) (*entity.Category, error) {
	if err := authz.Authorize(p, authz.EditPolicies); err != nil {
		return nil, err
	}

	name = utils.SanitizeString(name)
	if name == "" {
		return nil, invalid("name", "is required")
	}

	category := &entity.Category{
		ID:             entity.NewID(),
		OrganizationID: p.OrganizationID(),
		Name:           name,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info("Category created", "id", category.ID, "name", name, "organization_id", category.OrganizationID)
	return category, nil
}

// DeleteCategory removes a category together with its policies and budgets;
// its expenses become uncategorized.
func (s *catalogServiceImpl) DeleteCategory(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.Authorize(p, authz.EditPolicies); err != nil {
		return err
	}
	return s.categories.Delete(ctx, p.OrganizationID(), id)
}

func (s *catalogServiceImpl) ListPolicies(ctx context.Context, p authz.Principal) ([]*entity.Policy, error) {
	if err := authz.Authorize(p, authz.ViewPolicies); err != nil {
		return nil, err
	}
	return s.policies.ListByOrganization(ctx, p.OrganizationID())
}

func (s *catalogServiceImpl) CreatePolicy(ctx context.Context, p authz.Principal, req CreatePolicyRequest) (*entity.Policy, error) {
	if err := authz.Authorize(p, authz.EditPolicies); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	policy := &entity.Policy{
		ID:             entity.NewID(),
		OrganizationID: p.OrganizationID(),
		Name:           utils.SanitizeString(req.Name),
		PerExpense:     req.PerExpense,
		CreatedAt:      now,
	}
	if policy.Name == "" {
		policy.Name = fmt.Sprintf("Policy for %s", now.Format("2006-01-02"))
	}

	var err error
	if policy.MaxAmount, err = optionalAmount("max_amount", req.MaxAmount); err != nil {
		return nil, err
	}
	if policy.MonthlyLimit, err = optionalAmount("monthly_limit", req.MonthlyLimit); err != nil {
		return nil, err
	}
	if policy.MaxAmount == nil && policy.MonthlyLimit == nil {
		return nil, invalid("max_amount", "a maximum amount or a monthly limit is required")
	}

	if role := strings.ToUpper(strings.TrimSpace(req.AppliesToRole)); role != "" {
		r := entity.Role(role)
		if !r.IsValid() {
			return nil, invalid("applies_to_role", "unknown role %q", req.AppliesToRole)
		}
		policy.AppliesToRole = &r
	}

	orgID := p.OrganizationID()
	if policy.CategoryID, err = lookupInTenant(ctx, "category", req.CategoryID, func(ctx context.Context, id string) (*entity.Category, error) {
		return s.categories.GetByID(ctx, orgID, id)
	}); err != nil {
		return nil, err
	}

	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, err
	}

	s.logger.Info("Policy created", "id", policy.ID, "name", policy.Name, "organization_id", orgID)
	return policy, nil
}

func (s *catalogServiceImpl) DeletePolicy(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.Authorize(p, authz.EditPolicies); err != nil {
		return err
	}
	return s.policies.Delete(ctx, p.OrganizationID(), id)
}

func (s *catalogServiceImpl) ListBudgets(ctx context.Context, p authz.Principal) ([]*entity.Budget, error) {
	if err := authz.Authorize(p, authz.ViewPolicies); err != nil {
		return nil, err
	}
	return s.budgets.List(ctx, p.OrganizationID())
}

func (s *catalogServiceImpl) CreateBudget(ctx context.Context, p authz.Principal, req CreateBudgetRequest) (*entity.Budget, error) {
	if err := authz.Authorize(p, authz.EditPolicies); err != nil {
		return nil, err
	}

	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		return nil, invalid("amount", "%v", err)
	}

	period := strings.TrimSpace(req.Period)
	switch period {
	case "":
		period = entity.BudgetPeriodMonthly
	case entity.BudgetPeriodMonthly, entity.BudgetPeriodQuarterly, entity.BudgetPeriodYearly:
	default:
		return nil, invalid("period", "unknown period %q", req.Period)
	}

	if strings.TrimSpace(req.CategoryID) == "" {
		return nil, invalid("category", "is required")
	}
	orgID := p.OrganizationID()
	category, err := s.categories.GetByID(ctx, orgID, strings.TrimSpace(req.CategoryID))
	if errors.Is(err, port.ErrNotFound) {
		return nil, invalid("category", "unknown category")
	}
	if err != nil {
		return nil, err
	}

	budget := &entity.Budget{
		ID:             entity.NewID(),
		OrganizationID: orgID,
		CategoryID:     &category.ID,
		Name:           utils.SanitizeString(req.Name),
		Amount:         amount,
		Period:         period,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if budget.Name == "" {
		budget.Name = category.Name + " budget"
	}

	if err := s.budgets.Create(ctx, budget); err != nil {
		return nil, err
	}

	s.logger.Info("Budget created", "id", budget.ID, "category_id", category.ID, "amount", amount.String())
	return budget, nil
}

func (s *catalogServiceImpl) DeleteBudget(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.Authorize(p, authz.EditPolicies); err != nil {
		return err
	}
	return s.budgets.Delete(ctx, p.OrganizationID(), id)
}

func (s *catalogServiceImpl) ListStores(ctx context.Context, p authz.Principal, search string) ([]*entity.Store, error) {
	if err := authz.Authorize(p, authz.ViewStores); err != nil {
		return nil, err
	}
	return s.stores.List(ctx, p.OrganizationID(), strings.TrimSpace(search))
}

func (s *catalogServiceImpl) CreateStore(ctx context.Context, p authz.Principal, req CreateStoreRequest) (*entity.Store, error) {
	if err := authz.Authorize(p, authz.EditStores); err != nil {
		return nil, err
	}

	name := utils.SanitizeString(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if req.NumberOfEmployees != nil && *req.NumberOfEmployees < 0 {
		return nil, invalid("number_of_employees", "must not be negative")
	}

	store := &entity.Store{
		ID:                entity.NewID(),
		OrganizationID:    p.OrganizationID(),
		Name:              name,
		Address:           utils.SanitizeString(req.Address),
		Type:              utils.SanitizeString(req.Type),
		NumberOfEmployees: req.NumberOfEmployees,
		CreatedAt:         s.clock.Now().UTC(),
	}
	if err := s.stores.Create(ctx, store); err != nil {
		return nil, err
	}

	s.logger.Info("Store created", "id", store.ID, "name", name)
	return store, nil
}

func (s *catalogServiceImpl) DeleteStore(ctx context.Context, p authz.Principal, id string) error {
	if err := authz.Authorize(p, authz.EditStores); err != nil {
		return err
	}
	return s.stores.Delete(ctx, p.OrganizationID(), id)
}

func optionalAmount(field, raw string) (*decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	amount, err := utils.ParseAmount(raw)
	if err != nil {
		return nil, invalid(field, "%v", err)
	}
	return &amount, nil
}
