package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/config"
	"github.com/garyjia/expense-manager/internal/container"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/pkg/utils"
)

const (
	demoSlug     = "demo-org"
	demoPassword = "demo123"
	demoStore    = "Head Office"
)

var demoCategories = []string{
	"Travel", "Meals", "Lodging", "Fuel", "Supplies", "Utilities",
	"Rent", "Maintenance", "IT", "Training", "Marketing",
}

var demoUsers = []struct {
	email string
	name  string
	role  entity.Role
	perms entity.Permissions
}{
	{"admin@demo.local", "Demo Admin", entity.RoleAdmin, entity.Permissions{}},
	{"manager@demo.local", "Demo Manager", entity.RoleManager, entity.Permissions{
		CanViewTeamPage:     true,
		CanViewApprovalPage: true,
	}},
	{"accountant@demo.local", "Demo Accountant", entity.RoleAccountant, entity.Permissions{
		CanViewReports: true,
	}},
	{"employee@demo.local", "Demo Employee", entity.RoleEmployee, entity.Permissions{}},
}

// per-expense caps and monthly budgets, by category name
var demoLimits = map[string]struct{ perExpense, budget string }{
	"Travel":   {"5000", "50000"},
	"Meals":    {"1500", "20000"},
	"Lodging":  {"8000", "60000"},
	"Supplies": {"", "10000"},
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     "console",
		Service:    "seed",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app, err := container.NewContainer(cfg.ToContainerConfig("seed"), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer app.Close()

	s := &seeder{
		repos:  app.Repositories(),
		hasher: app.Hasher(),
		logger: logger,
		now:    time.Now().UTC(),
	}
	if err := app.DB().WithTransaction(ctx, s.run); err != nil {
		logger.Error("Seeding failed", zap.Error(err))
		app.Close()
		os.Exit(1)
	}
	logger.Info("Demo data ready", zap.String("organization", demoSlug), zap.String("password", demoPassword))
}

type seeder struct {
	repos  *container.RepositoryBundle
	hasher port.PasswordHasher
	logger *zap.Logger
	now    time.Time
}

func (s *seeder) run(ctx context.Context) error {
	org, err := s.organization(ctx)
	if err != nil {
		return err
	}

	categories, err := s.categories(ctx, org.ID)
	if err != nil {
		return err
	}

	if err := s.store(ctx, org.ID); err != nil {
		return err
	}
	if err := s.users(ctx, org.ID); err != nil {
		return err
	}
	return s.limits(ctx, org.ID, categories)
}

func (s *seeder) organization(ctx context.Context) (*entity.Organization, error) {
	org, err := s.repos.Organization.GetBySlug(ctx, demoSlug)
	if err == nil {
		s.logger.Info("Organization exists", zap.String("id", org.ID))
		return org, nil
	}
	if !errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("load organization: %w", err)
	}

	org = &entity.Organization{
		ID:           entity.NewID(),
		Name:         "Demo Organization",
		Slug:         demoSlug,
		ContactEmail: "admin@demo.local",
		CreatedAt:    s.now,
		UpdatedAt:    s.now,
	}
	org.ApplyDefaults()
	if err := s.repos.Organization.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	s.logger.Info("Organization created", zap.String("id", org.ID))
	return org, nil
}

// categories returns every demo category keyed by name, creating the missing ones
func (s *seeder) categories(ctx context.Context, orgID string) (map[string]*entity.Category, error) {
	existing, err := s.repos.Category.List(ctx, orgID, "")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	byName := make(map[string]*entity.Category, len(existing))
	for _, c := range existing {
		byName[strings.ToLower(c.Name)] = c
	}

	out := make(map[string]*entity.Category, len(demoCategories))
	for _, name := range demoCategories {
		if c, ok := byName[strings.ToLower(name)]; ok {
			out[name] = c
			continue
		}
		c := &entity.Category{ID: entity.NewID(), OrganizationID: orgID, Name: name, CreatedAt: s.now}
		if err := s.repos.Category.Create(ctx, c); err != nil {
			return nil, fmt.Errorf("create category %s: %w", name, err)
		}
		out[name] = c
	}
	s.logger.Info("Categories ready", zap.Int("count", len(out)))
	return out, nil
}

func (s *seeder) store(ctx context.Context, orgID string) error {
	stores, err := s.repos.Store.List(ctx, orgID, demoStore)
	if err != nil {
		return fmt.Errorf("list stores: %w", err)
	}
	if len(stores) > 0 {
		return nil
	}

	employees := 12
	return s.repos.Store.Create(ctx, &entity.Store{
		ID:                entity.NewID(),
		OrganizationID:    orgID,
		Name:              demoStore,
		Address:           "1 Demo Street",
		Type:              "Office",
		NumberOfEmployees: &employees,
		CreatedAt:         s.now,
	})
}

func (s *seeder) users(ctx context.Context, orgID string) error {
	hash, err := s.hasher.Hash(demoPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	for _, u := range demoUsers {
		_, err := s.repos.User.GetByEmail(ctx, u.email)
		if err == nil {
			continue
		}
		if !errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("load user %s: %w", u.email, err)
		}

		if err := s.repos.User.Create(ctx, &entity.User{
			ID:             entity.NewID(),
			OrganizationID: orgID,
			Email:          u.email,
			Name:           u.name,
			Role:           u.role,
			PasswordHash:   hash,
			Permissions:    u.perms,
			CreatedAt:      s.now,
			UpdatedAt:      s.now,
		}); err != nil {
			return fmt.Errorf("create user %s: %w", u.email, err)
		}
		s.logger.Info("User created", zap.String("email", u.email), zap.String("role", string(u.role)))
	}
	return nil
}

// limits adds the demo policies once and any missing budgets
func (s *seeder) limits(ctx context.Context, orgID string, categories map[string]*entity.Category) error {
	policies, err := s.repos.Policy.ListByOrganization(ctx, orgID)
	if err != nil {
		return fmt.Errorf("list policies: %w", err)
	}
	seedPolicies := len(policies) == 0

	for _, name := range demoCategories {
		limit, ok := demoLimits[name]
		if !ok {
			continue
		}
		categoryID := categories[name].ID

		if seedPolicies && limit.perExpense != "" {
			maxAmount := decimal.RequireFromString(limit.perExpense)
			if err := s.repos.Policy.Create(ctx, &entity.Policy{
				ID:             entity.NewID(),
				OrganizationID: orgID,
				CategoryID:     &categoryID,
				Name:           name + " per-expense cap",
				MaxAmount:      &maxAmount,
				PerExpense:     true,
				CreatedAt:      s.now,
			}); err != nil {
				return fmt.Errorf("create policy for %s: %w", name, err)
			}
		}

		_, err := s.repos.Budget.FindByCategory(ctx, orgID, categoryID)
		if err == nil {
			continue
		}
		if !errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("load budget for %s: %w", name, err)
		}
		if err := s.repos.Budget.Create(ctx, &entity.Budget{
			ID:             entity.NewID(),
			OrganizationID: orgID,
			CategoryID:     &categoryID,
			Name:           name + " budget",
			Amount:         decimal.RequireFromString(limit.budget),
			Period:         "Monthly",
			CreatedAt:      s.now,
		}); err != nil {
			return fmt.Errorf("create budget for %s: %w", name, err)
		}
	}
	s.logger.Info("Policies and budgets ready")
	return nil
}
