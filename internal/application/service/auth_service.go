package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/pkg/utils"
)

// AuthService signs members in and resolves session tokens
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// Authenticate decodes a session token into a principal
	Authenticate(token string) (authz.Principal, error)
	// Me returns the signed-in member and their organization
	Me(ctx context.Context, p authz.Principal) (*Profile, error)
	// DemoAccounts lists one sign-in per role of the demo organization
	DemoAccounts(ctx context.Context, slug string) ([]DemoAccount, error)
}

// DemoAccount is a seeded sign-in shown on the login page
type DemoAccount struct {
	Email string      `json:"email"`
	Role  entity.Role `json:"role"`
}

var demoRoleOrder = []entity.Role{entity.RoleAdmin, entity.RoleManager, entity.RoleAccountant, entity.RoleEmployee}

// LoginResult carries a fresh session token
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

// Profile is the current member with their tenant
type Profile struct {
	User         *entity.User         `json:"user"`
	Organization *entity.Organization `json:"organization"`
}

type authServiceImpl struct {
	users  port.UserRepository
	orgs   port.OrganizationRepository
	hasher port.PasswordHasher
	tokens port.TokenIssuer
	logger Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users port.UserRepository,
	orgs port.OrganizationRepository,
	hasher port.PasswordHasher,
	tokens port.TokenIssuer,
	logger Logger,
) AuthService {
	return &authServiceImpl{
		users:  users,
		orgs:   orgs,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, port.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.logger.Info("Sign-in refused", "email", email)
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(port.SessionSubject{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
		Permissions:    user.Permissions,
	})
	if err != nil {
		s.logger.Error("Failed to issue session token", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("Member signed in", "user_id", user.ID, "organization_id", user.OrganizationID)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authServiceImpl) Authenticate(token string) (authz.Principal, error) {
	if token == "" {
		return authz.Principal{}, authz.ErrUnauthenticated
	}
	subject, err := s.tokens.Verify(token)
	if err != nil {
		return authz.Principal{}, fmt.Errorf("%w: %v", authz.ErrUnauthenticated, err)
	}
	return authz.NewPrincipal(subject.UserID, subject.OrganizationID, subject.Role, subject.Permissions), nil
}

func (s *authServiceImpl) Me(ctx context.Context, p authz.Principal) (*Profile, error) {
	if p.IsZero() {
		return nil, authz.ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, p.OrganizationID(), p.UserID())
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, p.OrganizationID())
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Organization: org}, nil
}

// DemoAccounts returns the first member of each role in the organization
// with the given slug. An unknown organization yields an empty list.
func (s *authServiceImpl) DemoAccounts(ctx context.Context, slug string) ([]DemoAccount, error) {
	accounts := make([]DemoAccount, 0, len(demoRoleOrder))
	if slug == "" {
		return accounts, nil
	}

	org, err := s.orgs.GetBySlug(ctx, slug)
	if errors.Is(err, port.ErrNotFound) {
		return accounts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}

	users, err := s.users.ListByOrganization(ctx, org.ID)
	if err != nil {
		return nil, err
	}

	for _, role := range demoRoleOrder {
		for _, u := range users {
			if u.Role == role {
				accounts = append(accounts, DemoAccount{Email: u.Email, Role: role})
				break
			}
		}
	}
	return accounts, nil
}
