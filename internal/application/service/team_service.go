package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/authz"
	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/pkg/utils"
)

const minPasswordLength = 6

// TeamService manages the members of an organization
type TeamService interface {
	ListMembers(ctx context.Context, p authz.Principal) ([]*entity.User, error)
	AddMember(ctx context.Context, p authz.Principal, req AddMemberRequest) (*entity.User, error)
	UpdateMember(ctx context.Context, p authz.Principal, userID string, req UpdateMemberRequest) (*entity.User, error)
}

// AddMemberRequest describes a new member. An empty password falls back to
// the configured default.
type AddMemberRequest struct {
	Email       string             `json:"email"`
	Name        string             `json:"name"`
	Role        string             `json:"role"`
	Password    string             `json:"password"`
	Permissions entity.Permissions `json:"permissions"`
}

// UpdateMemberRequest changes the non-nil fields of a member
type UpdateMemberRequest struct {
	Email       *string             `json:"email"`
	Name        *string             `json:"name"`
	Role        *string             `json:"role"`
	Password    *string             `json:"password"`
	Permissions *entity.Permissions `json:"permissions"`
}

type teamServiceImpl struct {
	users           port.UserRepository
	hasher          port.PasswordHasher
	txManager       port.TransactionManager
	audit           auditWriter
	defaultPassword string
	logger          Logger
}

// NewTeamService creates a new TeamService
func NewTeamService(
	users port.UserRepository,
	auditLogs port.AuditLogRepository,
	hasher port.PasswordHasher,
	txManager port.TransactionManager,
	clock port.Clock,
	defaultPassword string,
	logger Logger,
) TeamService {
	return &teamServiceImpl{
		users:           users,
		hasher:          hasher,
		txManager:       txManager,
		audit:           auditWriter{repo: auditLogs, clock: clockOrSystem(clock)},
		defaultPassword: defaultPassword,
		logger:          logger,
	}
}

func (s *teamServiceImpl) ListMembers(ctx context.Context, p authz.Principal) ([]*entity.User, error) {
	if err := authz.Authorize(p, authz.ViewTeam); err != nil {
		return nil, err
	}
	return s.users.ListByOrganization(ctx, p.OrganizationID())
}

func (s *teamServiceImpl) AddMember(ctx context.Context, p authz.Principal, req AddMemberRequest) (*entity.User, error) {
	if err := authz.Authorize(p, authz.ManageTeam); err != nil {
		return nil, err
	}

	email := utils.NormalizeEmail(req.Email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, invalid("email", "%v", err)
	}

	role := entity.RoleEmployee
	if strings.TrimSpace(req.Role) != "" {
		role = entity.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
		if !role.IsValid() {
			return nil, invalid("role", "unknown role %q", req.Role)
		}
	}

	password := req.Password
	if password == "" {
		password = s.defaultPassword
	}
	if len(password) < minPasswordLength {
		return nil, invalid("password", "must be at least %d characters", minPasswordLength)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		ID:             entity.NewID(),
		OrganizationID: p.OrganizationID(),
		Email:          email,
		Name:           utils.SanitizeString(req.Name),
		Role:           role,
		PasswordHash:   hash,
		Permissions:    req.Permissions,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			return err
		}
		return s.audit.record(txCtx, user.OrganizationID, p.UserID(), entity.AuditActionAddMember, user.ID, map[string]string{
			"email": email,
			"role":  string(role),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Member added", "id", user.ID, "email", email, "role", role, "organization_id", user.OrganizationID)
	return user, nil
}

func (s *teamServiceImpl) UpdateMember(ctx context.Context, p authz.Principal, userID string, req UpdateMemberRequest) (*entity.User, error) {
	if err := authz.Authorize(p, authz.ManageTeam); err != nil {
		return nil, err
	}

	var user *entity.User
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		user, err = s.users.GetByID(txCtx, p.OrganizationID(), userID)
		if err != nil {
			return err
		}

		changed, err := s.applyUpdate(p, user, req)
		if err != nil {
			return err
		}

		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}
		return s.audit.record(txCtx, user.OrganizationID, p.UserID(), entity.AuditActionUpdateMember, user.ID, map[string]string{
			"fields": strings.Join(changed, ","),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Member updated", "id", user.ID, "organization_id", user.OrganizationID)
	return user, nil
}

func (s *teamServiceImpl) applyUpdate(p authz.Principal, user *entity.User, req UpdateMemberRequest) ([]string, error) {
	var changed []string

	if req.Email != nil {
		email := utils.NormalizeEmail(*req.Email)
		if err := utils.ValidateEmail(email); err != nil {
			return nil, invalid("email", "%v", err)
		}
		user.Email = email
		changed = append(changed, "email")
	}
	if req.Name != nil {
		user.Name = utils.SanitizeString(*req.Name)
		changed = append(changed, "name")
	}
	if req.Role != nil {
		role := entity.Role(strings.ToUpper(strings.TrimSpace(*req.Role)))
		if !role.IsValid() {
			return nil, invalid("role", "unknown role %q", *req.Role)
		}
		if user.ID == p.UserID() && role != entity.RoleAdmin {
			return nil, invalid("role", "administrators cannot remove their own ADMIN role")
		}
		user.Role = role
		changed = append(changed, "role")
	}
	if req.Permissions != nil {
		user.Permissions = *req.Permissions
		changed = append(changed, "permissions")
	}
	if req.Password != nil && *req.Password != "" {
		if len(*req.Password) < minPasswordLength {
			return nil, invalid("password", "must be at least %d characters", minPasswordLength)
		}
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		changed = append(changed, "password")
	}

	return changed, nil
}
