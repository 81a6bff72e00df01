// Package service implements the expense management use cases. Every
// operation takes the caller's authz.Principal and checks it before touching
// data.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password
var ErrInvalidCredentials = errors.New("invalid email or password")

// ValidationError reports bad caller input. It is raised before any policy
// evaluation or write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// auditWriter appends audit records; shared by every service that mutates data
type auditWriter struct {
	repo  port.AuditLogRepository
	clock port.Clock
}

func (a auditWriter) record(ctx context.Context, orgID, actorID, action, target string, metadata map[string]string) error {
	log := &entity.AuditLog{
		ID:             entity.NewID(),
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		Target:         target,
		CreatedAt:      a.clock.Now().UTC(),
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		log.Metadata = string(raw)
	}
	if err := a.repo.Create(ctx, log); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// lookupInTenant resolves an optional id through get. A missing record in the
// caller's organization is reported as a validation error on field.
func lookupInTenant[T any](ctx context.Context, field, id string, get func(ctx context.Context, id string) (T, error)) (*string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	if _, err := get(ctx, id); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, invalid(field, "unknown %s", field)
		}
		return nil, err
	}
	return &id, nil
}

func clockOrSystem(c port.Clock) port.Clock {
	if c == nil {
		return port.SystemClock{}
	}
	return c
}
