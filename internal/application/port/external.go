package port

import (
	"context"
	"time"

	"github.com/garyjia/expense-manager/internal/domain/entity"
	"github.com/garyjia/expense-manager/internal/domain/event"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now
func (SystemClock) Now() time.Time { return time.Now() }

// EventPublisher forwards domain events to an external broker
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event) error
	Close() error
}

// ScopeLocker serializes work on a named scope inside the process.
// Lock blocks until the scope is free or ctx is done.
type ScopeLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// PasswordHasher hashes and verifies member passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs and verifies session tokens
type TokenIssuer interface {
	Issue(user SessionSubject) (string, time.Time, error)
	Verify(token string) (*SessionSubject, error)
}

// SessionSubject is the identity carried by a session token
type SessionSubject struct {
	UserID         string
	OrganizationID string
	Role           entity.Role
	Permissions    entity.Permissions
}
