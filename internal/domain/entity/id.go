package entity

import "github.com/google/uuid"

// NewID returns a new random identifier for any entity
func NewID() string {
	return uuid.NewString()
}
