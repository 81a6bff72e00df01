package entity

import "time"

// Notification is an in-app message to a single recipient
type Notification struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	OrganizationID string    `json:"organization_id" gorm:"index;not null"`
	SenderID       string    `json:"sender_id" gorm:"not null"`
	Sender         *User     `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	RecipientID    string    `json:"recipient_id" gorm:"index;not null"`
	Message        string    `json:"message" gorm:"not null"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuditLog records a privileged action taken by a member
type AuditLog struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	OrganizationID string    `json:"organization_id" gorm:"index;not null"`
	ActorID        string    `json:"actor_id" gorm:"not null"`
	Action         string    `json:"action" gorm:"not null"`
	Target         string    `json:"target"`
	Metadata       string    `json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
