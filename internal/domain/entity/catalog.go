package entity

import "time"

// Category groups expenses for policies, budgets and reports
type Category struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	OrganizationID string    `json:"organization_id" gorm:"index;not null"`
	Name           string    `json:"name" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is a branch or location an expense can be attributed to
type Store struct {
	ID                string    `json:"id" gorm:"primaryKey;size:36"`
	OrganizationID    string    `json:"organization_id" gorm:"index;not null"`
	Name              string    `json:"name" gorm:"not null"`
	Address           string    `json:"address,omitempty"`
	Type              string    `json:"type,omitempty"`
	NumberOfEmployees *int      `json:"number_of_employees,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
