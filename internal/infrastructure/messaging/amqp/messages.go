package amqp

import (
	"encoding/json"
	"time"

	"github.com/garyjia/expense-manager/internal/domain/event"
)

// ExpenseEventMessage is the wire form of an expense lifecycle event.
// Consumers fetch the full expense through the API when they need more.
type ExpenseEventMessage struct {
	EventID        string    `json:"event_id"`
	Type           string    `json:"type"`
	OrganizationID string    `json:"organization_id"`
	ExpenseID      string    `json:"expense_id"`
	ActorID        string    `json:"actor_id"`
	Amount         string    `json:"amount,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	Status         string    `json:"status,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewExpenseEventMessage converts a domain event
func NewExpenseEventMessage(evt *event.Event) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		EventID:        evt.ID,
		Type:           evt.Type.String(),
		OrganizationID: evt.OrganizationID,
		ExpenseID:      evt.SubjectID,
		ActorID:        evt.ActorID,
		Amount:         evt.GetPayloadString(event.KeyAmount),
		Currency:       evt.GetPayloadString(event.KeyCurrency),
		Status:         evt.GetPayloadString(event.KeyStatus),
		Timestamp:      evt.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON decodes a message
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
