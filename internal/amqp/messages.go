package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventTypeUser     = "user"
	EventTypeCategory = "category"
	EventTypeIncome   = "income"
	EventTypeExpense  = "expense"
)

// Event actions
const (
	ActionRegistered = "registered"
	ActionCreated    = "created"
	ActionUpdated    = "updated"
	ActionRenamed    = "renamed"
	ActionDeleted    = "deleted"
)

// LedgerEvent records that a mutation was committed to the store. It carries
// identifiers only; the worker never needs amounts or credentials.
type LedgerEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Action     string    `json:"action"`
	OwnerID    string    `json:"owner_id"`
	RecordID   string    `json:"record_id"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewLedgerEvent creates an event with a fresh id stamped with the current time.
func NewLedgerEvent(eventType, action, ownerID, recordID, name string) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Action:     action,
		OwnerID:    ownerID,
		RecordID:   recordID,
		Name:       name,
		OccurredAt: time.Now().UTC(),
	}
}

func (e *LedgerEvent) Validate() error {
	switch {
	case e.ID == "":
		return errors.New("event id is required")
	case e.Type == "":
		return errors.New("event type is required")
	case e.Action == "":
		return errors.New("event action is required")
	case e.OwnerID == "":
		return errors.New("event owner is required")
	case e.OccurredAt.IsZero():
		return errors.New("event time is required")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
