package events

import (
	"encoding/json"
	"time"

	"budget/internal/core"
)

// Event types, also used as routing keys.
const (
	TypeTransactionCreated = "transaction.created"
	TypeTransactionDeleted = "transaction.deleted"
)

// TransactionEvent announces a mutation of the transaction set. It carries
// only the id; consumers fetch the full record from the budget service.
type TransactionEvent struct {
	Type          string               `json:"type"`
	TransactionID int64                `json:"transaction_id"`
	Kind          core.TransactionType `json:"kind,omitempty"`
	Category      string               `json:"category,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// NewCreatedEvent builds the event for a newly stored transaction.
func NewCreatedEvent(t core.Transaction, at time.Time) *TransactionEvent {
	return &TransactionEvent{
		Type:          TypeTransactionCreated,
		TransactionID: t.ID,
		Kind:          t.Type,
		Category:      t.Category,
		OccurredAt:    at.UTC(),
	}
}

// NewDeletedEvent builds the event for a removed transaction.
func NewDeletedEvent(id int64, at time.Time) *TransactionEvent {
	return &TransactionEvent{
		Type:          TypeTransactionDeleted,
		TransactionID: id,
		OccurredAt:    at.UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
