package amqp

import (
	"encoding/json"
	"time"
)

const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
)

// LedgerEvent is the message published after each mutation. It carries only
// the transaction id and the event kind; consumers fetch the row themselves
// so the queue never holds stale copies of ledger data.
type LedgerEvent struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCreatedEvent builds a transaction.created event.
func NewCreatedEvent(id int64) *LedgerEvent {
	return &LedgerEvent{Kind: EventTransactionCreated, ID: id, Timestamp: time.Now()}
}

// NewDeletedEvent builds a transaction.deleted event.
func NewDeletedEvent(id int64) *LedgerEvent {
	return &LedgerEvent{Kind: EventTransactionDeleted, ID: id, Timestamp: time.Now()}
}

// ToJSON converts the event to JSON bytes.
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON parses an event from JSON bytes.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
