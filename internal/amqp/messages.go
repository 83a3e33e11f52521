package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType names what happened to a transaction.
type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"
)

var ErrInvalidEvent = errors.New("invalid transaction event")

// TransactionEvent is a lightweight notification; consumers load the
// transaction itself from storage when they need it.
type TransactionEvent struct {
	Type          EventType `json:"type"`
	TransactionID string    `json:"transactionId"`
	GroupID       string    `json:"groupId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(typ EventType, transactionID, groupID string) *TransactionEvent {
	return &TransactionEvent{
		Type:          typ,
		TransactionID: transactionID,
		GroupID:       groupID,
		Timestamp:     time.Now(),
	}
}

func (e *TransactionEvent) Validate() error {
	switch e.Type {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.TransactionID == "" || e.GroupID == "" {
		return fmt.Errorf("%w: missing transaction or group id", ErrInvalidEvent)
	}
	return nil
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
