package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the expense event queue.
const (
	KindExpenseCreated = "expense.created"
	KindExpenseDeleted = "expense.deleted"
)

// ExpenseEvent is the message published whenever an expense is created or
// deleted. It carries only the id and kind; consumers fetch the full row
// from the database when they need it.
type ExpenseEvent struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseCreated builds a created event for the given expense id.
func NewExpenseCreated(id int64) *ExpenseEvent {
	return &ExpenseEvent{Kind: KindExpenseCreated, ID: id, Timestamp: time.Now()}
}

// NewExpenseDeleted builds a deleted event for the given expense id.
func NewExpenseDeleted(id int64) *ExpenseEvent {
	return &ExpenseEvent{Kind: KindExpenseDeleted, ID: id, Timestamp: time.Now()}
}

// ToJSON converts the event to JSON bytes.
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes an event from JSON bytes.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
