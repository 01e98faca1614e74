package amqp

import (
	"encoding/json"
	"time"
)

// TransactionEvent announces a committed mutation. It carries no transaction
// data: consumers read the current state from the store or the engine.
type TransactionEvent struct {
	Op        string    `json:"op"`
	ID        int64     `json:"id"`
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(op string, id, seq int64) *TransactionEvent {
	return &TransactionEvent{
		Op:        op,
		ID:        id,
		Seq:       seq,
		Timestamp: time.Now().UTC(),
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
