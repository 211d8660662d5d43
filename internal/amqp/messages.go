package amqp

import (
	"encoding/json"
	"time"
)

// MovementPostedMessage announces a freshly committed ledger movement.
// It carries the denormalized fields the audit worker writes out, so the
// consumer never needs database access.
type MovementPostedMessage struct {
	MovementID      int64     `json:"movement_id"`
	CustomerID      int64     `json:"customer_id"`
	CustomerName    string    `json:"customer_name"`
	Kind            string    `json:"kind"`
	Description     string    `json:"description"`
	AmountCents     int64     `json:"amount_cents"`
	NewBalanceCents int64     `json:"new_balance_cents"`
	Period          string    `json:"period"`
	Timestamp       time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *MovementPostedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MovementPostedMessageFromJSON creates a message from JSON bytes
func MovementPostedMessageFromJSON(data []byte) (*MovementPostedMessage, error) {
	var msg MovementPostedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
