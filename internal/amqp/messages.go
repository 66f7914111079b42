package amqp

import (
	"encoding/json"
	"time"
)

// ApprovalEventMessage notifies downstream consumers that a transaction
// reached a terminal review state. It carries identifiers only; consumers
// fetch the full record from the database.
type ApprovalEventMessage struct {
	TransactionID int64     `json:"transaction_id"`
	ReceiptNo     string    `json:"receipt_no"`
	Axis          string    `json:"axis"` // "approval" or "verification"
	Status        string    `json:"status"`
	ActorID       int64     `json:"actor_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewApprovalEventMessage(txID int64, receiptNo, axis, status string, actorID int64) *ApprovalEventMessage {
	return &ApprovalEventMessage{
		TransactionID: txID,
		ReceiptNo:     receiptNo,
		Axis:          axis,
		Status:        status,
		ActorID:       actorID,
		Timestamp:     time.Now(),
	}
}

func (m *ApprovalEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ApprovalEventMessageFromJSON(data []byte) (*ApprovalEventMessage, error) {
	var msg ApprovalEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReconcileRequestMessage asks the worker to rebuild the performance rows for
// one fiscal year, optionally narrowed to a single month (0 means every
// month).
type ReconcileRequestMessage struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReconcileRequestMessage(year, month int) *ReconcileRequestMessage {
	return &ReconcileRequestMessage{
		Year:      year,
		Month:     month,
		Timestamp: time.Now(),
	}
}

func (m *ReconcileRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReconcileRequestMessageFromJSON(data []byte) (*ReconcileRequestMessage, error) {
	var msg ReconcileRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
