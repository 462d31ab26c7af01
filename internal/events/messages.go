package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/eanyanwu/whotookmy.money/internal/core"
)

// PurchaseRecordedMessage announces a new ledger purchase. Consumers that
// need more than these fields fetch the purchase themselves.
type PurchaseRecordedMessage struct {
	MessageID     string    `json:"message_id"`
	PurchaseID    int64     `json:"purchase_id"`
	UserID        int64     `json:"user_id"`
	AmountInCents int64     `json:"amount_in_cents"`
	Merchant      string    `json:"merchant"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewPurchaseRecordedMessage(p core.Purchase) *PurchaseRecordedMessage {
	return &PurchaseRecordedMessage{
		MessageID:     uuid.NewString(),
		PurchaseID:    p.PurchaseID,
		UserID:        p.UserID,
		AmountInCents: p.AmountInCents,
		Merchant:      p.Merchant,
		Timestamp:     time.Now(),
	}
}

func (m *PurchaseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PurchaseRecordedMessageFromJSON(data []byte) (*PurchaseRecordedMessage, error) {
	var msg PurchaseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// PurchaseAmendedMessage announces that a purchase's amended view changed,
// either by a new correction or an undo.
type PurchaseAmendedMessage struct {
	MessageID  string    `json:"message_id"`
	PurchaseID int64     `json:"purchase_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewPurchaseAmendedMessage(purchaseID int64) *PurchaseAmendedMessage {
	return &PurchaseAmendedMessage{
		MessageID:  uuid.NewString(),
		PurchaseID: purchaseID,
		Timestamp:  time.Now(),
	}
}

func (m *PurchaseAmendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PurchaseAmendedMessageFromJSON(data []byte) (*PurchaseAmendedMessage, error) {
	var msg PurchaseAmendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
