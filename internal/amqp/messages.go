package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RecordSyncMessage points the sync worker at a stored ledger record.
// The worker loads the record itself, so the payload stays small.
type RecordSyncMessage struct {
	ID        int64     `json:"id"`
	MessageID string    `json:"message_id"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(id int64, source string) *RecordSyncMessage {
	return &RecordSyncMessage{
		ID:        id,
		MessageID: uuid.NewString(),
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
