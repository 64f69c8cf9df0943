package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BackupRequestMessage asks a worker to write a snapshot of the stored data.
// It carries no data itself; the worker reads the snapshot when it handles the request.
type BackupRequestMessage struct {
	ID          string    `json:"id"`
	RequestedBy string    `json:"requestedBy,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewBackupRequestMessage creates a request with a fresh id.
func NewBackupRequestMessage(requestedBy string) *BackupRequestMessage {
	return &BackupRequestMessage{
		ID:          uuid.NewString(),
		RequestedBy: requestedBy,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BackupRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BackupRequestMessageFromJSON creates a message from JSON bytes
func BackupRequestMessageFromJSON(data []byte) (*BackupRequestMessage, error) {
	var msg BackupRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
