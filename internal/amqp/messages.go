package amqp

import (
	"encoding/json"
	"time"
)

// LedgerSyncMessage tells the sync worker that the ledger changed.
// It carries only the revision; the worker reads the full document from
// the repository, so stale duplicates are cheap to drop.
type LedgerSyncMessage struct {
	Revision  uint64    `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerSyncMessage creates a sync message for the given revision
func NewLedgerSyncMessage(revision uint64) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
