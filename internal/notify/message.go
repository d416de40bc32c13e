package notify

import (
	"encoding/json"
	"time"

	"slotwise/backend/internal/domain"
)

// Message is the envelope pushed to WebSocket subscribers.
type Message struct {
	Type      domain.ChangeType  `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Payload   domain.ChangeEvent `json:"payload"`
}

func NewMessage(event domain.ChangeEvent) Message {
	return Message{
		Type:      event.Type,
		Timestamp: time.Now().UTC(),
		Payload:   event,
	}
}

func (m Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}
