package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nrsnotify/internal/core"
)

// WatermarksUpdatedMessage announces that an account marked notifications as
// read. Watermarks uses the persisted ts_<type>_<subtype> keys.
type WatermarksUpdatedMessage struct {
	ID         string                    `json:"id"`
	Account    string                    `json:"account"`
	Page       string                    `json:"page,omitempty"`
	Watermarks map[string]core.Timestamp `json:"watermarks"`
	Timestamp  time.Time                 `json:"timestamp"`
}

// NewWatermarksUpdatedMessage creates a message with a fresh ID.
func NewWatermarksUpdatedMessage(account, page string, w core.Watermarks) *WatermarksUpdatedMessage {
	return &WatermarksUpdatedMessage{
		ID:         uuid.NewString(),
		Account:    account,
		Page:       page,
		Watermarks: w.Encode(),
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *WatermarksUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CoreWatermarks decodes the watermark keys.
func (m *WatermarksUpdatedMessage) CoreWatermarks() core.Watermarks {
	return core.DecodeWatermarks(m.Watermarks)
}

// WatermarksUpdatedMessageFromJSON creates a message from JSON bytes
func WatermarksUpdatedMessageFromJSON(data []byte) (*WatermarksUpdatedMessage, error) {
	var msg WatermarksUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Account == "" {
		return nil, fmt.Errorf("watermarks message %q has no account", msg.ID)
	}
	return &msg, nil
}
