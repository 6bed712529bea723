// Package events relays gateway events to the message bus.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/embarklink/linkbot/pkg/platform"
)

// BotEvent is the envelope published for every relayed gateway event.
type BotEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	BotVersion string          `json:"botVersion"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// NewBotEvent wraps ev in an envelope with a fresh id.
func NewBotEvent(ev platform.Event, botVersion string, receivedAt time.Time) (*BotEvent, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("events:types - failed to encode %s: %w", platform.EventName(ev), err)
	}
	return &BotEvent{
		ID:         uuid.NewString(),
		Type:       platform.EventName(ev),
		BotVersion: botVersion,
		ReceivedAt: receivedAt.UTC(),
		Payload:    payload,
	}, nil
}
