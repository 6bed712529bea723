package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/embarklink/linkbot/pkg/bot"
	"github.com/embarklink/linkbot/pkg/platform"
)

const relayLogPrefix = "events:relay"

// RelayHandler publishes gateway events to an EventPublisher. Failures are
// logged and never surface to the dispatcher.
type RelayHandler struct {
	bot.NoCommands

	publisher  EventPublisher
	botVersion string
	types      map[string]bool
	now        func() time.Time
}

// NewRelayHandler relays the event types named in types, or every event when
// types is empty. Names are payload type names such as GuildMemberAdd and
// match case-insensitively. A nil publisher drops every event.
func NewRelayHandler(publisher EventPublisher, botVersion string, types []string) *RelayHandler {
	if publisher == nil {
		publisher = NoOpPublisher{}
	}
	h := &RelayHandler{publisher: publisher, botVersion: botVersion, now: time.Now}
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			if h.types == nil {
				h.types = make(map[string]bool)
			}
			h.types[strings.ToLower(t)] = true
		}
	}
	return h
}

// Relays reports whether events named eventType are published.
func (h *RelayHandler) Relays(eventType string) bool {
	return h.types == nil || h.types[strings.ToLower(eventType)]
}

func (h *RelayHandler) Handle(ctx context.Context, _ *bot.Context, ev platform.Event) {
	name := platform.EventName(ev)
	if name == "" || !h.Relays(name) {
		return
	}
	event, err := NewBotEvent(ev, h.botVersion, h.now())
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - dropping %s: %v", relayLogPrefix, name, err))
		return
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to relay %s: %v", relayLogPrefix, name, err))
	}
}
