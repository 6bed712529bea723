package events

import (
	"context"
	"errors"
	"fmt"
)

const publisherLogPrefix = "events:publisher"

// ErrNilEvent is returned by every publisher in this package for a nil event.
var ErrNilEvent = errors.New("events: nil event")

// EventPublisher delivers relayed gateway events. Relay handler tasks run in
// parallel, so implementations must be safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event *BotEvent) error
}

// NoOpPublisher accepts and drops every event. NewRelayHandler falls back to
// it when given no publisher.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(_ context.Context, event *BotEvent) error {
	return checkEvent(event)
}

// PublisherFunc adapts a function to EventPublisher. Nil events are rejected
// before fn runs and errors from fn are wrapped.
type PublisherFunc func(ctx context.Context, event *BotEvent) error

func (fn PublisherFunc) Publish(ctx context.Context, event *BotEvent) error {
	if err := checkEvent(event); err != nil {
		return err
	}
	if err := fn(ctx, event); err != nil {
		return fmt.Errorf("%s - failed to publish %s event %s: %w", publisherLogPrefix, event.Type, event.ID, err)
	}
	return nil
}

func checkEvent(event *BotEvent) error {
	if event == nil {
		return fmt.Errorf("%s - %w", publisherLogPrefix, ErrNilEvent)
	}
	return nil
}
