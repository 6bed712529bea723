package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

const gatewayLogPrefix = "platform:gateway"

var (
	// ErrGatewayClosed is returned by NextEvent once the gateway has been closed.
	ErrGatewayClosed = errors.New("platform: gateway closed")
	// ErrMalformedEvent wraps a payload the gateway could not decode.
	ErrMalformedEvent = errors.New("platform: malformed gateway event")
)

// Gateway is the ordered stream of inbound platform events.
type Gateway interface {
	Open() error
	// NextEvent blocks until the next event arrives, the gateway is closed or ctx ends.
	NextEvent(ctx context.Context) (Event, error)
	Close() error
	Connected() bool
}

type gatewayItem struct {
	event Event
	err   error
}

// DiscordGateway turns discordgo's callback-driven websocket into a pull-based
// stream. The session is switched to synchronous handler execution so events
// are queued in the order they were read from the socket.
type DiscordGateway struct {
	session   *discordgo.Session
	events    chan gatewayItem
	done      chan struct{}
	closeOnce sync.Once
	connected atomic.Bool
	remove    []func()
}

// NewDiscordGateway wraps session. bufferSize bounds how many decoded events
// may wait for the receive loop before the socket reader blocks.
func NewDiscordGateway(session *discordgo.Session, bufferSize int) *DiscordGateway {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	// Events are fed to a Cache by the dispatch loop, not by the library.
	session.StateEnabled = false
	session.SyncEvents = true

	g := &DiscordGateway{
		session: session,
		events:  make(chan gatewayItem, bufferSize),
		done:    make(chan struct{}),
	}
	g.remove = append(g.remove,
		session.AddHandler(g.onEvent),
		session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Connect) {
			g.connected.Store(true)
		}),
		session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
			g.connected.Store(false)
			slog.Warn(fmt.Sprintf("%s - Gateway disconnected", gatewayLogPrefix))
		}),
	)
	return g
}

// Open connects the websocket.
func (g *DiscordGateway) Open() error {
	slog.Info(fmt.Sprintf("%s - Opening gateway connection", gatewayLogPrefix))
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("%s - failed to open gateway: %w", gatewayLogPrefix, err)
	}
	return nil
}

func (g *DiscordGateway) NextEvent(ctx context.Context) (Event, error) {
	select {
	case item := <-g.events:
		return item.event, item.err
	case <-g.done:
		return nil, ErrGatewayClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops event delivery and closes the websocket. It is safe to call more than once.
func (g *DiscordGateway) Close() error {
	var err error
	g.closeOnce.Do(func() {
		close(g.done)
		for _, remove := range g.remove {
			remove()
		}
		g.connected.Store(false)
		if cerr := g.session.Close(); cerr != nil {
			err = fmt.Errorf("%s - failed to close gateway: %w", gatewayLogPrefix, cerr)
		}
	})
	return err
}

func (g *DiscordGateway) Connected() bool {
	return g.connected.Load()
}

func (g *DiscordGateway) onEvent(_ *discordgo.Session, e *discordgo.Event) {
	if e.Struct == nil {
		slog.Debug(fmt.Sprintf("%s - Skipping unhandled event type %s", gatewayLogPrefix, e.Type))
		return
	}
	item := gatewayItem{event: e.Struct}
	if err := decodeEvent(e); err != nil {
		item = gatewayItem{err: fmt.Errorf("%w: %s (seq %d): %v", ErrMalformedEvent, e.Type, e.Sequence, err)}
	}
	select {
	case g.events <- item:
	case <-g.done:
	}
}

// decodeEvent decodes e.RawData into a fresh value of e.Struct's type.
// discordgo logs a failed typed decode but still delivers the partially
// filled struct, so the error has to be recovered here.
func decodeEvent(e *discordgo.Event) error {
	t := reflect.TypeOf(e.Struct)
	if t.Kind() != reflect.Ptr {
		return fmt.Errorf("unexpected event payload type %s", t)
	}
	return json.Unmarshal(e.RawData, reflect.New(t.Elem()).Interface())
}
