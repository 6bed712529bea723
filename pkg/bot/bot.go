package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/embarklink/linkbot/pkg/platform"
)

const botLogPrefix = "bot:dispatch"

// ErrAlreadyStarted is returned by every Start call after the first.
var ErrAlreadyStarted = errors.New("bot: already started")

// Bot owns the platform connection and fans every inbound event out to its handlers.
type Bot struct {
	gateway platform.Gateway
	client  platform.Client
	cache   platform.Cache

	handlers []Handler
	registry *CommandRegistry
	tasks    sync.WaitGroup
	started  atomic.Bool

	mu      sync.Mutex
	context *Context
}

// NewBotParams holds the collaborators of a Bot.
type NewBotParams struct {
	Gateway platform.Gateway
	Client  platform.Client
	Cache   platform.Cache
}

// NewBot creates a Bot without handlers.
func NewBot(p NewBotParams) *Bot {
	return &Bot{
		gateway:  p.Gateway,
		client:   p.Client,
		cache:    p.Cache,
		registry: NewCommandRegistry(),
	}
}

// Register appends h to the handlers. It must be called before Start.
// Registering the same handler twice makes it run twice per event.
func (b *Bot) Register(h Handler) {
	b.handlers = append(b.handlers, h)
}

// Registry returns the command registry filled by Start.
func (b *Bot) Registry() *CommandRegistry {
	return b.registry
}

// Context returns the shared context once Start has resolved the bot identity.
func (b *Bot) Context() (*Context, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.context, b.context != nil
}

// Connected reports whether the gateway is connected.
func (b *Bot) Connected() bool {
	return b.gateway.Connected()
}

// Start connects, deploys the declared commands and runs the receive loop
// until the gateway closes or ctx ends, both of which return nil. A malformed
// event, a failed identity lookup or a failed deploy returns an error.
// A Bot runs once: later calls return ErrAlreadyStarted, even after a failure.
func (b *Bot) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if err := b.gateway.Open(); err != nil {
		return fmt.Errorf("%s - failed to connect: %w", botLogPrefix, err)
	}
	defer b.gateway.Close()

	app, err := b.client.CurrentApplication(ctx)
	if err != nil {
		return fmt.Errorf("%s - failed to resolve bot identity: %w", botLogPrefix, err)
	}
	botUser, err := b.client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%s - failed to resolve bot user: %w", botLogPrefix, err)
	}
	bc, err := NewContext(b.client, b.cache, app, botUser)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.context = bc
	b.mu.Unlock()
	slog.Info(fmt.Sprintf("%s - Connected as %s (application %s)", botLogPrefix, bc.Bot.Username, bc.ApplicationID))

	handlers, err := b.readyCommands(ctx, bc)
	if err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Receiving events for %d handlers", botLogPrefix, len(handlers)))
	return b.receive(ctx, bc, handlers)
}

func (b *Bot) readyCommands(ctx context.Context, bc *Context) ([]Handler, error) {
	for _, h := range b.handlers {
		b.registry.RegisterCommands(h.Commands())
	}
	if err := b.registry.Deploy(ctx, bc); err != nil {
		return nil, fmt.Errorf("%s - failed to deploy commands: %w", botLogPrefix, err)
	}
	handlers := make([]Handler, 0, len(b.handlers)+1)
	handlers = append(handlers, b.handlers...)
	return append(handlers, b.registry), nil
}

func (b *Bot) receive(ctx context.Context, bc *Context, handlers []Handler) error {
	taskCtx := context.WithoutCancel(ctx)
	for {
		ev, err := b.gateway.NextEvent(ctx)
		if err != nil {
			if errors.Is(err, platform.ErrGatewayClosed) || ctx.Err() != nil {
				slog.Info(fmt.Sprintf("%s - Receive loop stopped", botLogPrefix))
				return nil
			}
			return fmt.Errorf("%s - failed to receive event: %w", botLogPrefix, err)
		}
		b.dispatch(taskCtx, bc, handlers, ev)
		// Handlers may read the cache before this update lands.
		if b.cache != nil {
			b.cache.Update(ev)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, bc *Context, handlers []Handler, ev platform.Event) {
	for _, h := range handlers {
		b.tasks.Add(1)
		go func(h Handler) {
			defer b.tasks.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error(fmt.Sprintf("%s - Handler %T panicked on %s: %v\n%s", botLogPrefix, h, platform.EventName(ev), r, debug.Stack()))
				}
			}()
			h.Handle(ctx, bc, ev)
		}(h)
	}
}

// Wait blocks until every spawned handler task has returned.
func (b *Bot) Wait() {
	b.tasks.Wait()
}
