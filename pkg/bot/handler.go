package bot

import (
	"context"

	"github.com/embarklink/linkbot/pkg/platform"
)

// Handler processes platform events. Handle is fire-and-forget: the
// dispatcher observes neither its result nor its errors. Commands is called
// once at startup.
type Handler interface {
	Handle(ctx context.Context, bc *Context, ev platform.Event)
	Commands() []CommandRegistration
}

// NoCommands can be embedded by handlers that declare no commands.
type NoCommands struct{}

// Commands returns nil.
func (NoCommands) Commands() []CommandRegistration { return nil }

// HandlerFunc adapts a function to a Handler without commands.
type HandlerFunc func(ctx context.Context, bc *Context, ev platform.Event)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, bc *Context, ev platform.Event) {
	f(ctx, bc, ev)
}

// Commands returns nil.
func (f HandlerFunc) Commands() []CommandRegistration { return nil }
