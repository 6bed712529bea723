package bot

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/embarklink/linkbot/pkg/platform"
	"github.com/embarklink/linkbot/pkg/platform/platformtest"
)

type stubCommand struct {
	name    string
	exec    func(ctx context.Context, ic *InteractionContext, data discordgo.ApplicationCommandInteractionData) error
	mu      sync.Mutex
	invoked int
}

func newStubCommand(name string) *stubCommand {
	return &stubCommand{name: name}
}

func (c *stubCommand) Definition() *discordgo.ApplicationCommand {
	return ChatInputCommand(Text(c.name), Text("stub "+c.name))
}

func (c *stubCommand) Execute(ctx context.Context, ic *InteractionContext, data discordgo.ApplicationCommandInteractionData) error {
	c.mu.Lock()
	c.invoked++
	c.mu.Unlock()
	if c.exec != nil {
		return c.exec(ctx, ic, data)
	}
	return nil
}

func (c *stubCommand) Invoked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invoked
}

type completingCommand struct {
	*stubCommand
	choices []AutocompleteChoice
	err     error
}

func (c *completingCommand) Autocomplete(ctx context.Context, ic InteractionContext, _ discordgo.ApplicationCommandInteractionData) ([]AutocompleteChoice, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.choices, ic.Autocomplete(ctx, c.choices)
}

type recordingHandler struct {
	NoCommands
	mu     sync.Mutex
	events []platform.Event
	regs   []CommandRegistration
}

func (h *recordingHandler) Handle(_ context.Context, _ *Context, ev platform.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *recordingHandler) Commands() []CommandRegistration {
	return h.regs
}

func (h *recordingHandler) Events() []platform.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]platform.Event(nil), h.events...)
}

func newTestContext(t *testing.T) (*Context, *platformtest.RecordingClient) {
	t.Helper()
	client := platformtest.NewRecordingClient()
	bc, err := NewContext(client, platformtest.NewMemoryCache(), client.Application, client.BotUser)
	if err != nil {
		t.Fatalf("NewContext() error: %v", err)
	}
	return bc, client
}

func commandInteraction(name, guildID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "interaction-1",
		Token:   "token-1",
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: guildID,
		Data:    discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}
}

// captureLogs routes the default logger into a buffer until the test ends.
func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
