// Package platformtest provides in-memory platform fakes for tests.
package platformtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/embarklink/linkbot/pkg/platform"
)

// Method names recorded by RecordingClient.
const (
	MethodCurrentApplication        = "CurrentApplication"
	MethodCurrentUser               = "CurrentUser"
	MethodCreateInteractionResponse = "CreateInteractionResponse"
	MethodUpdateInteractionResponse = "UpdateInteractionResponse"
	MethodSetGlobalCommands         = "SetGlobalCommands"
	MethodSetGuildCommands          = "SetGuildCommands"
	MethodCreateRole                = "CreateRole"
	MethodCreateChannel             = "CreateChannel"
	MethodCreateMessage             = "CreateMessage"
	MethodGuildMember               = "GuildMember"
	MethodUpdateMember              = "UpdateMember"
	MethodChannelMessages           = "ChannelMessages"
	MethodCreateDMChannel           = "CreateDMChannel"
)

// Call is one recorded outbound request. Only the fields relevant to Method are set.
type Call struct {
	Method      string
	AppID       string
	GuildID     string
	ChannelID   string
	UserID      string
	Interaction *discordgo.Interaction
	Response    *discordgo.InteractionResponse
	Edit        *discordgo.WebhookEdit
	Commands    []*discordgo.ApplicationCommand
	Role        *discordgo.RoleParams
	Channel     *discordgo.GuildChannelCreateData
	Message     *discordgo.MessageSend
	Member      *discordgo.GuildMemberParams
}

// RecordingClient is a platform.Client that records every call and returns
// canned results. Errors maps a method name to the error it should return.
type RecordingClient struct {
	mu    sync.Mutex
	calls []Call
	seq   int

	Application *discordgo.Application
	BotUser     *discordgo.User
	Errors      map[string]error
	// Members is keyed by guildID + "/" + userID.
	Members  map[string]*discordgo.Member
	Messages map[string][]*discordgo.Message
}

var _ platform.Client = (*RecordingClient)(nil)

// NewRecordingClient returns a client whose application is "app-1" with bot user "bot-1".
func NewRecordingClient() *RecordingClient {
	return &RecordingClient{
		Application: &discordgo.Application{ID: "app-1", Name: "linkbot"},
		BotUser:     &discordgo.User{ID: "bot-1", Username: "linkbot", Bot: true},
		Errors:   make(map[string]error),
		Members:  make(map[string]*discordgo.Member),
		Messages: make(map[string][]*discordgo.Message),
	}
}

// Fail makes every later call to method return err.
func (c *RecordingClient) Fail(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Errors[method] = err
}

// AddMember registers a member returned by GuildMember.
func (c *RecordingClient) AddMember(guildID string, member *discordgo.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Members[guildID+"/"+member.User.ID] = member
}

// Calls returns a copy of every recorded call in order.
func (c *RecordingClient) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallsTo returns the recorded calls of one method in order.
func (c *RecordingClient) CallsTo(method string) []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Call
	for _, call := range c.calls {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (c *RecordingClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

func (c *RecordingClient) record(call Call) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	return c.Errors[call.Method]
}

func (c *RecordingClient) nextID(kind string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return fmt.Sprintf("%s-%d", kind, c.seq)
}

func (c *RecordingClient) CurrentApplication(_ context.Context) (*discordgo.Application, error) {
	if err := c.record(Call{Method: MethodCurrentApplication}); err != nil {
		return nil, err
	}
	return c.Application, nil
}

func (c *RecordingClient) CurrentUser(_ context.Context) (*discordgo.User, error) {
	if err := c.record(Call{Method: MethodCurrentUser}); err != nil {
		return nil, err
	}
	return c.BotUser, nil
}

func (c *RecordingClient) CreateInteractionResponse(_ context.Context, interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return c.record(Call{Method: MethodCreateInteractionResponse, Interaction: interaction, Response: resp})
}

func (c *RecordingClient) UpdateInteractionResponse(_ context.Context, interaction *discordgo.Interaction, edit *discordgo.WebhookEdit) error {
	return c.record(Call{Method: MethodUpdateInteractionResponse, Interaction: interaction, Edit: edit})
}

func (c *RecordingClient) SetGlobalCommands(_ context.Context, appID string, commands []*discordgo.ApplicationCommand) error {
	return c.record(Call{Method: MethodSetGlobalCommands, AppID: appID, Commands: commands})
}

func (c *RecordingClient) SetGuildCommands(_ context.Context, appID, guildID string, commands []*discordgo.ApplicationCommand) error {
	return c.record(Call{Method: MethodSetGuildCommands, AppID: appID, GuildID: guildID, Commands: commands})
}

func (c *RecordingClient) CreateRole(_ context.Context, guildID string, params *discordgo.RoleParams) (*discordgo.Role, error) {
	if err := c.record(Call{Method: MethodCreateRole, GuildID: guildID, Role: params}); err != nil {
		return nil, err
	}
	return &discordgo.Role{ID: c.nextID("role"), Name: params.Name}, nil
}

func (c *RecordingClient) CreateChannel(_ context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	if err := c.record(Call{Method: MethodCreateChannel, GuildID: guildID, Channel: &data}); err != nil {
		return nil, err
	}
	return &discordgo.Channel{ID: c.nextID("channel"), GuildID: guildID, Name: data.Name, Type: data.Type}, nil
}

func (c *RecordingClient) CreateMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	if err := c.record(Call{Method: MethodCreateMessage, ChannelID: channelID, Message: msg}); err != nil {
		return nil, err
	}
	return &discordgo.Message{ID: c.nextID("message"), ChannelID: channelID, Content: msg.Content}, nil
}

func (c *RecordingClient) GuildMember(_ context.Context, guildID, userID string) (*discordgo.Member, error) {
	if err := c.record(Call{Method: MethodGuildMember, GuildID: guildID, UserID: userID}); err != nil {
		return nil, err
	}
	c.mu.Lock()
	member, ok := c.Members[guildID+"/"+userID]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("platformtest: unknown member %s in guild %s", userID, guildID)
	}
	return member, nil
}

func (c *RecordingClient) UpdateMember(_ context.Context, guildID, userID string, params *discordgo.GuildMemberParams) error {
	return c.record(Call{Method: MethodUpdateMember, GuildID: guildID, UserID: userID, Member: params})
}

func (c *RecordingClient) ChannelMessages(_ context.Context, channelID string, _ int) ([]*discordgo.Message, error) {
	if err := c.record(Call{Method: MethodChannelMessages, ChannelID: channelID}); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Messages[channelID], nil
}

func (c *RecordingClient) CreateDMChannel(_ context.Context, userID string) (*discordgo.Channel, error) {
	if err := c.record(Call{Method: MethodCreateDMChannel, UserID: userID}); err != nil {
		return nil, err
	}
	return &discordgo.Channel{ID: "dm-" + userID, Type: discordgo.ChannelTypeDM}, nil
}

// ScriptedGateway replays a fixed list of events, then reports End.
type ScriptedGateway struct {
	mu      sync.Mutex
	events  []platform.Event
	opened  bool
	closed  bool
	OpenErr error
	// End is returned once the script is exhausted; defaults to platform.ErrGatewayClosed.
	End error
}

var _ platform.Gateway = (*ScriptedGateway)(nil)

// NewScriptedGateway creates a gateway that yields events in order.
func NewScriptedGateway(events ...platform.Event) *ScriptedGateway {
	return &ScriptedGateway{events: events, End: platform.ErrGatewayClosed}
}

func (g *ScriptedGateway) Open() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.OpenErr != nil {
		return g.OpenErr
	}
	g.opened = true
	return nil
}

func (g *ScriptedGateway) NextEvent(ctx context.Context) (platform.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, platform.ErrGatewayClosed
	}
	if len(g.events) == 0 {
		return nil, g.End
	}
	ev := g.events[0]
	g.events = g.events[1:]
	return ev, nil
}

func (g *ScriptedGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *ScriptedGateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opened && !g.closed
}

// Opened reports whether Open succeeded.
func (g *ScriptedGateway) Opened() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opened
}

// MemoryCache is a platform.Cache with fixed contents that records updates.
type MemoryCache struct {
	mu      sync.Mutex
	updates []platform.Event

	Names  map[string]string
	Guilds map[string][]string
}

var _ platform.Cache = (*MemoryCache)(nil)

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{Names: make(map[string]string), Guilds: make(map[string][]string)}
}

func (c *MemoryCache) Update(ev platform.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, ev)
}

// Updates returns every event passed to Update in order.
func (c *MemoryCache) Updates() []platform.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]platform.Event, len(c.updates))
	copy(out, c.updates)
	return out
}

func (c *MemoryCache) GuildName(guildID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.Names[guildID]
	return name, ok
}

func (c *MemoryCache) UserGuilds(userID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Guilds[userID]...)
}
