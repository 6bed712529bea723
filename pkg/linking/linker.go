// Package linking verifies guild members by linking their platform account to an Embark ID.
package linking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/embarklink/linkbot/pkg/bot"
	"github.com/embarklink/linkbot/pkg/db"
	"github.com/embarklink/linkbot/pkg/platform"
)

const logPrefix = "linking:linker"

// Component and modal identifiers.
const (
	VerifyButtonID      = "verify"
	VerificationModalID = "embark_verification"
	EmbarkIDInputID     = "embark_id"
)

// Store is the persistence the linker needs. *db.Repository satisfies it.
type Store interface {
	GetGuildSettings(ctx context.Context, guildID string) (*db.GuildSettings, error)
	SetGuildSettings(ctx context.Context, s db.GuildSettings) (*db.GuildSettings, error)
	GetUserByDiscordID(ctx context.Context, discordUser string) (*db.User, error)
	GetUserByEmbarkID(ctx context.Context, embarkID string) (*db.User, error)
	AddUser(ctx context.Context, discordUser, embarkID string) (bool, error)
	UpdateUserEmbarkID(ctx context.Context, discordUser, embarkID string) (bool, error)
	RemoveUser(ctx context.Context, discordUser string) (bool, error)
	SearchEmbarkIDs(ctx context.Context, prefix string, limit int) ([]string, error)
}

var _ Store = (*db.Repository)(nil)

// Options configures a Linker.
type Options struct {
	// AdminGuildIDs scopes /lookup. Empty deploys it globally.
	AdminGuildIDs []string
	// WelcomeWindow is how recently the bot must have joined a guild to greet it.
	WelcomeWindow time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Linker handles member joins, guild availability and the verification flow,
// and declares the /setup, /lookup and /unlink commands.
type Linker struct {
	store Store
	opts  Options
}

// NewLinker creates a Linker backed by store.
func NewLinker(store Store, opts Options) *Linker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Linker{store: store, opts: opts}
}

// Commands declares the linking commands.
func (l *Linker) Commands() []bot.CommandRegistration {
	lookupScope := bot.GlobalScope()
	if len(l.opts.AdminGuildIDs) > 0 {
		lookupScope = bot.GuildsScope(l.opts.AdminGuildIDs...)
	}
	return []bot.CommandRegistration{
		{Scope: bot.GlobalScope(), Command: &SetupCommand{store: l.store}},
		{Scope: bot.GlobalScope(), Command: &UnlinkCommand{store: l.store}},
		{Scope: lookupScope, Command: &LookupCommand{store: l.store}},
	}
}

// Handle dispatches the events the linker cares about.
func (l *Linker) Handle(ctx context.Context, bc *bot.Context, ev platform.Event) {
	switch e := ev.(type) {
	case *discordgo.GuildMemberAdd:
		if e.Member != nil && e.Member.User != nil && !e.Member.User.Bot {
			l.onMemberJoin(ctx, bc, e.Member)
		}
	case *discordgo.GuildCreate:
		if e.Guild != nil {
			l.onGuildAvailable(ctx, bc, e.Guild)
		}
	case *discordgo.InteractionCreate:
		if e.Interaction != nil {
			l.onInteraction(ctx, bc, e.Interaction)
		}
	}
}

func (l *Linker) onInteraction(ctx context.Context, bc *bot.Context, i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		if i.MessageComponentData().CustomID == VerifyButtonID {
			l.showVerificationModal(ctx, bot.NewInteractionContext(bc, i))
		}
	case discordgo.InteractionModalSubmit:
		if i.ModalSubmitData().CustomID == VerificationModalID {
			l.submitVerification(ctx, bot.NewInteractionContext(bc, i), i.ModalSubmitData())
		}
	}
}

func (l *Linker) onMemberJoin(ctx context.Context, bc *bot.Context, member *discordgo.Member) {
	settings, err := l.store.GetGuildSettings(ctx, member.GuildID)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to load settings for guild %s: %v", logPrefix, member.GuildID, err))
		return
	}
	if settings == nil {
		return
	}

	user, err := l.store.GetUserByDiscordID(ctx, member.User.ID)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to load user %s: %v", logPrefix, member.User.ID, err))
		return
	}

	guildName := guildDisplayName(bc, member.GuildID)
	if user == nil {
		msg := fmt.Sprintf("Welcome to %s! Verify your Embark ID in <#%s> to get access.", guildName, settings.VerificationChannel)
		if err := bc.SendDM(ctx, member.User.ID, msg); err != nil {
			slog.Warn(fmt.Sprintf("%s - could not DM new member %s: %v", logPrefix, member.User.ID, err))
		}
		return
	}

	l.syncEverywhere(ctx, bc, member.GuildID, settings, member.User.ID, user.EmbarkID)
	msg := fmt.Sprintf("You have been verified in %s as %s.", guildName, user.EmbarkID)
	if err := bc.SendDM(ctx, member.User.ID, msg); err != nil {
		slog.Warn(fmt.Sprintf("%s - could not DM verified member %s: %v", logPrefix, member.User.ID, err))
	}
}

// WelcomeMessage is posted to newly joined guilds that have not been set up.
const WelcomeMessage = "Please run /setup to get started."

func (l *Linker) onGuildAvailable(ctx context.Context, bc *bot.Context, guild *discordgo.Guild) {
	if guild.JoinedAt.IsZero() || l.opts.Now().Sub(guild.JoinedAt) > l.opts.WelcomeWindow {
		return
	}
	settings, err := l.store.GetGuildSettings(ctx, guild.ID)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to load settings for guild %s: %v", logPrefix, guild.ID, err))
		return
	}
	if settings != nil {
		return
	}

	channelID := welcomeChannel(guild)
	if channelID == "" {
		slog.Warn(fmt.Sprintf("%s - no channel to greet guild %s", logPrefix, guild.ID))
		return
	}
	if _, err := bc.Client.CreateMessage(ctx, channelID, &discordgo.MessageSend{Content: WelcomeMessage}); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to greet guild %s: %v", logPrefix, guild.ID, err))
		return
	}
	slog.Info(fmt.Sprintf("%s - Greeted new guild %s", logPrefix, guild.ID))
}

// welcomeChannel prefers the public updates channel, then the system channel,
// then the first text channel.
func welcomeChannel(guild *discordgo.Guild) string {
	if guild.PublicUpdatesChannelID != "" {
		return guild.PublicUpdatesChannelID
	}
	if guild.SystemChannelID != "" {
		return guild.SystemChannelID
	}
	for _, c := range guild.Channels {
		if c.Type == discordgo.ChannelTypeGuildText {
			return c.ID
		}
	}
	return ""
}

func guildDisplayName(bc *bot.Context, guildID string) string {
	if bc.Cache != nil {
		if name, ok := bc.Cache.GuildName(guildID); ok {
			return name
		}
	}
	return "the server"
}
