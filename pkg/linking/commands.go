package linking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/embarklink/linkbot/pkg/bot"
	"github.com/embarklink/linkbot/pkg/db"
	"github.com/embarklink/linkbot/pkg/embarkid"
)

const commandsLogPrefix = "linking:commands"

// Names of the resources /setup creates.
const (
	VerifiedRoleName        = "verified"
	VerificationChannelName = "verify"
	VerificationMessage     = "Click the button below to link your Embark ID and get access to the server."
)

// Replies of /setup.
const (
	GuildOnlyMessage     = "This command must be done in a guild!"
	SetupCompleteMessage = "Setup complete!"
	SaveSettingsFailed   = "Could not save guild settings!"
)

// MaxAutocompleteChoices is the platform limit on suggestions per response.
const MaxAutocompleteChoices = 25

// SetupCommand creates the verified role, the verification channel and its
// message, and saves them as the guild's settings.
type SetupCommand struct {
	store Store
}

func (c *SetupCommand) Definition() *discordgo.ApplicationCommand {
	def := bot.ChatInputCommand(
		bot.Text("setup"),
		bot.Text("Set up Embark ID verification in this server").
			With(discordgo.French, "Configurer la vérification Embark ID sur ce serveur").
			With(discordgo.German, "Embark-ID-Verifizierung auf diesem Server einrichten"),
	)
	admin := int64(discordgo.PermissionAdministrator)
	noDM := false
	def.DefaultMemberPermissions = &admin
	def.DMPermission = &noDM
	return def
}

func (c *SetupCommand) Execute(ctx context.Context, ic *bot.InteractionContext, _ discordgo.ApplicationCommandInteractionData) error {
	guildID := ic.GuildID()
	if guildID == "" {
		return ic.ReplyEphemeral(ctx, GuildOnlyMessage)
	}

	// Acknowledge first; creating three resources can exceed the response deadline.
	err := ic.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		return err
	}

	client := ic.Context().Client
	role, err := client.CreateRole(ctx, guildID, &discordgo.RoleParams{Name: VerifiedRoleName})
	if err != nil {
		return bot.HTTPError(err)
	}

	channel, err := client.CreateChannel(ctx, guildID, discordgo.GuildChannelCreateData{
		Name: VerificationChannelName,
		Type: discordgo.ChannelTypeGuildText,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				// The @everyone role shares the guild id.
				ID:    guildID,
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: discordgo.PermissionViewChannel,
				Deny:  discordgo.PermissionSendMessages | discordgo.PermissionAddReactions,
			},
			{
				ID:   role.ID,
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel,
			},
		},
	})
	if err != nil {
		return bot.HTTPError(err)
	}

	msg, err := client.CreateMessage(ctx, channel.ID, &discordgo.MessageSend{
		Content: VerificationMessage,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Verify", Style: discordgo.PrimaryButton, CustomID: VerifyButtonID},
			}},
		},
	})
	if err != nil {
		return bot.HTTPError(err)
	}

	_, err = c.store.SetGuildSettings(ctx, db.GuildSettings{
		GuildID:             guildID,
		VerificationChannel: channel.ID,
		VerifiedRole:        role.ID,
		VerificationMessage: msg.ID,
	})
	if err != nil {
		return bot.WrapInternal(err, SaveSettingsFailed)
	}

	slog.Info(fmt.Sprintf("%s - Guild %s set up (channel %s, role %s)", commandsLogPrefix, guildID, channel.ID, role.ID))
	return ic.ReplyEphemeral(ctx, SetupCompleteMessage)
}

// LookupCommand reports which member an Embark ID is linked to.
type LookupCommand struct {
	store Store
}

func (c *LookupCommand) Definition() *discordgo.ApplicationCommand {
	def := bot.ChatInputCommand(
		bot.Text("lookup"),
		bot.Text("Find the member linked to an Embark ID").
			With(discordgo.French, "Trouver le membre lié à un Embark ID"),
	)
	def.Options = []*discordgo.ApplicationCommandOption{{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         EmbarkIDInputID,
		Description:  "Embark ID such as name#1234",
		Required:     true,
		Autocomplete: true,
	}}
	return def
}

func (c *LookupCommand) Execute(ctx context.Context, ic *bot.InteractionContext, data discordgo.ApplicationCommandInteractionData) error {
	raw, _ := bot.StringOption(data, EmbarkIDInputID)
	id, err := embarkid.Parse(raw)
	if err != nil {
		return bot.ValidationError(InvalidEmbarkIDMessage)
	}

	user, err := c.store.GetUserByEmbarkID(ctx, id.String())
	if err != nil {
		return bot.WrapInternal(err, "could not look up embark id")
	}
	if user == nil {
		return ic.ReplyEphemeral(ctx, fmt.Sprintf("%s has not been claimed.", id))
	}
	return ic.ReplyEphemeral(ctx, fmt.Sprintf("%s is linked to <@%s>.", id, user.DiscordUser))
}

// Autocomplete suggests linked ids starting with what has been typed so far.
func (c *LookupCommand) Autocomplete(ctx context.Context, ic bot.InteractionContext, data discordgo.ApplicationCommandInteractionData) ([]bot.AutocompleteChoice, error) {
	prefix := ""
	if opt, ok := bot.FocusedOption(data); ok {
		if s, ok := opt.Value.(string); ok {
			prefix = strings.TrimSpace(s)
		}
	}

	ids, err := c.store.SearchEmbarkIDs(ctx, prefix, MaxAutocompleteChoices)
	if err != nil {
		return nil, err
	}
	choices := make([]bot.AutocompleteChoice, 0, len(ids))
	for _, id := range ids {
		choices = append(choices, bot.AutocompleteChoice{Name: bot.Text(id), Value: id})
	}
	return choices, ic.Autocomplete(ctx, choices)
}

// UnlinkCommand removes the invoker's Embark ID.
type UnlinkCommand struct {
	store Store
}

func (c *UnlinkCommand) Definition() *discordgo.ApplicationCommand {
	return bot.ChatInputCommand(
		bot.Text("unlink"),
		bot.Text("Remove the Embark ID linked to your account").
			With(discordgo.German, "Die mit deinem Konto verknüpfte Embark-ID entfernen"),
	)
}

func (c *UnlinkCommand) Execute(ctx context.Context, ic *bot.InteractionContext, _ discordgo.ApplicationCommandInteractionData) error {
	user := ic.User()
	if user == nil {
		return bot.InternalError("interaction has no user")
	}
	removed, err := c.store.RemoveUser(ctx, user.ID)
	if err != nil {
		return bot.WrapInternal(err, "could not unlink")
	}
	if !removed {
		return ic.ReplyEphemeral(ctx, "You have no linked Embark ID.")
	}
	slog.Info(fmt.Sprintf("%s - User %s unlinked", commandsLogPrefix, user.ID))
	return ic.ReplyEphemeral(ctx, "Your Embark ID has been unlinked.")
}
