package platform

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const clientLogPrefix = "platform:client"

// Client is the outbound platform surface used by the bot.
type Client interface {
	CurrentApplication(ctx context.Context) (*discordgo.Application, error)
	// CurrentUser returns the user the session is authenticated as.
	CurrentUser(ctx context.Context) (*discordgo.User, error)

	CreateInteractionResponse(ctx context.Context, interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	UpdateInteractionResponse(ctx context.Context, interaction *discordgo.Interaction, edit *discordgo.WebhookEdit) error

	// SetGlobalCommands and SetGuildCommands replace the full command set of their scope.
	SetGlobalCommands(ctx context.Context, appID string, commands []*discordgo.ApplicationCommand) error
	SetGuildCommands(ctx context.Context, appID, guildID string, commands []*discordgo.ApplicationCommand) error

	CreateRole(ctx context.Context, guildID string, params *discordgo.RoleParams) (*discordgo.Role, error)
	CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
	CreateMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	UpdateMember(ctx context.Context, guildID, userID string, params *discordgo.GuildMemberParams) error
	ChannelMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error)
	CreateDMChannel(ctx context.Context, userID string) (*discordgo.Channel, error)
}

// DiscordClient implements Client over a discordgo session's REST methods.
type DiscordClient struct {
	session *discordgo.Session
}

// NewDiscordClient creates a DiscordClient.
func NewDiscordClient(session *discordgo.Session) *DiscordClient {
	return &DiscordClient{session: session}
}

// CurrentApplication fetches the application of the session's token. discordgo
// does not accept request options here, so ctx is only checked before the call.
func (c *DiscordClient) CurrentApplication(ctx context.Context) (*discordgo.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s - failed to get current application: %w", clientLogPrefix, err)
	}
	app, err := c.session.Application("@me")
	if err != nil {
		return nil, fmt.Errorf("%s - failed to get current application: %w", clientLogPrefix, err)
	}
	return app, nil
}

func (c *DiscordClient) CurrentUser(ctx context.Context) (*discordgo.User, error) {
	user, err := c.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s - failed to get current user: %w", clientLogPrefix, err)
	}
	return user, nil
}

func (c *DiscordClient) CreateInteractionResponse(ctx context.Context, interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	if err := c.session.InteractionRespond(interaction, resp, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%s - failed to create interaction response: %w", clientLogPrefix, err)
	}
	return nil
}

func (c *DiscordClient) UpdateInteractionResponse(ctx context.Context, interaction *discordgo.Interaction, edit *discordgo.WebhookEdit) error {
	if _, err := c.session.InteractionResponseEdit(interaction, edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%s - failed to update interaction response: %w", clientLogPrefix, err)
	}
	return nil
}

func (c *DiscordClient) SetGlobalCommands(ctx context.Context, appID string, commands []*discordgo.ApplicationCommand) error {
	if _, err := c.session.ApplicationCommandBulkOverwrite(appID, "", commands, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%s - failed to set global commands: %w", clientLogPrefix, err)
	}
	return nil
}

func (c *DiscordClient) SetGuildCommands(ctx context.Context, appID, guildID string, commands []*discordgo.ApplicationCommand) error {
	if _, err := c.session.ApplicationCommandBulkOverwrite(appID, guildID, commands, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%s - failed to set commands for guild %s: %w", clientLogPrefix, guildID, err)
	}
	return nil
}

func (c *DiscordClient) CreateRole(ctx context.Context, guildID string, params *discordgo.RoleParams) (*discordgo.Role, error) {
	role, err := c.session.GuildRoleCreate(guildID, params, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create role in guild %s: %w", clientLogPrefix, guildID, err)
	}
	return role, nil
}

func (c *DiscordClient) CreateChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	channel, err := c.session.GuildChannelCreateComplex(guildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create channel in guild %s: %w", clientLogPrefix, guildID, err)
	}
	return channel, nil
}

func (c *DiscordClient) CreateMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	message, err := c.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create message in channel %s: %w", clientLogPrefix, channelID, err)
	}
	return message, nil
}

func (c *DiscordClient) GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	member, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s - failed to get member %s of guild %s: %w", clientLogPrefix, userID, guildID, err)
	}
	return member, nil
}

func (c *DiscordClient) UpdateMember(ctx context.Context, guildID, userID string, params *discordgo.GuildMemberParams) error {
	if _, err := c.session.GuildMemberEdit(guildID, userID, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%s - failed to update member %s of guild %s: %w", clientLogPrefix, userID, guildID, err)
	}
	return nil
}

func (c *DiscordClient) ChannelMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	messages, err := c.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s - failed to list messages in channel %s: %w", clientLogPrefix, channelID, err)
	}
	return messages, nil
}

func (c *DiscordClient) CreateDMChannel(ctx context.Context, userID string) (*discordgo.Channel, error) {
	channel, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s - failed to open DM channel with %s: %w", clientLogPrefix, userID, err)
	}
	return channel, nil
}
