package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/embarklink/linkbot/pkg/platform"
)

const contextLogPrefix = "bot:context"

// Context is built once per connection and shared read-only by every handler task.
type Context struct {
	Client        platform.Client
	Cache         platform.Cache
	ApplicationID string
	Bot           *discordgo.User
}

// NewContext builds a Context from the current application and the bot user
// the session is authenticated as.
func NewContext(client platform.Client, cache platform.Cache, app *discordgo.Application, botUser *discordgo.User) (*Context, error) {
	if app == nil {
		return nil, errors.New(contextLogPrefix + " - application is nil")
	}
	if botUser == nil {
		return nil, fmt.Errorf("%s - no bot user for application %s", contextLogPrefix, app.ID)
	}
	return &Context{
		Client:        client,
		Cache:         cache,
		ApplicationID: app.ID,
		Bot:           botUser,
	}, nil
}

// LastBotMessage returns the id of the newest bot-authored message among the
// last limit messages of channelID.
func (c *Context) LastBotMessage(ctx context.Context, channelID string, limit int) (string, bool) {
	messages, err := c.Client.ChannelMessages(ctx, channelID, limit)
	if err != nil {
		return "", false
	}
	for _, m := range messages {
		if m.Author != nil && m.Author.Bot {
			return m.ID, true
		}
	}
	return "", false
}

// SendDM opens a private channel with userID and sends content to it.
func (c *Context) SendDM(ctx context.Context, userID, content string) error {
	channel, err := c.Client.CreateDMChannel(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s - failed to open DM: %w", contextLogPrefix, err)
	}
	if _, err := c.Client.CreateMessage(ctx, channel.ID, &discordgo.MessageSend{Content: content}); err != nil {
		return fmt.Errorf("%s - failed to send DM: %w", contextLogPrefix, err)
	}
	return nil
}
