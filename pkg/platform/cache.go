package platform

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

const cacheLogPrefix = "platform:cache"

// Cache is the entity cache shared by all handlers. Readers may run
// concurrently; Update is only called by the dispatch loop.
type Cache interface {
	Update(ev Event)
	// GuildName returns the cached name of guildID.
	GuildName(guildID string) (string, bool)
	// UserGuilds returns the cached guilds userID is a member of.
	UserGuilds(userID string) []string
}

// StateCache is a Cache backed by a private discordgo.State.
type StateCache struct {
	state *discordgo.State
	// owner only carries the StateEnabled flag discordgo consults while applying events.
	owner *discordgo.Session
}

// NewStateCache creates an empty cache tracking guilds, channels, members and roles.
func NewStateCache() *StateCache {
	state := discordgo.NewState()
	state.TrackPresences = false
	state.TrackVoice = false
	return &StateCache{
		state: state,
		owner: &discordgo.Session{StateEnabled: true},
	}
}

func (c *StateCache) Update(ev Event) {
	if err := c.state.OnInterface(c.owner, ev); err != nil {
		slog.Debug(fmt.Sprintf("%s - failed to apply %s: %v", cacheLogPrefix, EventName(ev), err))
	}
}

func (c *StateCache) GuildName(guildID string) (string, bool) {
	guild, err := c.state.Guild(guildID)
	if err != nil || guild.Name == "" {
		return "", false
	}
	return guild.Name, true
}

func (c *StateCache) UserGuilds(userID string) []string {
	c.state.RLock()
	guildIDs := make([]string, 0, len(c.state.Guilds))
	for _, g := range c.state.Guilds {
		guildIDs = append(guildIDs, g.ID)
	}
	c.state.RUnlock()

	var out []string
	for _, guildID := range guildIDs {
		if _, err := c.state.Member(guildID, userID); err == nil {
			out = append(out, guildID)
		}
	}
	return out
}
