package linking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/embarklink/linkbot/pkg/bot"
	"github.com/embarklink/linkbot/pkg/db"
)

const syncLogPrefix = "linking:sync"

// syncMember grants the verified role and sets the nickname to the Embark ID.
func syncMember(ctx context.Context, bc *bot.Context, settings *db.GuildSettings, userID, embarkID string) error {
	member, err := bc.Client.GuildMember(ctx, settings.GuildID, userID)
	if err != nil {
		return fmt.Errorf("%s - failed to fetch member %s: %w", syncLogPrefix, userID, err)
	}

	roles := make([]string, 0, len(member.Roles)+1)
	hasRole := false
	for _, r := range member.Roles {
		if r == settings.VerifiedRole {
			hasRole = true
		}
		roles = append(roles, r)
	}
	if !hasRole {
		roles = append(roles, settings.VerifiedRole)
	}

	params := &discordgo.GuildMemberParams{Roles: &roles, Nick: embarkID}
	if err := bc.Client.UpdateMember(ctx, settings.GuildID, userID, params); err != nil {
		return fmt.Errorf("%s - failed to update member %s: %w", syncLogPrefix, userID, err)
	}
	slog.Info(fmt.Sprintf("%s - Verified %s in guild %s", syncLogPrefix, userID, settings.GuildID))
	return nil
}

// syncEverywhere syncs userID in guildID and in every other configured guild
// the cache reports them in. Failures are logged per guild.
func (l *Linker) syncEverywhere(ctx context.Context, bc *bot.Context, guildID string, settings *db.GuildSettings, userID, embarkID string) {
	if err := syncMember(ctx, bc, settings, userID, embarkID); err != nil {
		slog.Error(err.Error())
	}
	if bc.Cache == nil {
		return
	}
	for _, other := range bc.Cache.UserGuilds(userID) {
		if other == guildID {
			continue
		}
		otherSettings, err := l.store.GetGuildSettings(ctx, other)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to load settings for guild %s: %v", syncLogPrefix, other, err))
			continue
		}
		if otherSettings == nil {
			continue
		}
		if err := syncMember(ctx, bc, otherSettings, userID, embarkID); err != nil {
			slog.Error(err.Error())
		}
	}
}
