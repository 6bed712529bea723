package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/embarklink/linkbot/pkg/bot"
	"github.com/embarklink/linkbot/pkg/db"
	"github.com/embarklink/linkbot/pkg/embarkid"
)

const verifyLogPrefix = "linking:verify"

// Replies to a verification submission.
const (
	InvalidEmbarkIDMessage = "Invalid Embark ID"
	ClaimedEmbarkIDMessage = "Someone has already claimed this Embark ID"
)

func verificationModal() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    EmbarkIDInputID,
				Label:       "Embark ID",
				Style:       discordgo.TextInputShort,
				Placeholder: "name#1234",
				Required:    true,
				MinLength:   7,
				MaxLength:   21,
			},
		}},
	}
}

func (l *Linker) showVerificationModal(ctx context.Context, ic *bot.InteractionContext) {
	if err := ic.ShowModal(ctx, VerificationModalID, "Verify your Embark ID", verificationModal()...); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to show verification modal: %v", verifyLogPrefix, err))
	}
}

func (l *Linker) submitVerification(ctx context.Context, ic *bot.InteractionContext, data discordgo.ModalSubmitInteractionData) {
	user := ic.User()
	if user == nil {
		return
	}

	id, err := embarkid.Parse(textInputValue(data.Components, EmbarkIDInputID))
	if err != nil {
		l.reply(ctx, ic, InvalidEmbarkIDMessage)
		return
	}
	embarkID := id.String()

	owner, err := l.store.GetUserByEmbarkID(ctx, embarkID)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to look up %s: %v", verifyLogPrefix, embarkID, err))
		l.reply(ctx, ic, bot.GenericErrorMessage)
		return
	}
	if owner != nil && owner.DiscordUser != user.ID {
		l.reply(ctx, ic, ClaimedEmbarkIDMessage)
		return
	}

	if err := l.link(ctx, user.ID, embarkID); err != nil {
		slog.Error(err.Error())
		if errors.Is(err, db.ErrEmbarkIDTaken) {
			l.reply(ctx, ic, ClaimedEmbarkIDMessage)
		} else {
			l.reply(ctx, ic, bot.GenericErrorMessage)
		}
		return
	}
	l.reply(ctx, ic, "You entered: "+embarkID)

	guildID := ic.GuildID()
	if guildID == "" {
		return
	}
	settings, err := l.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to load settings for guild %s: %v", verifyLogPrefix, guildID, err))
		return
	}
	if settings == nil {
		return
	}
	if err := syncMember(ctx, ic.Context(), settings, user.ID, embarkID); err != nil {
		slog.Error(err.Error())
	}
}

// link records embarkID for userID, relinking users that already have an id.
// It returns db.ErrEmbarkIDTaken when another user holds embarkID, including
// when that user claimed it between the caller's check and the insert.
func (l *Linker) link(ctx context.Context, userID, embarkID string) error {
	existing, err := l.store.GetUserByDiscordID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s - failed to load user %s: %w", verifyLogPrefix, userID, err)
	}
	if existing != nil && existing.EmbarkID == embarkID {
		return nil
	}
	if existing == nil {
		inserted, err := l.store.AddUser(ctx, userID, embarkID)
		if err != nil {
			return fmt.Errorf("%s - failed to add user %s: %w", verifyLogPrefix, userID, err)
		}
		if inserted {
			return nil
		}
		// The insert was ignored: either embarkID or userID got a row meanwhile.
		owner, err := l.store.GetUserByEmbarkID(ctx, embarkID)
		if err != nil {
			return fmt.Errorf("%s - failed to look up %s: %w", verifyLogPrefix, embarkID, err)
		}
		if owner != nil {
			if owner.DiscordUser == userID {
				return nil
			}
			return fmt.Errorf("%s - %s was claimed by %s: %w", verifyLogPrefix, embarkID, owner.DiscordUser, db.ErrEmbarkIDTaken)
		}
	}
	updated, err := l.store.UpdateUserEmbarkID(ctx, userID, embarkID)
	if err != nil {
		return fmt.Errorf("%s - failed to relink user %s: %w", verifyLogPrefix, userID, err)
	}
	if !updated {
		return fmt.Errorf("%s - user %s disappeared while linking %s", verifyLogPrefix, userID, embarkID)
	}
	return nil
}

func (l *Linker) reply(ctx context.Context, ic *bot.InteractionContext, content string) {
	if err := ic.ReplyEphemeral(ctx, content); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to reply: %v", verifyLogPrefix, err))
	}
}

// textInputValue finds the text input customID among submitted modal rows.
func textInputValue(components []discordgo.MessageComponent, customID string) string {
	for _, c := range components {
		var children []discordgo.MessageComponent
		switch row := c.(type) {
		case *discordgo.ActionsRow:
			children = row.Components
		case discordgo.ActionsRow:
			children = row.Components
		}
		for _, child := range children {
			switch input := child.(type) {
			case *discordgo.TextInput:
				if input.CustomID == customID {
					return strings.TrimSpace(input.Value)
				}
			case discordgo.TextInput:
				if input.CustomID == customID {
					return strings.TrimSpace(input.Value)
				}
			}
		}
	}
	return ""
}
