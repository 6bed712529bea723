package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// InteractionContext mediates every response to one interaction. The first
// Respond creates the interaction response; every later Respond updates it.
// An InteractionContext belongs to a single invocation and is not safe for
// concurrent use.
type InteractionContext struct {
	bc          *Context
	interaction *discordgo.Interaction
	replied     bool
}

// NewInteractionContext starts the response protocol for interaction in the NotReplied state.
func NewInteractionContext(bc *Context, interaction *discordgo.Interaction) *InteractionContext {
	return &InteractionContext{bc: bc, interaction: interaction}
}

// Context returns the shared bot context.
func (ic *InteractionContext) Context() *Context { return ic.bc }

// Interaction returns the interaction being answered.
func (ic *InteractionContext) Interaction() *discordgo.Interaction { return ic.interaction }

// Replied reports whether a response has been created.
func (ic *InteractionContext) Replied() bool { return ic.replied }

// GuildID returns the guild the interaction happened in, or "" in DMs.
func (ic *InteractionContext) GuildID() string { return ic.interaction.GuildID }

// User returns the invoking user, whether in a guild or a DM.
func (ic *InteractionContext) User() *discordgo.User {
	if ic.interaction.Member != nil && ic.interaction.Member.User != nil {
		return ic.interaction.Member.User
	}
	return ic.interaction.User
}

// Locale returns the invoker's locale when it is one of SupportedLocales.
func (ic *InteractionContext) Locale() (discordgo.Locale, bool) {
	return LookupLocale(ic.interaction.Locale)
}

// Respond sends resp. Before the first successful response it creates the
// interaction response with the full payload. Afterwards it updates the
// existing response from resp.Data only: the response type and flags cannot
// change, and the update replaces content, embeds, components and attachments
// rather than merging them. A later resp without data is a no-op.
func (ic *InteractionContext) Respond(ctx context.Context, resp *discordgo.InteractionResponse) error {
	if ic.replied {
		if resp.Data == nil {
			return nil
		}
		return ic.Update(ctx, editFromResponse(resp.Data))
	}

	if err := ic.bc.Client.CreateInteractionResponse(ctx, ic.interaction, resp); err != nil {
		return HTTPError(err)
	}
	ic.replied = true
	return nil
}

// Update edits the created response with edit as given.
func (ic *InteractionContext) Update(ctx context.Context, edit *discordgo.WebhookEdit) error {
	if err := ic.bc.Client.UpdateInteractionResponse(ctx, ic.interaction, edit); err != nil {
		return HTTPError(err)
	}
	return nil
}

// DeferredUpdateMessage acknowledges the interaction without content. The
// platform then shows a loading state until the response is updated.
func (ic *InteractionContext) DeferredUpdateMessage(ctx context.Context) error {
	kind := discordgo.InteractionResponseDeferredChannelMessageWithSource
	if ic.interaction.Type == discordgo.InteractionMessageComponent {
		kind = discordgo.InteractionResponseDeferredMessageUpdate
	}
	return ic.Respond(ctx, &discordgo.InteractionResponse{Type: kind})
}

// Reply sends a public message.
func (ic *InteractionContext) Reply(ctx context.Context, content string) error {
	return ic.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

// ReplyEphemeral sends a message only the invoker can see.
func (ic *InteractionContext) ReplyEphemeral(ctx context.Context, content string) error {
	return ic.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// Autocomplete answers an autocomplete interaction with choices. An
// autocomplete interaction takes exactly one response, so this creates it
// directly and leaves the Replied state untouched.
func (ic *InteractionContext) Autocomplete(ctx context.Context, choices []AutocompleteChoice) error {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(choices))
	for _, c := range choices {
		out = append(out, c.discord())
	}
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: out},
	}
	if err := ic.bc.Client.CreateInteractionResponse(ctx, ic.interaction, resp); err != nil {
		return HTTPError(err)
	}
	return nil
}

// ShowModal opens a modal form as the first response.
func (ic *InteractionContext) ShowModal(ctx context.Context, customID, title string, components ...discordgo.MessageComponent) error {
	return ic.Respond(ctx, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: components,
		},
	})
}

func editFromResponse(data *discordgo.InteractionResponseData) *discordgo.WebhookEdit {
	content := data.Content
	embeds := data.Embeds
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	components := data.Components
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	keep := []*discordgo.MessageAttachment{}
	return &discordgo.WebhookEdit{
		Content:         &content,
		Embeds:          &embeds,
		Components:      &components,
		AllowedMentions: data.AllowedMentions,
		Files:           data.Files,
		Attachments:     &keep,
	}
}

// StringOption returns the first string value of the option called name.
func StringOption(data discordgo.ApplicationCommandInteractionData, name string) (string, bool) {
	for _, opt := range data.Options {
		if opt.Name != name || opt.Type != discordgo.ApplicationCommandOptionString {
			continue
		}
		if s, ok := opt.Value.(string); ok {
			return s, true
		}
	}
	return "", false
}

// IntegerOption returns the first integer value of the option called name.
// Decoded JSON carries integers as float64.
func IntegerOption(data discordgo.ApplicationCommandInteractionData, name string) (int64, bool) {
	for _, opt := range data.Options {
		if opt.Name != name || opt.Type != discordgo.ApplicationCommandOptionInteger {
			continue
		}
		switch v := opt.Value.(type) {
		case float64:
			return int64(v), true
		case int64:
			return v, true
		case int:
			return int64(v), true
		}
	}
	return 0, false
}

// FocusedOption returns the option the user is typing into during autocomplete.
func FocusedOption(data discordgo.ApplicationCommandInteractionData) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	for _, opt := range data.Options {
		if opt.Focused {
			return opt, true
		}
	}
	return nil, false
}
