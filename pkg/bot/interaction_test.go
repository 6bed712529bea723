package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/embarklink/linkbot/pkg/platform/platformtest"
)

const interactionTestPrefix = "bot:interaction_test"

func TestRespond_CreateThenUpdate(t *testing.T) {
	bc, client := newTestContext(t)
	ic := NewInteractionContext(bc, commandInteraction("run", "g1"))
	ctx := context.Background()

	if ic.Replied() {
		t.Fatalf("%s - new context already replied", interactionTestPrefix)
	}
	for i, content := range []string{"one", "two", "three"} {
		if err := ic.Reply(ctx, content); err != nil {
			t.Fatalf("%s - Reply #%d error: %v", interactionTestPrefix, i+1, err)
		}
	}
	if !ic.Replied() {
		t.Errorf("%s - context not marked replied", interactionTestPrefix)
	}

	creates := client.CallsTo(platformtest.MethodCreateInteractionResponse)
	updates := client.CallsTo(platformtest.MethodUpdateInteractionResponse)
	if len(creates) != 1 {
		t.Fatalf("%s - create calls = %d, want 1", interactionTestPrefix, len(creates))
	}
	if len(updates) != 2 {
		t.Fatalf("%s - update calls = %d, want 2", interactionTestPrefix, len(updates))
	}
	if creates[0].Response.Data.Content != "one" {
		t.Errorf("%s - create content = %q, want one", interactionTestPrefix, creates[0].Response.Data.Content)
	}
	for i, want := range []string{"two", "three"} {
		if got := *updates[i].Edit.Content; got != want {
			t.Errorf("%s - update #%d content = %q, want %q", interactionTestPrefix, i+1, got, want)
		}
	}
}

func TestRespond_UpdateReplacesEverything(t *testing.T) {
	bc, client := newTestContext(t)
	ic := NewInteractionContext(bc, commandInteraction("run", ""))
	ctx := context.Background()

	if err := ic.ReplyEphemeral(ctx, "first"); err != nil {
		t.Fatalf("%s - ReplyEphemeral error: %v", interactionTestPrefix, err)
	}
	if err := ic.Reply(ctx, "second"); err != nil {
		t.Fatalf("%s - Reply error: %v", interactionTestPrefix, err)
	}

	updates := client.CallsTo(platformtest.MethodUpdateInteractionResponse)
	if len(updates) != 1 {
		t.Fatalf("%s - update calls = %d, want 1", interactionTestPrefix, len(updates))
	}
	edit := updates[0].Edit
	if edit.Attachments == nil || len(*edit.Attachments) != 0 {
		t.Errorf("%s - update must send an empty attachment list", interactionTestPrefix)
	}
	if edit.Embeds == nil || len(*edit.Embeds) != 0 {
		t.Errorf("%s - update must clear embeds", interactionTestPrefix)
	}
	if edit.Components == nil || len(*edit.Components) != 0 {
		t.Errorf("%s - update must clear components", interactionTestPrefix)
	}
}

func TestRespond_NilDataAfterReplyIsNoop(t *testing.T) {
	bc, client := newTestContext(t)
	ic := NewInteractionContext(bc, commandInteraction("run", ""))
	ctx := context.Background()

	if err := ic.DeferredUpdateMessage(ctx); err != nil {
		t.Fatalf("%s - DeferredUpdateMessage error: %v", interactionTestPrefix, err)
	}
	if err := ic.DeferredUpdateMessage(ctx); err != nil {
		t.Fatalf("%s - second DeferredUpdateMessage error: %v", interactionTestPrefix, err)
	}
	if n := len(client.Calls()); n != 1 {
		t.Errorf("%s - calls = %d, want 1", interactionTestPrefix, n)
	}
}

func TestRespond_FailedCreateStaysNotReplied(t *testing.T) {
	bc, client := newTestContext(t)
	client.Fail(platformtest.MethodCreateInteractionResponse, errors.New("rate limited"))
	ic := NewInteractionContext(bc, commandInteraction("run", ""))

	err := ic.Reply(context.Background(), "hello")
	if AsCommandError(err).Kind != ErrorKindHTTP {
		t.Errorf("%s - Reply error = %v, want an HTTP error", interactionTestPrefix, err)
	}
	if ic.Replied() {
		t.Errorf("%s - failed create marked the context replied", interactionTestPrefix)
	}
}

func TestDeferredUpdateMessage_Kind(t *testing.T) {
	tests := []struct {
		name string
		kind discordgo.InteractionType
		want discordgo.InteractionResponseType
	}{
		{"command", discordgo.InteractionApplicationCommand, discordgo.InteractionResponseDeferredChannelMessageWithSource},
		{"component", discordgo.InteractionMessageComponent, discordgo.InteractionResponseDeferredMessageUpdate},
		{"modal", discordgo.InteractionModalSubmit, discordgo.InteractionResponseDeferredChannelMessageWithSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc, client := newTestContext(t)
			ic := NewInteractionContext(bc, &discordgo.Interaction{ID: "i", Type: tt.kind})
			if err := ic.DeferredUpdateMessage(context.Background()); err != nil {
				t.Fatalf("%s - DeferredUpdateMessage error: %v", interactionTestPrefix, err)
			}
			calls := client.CallsTo(platformtest.MethodCreateInteractionResponse)
			if len(calls) != 1 || calls[0].Response.Type != tt.want {
				t.Errorf("%s - response = %+v, want type %v", interactionTestPrefix, calls, tt.want)
			}
		})
	}
}

func TestReplyEphemeral_SetsFlag(t *testing.T) {
	bc, client := newTestContext(t)
	ic := NewInteractionContext(bc, commandInteraction("run", ""))
	if err := ic.ReplyEphemeral(context.Background(), "secret"); err != nil {
		t.Fatalf("%s - ReplyEphemeral error: %v", interactionTestPrefix, err)
	}
	resp := client.CallsTo(platformtest.MethodCreateInteractionResponse)[0].Response
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Errorf("%s - ephemeral flag not set", interactionTestPrefix)
	}
}

func TestAutocomplete_LeavesReplyStateUntouched(t *testing.T) {
	bc, client := newTestContext(t)
	ic := NewInteractionContext(bc, commandInteraction("lookup", ""))
	choices := []AutocompleteChoice{
		{Name: Text("ace#0001"), Value: "ace#0001"},
		{Name: Text("bee#0002").With(discordgo.French, "abeille#0002"), Value: "bee#0002"},
	}

	if err := ic.Autocomplete(context.Background(), choices); err != nil {
		t.Fatalf("%s - Autocomplete error: %v", interactionTestPrefix, err)
	}
	if ic.Replied() {
		t.Errorf("%s - Autocomplete changed the reply state", interactionTestPrefix)
	}

	resp := client.CallsTo(platformtest.MethodCreateInteractionResponse)[0].Response
	if resp.Type != discordgo.InteractionApplicationCommandAutocompleteResult {
		t.Errorf("%s - response type = %v", interactionTestPrefix, resp.Type)
	}
	got := resp.Data.Choices
	if len(got) != 2 {
		t.Fatalf("%s - choices = %d, want 2", interactionTestPrefix, len(got))
	}
	if got[0].NameLocalizations != nil {
		t.Errorf("%s - choice without overrides carries localizations", interactionTestPrefix)
	}
	if got[1].NameLocalizations[discordgo.French] != "abeille#0002" {
		t.Errorf("%s - French override missing: %+v", interactionTestPrefix, got[1].NameLocalizations)
	}
}

func TestShowModal(t *testing.T) {
	bc, client := newTestContext(t)
	ic := NewInteractionContext(bc, &discordgo.Interaction{ID: "i", Type: discordgo.InteractionMessageComponent})
	if err := ic.ShowModal(context.Background(), "form", "Title"); err != nil {
		t.Fatalf("%s - ShowModal error: %v", interactionTestPrefix, err)
	}
	resp := client.CallsTo(platformtest.MethodCreateInteractionResponse)[0].Response
	if resp.Type != discordgo.InteractionResponseModal || resp.Data.CustomID != "form" {
		t.Errorf("%s - modal response = %+v", interactionTestPrefix, resp)
	}
}

func TestInteractionContext_Accessors(t *testing.T) {
	bc, _ := newTestContext(t)
	i := commandInteraction("run", "g1")
	i.Locale = discordgo.German
	i.Member = &discordgo.Member{User: &discordgo.User{ID: "u1"}}
	ic := NewInteractionContext(bc, i)

	if ic.GuildID() != "g1" {
		t.Errorf("%s - GuildID() = %q", interactionTestPrefix, ic.GuildID())
	}
	if l, ok := ic.Locale(); !ok || l != discordgo.German {
		t.Errorf("%s - Locale() = %q, %v", interactionTestPrefix, l, ok)
	}
	if ic.User().ID != "u1" {
		t.Errorf("%s - User() = %+v", interactionTestPrefix, ic.User())
	}
	if ic.Context() != bc || ic.Interaction() != i {
		t.Errorf("%s - accessors return foreign values", interactionTestPrefix)
	}

	i.Locale = discordgo.Thai
	if _, ok := ic.Locale(); ok {
		t.Errorf("%s - unsupported locale resolved", interactionTestPrefix)
	}
}

func TestOptionHelpers(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "lookup",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "embark_id", Type: discordgo.ApplicationCommandOptionString, Value: "ace#0001", Focused: true},
			{Name: "limit", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(10)},
			{Name: "flag", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
		},
	}

	if s, ok := StringOption(data, "embark_id"); !ok || s != "ace#0001" {
		t.Errorf("%s - StringOption(embark_id) = %q, %v", interactionTestPrefix, s, ok)
	}
	if n, ok := IntegerOption(data, "limit"); !ok || n != 10 {
		t.Errorf("%s - IntegerOption(limit) = %d, %v", interactionTestPrefix, n, ok)
	}
	if _, ok := StringOption(data, "limit"); ok {
		t.Errorf("%s - StringOption matched an integer option", interactionTestPrefix)
	}
	if _, ok := IntegerOption(data, "flag"); ok {
		t.Errorf("%s - IntegerOption matched a boolean option", interactionTestPrefix)
	}
	if _, ok := StringOption(data, "absent"); ok {
		t.Errorf("%s - StringOption found an absent option", interactionTestPrefix)
	}
	if opt, ok := FocusedOption(data); !ok || opt.Name != "embark_id" {
		t.Errorf("%s - FocusedOption() = %+v, %v", interactionTestPrefix, opt, ok)
	}
}
