package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// CommandBundle is one invocable command.
type CommandBundle interface {
	// Definition returns the descriptor deployed to the platform.
	Definition() *discordgo.ApplicationCommand
	// Execute runs the command. ic is owned by this invocation only.
	Execute(ctx context.Context, ic *InteractionContext, data discordgo.ApplicationCommandInteractionData) error
}

// Autocompleter is implemented by bundles that offer option suggestions. The
// implementation sends the choices itself, usually with ic.Autocomplete.
type Autocompleter interface {
	Autocomplete(ctx context.Context, ic InteractionContext, data discordgo.ApplicationCommandInteractionData) ([]AutocompleteChoice, error)
}

// Namer overrides the name derived from Definition.
type Namer interface {
	Name() string
}

// CommandName returns the registry key of b.
func CommandName(b CommandBundle) string {
	if n, ok := b.(Namer); ok {
		return n.Name()
	}
	if def := b.Definition(); def != nil {
		return def.Name
	}
	return ""
}

// ScopeKind selects which registry maps receive a command.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeGuild
	ScopeGuilds
)

// CommandScope is where a command is deployed and resolved.
type CommandScope struct {
	Kind     ScopeKind
	GuildIDs []string
}

// GlobalScope deploys a command everywhere.
func GlobalScope() CommandScope {
	return CommandScope{Kind: ScopeGlobal}
}

// GuildScope deploys a command to one guild.
func GuildScope(guildID string) CommandScope {
	return CommandScope{Kind: ScopeGuild, GuildIDs: []string{guildID}}
}

// GuildsScope deploys one shared command instance to several guilds.
func GuildsScope(guildIDs ...string) CommandScope {
	return CommandScope{Kind: ScopeGuilds, GuildIDs: guildIDs}
}

// CommandRegistration pairs a scope with the bundle to register under it.
type CommandRegistration struct {
	Scope   CommandScope
	Command CommandBundle
}

// SupportedLocales lists the locales commands may be localized for.
var SupportedLocales = []discordgo.Locale{
	discordgo.EnglishUS,
	discordgo.EnglishGB,
	discordgo.SpanishES,
	discordgo.French,
	discordgo.German,
	discordgo.Japanese,
	discordgo.Korean,
	discordgo.ChineseCN,
}

// LookupLocale returns l if it is one of SupportedLocales.
func LookupLocale(l discordgo.Locale) (discordgo.Locale, bool) {
	for _, supported := range SupportedLocales {
		if supported == l {
			return l, true
		}
	}
	return "", false
}

// LocalizedText is a default string plus per-locale overrides.
type LocalizedText struct {
	Default       string
	Localizations map[discordgo.Locale]string
}

// Text returns a LocalizedText without overrides.
func Text(s string) LocalizedText {
	return LocalizedText{Default: s}
}

// With returns a copy of t with an override for locale.
func (t LocalizedText) With(locale discordgo.Locale, text string) LocalizedText {
	out := LocalizedText{Default: t.Default, Localizations: make(map[discordgo.Locale]string, len(t.Localizations)+1)}
	for k, v := range t.Localizations {
		out.Localizations[k] = v
	}
	out.Localizations[locale] = text
	return out
}

// DiscordLocalizations returns the overrides, or nil when there are none so
// the field is omitted from the descriptor.
func (t LocalizedText) DiscordLocalizations() *map[discordgo.Locale]string {
	if len(t.Localizations) == 0 {
		return nil
	}
	m := make(map[discordgo.Locale]string, len(t.Localizations))
	for k, v := range t.Localizations {
		m[k] = v
	}
	return &m
}

// ChatInputCommand builds a slash command descriptor.
func ChatInputCommand(name, description LocalizedText) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Type:                     discordgo.ChatApplicationCommand,
		Name:                     name.Default,
		NameLocalizations:        name.DiscordLocalizations(),
		Description:              description.Default,
		DescriptionLocalizations: description.DiscordLocalizations(),
	}
}

// AutocompleteChoice is one suggested option value.
type AutocompleteChoice struct {
	Name  LocalizedText
	Value string
}

func (c AutocompleteChoice) discord() *discordgo.ApplicationCommandOptionChoice {
	choice := &discordgo.ApplicationCommandOptionChoice{
		Name:  c.Name.Default,
		Value: c.Value,
	}
	if l := c.Name.DiscordLocalizations(); l != nil {
		choice.NameLocalizations = *l
	}
	return choice
}
