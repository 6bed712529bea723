package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/embarklink/linkbot/pkg/platform"
)

const registryLogPrefix = "bot:registry"

// GenericErrorMessage is shown to the invoker for HTTP and internal failures.
const GenericErrorMessage = "Something went wrong while running this command."

// maxParallelGuildDeploys bounds concurrent per-guild deploy calls.
const maxParallelGuildDeploys = 4

// CommandRegistry resolves command names to bundles. It is built once before
// the receive loop starts and is read-only afterwards.
type CommandRegistry struct {
	global map[string]CommandBundle
	guilds map[string]map[string]CommandBundle
}

// NewCommandRegistry returns an empty registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		global: make(map[string]CommandBundle),
		guilds: make(map[string]map[string]CommandBundle),
	}
}

// RegisterCommands inserts every registration. A later registration with the
// same name in the same scope replaces the earlier one.
func (r *CommandRegistry) RegisterCommands(regs []CommandRegistration) {
	for _, reg := range regs {
		if reg.Command == nil {
			continue
		}
		name := CommandName(reg.Command)
		switch reg.Scope.Kind {
		case ScopeGlobal:
			r.global[name] = reg.Command
			slog.Info(fmt.Sprintf("%s - Registered global command %s", registryLogPrefix, name))
		case ScopeGuild, ScopeGuilds:
			for _, guildID := range reg.Scope.GuildIDs {
				r.guildMap(guildID)[name] = reg.Command
			}
			slog.Info(fmt.Sprintf("%s - Registered command %s for guilds %v", registryLogPrefix, name, reg.Scope.GuildIDs))
		}
	}
}

func (r *CommandRegistry) guildMap(guildID string) map[string]CommandBundle {
	m, ok := r.guilds[guildID]
	if !ok {
		m = make(map[string]CommandBundle)
		r.guilds[guildID] = m
	}
	return m
}

// FindCommand resolves name within guildID, falling back to the global
// commands. An empty guildID only consults the global commands.
func (r *CommandRegistry) FindCommand(name, guildID string) (CommandBundle, bool) {
	if guildID != "" {
		if cmd, ok := r.guilds[guildID][name]; ok {
			return cmd, true
		}
	}
	cmd, ok := r.global[name]
	return cmd, ok
}

// Deploy replaces the deployed global commands and the commands of every guild
// with at least one entry. Any failure is returned.
func (r *CommandRegistry) Deploy(ctx context.Context, bc *Context) error {
	if len(r.global) > 0 {
		defs := definitions(r.global)
		if err := bc.Client.SetGlobalCommands(ctx, bc.ApplicationID, defs); err != nil {
			return fmt.Errorf("%s - failed to deploy global commands: %w", registryLogPrefix, err)
		}
		slog.Info(fmt.Sprintf("%s - Deployed %d global commands", registryLogPrefix, len(defs)))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelGuildDeploys)
	for guildID, cmds := range r.guilds {
		if len(cmds) == 0 {
			continue
		}
		guildID, defs := guildID, definitions(cmds)
		g.Go(func() error {
			if err := bc.Client.SetGuildCommands(gctx, bc.ApplicationID, guildID, defs); err != nil {
				return fmt.Errorf("%s - failed to deploy commands for guild %s: %w", registryLogPrefix, guildID, err)
			}
			slog.Info(fmt.Sprintf("%s - Deployed %d commands to guild %s", registryLogPrefix, len(defs), guildID))
			return nil
		})
	}
	return g.Wait()
}

func definitions(cmds map[string]CommandBundle) []*discordgo.ApplicationCommand {
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]*discordgo.ApplicationCommand, 0, len(names))
	for _, name := range names {
		defs = append(defs, cmds[name].Definition())
	}
	return defs
}

// Handle routes interaction events.
func (r *CommandRegistry) Handle(ctx context.Context, bc *Context, ev platform.Event) {
	if ic, ok := ev.(*discordgo.InteractionCreate); ok && ic.Interaction != nil {
		r.HandleInteraction(ctx, bc, ic.Interaction)
	}
}

// Commands returns nil; the registry declares no commands of its own.
func (r *CommandRegistry) Commands() []CommandRegistration { return nil }

// HandleInteraction executes or autocompletes the command named by i.
func (r *CommandRegistry) HandleInteraction(ctx context.Context, bc *Context, i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		cmd, ok := r.FindCommand(data.Name, i.GuildID)
		if !ok {
			return
		}
		ic := NewInteractionContext(bc, i)
		if err := cmd.Execute(ctx, ic, data); err != nil {
			r.replyError(ctx, ic, data.Name, err)
		}
	case discordgo.InteractionApplicationCommandAutocomplete:
		data := i.ApplicationCommandData()
		cmd, ok := r.FindCommand(data.Name, i.GuildID)
		if !ok {
			return
		}
		ac, ok := cmd.(Autocompleter)
		if !ok {
			return
		}
		if _, err := ac.Autocomplete(ctx, *NewInteractionContext(bc, i), data); err != nil {
			slog.Error(fmt.Sprintf("%s - Autocomplete for %s failed: %v", registryLogPrefix, data.Name, err))
		}
	}
}

func (r *CommandRegistry) replyError(ctx context.Context, ic *InteractionContext, name string, err error) {
	cmdErr := AsCommandError(err)
	message := GenericErrorMessage
	if cmdErr.Kind == ErrorKindValidation {
		message = cmdErr.Message
	}
	slog.Error(fmt.Sprintf("%s - Command %s failed: %v", registryLogPrefix, name, cmdErr))

	if rerr := ic.ReplyEphemeral(ctx, message); rerr != nil {
		slog.Error(fmt.Sprintf("%s - failed to send error reply for %s: %v", registryLogPrefix, name, rerr))
	}
}
