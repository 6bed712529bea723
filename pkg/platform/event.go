// Package platform adapts the Discord chat platform for the bot core: an
// outbound REST client, an ordered inbound event stream and an entity cache.
package platform

import (
	"fmt"
	"strings"
)

// Event is one typed gateway payload, e.g. *discordgo.GuildMemberAdd or
// *discordgo.InteractionCreate. Events are shared read-only by every handler
// processing them.
type Event interface{}

// EventName returns the payload type name of ev, e.g. "GuildMemberAdd".
func EventName(ev Event) string {
	if ev == nil {
		return ""
	}
	name := fmt.Sprintf("%T", ev)
	name = strings.TrimLeft(name, "*")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
