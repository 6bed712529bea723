package commsutil

import "strings"

// SubjectEvents is the default base subject for relayed bot events.
const SubjectEvents = "bot.events"

// BuildEventSubject builds the per-type subject under base, e.g.
// bot.events.GuildMemberAdd. Characters that would split or wildcard a
// subject token are replaced with underscores.
func BuildEventSubject(base, eventType string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, eventType)
	if token == "" {
		token = "unknown"
	}
	return base + "." + token
}
