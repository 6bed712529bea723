package commsutil

import "testing"

func TestBuildEventSubject(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		eventType string
		want      string
	}{
		{"default base", SubjectEvents, "GuildMemberAdd", "bot.events.GuildMemberAdd"},
		{"custom base", "prod.linkbot", "InteractionCreate", "prod.linkbot.InteractionCreate"},
		{"dotted type", SubjectEvents, "a.b", "bot.events.a_b"},
		{"wildcards", SubjectEvents, "*>", "bot.events.__"},
		{"empty type", SubjectEvents, "", "bot.events.unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildEventSubject(tt.base, tt.eventType)
			if got != tt.want {
				t.Errorf("BuildEventSubject(%q, %q) = %q, want %q", tt.base, tt.eventType, got, tt.want)
			}
		})
	}
}
