package db

import "time"

// GuildSettings is the verification setup of one guild.
type GuildSettings struct {
	GuildID             string
	VerificationChannel string
	VerifiedRole        string
	VerificationMessage string
	Created             time.Time
	Modified            time.Time
}

// User links a platform user to an Embark ID.
type User struct {
	DiscordUser string
	EmbarkID    string
	Created     time.Time
}
