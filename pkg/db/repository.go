package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

// ErrEmbarkIDTaken is returned when an Embark ID is already linked to another user.
var ErrEmbarkIDTaken = errors.New("db: embark id already linked")

const uniqueViolation = "23505"

// Repository provides database access for guild settings and linked users.
// It is safe for concurrent use; pgxpool hands each call its own connection.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// =========================================================================
// GUILD SETTINGS
// =========================================================================

// GetGuildSettings returns the settings of guildID, or nil if the guild has not been set up.
func (r *Repository) GetGuildSettings(ctx context.Context, guildID string) (*GuildSettings, error) {
	slog.Debug(fmt.Sprintf("%s - GetGuildSettings guild=%s", repoLogPrefix, guildID))

	row := r.pool.QueryRow(ctx,
		`SELECT guild_id, verification_channel, verified_role, verification_message, created, modified
		 FROM guild_settings
		 WHERE guild_id = $1`, guildID)

	return scanGuildSettings(row)
}

// SetGuildSettings creates or replaces the settings of s.GuildID.
func (r *Repository) SetGuildSettings(ctx context.Context, s GuildSettings) (*GuildSettings, error) {
	slog.Info(fmt.Sprintf("%s - SetGuildSettings guild=%s", repoLogPrefix, s.GuildID))

	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO guild_settings (guild_id, verification_channel, verified_role, verification_message, created, modified)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (guild_id) DO UPDATE SET
		   verification_channel = EXCLUDED.verification_channel,
		   verified_role = EXCLUDED.verified_role,
		   verification_message = EXCLUDED.verification_message,
		   modified = EXCLUDED.modified
		 RETURNING guild_id, verification_channel, verified_role, verification_message, created, modified`,
		s.GuildID, s.VerificationChannel, s.VerifiedRole, s.VerificationMessage, now)

	return scanGuildSettings(row)
}

// =========================================================================
// USERS
// =========================================================================

// GetUserByDiscordID returns the link of discordUser, or nil if unlinked.
func (r *Repository) GetUserByDiscordID(ctx context.Context, discordUser string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT discord_user, embark_id, created FROM users WHERE discord_user = $1`, discordUser)
	return scanUser(row)
}

// GetUserByEmbarkID returns the user linked to embarkID, or nil if unclaimed.
func (r *Repository) GetUserByEmbarkID(ctx context.Context, embarkID string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT discord_user, embark_id, created FROM users WHERE embark_id = $1`, embarkID)
	return scanUser(row)
}

// AddUser links discordUser to embarkID unless either is already linked.
// It reports whether a row was inserted.
func (r *Repository) AddUser(ctx context.Context, discordUser, embarkID string) (bool, error) {
	slog.Info(fmt.Sprintf("%s - AddUser user=%s", repoLogPrefix, discordUser))

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO users (discord_user, embark_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		discordUser, embarkID)
	if err != nil {
		return false, fmt.Errorf("%s - failed to add user: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateUserEmbarkID relinks an existing user. It returns ErrEmbarkIDTaken if
// embarkID belongs to someone else and reports whether the user existed.
func (r *Repository) UpdateUserEmbarkID(ctx context.Context, discordUser, embarkID string) (bool, error) {
	slog.Info(fmt.Sprintf("%s - UpdateUserEmbarkID user=%s", repoLogPrefix, discordUser))

	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET embark_id = $2 WHERE discord_user = $1`, discordUser, embarkID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, ErrEmbarkIDTaken
		}
		return false, fmt.Errorf("%s - failed to update user: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveUser deletes the link of discordUser and reports whether one existed.
func (r *Repository) RemoveUser(ctx context.Context, discordUser string) (bool, error) {
	slog.Info(fmt.Sprintf("%s - RemoveUser user=%s", repoLogPrefix, discordUser))

	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE discord_user = $1`, discordUser)
	if err != nil {
		return false, fmt.Errorf("%s - failed to remove user: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() == 1, nil
}

// SearchEmbarkIDs returns up to limit linked ids starting with prefix, ignoring case, sorted.
func (r *Repository) SearchEmbarkIDs(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit < 1 {
		limit = 25
	}
	rows, err := r.pool.Query(ctx,
		`SELECT embark_id FROM users
		 WHERE lower(embark_id) LIKE $1 ESCAPE '\'
		 ORDER BY embark_id
		 LIMIT $2`, likePrefix(prefix), limit)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to search embark ids: %w", repoLogPrefix, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%s - scan embark ids failed: %w", repoLogPrefix, err)
	}
	return ids, nil
}

// likePrefix escapes LIKE metacharacters in prefix and appends the wildcard.
func likePrefix(prefix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(prefix))
	return escaped + "%"
}

// =========================================================================
// SCAN HELPERS
// =========================================================================

func scanGuildSettings(row pgx.Row) (*GuildSettings, error) {
	var s GuildSettings
	err := row.Scan(&s.GuildID, &s.VerificationChannel, &s.VerifiedRole, &s.VerificationMessage, &s.Created, &s.Modified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan guild settings failed: %w", repoLogPrefix, err)
	}
	return &s, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.DiscordUser, &u.EmbarkID, &u.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan user failed: %w", repoLogPrefix, err)
	}
	return &u, nil
}
