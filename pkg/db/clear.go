package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearData removes every linked user and guild setting. The schema and the
// migration history are preserved.
func ClearData(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing users and guild settings", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE users, guild_settings`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Data cleared", clearLogPrefix))
	return nil
}
