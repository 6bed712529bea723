// Package main is the entrypoint for linkbot.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/embarklink/linkbot/internal/config"
	"github.com/embarklink/linkbot/internal/server"
	"github.com/embarklink/linkbot/pkg/db"
)

const usage = `Usage: linkbot [command]
       linkbot serve              Connect to the platform and run the bot.
       linkbot migrate up          Run database migrations.
       linkbot migrate down        Roll back one migration (migrations are forward-only; prints a notice).
       linkbot migrate status      Show migration status.
       linkbot ensure-db [name]    Create database if missing (default name: linkbot_test). Uses DATABASE_URL host/user.
       linkbot clear               Delete all linked users and community settings; schema is preserved.

Commands:
  serve            (default) Start the bot and the HTTP health endpoint.
  migrate up       Run database migrations only.
  migrate down     Roll back last migration (not supported).
  migrate status   Show current migration status.
  ensure-db [name] Create database (e.g. linkbot_test) on same host as DATABASE_URL.
  clear            Truncate linkbot data; schema preserved.

Environment: DISCORD_TOKEN (serve), DATABASE_URL, MIGRATION_PATH, COMMS_URL (optional relay), HTTP_PORT. See README.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("linkbot migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := withPool(runMigrateUp); err != nil {
				log.Fatalf("linkbot migrate up: %v", err)
			}
		case "status":
			if err := withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				return db.MigrationStatus(ctx, pool, cfg.MigrationPath)
			}); err != nil {
				log.Fatalf("linkbot migrate status: %v", err)
			}
		case "down":
			if err := withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				return db.MigrationDown(ctx, pool, cfg.MigrationPath)
			}); err != nil {
				log.Fatalf("linkbot migrate down: %v", err)
			}
		default:
			log.Fatalf("linkbot migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "clear":
		if err := withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
			if err := db.ClearData(ctx, pool); err != nil {
				return fmt.Errorf("clear data: %w", err)
			}
			return nil
		}); err != nil {
			log.Fatalf("linkbot clear: %v", err)
		}
		return
	case "ensure-db":
		dbName := "linkbot_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("linkbot ensure-db: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("linkbot: %v", err)
	}
}

// withPool loads config, opens a pool for a DB-only command and closes it afterwards.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

func runMigrateUp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
	migrations, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	targetURL, err := withDatabase(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	if err := db.EnsureDatabase(context.Background(), targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}

// withDatabase replaces the database name in databaseURL; the query (e.g. sslmode) is kept.
func withDatabase(databaseURL, dbName string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + dbName
	return u.String(), nil
}
