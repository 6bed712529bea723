// Package server orchestrates all components: database, platform session, bot, COMMS relay, HTTP health.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/embarklink/linkbot/internal/config"
	"github.com/embarklink/linkbot/pkg/bot"
	"github.com/embarklink/linkbot/pkg/commsutil"
	"github.com/embarklink/linkbot/pkg/db"
	"github.com/embarklink/linkbot/pkg/events"
	"github.com/embarklink/linkbot/pkg/linking"
	"github.com/embarklink/linkbot/pkg/platform"
)

const logPrefix = "server:server"

const drainTimeout = 5 * time.Second

// pinger reports database reachability.
type pinger interface {
	Ping(ctx context.Context) error
}

// connectivity reports whether the platform gateway is connected.
type connectivity interface {
	Connected() bool
}

// Server is the linkbot orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	httpServer *http.Server

	db      pinger
	gateway connectivity
	version string
}

// HealthOutput is the body of the /health endpoint.
type HealthOutput struct {
	Status    string       `json:"status"`
	Version   string       `json:"version"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
	DBError   string       `json:"dbError,omitempty"`
}

// HealthChecks lists the individual dependency checks.
type HealthChecks struct {
	Database bool `json:"database"`
	Gateway  bool `json:"gateway"`
	Relay    bool `json:"relay"`
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Run starts the bot, blocks until a shutdown signal or a fatal bot error, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})))

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	version, _ := cfg.Version()
	slog.Info(fmt.Sprintf("%s - Starting linkbot %s", logPrefix, version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg, version: version.String()}

	// Step 1: Connect to database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	s.pool = pool
	defer pool.Close()

	if cfg.RunMigrations {
		migrations, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrations); err != nil {
			return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}
	repo := db.NewRepository(pool)
	s.db = repo

	// Step 2: Connect to COMMS when the relay is enabled
	if cfg.RelayEnabled() {
		nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		s.nc = nc
		defer commsutil.Drain(nc, drainTimeout)
	}

	// Step 3: Platform session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("%s - failed to create platform session: %w", logPrefix, err)
	}
	session.Identify.Intents = discordgo.IntentsAll

	b := bot.NewBot(bot.NewBotParams{
		Gateway: platform.NewDiscordGateway(session, cfg.EventBufferSize),
		Client:  platform.NewDiscordClient(session),
		Cache:   platform.NewStateCache(),
	})
	s.gateway = b

	// Step 4: Handlers
	b.Register(linking.NewLinker(repo, linking.Options{
		AdminGuildIDs: cfg.AdminGuildIDs,
		WelcomeWindow: cfg.WelcomeWindow,
	}))
	if s.nc != nil {
		publisher := events.NewCommsPublisher(s.nc, &events.CommsPublisherOpts{Subject: cfg.RelaySubject})
		b.Register(events.NewRelayHandler(publisher, s.version, cfg.RelayEventTypes))
		slog.Info(fmt.Sprintf("%s - Relaying gateway events to %s", logPrefix, cfg.RelaySubject))
	}

	// Step 5: HTTP health server
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	s.httpServer = &http.Server{Addr: httpAddr, Handler: s.routes()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	// Step 6: Run the bot
	botErr := make(chan error, 1)
	go func() {
		botErr <- b.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))
		cancel()
		if err := <-botErr; err != nil {
			slog.Error(fmt.Sprintf("%s - Bot stopped with error: %v", logPrefix, err))
		}
	case err := <-botErr:
		if err != nil {
			runErr = fmt.Errorf("%s - bot stopped: %w", logPrefix, err)
		} else {
			slog.Info(fmt.Sprintf("%s - Gateway closed, shutting down", logPrefix))
		}
	}

	// Graceful shutdown: in-flight handler tasks finish before the pool and bus close.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer shutdownCancel()
	s.httpServer.Shutdown(shutdownCtx)
	b.Wait()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return runErr
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", s.handleReady())
	return mux
}

// Health runs the dependency checks. Relay is true when the relay is disabled
// or its connection is up.
func (s *Server) Health(ctx context.Context) *HealthOutput {
	out := &HealthOutput{
		Status:    "healthy",
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    HealthChecks{Relay: true},
	}
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			out.DBError = err.Error()
		} else {
			out.Checks.Database = true
		}
	}
	if s.gateway != nil {
		out.Checks.Gateway = s.gateway.Connected()
	}
	if s.nc != nil {
		out.Checks.Relay = s.nc.IsConnected()
	}
	if !out.Checks.Database || !out.Checks.Gateway || !out.Checks.Relay {
		out.Status = "unhealthy"
	}
	return out
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthCtx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.Health(healthCtx)
		w.Header().Set("Content-Type", "application/json")
		if h.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(h); err != nil {
			slog.Error(fmt.Sprintf("%s - health encode: %v", logPrefix, err))
		}
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}
