// serve.go implements "avalon serve", the HTTP session server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wmxl/card-dealer-miniprogram/engine"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/cache"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/config"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/database"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/game"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/handlers"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/logging"
	"golang.org/x/sync/errgroup"
)

var memoryStore bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP session server",
	Long: `Start the session API on AVALON_HTTP_ADDR. Sessions are stored in the
database selected by DB_DIALECT; REDIS_ADDR enables the action log.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&memoryStore, "memory", false, "Keep sessions in memory instead of the database")
}

func openStore(ctx context.Context, cfg config.Config) (database.Store, error) {
	store, err := database.Open(ctx, database.Options{
		Dialect:     database.Dialect(cfg.DBDialect),
		SQLitePath:  cfg.SQLitePath,
		PostgresDSN: cfg.PostgresDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store database.Store
	if memoryStore {
		log.Warn("serve: using in-memory store, sessions are lost on exit")
		store = database.NewMemoryStore()
	} else if store, err = openStore(ctx, cfg); err != nil {
		return err
	}
	defer store.Close()

	if err := cache.Init(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		log.WithError(err).Warn("serve: action log disabled")
	}
	defer cache.Close()

	rules := engine.DefaultHouseRules()
	rules.EnforceGoodSuccess = cfg.EnforceGoodSuccess
	svc := game.NewSessionService(store, game.Options{
		Rules:           rules,
		MaxWriteRetries: cfg.MaxWriteRetries,
	})
	// Runs before cache.Close.
	defer svc.WaitActions()
	svc.BroadcastFn = func(ev game.GameEvent) {
		log.WithFields(log.Fields{"session": ev.SessionID, "type": ev.Type}).Debug("serve: event")
	}
	svc.OnGameEnd = func(sessionID string, gameID uuid.UUID, result engine.GameResult, winners []int) {
		log.WithFields(log.Fields{
			"session": sessionID,
			"gameId":  gameID,
			"winner":  result.Winner,
			"winners": winners,
		}).Info("serve: game finished")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handlers.New(svc).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("serve: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("serve: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
