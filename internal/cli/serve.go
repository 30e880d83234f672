package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lazypower/revise/internal/agenda"
	"github.com/lazypower/revise/internal/logger"
	"github.com/lazypower/revise/internal/reminder"
	"github.com/lazypower/revise/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New("revise", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, location, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	svc := agenda.NewService(b, agenda.WithUsers(cfg.Users))

	if cfg.Reminder.Enabled {
		rem := reminder.New(svc, b, nil, log)
		if err := rem.Start(ctx, cfg.Reminder.Cron); err != nil {
			return err
		}
		defer rem.Stop()
		log.Info().Str("cron", cfg.Reminder.Cron).Msg("reminders enabled")
	}

	srv := server.New(svc, b, server.Options{
		Version: VersionString(),
		Metrics: cfg.Metrics.Enabled,
		Log:     log,
	})
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", addr).
			Str("store", location).
			Str("config", cfgPath).
			Strs("users", cfg.Users).
			Bool("metrics", cfg.Metrics.Enabled).
			Msg("revise serving")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	return httpServer.Shutdown(shutdownCtx)
}
