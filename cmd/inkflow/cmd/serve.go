package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/inkflow/inkflow/internal/api"
	"github.com/inkflow/inkflow/internal/config"
	"github.com/inkflow/inkflow/internal/history"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local mock of the generation service",
	Long: `Run a local server that speaks the generation service wire protocol.

The server plays back a scripted scenario of progress events for every
request, including the outline approval checkpoint, so the client can be
developed and demoed without the real pipeline.

Examples:
  # Defaults: listen on :8000, built-in happy-path scenario
  inkflow serve

  # Play a custom scenario without pacing delays
  inkflow serve --scenario failure.yaml --stage-delay 0

  # Skip the outline checkpoint entirely
  inkflow serve --auto-confirm`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8000", "address to listen on")
	serveCmd.Flags().String("scenario", "", "YAML scenario file to play back")
	serveCmd.Flags().Duration("stage-delay", 300*time.Millisecond,
		"pacing between scripted events")
	serveCmd.Flags().Bool("auto-confirm", false,
		"continue past the outline checkpoint without waiting")

	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.scenario", serveCmd.Flags().Lookup("scenario"))
	_ = viper.BindPFlag("serve.stage_delay", serveCmd.Flags().Lookup("stage-delay"))
	_ = viper.BindPFlag("serve.auto_confirm", serveCmd.Flags().Lookup("auto-confirm"))
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	opts := []api.ServerOption{
		api.WithLogger(logger),
		api.WithStageDelay(cfg.Serve.StageDelay),
		api.WithAutoConfirm(cfg.Serve.AutoConfirm),
	}

	if cfg.Serve.Scenario != "" {
		sc, err := api.LoadScenario(cfg.Serve.Scenario)
		if err != nil {
			return err
		}
		opts = append(opts, api.WithScenario(sc))
		logger.Info("scenario loaded",
			"path", cfg.Serve.Scenario,
			"steps", len(sc.Steps),
		)
	}

	// The mock serves read endpoints over the same history database the
	// client writes, which makes demos self-contained.
	if store, err := history.NewSQLiteStore(cfg.History.DBPath); err != nil {
		logger.Warn("history store unavailable", "error", err)
	} else {
		opts = append(opts, api.WithHistoryStore(store))
		defer store.Close()
	}

	server := api.NewServer(opts...)
	httpSrv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started",
			"addr", cfg.Serve.Addr,
			"auto_confirm", cfg.Serve.AutoConfirm,
		)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	// Watch the config file that was actually loaded. Serve settings need
	// a restart; the watcher surfaces edits so they are not silently
	// ignored.
	if resolvedConfigFile != "" {
		watcher := config.NewWatcher(resolvedConfigFile, logger, func(_ *config.Config) {
			logger.Info("config file changed, restart serve to apply",
				"path", resolvedConfigFile,
			)
		})
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
