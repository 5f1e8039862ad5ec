package main

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
	"go.uber.org/zap"

	"github.com/bryanwahyu/copyguard/internal/config"
	"github.com/bryanwahyu/copyguard/internal/infra/db"
	"github.com/bryanwahyu/copyguard/internal/infra/httpserver"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	olderThan  time.Duration

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "copyguard",
	Short:        "Marketing content review backend",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}

		config.LoadDotEnv()
		path := configPath
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable development logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default $CONFIG_PATH)")

	sweepCmd.Flags().DurationVar(&olderThan, "older-than", 30*time.Minute, "Fail reviews pending longer than this")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the analysis workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := httpserver.Server(addr, app.Handler)

		errc := make(chan error, 1)
		go func() {
			logger.Info("server listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
			close(errc)
		}()

		select {
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		case <-ctx.Done():
		}
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		// queued analyses get the rest of the budget; whatever is left pending
		// is picked up by `sweep`
		if err := app.Pool.Shutdown(shutdownCtx); err != nil {
			logger.Warn("worker shutdown", zap.Error(err))
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		logger.Info("schema up to date", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark reviews stuck in pending as failed",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		svc := reviewService(store, nil, nil, logger)
		n, err := svc.SweepStale(cmd.Context(), olderThan)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "marked %d review(s) as failed\n", n)
		return nil
	},
}
