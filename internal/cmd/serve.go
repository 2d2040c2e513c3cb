package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"feedmill/internal/config"
	"feedmill/internal/feedsvc"
	"feedmill/internal/fetch"
	"feedmill/internal/httpapi"
	"feedmill/internal/scheduler"
	"feedmill/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the feedmill server (the default action)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe loads the config, wires every component, and serves until the
// process receives SIGINT/SIGTERM. Shutdown waits for every feed task to
// return: an in-flight update cycle either finishes its store transaction or
// is dropped before it starts, matching the scheduler's cancellation
// contract.
func runServe(cmd *cobra.Command) error {
	if cfgFile == "" {
		return fmt.Errorf("config: --config is required")
	}

	// The logger is installed before config loads: building a scripted
	// feed's extractor binds the script's logging globals to the default
	// logger at load time.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	fetcher := fetch.New(30 * time.Second)
	if cfg.CacheDir != "" {
		fetcher.Cache = &fetch.Cache{Dir: cfg.CacheDir}
	}

	sched := scheduler.New(st, fetcher, logger, cfg.MaxInitialFetchSleep)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx, cfg.Feeds); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	registrations := make(map[string]feedsvc.Registration, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		key, ok := sched.FeedKey(f.Name)
		if !ok {
			continue
		}
		registrations[f.Name] = feedsvc.Registration{FeedKey: key, Enabled: f.Enabled}
	}
	feedSvc := feedsvc.New(st, registrations, cfg.EntryLimit)

	baseURL := "http://" + cfg.BindAddr
	api := httpapi.New(feedSvc, sched, baseURL, logger)

	srv := &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      api.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("feedmill listening", "addr", cfg.BindAddr, "feeds", len(cfg.Feeds))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
	}

	cancel()
	sched.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
