package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lobbywatch/backend/internal/config"
	"github.com/lobbywatch/backend/internal/enrich"
	"github.com/lobbywatch/backend/internal/lobby"
	"github.com/lobbywatch/backend/internal/mock"
	"github.com/lobbywatch/backend/internal/monitor"
	"github.com/lobbywatch/backend/internal/steam"
	"github.com/lobbywatch/backend/internal/ws"
)

const shutdownTimeout = 5 * time.Second

type options struct {
	configPath string
	port       int
	eventsPath string
	mockMode   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "lobbywatch",
		Short: "Track a game lobby from its log events and publish snapshots",
		Long: `lobbywatch applies typed game log events to an in-memory lobby,
enriches players with Steam profile data and publishes periodic snapshots
over HTTP and WebSocket.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "Path to config file")
	rootCmd.Flags().IntVar(&opts.port, "port", 0, "Override server port")
	rootCmd.Flags().StringVar(&opts.eventsPath, "events", "", "Override the JSONL event file to tail")
	rootCmd.Flags().BoolVar(&opts.mockMode, "mock", false, "Feed a synthetic match instead of a real log")

	rootCmd.AddCommand(newReplayCmd(opts))
	return rootCmd
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.eventsPath != "" {
		cfg.Source.Path = opts.eventsPath
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, _ := cfg.SlogLevel()
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func serve(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := lobby.NewStore()
	reducer := lobby.NewReducer(cfg.Lobby.StaleAfter, logger)

	client := steam.NewClient(cfg.Steam.APIKey, cfg.Steam.BaseURL, cfg.Steam.Timeout, cfg.Steam.BatchSize)
	var cache enrich.Cache
	if cfg.Redis.Addr != "" {
		rc, err := enrich.NewRedisCache(cfg.Redis.Addr, cfg.Redis.TTL, cfg.Redis.KeyPrefix)
		if err != nil {
			logger.Warn("profile cache unavailable, continuing without it",
				slog.String("addr", cfg.Redis.Addr),
				slog.Any("error", err))
		} else {
			defer rc.Close()
			cache = rc
		}
	}
	poller := enrich.NewPoller(store, client, cache, cfg.Enrich.Interval, cfg.Steam.Timeout, logger)

	publisher := ws.NewPublisher(store, cfg.Publish.Interval, cfg.Publish.SubscriberBuffer, cfg.Steam.SelfSteamID, logger)
	watcher := monitor.NewProcessWatcher(cfg.Process.Names, cfg.Process.Interval, logger)

	var sources []monitor.Source
	if cfg.Source.Path != "" {
		sources = append(sources, monitor.NewFileSource(cfg.Source.Path, logger))
	}
	if opts.mockMode {
		logger.Info("starting in mock mode")
		sources = append(sources, mock.NewGenerator(time.Now().UnixNano()))
	}

	driver := monitor.NewDriver(monitor.Options{
		Store:        store,
		Reducer:      reducer,
		Poller:       poller,
		Publisher:    publisher,
		Watcher:      watcher,
		Sources:      sources,
		PollInterval: cfg.Source.PollInterval,
		Logger:       logger,
	})

	server := ws.NewServer(store, publisher, driver, driver, cfg.Server.AuthToken, cfg.Server.MaxConnections, logger)
	httpSrv := server.NewHTTPServer(cfg.Server.Host, cfg.Server.Port)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return driver.Run(ctx) })
	g.Go(func() error {
		logger.Info("server listening", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
