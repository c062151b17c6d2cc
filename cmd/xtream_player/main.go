package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xtreamkit/xtream_player/internal/cleanup"
	"github.com/xtreamkit/xtream_player/internal/config"
	"github.com/xtreamkit/xtream_player/internal/download"
	"github.com/xtreamkit/xtream_player/internal/http/rest"
	"github.com/xtreamkit/xtream_player/internal/logctx"
	"github.com/xtreamkit/xtream_player/internal/notifier"
	"github.com/xtreamkit/xtream_player/internal/storage/queuedoc"
	"github.com/xtreamkit/xtream_player/internal/storage/sqlite"
	"github.com/xtreamkit/xtream_player/internal/telemetry"
	"github.com/xtreamkit/xtream_player/internal/xtream"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(logctx.NewTraceHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("xtream player starting...", "log_level", cfg.LogLevel)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Exporter:       cfg.Telemetry.Exporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown telemetry", "err", err)
		}
	}()

	// =========================================================================
	// Start Database
	database, err := sqlite.InitDB(cfg.HistoryDBPath())
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer database.Close()

	history := sqlite.NewInstrumentedHistoryRepository(database, tel)

	// =========================================================================
	// Start Catalog Client
	catalog := xtream.NewInstrumentedClient(
		xtream.NewClient(cfg.XtreamServer, cfg.XtreamUsername, cfg.XtreamPassword, cfg.APITimeout),
		tel,
	)

	if _, err := catalog.Authenticate(ctx); err != nil {
		return fmt.Errorf("authentication error: %w", err)
	}

	// =========================================================================
	// Start Download Queue
	engine := download.NewEngine(
		&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		cfg.ChunkSize,
		cfg.StallTimeout,
	)
	queueStore := queuedoc.NewStore(cfg.QueueDocPath())

	queue := download.NewManager(ctx, engine, queueStore, history, tel)
	queue.Restore(ctx)
	queue.Resume()

	// =========================================================================
	// Start Notification
	setupNotifications(ctx, queue, cfg)

	// =========================================================================
	// Start API Service

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	server := setupServer(ctx, queue, catalog, history, tel, cfg)

	go func() {
		logger.Info("initializing API support", "host", cfg.Web.BindAddress)
		serverErrors <- server.ListenAndServe()
	}()

	logger.Info("waiting for downloads...",
		"download_dir", cfg.DownloadDir,
		"queue_doc", cfg.QueueDocPath(),
		"retention", cfg.KeepHistoryFor.String(),
	)

	// =========================================================================
	// Start Cleanup
	setupCleanup(ctx, history, cfg)

	// =========================================================================
	// Wait for shutdown
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("start shutdown")

		// Pausing parks the active transfer at the head of the queue so a
		// restart picks it up where it left off.
		queue.Pause()

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		return ctx.Err()
	}
}

func setupNotifications(ctx context.Context, queue *download.Manager, cfg *config.Config) {
	logger := logctx.LoggerFromContext(ctx)

	var notif notifier.Notifier
	if cfg.DiscordWebhookURL != "" {
		notif = notifier.NewDiscordNotifier(cfg.DiscordWebhookURL)
	}

	go func() {
		for rec := range queue.OnCompleted {
			logger.Info("download finished", "id", rec.ID, "title", rec.Title, "bytes", rec.TotalBytes)

			if notif == nil {
				continue
			}

			if notifyErr := notif.Notify(ctx, "✅ Download finished: "+rec.Title); notifyErr != nil {
				logger.Error("failed to send notification", "id", rec.ID, "err", notifyErr)
			}
		}
	}()

	go func() {
		for event := range queue.OnError {
			logger.Error("download failed", "id", event.Record.ID, "title", event.Record.Title, "reason", event.Message)

			if notif == nil {
				continue
			}

			if notifyErr := notif.Notify(ctx, "❌ Download failed: "+event.Record.Title+" ("+event.Message+")"); notifyErr != nil {
				logger.Error("failed to send notification", "id", event.Record.ID, "err", notifyErr)
			}
		}
	}()
}

// setupServer prepares the handlers and services to create the http rest server.
func setupServer(ctx context.Context, queue *download.Manager, catalog *xtream.InstrumentedClient, history *sqlite.InstrumentedHistoryRepository, tel *telemetry.Telemetry, cfg *config.Config) *http.Server {
	handler := rest.NewHandler(queue, catalog, history, cfg.DownloadDir)

	r := chi.NewRouter()
	r.Use(telemetry.RequestID)
	r.Use(telemetry.HTTPLogging)
	r.Use(telemetry.NewHTTPMiddleware(tel).Middleware)

	r.Mount("/", handler.Routes())

	if metricsHandler := tel.Handler(); metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	return &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      r,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

func setupCleanup(ctx context.Context, history *sqlite.InstrumentedHistoryRepository, cfg *config.Config) {
	logger := logctx.LoggerFromContext(ctx)

	go func() {
		cleanupTicker := time.NewTicker(cfg.CleanupInterval)
		defer cleanupTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("cleanup goroutine shutting down.")

				return
			case <-cleanupTicker.C:
				if err := cleanup.PruneHistory(ctx, history, cfg.KeepHistoryFor); err != nil {
					logger.Error("failed to prune download history", "err", err)
				}
			}
		}
	}()
}
