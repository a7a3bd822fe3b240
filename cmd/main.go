package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/songlab/internal/adapters/http/api"
	"github.com/okian/songlab/internal/adapters/http/site"
	"github.com/okian/songlab/internal/adapters/http/swagger"
	app "github.com/okian/songlab/internal/app"
	"github.com/okian/songlab/internal/config"
	"github.com/okian/songlab/pkg/logger"
	"github.com/okian/songlab/pkg/metrics"
)

// HTTP server timeout constants. WriteTimeout is left unset because
// /v1/monitor holds hijacked websocket connections open.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}

	go startSystemMetricsUpdater(ctx)

	mux, apiServer := newMux(ctx, cfg, svc, log)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		// Websocket sessions inherit ctx so they end on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(context.Background(), "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	waitMonitors(shutdownCtx, apiServer.Monitor(), log)
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service stop failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
}

func newService(cfg *config.Config, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithStoreCapacity(cfg.StoreCapacity),
	)
}

// newMux registers the API, docs and static site routes.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) (*http.ServeMux, *api.Server) {
	mux := http.NewServeMux()

	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithLogger(log.Named("api")),
		api.WithMaxRecentLimit(cfg.MaxRecentLimit),
		api.WithMonitorConfig(api.MonitorConfig{
			Calibration:     cfg.Calibration(),
			TickInterval:    cfg.TickInterval(),
			WindowSize:      cfg.AudioWindowSize,
			PublishInterval: cfg.PublishInterval(),
		}),
	)
	apiServer.Register(ctx, mux)

	site.Register(ctx, mux)
	return mux, apiServer
}

// waitMonitors blocks until open websocket sessions finish or ctx expires.
func waitMonitors(ctx context.Context, h *api.MonitorHandler, log logger.Logger) {
	done := make(chan struct{})
	go func() {
		h.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn(ctx, "monitor sessions still open at shutdown")
	}
}

// startSystemMetricsUpdater samples process metrics until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
