// main.go
// GateDesk station agent: mirrors the visitor API for one gate console, listens for live guest
// events and serves the dashboard API.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gatedesk/auth"
	"gatedesk/config"
	"gatedesk/db"
	"gatedesk/handlers"
	"gatedesk/live"
	"gatedesk/logging"
	"gatedesk/middleware"
	"gatedesk/notifications"
	"gatedesk/overlay"
	"gatedesk/session"
	"gatedesk/store"
	"gatedesk/upstream"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	cfg := config.Load()

	logger, err := logging.InitLogger(cfg.Server.Environment, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("gatedesk stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("gatedesk stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting gatedesk",
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("live", cfg.Live.Transport),
		zap.String("upstream", cfg.Upstream.BaseURL))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	kv, err := db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}
	defer kv.Close()

	sessions := session.NewStore(kv, logger)

	checkIns := overlay.New(kv, logger, time.Now)
	checkIns.Load(ctx)

	notes := notifications.New(kv, logger, cfg.Notifications.Cap, time.Now)
	notes.Load(ctx)

	st := store.New(store.Options{
		Transport:     upstream.NewClient(cfg.Upstream, logger),
		Session:       sessions,
		Overlay:       checkIns,
		Logger:        logger,
		Location:      loc,
		SettleDelay:   cfg.Refresh.SettleDelay,
		OverlayMaxAge: cfg.Overlay.MaxAge,
	})
	dispatcher := live.NewDispatcher(notes, st, loc, logger)

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	rateLimiter.CleanupOldLimiters(ctx, cfg.RateLimit.Window)

	router := handlers.NewRouter(handlers.Deps{
		Store:          st,
		Notifications:  notes,
		Sessions:       sessions,
		Operators:      db.NewOperators(kv),
		JWT:            jwtManager,
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		StorageBackend: cfg.Storage.Backend,
		LiveTransport:  cfg.Live.Transport,
	})

	var handler http.Handler = router
	handler = rateLimiter.Middleware()(handler)
	handler = middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(handler)
	handler = middleware.Recoverer(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// A manual refresh issues four sequential upstream calls.
		WriteTimeout: 4*cfg.Upstream.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		st.Poll(gctx, cfg.Refresh.Interval)
		return nil
	})

	if source := newLiveSource(cfg, sessions, logger); source != nil {
		g.Go(func() error {
			// Polling keeps running without live updates.
			if err := source.Run(gctx, dispatcher.Handle); err != nil {
				logger.Error("live updates stopped", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		st.Close()
		err := server.Shutdown(shutdownCtx)
		dispatcher.Wait()
		if err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newLiveSource builds the configured live-update channel, or nil for "none".
func newLiveSource(cfg *config.Config, sessions *session.Store, logger *zap.Logger) live.Source {
	switch cfg.Live.Transport {
	case "websocket":
		return live.NewWebSocketSource(cfg.Live.URL, cfg.Upstream.Token, sessions,
			cfg.Live.ReconnectMin, cfg.Live.ReconnectMax, logger)
	case "nats":
		return live.NewNATSSource(cfg.Live.URL, cfg.Live.NATSSubject, cfg.Live.ReconnectMin, logger)
	default:
		return nil
	}
}
