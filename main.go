package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/VULUxOMID/GoldGames/internal/auth"
	"github.com/VULUxOMID/GoldGames/internal/config"
	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/gateway/local"
	"github.com/VULUxOMID/GoldGames/internal/gateway/supabase"
	"github.com/VULUxOMID/GoldGames/internal/handlers"
	"github.com/VULUxOMID/GoldGames/internal/logging"
	"github.com/VULUxOMID/GoldGames/internal/middleware"
	"github.com/VULUxOMID/GoldGames/internal/models"
	"github.com/VULUxOMID/GoldGames/internal/session"
	"github.com/VULUxOMID/GoldGames/internal/store/sqlstore"
	"github.com/VULUxOMID/GoldGames/internal/ws"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, closeGateway, err := openGateway(ctx, cfg.Backend)
	if err != nil {
		logger.Fatal("Failed to open backend", zap.Error(err))
	}
	defer closeGateway()

	if cfg.Server.CookieSecret == "" {
		if cfg.Server.CookieSecret, err = auth.RandomSecret(); err != nil {
			logger.Fatal("Failed to generate cookie secret", zap.Error(err))
		}
		logger.Warn("COOKIE_SECRET is not set; using a random secret, signed cookies will not survive a restart")
	}
	signer, err := auth.NewSigner(cfg.Server.CookieSecret)
	if err != nil {
		logger.Fatal("Invalid cookie secret", zap.Error(err))
	}

	registry := session.NewRegistry(gw, cfg.Session.IdleTimeout)
	go registry.Run(ctx, cfg.Session.CleanupInterval)

	sessions := &middleware.Sessions{Registry: registry, Signer: signer, Secure: cfg.Server.CookieSecure}
	h := &handlers.Handler{Gateway: gw, Sessions: sessions, Registry: registry}

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(sessions.Middleware)
	h.Register(r)
	if cfg.Server.StaticDir != "" {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", handlers.Static(cfg.Server.StaticDir)))
	}

	// preflight requests are answered before route matching
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: middleware.CORS(cfg.Server.CORSOrigins)(r)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting server", zap.String("addr", cfg.Server.Addr), zap.String("backend", redact(cfg.Backend.URL)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// ErrMissingJWTSecret is returned when a self-hosted backend has no key to sign access tokens with.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required for sqlite3 and postgres backends")

// openGateway picks the backend from the URL scheme: http(s) is the hosted service, sqlite3 and
// postgres run the self-hosted gateway in process.
func openGateway(ctx context.Context, cfg models.BackendConfig) (gateway.Gateway, func(), error) {
	scheme, rest, ok := strings.Cut(cfg.URL, "://")
	if !ok {
		return nil, nil, fmt.Errorf("invalid backend url %q", redact(cfg.URL))
	}

	switch scheme {
	case "http", "https":
		client, err := supabase.New(cfg.URL, cfg.AnonKey, cfg.Timeout, cfg.RealtimeHeartbeat)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	case "sqlite3", "postgres", "postgresql":
		if cfg.JWTSecret == "" {
			return nil, nil, ErrMissingJWTSecret
		}
		driver, dsn := "postgres", cfg.URL
		if scheme == "sqlite3" {
			driver, dsn = "sqlite3", rest
		}
		st, err := sqlstore.New(driver, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s store: %w", driver, err)
		}
		hubCtx, cancel := context.WithCancel(ctx)
		hub := ws.NewHub()
		go hub.Run(hubCtx)
		closeFn := func() {
			cancel()
			if err := st.Close(); err != nil {
				zap.L().Warn("Failed to close store", zap.Error(err))
			}
		}
		return local.New(st, hub, cfg.JWTSecret), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend url scheme %q", scheme)
	}
}

// redact drops credentials from a backend URL before it is logged.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.User(u.User.Username())
	return u.String()
}
