package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// ErrMissingBackendConfig is returned when the backend URL or public API key is absent.
var ErrMissingBackendConfig = errors.New("missing required backend configuration: BACKEND_URL and BACKEND_ANON_KEY")

// Load reads .env (if present), an optional YAML file named by GOLDGAMES_CONFIG, and the environment,
// in increasing order of precedence.
func Load() (*models.Config, error) {
	// .env is optional; values may come from the shell or the container
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("GOLDGAMES_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.Backend.URL == "" || cfg.Backend.AnonKey == "" {
		return nil, ErrMissingBackendConfig
	}

	return cfg, nil
}

func defaults() *models.Config {
	return &models.Config{
		Server: models.ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Backend: models.BackendConfig{
			Timeout:           10 * time.Second,
			RealtimeHeartbeat: 25 * time.Second,
		},
		Session: models.SessionConfig{
			IdleTimeout:     30 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Log: models.LogConfig{
			Level: "info",
		},
	}
}

func loadFile(path string, cfg *models.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unable to parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *models.Config) error {
	cfg.Server.Addr = getEnvString("ADDR", cfg.Server.Addr)
	cfg.Server.StaticDir = getEnvString("STATIC_DIR", cfg.Server.StaticDir)
	cfg.Server.CookieSecret = getEnvString("COOKIE_SECRET", cfg.Server.CookieSecret)
	cfg.Server.CookieSecure = getEnvBool("COOKIE_SECURE", cfg.Server.CookieSecure)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}

	cfg.Backend.URL = getEnvString("BACKEND_URL", getEnvString("SUPABASE_URL", cfg.Backend.URL))
	cfg.Backend.AnonKey = getEnvString("BACKEND_ANON_KEY", getEnvString("SUPABASE_ANON_KEY", cfg.Backend.AnonKey))
	cfg.Backend.JWTSecret = getEnvString("JWT_SECRET", cfg.Backend.JWTSecret)

	cfg.Log.Level = getEnvString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Development = getEnvBool("LOG_DEVELOPMENT", cfg.Log.Development)

	var err error
	if cfg.Server.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout); err != nil {
		return err
	}
	if cfg.Backend.Timeout, err = getEnvDuration("BACKEND_TIMEOUT", cfg.Backend.Timeout); err != nil {
		return err
	}
	if cfg.Backend.RealtimeHeartbeat, err = getEnvDuration("REALTIME_HEARTBEAT", cfg.Backend.RealtimeHeartbeat); err != nil {
		return err
	}
	if cfg.Session.IdleTimeout, err = getEnvDuration("SESSION_IDLE_TIMEOUT", cfg.Session.IdleTimeout); err != nil {
		return err
	}
	if cfg.Session.CleanupInterval, err = getEnvDuration("SESSION_CLEANUP_INTERVAL", cfg.Session.CleanupInterval); err != nil {
		return err
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if o := strings.TrimRight(strings.TrimSpace(p), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}
