package models

import "time"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	StaticDir       string        `yaml:"static_dir"`
	CookieSecret    string        `yaml:"cookie_secret"`
	CookieSecure    bool          `yaml:"cookie_secure"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BackendConfig points at the backend service that owns auth, rows and the change feed
type BackendConfig struct {
	URL               string        `yaml:"url"`
	AnonKey           string        `yaml:"anon_key"`
	JWTSecret         string        `yaml:"jwt_secret"`
	Timeout           time.Duration `yaml:"timeout"`
	RealtimeHeartbeat time.Duration `yaml:"realtime_heartbeat"`
}

// SessionConfig controls how long an idle browser session keeps its stores
type SessionConfig struct {
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}
