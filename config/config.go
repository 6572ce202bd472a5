package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "dev-secret-key"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	JWT           JWTConfig
	Firebase      FirebaseConfig
	Storage       StorageConfig
	Upstream      UpstreamConfig
	Live          LiveConfig
	Refresh       RefreshConfig
	Overlay       OverlayConfig
	Notifications NotificationsConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
	Logging       LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ShutdownTimeout time.Duration
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
	Collection      string
}

// StorageConfig selects the durable key-value backend.
type StorageConfig struct {
	Backend    string
	SQLitePath string
}

// UpstreamConfig points at the visitor API this agent mirrors.
type UpstreamConfig struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	TimeZone string
}

// LiveConfig configures the live-update channel. Transport is one of websocket, nats or none.
type LiveConfig struct {
	Transport    string
	URL          string
	NATSSubject  string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

type RefreshConfig struct {
	Interval    time.Duration
	SettleDelay time.Duration
}

type OverlayConfig struct {
	MaxAge time.Duration
}

type NotificationsConfig struct {
	Cap int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "30s"), 30*time.Second),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", defaultJWTSecret),
			Expiration:             parseDuration(getEnv("JWT_EXPIRATION", "12h"), 12*time.Hour),
			RefreshTokenExpiration: parseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "7d"), 7*24*time.Hour),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./serviceAccountKey.json"),
			Collection:      getEnv("FIREBASE_COLLECTION", "gatedesk"),
		},
		Storage: StorageConfig{
			Backend:    strings.ToLower(getEnv("STORAGE_BACKEND", "sqlite")),
			SQLitePath: getEnv("SQLITE_PATH", "./gatedesk.db"),
		},
		Upstream: UpstreamConfig{
			BaseURL:  strings.TrimRight(getEnv("UPSTREAM_BASE_URL", ""), "/"),
			Token:    getEnv("UPSTREAM_TOKEN", ""),
			Timeout:  parseDuration(getEnv("UPSTREAM_TIMEOUT", "15s"), 15*time.Second),
			TimeZone: getEnv("TIME_ZONE", "Local"),
		},
		Live: LiveConfig{
			Transport:    strings.ToLower(getEnv("LIVE_TRANSPORT", "websocket")),
			URL:          getEnv("LIVE_URL", ""),
			NATSSubject:  getEnv("LIVE_NATS_SUBJECT", "guests.new"),
			ReconnectMin: parseDuration(getEnv("LIVE_RECONNECT_MIN", "1s"), time.Second),
			ReconnectMax: parseDuration(getEnv("LIVE_RECONNECT_MAX", "30s"), 30*time.Second),
		},
		Refresh: RefreshConfig{
			Interval:    parseDuration(getEnv("REFRESH_INTERVAL", "5m"), 5*time.Minute),
			SettleDelay: parseDuration(getEnv("CHECKIN_SETTLE_DELAY", "500ms"), 500*time.Millisecond),
		},
		Overlay: OverlayConfig{
			MaxAge: parseDuration(getEnv("OVERLAY_MAX_AGE", "720h"), 720*time.Hour),
		},
		Notifications: NotificationsConfig{
			Cap: parseInt(getEnv("NOTIFICATION_CAP", "50"), 50),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		RateLimit: RateLimitConfig{
			Requests: parseInt(getEnv("RATE_LIMIT_REQUESTS", "100"), 100),
			Window:   parseDuration(getEnv("RATE_LIMIT_WINDOW", "60"), 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

// parseDuration accepts Go durations ("30m"), whole days ("7d") and bare seconds ("60").
func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		if i, err := strconv.Atoi(days); err == nil {
			return time.Duration(i) * 24 * time.Hour
		}
	}
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func parseStringSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Location resolves the time zone used to interpret upstream dates and times.
func (c *Config) Location() (*time.Location, error) {
	if c.Upstream.TimeZone == "" || c.Upstream.TimeZone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Upstream.TimeZone)
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == defaultJWTSecret && c.IsProduction() {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("UPSTREAM_BASE_URL must be set"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIME_ZONE %q: %w", c.Upstream.TimeZone, err))
	}

	switch c.Storage.Backend {
	case "firestore":
		if c.Firebase.ProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID must be set"))
		}
		if _, err := os.Stat(c.Firebase.CredentialsPath); os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("firebase credentials file not found: %s", c.Firebase.CredentialsPath))
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH must be set"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}

	switch c.Live.Transport {
	case "websocket", "nats":
		if c.Live.URL == "" {
			errs = append(errs, fmt.Errorf("LIVE_URL must be set for %s transport", c.Live.Transport))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("unknown LIVE_TRANSPORT %q", c.Live.Transport))
	}

	if c.Refresh.Interval <= 0 {
		errs = append(errs, errors.New("REFRESH_INTERVAL must be positive"))
	}
	if c.Notifications.Cap <= 0 {
		errs = append(errs, errors.New("NOTIFICATION_CAP must be positive"))
	}

	return errors.Join(errs...)
}
