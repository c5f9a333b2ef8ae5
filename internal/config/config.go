package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath         = "config.toml"
	DefaultHTTPAddr           = ":8080"
	DefaultGeminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiUploadURL    = "https://generativelanguage.googleapis.com/upload/v1beta"
	DefaultGeminiModel        = "gemini-2.0-flash"
	DefaultGeminiTimeoutSecs  = 60
	DefaultWhatsAppBaseURL    = "https://graph.facebook.com/v19.0"
	DefaultMediaMaxBytes      = 16 * 1024 * 1024
	DefaultRelayMaxAttempts   = 3
	DefaultInitialBackoffMs   = 500
	DefaultBroadcastDelayMs   = 1000
	DefaultFilePollAttempts   = 30
	DefaultFilePollIntervalMs = 2000
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Gemini   GeminiConfig   `toml:"gemini"`
	WhatsApp WhatsAppConfig `toml:"whatsapp"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Cache    CacheConfig    `toml:"cache"`
	Relay    RelayConfig    `toml:"relay"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type GeminiConfig struct {
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	UploadBaseURL  string `toml:"upload_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type WhatsAppConfig struct {
	AccessToken   string `toml:"access_token"`
	PhoneNumberID string `toml:"phone_number_id"`
	VerifyToken   string `toml:"verify_token"`
	AppSecret     string `toml:"app_secret"`
	BaseURL       string `toml:"base_url"`
	MediaMaxBytes int64  `toml:"media_max_bytes"`
}

// DatabaseConfig points at the hosted Postgres of the external data service.
// The schema is owned and migrated by that service, never by this codebase.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// AuthConfig points at the external authentication service used to resolve
// bearer tokens into user identities.
type AuthConfig struct {
	BaseURL    string `toml:"base_url"`
	ServiceKey string `toml:"service_key"`
}

// CacheConfig is optional; an empty URL disables the cache-backed features
// (webhook event dedup).
type CacheConfig struct {
	URL string `toml:"url"`
}

// RelayConfig carries the tunables of the completion relay, the document
// activation poll, and the broadcast composer. The defaults reproduce the
// historical fixed constants.
type RelayConfig struct {
	MaxAttempts        int `toml:"max_attempts"`
	InitialBackoffMs   int `toml:"initial_backoff_ms"`
	BroadcastDelayMs   int `toml:"broadcast_delay_ms"`
	FilePollAttempts   int `toml:"file_poll_attempts"`
	FilePollIntervalMs int `toml:"file_poll_interval_ms"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Gemini: GeminiConfig{
			Model:          DefaultGeminiModel,
			BaseURL:        DefaultGeminiBaseURL,
			UploadBaseURL:  DefaultGeminiUploadURL,
			TimeoutSeconds: DefaultGeminiTimeoutSecs,
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:       DefaultWhatsAppBaseURL,
			MediaMaxBytes: DefaultMediaMaxBytes,
		},
		Relay: RelayConfig{
			MaxAttempts:        DefaultRelayMaxAttempts,
			InitialBackoffMs:   DefaultInitialBackoffMs,
			BroadcastDelayMs:   DefaultBroadcastDelayMs,
			FilePollAttempts:   DefaultFilePollAttempts,
			FilePollIntervalMs: DefaultFilePollIntervalMs,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays environment variables on top of file values. The settings
// row in the external store still wins over both at call time.
func applyEnv(cfg *Config) {
	overlay(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	overlay(&cfg.Gemini.Model, "GEMINI_MODEL")
	overlay(&cfg.WhatsApp.AccessToken, "WHATSAPP_TOKEN")
	overlay(&cfg.WhatsApp.PhoneNumberID, "WHATSAPP_PHONE_NUMBER_ID")
	overlay(&cfg.WhatsApp.VerifyToken, "WEBHOOK_VERIFY_TOKEN")
	overlay(&cfg.WhatsApp.AppSecret, "APP_SECRET")
	overlay(&cfg.Database.URL, "DATABASE_URL")
	overlay(&cfg.Auth.BaseURL, "AUTH_URL")
	overlay(&cfg.Auth.ServiceKey, "AUTH_SERVICE_KEY")
	overlay(&cfg.Cache.URL, "CACHE_URL")

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			cfg.Server.Addr = ":" + port
		}
	}
}

func overlay(target *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	}
}
