package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAIModel    = "gemini-2.0-flash"
	DefaultAIEndpoint = "https://generativelanguage.googleapis.com/v1beta"
)

// Config is the full runtime configuration. It is built once in main and handed
// to each component's constructor.
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	DatabaseURL string
	SQLitePath  string

	UploadDir     string
	ResultsDir    string
	MaxUploadMB   int64
	FrontendURL   string
	SessionName   string
	SessionKey    []byte
	SessionSecure bool
	// GeneratedSessionKey is true when SESSION_SECRET was empty and a random
	// per-process key is in use.
	GeneratedSessionKey bool

	AI     AIConfig
	Google GoogleOAuthConfig
	R2     R2Config

	DiscordWebhookURL string
}

type AIConfig struct {
	APIKey   string
	Provider string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether Google login is fully configured.
func (g GoogleOAuthConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

type R2Config struct {
	AccountID       string
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.BucketName != "" && r.AccessKeyID != "" && r.SecretAccessKey != ""
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "quizgo.db"),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		ResultsDir:  getEnv("RESULTS_DIR", "results"),
		FrontendURL: strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		SessionName: getEnv("SESSION_NAME", "quizgo_session"),
		AI: AIConfig{
			APIKey:   firstNonEmpty(os.Getenv("GOOGLE_API_KEY"), os.Getenv("GEMINI_API_KEY")),
			Provider: strings.ToLower(getEnv("AI_PROVIDER", "rest")),
			Model:    getEnv("AI_MODEL", DefaultAIModel),
			Endpoint: strings.TrimSuffix(getEnv("AI_ENDPOINT", DefaultAIEndpoint), "/"),
		},
		Google: GoogleOAuthConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		},
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			BucketName:      os.Getenv("R2_BUCKET_NAME"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			PublicURL:       os.Getenv("R2_PUBLIC_URL"),
		},
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
	}

	maxMB, err := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "16"), 10, 64)
	if err != nil || maxMB <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB %q", os.Getenv("MAX_UPLOAD_MB"))
	}
	cfg.MaxUploadMB = maxMB

	timeout, err := time.ParseDuration(getEnv("AI_TIMEOUT", "2m"))
	if err != nil {
		return nil, fmt.Errorf("invalid AI_TIMEOUT: %w", err)
	}
	cfg.AI.Timeout = timeout

	switch cfg.AI.Provider {
	case "rest", "sdk":
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q (want rest or sdk)", cfg.AI.Provider)
	}

	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return nil, fmt.Errorf("unknown GIN_MODE %q (want debug, release or test)", cfg.GinMode)
	}

	cfg.SessionSecure, _ = strconv.ParseBool(getEnv("SESSION_SECURE", "false"))
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.SessionKey = []byte(secret)
	} else {
		key, err := randomKey(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		cfg.SessionKey = key
		cfg.GeneratedSessionKey = true
	}

	return cfg, nil
}

// UsesPostgres reports whether DATABASE_URL selects the Postgres backend.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// MaxUploadBytes is the request body limit for the upload endpoint.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func randomKey(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return []byte(hex.EncodeToString(buf)), nil
}
