package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables.
type Config struct {
	XtreamServer   string `envconfig:"XTREAM_SERVER" required:"true"`
	XtreamUsername string `envconfig:"XTREAM_USERNAME" required:"true"`
	XtreamPassword string `envconfig:"XTREAM_PASSWORD" required:"true"`

	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"15s"`

	DataDir     string `envconfig:"DATA_DIR" default:"data"`
	DownloadDir string `envconfig:"DOWNLOAD_DIR" required:"true"`

	ChunkSize    int           `envconfig:"CHUNK_SIZE" default:"32768"`
	StallTimeout time.Duration `envconfig:"STALL_TIMEOUT" default:"30s"`

	KeepHistoryFor  time.Duration `envconfig:"KEEP_HISTORY_FOR" default:"720h"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`

	LogLevel          string `envconfig:"LOG_LEVEL" default:"INFO"`
	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`

	Telemetry struct {
		Enabled        bool   `split_words:"true" default:"true"`
		ServiceName    string `split_words:"true" default:"xtream_player"`
		ServiceVersion string `split_words:"true" default:"dev"`
		Exporter       string `split_words:"true" default:"prometheus"`
		OTLPEndpoint   string `envconfig:"TELEMETRY_OTLP_ENDPOINT"`
	}

	Web struct {
		BindAddress     string        `split_words:"true" default:"0.0.0.0:8080"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"30s"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	return &cfg, nil
}

// QueueDocPath is where the pending queue document lives.
func (c *Config) QueueDocPath() string {
	return filepath.Join(c.DataDir, "download_queue.json")
}

// HistoryDBPath is where the finished-download history database lives.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
