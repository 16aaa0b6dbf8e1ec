package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/treadpro/go/internal/dbconfig"
	"github.com/mcdev12/treadpro/go/internal/events"
	"github.com/mcdev12/treadpro/go/internal/playback"
)

var ErrInvalidConfig = errors.New("invalid config")

// Session sources.
const (
	SourceYAML     = "yaml"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Playback PlaybackConfig  `yaml:"playback"`
	Sessions SessionsConfig  `yaml:"sessions"`
	Database dbconfig.Config `yaml:"database"`
	NATS     NATSConfig      `yaml:"nats"`
	Audio    AudioConfig     `yaml:"audio"`
	LogLevel string          `yaml:"log_level"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type PlaybackConfig struct {
	// WakeInterval is how often the session clock checks elapsed time.
	WakeInterval time.Duration `yaml:"wake_interval"`
}

type SessionsConfig struct {
	Source     string `yaml:"source"`
	File       string `yaml:"file"`
	SQLitePath string `yaml:"sqlite_path"`
	// SeedFromFile imports File into the SQLite store at startup.
	SeedFromFile bool `yaml:"seed_from_file"`
}

type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type AudioConfig struct {
	Enabled    bool `yaml:"enabled"`
	SampleRate int  `yaml:"sample_rate"`
}

func Default() Config {
	js := events.DefaultJetStreamConfig()
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Playback: PlaybackConfig{WakeInterval: playback.DefaultWakeInterval},
		Sessions: SessionsConfig{
			Source:     SourceYAML,
			File:       "go/internal/assets/sessions.yaml",
			SQLitePath: "treadpro.db",
		},
		Database: dbconfig.Default(),
		NATS: NATSConfig{
			URL:           js.URL,
			Stream:        js.StreamName,
			SubjectPrefix: js.SubjectPrefix,
		},
		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 44100,
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvAsInt("PORT", c.Server.Port)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Playback.WakeInterval = getEnvAsDuration("WAKE_INTERVAL", c.Playback.WakeInterval)

	c.Sessions.Source = getEnv("SESSION_SOURCE", c.Sessions.Source)
	c.Sessions.File = getEnv("SESSIONS_FILE", c.Sessions.File)
	c.Sessions.SQLitePath = getEnv("SQLITE_PATH", c.Sessions.SQLitePath)
	c.Sessions.SeedFromFile = getEnvAsBool("SESSIONS_SEED", c.Sessions.SeedFromFile)

	c.Database = c.Database.WithEnv()

	c.NATS.Enabled = getEnvAsBool("NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Stream = getEnv("NATS_STREAM", c.NATS.Stream)
	c.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", c.NATS.SubjectPrefix)

	c.Audio.Enabled = getEnvAsBool("AUDIO_ENABLED", c.Audio.Enabled)
	c.Audio.SampleRate = getEnvAsInt("AUDIO_SAMPLE_RATE", c.Audio.SampleRate)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate fills zero values with defaults and rejects settings the server
// cannot start with.
func (c *Config) Validate() error {
	def := Default()

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port out of range: %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}

	opts := c.ClockOptions()
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.Playback.WakeInterval = opts.WakeInterval

	c.Sessions.Source = strings.ToLower(c.Sessions.Source)
	switch c.Sessions.Source {
	case SourceYAML:
		if c.Sessions.File == "" {
			return fmt.Errorf("%w: sessions file is required for the yaml source", ErrInvalidConfig)
		}
	case SourceSQLite:
		if c.Sessions.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite path is required for the sqlite source", ErrInvalidConfig)
		}
		if c.Sessions.SeedFromFile && c.Sessions.File == "" {
			return fmt.Errorf("%w: sessions file is required to seed sqlite", ErrInvalidConfig)
		}
	case SourcePostgres:
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: unknown session source %q", ErrInvalidConfig, c.Sessions.Source)
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("%w: nats url is required when nats is enabled", ErrInvalidConfig)
	}
	if c.NATS.Stream == "" {
		c.NATS.Stream = def.NATS.Stream
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = def.NATS.SubjectPrefix
	}

	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = def.Audio.SampleRate
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) ClockOptions() playback.ClockOptions {
	return playback.ClockOptions{WakeInterval: c.Playback.WakeInterval}
}

// Level returns the configured log level, or info if it does not parse.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func (c *Config) JetStream() events.JetStreamConfig {
	js := events.DefaultJetStreamConfig()
	js.URL = c.NATS.URL
	js.StreamName = c.NATS.Stream
	js.SubjectPrefix = c.NATS.SubjectPrefix
	return js
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
