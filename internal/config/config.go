package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/lobbywatch/backend/internal/lobby"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Lobby   LobbyConfig   `yaml:"lobby"`
	Steam   SteamConfig   `yaml:"steam"`
	Enrich  EnrichConfig  `yaml:"enrich"`
	Publish PublishConfig `yaml:"publish"`
	Redis   RedisConfig   `yaml:"redis"`
	Source  SourceConfig  `yaml:"source"`
	Process ProcessConfig `yaml:"process"`
}

type ServerConfig struct {
	Port           int    `yaml:"port" env:"LOBBYWATCH_PORT"`
	Host           string `yaml:"host"`
	AuthToken      string `yaml:"auth_token" env:"LOBBYWATCH_AUTH_TOKEN"`
	MaxConnections int    `yaml:"max_connections"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOBBYWATCH_LOG_LEVEL"`
	Format string `yaml:"format"`
}

type LobbyConfig struct {
	StaleAfter time.Duration `yaml:"stale_after"`
}

type SteamConfig struct {
	APIKey    string        `yaml:"api_key" env:"STEAM_API_KEY"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	BatchSize int           `yaml:"batch_size"`
	// SelfSteamID accepts either textual form.
	SelfSteamID lobby.SteamID `yaml:"self_steamid" env:"LOBBYWATCH_SELF_STEAMID"`
}

type EnrichConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type PublishConfig struct {
	Interval         time.Duration `yaml:"interval"`
	SubscriberBuffer int           `yaml:"subscriber_buffer"`
}

// RedisConfig configures the optional profile cache. An empty Addr disables
// it.
type RedisConfig struct {
	Addr      string        `yaml:"addr" env:"LOBBYWATCH_REDIS_ADDR"`
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

// SourceConfig configures the JSONL event file. An empty Path disables it.
type SourceConfig struct {
	Path         string        `yaml:"path" env:"LOBBYWATCH_EVENTS_PATH"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type ProcessConfig struct {
	Names    []string      `yaml:"names"`
	Interval time.Duration `yaml:"interval"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8090,
			Host: "0.0.0.0",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Lobby: LobbyConfig{
			StaleAfter: 30 * time.Second,
		},
		Steam: SteamConfig{
			BaseURL:   "https://api.steampowered.com",
			Timeout:   10 * time.Second,
			BatchSize: 100,
		},
		Enrich: EnrichConfig{
			Interval: 5 * time.Second,
		},
		Publish: PublishConfig{
			Interval:         5 * time.Second,
			SubscriberBuffer: 4,
		},
		Redis: RedisConfig{
			TTL:       24 * time.Hour,
			KeyPrefix: "lobbywatch",
		},
		Source: SourceConfig{
			PollInterval: time.Second,
		},
		Process: ProcessConfig{
			Names:    []string{"hl2", "hl2_linux", "tf_win64", "tf_linux64"},
			Interval: 10 * time.Second,
		},
	}
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Load reads path over the defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadOrDefault behaves like Load but falls back to the defaults when path
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return finish(Default())
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxConnections < 0 {
		return errors.New("server.max_connections must not be negative")
	}
	intervals := []struct {
		name string
		d    time.Duration
	}{
		{"lobby.stale_after", c.Lobby.StaleAfter},
		{"steam.timeout", c.Steam.Timeout},
		{"enrich.interval", c.Enrich.Interval},
		{"publish.interval", c.Publish.Interval},
		{"source.poll_interval", c.Source.PollInterval},
		{"process.interval", c.Process.Interval},
	}
	for _, iv := range intervals {
		if iv.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", iv.name, iv.d)
		}
	}
	if c.Steam.BatchSize < 1 || c.Steam.BatchSize > 100 {
		return fmt.Errorf("steam.batch_size must be between 1 and 100, got %d", c.Steam.BatchSize)
	}
	if c.Publish.SubscriberBuffer < 1 {
		return fmt.Errorf("publish.subscriber_buffer must be at least 1, got %d", c.Publish.SubscriberBuffer)
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		return fmt.Errorf("redis.ttl must be positive, got %s", c.Redis.TTL)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
