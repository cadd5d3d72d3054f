package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Messaging modes.
const (
	ModeDirect = "direct"
	ModeRelay  = "relay"
)

// Config holds the configuration for the application.
type Config struct {
	Airtable     AirtableConfig `yaml:"airtable"`
	Telegram     TelegramConfig `yaml:"telegram"`
	Server       ServerConfig   `yaml:"server"`
	DatabasePath string         `yaml:"database_path"`
	LogLevel     string         `yaml:"log_level"`
}

// AirtableConfig locates the recipe and planning tables.
type AirtableConfig struct {
	APIURL        string `yaml:"api_url"`
	BaseID        string `yaml:"base_id"`
	RecipesTable  string `yaml:"recipes_table"`
	PlanningTable string `yaml:"planning_table"`
	Token         string `yaml:"token"`
}

// TelegramConfig configures the bot transport and the optional relay webhook.
type TelegramConfig struct {
	APIEndpoint  string        `yaml:"api_endpoint"`
	BotToken     string        `yaml:"bot_token"`
	ChatID       string        `yaml:"chat_id"`
	Mode         string        `yaml:"mode"`
	RelayURL     string        `yaml:"relay_url"`
	RelaySecret  string        `yaml:"relay_secret"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PollTimeout  int           `yaml:"poll_timeout"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Airtable: AirtableConfig{
			APIURL: "https://api.airtable.com/v0",
		},
		Telegram: TelegramConfig{
			APIEndpoint:  "https://api.telegram.org/bot%s/%s",
			Mode:         ModeRelay,
			PollInterval: 2 * time.Second,
			PollTimeout:  1,
		},
		Server:       ServerConfig{Addr: ":8080"},
		DatabasePath: "data/dashboard.db",
		LogLevel:     "info",
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file at path and finally environment variables.
func Load(path string) (*Config, error) {
	// A missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("AIRTABLE_API_URL", &c.Airtable.APIURL)
	setString("AIRTABLE_BASE_ID", &c.Airtable.BaseID)
	setString("AIRTABLE_RECIPES_TABLE", &c.Airtable.RecipesTable)
	setString("AIRTABLE_PLANNING_TABLE", &c.Airtable.PlanningTable)
	setString("AIRTABLE_TOKEN", &c.Airtable.Token)

	setString("TELEGRAM_API_ENDPOINT", &c.Telegram.APIEndpoint)
	setString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	setString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	setString("MESSAGING_MODE", &c.Telegram.Mode)
	setString("RELAY_WEBHOOK_URL", &c.Telegram.RelayURL)
	setString("RELAY_JWT_SECRET", &c.Telegram.RelaySecret)

	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL %q: %w", v, err)
		}
		c.Telegram.PollInterval = d
	}
	if v := os.Getenv("POLL_TIMEOUT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_TIMEOUT %q: %w", v, err)
		}
		c.Telegram.PollTimeout = n
	}

	setString("DATABASE_PATH", &c.DatabasePath)
	setString("LOG_LEVEL", &c.LogLevel)
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	return nil
}

// Validate checks the settings that cannot be fixed at call time.
func (c *Config) Validate() error {
	if c.Telegram.Mode != ModeDirect && c.Telegram.Mode != ModeRelay {
		return fmt.Errorf("messaging mode must be %q or %q, got %q", ModeDirect, ModeRelay, c.Telegram.Mode)
	}
	if c.Telegram.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Telegram.PollInterval)
	}
	return nil
}

// SeedCredentials returns the credentials found in the file and environment.
func (c *Config) SeedCredentials() Credentials {
	return Credentials{
		AirtableToken:  c.Airtable.Token,
		TelegramToken:  c.Telegram.BotToken,
		TelegramChatID: c.Telegram.ChatID,
	}
}
