package huddle

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/go-playground/validator/v10"
	"github.com/huddle-bot/huddle/internal/domain/entitlements"
	"github.com/huddle-bot/huddle/internal/domain/events"
	"github.com/huddle-bot/huddle/internal/gateways/database"
	"github.com/huddle-bot/huddle/internal/gateways/rabbitmq"
	"github.com/huddle-bot/huddle/internal/gateways/spaces"
	"github.com/pelletier/go-toml/v2"
)

// LoadConfig reads and validates the bot configuration.
func LoadConfig(path string) (*Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfig decodes path over DefaultConfig without validating it, for
// tools that only need some sections.
func ReadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	if err = toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

type Config struct {
	Log          LogConfig          `toml:"log"`
	Bot          BotConfig          `toml:"bot"`
	DB           database.DBConfig  `toml:"db"`
	Storage      StorageConfig      `toml:"storage"`
	Entitlements EntitlementsConfig `toml:"entitlements"`
	Events       EventsConfig       `toml:"events"`
	Notify       NotifyConfig       `toml:"notify"`
	RabbitMQ     rabbitmq.Config    `toml:"rabbitmq"`
	Spaces       spaces.Config      `toml:"spaces"`
	Render       RenderConfig       `toml:"render"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Jobs         JobsConfig         `toml:"jobs"`
	Wizard       WizardConfig       `toml:"wizard"`
}

type LogConfig struct {
	Level slog.Level `toml:"level"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token" validate:"required"`
}

type StorageConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `toml:"driver" validate:"oneof=postgres memory"`
}

type EntitlementsConfig struct {
	FreeQuota    int `toml:"free_quota" validate:"gte=1"`
	PremiumQuota int `toml:"premium_quota" validate:"gtefield=FreeQuota"`
}

func (c EntitlementsConfig) Service() entitlements.Config {
	return entitlements.Config{FreeQuota: c.FreeQuota, PremiumQuota: c.PremiumQuota}
}

type EventsConfig struct {
	MaxSlots               int `toml:"max_slots" validate:"gte=1,lte=100"`
	DefaultDurationMinutes int `toml:"default_duration_minutes" validate:"gte=0,lte=1440"`
	GateTimeoutSeconds     int `toml:"gate_timeout_seconds" validate:"gte=1"`
	ListPageSize           int `toml:"list_page_size" validate:"gte=1,lte=10"`
	// CalendarDomain is the right hand side of exported ICS UIDs.
	CalendarDomain string `toml:"calendar_domain"`
}

// Manager derives the lifecycle manager's config; the fallback quota is the
// free quota.
func (c Config) Manager() events.Config {
	cfg := events.DefaultConfig()
	cfg.FallbackQuota = c.Entitlements.FreeQuota
	cfg.MaxSlots = c.Events.MaxSlots
	cfg.DefaultDuration = time.Duration(c.Events.DefaultDurationMinutes) * time.Minute
	cfg.GateTimeout = time.Duration(c.Events.GateTimeoutSeconds) * time.Second
	return cfg
}

type NotifyConfig struct {
	// Driver is "dm", "rabbitmq" or "none".
	Driver         string `toml:"driver" validate:"oneof=dm rabbitmq none"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=1"`
	Concurrency    int    `toml:"concurrency" validate:"gte=1,lte=20"`
}

func (c NotifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type RenderConfig struct {
	Enabled        bool `toml:"enabled"`
	TimeoutSeconds int  `toml:"timeout_seconds" validate:"gte=1"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

type JobsConfig struct {
	ExpireSubscriptions string `toml:"expire_subscriptions"`
	SweepWizard         string `toml:"sweep_wizard"`
	TimeoutSeconds      int    `toml:"timeout_seconds" validate:"gte=1"`
}

type WizardConfig struct {
	TTLMinutes int `toml:"ttl_minutes" validate:"gte=1,lte=1440"`
}

func DefaultConfig() Config {
	return Config{
		Log:          LogConfig{Level: slog.LevelInfo},
		DB:           database.DBConfig{Host: "localhost", Port: 5432, PoolSize: 10},
		Storage:      StorageConfig{Driver: "postgres"},
		Entitlements: EntitlementsConfig{FreeQuota: 2, PremiumQuota: 999},
		Events: EventsConfig{
			MaxSlots:               25,
			DefaultDurationMinutes: 60,
			GateTimeoutSeconds:     3,
			ListPageSize:           5,
		},
		Notify:   NotifyConfig{Driver: "dm", TimeoutSeconds: 15, Concurrency: 4},
		RabbitMQ: rabbitmq.Config{Retries: 5, RetryDelaySeconds: 2, Concurrency: 4},
		Render:   RenderConfig{TimeoutSeconds: 15},
		Jobs: JobsConfig{
			ExpireSubscriptions: "@every 1h",
			SweepWizard:         "@every 5m",
			TimeoutSeconds:      60,
		},
		Wizard: WizardConfig{TTLMinutes: 15},
	}
}

// Validate checks field ranges and cross section requirements.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Notify.Driver == "rabbitmq" && c.RabbitMQ.URL == "" {
		return fmt.Errorf("invalid config: notify.driver is rabbitmq but rabbitmq.url is empty")
	}
	if c.Storage.Driver == "postgres" && c.DB.Database == "" {
		return fmt.Errorf("invalid config: storage.driver is postgres but db.database is empty")
	}
	return nil
}
