package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"

	"memochat/internal/db"
)

// Config holds every runtime setting. The mapstructure tags match the keys of
// config.yaml; each key can also be set through the environment variable
// bound to it in Load.
type Config struct {
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	APIToken    string `mapstructure:"api_token"`
	DataDir     string `mapstructure:"data_dir"`

	DB struct {
		Driver string `mapstructure:"driver"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"db"`

	Ledger struct {
		Mode    string `mapstructure:"mode"`
		NATSURL string `mapstructure:"nats_url"`
		Prefix  string `mapstructure:"prefix"`
		Address string `mapstructure:"address"`
		Account int    `mapstructure:"account"`
		Buffer  int    `mapstructure:"buffer"`
	} `mapstructure:"ledger"`

	AMQP struct {
		URL        string `mapstructure:"url"`
		Exchange   string `mapstructure:"exchange"`
		AuditRoute string `mapstructure:"audit_route"`
	} `mapstructure:"amqp"`

	Events struct {
		Buffer int `mapstructure:"buffer"`
	} `mapstructure:"events"`

	Processor struct {
		MaxRetries uint64 `mapstructure:"max_retries"`
	} `mapstructure:"processor"`

	OTel struct {
		Endpoint    string `mapstructure:"endpoint"`
		ServiceName string `mapstructure:"service_name"`
	} `mapstructure:"otel"`
}

const (
	LedgerMemory = "memory"
	LedgerNATS   = "nats"
)

var envBindings = map[string]string{
	"port":                  "PORT",
	"environment":           "APP_ENV",
	"api_token":             "API_TOKEN",
	"data_dir":              "DATA_DIR",
	"db.driver":             "DB_DRIVER",
	"db.dsn":                "DB_DSN",
	"ledger.mode":           "LEDGER_MODE",
	"ledger.nats_url":       "NATS_URL",
	"ledger.prefix":         "LEDGER_SUBJECT_PREFIX",
	"ledger.address":        "WALLET_ADDRESS",
	"ledger.account":        "WALLET_ACCOUNT",
	"ledger.buffer":         "LEDGER_BUFFER",
	"amqp.url":              "AMQP_URL",
	"amqp.exchange":         "AMQP_EXCHANGE",
	"amqp.audit_route":      "AUDIT_ROUTING_KEY",
	"events.buffer":         "EVENTS_BUFFER",
	"processor.max_retries": "PROCESSOR_MAX_RETRIES",
	"otel.endpoint":         "OTEL_EXPORTER_OTLP_ENDPOINT",
	"otel.service_name":     "OTEL_SERVICE_NAME",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8083")
	v.SetDefault("environment", "local")
	v.SetDefault("data_dir", ".")
	v.SetDefault("db.driver", db.DriverSQLite)
	v.SetDefault("ledger.mode", LedgerMemory)
	v.SetDefault("ledger.prefix", "ledger")
	v.SetDefault("ledger.address", "local-wallet")
	v.SetDefault("ledger.account", 0)
	v.SetDefault("ledger.buffer", 64)
	v.SetDefault("amqp.exchange", "chat.events")
	v.SetDefault("amqp.audit_route", "audit.memochat")
	v.SetDefault("events.buffer", 64)
	v.SetDefault("processor.max_retries", 5)
	v.SetDefault("otel.service_name", "memochat")
}

// Load reads config.yaml from the given directories (if present), then
// applies environment overrides and defaults.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if len(paths) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
			log.Println("config.yaml not found, using defaults and environment")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Ledger.Mode = strings.ToLower(strings.TrimSpace(c.Ledger.Mode))
	switch c.Ledger.Mode {
	case LedgerMemory:
	case LedgerNATS:
		if c.Ledger.NATSURL == "" {
			return errors.New("config: NATS_URL is required when LEDGER_MODE=nats")
		}
	default:
		return fmt.Errorf("config: unknown ledger mode %q", c.Ledger.Mode)
	}
	switch c.DB.Driver {
	case db.DriverSQLite:
	case db.DriverPostgres:
		if c.DB.DSN == "" {
			return errors.New("config: DB_DSN is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown db driver %q", c.DB.Driver)
	}
	return nil
}
