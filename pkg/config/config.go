package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every TechStock environment variable.
const EnvPrefix = "techstock"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Bot          BotConfig
	Ops          OpsConfig
	FeatureFlags FeatureFlagsConfig
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural constraints and compiles the configured
// number patterns so a bad pattern fails at boot instead of mid-turn.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if _, err := regexp.Compile(c.Bot.TicketNumberPattern); err != nil {
		return fmt.Errorf("invalid ticket number pattern: %w", err)
	}
	if _, err := regexp.Compile(c.Bot.ContractNumberPattern); err != nil {
		return fmt.Errorf("invalid contract number pattern: %w", err)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"TECHSTOCK_APP_ENV" default:"dev" validate:"oneof=dev prod"`
	LogLevel     string `envconfig:"TECHSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TECHSTOCK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"TECHSTOCK_DB_DSN"`

	MaxOpenConns    int           `envconfig:"TECHSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TECHSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TECHSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TECHSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TECHSTOCK_REDIS_URL"`
	Address      string        `envconfig:"TECHSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"TECHSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"TECHSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TECHSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TECHSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TECHSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TECHSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TECHSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether any redis endpoint was supplied.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

type BotConfig struct {
	// BotID is the chat-platform identity of this bot; callbacks whose
	// origin message was not authored by this id are dropped.
	BotID int64 `envconfig:"TECHSTOCK_BOT_ID" required:"true" validate:"gt=0"`

	MaxDevicesPerTicket   int    `envconfig:"TECHSTOCK_MAX_DEVICES_PER_TICKET" default:"10" validate:"gt=0"`
	TicketNumberPattern   string `envconfig:"TECHSTOCK_TICKET_NUMBER_PATTERN" default:"^[0-9]{3,10}$" validate:"required"`
	ContractNumberPattern string `envconfig:"TECHSTOCK_CONTRACT_NUMBER_PATTERN" default:"^[0-9A-Za-z/-]{3,32}$" validate:"required"`
	HistoryPageSize       int    `envconfig:"TECHSTOCK_HISTORY_PAGE_SIZE" default:"5" validate:"gt=0"`

	CallbackDedupTTL time.Duration `envconfig:"TECHSTOCK_CALLBACK_DEDUP_TTL" default:"24h"`
}

type OpsConfig struct {
	Addr string `envconfig:"TECHSTOCK_OPS_ADDR" default:":9090"`
}

type FeatureFlagsConfig struct {
	UseSQLite     bool `envconfig:"TECHSTOCK_USE_SQLITE" default:"false"`
	AutoMigrate   bool `envconfig:"TECHSTOCK_AUTO_MIGRATE" default:"false"`
	CallbackDedup bool `envconfig:"TECHSTOCK_CALLBACK_DEDUP" default:"true"`
}
