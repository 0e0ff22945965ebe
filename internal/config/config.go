package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrMissingEnvironmentVariables = errors.New("missing required environment variables")
	ErrUnknownStoreBackend         = errors.New("unknown store backend")
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env              string    `mapstructure:"env"`   // current application environment (local, dev, production)
	TelegramAPIToken string    `mapstructure:"-"`     // Telegram API token loaded from environment
	Store            Store     `mapstructure:"store"` // document store backend selection
	DB               DB        `mapstructure:"database"`
	Mongo            Mongo     `mapstructure:"mongo"`
	Redis            Redis     `mapstructure:"redis"`
	AMQP             AMQP      `mapstructure:"amqp"`
	Metrics          Metrics   `mapstructure:"metrics"`
	Quiz             Quiz      `mapstructure:"quiz"`
	Auth             Auth      `mapstructure:"auth"`
	DailyWord        DailyWord `mapstructure:"daily_word"`
}

type Store struct {
	Backend string `mapstructure:"backend"` // postgres, mongo or memory
}

// DB contains database-related configuration parameters.
type DB struct {
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections  int           `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

type Mongo struct {
	URI             string        `mapstructure:"-"` // loaded from MONGO_URI
	Database        string        `mapstructure:"database"`
	MaxPoolSize     uint64        `mapstructure:"max_pool_size"`
	MinPoolSize     uint64        `mapstructure:"min_pool_size"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type Redis struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"-"` // loaded from REDIS_PASSWORD
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// AMQP configures event publishing; an empty URL disables it.
type AMQP struct {
	URL      string `mapstructure:"-"` // loaded from AMQP_URL
	Exchange string `mapstructure:"exchange"`
}

type Metrics struct {
	Addr string `mapstructure:"addr"` // empty disables the /metrics listener
}

type Quiz struct {
	FreezeDuration   time.Duration `mapstructure:"freeze_duration"`
	ReverseAnimation time.Duration `mapstructure:"reverse_animation"`
	QuestionTime     time.Duration `mapstructure:"question_time"`
}

type Auth struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	ResetTTL   time.Duration `mapstructure:"reset_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type DailyWord struct {
	Schedule string `mapstructure:"schedule"` // cron spec, evaluated in UTC
}

// Load reads configuration from config files and environment variables.
// A .env file in the working directory is applied first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	setDefaults(v)

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("telegram_api_token", "TELEGRAM_API_TOKEN")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("mongo_uri", "MONGO_URI")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = v.BindEnv("amqp_url", "AMQP_URL")
	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("store.backend", "STORE_BACKEND")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("store.backend", BackendPostgres)
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("mongo.database", "vocanova")
	v.SetDefault("mongo.max_pool_size", 50)
	v.SetDefault("mongo.min_pool_size", 5)
	v.SetDefault("mongo.max_conn_idle_time", "5m")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "vocanova:")
	v.SetDefault("amqp.exchange", "vocanova.events")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("quiz.freeze_duration", "10s")
	v.SetDefault("quiz.reverse_animation", "1500ms")
	v.SetDefault("quiz.question_time", "30s")
	v.SetDefault("auth.session_ttl", "720h")
	v.SetDefault("auth.reset_ttl", "15m")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("daily_word.schedule", "0 0 * * *")
}

func fromViper(v *viper.Viper) (*Config, error) {
	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables.
	cfg.TelegramAPIToken = v.GetString("telegram_api_token")
	if cfg.TelegramAPIToken == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	cfg.DB.URL = v.GetString("database_url")
	cfg.Mongo.URI = v.GetString("mongo_uri")
	cfg.Redis.Password = v.GetString("redis_password")
	cfg.AMQP.URL = v.GetString("amqp_url")

	switch cfg.Store.Backend {
	case BackendPostgres:
		if cfg.DB.URL == "" {
			return nil, fmt.Errorf("%w: DATABASE_URL", ErrMissingEnvironmentVariables)
		}
	case BackendMongo:
		if cfg.Mongo.URI == "" {
			return nil, fmt.Errorf("%w: MONGO_URI", ErrMissingEnvironmentVariables)
		}
	case BackendMemory:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStoreBackend, cfg.Store.Backend)
	}

	return &cfg, nil
}
