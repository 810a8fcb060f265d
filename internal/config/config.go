// Package config loads runtime configuration from environment variables.
// A .env file in the working directory is read first when present;
// variables already set in the environment win.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.
type Config struct {
	Env  string // APP_ENV (dev, test, prod)
	Port string // APP_PORT

	DB DBConfig

	JWTSecret  string        // JWT_SECRET
	AccessTTL  time.Duration // ACCESS_TOKEN_TTL_MIN
	RefreshTTL time.Duration // REFRESH_TOKEN_TTL_DAYS
	BcryptCost int           // BCRYPT_COST

	RabbitURL string // RABBITMQ_URL; empty disables lifecycle events

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Mail      MailConfig
	Media     MediaConfig
	Log       LogConfig
}

// DBConfig holds the MySQL connection settings.
type DBConfig struct {
	User, Pass   string
	Host, Port   string
	Name         string
	MaxOpenConns int
	Migrate      bool // DB_MIGRATE runs the embedded schema at startup
}

// MailConfig configures the SMTP notification dispatcher.  When Enabled
// is false notifications are only logged.
type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// MediaConfig configures the local image store.
type MediaConfig struct {
	Root     string // MEDIA_ROOT directory for image binaries
	BaseURL  string // MEDIA_BASE_URL prefix under which Root is served
	MaxBytes int64  // MEDIA_MAX_BYTES per uploaded image
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string // LOG_LEVEL: debug, info, warn, error
	File  string // LOG_FILE; when set JSON logs are also written there with rotation
}

// Dev reports whether the process runs in a development environment.
func (c Config) Dev() bool { return c.Env == "dev" || c.Env == "development" }

// LoadDotEnv reads .env style files into the process environment.  Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads the configuration.  Every missing required variable is
// reported in the returned error.
func Load() (Config, error) {
	var req required
	c := Config{
		Env:  req.str("APP_ENV"),
		Port: req.str("APP_PORT"),
		DB: DBConfig{
			User:         req.str("DB_USER"),
			Pass:         envStr("DB_PASS", ""),
			Host:         req.str("DB_HOST"),
			Port:         req.str("DB_PORT"),
			Name:         req.str("DB_NAME"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
			Migrate:      envBool("DB_MIGRATE", false),
		},
		JWTSecret:  req.str("JWT_SECRET"),
		AccessTTL:  time.Duration(req.int("ACCESS_TOKEN_TTL_MIN")) * time.Minute,
		RefreshTTL: time.Duration(req.int("REFRESH_TOKEN_TTL_DAYS")) * 24 * time.Hour,
		BcryptCost: req.int("BCRYPT_COST"),
		RabbitURL:  envStr("RABBITMQ_URL", ""),
		Redis:      LoadRedisConfig(),
		RateLimit:  LoadRateLimitConfig(),
		Cache:      LoadCacheConfig(),
		Mail: MailConfig{
			Enabled:  envBool("MAIL_ENABLED", false),
			Host:     envStr("MAIL_HOST", "localhost"),
			Port:     envInt("MAIL_PORT", 587),
			User:     envStr("MAIL_USER", ""),
			Password: envStr("MAIL_PASSWORD", ""),
			From:     envStr("MAIL_FROM", "no-reply@kinder-market.local"),
		},
		Media: MediaConfig{
			Root:     envStr("MEDIA_ROOT", "media"),
			BaseURL:  envStr("MEDIA_BASE_URL", "/media"),
			MaxBytes: int64(envInt("MEDIA_MAX_BYTES", 5<<20)),
		},
		Log: LogConfig{
			Level: envStr("LOG_LEVEL", "info"),
			File:  envStr("LOG_FILE", ""),
		},
	}
	if err := req.err(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// NotifierConfig configures the lifecycle event consumer process.
type NotifierConfig struct {
	Env       string
	RabbitURL string // RABBITMQ_URL
	EventLog  string // EVENT_LOG_FILE
	Log       LogConfig
}

// Dev reports whether the consumer runs in a development environment.
func (c NotifierConfig) Dev() bool { return c.Env == "dev" || c.Env == "development" }

// LoadNotifier reads the consumer configuration.  Only RABBITMQ_URL is
// required.
func LoadNotifier() (NotifierConfig, error) {
	var req required
	c := NotifierConfig{
		Env:       envStr("APP_ENV", "dev"),
		RabbitURL: req.str("RABBITMQ_URL"),
		EventLog:  envStr("EVENT_LOG_FILE", "logs/market-events.log"),
		Log: LogConfig{
			Level: envStr("LOG_LEVEL", "info"),
			File:  envStr("LOG_FILE", ""),
		},
	}
	if err := req.err(); err != nil {
		return NotifierConfig{}, err
	}
	return c, nil
}
