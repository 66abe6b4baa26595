package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	Port          string `envconfig:"PORT" default:"5000"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"*"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	StoreDriver string `envconfig:"STORE_DRIVER"`
	DataDir     string `envconfig:"DATA_DIR" default:"data"`
	UploadsDir  string `envconfig:"UPLOADS_DIR" default:"uploads"`
	MaxUploadMB int64  `envconfig:"MAX_UPLOAD_MB" default:"10"`

	DatabaseURL    string `envconfig:"DATABASE_URL"`
	RedisAddr      string `envconfig:"REDIS_ADDR"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"pos:collection:"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"pos-events"`

	LowStockCron   string `envconfig:"LOW_STOCK_CRON" default:"@hourly"`
	ReportTimezone string `envconfig:"REPORT_TIMEZONE" default:"UTC"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Driver() {
	case DriverMemory, DriverFile:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("STORE_DRIVER=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Driver resolves the storage backend, picking one from the connection
// settings when STORE_DRIVER is empty.
func (c Config) Driver() string {
	driver := strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if driver != "" {
		return driver
	}
	switch {
	case c.DatabaseURL != "":
		return DriverPostgres
	case c.RedisAddr != "":
		return DriverRedis
	default:
		return DriverFile
	}
}

// Location is the time zone report weeks are computed in.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.ReportTimezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("REPORT_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Brokers drops blank entries from KAFKA_BROKERS.
func (c Config) Brokers() []string {
	brokers := make([]string, 0, len(c.KafkaBrokers))
	for _, b := range c.KafkaBrokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
