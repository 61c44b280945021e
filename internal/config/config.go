package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML/JSON keys to Go struct fields.
type Config struct {
	Server struct {
		Port                   int    `mapstructure:"port"`
		BaseURL                string `mapstructure:"base_url"` // Base URL for generating short links
		ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	} `mapstructure:"server"`

	// Database selects the durable store: a SQLite file (name) or MySQL (dsn).
	Database struct {
		Driver string `mapstructure:"driver"`
		Name   string `mapstructure:"name"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Cache struct {
		Driver            string `mapstructure:"driver"` // redis, bolt, memory or none
		Addr              string `mapstructure:"addr"`
		Password          string `mapstructure:"password"`
		DB                int    `mapstructure:"db"`
		Path              string `mapstructure:"path"` // bolt directory
		DefaultTTLSeconds int    `mapstructure:"default_ttl_seconds"`
	} `mapstructure:"cache"`

	// Generator identity must be unique per running process.
	Generator struct {
		WorkerID     int64 `mapstructure:"worker_id"`
		DatacenterID int64 `mapstructure:"datacenter_id"`
		EpochMillis  int64 `mapstructure:"epoch_ms"`
	} `mapstructure:"generator"`

	ShortCode struct {
		Strategy    string `mapstructure:"strategy"`
		FixedLength int    `mapstructure:"fixed_length"` // 0 for variable length
	} `mapstructure:"shortcode"`

	// Workers run background cache writes and purges.
	Workers struct {
		BufferSize         int `mapstructure:"buffer_size"`
		WorkerCount        int `mapstructure:"worker_count"`
		TaskTimeoutSeconds int `mapstructure:"task_timeout_seconds"`
	} `mapstructure:"workers"`

	Monitor struct {
		PurgeIntervalSeconds int `mapstructure:"purge_interval_seconds"`
	} `mapstructure:"monitor"`

	Stats struct {
		IntervalSeconds int `mapstructure:"interval_seconds"`
	} `mapstructure:"stats"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.shutdown_timeout_seconds", 5)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.name", "shortlink.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.path", "cache")
	v.SetDefault("cache.default_ttl_seconds", 3600)
	v.SetDefault("generator.worker_id", 0)
	v.SetDefault("generator.datacenter_id", 0)
	v.SetDefault("generator.epoch_ms", int64(1288834974657))
	v.SetDefault("shortcode.strategy", "snowflake")
	v.SetDefault("shortcode.fixed_length", 0)
	v.SetDefault("workers.buffer_size", 1000)
	v.SetDefault("workers.worker_count", 4)
	v.SetDefault("workers.task_timeout_seconds", 5)
	v.SetDefault("monitor.purge_interval_seconds", 60)
	v.SetDefault("stats.interval_seconds", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// LoadConfig loads the application configuration using Viper.
// configFile overrides the default lookup of ./configs/config.yaml. Environment
// variables win over the file, e.g. SERVER_PORT for server.port.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath("./configs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// A missing default file is fine: defaults and env apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, customerrors.ErrConfigLoad{Path: configPath(v, configFile), Reason: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, customerrors.ErrConfigLoad{Path: configPath(v, configFile), Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configPath(v *viper.Viper, configFile string) string {
	if used := v.ConfigFileUsed(); used != "" {
		return used
	}
	if configFile != "" {
		return configFile
	}
	return "./configs/config.yaml"
}

// Validate rejects values no component can start with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return errors.Wrapf(customerrors.ErrConfiguration, "server.port %d", c.Server.Port)
	case !oneOf(c.Database.Driver, "sqlite", "mysql"):
		return errors.Wrapf(customerrors.ErrConfiguration, "database.driver %q", c.Database.Driver)
	case c.Database.Driver == "mysql" && c.Database.DSN == "":
		return errors.Wrap(customerrors.ErrConfiguration, "database.dsn is required for mysql")
	case !oneOf(c.Cache.Driver, "redis", "bolt", "memory", "none"):
		return errors.Wrapf(customerrors.ErrConfiguration, "cache.driver %q", c.Cache.Driver)
	case c.Cache.DefaultTTLSeconds < 0:
		return errors.Wrap(customerrors.ErrConfiguration, "cache.default_ttl_seconds must not be negative")
	case !oneOf(c.ShortCode.Strategy, "snowflake", "sequence", "temp_alias"):
		return errors.Wrapf(customerrors.ErrConfiguration, "shortcode.strategy %q", c.ShortCode.Strategy)
	case c.ShortCode.FixedLength < 0:
		return errors.Wrap(customerrors.ErrConfiguration, "shortcode.fixed_length must not be negative")
	case c.Workers.BufferSize < 0 || c.Workers.WorkerCount <= 0 || c.Workers.TaskTimeoutSeconds < 0:
		return errors.Wrap(customerrors.ErrConfiguration, "workers sizes must be positive")
	case c.Monitor.PurgeIntervalSeconds <= 0 || c.Stats.IntervalSeconds <= 0:
		return errors.Wrap(customerrors.ErrConfiguration, "intervals must be positive")
	}
	return nil
}

// DefaultTTL is the cache lifetime of a link without a closer expiry.
func (c *Config) DefaultTTL() time.Duration {
	return time.Duration(c.Cache.DefaultTTLSeconds) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) TaskTimeout() time.Duration {
	return time.Duration(c.Workers.TaskTimeoutSeconds) * time.Second
}

func (c *Config) PurgeInterval() time.Duration {
	return time.Duration(c.Monitor.PurgeIntervalSeconds) * time.Second
}

func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.Stats.IntervalSeconds) * time.Second
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
