package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
		// пустой список - любой origin
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver"` // postgres, memory
		DSN    string `yaml:"url"`
	} `yaml:"database"`

	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`

	ChangeFeed struct {
		Backend string `yaml:"backend"` // memory, redis, postgres
		Channel string `yaml:"channel"` // redis key prefix / postgres NOTIFY channel
	} `yaml:"changefeed"`

	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`

	Notifications struct {
		RetentionDays   int `yaml:"retention_days"`
		CleanupInterval int `yaml:"cleanup_interval_minutes"`
		FeedSize        int `yaml:"feed_size"`
	} `yaml:"notifications"`

	Stream struct {
		Buffer int `yaml:"buffer"`
	} `yaml:"stream"`
}

var AppConfig *Config

// LoadConfig читает config.yaml, если DATABASE_URL и STORE_DRIVER не заданы,
// иначе собирает конфиг из переменных окружения (docker / тесты).
func LoadConfig() (*Config, error) {
	var cfg Config

	if os.Getenv("DATABASE_URL") == "" && os.Getenv("STORE_DRIVER") == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("open config file %s: %w", configPath, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	} else {
		fromEnv(&cfg)
	}

	applyDefaults(&cfg)
	AppConfig = &cfg
	return &cfg, nil
}

func fromEnv(cfg *Config) {
	cfg.Database.DSN = os.Getenv("DATABASE_URL")
	cfg.Database.Driver = os.Getenv("STORE_DRIVER")
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.Redis.URL = os.Getenv("REDIS_URL")
	cfg.ChangeFeed.Backend = os.Getenv("CHANGEFEED_BACKEND")
	cfg.ChangeFeed.Channel = os.Getenv("CHANGEFEED_CHANNEL")
	cfg.Notifications.RetentionDays, _ = strconv.Atoi(os.Getenv("NOTIFICATION_RETENTION_DAYS"))
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = strings.Split(origins, ",")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Database.Driver == "" {
		if cfg.Database.DSN != "" {
			cfg.Database.Driver = "postgres"
		} else {
			cfg.Database.Driver = "memory"
		}
	}
	if cfg.ChangeFeed.Backend == "" {
		cfg.ChangeFeed.Backend = "memory"
	}
	if cfg.ChangeFeed.Channel == "" {
		cfg.ChangeFeed.Channel = "hiresync_changes"
	}
	if cfg.Notifications.RetentionDays <= 0 {
		cfg.Notifications.RetentionDays = 30
	}
	if cfg.Notifications.CleanupInterval <= 0 {
		cfg.Notifications.CleanupInterval = 60
	}
	if cfg.Notifications.FeedSize <= 0 {
		cfg.Notifications.FeedSize = 100
	}
	if cfg.Stream.Buffer <= 0 {
		cfg.Stream.Buffer = 1
	}
}

// CleanupInterval returns the notification retention worker period.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Notifications.CleanupInterval) * time.Minute
}

// Retention returns how long read notifications are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Notifications.RetentionDays) * 24 * time.Hour
}

func GetConfig() (*Config, error) {
	if AppConfig == nil {
		return LoadConfig()
	}
	return AppConfig, nil
}
