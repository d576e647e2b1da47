package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/logger"
)

// History backends for the alert dispatch log
const (
	HistoryRedis    = "redis"
	HistoryPostgres = "postgres"
	HistoryMemory   = "memory"
)

type Config struct {
	TelegramToken string
	OwnerChatID   int64
	GeminiAPIKey  string
	Timezone      string
	Location      *time.Location
	DB            DBConfig
	Redis         RedisConfig
	MQTT          MQTTConfig
	Alert         AlertConfig
	Companion     CompanionConfig
	Logger        LoggerConfig
}

type DBConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
}

// DSN returns the postgres connection string
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type MQTTConfig struct {
	Broker           string
	ClientID         string
	Username         string
	Password         string
	PairID           string
	ImmediateTimeout time.Duration
}

// AlertConfig holds the daily budget and anti-spam policy. Fields can be
// overridden by the YAML file named in ALERT_CONFIG_FILE.
type AlertConfig struct {
	DailyLimitGrams            float64       `yaml:"daily_limit_grams"`
	WarningRatio               float64       `yaml:"warning_ratio"`
	MaxAlertsPerDay            int           `yaml:"max_alerts_per_day"`
	MinInterval                time.Duration `yaml:"min_interval"`
	EscalationBypassesCooldown bool          `yaml:"escalation_bypasses_cooldown"`
	HistoryBackend             string        `yaml:"history_backend"`
	DeviceID                   string        `yaml:"device_id"`
}

type CompanionConfig struct {
	TelegramToken string
	ChatID        int64
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func Load() (*Config, error) {
	var errs []string
	num := func(key, def string) float64 {
		v, err := strconv.ParseFloat(getEnvOrDefault(key, def), 64)
		if err != nil {
			errs = append(errs, key+" must be a number")
		}
		return v
	}
	integer := func(key, def string) int64 {
		v, err := strconv.ParseInt(getEnvOrDefault(key, def), 10, 64)
		if err != nil {
			errs = append(errs, key+" must be an integer")
		}
		return v
	}
	duration := func(key, def string) time.Duration {
		v, err := time.ParseDuration(getEnvOrDefault(key, def))
		if err != nil {
			errs = append(errs, key+" must be a duration")
		}
		return v
	}
	boolean := func(key, def string) bool {
		v, err := strconv.ParseBool(getEnvOrDefault(key, def))
		if err != nil {
			errs = append(errs, key+" must be true or false")
		}
		return v
	}

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		OwnerChatID:   integer("TELEGRAM_OWNER_CHAT_ID", "0"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		Timezone:      getEnvOrDefault("TZ_NAME", "Local"),
		DB: DBConfig{
			Host:         getEnvOrDefault("DB_HOST", "localhost"),
			Port:         getEnvOrDefault("DB_PORT", "5432"),
			User:         getEnvOrDefault("DB_USER", "postgres"),
			Password:     getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:       getEnvOrDefault("DB_NAME", "sugarscope"),
			SSLMode:      getEnvOrDefault("DB_SSLMODE", "disable"),
			MaxOpenConns: int(integer("DB_MAX_OPEN_CONNS", "10")),
		},
		Redis: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       int(integer("REDIS_DB", "0")),
		},
		MQTT: MQTTConfig{
			Broker:           getEnvOrDefault("MQTT_BROKER", "tcp://localhost:1883"),
			ClientID:         os.Getenv("MQTT_CLIENT_ID"),
			Username:         os.Getenv("MQTT_USERNAME"),
			Password:         os.Getenv("MQTT_PASSWORD"),
			PairID:           getEnvOrDefault("MQTT_PAIR_ID", "default"),
			ImmediateTimeout: duration("MQTT_IMMEDIATE_TIMEOUT", "3s"),
		},
		Alert: AlertConfig{
			DailyLimitGrams:            num("ALERT_DAILY_LIMIT_GRAMS", "25"),
			WarningRatio:               num("ALERT_WARNING_RATIO", "0.85"),
			MaxAlertsPerDay:            int(integer("ALERT_MAX_PER_DAY", "3")),
			MinInterval:                duration("ALERT_MIN_INTERVAL", "2h"),
			EscalationBypassesCooldown: boolean("ALERT_ESCALATION_BYPASSES_COOLDOWN", "false"),
			HistoryBackend:             getEnvOrDefault("ALERT_HISTORY_BACKEND", HistoryRedis),
			DeviceID:                   getEnvOrDefault("ALERT_DEVICE_ID", "phone"),
		},
		Companion: CompanionConfig{
			TelegramToken: os.Getenv("COMPANION_TELEGRAM_TOKEN"),
			ChatID:        integer("COMPANION_CHAT_ID", "0"),
		},
		Logger: LoggerConfig{
			Level:      logger.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}
	if len(errs) > 0 {
		return nil, apperrors.NewConfigError(strings.Join(errs, "; "))
	}

	if path := os.Getenv("ALERT_CONFIG_FILE"); path != "" {
		if err := cfg.overlayAlert(path); err != nil {
			return nil, err
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown timezone %q", cfg.Timezone))
	}
	cfg.Location = loc

	return cfg, nil
}

// overlayAlert replaces alert settings with those present in a YAML file.
func (c *Config) overlayAlert(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("cannot read %s: %v", path, err))
	}
	if err := yaml.Unmarshal(data, &c.Alert); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("cannot parse %s: %v", path, err))
	}
	return nil
}

// ValidateBot checks the phone bot settings. The bot serves a single owner, so
// the owner chat is required.
func (c *Config) ValidateBot() error {
	var problems []string
	if c.TelegramToken == "" {
		problems = append(problems, "TELEGRAM_BOT_TOKEN is required")
	}
	if c.OwnerChatID == 0 {
		problems = append(problems, "TELEGRAM_OWNER_CHAT_ID is required")
	}
	if len(problems) > 0 {
		return apperrors.NewConfigError(strings.Join(problems, "; "))
	}
	return nil
}

// Validate checks the values the alert pipeline depends on.
// A zero daily limit is allowed and disables alerting.
func (c *Config) Validate() error {
	var problems []string

	a := c.Alert
	if a.DailyLimitGrams < 0 {
		problems = append(problems, "daily limit must not be negative")
	}
	if a.WarningRatio <= 0 || a.WarningRatio >= 1 {
		problems = append(problems, "warning ratio must be between 0 and 1")
	}
	if a.MaxAlertsPerDay <= 0 {
		problems = append(problems, "max alerts per day must be positive")
	}
	if a.MinInterval < 0 {
		problems = append(problems, "min interval must not be negative")
	}
	switch a.HistoryBackend {
	case HistoryRedis, HistoryPostgres, HistoryMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown history backend %q", a.HistoryBackend))
	}
	if strings.TrimSpace(a.DeviceID) == "" {
		problems = append(problems, "device id is required")
	}
	if c.MQTT.PairID == "" || strings.ContainsAny(c.MQTT.PairID, "/+#") {
		problems = append(problems, "mqtt pair id must be non-empty and free of / + #")
	}
	if c.MQTT.ImmediateTimeout <= 0 {
		problems = append(problems, "mqtt immediate timeout must be positive")
	}

	if len(problems) > 0 {
		return apperrors.NewConfigError(strings.Join(problems, "; "))
	}
	return nil
}
