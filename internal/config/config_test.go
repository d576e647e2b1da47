package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sugarscope/sugarscope/internal/errors"
	"github.com/sugarscope/sugarscope/internal/logger"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TZ_NAME", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25.0, cfg.Alert.DailyLimitGrams)
	assert.Equal(t, 0.85, cfg.Alert.WarningRatio)
	assert.Equal(t, 3, cfg.Alert.MaxAlertsPerDay)
	assert.Equal(t, 2*time.Hour, cfg.Alert.MinInterval)
	assert.False(t, cfg.Alert.EscalationBypassesCooldown)
	assert.Equal(t, HistoryRedis, cfg.Alert.HistoryBackend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, logger.LevelInfo, cfg.Logger.Level)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("TZ_NAME", "UTC")
	t.Setenv("ALERT_DAILY_LIMIT_GRAMS", "36")
	t.Setenv("ALERT_MIN_INTERVAL", "90m")
	t.Setenv("ALERT_HISTORY_BACKEND", "postgres")
	t.Setenv("TELEGRAM_OWNER_CHAT_ID", "424242")
	t.Setenv("DB_NAME", "alerts")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 36.0, cfg.Alert.DailyLimitGrams)
	assert.Equal(t, 90*time.Minute, cfg.Alert.MinInterval)
	assert.Equal(t, HistoryPostgres, cfg.Alert.HistoryBackend)
	assert.Equal(t, int64(424242), cfg.OwnerChatID)
	assert.Contains(t, cfg.DB.DSN(), "dbname=alerts")
	assert.Equal(t, logger.LevelDebug, cfg.Logger.Level)
}

func TestValidateBot(t *testing.T) {
	c := &Config{TelegramToken: "123:abc", OwnerChatID: 424242}
	require.NoError(t, c.ValidateBot())

	open := &Config{TelegramToken: "123:abc"}
	err := open.ValidateBot()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConfig, apperrors.TypeOf(err))
	assert.Contains(t, err.Error(), "TELEGRAM_OWNER_CHAT_ID")

	t.Setenv("TZ_NAME", "UTC")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_OWNER_CHAT_ID", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Error(t, cfg.ValidateBot(), "owner chat must not default to open")
}

func TestLoad_RejectsUnparsableValues(t *testing.T) {
	t.Setenv("ALERT_DAILY_LIMIT_GRAMS", "lots")
	t.Setenv("ALERT_MIN_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConfig, apperrors.TypeOf(err))
	assert.Contains(t, err.Error(), "ALERT_DAILY_LIMIT_GRAMS")
	assert.Contains(t, err.Error(), "ALERT_MIN_INTERVAL")
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alert.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
daily_limit_grams: 30
warning_ratio: 0.9
min_interval: 45m
escalation_bypasses_cooldown: true
history_backend: memory
`), 0o600))

	t.Setenv("TZ_NAME", "UTC")
	t.Setenv("ALERT_DAILY_LIMIT_GRAMS", "20")
	t.Setenv("ALERT_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30.0, cfg.Alert.DailyLimitGrams)
	assert.Equal(t, 0.9, cfg.Alert.WarningRatio)
	assert.Equal(t, 45*time.Minute, cfg.Alert.MinInterval)
	assert.True(t, cfg.Alert.EscalationBypassesCooldown)
	assert.Equal(t, HistoryMemory, cfg.Alert.HistoryBackend)
	// Keys absent from the file keep their environment values.
	assert.Equal(t, 3, cfg.Alert.MaxAlertsPerDay)
}

func TestLoad_MissingOverlayFile(t *testing.T) {
	t.Setenv("ALERT_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Equal(t, apperrors.ErrorTypeConfig, apperrors.TypeOf(err))
}

func TestLoad_UnknownTimezone(t *testing.T) {
	t.Setenv("TZ_NAME", "Mars/Olympus_Mons")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown timezone")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			MQTT: MQTTConfig{PairID: "home", ImmediateTimeout: time.Second},
			Alert: AlertConfig{
				DailyLimitGrams: 25,
				WarningRatio:    0.85,
				MaxAlertsPerDay: 3,
				MinInterval:     time.Hour,
				HistoryBackend:  HistoryMemory,
				DeviceID:        "phone",
			},
		}
	}
	require.NoError(t, valid().Validate())

	disabled := valid()
	disabled.Alert.DailyLimitGrams = 0
	assert.NoError(t, disabled.Validate())

	cases := map[string]func(c *Config){
		"negative limit":  func(c *Config) { c.Alert.DailyLimitGrams = -1 },
		"ratio of one":    func(c *Config) { c.Alert.WarningRatio = 1 },
		"zero ratio":      func(c *Config) { c.Alert.WarningRatio = 0 },
		"zero cap":        func(c *Config) { c.Alert.MaxAlertsPerDay = 0 },
		"negative gap":    func(c *Config) { c.Alert.MinInterval = -time.Minute },
		"unknown backend": func(c *Config) { c.Alert.HistoryBackend = "sqlite" },
		"blank device":    func(c *Config) { c.Alert.DeviceID = " " },
		"wildcard pair":   func(c *Config) { c.MQTT.PairID = "home/+" },
		"zero timeout":    func(c *Config) { c.MQTT.ImmediateTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrorTypeConfig, apperrors.TypeOf(err))
		})
	}
}
