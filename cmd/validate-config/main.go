package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/sugarscope/sugarscope/internal/config"
)

func main() {
	fmt.Println("🔍 Checking configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  .env file not found: %v\n", err)
	}

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err == nil {
		err = cfg.ValidateBot()
	}
	if err != nil {
		fmt.Printf("❌ Configuration is invalid:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Configuration is valid!")
	fmt.Printf("📋 Details:\n")
	fmt.Printf("  - Telegram Token: %s\n", maskToken(cfg.TelegramToken))
	fmt.Printf("  - Owner Chat ID: %s\n", chatID(cfg.OwnerChatID))
	fmt.Printf("  - Gemini API Key: %s\n", maskToken(cfg.GeminiAPIKey))
	fmt.Printf("  - Timezone: %s\n", cfg.Location)
	fmt.Printf("  - DB: %s@%s:%s/%s (sslmode=%s)\n", cfg.DB.User, cfg.DB.Host, cfg.DB.Port, cfg.DB.DBName, cfg.DB.SSLMode)
	fmt.Printf("  - Redis: %s (db %d)\n", cfg.Redis.Addr(), cfg.Redis.DB)
	fmt.Printf("  - MQTT Broker: %s (pair %q)\n", cfg.MQTT.Broker, cfg.MQTT.PairID)
	fmt.Printf("  - MQTT Password: %s\n", maskToken(cfg.MQTT.Password))
	fmt.Printf("  - Daily Limit: %.1f g (warn at %.0f%%)\n", cfg.Alert.DailyLimitGrams, cfg.Alert.WarningRatio*100)
	fmt.Printf("  - Alert Policy: max %d/day, %s apart, escalation bypasses cooldown: %t\n",
		cfg.Alert.MaxAlertsPerDay, cfg.Alert.MinInterval, cfg.Alert.EscalationBypassesCooldown)
	fmt.Printf("  - Alert History: %s (device %q)\n", cfg.Alert.HistoryBackend, cfg.Alert.DeviceID)
	fmt.Printf("  - Companion Token: %s\n", maskToken(cfg.Companion.TelegramToken))
	fmt.Printf("  - Companion Chat ID: %s\n", chatID(cfg.Companion.ChatID))
	fmt.Printf("  - Log Level: %v\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output: %s\n", cfg.Logger.OutputPath)
	fmt.Printf("  - Log Format: %s\n", cfg.Logger.Format)
}

func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func chatID(id int64) string {
	if id == 0 {
		return "<not set>"
	}
	return fmt.Sprint(id)
}
