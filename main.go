package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/sugarscope/sugarscope/internal/alert"
	"github.com/sugarscope/sugarscope/internal/bot"
	"github.com/sugarscope/sugarscope/internal/bot/handlers"
	"github.com/sugarscope/sugarscope/internal/bot/state"
	"github.com/sugarscope/sugarscope/internal/config"
	"github.com/sugarscope/sugarscope/internal/database"
	"github.com/sugarscope/sugarscope/internal/domain"
	"github.com/sugarscope/sugarscope/internal/logger"
	"github.com/sugarscope/sugarscope/internal/repository"
	"github.com/sugarscope/sugarscope/internal/services"
	"github.com/sugarscope/sugarscope/internal/transport"
	"github.com/sugarscope/sugarscope/internal/transport/mqtt"
)

const (
	shutdownTimeout = 5 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config", "error", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		logger.Fatal("Invalid bot config", "error", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	log := logger.Component("main")
	log.Info("Starting SugarScope", "timezone", cfg.Location.String(), "history_backend", cfg.Alert.HistoryBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg.DB, logger.Component("database"))
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	log.Info("Database connection established and migrations completed")

	var rdb *redis.Client
	if cfg.Alert.HistoryBackend == config.HistoryRedis {
		rdb, err = database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", "error", err)
		}
		defer rdb.Close()
	}

	history := alert.NewHistoryStore(newPersister(cfg, db, rdb), logger.Component("alert_history"))
	if err := history.Restore(ctx, time.Now().In(cfg.Location)); err != nil {
		log.Warn("Alert history unavailable, assuming a warning was already sent today", "error", err)
	}

	engine := alert.NewPolicyEngine(alert.Policy{
		MaxAlertsPerDay:            cfg.Alert.MaxAlertsPerDay,
		MinInterval:                cfg.Alert.MinInterval,
		EscalationBypassesCooldown: cfg.Alert.EscalationBypassesCooldown,
	})
	limits := domain.StaticLimit{
		DailyLimitGrams: cfg.Alert.DailyLimitGrams,
		WarningRatio:    cfg.Alert.WarningRatio,
	}

	link := mqtt.NewLink(mqtt.Config{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		PairID:   cfg.MQTT.PairID,
		Role:     mqtt.RolePhone,
	}, logger.Component("mqtt"))
	session := transport.NewSession(link, transport.Options{
		ImmediateTimeout: cfg.MQTT.ImmediateTimeout,
	}, logger.Component("transport"))

	alertService := services.NewAlertService(
		repository.NewHealthLogRepository(db),
		history,
		engine,
		limits,
		session,
		logger.Component("alert_service"),
		services.WithLocation(cfg.Location),
	)
	session.OnMessage(alertService.HandleInbound)
	session.Activate()

	reminders := services.NewReminderService(
		repository.NewReminderRepository(db),
		session,
		cfg.Location,
		logger.Component("reminders"),
	)

	deps := handlers.Dependencies{HealthLog: alertService, Reminders: reminders}
	if cfg.GeminiAPIKey != "" {
		classifier, err := services.NewFoodClassifier(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Fatal("Failed to create food classifier", "error", err)
		}
		defer classifier.Close()
		deps.Meals = services.NewMealScanService(classifier, alertService)
		deps.Foods = classifier
	} else {
		log.Warn("GEMINI_API_KEY not set, meal photos and food search are disabled")
	}

	var states state.StateManager = state.NewManager()
	if rdb != nil {
		states = state.NewRedisManager(rdb, logger.Component("chat_state"))
	}

	telegramBot, err := bot.NewBot(cfg.TelegramToken, deps, states, cfg.OwnerChatID, logger.Component("bot"))
	if err != nil {
		logger.Fatal("Failed to create bot", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return telegramBot.Start(gctx)
	})
	g.Go(func() error {
		purgeDaily(gctx, history, cfg.Location)
		return nil
	})
	g.Go(func() error {
		return reminders.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return session.Close(shutdownCtx)
	})

	log.Info("SugarScope is running. Press Ctrl+C to stop.")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("Stopped")
}

func newPersister(cfg *config.Config, db *gorm.DB, rdb *redis.Client) alert.Persister {
	switch cfg.Alert.HistoryBackend {
	case config.HistoryRedis:
		return alert.NewRedisPersister(rdb, cfg.Alert.DeviceID)
	case config.HistoryPostgres:
		return alert.NewGormPersister(db, cfg.Alert.DeviceID)
	default:
		return nil
	}
}

// purgeDaily drops yesterday's alert records even on days nothing is logged
func purgeDaily(ctx context.Context, history *alert.HistoryStore, loc *time.Location) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			history.PurgeStale(ctx, now.In(loc))
		}
	}
}
