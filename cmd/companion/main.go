package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/sugarscope/sugarscope/internal/companion"
	"github.com/sugarscope/sugarscope/internal/config"
	"github.com/sugarscope/sugarscope/internal/logger"
	"github.com/sugarscope/sugarscope/internal/presenter"
	"github.com/sugarscope/sugarscope/internal/transport"
	"github.com/sugarscope/sugarscope/internal/transport/mqtt"
)

const shutdownTimeout = 5 * time.Second

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
	if cfg.Companion.TelegramToken == "" || cfg.Companion.ChatID == 0 {
		logger.Fatal("COMPANION_TELEGRAM_TOKEN and COMPANION_CHAT_ID are required")
	}

	// The alert card goes to stdout, so logs default to stderr here.
	output := cfg.Logger.OutputPath
	if output == "stdout" {
		output = "stderr"
	}
	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: output,
		Format:     cfg.Logger.Format,
	}); err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	log := logger.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := tgbotapi.NewBotAPI(cfg.Companion.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to create bot", "error", err)
	}
	log.Info("Companion bot authorized", "account", api.Self.UserName)

	link := mqtt.NewLink(mqtt.Config{
		Broker:   cfg.MQTT.Broker,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		PairID:   cfg.MQTT.PairID,
		Role:     mqtt.RoleCompanion,
	}, logger.Component("mqtt"))
	session := transport.NewSession(link, transport.Options{
		ImmediateTimeout: cfg.MQTT.ImmediateTimeout,
	}, logger.Component("transport"))

	notifier := presenter.NewTelegramNotifier(api, cfg.Companion.ChatID)
	notifier.QuietWarnings = true
	p := presenter.New(
		presenter.NewTerminalScreen(os.Stdout),
		presenter.NewTerminalHaptics(os.Stdout),
		notifier,
		session,
		logger.Component("presenter"),
	)
	app := companion.New(api, p, session, cfg.Companion.ChatID, logger.Component("companion"))
	session.OnMessage(app.Inbound(p.Handle))
	session.Activate()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer api.StopReceivingUpdates()
		return app.Start(gctx, updates)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return session.Close(shutdownCtx)
	})

	log.Info("Companion is running. Press Ctrl+C to stop.")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("Stopped")
}
