package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"SplitBot/internal/config"
	"SplitBot/internal/conversation"
	"SplitBot/internal/history"
	"SplitBot/internal/model"
	"SplitBot/internal/notifier"
	"SplitBot/internal/rate"
	"SplitBot/internal/recorder"
	"SplitBot/internal/registry"
	"SplitBot/internal/scheduler"

	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] SplitBot starting...")

	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] no .env file found, using environment variables")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init rate provider
	var fetcher rate.Fetcher = rate.NewCBRFetcher(cfg.Rate.FeedURL, cfg.Rate.Timeout, cfg.Proxy)
	if cfg.Rate.StaticValue > 0 {
		log.Printf("[INFO] static rate %.4f configured, feed disabled", cfg.Rate.StaticValue)
		fetcher = &rate.StaticFetcher{Value: cfg.Rate.StaticValue}
	}
	rates := rate.NewProvider(fetcher, cfg.Rate.Fallback, rec)
	log.Printf("[INFO] rate source: %s (fallback %.2f)", fetcher.Name(), cfg.Rate.Fallback)

	// Init sessions
	hist := history.NewStore(cfg.History.Capacity)
	machine := conversation.NewMachine(rates, hist, rec)
	reg := registry.New(machine, hist, rates, registry.Options{
		IdleTimeout:     cfg.Session.IdleTimeout,
		HistoryLimit:    cfg.History.RenderLimit,
		HistoryMaxChars: cfg.History.MaxChars,
	})

	// Init Telegram bot
	bot := notifier.NewTelegramBot(cfg.Telegram.BotToken, cfg.Proxy)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, rates, reg)
	if err := sched.RegisterAll(cfg.Schedule.RateWarmCron, cfg.Schedule.StatsCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, warming rate cache now")
		go sched.RunRateWarmNow()
	}

	// Start Telegram polling
	go bot.StartPolling(ctx, func(msg notifier.Inbound) {
		err := reg.Submit(ctx, msg.UserID, msg.Text, func(reply model.Reply) {
			if err := bot.SendWithRetry(ctx, msg.ChatID, reply, 3); err != nil {
				log.Printf("[ERROR] send reply to chat %d: %v", msg.ChatID, err)
			}
		})
		if err != nil {
			log.Printf("[WARN] drop message from user %d: %v", msg.UserID, err)
		}
	})
	log.Println("[INFO] Telegram polling started")

	log.Println("[INFO] SplitBot is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	reg.Shutdown()
	log.Println("[INFO] SplitBot stopped")
}
