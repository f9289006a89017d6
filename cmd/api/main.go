package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/punchamoorthee/marketdeals/internal/api"
	"github.com/punchamoorthee/marketdeals/internal/cache"
	"github.com/punchamoorthee/marketdeals/internal/config"
	"github.com/punchamoorthee/marketdeals/internal/logging"
	"github.com/punchamoorthee/marketdeals/internal/notify"
	"github.com/punchamoorthee/marketdeals/internal/service"
	"github.com/punchamoorthee/marketdeals/internal/store"
	"github.com/punchamoorthee/marketdeals/internal/telegram"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := logging.New(cfg.LogLevel, cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dealStore, err := store.NewStore(ctx, cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dealStore.Close()
	if err := dealStore.Migrate(ctx); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unavailable, telegram link codes will fail")
	}
	codes := cache.NewLinkCodes(rdb, cfg.LinkCodeTTL)

	// Initialize Layers
	publishers := notify.Multi{notify.NewLog(log)}
	var bot *telegram.Bot
	if cfg.TelegramEnabled() {
		responder := telegram.NewResponder(codes, dealStore, cfg.Currency, log)
		bot, err = telegram.NewBot(telegram.Settings{
			Token:         cfg.TelegramToken,
			WebhookURL:    cfg.TelegramWebhookURL,
			WebhookListen: cfg.TelegramWebhookListen,
		}, responder, log)
		if err != nil {
			log.Fatalf("Telegram bot: %v", err)
		}
		async := notify.NewAsync(notify.NewTelegram(bot, dealStore, log), 4, 256, log)
		defer async.Close()
		publishers = append(publishers, async)

		go bot.Start()
		defer bot.Stop()
	} else {
		log.Info("TELEGRAM_BOT_TOKEN not set, telegram bot disabled")
	}

	deals := service.NewDealService(dealStore, publishers, log, cfg.TxMaxRetries)
	handler := api.NewHandler(deals, dealStore, codes, cfg.TelegramBotName, log)

	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartCleanup(time.Minute, ctx.Done())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(handler, limiter, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		// Return through the deferred closers instead of exiting here.
		log.WithError(err).Error("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
