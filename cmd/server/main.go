package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"donation_backend/internal/cashify"
	"donation_backend/internal/config"
	httpd "donation_backend/internal/delivery/http"
	"donation_backend/internal/events"
	"donation_backend/internal/logging"
	"donation_backend/internal/notify"
	"donation_backend/internal/repository"
	"donation_backend/internal/usecase"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.LogLevel, true)
	slog.SetDefault(log)

	if cfg.CashifyLicenseKey == "" {
		log.Warn("CASHIFY_LICENSE_KEY is empty, upstream calls will be rejected")
	}
	if cfg.HMACSecret == "" {
		log.Warn("HMAC_SECRET is empty, request signatures are not checked")
	}

	repo, err := repository.NewSQLiteRepo(cfg.SQLiteDSN)
	if err != nil {
		log.Error("failed to open db", "dsn", cfg.SQLiteDSN, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	var publisher events.Publisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewKafkaProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Error("failed to connect kafka", "brokers", cfg.KafkaBrokers, "error", err)
			os.Exit(1)
		}
		kp := events.NewKafkaPublisher(producer, cfg.KafkaTopic, log)
		defer kp.Close()
		publisher = kp
		log.Info("kafka publisher ready", "topic", cfg.KafkaTopic)
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Error("failed to init telegram", "error", err)
			os.Exit(1)
		}
		notifier = tg
		log.Info("telegram notifications enabled")
	}

	uc := usecase.NewDonationUsecase(usecase.Deps{
		Upstream:  cashify.NewClient(cfg.CashifyBaseURL, cfg.CashifyLicenseKey, config.UpstreamTimeout),
		Ledger:    repo,
		Publisher: publisher,
		Notifier:  notifier,
		Defaults: usecase.Defaults{
			QRISID:         cfg.QRISID,
			PackageIDs:     cfg.PackageIDs,
			UseUniqueCode:  cfg.UseUniqueCode,
			ExpiredMinutes: cfg.ExpiredMinutes,
		},
		Log: log,
	})
	h := httpd.NewHandler(uc, repo, log)

	srv := &http.Server{
		Addr: ":" + cfg.AppPort,
		Handler: h.Routes(httpd.RouteConfig{
			AllowedOrigins: cfg.AllowedOrigins,
			Signature: httpd.SigConfig{
				Secret: cfg.HMACSecret,
				MaxAge: cfg.SignatureMaxAge(),
			},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
