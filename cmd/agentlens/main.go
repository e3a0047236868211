package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liamashdown/agentlens/internal/alerts"
	"github.com/liamashdown/agentlens/internal/config"
	"github.com/liamashdown/agentlens/internal/intel"
	"github.com/liamashdown/agentlens/internal/polymarket/dataapi"
	"github.com/liamashdown/agentlens/internal/polymarket/gammaapi"
	"github.com/liamashdown/agentlens/internal/processor"
	"github.com/liamashdown/agentlens/internal/scheduler"
	"github.com/liamashdown/agentlens/internal/scorer"
	"github.com/liamashdown/agentlens/internal/storage"
)

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	log.Info("Starting agentlens service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		log.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
	} else {
		log.SetLevel(level)
	}

	log.WithFields(logrus.Fields{
		"environment":   cfg.Environment,
		"scan_schedule": cfg.ScanSchedule,
		"watch_markets": len(cfg.WatchMarkets),
		"holder_limit":  cfg.ScanHolderLimit,
		"holder_fetch":  cfg.HolderFetchLimit,
		"alert_mode":    cfg.AlertMode,
	}).Info("Configuration loaded")

	// Initialize database
	db, err := storage.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.WithError(err).Fatal("Failed to run database migrations")
	}

	log.Info("Database migrations complete")

	// Initialize API clients
	dataClient := dataapi.NewClient(cfg)
	gammaClient := gammaapi.NewClient(cfg)

	analyzer := intel.NewAnalyzer(
		dataapi.NewActivityFetcher(dataClient),
		scorer.New(),
		intel.Options{ScanLimit: cfg.ScanHolderLimit, BatchSize: cfg.ScanBatchSize},
		log,
	)

	alertSender := createAlertSender(cfg, log)

	proc := processor.New(cfg, db, dataClient, gammaClient, analyzer, alertSender, log)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiServer := newServer(cfg.HTTPPort, apiHandler(proc, log))
	opsServer := newServer(cfg.MetricsPort, opsHandler(db))
	for _, srv := range []*http.Server{apiServer, opsServer} {
		go func(srv *http.Server) {
			log.WithField("addr", srv.Addr).Info("Starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("HTTP server failed")
			}
		}(srv)
	}

	runner := scheduler.New(ctx, log)
	scan := func(ctx context.Context) error {
		_, err := proc.ScanSmartMoney(ctx)
		return err
	}
	if _, err := runner.Add("smart_money", cfg.ScanSchedule, scan); err != nil {
		log.WithError(err).Fatal("Failed to schedule smart money scan")
	}
	if len(cfg.WatchMarkets) > 0 {
		watch := func(ctx context.Context) error {
			var errs []error
			for _, market := range cfg.WatchMarkets {
				if _, err := proc.AnalyzeMarket(ctx, market, 0); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", market, err))
				}
			}
			return errors.Join(errs...)
		}
		if _, err := runner.Add("watch_markets", cfg.ScanSchedule, watch); err != nil {
			log.WithError(err).Fatal("Failed to schedule watched markets")
		}
	}

	// Scan immediately on startup
	go runner.RunNow("smart_money", scan)
	runner.Start()

	<-ctx.Done()
	log.Info("Received shutdown signal")

	runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range []*http.Server{apiServer, opsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).WithField("addr", srv.Addr).Error("HTTP server shutdown failed")
		}
	}

	log.Info("Graceful shutdown complete")
}

func createAlertSender(cfg *config.Config, log *logrus.Logger) alerts.Sender {
	var senders []alerts.Sender
	for _, mode := range strings.Split(cfg.AlertMode, ",") {
		switch strings.TrimSpace(mode) {
		case "log":
			senders = append(senders, alerts.NewLogSender(log))
		case "discord":
			if cfg.DiscordWebhookURL == "" {
				log.Warn("Discord mode specified but DISCORD_WEBHOOK_URL not set")
				continue
			}
			senders = append(senders, alerts.NewDiscordSender(cfg.DiscordWebhookURL))
		case "smtp":
			if cfg.SMTPHost == "" {
				log.Warn("SMTP mode specified but SMTP_HOST not set")
				continue
			}
			senders = append(senders, alerts.NewSMTPSender(
				cfg.SMTPHost,
				cfg.SMTPPort,
				cfg.SMTPUser,
				cfg.SMTPPassword,
				cfg.SMTPFrom,
				cfg.SMTPTo,
			))
		default:
			log.WithField("mode", mode).Warn("Unknown alert mode, skipping")
		}
	}

	switch len(senders) {
	case 0:
		log.Warn("No valid alert senders configured, using log")
		return alerts.NewLogSender(log)
	case 1:
		return senders[0]
	}
	return alerts.NewMultiSender(senders...)
}
