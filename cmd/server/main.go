package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"metals-dashboard/internal/alerts"
	"metals-dashboard/internal/api"
	"metals-dashboard/internal/auth"
	"metals-dashboard/internal/config"
	"metals-dashboard/internal/database"
	"metals-dashboard/internal/feed"
	"metals-dashboard/internal/kafka"
	"metals-dashboard/internal/models"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load()

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("database ready", zap.String("path", cfg.Database.Path))

	creds := auth.NewCredentialStore(db)
	sessions := auth.NewSessionManager(db, creds, cfg.Session.TTL)

	var producer *kafka.Producer
	var alertPublisher alerts.EventPublisher
	var pricePublisher feed.PricePublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		alertPublisher = producer
		pricePublisher = producer
		log.Info("kafka producer enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	monitor := alerts.NewMonitor(db, alertPublisher, log)
	poller := feed.NewPoller(feed.NewMockFeed(), db, monitor, pricePublisher, models.Tickers(), cfg.Feed.PollInterval, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go poller.Run(ctx)
	go sweepSessions(ctx, sessions, log)
	go recomputeSummaries(ctx, db, cfg.Feed.SummaryInterval, log)

	handler := api.NewHandler(db, db, sessions, creds, poller, log)
	server := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: api.SetupRoutes(handler),
	}

	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

// recomputeSummaries periodically rebuilds yesterday's and today's daily
// summaries for every ticker, catching ticks that arrived after the poll
// cycle that first rolled them up.
func recomputeSummaries(ctx context.Context, db *database.DB, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			today := time.Now().UTC()
			for _, t := range models.Tickers() {
				for _, day := range []time.Time{today.AddDate(0, 0, -1), today} {
					if err := db.RecomputeDailySummary(t, day); err != nil {
						log.Error("summary recompute failed",
							zap.String("ticker", t), zap.Error(err))
					}
				}
			}
		}
	}
}

// sweepSessions purges expired sessions hourly, on top of the lazy cleanup
// done at login and validation.
func sweepSessions(ctx context.Context, sessions *auth.SessionManager, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.SweepExpired()
			if err != nil {
				log.Error("session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}
