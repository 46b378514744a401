// cmd/worker/main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/voicecampaign-backend/internal/cache"
	"github.com/unclebandit/voicecampaign-backend/internal/config"
	"github.com/unclebandit/voicecampaign-backend/internal/db"
	"github.com/unclebandit/voicecampaign-backend/internal/dispatch"
	"github.com/unclebandit/voicecampaign-backend/internal/queue"
	"github.com/unclebandit/voicecampaign-backend/internal/repository"
	"github.com/unclebandit/voicecampaign-backend/internal/service"
	"github.com/unclebandit/voicecampaign-backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("failed to connect to DB", zap.Error(err))
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	credentialRepo := &repository.CredentialRepository{DB: conn}
	svc := &service.CampaignService{
		CampaignRepo: campaignRepo,
		Dispatcher: dispatch.NewClient(cfg.DispatchBaseURL, cfg.DispatchTimeout,
			&dispatch.CredentialResolver{Store: credentialRepo, GlobalKey: cfg.DispatchAPIKey}, logger),
		Logger: logger,
	}

	if recipients, err := cache.NewRecipientCache(cfg.RedisURL, cfg.RecipientsTTL); err != nil {
		logger.Warn("recipient cache disabled", zap.Error(err))
	} else {
		defer recipients.Close()
		svc.Recipients = recipients
	}

	poller := worker.NewWorker(svc, campaignRepo, cfg.PollInterval, logger)

	if cfg.AMQPURL != "" {
		q, err := queue.DialAMQP(cfg.AMQPURL, "reconcile-worker", logger)
		if err != nil {
			logger.Fatal("failed to connect to RabbitMQ", zap.Error(err))
		}
		defer q.Close()
		if err := q.Subscribe(queue.TopicCampaignEvents, poller.HandleEvent); err != nil {
			logger.Fatal("failed to subscribe to campaign events", zap.Error(err))
		}
		svc.Queue = q
	} else {
		logger.Info("AMQP_URL not set; tracking campaigns from the database only")
	}

	logger.Info("worker running, waiting for campaigns")
	if err := poller.Start(ctx); err != nil {
		logger.Error("worker stopped with error", zap.Error(err))
	}
}
