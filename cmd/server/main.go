// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/voicecampaign-backend/internal/cache"
	"github.com/unclebandit/voicecampaign-backend/internal/config"
	"github.com/unclebandit/voicecampaign-backend/internal/controller"
	"github.com/unclebandit/voicecampaign-backend/internal/db"
	"github.com/unclebandit/voicecampaign-backend/internal/dispatch"
	"github.com/unclebandit/voicecampaign-backend/internal/handler"
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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DSN(), logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.ApplyMigrations(ctx, conn, cfg.MigrationsDir, logger); err != nil {
		return err
	}

	campaignRepo := &repository.CampaignRepository{DB: conn}
	credentialRepo := &repository.CredentialRepository{DB: conn}

	checks := map[string]handler.Pinger{"db": conn}
	svc := &service.CampaignService{
		CampaignRepo: campaignRepo,
		Dispatcher: dispatch.NewClient(cfg.DispatchBaseURL, cfg.DispatchTimeout,
			&dispatch.CredentialResolver{Store: credentialRepo, GlobalKey: cfg.DispatchAPIKey}, logger),
		Logger: logger,
	}

	recipients, err := cache.NewRecipientCache(cfg.RedisURL, cfg.RecipientsTTL)
	if err != nil {
		// Retry falls back to a fresh reconciliation without the cache.
		logger.Warn("recipient cache disabled", zap.Error(err))
	} else {
		defer recipients.Close()
		svc.Recipients = recipients
		checks["redis"] = handler.PingFunc(recipients.Ping)
	}

	var (
		poller *worker.Worker
		events *queue.InMemoryQueue
	)
	if cfg.AMQPURL != "" {
		q, err := queue.DialAMQP(cfg.AMQPURL, "server", logger)
		if err != nil {
			return err
		}
		defer q.Close()
		svc.Queue = q
		logger.Info("publishing campaign events to amqp")
	} else {
		// Single-process mode: poll in-process off the in-memory queue.
		events = queue.NewInMemoryQueue(logger)
		poller = worker.NewWorker(svc, campaignRepo, cfg.PollInterval, logger)
		if err := events.Subscribe(queue.TopicCampaignEvents, poller.HandleEvent); err != nil {
			return err
		}
		svc.Queue = events
	}

	router := controller.NewRouter(
		&controller.CampaignController{CampaignService: svc, Logger: logger},
		&controller.SettingsController{Credentials: credentialRepo, Logger: logger},
		&handler.HealthHandler{Checks: checks, Logger: logger},
		logger,
	)
	srv := &http.Server{Addr: cfg.Addr, Handler: router}
	return serve(ctx, srv, poller, events, cfg.ShutdownTimeout, logger)
}

// serve runs srv and the optional in-process poller until ctx is done, then
// drains in-flight event deliveries. poller and events may be nil.
func serve(ctx context.Context, srv *http.Server, poller *worker.Worker, events *queue.InMemoryQueue, shutdownTimeout time.Duration, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	if poller != nil {
		g.Go(func() error { return poller.Start(gctx) })
	}
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if events != nil {
		events.Wait()
	}
	return err
}
