package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	api "jobhunt-backend/cmd/api"
	appRepo "jobhunt-backend/internal/application/repository"
	appUsecase "jobhunt-backend/internal/application/usecase"
	authDelivery "jobhunt-backend/internal/auth/delivery"
	authRepo "jobhunt-backend/internal/auth/repository"
	authUsecase "jobhunt-backend/internal/auth/usecase"
	emailDelivery "jobhunt-backend/internal/email/delivery"
	emailRepo "jobhunt-backend/internal/email/repository"
	emailUsecase "jobhunt-backend/internal/email/usecase"
	"jobhunt-backend/internal/migrate"
	"jobhunt-backend/internal/notification"
	pushDelivery "jobhunt-backend/internal/push/delivery"
	pushRepo "jobhunt-backend/internal/push/repository"
	pushUsecase "jobhunt-backend/internal/push/usecase"
	syncDelivery "jobhunt-backend/internal/syncjob/delivery"
	syncRepo "jobhunt-backend/internal/syncjob/repository"
	syncUsecase "jobhunt-backend/internal/syncjob/usecase"
	watchRepo "jobhunt-backend/internal/watch/repository"
	"jobhunt-backend/internal/watch/scheduler"
	watchUsecase "jobhunt-backend/internal/watch/usecase"
	"jobhunt-backend/pkg/ai"
	"jobhunt-backend/pkg/config"
	"jobhunt-backend/pkg/crypto"
	"jobhunt-backend/pkg/database"
	"jobhunt-backend/pkg/events"
	"jobhunt-backend/pkg/fcm"
	"jobhunt-backend/pkg/gmail"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

const jwksRefreshInterval = 15 * time.Minute

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrate.Up(ctx, db.SQL); err != nil {
		return err
	}

	sealer, err := crypto.NewSealer(cfg.EncryptionSecret)
	if err != nil {
		return err
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailReadonlyScope},
	}

	// Initialize repositories (dependency injection)
	credentialRepository := authRepo.NewCredentialRepository(db.Gorm)
	accountRepository := authRepo.NewAccountRepository(db.Gorm)
	fcmTokenRepository := authRepo.NewFCMTokenRepository(db.Gorm)
	subscriptionRepository := watchRepo.NewSubscriptionRepository(db.Gorm)
	cursorRepository := emailRepo.NewCursorRepository(db.Gorm)
	mailRecordRepository := emailRepo.NewMailRecordRepository(db.Gorm)
	processedRepository := pushRepo.NewProcessedRepository(db.Gorm)
	applicationRepository := appRepo.NewApplicationRepository(db.Gorm)
	eventLog := syncRepo.NewEventLog(db.Pool)

	vault := authUsecase.NewTokenVault(credentialRepository, sealer, authUsecase.NewOAuthRefresher(oauthConfig), logger)
	providers := gmail.NewFactory(vault, logger)
	watchManager := watchUsecase.NewManager(subscriptionRepository, providers, topicResource(cfg), logger)
	engine := emailUsecase.NewEngine(providers, mailRecordRepository, cursorRepository, watchManager,
		time.Duration(cfg.SyncDefaultDays)*24*time.Hour, logger)

	opts := []syncUsecase.Option{
		syncUsecase.WithLinker(appUsecase.NewLinker(mailRecordRepository, applicationRepository, logger)),
	}

	aiClassifier, err := ai.NewClassifier(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	}, logger)
	if err != nil {
		logger.Warn("classification disabled", zap.Error(err))
	} else {
		opts = append(opts, syncUsecase.WithClassifier(emailUsecase.NewClassifier(mailRecordRepository, aiClassifier, logger)))
	}

	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer publisher.Close()
		if err := publisher.EnsureStream(ctx); err != nil {
			return err
		}
		opts = append(opts, syncUsecase.WithPublisher(publisher))
	}

	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials, logger)
		if err != nil {
			logger.Warn("device notifications disabled", zap.Error(err))
		} else {
			opts = append(opts, syncUsecase.WithNotifier(notification.NewNotifier(fcmClient, fcmTokenRepository, logger)))
		}
	}

	orchestrator := syncUsecase.NewOrchestrator(eventLog, engine, logger, opts...)
	ingestor := pushUsecase.NewIngestor(processedRepository, accountRepository, orchestrator, logger)

	keys, err := pushUsecase.NewJWKSCache(ctx, cfg.PushJWKSURL, jwksRefreshInterval)
	if err != nil {
		return err
	}
	verifier := pushUsecase.NewVerifier(keys, cfg.PushIssuer, cfg.PushAudience, logger)

	// Pull delivery is optional; push delivery through /api/push/gmail always works.
	if cfg.GoogleProjectID != "" && cfg.GooglePubSubSubscription != "" {
		pullService, err := notification.NewService(ctx, cfg.GoogleProjectID, shortTopicName(cfg.GooglePubSubTopic),
			cfg.GooglePubSubSubscription, cfg.GoogleCredentialsFile, ingestor, logger)
		if err != nil {
			return err
		}
		defer func() { _ = pullService.Close() }()
		go func() {
			if err := pullService.Start(ctx); err != nil {
				logger.Error("pubsub pull stopped", zap.Error(err))
			}
		}()
	}

	renewals := scheduler.NewRenewalScheduler(watchManager, cfg.WatchRenewInterval, logger)
	renewals.AddHousekeeper(ingestor)
	renewals.Start()
	defer renewals.Stop()

	connector := authUsecase.NewConnectService(oauthConfig, vault, providers, accountRepository, watchManager, orchestrator, logger)

	handler := api.NewHandler(
		authDelivery.NewAuthHandler(connector, fcmTokenRepository),
		emailDelivery.NewEmailHandler(mailRecordRepository),
		pushDelivery.NewPushHandler(verifier, ingestor, logger),
		syncDelivery.NewSyncHandler(orchestrator),
		authUsecase.NewSessionValidator(cfg.JWTSecret),
		cfg.APIKey,
		logger,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- handler.Start(":" + cfg.Port) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := handler.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Warn("orchestrator shutdown", zap.Error(err))
	}
	return nil
}

// topicResource returns the fully qualified topic that watches publish to.
func topicResource(cfg *config.Config) string {
	topic := cfg.GooglePubSubTopic
	if topic == "" || strings.HasPrefix(topic, "projects/") || cfg.GoogleProjectID == "" {
		return topic
	}
	return "projects/" + cfg.GoogleProjectID + "/topics/" + topic
}

func shortTopicName(topic string) string {
	if parts := strings.Split(topic, "/"); len(parts) > 1 {
		topic = parts[len(parts)-1]
	}
	if topic == "" {
		topic = "gmail-updates"
	}
	return topic
}
