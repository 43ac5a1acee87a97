package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/pkg/contracts"
	"marketplace/pkg/httpmetrics"
	"marketplace/pkg/logger"
	"marketplace/pkg/postgres"
	"marketplace/pkg/rabbitmq/rabbitmq_common"
	"marketplace/pkg/rabbitmq/rabbitmq_consumer"
	"marketplace/pkg/ratelimit"
	"marketplace/pkg/scheduler"
	"marketplace/services/messaging-service/internal/adapters/listing_client"
	postgres_adapter "marketplace/services/messaging-service/internal/adapters/postgres"
	rabbitmq_adapter "marketplace/services/messaging-service/internal/adapters/rabbitmq"
	"marketplace/services/messaging-service/internal/adapters/realtime"
	"marketplace/services/messaging-service/internal/adapters/redis_cache"
	"marketplace/services/messaging-service/internal/adapters/rest"
	"marketplace/services/messaging-service/internal/configs"
	"marketplace/services/messaging-service/internal/constants"
	"marketplace/services/messaging-service/internal/core/port"
	"marketplace/services/messaging-service/internal/core/usecase"
	"marketplace/services/messaging-service/migrations"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App – структура приложения
type App struct {
	config       *configs.AppConfig
	dbPool       *pgxpool.Pool
	redisClient  *redis.Client
	apiServer    *rest.Server
	scheduler    *scheduler.Scheduler
	fluentClient *fluent.Fluent
	logger       port.LoggerPort

	sseHub      *realtime.SSEHub
	publisher   *realtime.SupabasePublisher
	consumer    *rabbitmq_adapter.ListingEventsConsumerAdapter
	connManager *rabbitmq_common.ConnectionManager
}

// NewApp - точка сборки зависимостей сервиса.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- 1. ЛОГГЕРЫ ---
	baseLogger, fluentClient, err := logger.Setup(logger.SetupConfig{
		AppName:      appConfig.AppName,
		StdoutLevel:  appConfig.StdoutLogger.Level,
		StdoutJSON:   appConfig.StdoutLogger.JSON,
		FluentEnable: appConfig.FluentBit.Enabled,
		FluentHost:   appConfig.FluentBit.Host,
		FluentPort:   appConfig.FluentBit.Port,
		FluentLevel:  appConfig.FluentBit.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up loggers: %w", err)
	}
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})

	closeFluent := func() {
		if fluentClient != nil {
			fluentClient.Close()
		}
	}

	// --- 2. POSTGRES И МИГРАЦИИ ---
	if appConfig.Database.AutoMigrate {
		if err := postgres.Migrate(appConfig.Database.URL, migrations.FS, "."); err != nil {
			appLogger.Error("Failed to apply migrations", err, nil)
			closeFluent()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		appLogger.Info("Database migrations applied.", nil)
	}

	dbPool, err := postgres.NewClient(context.Background(), postgres.Config{
		DatabaseURL: appConfig.Database.URL,
		MaxConns:    int32(appConfig.Database.MaxConns),
	})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		closeFluent()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	appLogger.Info("Successfully connected to PostgreSQL pool!", nil)

	var redisClient *redis.Client
	fail := func(msg string, err error) (*App, error) {
		appLogger.Error(msg, err, nil)
		if redisClient != nil {
			_ = redisClient.Close()
		}
		dbPool.Close()
		closeFluent()
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	conversationRepo, err := postgres_adapter.NewPostgresConversationRepository(dbPool)
	if err != nil {
		return fail("failed to create conversation repository", err)
	}
	messageRepo, err := postgres_adapter.NewPostgresMessageRepository(dbPool)
	if err != nil {
		return fail("failed to create message repository", err)
	}
	notificationRepo, err := postgres_adapter.NewPostgresNotificationRepository(dbPool)
	if err != nil {
		return fail("failed to create notification repository", err)
	}
	reportRepo, err := postgres_adapter.NewPostgresReportRepository(dbPool)
	if err != nil {
		return fail("failed to create report repository", err)
	}
	analyticsRepo, err := postgres_adapter.NewPostgresAnalyticsRepository(dbPool)
	if err != nil {
		return fail("failed to create analytics repository", err)
	}
	appLogger.Info("Postgres storage adapters initialized.", nil)

	// --- 3. КЭШ НЕПРОЧИТАННЫХ ---
	var unreadCache port.UnreadCounterCachePort = redis_cache.NoopCache{}
	if appConfig.Redis.Enabled {
		redisClient, err = redis_cache.NewClient(context.Background(), redis_cache.Config{
			Addr:     appConfig.Redis.Addr,
			Password: appConfig.Redis.Password,
			DB:       appConfig.Redis.DB,
		})
		if err != nil {
			// без кэша сервис работает, счетчик читается из БД
			appLogger.Warn("Redis is unavailable, unread counters will not be cached", port.Fields{"error": err.Error()})
		} else {
			unreadCache = redis_cache.NewUnreadCache(redisClient, appConfig.Redis.UnreadTTL)
			appLogger.Info("Redis unread cache initialized.", port.Fields{"addr": appConfig.Redis.Addr})
		}
	}

	// --- 4. REALTIME ---
	metrics := httpmetrics.New("messaging_service")
	realtimeMetrics := realtime.NewMetrics(metrics.Registry())

	sseHub := realtime.NewSSEHub(baseLogger, realtimeMetrics)
	sinks := []port.BroadcasterPort{sseHub}
	var publisher *realtime.SupabasePublisher
	if appConfig.Realtime.Enabled {
		publisher, err = realtime.NewSupabasePublisher(realtime.SupabaseConfig{
			URL:               appConfig.Realtime.URL,
			APIKey:            appConfig.Realtime.ServiceKey,
			HeartbeatInterval: appConfig.Realtime.HeartbeatInterval,
		}, baseLogger, realtimeMetrics)
		if err != nil {
			return fail("failed to create supabase realtime publisher", err)
		}
		sinks = append(sinks, publisher)
	}
	broadcaster := realtime.NewFanoutBroadcaster(sinks...)
	appLogger.Info("Realtime fan-out initialized.", port.Fields{"supabase_enabled": appConfig.Realtime.Enabled})

	// --- 5. ВНЕШНИЕ СЕРВИСЫ И ЛИМИТЫ ---
	catalog := listing_client.NewClient(appConfig.ListingService.URL, appConfig.ListingService.Timeout)
	sendLimiter := ratelimit.NewKeyedLimiter(appConfig.Messaging.SendRate, appConfig.Messaging.SendBurst)

	// --- 6. USE CASES ---
	notifier := usecase.NewNotifier(notificationRepo, unreadCache, broadcaster)

	conversationsHandler := rest.NewConversationsHandler(rest.ConversationsUseCases{
		Start:    usecase.NewStartConversationUseCase(catalog, conversationRepo, messageRepo, broadcaster, notifier, sendLimiter),
		List:     usecase.NewListConversationsUseCase(conversationRepo),
		Get:      usecase.NewGetConversationUseCase(conversationRepo),
		MarkRead: usecase.NewMarkConversationReadUseCase(conversationRepo, messageRepo, broadcaster),
		Send:     usecase.NewSendMessageUseCase(conversationRepo, messageRepo, broadcaster, notifier, sendLimiter),
		History:  usecase.NewListMessagesUseCase(conversationRepo, messageRepo),
		Poll:     usecase.NewPollMessagesUseCase(conversationRepo, messageRepo),
	})
	notificationsHandler := rest.NewNotificationsHandler(
		usecase.NewListNotificationsUseCase(notificationRepo),
		usecase.NewMarkNotificationsReadUseCase(notificationRepo, unreadCache),
		usecase.NewMarkAllNotificationsReadUseCase(notificationRepo, unreadCache),
		usecase.NewUnreadCountUseCase(notificationRepo, unreadCache),
	)
	reportsHandler := rest.NewReportsHandler(rest.ReportsUseCases{
		Create:     usecase.NewCreateReportUseCase(reportRepo, conversationRepo, messageRepo),
		ListMy:     usecase.NewListMyReportsUseCase(reportRepo),
		List:       usecase.NewListReportsUseCase(reportRepo),
		Get:        usecase.NewGetReportUseCase(reportRepo, conversationRepo, messageRepo),
		Transition: usecase.NewTransitionReportUseCase(reportRepo, notifier),
	})
	adminHandler := rest.NewAdminHandler(
		usecase.NewAdminListMessagesUseCase(conversationRepo, messageRepo),
		usecase.NewMessagingAnalyticsUseCase(analyticsRepo),
	)
	appLogger.Info("All use cases initialized.", nil)

	// --- 7. RABBITMQ ---
	connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
	connManager, err := rabbitmq_common.GetManager(appConfig.RabbitMQ.URL, connManagerBridge)
	if err != nil {
		return fail("failed to create connection manager", err)
	}

	consumer, err := rabbitmq_adapter.NewListingEventsConsumerAdapter(
		rabbitmq_consumer.ConsumerConfig{
			Config:                 rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			QueueName:              constants.ListingEventsQueue,
			DeclareQueue:           true,
			DurableQueue:           true,
			ExchangeNameForBind:    constants.EventsExchange,
			DeclareExchangeForBind: true,
			ExchangeTypeForBind:    constants.EventsExchangeType,
			DurableExchangeForBind: true,
			RoutingKeysForBind:     []string{contracts.RoutingKeyInquiryCreated, contracts.RoutingKeyListingArchived},
			PrefetchCount:          appConfig.RabbitMQ.Prefetch,
			ConsumerTag:            constants.ListingEventsConsumerTag,
			EnableRetryMechanism:   true,
			RetryExchange:          constants.ListingEventsRetryEx,
			RetryQueue:             constants.ListingEventsRetryQueue,
			RetryTTL:               int(appConfig.RabbitMQ.RetryTTL.Milliseconds()),
			FinalDLXExchange:       constants.ListingEventsFinalDLX,
			FinalDLQ:               constants.ListingEventsFinalDLQ,
			FinalDLQRoutingKey:     constants.ListingEventsDLQKey,
			MaxRetries:             appConfig.RabbitMQ.MaxRetries,
		},
		usecase.NewHandleInquiryCreatedUseCase(conversationRepo, messageRepo, broadcaster, notifier),
		usecase.NewHandleListingArchivedUseCase(conversationRepo, messageRepo, broadcaster, notifier),
		baseLogger,
		rabbitmq_adapter.NewConsumedEventsCounter(metrics.Registry()),
		connManager,
	)
	if err != nil {
		_ = connManager.Close()
		return fail("failed to create listing events consumer", err)
	}
	appLogger.Info("RabbitMQ listing events consumer initialized.", nil)

	// --- 8. ПЛАНИРОВЩИК ---
	purgeUC := usecase.NewPurgeReadNotificationsUseCase(notificationRepo, appConfig.Messaging.NotificationRetention)
	idleTTL := appConfig.Messaging.LimiterIdleTTL
	jobs := scheduler.New(baseLogger)
	if err := jobs.Add(constants.JobPurgeReadNotifications, appConfig.Messaging.PurgeCronSpec, purgeUC.Execute); err != nil {
		_ = consumer.Close()
		_ = connManager.Close()
		return fail("failed to schedule notification purge", err)
	}
	err = jobs.Add(constants.JobCleanupRateLimiters, appConfig.Messaging.LimiterCleanupCron, func(ctx context.Context) error {
		if removed := sendLimiter.Cleanup(idleTTL); removed > 0 {
			baseLogger.Debug("Idle send limiters removed", port.Fields{"removed": removed, "remaining": sendLimiter.Len()})
		}
		return nil
	})
	if err != nil {
		_ = consumer.Close()
		_ = connManager.Close()
		return fail("failed to schedule limiter cleanup", err)
	}

	// --- 9. REST API ---
	apiServer := rest.NewServer(appConfig.Rest.PORT, rest.Handlers{
		Conversations: conversationsHandler,
		Notifications: notificationsHandler,
		Reports:       reportsHandler,
		Admin:         adminHandler,
		Realtime:      rest.NewRealtimeHandler(sseHub),
	}, metrics, baseLogger)
	appLogger.Info("REST API server configured.", nil)

	return &App{
		config:       appConfig,
		dbPool:       dbPool,
		redisClient:  redisClient,
		apiServer:    apiServer,
		scheduler:    jobs,
		fluentClient: fluentClient,
		logger:       appLogger,
		sseHub:       sseHub,
		publisher:    publisher,
		consumer:     consumer,
		connManager:  connManager,
	}, nil
}

// Run запускает все компоненты приложения и управляет их жизненным циклом.
func (a *App) Run() error {
	runCtx, stopRun := context.WithCancel(context.Background())

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		// хаб закрывает клиентские каналы, и SSE-потоки завершаются до Shutdown сервера
		stopRun()

		if a.apiServer != nil {
			if err := a.apiServer.Stop(shutdownCtx); err != nil {
				a.logger.Error("Error during API server shutdown", err, nil)
			}
		}

		if a.scheduler != nil {
			if err := a.scheduler.Stop(shutdownCtx); err != nil {
				a.logger.Error("Error stopping scheduler", err, nil)
			}
		}

		if a.consumer != nil {
			if err := a.consumer.Close(); err != nil {
				a.logger.Error("Error closing listing events consumer", err, nil)
			}
		}

		if a.connManager != nil {
			if err := a.connManager.Close(); err != nil {
				a.logger.Error("Error closing RabbitMQ connection", err, nil)
			}
		}

		if a.redisClient != nil {
			if err := a.redisClient.Close(); err != nil {
				a.logger.Error("Error closing Redis client", err, nil)
			}
		}

		if a.dbPool != nil {
			a.dbPool.Close()
			a.logger.Info("PostgreSQL pool closed.", nil)
		}

		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	errorsCh := make(chan error, 2)

	go a.sseHub.Run(runCtx)
	if a.publisher != nil {
		go a.publisher.Run(runCtx)
	}

	go func() {
		a.logger.Info("Starting listing events consumer...", nil)
		if err := a.consumer.Start(runCtx); err != nil {
			errorsCh <- fmt.Errorf("listing events consumer failed: %w", err)
		}
	}()

	a.scheduler.Start()

	go func() {
		a.logger.Info("Starting HTTP server...", port.Fields{"port": a.config.Rest.PORT})
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			errorsCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or server error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case err := <-errorsCh:
		a.logger.Error("A critical component failed, shutting down", err, nil)
		return err
	}

	return nil
}
