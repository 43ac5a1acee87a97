package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/pkg/httpmetrics"
	"marketplace/pkg/logger"
	"marketplace/pkg/postgres"
	"marketplace/pkg/rabbitmq/rabbitmq_common"
	"marketplace/pkg/rabbitmq/rabbitmq_producer"
	"marketplace/pkg/scheduler"
	"marketplace/services/listing-service/internal/adapters/importer"
	postgres_adapter "marketplace/services/listing-service/internal/adapters/postgres"
	rabbitmq_adapter "marketplace/services/listing-service/internal/adapters/rabbitmq"
	"marketplace/services/listing-service/internal/adapters/rest"
	"marketplace/services/listing-service/internal/adapters/supabase_storage"
	"marketplace/services/listing-service/internal/configs"
	"marketplace/services/listing-service/internal/constants"
	"marketplace/services/listing-service/internal/core/port"
	"marketplace/services/listing-service/internal/core/usecase"
	"marketplace/services/listing-service/migrations"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App – структура приложения
type App struct {
	config       *configs.AppConfig
	dbPool       *pgxpool.Pool
	apiServer    *rest.Server
	scheduler    *scheduler.Scheduler
	fluentClient *fluent.Fluent
	logger       port.LoggerPort

	eventsProducer *rabbitmq_producer.Publisher
	connManager    *rabbitmq_common.ConnectionManager
	archiveJob     scheduler.Job
}

// NewApp создает новый экземпляр приложения.
// Это "Composition Root", где все зависимости создаются и связываются.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- 1. ИНИЦИАЛИЗАЦИЯ ЛОГГЕРОВ ---
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

	fail := func(msg string, err error) (*App, error) {
		appLogger.Error(msg, err, nil)
		dbPool.Close()
		closeFluent()
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	listingRepo, err := postgres_adapter.NewPostgresListingRepository(dbPool)
	if err != nil {
		return fail("failed to create listing repository", err)
	}
	favoritesRepo, err := postgres_adapter.NewPostgresFavoritesRepository(dbPool)
	if err != nil {
		return fail("failed to create favorites repository", err)
	}
	inquiryRepo, err := postgres_adapter.NewPostgresInquiryRepository(dbPool)
	if err != nil {
		return fail("failed to create inquiry repository", err)
	}
	analyticsRepo, err := postgres_adapter.NewPostgresAnalyticsRepository(dbPool)
	if err != nil {
		return fail("failed to create analytics repository", err)
	}
	appLogger.Info("Postgres storage adapters initialized.", nil)

	// --- 3. RABBITMQ ---
	connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
	connManager, err := rabbitmq_common.GetManager(appConfig.RabbitMQ.URL, connManagerBridge)
	if err != nil {
		return fail("failed to create connection manager", err)
	}
	appLogger.Info("RabbitMQ Connection Manager initialized.", nil)

	eventsProducer, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
		Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
		ExchangeName:             constants.EventsExchange,
		ExchangeType:             constants.EventsExchangeType,
		DurableExchange:          true,
		DeclareExchangeIfMissing: true,

		Logger: rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})),
	}, connManager)
	if err != nil {
		return fail("failed to create event producer", err)
	}
	eventPublisher, err := rabbitmq_adapter.NewListingEventPublisherAdapter(eventsProducer)
	if err != nil {
		return fail("failed to create event publisher adapter", err)
	}
	appLogger.Info("RabbitMQ Event Producer initialized.", nil)

	// --- 4. ВНЕШНИЕ СЕРВИСЫ ---
	storageClient, err := supabase_storage.NewClient(supabase_storage.Config{
		ProjectURL: appConfig.Supabase.URL,
		ServiceKey: appConfig.Supabase.ServiceKey,
		Bucket:     appConfig.Supabase.StorageBucket,
		Timeout:    appConfig.Supabase.Timeout,
	})
	if err != nil {
		return fail("failed to create supabase storage client", err)
	}
	scraper, err := importer.NewOpenGraphScraper(importer.Config{
		Timeout:              appConfig.Listings.ImportTimeout,
		AllowPrivateNetworks: appConfig.Listings.ImportAllowPrivate,
	})
	if err != nil {
		return fail("failed to create import scraper", err)
	}
	appLogger.Info("All outgoing adapters initialized.", nil)

	// --- 5. USE CASES ---
	createListingUC := usecase.NewCreateListingUseCase(listingRepo)
	archiveExpiredUC := usecase.NewArchiveExpiredListingsUseCase(listingRepo, eventPublisher, appConfig.Listings.TTL)

	listingsHandler := rest.NewListingsHandler(rest.ListingsUseCases{
		Create:     createListingUC,
		Update:     usecase.NewUpdateListingUseCase(listingRepo),
		Get:        usecase.NewGetListingUseCase(listingRepo),
		Search:     usecase.NewSearchListingsUseCase(listingRepo),
		ListMy:     usecase.NewListMyListingsUseCase(listingRepo),
		Status:     usecase.NewChangeListingStatusUseCase(listingRepo, eventPublisher),
		Delete:     usecase.NewDeleteListingUseCase(listingRepo, storageClient),
		Summary:    usecase.NewGetListingSummaryUseCase(listingRepo, storageClient),
		Categories: usecase.NewListCategoriesUseCase(),
		Import:     usecase.NewImportListingUseCase(scraper, createListingUC),
	}, storageClient.PublicURL)

	mediaHandler := rest.NewMediaHandler(
		usecase.NewCreateUploadURLUseCase(listingRepo, storageClient),
		usecase.NewAttachImageUseCase(listingRepo),
		usecase.NewRemoveImageUseCase(listingRepo, storageClient),
		storageClient.PublicURL,
	)
	favoritesHandler := rest.NewFavoritesHandler(
		usecase.NewAddToFavoritesUseCase(favoritesRepo, listingRepo),
		usecase.NewRemoveFromFavoritesUseCase(favoritesRepo),
		usecase.NewGetUserFavoritesUseCase(favoritesRepo),
		usecase.NewGetUserFavoritesIdsUseCase(favoritesRepo),
		storageClient.PublicURL,
	)
	inquiriesHandler := rest.NewInquiriesHandler(
		usecase.NewCreateInquiryUseCase(listingRepo, inquiryRepo, eventPublisher),
		usecase.NewListReceivedInquiriesUseCase(inquiryRepo),
		usecase.NewListSentInquiriesUseCase(inquiryRepo),
		usecase.NewMarkInquiryReadUseCase(inquiryRepo),
	)
	adminHandler := rest.NewAdminHandler(
		usecase.NewAdminSearchListingsUseCase(listingRepo),
		usecase.NewGetListingAnalyticsUseCase(analyticsRepo),
		storageClient.PublicURL,
	)
	appLogger.Info("All use cases initialized.", nil)

	// --- 6. ПЛАНИРОВЩИК ---
	archiveJob := func(ctx context.Context) error {
		archived, err := archiveExpiredUC.Execute(ctx)
		if err != nil {
			return err
		}
		if archived > 0 {
			baseLogger.Info("Expired listings archived", port.Fields{"archived": archived})
		}
		return nil
	}
	jobs := scheduler.New(baseLogger)
	if err := jobs.Add(constants.JobArchiveExpiredListings, appConfig.Listings.ArchiveCronSpec, archiveJob); err != nil {
		return fail("failed to schedule archive job", err)
	}

	// --- 7. REST API ---
	metrics := httpmetrics.New("listing_service")
	apiServer := rest.NewServer(appConfig.Rest.PORT, rest.Handlers{
		Listings:  listingsHandler,
		Media:     mediaHandler,
		Favorites: favoritesHandler,
		Inquiries: inquiriesHandler,
		Admin:     adminHandler,
	}, metrics, baseLogger)
	appLogger.Info("REST API server configured.", nil)

	return &App{
		config:         appConfig,
		dbPool:         dbPool,
		apiServer:      apiServer,
		scheduler:      jobs,
		fluentClient:   fluentClient,
		logger:         appLogger,
		eventsProducer: eventsProducer,
		connManager:    connManager,
		archiveJob:     archiveJob,
	}, nil
}

// Run запускает все компоненты приложения и управляет их жизненным циклом.
func (a *App) Run() error {
	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

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

		if a.eventsProducer != nil {
			if err := a.eventsProducer.Close(); err != nil {
				a.logger.Error("Error closing event producer", err, nil)
			}
		}

		if a.connManager != nil {
			if err := a.connManager.Close(); err != nil {
				a.logger.Error("Error closing RabbitMQ connection", err, nil)
			}
		}

		if a.dbPool != nil {
			a.dbPool.Close()
			a.logger.Info("PostgreSQL pool closed.", nil)
		}

		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				// Логируем в stdout, так как fluent может быть уже недоступен
				fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	errorsCh := make(chan error, 1)

	a.scheduler.Start()
	if a.config.Listings.ArchiveOnStart {
		go a.scheduler.RunNow(constants.JobArchiveExpiredListings, a.archiveJob)
	}

	go func() {
		a.logger.Info("Starting HTTP server...", port.Fields{"port": a.config.Rest.PORT})
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			errorsCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	// Ожидание сигнала на завершение или ошибки от одного из компонентов
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
