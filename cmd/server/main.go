package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	app "github.com/erp/pdfonsubmit/internal/application/attachment"
	"github.com/erp/pdfonsubmit/internal/domain/shared"
	"github.com/erp/pdfonsubmit/internal/infrastructure/auth"
	"github.com/erp/pdfonsubmit/internal/infrastructure/cache"
	"github.com/erp/pdfonsubmit/internal/infrastructure/config"
	"github.com/erp/pdfonsubmit/internal/infrastructure/hostclient"
	"github.com/erp/pdfonsubmit/internal/infrastructure/i18n"
	"github.com/erp/pdfonsubmit/internal/infrastructure/logger"
	"github.com/erp/pdfonsubmit/internal/infrastructure/metrics"
	"github.com/erp/pdfonsubmit/internal/infrastructure/migration"
	"github.com/erp/pdfonsubmit/internal/infrastructure/persistence"
	"github.com/erp/pdfonsubmit/internal/infrastructure/printing"
	"github.com/erp/pdfonsubmit/internal/infrastructure/queue"
	"github.com/erp/pdfonsubmit/internal/infrastructure/storage"
	"github.com/erp/pdfonsubmit/internal/infrastructure/telemetry"
	"github.com/erp/pdfonsubmit/internal/interfaces/http/handler"
	"github.com/erp/pdfonsubmit/internal/interfaces/http/middleware"
	"github.com/erp/pdfonsubmit/internal/interfaces/http/router"
)

//	@title			PDF on Submit API
//	@version		1.0
//	@description	Generates and attaches PDF prints when sales documents are submitted.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const queueDepthInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server exited with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// Telemetry: logs bridge, traces, metrics, profiles
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}
	log = telemetry.BridgeLogger(log, logProvider, cfg.Telemetry.ServiceName, log.Level())

	log.Info("Starting PDF on Submit",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("queue", cfg.Queue.Backend),
		zap.String("storage", cfg.Storage.Backend),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return err
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.PyroscopeAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.PyroscopeUser,
		BasicAuthPassword: cfg.Telemetry.PyroscopePassword,
	}, log)
	if err != nil {
		return err
	}
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := profiler.Stop(); err != nil {
			log.Warn("Error stopping profiler", zap.Error(err))
		}
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Error shutting down tracer provider", zap.Error(err))
		}
		if err := logProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Database.SlowQuery)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := migrateDatabase(db, log); err != nil {
		return err
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBSystem:   dbSystem(db.Driver),
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		return err
	}
	dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
	dbMetricsCfg.Enabled = cfg.Telemetry.DBMetricsEnabled
	dbMetrics, err := telemetry.RegisterDBMetrics(ctx, db.DB, meterProvider, dbMetricsCfg, log)
	if err != nil {
		return err
	}
	if dbMetrics != nil {
		defer dbMetrics.Stop()
	}

	// Repositories and services
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	fileRepo := persistence.NewGormFileRepository(db.DB)
	folderRepo := persistence.NewGormFolderRepository(db.DB)
	jobRepo := persistence.NewGormJobRepository(db.DB)
	settingsRepo := persistence.NewGormSettingsRepository(db.DB)

	folderService := app.NewFolderService(folderRepo, log)
	if err := folderService.EnsureHome(ctx); err != nil {
		return err
	}
	settingsService := app.NewSettingsService(settingsRepo, log)

	fileStore, err := storage.NewFileStore(ctx, &cfg.Storage, log)
	if err != nil {
		return err
	}

	// Printing
	labeler := i18n.NewLabeler(cfg.Printing.Language)
	formats, err := printing.NewPrintFormats(printing.NewTemplateEngine(),
		printing.WithTemplateDir(cfg.Printing.TemplateDir),
		printing.WithLabeler(labeler.Label),
		printing.WithPrintLogger(log),
	)
	if err != nil {
		return err
	}
	renderer, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
		DefaultTimeout: cfg.Renderer.Timeout,
		RemoteURL:      cfg.Renderer.RemoteURL,
		ExecPath:       cfg.Renderer.ExecPath,
		NoSandbox:      cfg.Renderer.NoSandbox,
		Scale:          cfg.Renderer.Scale,
		Logger:         log.Named("chromedp"),
	})
	if err != nil {
		return err
	}
	defer renderer.Close()

	// Party lookup, optionally backed by the host ERP
	var hostDocs app.HostDocumentClient
	if cfg.Host.Enabled() {
		client, err := hostclient.New(hostclient.OptionsFromConfig(cfg.Host), nil, log)
		if err != nil {
			return err
		}
		hostDocs = client
		log.Info("Host ERP client configured", zap.String("base_url", cfg.Host.BaseURL))
	}
	parties := app.NewInvoicePartyLookup(documentRepo, hostDocs, log)

	// Queue
	taskQueue, err := queue.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := taskQueue.Close(); err != nil {
			log.Warn("Error closing queue", zap.Error(err))
		}
	}()

	registry := metrics.New(cfg.App.Name)

	dispatchOpts := []app.DispatcherOption{
		app.WithJobTimeout(cfg.Queue.JobTimeout),
		app.WithDispatcherLogger(log),
	}
	if meterProvider.IsEnabled() {
		dispatchMetrics, err := telemetry.NewDispatchMetrics(meterProvider.Meter("pdfsubmit.dispatch"), log)
		if err != nil {
			return err
		}
		defer dispatchMetrics.Stop()
		if depth, ok := taskQueue.(telemetry.QueueDepthProvider); ok {
			dispatchMetrics.StartQueueDepthCollection(ctx, depth, queueDepthInterval)
		}
		dispatchOpts = append(dispatchOpts, app.WithDispatchMetrics(dispatchMetrics))
	}
	dispatcher := app.NewDispatcher(settingsRepo, documentRepo, jobRepo, taskQueue, parties, dispatchOpts...)

	// Idempotency for hook redeliveries
	idempotency, err := newIdempotencyStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer idempotency.Close()

	queryService := app.NewQueryService(jobRepo, fileRepo, fileStore, labeler)

	handlers := router.Handlers{
		Hooks:    handler.NewHookHandler(dispatcher, idempotency, shared.DefaultIdempotencyConfig().TTL),
		Settings: handler.NewSettingsHandler(settingsService),
		Jobs:     handler.NewJobHandler(queryService),
		Files:    handler.NewFileHandler(queryService),
		Folders:  handler.NewFolderHandler(folderService),
		System:   handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, healthCheckers(cfg, db)...),
	}

	var jwtService *auth.JWTService
	if cfg.Auth.Enabled {
		jwtService = auth.NewJWTService(cfg.JWT)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine := router.NewEngine(router.Options{
		ServiceName:    cfg.Telemetry.ServiceName,
		Logger:         log,
		CORS:           corsCfg,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		JWT:            jwtService,
		RateLimit:      cfg.HTTP.RateLimit,
		RateBurst:      cfg.HTTP.RateBurst,
		Tracing:        cfg.Telemetry.Enabled,
		Profiling:      profiler.IsEnabled(),
		Metrics:        registry,
		MetricsHandler: registry.Handler(),
	}, handlers)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Worker.Enabled {
		job := app.NewAttachmentJob(app.AttachmentJobDeps{
			Folders:   folderService,
			Documents: documentRepo,
			Files:     fileRepo,
			Store:     fileStore,
			Printer:   formats,
			Converter: renderer,
			Inspector: printing.NewPDFInspector(),
			Labeler:   labeler,
			Logger:    log,
		})
		worker := app.NewWorker(job, jobRepo, registry, log)
		moved, err := queue.RecoverStranded(ctx, taskQueue)
		if err != nil {
			log.Warn("Failed to recover stranded tasks", zap.Error(err))
		} else if moved > 0 {
			log.Info("Stranded tasks returned to the queue", zap.Int("count", moved))
		}
		g.Go(func() error {
			log.Info("Worker starting",
				zap.String("queue", cfg.Queue.Name),
				zap.Int("concurrency", cfg.Worker.Concurrency),
			)
			return taskQueue.Consume(gctx, worker.Handle)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// migrateDatabase creates the schema. Postgres uses the embedded SQL
// migrations, sqlite (tests, local runs) uses GORM auto-migration.
func migrateDatabase(db *persistence.Database, log *zap.Logger) error {
	if db.Driver == "sqlite" {
		return db.AutoMigrate()
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.NewEmbedded(sqlDB, log)
	if err != nil {
		return err
	}
	return m.Up()
}

func dbSystem(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "postgresql"
}

// newIdempotencyStore shares redis with the queue when the queue runs on
// redis, otherwise deliveries are deduplicated in process.
func newIdempotencyStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (shared.IdempotencyStore, error) {
	factory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	if cfg.Queue.Backend != "redis" {
		return factory.CreateInMemoryStore(), nil
	}
	return factory.CreateStore(ctx)
}

func healthCheckers(cfg *config.Config, db *persistence.Database) []handler.HealthChecker {
	checkers := []handler.HealthChecker{
		handler.HealthCheckFunc{CheckName: "database", Fn: func(context.Context) error {
			return db.Ping()
		}},
	}
	if cfg.Queue.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		checkers = append(checkers, handler.HealthCheckFunc{CheckName: "redis", Fn: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}
	return checkers
}
