package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"

	apispec "github.com/palletspace/booking-service/api"
	"github.com/palletspace/booking-service/internal/api/handlers"
	"github.com/palletspace/booking-service/internal/application"
	"github.com/palletspace/booking-service/internal/config"
	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/internal/infrastructure/clients"
	"github.com/palletspace/booking-service/internal/infrastructure/excel"
	mongoRepo "github.com/palletspace/booking-service/internal/infrastructure/mongodb"
	"github.com/palletspace/booking-service/internal/infrastructure/postgres"
	redisCache "github.com/palletspace/booking-service/internal/infrastructure/redis"
	"github.com/palletspace/booking-service/internal/workflows"
	"github.com/palletspace/booking-service/pkg/cloudevents"
	"github.com/palletspace/booking-service/pkg/contracts/asyncapi"
	"github.com/palletspace/booking-service/pkg/contracts/openapi"
	"github.com/palletspace/booking-service/pkg/idempotency"
	"github.com/palletspace/booking-service/pkg/kafka"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/metrics"
	"github.com/palletspace/booking-service/pkg/middleware"
	"github.com/palletspace/booking-service/pkg/mongodb"
	"github.com/palletspace/booking-service/pkg/outbox"
	pkgtemporal "github.com/palletspace/booking-service/pkg/temporal"
	"github.com/palletspace/booking-service/pkg/tenant"
	"github.com/palletspace/booking-service/pkg/tracing"
)

type instrumentedMongoClient interface {
	Database() *mongo.Database
	Close(context.Context) error
	HealthCheck(context.Context) error
}

// catalogueStore is the catalogue repository together with its pool
type catalogueStore interface {
	domain.CatalogueRepository
	Close()
	HealthCheck(context.Context) error
}

type kafkaProducer interface {
	outbox.EventPublisher
	Close() error
}

type outboxPublisher interface {
	Start(context.Context) error
	Stop() error
	IsRunning() bool
	Stats() map[string]int
}

type bookingRepository interface {
	domain.BookingRepository
	GetOutboxRepository() outbox.Repository
}

type tracerProvider interface {
	Shutdown(context.Context) error
}

type pgCatalogue struct {
	*postgres.CatalogueRepository
	pool *pgxpool.Pool
}

func (c *pgCatalogue) Close() {
	c.pool.Close()
}

func (c *pgCatalogue) HealthCheck(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

var errPublisherStopped = errors.New("outbox publisher is not running")

// publisherRunning fails readiness once the outbox relay has stopped
func publisherRunning(p outboxPublisher) func(context.Context) error {
	return func(context.Context) error {
		if !p.IsRunning() {
			return errPublisherStopped
		}
		return nil
	}
}

var loadConfig = func() (*config.Config, error) {
	return config.Load(os.Getenv("CONFIG_FILE"))
}

var newInstrumentedMongoClient = func(ctx context.Context, cfg *mongodb.Config, m *metrics.Metrics, logger *logging.Logger) (instrumentedMongoClient, error) {
	client, err := mongodb.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return mongodb.NewInstrumentedClient(client, m, logger), nil
}

var openCatalogue = func(ctx context.Context, cfg *config.Config) (catalogueStore, error) {
	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, cfg.Postgres.DSN); err != nil {
			return nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.Catalogue())
	if err != nil {
		return nil, err
	}
	return &pgCatalogue{CatalogueRepository: postgres.NewCatalogueRepository(pool), pool: pool}, nil
}

var newRedisClient = func(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	return redisCache.NewClient(ctx, cfg.Addr, cfg.Password, cfg.DB)
}

var newTemporalClient = pkgtemporal.NewClient

var newInstrumentedKafkaProducer = func(cfg *kafka.Config, m *metrics.Metrics, logger *logging.Logger) kafkaProducer {
	producer := kafka.NewProducer(cfg)
	return kafka.NewInstrumentedProducer(producer, m, logger)
}

var newOutboxPublisher = func(repo outbox.Repository, producer outbox.EventPublisher, logger *logging.Logger, m *metrics.Metrics, cfg *outbox.PublisherConfig) outboxPublisher {
	return outbox.NewPublisher(repo, producer, logger, m, cfg)
}

var newBookingRepository = func(db *mongo.Database, eventFactory *cloudevents.EventFactory, m *metrics.Metrics) bookingRepository {
	return mongoRepo.NewBookingRepository(db, eventFactory, m)
}

var newEventRecorder = func(db *mongo.Database, eventFactory *cloudevents.EventFactory) application.EventRecorder {
	return mongoRepo.NewEventRecorder(db, eventFactory)
}

var newCapacityProvider = func(db *mongo.Database, m *metrics.Metrics) domain.CapacityProvider {
	return mongoRepo.NewCapacityProvider(db, m)
}

var newIdempotencyRepository = func(db *mongo.Database) (idempotency.KeyRepository, error) {
	return idempotency.NewMongoKeyRepository(db)
}

var newMetrics = metrics.New

var initTracing = func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error) {
	return tracing.Initialize(ctx, cfg)
}

var startHTTPServer = func(srv *http.Server) error {
	return srv.ListenAndServe()
}

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), signalCh); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, signalCh <-chan os.Signal) error {
	cfg, err := loadConfig()
	if err != nil {
		logging.New(logging.DefaultConfig(config.ServiceName)).WithError(err).Error("Failed to load configuration")
		return err
	}

	logger := logging.New(cfg.Logging())
	logger.SetDefault()
	logger.Info("Starting booking-service API", "environment", cfg.Service.Environment)

	httpContract, err := openapi.NewValidatorFromBytes(apispec.OpenAPI)
	if err != nil {
		logger.WithError(err).Error("Failed to load HTTP contract")
		return err
	}
	eventContract, err := asyncapi.NewEventValidatorFromBytes(apispec.AsyncAPI)
	if err != nil {
		logger.WithError(err).Error("Failed to load event contract")
		return err
	}
	logger.Info("Contracts loaded", "eventTypes", len(eventContract.SupportedEventTypes()))

	// Initialize OpenTelemetry tracing
	tp, err := initTracing(ctx, cfg.Tracer())
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", cfg.Tracing.Endpoint, "enabled", cfg.Tracing.Enabled)
	}

	m := newMetrics(metrics.DefaultConfig(config.ServiceName))

	instrumentedMongo, err := newInstrumentedMongoClient(ctx, cfg.Mongo(), m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	defer instrumentedMongo.Close(ctx)
	db := instrumentedMongo.Database()
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	catalogue, err := openCatalogue(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to open warehouse catalogue")
		return err
	}
	defer catalogue.Close()
	logger.Info("Warehouse catalogue ready", "migrated", cfg.Postgres.Migrate)

	var pricingOpts []application.PricingServiceOption
	if cfg.Redis.Addr != "" {
		redisClient, err := newRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Redis")
			return err
		}
		defer redisClient.Close()
		pricingOpts = append(pricingOpts, application.WithPricingCache(redisCache.NewPricingCache(redisClient, cfg.Redis.PricingTTL)))
		logger.Info("Pricing cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.PricingTTL)
	}

	producer := newInstrumentedKafkaProducer(cfg.Producer(), m, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceBookingService)

	bookingRepo := newBookingRepository(db, eventFactory, m)
	events := newEventRecorder(db, eventFactory)

	publisher := newOutboxPublisher(bookingRepo.GetOutboxRepository(), asyncapi.NewValidatingPublisher(producer, eventContract), logger, m, cfg.Publisher())
	if err := publisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		return err
	}
	defer func() {
		if err := publisher.Stop(); err != nil {
			logger.WithError(err).Warn("Failed to stop outbox publisher")
			return
		}
		logger.Info("Outbox publisher stopped", "published", publisher.Stats()["published"], "failed", publisher.Stats()["failed"])
	}()
	logger.Info("Outbox publisher started")

	var capacity domain.CapacityProvider
	if cfg.Capacity.ServiceURL != "" {
		capacity = clients.NewCapacityClient(cfg.Capacity.ServiceURL, cfg.Capacity.Timeout, logger, m)
		logger.Info("Using capacity service", "url", cfg.Capacity.ServiceURL)
	} else {
		capacity = newCapacityProvider(db, m)
	}

	workbook := excel.NewWorkbook()
	bookingOpts := []application.BookingServiceOption{application.WithExportWorkbook(workbook)}
	readiness := []func(context.Context) error{instrumentedMongo.HealthCheck, catalogue.HealthCheck, publisherRunning(publisher)}
	if cfg.Temporal.Enabled {
		temporalClient, err := newTemporalClient(cfg.TemporalClient())
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Temporal")
			return err
		}
		defer temporalClient.Close()
		readiness = append(readiness, temporalClient.CheckHealth)
		bookingOpts = append(bookingOpts, application.WithSlotHolds(workflows.NewSlotHoldScheduler(temporalClient, m), cfg.Temporal.SlotHold))
		logger.Info("Slot holds enabled", "hold", cfg.Temporal.SlotHold)
	}

	pricingOpts = append(pricingOpts, application.WithEventRecorder(events), application.WithWorkbook(workbook))
	pricingService := application.NewPricingService(catalogue, logger, m, pricingOpts...)
	availabilityService := application.NewAvailabilityService(catalogue, capacity, cfg.Thresholds(), logger, m)
	bookingService := application.NewBookingService(bookingRepo, catalogue, pricingService, availabilityService, logger, m, bookingOpts...)

	idempotencyRepo, err := newIdempotencyRepository(db)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize idempotency keys")
		return err
	}
	idempotencyCfg := idempotency.DefaultConfig(config.ServiceName, idempotencyRepo, logger)
	idempotencyCfg.Metrics = m
	idempotencyCfg.RequireKey = cfg.Idempotency.RequireKey
	if cfg.Idempotency.Retention > 0 {
		idempotencyCfg.RetentionPeriod = cfg.Idempotency.Retention
	}
	idempotencyCfg.UserIDExtractor = func(c *gin.Context) string {
		if principal, ok := middleware.GetPrincipal(c); ok {
			return principal.UserID
		}
		return ""
	}

	router := newRouter(routerDeps{
		logger:       logger,
		metrics:      m,
		verifier:     tenant.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		limiter:      middleware.NewClientRateLimiter(cfg.RateLimiter()),
		idempotency:  idempotencyCfg,
		pricing:      handlers.NewPricingHandler(pricingService, logger),
		availability: handlers.NewAvailabilityHandler(availabilityService, logger),
		bookings:     handlers.NewBookingHandler(bookingService, logger),
		contract:     httpContract,
		ready: func() error {
			for _, check := range readiness {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := startHTTPServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", cfg.Server.Addr)

	<-signalCh
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
	return nil
}

type routerDeps struct {
	logger       *logging.Logger
	metrics      *metrics.Metrics
	verifier     middleware.TokenVerifier
	limiter      *middleware.ClientRateLimiter
	idempotency  *idempotency.Config
	pricing      *handlers.PricingHandler
	availability *handlers.AvailabilityHandler
	bookings     *handlers.BookingHandler
	contract     *openapi.Validator
	ready        func() error
}

// contractCheck validates requests against the published document when one is loaded
func (d routerDeps) contractCheck() gin.HandlerFunc {
	if d.contract == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return openapi.RequestValidation(d.contract)
}

func newRouter(d routerDeps) *gin.Engine {
	router := gin.New()

	middleware.Setup(router, middleware.DefaultConfig(config.ServiceName, d.logger))
	router.Use(middleware.MetricsMiddleware(d.metrics))
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(config.ServiceName)))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(config.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(config.ServiceName, d.ready))
	router.GET("/metrics", middleware.MetricsEndpoint(d.metrics))

	v1 := router.Group("/api/v1")
	contract := d.contractCheck()

	// Public reads. A token, when sent, still identifies the caller.
	public := v1.Group("", middleware.OptionalAuth(d.verifier, d.logger), contract)
	{
		public.POST("/pricing/calculate", middleware.RateLimit(d.limiter), d.pricing.Calculate)
		public.GET("/warehouses/:id/availability", d.availability.Availability)
		public.GET("/warehouses/:id/availability/calendar", d.availability.Calendar)
		public.GET("/warehouses/:id/pricing", d.pricing.GetPricing)
		public.POST("/bookings/draft", d.bookings.Draft)
	}

	authed := v1.Group("", middleware.RequireAuth(d.verifier, d.logger))
	{
		owners := authed.Group("/warehouses/:id", middleware.RequireRole(tenant.RoleOwner, tenant.RoleStaff), contract)
		owners.PUT("/pricing", d.pricing.UpdatePricing)
		owners.POST("/pricing/import", d.pricing.ImportPricing)

		bookings := authed.Group("/bookings", contract)
		bookings.POST("", idempotency.Middleware(d.idempotency), d.bookings.CreateBooking)
		bookings.GET("/:id", d.bookings.GetBooking)
		bookings.POST("/:id/approve", d.bookings.Approve)
		bookings.POST("/:id/set-awaiting-time-slot", d.bookings.SetAwaitingTimeSlot)
		bookings.POST("/:id/propose-time", d.bookings.ProposeTime)
		bookings.POST("/:id/confirm-time-slot", d.bookings.ConfirmTimeSlot)
		bookings.POST("/:id/mark-paid", d.bookings.MarkPaid)
		bookings.POST("/:id/check-in", d.bookings.CheckIn)
		bookings.POST("/:id/check-out", d.bookings.CheckOut)
		bookings.POST("/:id/request-cancellation", d.bookings.RequestCancellation)
		bookings.POST("/:id/approve-cancellation", d.bookings.ApproveCancellation)
		bookings.POST("/:id/reject-cancellation", d.bookings.RejectCancellation)

		staff := authed.Group("/warehouse-staff", middleware.RequireRole(tenant.RoleStaff, tenant.RoleOwner), contract)
		staff.GET("/bookings", d.bookings.ListBookings)
		staff.GET("/bookings/export", d.bookings.ExportBookings)
	}

	return router
}
