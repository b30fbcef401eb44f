package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.temporal.io/sdk/worker"

	"github.com/palletspace/booking-service/internal/application"
	"github.com/palletspace/booking-service/internal/config"
	"github.com/palletspace/booking-service/internal/domain"
	mongoRepo "github.com/palletspace/booking-service/internal/infrastructure/mongodb"
	"github.com/palletspace/booking-service/internal/infrastructure/postgres"
	"github.com/palletspace/booking-service/internal/workflows"
	"github.com/palletspace/booking-service/pkg/cloudevents"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/metrics"
	"github.com/palletspace/booking-service/pkg/mongodb"
	pkgtemporal "github.com/palletspace/booking-service/pkg/temporal"
	"github.com/palletspace/booking-service/pkg/tracing"
)

var errTemporalDisabled = errors.New("temporal.enabled is false, the worker has nothing to run")

type instrumentedMongoClient interface {
	Database() *mongo.Database
	Close(context.Context) error
}

type catalogueStore interface {
	domain.CatalogueRepository
	Close()
}

// slotHoldWorker is the part of worker.Worker the process drives
type slotHoldWorker interface {
	worker.Registry
	Start() error
	Stop()
}

type temporalClient interface {
	NewWorker(opts *pkgtemporal.WorkerOptions) worker.Worker
	Close()
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
	pool, err := postgres.NewPool(ctx, cfg.Catalogue())
	if err != nil {
		return nil, err
	}
	return &pgCatalogue{CatalogueRepository: postgres.NewCatalogueRepository(pool), pool: pool}, nil
}

var newTemporalClient = func(cfg *pkgtemporal.Config) (temporalClient, error) {
	return pkgtemporal.NewClient(cfg)
}

var newWorker = func(c temporalClient, opts *pkgtemporal.WorkerOptions) slotHoldWorker {
	return c.NewWorker(opts)
}

var newBookingRepository = func(db *mongo.Database, eventFactory *cloudevents.EventFactory, m *metrics.Metrics) domain.BookingRepository {
	return mongoRepo.NewBookingRepository(db, eventFactory, m)
}

var newCapacityProvider = func(db *mongo.Database, m *metrics.Metrics) domain.CapacityProvider {
	return mongoRepo.NewCapacityProvider(db, m)
}

var initTracing = func(ctx context.Context, cfg *tracing.Config) (tracerProvider, error) {
	return tracing.Initialize(ctx, cfg)
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

	logger := logging.New(cfg.Logging()).WithComponent("worker")
	logger.SetDefault()
	logger.Info("Starting booking-service worker")

	if !cfg.Temporal.Enabled {
		logger.Error("Refusing to start", "error", errTemporalDisabled.Error())
		return errTemporalDisabled
	}

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
	}

	m := metrics.New(metrics.DefaultConfig(config.ServiceName))

	instrumentedMongo, err := newInstrumentedMongoClient(ctx, cfg.Mongo(), m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return err
	}
	defer instrumentedMongo.Close(ctx)
	db := instrumentedMongo.Database()

	catalogue, err := openCatalogue(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to open warehouse catalogue")
		return err
	}
	defer catalogue.Close()

	temporal, err := newTemporalClient(cfg.TemporalClient())
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		return err
	}
	defer temporal.Close()
	logger.Info("Connected to Temporal", "hostPort", cfg.Temporal.HostPort, "namespace", cfg.Temporal.Namespace)

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceBookingService)
	bookingRepo := newBookingRepository(db, eventFactory, m)

	pricingService := application.NewPricingService(catalogue, logger, m)
	availabilityService := application.NewAvailabilityService(catalogue, newCapacityProvider(db, m), cfg.Thresholds(), logger, m)
	bookingService := application.NewBookingService(bookingRepo, catalogue, pricingService, availabilityService, logger, m)

	w := newWorker(temporal, pkgtemporal.DefaultWorkerOptions(pkgtemporal.TaskQueues.SlotHold))
	workflows.Register(w, workflows.NewSlotHoldActivities(bookingService, logger, m))
	logger.Info("Registered workflows", "workflows", []string{pkgtemporal.WorkflowNames.SlotHold})

	if err := w.Start(); err != nil {
		logger.WithError(err).Error("Worker failed to start")
		return err
	}
	logger.Info("Worker started", "taskQueue", pkgtemporal.TaskQueues.SlotHold)

	<-signalCh
	logger.Info("Shutting down worker...")

	w.Stop()
	logger.Info("Worker stopped")
	return nil
}
