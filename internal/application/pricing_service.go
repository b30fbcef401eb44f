package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/errors"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/metrics"
	"github.com/palletspace/booking-service/pkg/tenant"
	"github.com/palletspace/booking-service/pkg/tracing"
)

var pricingTracer = otel.Tracer("booking-service/pricing")

// PricingService prices requests and manages warehouse pricing configuration
type PricingService struct {
	catalogue  domain.CatalogueRepository
	cache      PricingCache
	events     EventRecorder
	workbook   Workbook
	calculator *domain.PriceCalculator
	logger     *logging.Logger
	metrics    *metrics.Metrics
	now        Clock
}

// PricingServiceOption configures optional PricingService collaborators
type PricingServiceOption func(*PricingService)

// WithPricingCache enables the read-through cache
func WithPricingCache(cache PricingCache) PricingServiceOption {
	return func(s *PricingService) { s.cache = cache }
}

// WithEventRecorder publishes pricing updates
func WithEventRecorder(events EventRecorder) PricingServiceOption {
	return func(s *PricingService) { s.events = events }
}

// WithWorkbook enables spreadsheet imports
func WithWorkbook(workbook Workbook) PricingServiceOption {
	return func(s *PricingService) { s.workbook = workbook }
}

// WithPricingClock overrides the clock
func WithPricingClock(now Clock) PricingServiceOption {
	return func(s *PricingService) { s.now = now }
}

// NewPricingService creates a new PricingService
func NewPricingService(
	catalogue domain.CatalogueRepository,
	logger *logging.Logger,
	m *metrics.Metrics,
	opts ...PricingServiceOption,
) *PricingService {
	s := &PricingService{
		catalogue:  catalogue,
		calculator: domain.NewPriceCalculator(),
		logger:     logger.WithComponent("pricing"),
		metrics:    m,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculate prices a request against the warehouse's current configuration
func (s *PricingService) Calculate(ctx context.Context, req domain.PriceRequest) (*domain.PriceBreakdown, error) {
	start := time.Now()

	pricing, err := s.pricing(ctx, req.WarehouseID)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.calculator.Calculate(req, pricing)
	period := string(domain.PeriodForDays(domain.DurationDays(req.StartDate, req.EndDate)))
	s.metrics.RecordPriceCalculation(string(req.Type), period, err == nil, time.Since(start))
	if err != nil {
		var unavailable *domain.PricingUnavailableError
		if stderrors.As(err, &unavailable) {
			s.metrics.RecordPricingUnavailable(unavailable.Reason)
			s.logger.WithContext(ctx).Info("Pricing unavailable",
				"warehouseId", req.WarehouseID,
				"reason", unavailable.Reason,
				"detail", unavailable.Detail,
			)
		}
		return nil, toAppError(err)
	}

	s.logger.PriceCalculated(ctx, req.WarehouseID, string(req.Type), req.Quantity, breakdown.Total.StringFixed(2), time.Since(start))
	return breakdown, nil
}

// Quote prices a public calculation request
func (s *PricingService) Quote(ctx context.Context, cmd PriceCalculationCommand) (*PriceBreakdownDTO, error) {
	req, err := cmd.ToPriceRequest()
	if err != nil {
		return nil, toAppError(err)
	}
	breakdown, err := tracing.TracedOperation(ctx, pricingTracer, "pricing.quote", func(ctx context.Context) (*domain.PriceBreakdown, error) {
		return s.Calculate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return ToPriceBreakdownDTO(breakdown), nil
}

// GetPricing returns the pricing configuration of a warehouse
func (s *PricingService) GetPricing(ctx context.Context, warehouseID string) (*domain.WarehousePricing, error) {
	pricing, err := s.pricing(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if pricing == nil {
		return &domain.WarehousePricing{WarehouseID: warehouseID}, nil
	}
	return pricing, nil
}

// UpdatePricing replaces a warehouse's pricing configuration. Only the
// owning company may change it.
func (s *PricingService) UpdatePricing(ctx context.Context, principal *tenant.Context, pricing *domain.WarehousePricing) (*domain.WarehousePricing, error) {
	warehouse, err := s.authorizeOwner(ctx, principal, pricing.WarehouseID)
	if err != nil {
		return nil, err
	}

	if err := pricing.Validate(); err != nil {
		return nil, toAppError(err)
	}
	for i := range pricing.Entries {
		pricing.Entries[i].WarehouseID = warehouse.ID
		pricing.Entries[i].GoodsType = pricing.Entries[i].GoodsType.Normalize()
	}

	if err := s.catalogue.SavePricing(ctx, pricing); err != nil {
		s.logger.WithError(err).Error("Failed to save pricing", "warehouseId", warehouse.ID)
		return nil, fmt.Errorf("failed to save pricing: %w", err)
	}
	s.invalidate(ctx, warehouse.ID)

	s.logger.Audit(ctx, "pricing.update", "warehouse", warehouse.ID, principal.UserID, map[string]any{
		"entries":          len(pricing.Entries),
		"freeStorageRules": len(pricing.FreeStorageRules),
		"volumeDiscounts":  len(pricing.VolumeDiscounts),
	})
	s.recordUpdate(ctx, warehouse, principal, len(pricing.Entries))

	return pricing, nil
}

// ImportPalletEntries replaces the pallet rate entries of a warehouse from
// a workbook. Free storage rules, discounts and flat rates are kept.
func (s *PricingService) ImportPalletEntries(ctx context.Context, principal *tenant.Context, warehouseID string, r io.Reader) (*domain.WarehousePricing, error) {
	if s.workbook == nil {
		return nil, errors.ErrServiceUnavailable("pricing import")
	}
	if _, err := s.authorizeOwner(ctx, principal, warehouseID); err != nil {
		return nil, err
	}

	entries, err := s.workbook.ParsePricingEntries(r, warehouseID)
	if err != nil {
		return nil, toAppError(err)
	}
	if len(entries) == 0 {
		return nil, errors.ErrUnprocessable("the workbook contains no pricing rows")
	}

	current, err := s.GetPricing(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	updated := *current
	updated.WarehouseID = warehouseID
	updated.Entries = entries

	return s.UpdatePricing(ctx, principal, &updated)
}

func (s *PricingService) authorizeOwner(ctx context.Context, principal *tenant.Context, warehouseID string) (*domain.Warehouse, error) {
	warehouse, err := s.catalogue.GetWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, toAppError(err)
	}
	if principal == nil || principal.Role != tenant.RoleOwner {
		return nil, toAppError(denied("only the warehouse owner may change pricing"))
	}
	if err := principal.ValidateOwnership(warehouse.CompanyID); err != nil {
		return nil, toAppError(denied("warehouse %s belongs to another company", warehouse.ID))
	}
	return warehouse, nil
}

// pricing reads through the cache. A missing configuration is nil, which
// the calculator reports as pricing unavailable.
func (s *PricingService) pricing(ctx context.Context, warehouseID string) (*domain.WarehousePricing, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, warehouseID)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Pricing cache read failed", "warehouseId", warehouseID)
		}
		s.metrics.RecordCacheLookup(cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	pricing, err := s.catalogue.GetPricing(ctx, warehouseID)
	if err != nil {
		if stderrors.Is(err, domain.ErrWarehouseNotFound) {
			return nil, toAppError(err)
		}
		return nil, fmt.Errorf("failed to load pricing: %w", err)
	}

	if s.cache != nil && pricing != nil {
		if err := s.cache.Set(ctx, pricing); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Pricing cache write failed", "warehouseId", warehouseID)
		}
	}
	return pricing, nil
}

func (s *PricingService) invalidate(ctx context.Context, warehouseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, warehouseID); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Pricing cache invalidation failed", "warehouseId", warehouseID)
	}
}

func (s *PricingService) recordUpdate(ctx context.Context, warehouse *domain.Warehouse, principal *tenant.Context, entries int) {
	if s.events == nil {
		return
	}
	event := &domain.PricingUpdatedEvent{
		WarehouseID: warehouse.ID,
		EntryCount:  entries,
		UpdatedBy:   principal.UserID,
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.events.Record(ctx, warehouse.ID, warehouse.ID, warehouse.CompanyID, []domain.DomainEvent{event}); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to record pricing update event", "warehouseId", warehouse.ID)
	}
}
