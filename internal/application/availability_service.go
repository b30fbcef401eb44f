package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/errors"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/metrics"
)

// MaxCalendarDays bounds one calendar request
const MaxCalendarDays = 92

// AvailabilityService answers drop-in availability questions
type AvailabilityService struct {
	catalogue  domain.CatalogueRepository
	capacity   domain.CapacityProvider
	thresholds domain.Thresholds
	logger     *logging.Logger
	metrics    *metrics.Metrics
	now        Clock
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(
	catalogue domain.CatalogueRepository,
	capacity domain.CapacityProvider,
	thresholds domain.Thresholds,
	logger *logging.Logger,
	m *metrics.Metrics,
) *AvailabilityService {
	return &AvailabilityService{
		catalogue:  catalogue,
		capacity:   capacity,
		thresholds: thresholds,
		logger:     logger.WithComponent("availability"),
		metrics:    m,
		now:        time.Now,
	}
}

// WithClock overrides the clock, used by tests
func (s *AvailabilityService) WithClock(now Clock) *AvailabilityService {
	s.now = now
	return s
}

// IsAvailable evaluates every drop-in slot of a warehouse on date
func (s *AvailabilityService) IsAvailable(ctx context.Context, warehouseID string, date time.Time, bookingType domain.BookingType) (*domain.DayAvailability, error) {
	warehouse, err := s.catalogue.GetWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, toAppError(err)
	}
	return s.evaluate(ctx, warehouse, date, bookingType), nil
}

func (s *AvailabilityService) evaluate(ctx context.Context, warehouse *domain.Warehouse, date time.Time, bookingType domain.BookingType) *domain.DayAvailability {
	capacity := s.lookup(ctx, warehouse, date)
	day := domain.EvaluateDay(warehouse, date, capacity, s.now(), bookingType)
	s.metrics.RecordAvailabilityCheck(day.HasOpenSlot())
	return &day
}

// Calendar classifies each date in [from, to]. Capacity is never looked up
// for non-working days, so they read as unknown with WorkingDay false.
func (s *AvailabilityService) Calendar(ctx context.Context, warehouseID string, from, to time.Time) ([]CalendarDayDTO, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if to.Before(from) {
		return nil, errors.ErrValidationWithFields("validation failed", map[string]string{"to": "must not be before from"})
	}
	if span := int(to.Sub(from).Hours()/24) + 1; span > MaxCalendarDays {
		return nil, errors.ErrValidationWithFields("validation failed", map[string]string{
			"to": fmt.Sprintf("a calendar covers at most %d days", MaxCalendarDays),
		})
	}

	warehouse, err := s.catalogue.GetWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, toAppError(err)
	}

	today := s.now()
	var days []CalendarDayDTO
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		entry := CalendarDayDTO{
			Date:       date.Format(domain.DateLayout),
			WorkingDay: warehouse.IsWorkingDay(date),
		}

		var capacity *domain.Capacity
		if entry.WorkingDay && !date.Before(domain.DateOnly(today)) {
			capacity = s.lookup(ctx, warehouse, date)
		}
		if capacity != nil {
			entry.PalletSlotsRemaining = capacity.PalletSlotsRemaining
			entry.SqFtRemaining = capacity.SqFtRemaining
		}

		entry.Status = string(domain.Classify(date, capacity, today, s.thresholds))
		days = append(days, entry)
	}
	return days, nil
}

// lookup asks the provider for capacity. Any failure reads as unknown so the
// affected slots report capacity_unknown instead of failing the request.
func (s *AvailabilityService) lookup(ctx context.Context, warehouse *domain.Warehouse, date time.Time) *domain.Capacity {
	capacity, err := s.capacity.Capacity(ctx, warehouse, domain.DateOnly(date))
	if err != nil {
		if !stderrors.Is(err, domain.ErrCapacityUnknown) {
			s.logger.WithContext(ctx).WithError(err).Warn("Capacity lookup failed",
				"warehouseId", warehouse.ID,
				"date", date.Format(domain.DateLayout),
			)
		}
		return nil
	}
	return capacity
}
