package application

import (
	"context"
	"io"
	"time"

	"github.com/palletspace/booking-service/internal/domain"
)

// PricingCache is a read-through cache of warehouse pricing. Get returns
// nil without error on a miss.
type PricingCache interface {
	Get(ctx context.Context, warehouseID string) (*domain.WarehousePricing, error)
	Set(ctx context.Context, pricing *domain.WarehousePricing) error
	Invalidate(ctx context.Context, warehouseID string) error
}

// EventRecorder stores domain events raised outside the booking aggregate
type EventRecorder interface {
	Record(ctx context.Context, aggregateID, warehouseID, companyID string, events []domain.DomainEvent) error
}

// SlotHoldScheduler tracks how long a slot is held for the customer
type SlotHoldScheduler interface {
	// StartHold begins waiting for the customer to pick a slot
	StartHold(ctx context.Context, bookingID string, holdFor time.Duration) error

	// SlotConfirmed ends the hold because a slot was picked
	SlotConfirmed(ctx context.Context, bookingID string) error

	// Release ends the hold without a slot, e.g. on cancellation
	Release(ctx context.Context, bookingID string) error
}

// Workbook reads and writes spreadsheet exchange formats
type Workbook interface {
	// ParsePricingEntries reads pallet pricing rows for a warehouse
	ParsePricingEntries(r io.Reader, warehouseID string) ([]domain.PricingEntry, error)

	// WriteBookings renders a staff booking list
	WriteBookings(w io.Writer, bookings []*domain.Booking) error
}

// Clock returns the current time
type Clock func() time.Time
