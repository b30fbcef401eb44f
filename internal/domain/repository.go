package domain

import (
	"context"
	"time"
)

// BookingRepository defines the interface for booking persistence
type BookingRepository interface {
	// Save persists a booking together with its pending domain events
	Save(ctx context.Context, booking *Booking) error

	// FindByID retrieves a booking by ID
	FindByID(ctx context.Context, bookingID string) (*Booking, error)

	// List returns one page of bookings matching filter and the total count
	List(ctx context.Context, filter BookingFilter) ([]*Booking, int64, error)
}

// CatalogueRepository reads warehouse and pricing configuration
type CatalogueRepository interface {
	// GetWarehouse retrieves a warehouse, ErrWarehouseNotFound if unknown
	GetWarehouse(ctx context.Context, warehouseID string) (*Warehouse, error)

	// GetPricing retrieves the full pricing configuration of a warehouse
	GetPricing(ctx context.Context, warehouseID string) (*WarehousePricing, error)

	// SavePricing replaces the pricing configuration of a warehouse
	SavePricing(ctx context.Context, pricing *WarehousePricing) error
}

// CapacityProvider reports free capacity. It returns ErrCapacityUnknown when
// it has no data for the date.
type CapacityProvider interface {
	Capacity(ctx context.Context, warehouse *Warehouse, date time.Time) (*Capacity, error)
}

// Sortable booking fields
const (
	SortByCreatedAt    = "createdAt"
	SortByStartDate    = "startDate"
	SortByEndDate      = "endDate"
	SortByTotalAmount  = "totalAmount"
	SortByStatus       = "status"
	SortByCustomerName = "customerName"
)

var sortableFields = map[string]bool{
	SortByCreatedAt:    true,
	SortByStartDate:    true,
	SortByEndDate:      true,
	SortByTotalAmount:  true,
	SortByStatus:       true,
	SortByCustomerName: true,
}

// BookingFilter is the staff list query
type BookingFilter struct {
	Statuses       []BookingStatus
	WarehouseID    string
	CompanyID      string
	CustomerID     string
	StartDate      *time.Time
	EndDate        *time.Time
	CustomerSearch string
	SortBy         string
	SortDesc       bool
	Page           int64
	PageSize       int64
}

// Normalize applies defaults and rejects unknown sort fields
func (f *BookingFilter) Normalize() error {
	if f.SortBy == "" {
		f.SortBy = SortByCreatedAt
		f.SortDesc = true
	}
	if !sortableFields[f.SortBy] {
		return invalidInput("sortBy", "cannot sort by %q", f.SortBy)
	}
	for _, s := range f.Statuses {
		if !s.IsValid() {
			return invalidInput("status", "unknown booking status %q", s)
		}
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return invalidInput("endDate", "must not be before startDate")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	return nil
}

// Offset is the number of bookings to skip
func (f BookingFilter) Offset() int64 {
	return (f.Page - 1) * f.PageSize
}
