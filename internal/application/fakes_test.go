package application

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/tenant"
)

var (
	testNow    = time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)
	testClock  = func() time.Time { return testNow }
	testLogger = logging.NewNop()
)

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*domain.Booking
	saved    int
	saveFn   func(context.Context, *domain.Booking) error
	listFn   func(context.Context, domain.BookingFilter) ([]*domain.Booking, int64, error)
}

func newFakeBookingRepo(bookings ...*domain.Booking) *fakeBookingRepo {
	repo := &fakeBookingRepo{bookings: make(map[string]*domain.Booking)}
	for _, b := range bookings {
		repo.bookings[b.ID] = b
	}
	return repo
}

func (f *fakeBookingRepo) Save(ctx context.Context, booking *domain.Booking) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, booking)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved++
	booking.ClearDomainEvents()
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeBookingRepo) FindByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[bookingID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeBookingRepo) List(ctx context.Context, filter domain.BookingFilter) ([]*domain.Booking, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, 0, nil
}

type fakeCatalogue struct {
	warehouses    map[string]*domain.Warehouse
	pricing       map[string]*domain.WarehousePricing
	getPricingFn  func(context.Context, string) (*domain.WarehousePricing, error)
	savePricingFn func(context.Context, *domain.WarehousePricing) error
	pricingReads  int
}

func newFakeCatalogue() *fakeCatalogue {
	w := testWarehouse()
	return &fakeCatalogue{
		warehouses: map[string]*domain.Warehouse{w.ID: w},
		pricing:    map[string]*domain.WarehousePricing{w.ID: testPricing()},
	}
}

func (f *fakeCatalogue) GetWarehouse(ctx context.Context, warehouseID string) (*domain.Warehouse, error) {
	w, ok := f.warehouses[warehouseID]
	if !ok {
		return nil, domain.ErrWarehouseNotFound
	}
	return w, nil
}

func (f *fakeCatalogue) GetPricing(ctx context.Context, warehouseID string) (*domain.WarehousePricing, error) {
	f.pricingReads++
	if f.getPricingFn != nil {
		return f.getPricingFn(ctx, warehouseID)
	}
	if _, ok := f.warehouses[warehouseID]; !ok {
		return nil, domain.ErrWarehouseNotFound
	}
	return f.pricing[warehouseID], nil
}

func (f *fakeCatalogue) SavePricing(ctx context.Context, pricing *domain.WarehousePricing) error {
	if f.savePricingFn != nil {
		return f.savePricingFn(ctx, pricing)
	}
	f.pricing[pricing.WarehouseID] = pricing
	return nil
}

type fakeCapacity struct {
	capacityFn func(context.Context, *domain.Warehouse, time.Time) (*domain.Capacity, error)
}

func (f *fakeCapacity) Capacity(ctx context.Context, warehouse *domain.Warehouse, date time.Time) (*domain.Capacity, error) {
	if f.capacityFn != nil {
		return f.capacityFn(ctx, warehouse, date)
	}
	pallets, sqft := 50, 5000
	return &domain.Capacity{Date: date, PalletSlotsRemaining: &pallets, SqFtRemaining: &sqft}, nil
}

type fakeCache struct {
	entries     map[string]*domain.WarehousePricing
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*domain.WarehousePricing)}
}

func (f *fakeCache) Get(ctx context.Context, warehouseID string) (*domain.WarehousePricing, error) {
	return f.entries[warehouseID], nil
}

func (f *fakeCache) Set(ctx context.Context, pricing *domain.WarehousePricing) error {
	f.entries[pricing.WarehouseID] = pricing
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context, warehouseID string) error {
	delete(f.entries, warehouseID)
	f.invalidated = append(f.invalidated, warehouseID)
	return nil
}

type fakeRecorder struct {
	events []domain.DomainEvent
}

func (f *fakeRecorder) Record(ctx context.Context, aggregateID, warehouseID, companyID string, events []domain.DomainEvent) error {
	f.events = append(f.events, events...)
	return nil
}

type fakeHolds struct {
	started   []string
	holdFor   time.Duration
	confirmed []string
	released  []string
}

func (f *fakeHolds) StartHold(ctx context.Context, bookingID string, holdFor time.Duration) error {
	f.started = append(f.started, bookingID)
	f.holdFor = holdFor
	return nil
}

func (f *fakeHolds) SlotConfirmed(ctx context.Context, bookingID string) error {
	f.confirmed = append(f.confirmed, bookingID)
	return nil
}

func (f *fakeHolds) Release(ctx context.Context, bookingID string) error {
	f.released = append(f.released, bookingID)
	return nil
}

type fakeWorkbook struct {
	entries []domain.PricingEntry
	parseFn func(io.Reader, string) ([]domain.PricingEntry, error)
	written []*domain.Booking
}

func (f *fakeWorkbook) ParsePricingEntries(r io.Reader, warehouseID string) ([]domain.PricingEntry, error) {
	if f.parseFn != nil {
		return f.parseFn(r, warehouseID)
	}
	return f.entries, nil
}

func (f *fakeWorkbook) WriteBookings(w io.Writer, bookings []*domain.Booking) error {
	f.written = bookings
	_, err := w.Write([]byte("xlsx"))
	return err
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func f64(v float64) *float64 { return &v }

// testWarehouse accepts drop-ins Monday to Friday at 09:00 and 10:00
func testWarehouse() *domain.Warehouse {
	return &domain.Warehouse{
		ID:               "wh-1",
		CompanyID:        "company-1",
		Name:             "North Hub",
		WorkingDays:      []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		TimeSlots:        []domain.SlotDefinition{{Time: "09:00", MaxDropIns: 2}, {Time: "10:00"}},
		TotalPalletSlots: 100,
		TotalSqFt:        10000,
		GoodsTypeOptions: []domain.GoodsType{"frozen"},
	}
}

// testPricing charges 3 per standard pallet per day for the light/short
// brackets, 2 per pallet per day without details and 0.5 per sq ft per month
func testPricing() *domain.WarehousePricing {
	return &domain.WarehousePricing{
		WarehouseID: "wh-1",
		Entries: []domain.PricingEntry{{
			ID:          "gen-day",
			WarehouseID: "wh-1",
			GoodsType:   domain.GoodsTypeGeneral,
			PalletKind:  domain.PalletKindStandard,
			Period:      domain.PeriodDay,
			HeightRanges: []domain.HeightRange{
				{ID: "h1", MinCm: 0, MaxCm: f64(100), PricePerUnit: dec("2")},
				{ID: "h2", MinCm: 101, PricePerUnit: dec("3")},
			},
			WeightRanges: []domain.WeightRange{
				{ID: "w1", MinKg: 0, MaxKg: f64(500), PricePerPallet: dec("1")},
				{ID: "w2", MinKg: 501, PricePerPallet: dec("1.5")},
			},
		}},
		PricePerPalletPerDay: decPtr("2"),
		PricePerSqFtPerMonth: decPtr("0.5"),
	}
}

var (
	customer = &tenant.Context{UserID: "customer-1", Role: tenant.RoleCustomer, Email: "c@example.com"}
	stranger = &tenant.Context{UserID: "customer-2", Role: tenant.RoleCustomer}
	staff    = &tenant.Context{UserID: "staff-1", Role: tenant.RoleStaff, CompanyID: "company-1"}
	owner    = &tenant.Context{UserID: "owner-1", Role: tenant.RoleOwner, CompanyID: "company-1"}
	rival    = &tenant.Context{UserID: "staff-9", Role: tenant.RoleStaff, CompanyID: "company-9"}
)
