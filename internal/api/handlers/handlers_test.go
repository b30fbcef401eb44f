package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/palletspace/booking-service/internal/application"
	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/middleware"
	"github.com/palletspace/booking-service/pkg/tenant"
)

var testNow = time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)

var (
	customer = &tenant.Context{UserID: "customer-1", Role: tenant.RoleCustomer}
	staff    = &tenant.Context{UserID: "staff-1", Role: tenant.RoleStaff, CompanyID: "company-1"}
	owner    = &tenant.Context{UserID: "owner-1", Role: tenant.RoleOwner, CompanyID: "company-1"}
)

type fakeBookingRepo struct {
	bookings map[string]*domain.Booking
	listFn   func(context.Context, domain.BookingFilter) ([]*domain.Booking, int64, error)
}

func (f *fakeBookingRepo) Save(ctx context.Context, booking *domain.Booking) error {
	booking.ClearDomainEvents()
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeBookingRepo) FindByID(ctx context.Context, bookingID string) (*domain.Booking, error) {
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
	var all []*domain.Booking
	for _, b := range f.bookings {
		all = append(all, b)
	}
	return all, int64(len(all)), nil
}

type fakeCatalogue struct {
	warehouse *domain.Warehouse
	pricing   *domain.WarehousePricing
}

func (f *fakeCatalogue) GetWarehouse(ctx context.Context, warehouseID string) (*domain.Warehouse, error) {
	if warehouseID != f.warehouse.ID {
		return nil, domain.ErrWarehouseNotFound
	}
	return f.warehouse, nil
}

func (f *fakeCatalogue) GetPricing(ctx context.Context, warehouseID string) (*domain.WarehousePricing, error) {
	if warehouseID != f.warehouse.ID {
		return nil, domain.ErrWarehouseNotFound
	}
	return f.pricing, nil
}

func (f *fakeCatalogue) SavePricing(ctx context.Context, pricing *domain.WarehousePricing) error {
	f.pricing = pricing
	return nil
}

type fakeCapacity struct{}

func (fakeCapacity) Capacity(ctx context.Context, warehouse *domain.Warehouse, date time.Time) (*domain.Capacity, error) {
	pallets := 40
	return &domain.Capacity{Date: date, PalletSlotsRemaining: &pallets}, nil
}

type fakeWorkbook struct {
	entries []domain.PricingEntry
}

func (f *fakeWorkbook) ParsePricingEntries(r io.Reader, warehouseID string) ([]domain.PricingEntry, error) {
	_, _ = io.Copy(io.Discard, r)
	return f.entries, nil
}

func (f *fakeWorkbook) WriteBookings(w io.Writer, bookings []*domain.Booking) error {
	_, err := w.Write([]byte("PK"))
	return err
}

var testLogger = logging.NewNop()

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testPricing() *domain.WarehousePricing {
	maxHeight, maxWeight := 100.0, 500.0
	flat := dec("2")
	return &domain.WarehousePricing{
		WarehouseID: "wh-1",
		Entries: []domain.PricingEntry{{
			ID:         "gen-day",
			GoodsType:  domain.GoodsTypeGeneral,
			PalletKind: domain.PalletKindStandard,
			Period:     domain.PeriodDay,
			HeightRanges: []domain.HeightRange{
				{ID: "h1", MinCm: 0, MaxCm: &maxHeight, PricePerUnit: dec("2")},
				{ID: "h2", MinCm: 101, PricePerUnit: dec("3")},
			},
			WeightRanges: []domain.WeightRange{
				{ID: "w1", MinKg: 0, MaxKg: &maxWeight, PricePerPallet: dec("1")},
				{ID: "w2", MinKg: 501, PricePerPallet: dec("1.5")},
			},
		}},
		PricePerPalletPerDay: &flat,
	}
}

type testEnv struct {
	router   *gin.Engine
	bookings *fakeBookingRepo
	pricing  *PricingHandler
	avail    *AvailabilityHandler
	booking  *BookingHandler
}

// newTestEnv wires real services over fakes. principal is attached to every
// request the way the auth middleware would, nil leaves requests anonymous.
func newTestEnv(principal *tenant.Context, seed ...*domain.Booking) *testEnv {
	gin.SetMode(gin.TestMode)
	middleware.InitValidator()

	catalogue := &fakeCatalogue{
		warehouse: &domain.Warehouse{
			ID:               "wh-1",
			CompanyID:        "company-1",
			WorkingDays:      []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			TotalPalletSlots: 100,
		},
		pricing: testPricing(),
	}
	repo := &fakeBookingRepo{bookings: make(map[string]*domain.Booking)}
	for _, b := range seed {
		repo.bookings[b.ID] = b
	}
	clock := func() time.Time { return testNow }
	workbook := &fakeWorkbook{entries: testPricing().Entries}

	pricingSvc := application.NewPricingService(catalogue, testLogger, nil,
		application.WithWorkbook(workbook), application.WithPricingClock(clock))
	availabilitySvc := application.NewAvailabilityService(catalogue, fakeCapacity{}, domain.DefaultThresholds(), testLogger, nil).
		WithClock(clock)
	bookingSvc := application.NewBookingService(repo, catalogue, pricingSvc, availabilitySvc, testLogger, nil,
		application.WithExportWorkbook(workbook), application.WithBookingClock(clock))

	router := gin.New()
	if principal != nil {
		router.Use(func(c *gin.Context) {
			c.Set(middleware.ContextKeyPrincipal, principal)
			c.Request = c.Request.WithContext(tenant.ToContext(c.Request.Context(), principal))
			c.Next()
		})
	}

	return &testEnv{
		router:   router,
		bookings: repo,
		pricing:  NewPricingHandler(pricingSvc, testLogger),
		avail:    NewAvailabilityHandler(availabilitySvc, testLogger),
		booking:  NewBookingHandler(bookingSvc, testLogger),
	}
}

func seedBooking(t *testing.T, flow domain.BookingFlow) *domain.Booking {
	t.Helper()
	b, err := domain.NewBooking(domain.NewBookingParams{
		Flow:        flow,
		Type:        domain.BookingTypePallet,
		CustomerID:  "customer-1",
		CompanyID:   "company-1",
		WarehouseID: "wh-1",
		StartDate:   time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2030, 3, 7, 0, 0, 0, 0, time.UTC),
		PalletCount: 4,
		TotalAmount: 24,
	}, testNow)
	require.NoError(t, err)
	b.ClearDomainEvents()
	return b
}

func makeRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func makeUpload(router *gin.Engine, path, field, filename string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, _ := writer.CreateFormFile(field, filename)
	_, _ = part.Write(content)
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decode(t, rec)
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}
