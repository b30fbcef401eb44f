package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletspace/booking-service/internal/application"
	"github.com/palletspace/booking-service/internal/domain"
	apperrors "github.com/palletspace/booking-service/pkg/errors"
	"github.com/palletspace/booking-service/pkg/tenant"
)

func registerBookingRoutes(env *testEnv) {
	r := env.router
	h := env.booking
	r.POST("/api/v1/bookings/draft", h.Draft)
	r.POST("/api/v1/bookings", h.CreateBooking)
	r.GET("/api/v1/bookings/:id", h.GetBooking)
	r.POST("/api/v1/bookings/:id/approve", h.Approve)
	r.POST("/api/v1/bookings/:id/set-awaiting-time-slot", h.SetAwaitingTimeSlot)
	r.POST("/api/v1/bookings/:id/propose-time", h.ProposeTime)
	r.POST("/api/v1/bookings/:id/confirm-time-slot", h.ConfirmTimeSlot)
	r.POST("/api/v1/bookings/:id/mark-paid", h.MarkPaid)
	r.POST("/api/v1/bookings/:id/check-in", h.CheckIn)
	r.POST("/api/v1/bookings/:id/check-out", h.CheckOut)
	r.POST("/api/v1/bookings/:id/request-cancellation", h.RequestCancellation)
	r.POST("/api/v1/bookings/:id/approve-cancellation", h.ApproveCancellation)
	r.POST("/api/v1/bookings/:id/reject-cancellation", h.RejectCancellation)
	r.GET("/api/v1/warehouse-staff/bookings", h.ListBookings)
	r.GET("/api/v1/warehouse-staff/bookings/export", h.ExportBookings)
}

func TestBookingHandlerDraft(t *testing.T) {
	env := newTestEnv(customer)
	registerBookingRoutes(env)

	rec := makeRequest(env.router, http.MethodPost, "/api/v1/bookings/draft", map[string]interface{}{
		"warehouseId":  "wh-1",
		"goodsType":    "general",
		"totalPallets": 2,
		"items": []map[string]interface{}{
			{"palletType": "euro", "quantity": 2, "heightRangeId": "h1", "weightRangeId": "w1"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var details domain.PalletBookingDetails
	decodeData(t, rec, &details)
	assert.Equal(t, 2, details.TotalPallets)

	rec = makeRequest(env.router, http.MethodPost, "/api/v1/bookings/draft", map[string]interface{}{
		"goodsType": "general",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Details, "warehouseId")
}

func TestBookingHandlerCreateBooking(t *testing.T) {
	create := map[string]interface{}{
		"type":         "pallet",
		"warehouseId":  "wh-1",
		"startDate":    "2030-03-04",
		"endDate":      "2030-03-07",
		"palletCount":  4,
		"customerName": "Ada",
	}

	t.Run("customer", func(t *testing.T) {
		env := newTestEnv(customer)
		registerBookingRoutes(env)

		rec := makeRequest(env.router, http.MethodPost, "/api/v1/bookings", create)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var booking application.BookingDTO
		decodeData(t, rec, &booking)
		assert.Equal(t, string(domain.StatusPreOrder), booking.Status)
		assert.Equal(t, "customer-1", booking.CustomerID)
		assert.Equal(t, "company-1", booking.CompanyID)
		assert.InDelta(t, 24.0, booking.TotalAmount, 0.001)
		assert.Len(t, env.bookings.bookings, 1)
	})

	t.Run("anonymous", func(t *testing.T) {
		env := newTestEnv(nil)
		registerBookingRoutes(env)

		rec := makeRequest(env.router, http.MethodPost, "/api/v1/bookings", create)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, env.bookings.bookings)
	})

	t.Run("invalid body", func(t *testing.T) {
		env := newTestEnv(customer)
		registerBookingRoutes(env)

		rec := makeRequest(env.router, http.MethodPost, "/api/v1/bookings", map[string]interface{}{
			"type":        "shelf",
			"warehouseId": "wh-1",
			"startDate":   "tomorrow",
			"endDate":     "2030-03-07",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		res := decode(t, rec)
		assert.Contains(t, res.Details, "type")
		assert.Contains(t, res.Details, "startDate")
	})
}

func TestBookingHandlerGetBooking(t *testing.T) {
	booking := seedBooking(t, domain.FlowMarketplace)

	tests := []struct {
		name      string
		principal *tenant.Context
		id        string
		status    int
	}{
		{"owner customer", customer, booking.ID, http.StatusOK},
		{"company staff", staff, booking.ID, http.StatusOK},
		{"other customer", &tenant.Context{UserID: "customer-2", Role: tenant.RoleCustomer}, booking.ID, http.StatusForbidden},
		{"anonymous", nil, booking.ID, http.StatusUnauthorized},
		{"unknown booking", customer, "missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(tt.principal, booking)
			registerBookingRoutes(env)

			rec := makeRequest(env.router, http.MethodGet, "/api/v1/bookings/"+tt.id, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestBookingHandlerMarketplaceLifecycle(t *testing.T) {
	booking := seedBooking(t, domain.FlowMarketplace)
	path := "/api/v1/bookings/" + booking.ID

	staffEnv := newTestEnv(staff, booking)
	registerBookingRoutes(staffEnv)
	customerEnv := newTestEnv(customer, booking)
	registerBookingRoutes(customerEnv)

	rec := makeRequest(staffEnv.router, http.MethodPost, path+"/set-awaiting-time-slot", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = makeRequest(customerEnv.router, http.MethodPost, path+"/confirm-time-slot", map[string]interface{}{
		"date": "2030-03-04",
		"time": "10:00",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dto application.BookingDTO
	decodeData(t, rec, &dto)
	assert.Equal(t, string(domain.StatusConfirmed), dto.Status)

	rec = makeRequest(staffEnv.router, http.MethodPost, path+"/check-in", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = makeRequest(staffEnv.router, http.MethodPost, path+"/check-out", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	decodeData(t, rec, &dto)
	assert.Equal(t, string(domain.StatusCompleted), dto.Status)
	assert.Len(t, dto.StatusHistory, 5)

	rec = makeRequest(customerEnv.router, http.MethodPost, path+"/request-cancellation", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	res := decode(t, rec)
	assert.Equal(t, apperrors.CodeInvalidTransition, res.Code)
	assert.Equal(t, string(domain.StatusCompleted), res.Details["status"])
}

func TestBookingHandlerTransitionErrors(t *testing.T) {
	t.Run("approve is legacy only", func(t *testing.T) {
		booking := seedBooking(t, domain.FlowMarketplace)
		env := newTestEnv(staff, booking)
		registerBookingRoutes(env)

		rec := makeRequest(env.router, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/approve", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, apperrors.CodeInvalidTransition, decode(t, rec).Code)
	})

	t.Run("customers cannot check in", func(t *testing.T) {
		booking := seedBooking(t, domain.FlowMarketplace)
		env := newTestEnv(customer, booking)
		registerBookingRoutes(env)

		rec := makeRequest(env.router, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/check-in", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("malformed proposal", func(t *testing.T) {
		booking := seedBooking(t, domain.FlowMarketplace)
		env := newTestEnv(staff, booking)
		registerBookingRoutes(env)

		rec := makeRequest(env.router, http.MethodPost, "/api/v1/bookings/"+booking.ID+"/propose-time", map[string]interface{}{
			"proposedStartDate": "2030-03-05",
			"proposedStartTime": "25:00",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec).Details, "proposedStartTime")
	})
}

func TestBookingHandlerCancellation(t *testing.T) {
	booking := seedBooking(t, domain.FlowMarketplace)
	path := "/api/v1/bookings/" + booking.ID

	customerEnv := newTestEnv(customer, booking)
	registerBookingRoutes(customerEnv)
	staffEnv := newTestEnv(staff, booking)
	registerBookingRoutes(staffEnv)

	rec := makeRequest(customerEnv.router, http.MethodPost, path+"/request-cancellation", map[string]interface{}{
		"reason": "plans changed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dto application.BookingDTO
	decodeData(t, rec, &dto)
	assert.Equal(t, string(domain.StatusCancelRequest), dto.Status)

	rec = makeRequest(staffEnv.router, http.MethodPost, path+"/reject-cancellation", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &dto)
	assert.Equal(t, string(domain.StatusPreOrder), dto.Status)

	rec = makeRequest(customerEnv.router, http.MethodPost, path+"/request-cancellation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = makeRequest(staffEnv.router, http.MethodPost, path+"/approve-cancellation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &dto)
	assert.Equal(t, string(domain.StatusCancelled), dto.Status)
}

func TestBookingHandlerListBookings(t *testing.T) {
	booking := seedBooking(t, domain.FlowMarketplace)
	env := newTestEnv(staff, booking)
	registerBookingRoutes(env)

	var seen domain.BookingFilter
	env.bookings.listFn = func(_ context.Context, filter domain.BookingFilter) ([]*domain.Booking, int64, error) {
		seen = filter
		return []*domain.Booking{booking}, 21, nil
	}

	rec := makeRequest(env.router, http.MethodGet, "/api/v1/warehouse-staff/bookings?status=pre_order,confirmed&sortBy=startDate&sortOrder=asc&page=2&pageSize=20", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page struct {
		Items      []application.BookingDTO `json:"items"`
		TotalItems int64                    `json:"totalItems"`
		Page       int64                    `json:"page"`
		TotalPages int64                    `json:"totalPages"`
	}
	decodeData(t, rec, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, booking.ID, page.Items[0].ID)
	assert.Equal(t, int64(21), page.TotalItems)
	assert.Equal(t, int64(2), page.Page)
	assert.Equal(t, int64(2), page.TotalPages)

	assert.Equal(t, "company-1", seen.CompanyID)
	assert.Equal(t, []domain.BookingStatus{domain.StatusPreOrder, domain.StatusConfirmed}, seen.Statuses)
	assert.Equal(t, domain.SortByStartDate, seen.SortBy)
	assert.False(t, seen.SortDesc)

	rec = makeRequest(env.router, http.MethodGet, "/api/v1/warehouse-staff/bookings?pageSize=500", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Details, "pageSize")

	rec = makeRequest(env.router, http.MethodGet, "/api/v1/warehouse-staff/bookings?sortBy=color", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingHandlerExportBookings(t *testing.T) {
	booking := seedBooking(t, domain.FlowMarketplace)

	t.Run("staff", func(t *testing.T) {
		env := newTestEnv(staff, booking)
		registerBookingRoutes(env)

		rec := makeRequest(env.router, http.MethodGet, "/api/v1/warehouse-staff/bookings/export", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "bookings-company-1.xlsx")
		assert.Equal(t, "PK", rec.Body.String())
	})

	t.Run("customer", func(t *testing.T) {
		env := newTestEnv(customer, booking)
		registerBookingRoutes(env)

		rec := makeRequest(env.router, http.MethodGet, "/api/v1/warehouse-staff/bookings/export", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
