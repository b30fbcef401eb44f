package bookingclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Quote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/pricing/calculate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req QuoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "wh-1", req.WarehouseID)
		assert.Equal(t, 10, req.Quantity)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"breakdown":{"base_price":"1.5","days":30,"free_days":5,"billable_days":25,
			"pricing_period":"day","subtotal":"375","discount_percent":"10","volume_discount":"37.5","total":"337.5","lines":[]}}`))
	}))
	defer server.Close()

	breakdown, err := New(server.URL).Quote(context.Background(), QuoteRequest{
		WarehouseID: "wh-1", Type: "pallet", Quantity: 10, StartDate: "2025-03-01", EndDate: "2025-03-31",
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("337.5").Equal(breakdown.Total))
	assert.Equal(t, 25, breakdown.BillableDays)
}

func TestClient_Availability(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/warehouses/wh%201/availability", r.URL.EscapedPath())
		assert.Equal(t, "2025-03-03", r.URL.Query().Get("date"))
		assert.Equal(t, "pallet", r.URL.Query().Get("type"))

		_, _ = w.Write([]byte(`{"success":true,"data":{"date":"2025-03-03","timeSlots":[
			{"time":"08:00","available":false,"reason":"slot_full"},
			{"time":"09:00","available":true}]}}`))
	}))
	defer server.Close()

	day, err := New(server.URL).Availability(context.Background(), "wh 1", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), "pallet")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, day.OpenSlots())
}

func TestClient_Calendar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-03-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2025-03-02", r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"date":"2025-03-01","status":"limited","workingDay":true,"palletSlotsRemaining":3},
			{"date":"2025-03-02","status":"unknown","workingDay":false}]}`))
	}))
	defer server.Close()

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	days, err := New(server.URL).Calendar(context.Background(), "wh-1", from, from.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, days, 2)
	require.NotNil(t, days[0].PalletSlotsRemaining)
	assert.Equal(t, 3, *days[0].PalletSlotsRemaining)
	assert.Nil(t, days[1].PalletSlotsRemaining)
}

func TestClient_ListBookings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer staff-token", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "pre_order,cancel_request", q.Get("status"))
		assert.Equal(t, "totalAmount", q.Get("sortBy"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Empty(t, q.Get("customerSearch"))

		_, _ = w.Write([]byte(`{"success":true,"data":{"items":[{"id":"b-1","status":"pre_order","totalAmount":120}],
			"page":2,"pageSize":20,"totalItems":21,"totalPages":2,"hasNext":false,"hasPrev":true}}`))
	}))
	defer server.Close()

	page, err := New(server.URL, WithToken("staff-token")).ListBookings(context.Background(), ListOptions{
		Statuses: []string{"pre_order", "cancel_request"},
		SortBy:   "totalAmount",
		Page:     2,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "b-1", page.Items[0].ID)
	assert.True(t, page.HasPrev)
}

func TestClient_Errors(t *testing.T) {
	t.Run("error envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"success":false,"error":"no pricing entry","code":"PRICING_UNAVAILABLE","details":{"reason":"no_pricing_entry"},"requestId":"req-1"}`))
		}))
		defer server.Close()

		_, err := New(server.URL).Quote(context.Background(), QuoteRequest{WarehouseID: "wh-1"})
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
		assert.Equal(t, "PRICING_UNAVAILABLE", apiErr.Code)
		assert.Equal(t, "no_pricing_entry", apiErr.Details["reason"])
		assert.Equal(t, "req-1", apiErr.RequestID)
	})

	t.Run("plain text body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := New(server.URL).Calendar(context.Background(), "wh-1", time.Now(), time.Now())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "bad gateway", apiErr.Message)
		assert.Contains(t, apiErr.Error(), "502")
	})

	t.Run("token source failure", func(t *testing.T) {
		client := New("http://127.0.0.1:0", WithTokenSource(func(ctx context.Context) (string, error) {
			return "", errors.New("expired refresh token")
		}))
		_, err := client.ListBookings(context.Background(), ListOptions{})
		assert.ErrorContains(t, err, "expired refresh token")
	})
}
