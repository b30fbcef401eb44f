package openapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apispec "github.com/palletspace/booking-service/api"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidatorFromBytes(apispec.OpenAPI)
	require.NoError(t, err)
	return v
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestNewValidatorFromBytes(t *testing.T) {
	t.Run("embedded document", func(t *testing.T) {
		v := newTestValidator(t)
		assert.NotNil(t, v.doc.Paths.Find("/api/v1/bookings/{id}/approve"))
		assert.NotNil(t, v.doc.Paths.Find("/api/v1/warehouse-staff/bookings/export"))
	})

	t.Run("not a document", func(t *testing.T) {
		_, err := NewValidatorFromBytes([]byte("::not yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid document", func(t *testing.T) {
		_, err := NewValidatorFromBytes([]byte(`{"openapi":"3.0.3","info":{"title":"x"},"paths":{}}`))
		assert.Error(t, err)
	})
}

func TestValidator_OperationID(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		method string
		target string
		want   string
	}{
		{http.MethodPost, "/api/v1/pricing/calculate", "calculatePrice"},
		{http.MethodGet, "/api/v1/warehouses/wh-1/availability?date=2025-03-01", "getAvailability"},
		{http.MethodGet, "/api/v1/warehouses/wh-1/availability/calendar", "getAvailabilityCalendar"},
		{http.MethodPost, "/api/v1/bookings", "createBooking"},
		{http.MethodPost, "/api/v1/bookings/b-1/confirm-time-slot", "confirmTimeSlot"},
		{http.MethodGet, "/api/v1/warehouse-staff/bookings", "listBookings"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			id, err := v.OperationID(httptest.NewRequest(tt.method, tt.target, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}

	_, err := v.OperationID(httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/b-1", nil))
	assert.Error(t, err)
}

func TestValidator_ValidateRequest(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name    string
		req     *http.Request
		wantErr bool
	}{
		{
			name: "pallet quote",
			req: jsonRequest(http.MethodPost, "/api/v1/pricing/calculate", `{
				"warehouse_id": "wh-1", "type": "pallet", "quantity": 10,
				"start_date": "2025-03-01", "end_date": "2025-03-31",
				"pallet_details": {"goods_type": "general", "items": [
					{"pallet_type": "euro", "quantity": 10, "height_range_id": "h1", "weight_range_id": "w1"}
				]}
			}`),
		},
		{
			name:    "quote missing quantity",
			req:     jsonRequest(http.MethodPost, "/api/v1/pricing/calculate", `{"warehouse_id":"wh-1","type":"pallet","start_date":"2025-03-01","end_date":"2025-03-31"}`),
			wantErr: true,
		},
		{
			name:    "quote with unknown booking type",
			req:     jsonRequest(http.MethodPost, "/api/v1/pricing/calculate", `{"warehouse_id":"wh-1","type":"container","quantity":1,"start_date":"2025-03-01","end_date":"2025-03-31"}`),
			wantErr: true,
		},
		{
			name:    "availability without date",
			req:     httptest.NewRequest(http.MethodGet, "/api/v1/warehouses/wh-1/availability", nil),
			wantErr: true,
		},
		{
			name: "propose time",
			req:  jsonRequest(http.MethodPost, "/api/v1/bookings/b-1/propose-time", `{"proposedStartDate":"2025-03-03","proposedStartTime":"10:00"}`),
		},
		{
			name:    "propose time with bad slot",
			req:     jsonRequest(http.MethodPost, "/api/v1/bookings/b-1/propose-time", `{"proposedStartDate":"2025-03-03","proposedStartTime":"10am"}`),
			wantErr: true,
		},
		{
			name: "cancellation without body",
			req:  httptest.NewRequest(http.MethodPost, "/api/v1/bookings/b-1/request-cancellation", nil),
		},
		{
			name:    "staff list sort order",
			req:     httptest.NewRequest(http.MethodGet, "/api/v1/warehouse-staff/bookings?sortOrder=sideways", nil),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidator_ValidateRequest_WorkbookUpload(t *testing.T) {
	v := newTestValidator(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="pricing.xlsx"`)
	header.Set("Content-Type", xlsxContentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("PK\x03\x04workbook"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/warehouses/wh-1/pricing/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	assert.NoError(t, v.ValidateRequest(req))
}

func TestValidator_ValidateResponse(t *testing.T) {
	v := newTestValidator(t)
	header := http.Header{"Content-Type": []string{"application/json"}}

	booking := map[string]interface{}{
		"id":           "b-1", "type": "pallet", "flow": "marketplace", "status": "pre_order",
		"legacyStatus": "pending", "customerId": "u-1", "companyId": "c-1", "warehouseId": "wh-1",
		"startDate":    "2025-03-01T00:00:00Z", "endDate": "2025-03-31T00:00:00Z",
		"palletCount":  10, "totalAmount": 310.5, "metadata": map[string]interface{}{},
		"statusHistory": []interface{}{
			map[string]interface{}{
				"to":    "pre_order", "action": "create",
				"actor": map[string]interface{}{"id": "u-1", "role": "customer"},
				"at":    "2025-02-20T09:00:00Z",
			},
		},
		"availableActions": []string{"request_cancellation"},
		"createdAt":        "2025-02-20T09:00:00Z", "updatedAt": "2025-02-20T09:00:00Z",
	}

	t.Run("booking envelope", func(t *testing.T) {
		body, err := json.Marshal(map[string]interface{}{"success": true, "data": booking})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/b-1", nil)
		assert.NoError(t, v.ValidateResponse(req, http.StatusOK, header, body))
	})

	t.Run("booking with unknown status", func(t *testing.T) {
		broken := map[string]interface{}{}
		for k, val := range booking {
			broken[k] = val
		}
		broken["status"] = "shipped"
		body, err := json.Marshal(map[string]interface{}{"success": true, "data": broken})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/b-1", nil)
		assert.Error(t, v.ValidateResponse(req, http.StatusOK, header, body))
	})

	t.Run("error envelope", func(t *testing.T) {
		body := []byte(`{"success":false,"error":"booking not found","code":"RESOURCE_NOT_FOUND"}`)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/b-1", nil)
		assert.NoError(t, v.ValidateResponse(req, http.StatusNotFound, header, body))
	})

	t.Run("quote with numeric money", func(t *testing.T) {
		body := []byte(`{"success":true,"breakdown":{"base_price":1.5,"days":30,"free_days":0,"billable_days":30,"pricing_period":"day","subtotal":"45","discount_percent":"0","volume_discount":"0","total":"45"}}`)
		req := jsonRequest(http.MethodPost, "/api/v1/pricing/calculate", `{}`)
		assert.Error(t, v.ValidateResponse(req, http.StatusOK, header, body))
	})
}

func TestRequestValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := newTestValidator(t)

	router := gin.New()
	router.Use(RequestValidation(v))
	router.POST("/api/v1/bookings/:id/confirm-time-slot", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/internal/debug", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	t.Run("valid request reaches the handler", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/v1/bookings/b-1/confirm-time-slot", `{"date":"2025-03-03","time":"09:00"}`))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("invalid request is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/v1/bookings/b-1/confirm-time-slot", `{"date":"2025-03-03"}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var envelope struct {
			Success bool              `json:"success"`
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.False(t, envelope.Success)
		assert.Equal(t, "VALIDATION_ERROR", envelope.Code)
		assert.Contains(t, envelope.Details["contract"], "time")
	})

	t.Run("undocumented route passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/debug", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
