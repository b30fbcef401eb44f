// Package bookingclient is a typed client for the public read endpoints of
// booking-service, with a scheduler for debounced and polled reads.
package bookingclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const dateLayout = "2006-01-02"

var tracer = otel.Tracer("booking-service/bookingclient")

// Client calls booking-service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      func(ctx context.Context) (string, error)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends a fixed bearer token
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = func(context.Context) (string, error) { return token, nil }
	}
}

// WithTokenSource fetches the bearer token per request
func WithTokenSource(source func(ctx context.Context) (string, error)) Option {
	return func(c *Client) { c.token = source }
}

// New creates a client for the service at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Quote prices a booking request
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*PriceBreakdown, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote request: %w", err)
	}

	var out struct {
		Success   bool            `json:"success"`
		Breakdown *PriceBreakdown `json:"breakdown"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/pricing/calculate", nil, body, &out); err != nil {
		return nil, err
	}
	if out.Breakdown == nil {
		return nil, fmt.Errorf("quote response has no breakdown")
	}
	return out.Breakdown, nil
}

// Availability returns the drop-in slots of warehouseID on date. bookingType may be empty.
func (c *Client) Availability(ctx context.Context, warehouseID string, date time.Time, bookingType string) (*DayAvailability, error) {
	query := url.Values{"date": {date.Format(dateLayout)}}
	if bookingType != "" {
		query.Set("type", bookingType)
	}

	var out envelope[*DayAvailability]
	if err := c.do(ctx, http.MethodGet, "/api/v1/warehouses/"+url.PathEscape(warehouseID)+"/availability", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Calendar classifies every date between from and to
func (c *Client) Calendar(ctx context.Context, warehouseID string, from, to time.Time) ([]CalendarDay, error) {
	query := url.Values{
		"from": {from.Format(dateLayout)},
		"to":   {to.Format(dateLayout)},
	}

	var out envelope[[]CalendarDay]
	if err := c.do(ctx, http.MethodGet, "/api/v1/warehouses/"+url.PathEscape(warehouseID)+"/availability/calendar", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListBookings returns one page of the staff booking list
func (c *Client) ListBookings(ctx context.Context, opts ListOptions) (*BookingPage, error) {
	var out envelope[*BookingPage]
	if err := c.do(ctx, http.MethodGet, "/api/v1/warehouse-staff/bookings", opts.values(), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("status", strings.Join(o.Statuses, ","))
	set("warehouseId", o.WarehouseID)
	set("startDate", o.StartDate)
	set("endDate", o.EndDate)
	set("customerSearch", o.CustomerSearch)
	set("sortBy", o.SortBy)
	set("sortOrder", o.SortOrder)
	if o.Page > 0 {
		v.Set("page", strconv.FormatInt(o.Page, 10))
	}
	if o.PageSize > 0 {
		v.Set("pageSize", strconv.FormatInt(o.PageSize, 10))
	}
	return v
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	ctx, span := tracer.Start(ctx, "booking-service."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		),
	)
	defer span.End()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("failed to obtain token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("booking-service request failed: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 400 {
		apiErr := decodeError(resp)
		span.RecordError(apiErr)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Code = body.Code
	apiErr.Message = body.Error
	apiErr.Details = body.Details
	apiErr.RequestID = body.RequestID
	return apiErr
}
