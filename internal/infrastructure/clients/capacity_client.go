package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/metrics"
	"github.com/palletspace/booking-service/pkg/resilience"
)

var tracer = otel.Tracer("booking-service/clients")

// capacityResponse is the capacity service payload for one warehouse day
type capacityResponse struct {
	PalletSlotsRemaining *int           `json:"palletSlotsRemaining"`
	SqFtRemaining        *int           `json:"sqFtRemaining"`
	DropIns              map[string]int `json:"dropIns"`
}

// CapacityClient implements domain.CapacityProvider against the external
// capacity service
type CapacityClient struct {
	httpClient *http.Client
	baseURL    string
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

// NewCapacityClient creates a new CapacityClient. Unknown warehouses do not
// count as failures of the downstream.
func NewCapacityClient(baseURL string, timeout time.Duration, logger *logging.Logger, m *metrics.Metrics) *CapacityClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cfg := resilience.DefaultCircuitBreakerConfig("capacity-service")
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, domain.ErrWarehouseNotFound) || errors.Is(err, domain.ErrCapacityUnknown)
	}

	return &CapacityClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		breaker:    resilience.NewCircuitBreaker(cfg, logger, m),
		logger:     logger,
	}
}

// Capacity fetches the remaining capacity of warehouse on date
func (c *CapacityClient) Capacity(ctx context.Context, warehouse *domain.Warehouse, date time.Time) (*domain.Capacity, error) {
	day := domain.DateOnly(date)

	resp, err := resilience.Execute(ctx, c.breaker, func(ctx context.Context) (*capacityResponse, error) {
		return c.fetch(ctx, warehouse.ID, day)
	})
	if err != nil {
		return nil, err
	}
	if resp.PalletSlotsRemaining == nil && resp.SqFtRemaining == nil {
		return nil, domain.ErrCapacityUnknown
	}

	dropIns := resp.DropIns
	if dropIns == nil {
		dropIns = map[string]int{}
	}
	return &domain.Capacity{
		Date:                 day,
		PalletSlotsRemaining: resp.PalletSlotsRemaining,
		SqFtRemaining:        resp.SqFtRemaining,
		DropIns:              dropIns,
	}, nil
}

func (c *CapacityClient) fetch(ctx context.Context, warehouseID string, day time.Time) (*capacityResponse, error) {
	endpoint := fmt.Sprintf("%s/api/v1/warehouses/%s/capacity?date=%s",
		c.baseURL, url.PathEscape(warehouseID), day.Format(domain.DateLayout))

	ctx, span := tracer.Start(ctx, "capacity-service.GET",
		trace.WithAttributes(
			attribute.String("http.method", http.MethodGet),
			attribute.String("http.url", endpoint),
			attribute.String("warehouse.id", warehouseID),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("capacity request failed: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrWarehouseNotFound
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("capacity request failed with status %d: %s", resp.StatusCode, string(body))
		span.RecordError(err)
		c.logger.WithContext(ctx).WithError(err).Warn("Capacity service error", "warehouseId", warehouseID)
		return nil, err
	}

	var payload capacityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode capacity response: %w", err)
	}
	return &payload, nil
}
