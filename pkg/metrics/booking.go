package metrics

import "time"

func (m *Metrics) RecordPriceCalculation(bookingType, period string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.PriceCalculations.WithLabelValues(m.serviceName, bookingType, period, statusLabel(success)).Inc()
	m.PriceCalculationLatency.WithLabelValues(m.serviceName, bookingType).Observe(duration.Seconds())
}

// RecordPricingUnavailable counts quotes refused because no rate applied,
// labelled with the reason the calculator gave.
func (m *Metrics) RecordPricingUnavailable(reason string) {
	if m != nil {
		m.PricingUnavailable.WithLabelValues(m.serviceName, reason).Inc()
	}
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.PricingCacheRequests.WithLabelValues(m.serviceName, result).Inc()
}

func (m *Metrics) RecordBookingCreated(flow, bookingType string) {
	if m != nil {
		m.BookingsCreated.WithLabelValues(m.serviceName, flow, bookingType).Inc()
	}
}

func (m *Metrics) RecordBookingTransition(from, to string) {
	if m != nil {
		m.BookingTransitions.WithLabelValues(m.serviceName, from, to).Inc()
	}
}

func (m *Metrics) RecordAvailabilityCheck(open bool) {
	if m == nil {
		return
	}
	result := "closed"
	if open {
		result = "open"
	}
	m.AvailabilityChecks.WithLabelValues(m.serviceName, result).Inc()
}

func (m *Metrics) SetOutboxPending(count int64) {
	if m != nil {
		m.OutboxPendingMessages.Set(float64(count))
	}
}

// RecordIdempotency takes one of hit, miss, mismatch, conflict or error
func (m *Metrics) RecordIdempotency(outcome string) {
	if m != nil {
		m.IdempotencyRequests.WithLabelValues(m.serviceName, outcome).Inc()
	}
}
