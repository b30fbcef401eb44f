package cloudevents

import (
	"time"
)

// Booking event types published on the bookings topic
const (
	BookingCreated               = "booking.created"
	BookingAwaitingTimeSlot      = "booking.awaiting_time_slot"
	BookingTimeProposed          = "booking.time_proposed"
	BookingTimeSlotConfirmed     = "booking.time_slot_confirmed"
	BookingPaymentPending        = "booking.payment_pending"
	BookingConfirmed             = "booking.confirmed"
	BookingCheckedIn             = "booking.checked_in"
	BookingCompleted             = "booking.completed"
	BookingCancellationRequested = "booking.cancellation_requested"
	BookingCancellationRejected  = "booking.cancellation_rejected"
	BookingCancelled             = "booking.cancelled"
	WarehousePricingUpdated      = "warehouse.pricing_updated"
)

// SourceBookingService identifies events emitted by this service
const SourceBookingService = "/palletspace/booking-service"

// CloudEvent extension attribute names
const (
	ExtCorrelationID = "correlationid"
	ExtWarehouseID   = "warehouseid"
	ExtCompanyID     = "companyid"
	ExtTraceParent   = "traceparent"
)

// CloudEvent is a CloudEvents v1.0 envelope in structured JSON mode
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Extensions
	CorrelationID string `json:"correlationid,omitempty"`
	WarehouseID   string `json:"warehouseid,omitempty"`
	CompanyID     string `json:"companyid,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
}

// Extensions returns the populated extension attributes keyed by name
func (e *CloudEvent) Extensions() map[string]string {
	ext := make(map[string]string, 4)
	if e.CorrelationID != "" {
		ext[ExtCorrelationID] = e.CorrelationID
	}
	if e.WarehouseID != "" {
		ext[ExtWarehouseID] = e.WarehouseID
	}
	if e.CompanyID != "" {
		ext[ExtCompanyID] = e.CompanyID
	}
	if e.TraceParent != "" {
		ext[ExtTraceParent] = e.TraceParent
	}
	return ext
}

// WithWarehouse scopes the event to a warehouse and its owning company
func (e *CloudEvent) WithWarehouse(warehouseID, companyID string) *CloudEvent {
	e.WarehouseID = warehouseID
	e.CompanyID = companyID
	return e
}
