package domain

import "time"

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// Event types published by the booking service
const (
	EventBookingCreated               = "booking.created"
	EventBookingAwaitingTimeSlot      = "booking.awaiting_time_slot"
	EventBookingTimeProposed          = "booking.time_proposed"
	EventBookingTimeSlotConfirmed     = "booking.time_slot_confirmed"
	EventBookingPaymentPending        = "booking.payment_pending"
	EventBookingConfirmed             = "booking.confirmed"
	EventBookingCheckedIn             = "booking.checked_in"
	EventBookingCompleted             = "booking.completed"
	EventBookingCancellationRequested = "booking.cancellation_requested"
	EventBookingCancellationRejected  = "booking.cancellation_rejected"
	EventBookingCancelled             = "booking.cancelled"
	EventWarehousePricingUpdated      = "warehouse.pricing_updated"
)

// BookingCreatedEvent is emitted when a booking is placed
type BookingCreatedEvent struct {
	BookingID   string        `json:"bookingId"`
	CustomerID  string        `json:"customerId"`
	CompanyID   string        `json:"companyId"`
	WarehouseID string        `json:"warehouseId"`
	Type        BookingType   `json:"type"`
	Flow        BookingFlow   `json:"flow"`
	Status      BookingStatus `json:"status"`
	StartDate   time.Time     `json:"startDate"`
	EndDate     time.Time     `json:"endDate"`
	TotalAmount float64       `json:"totalAmount"`
	CreatedAt   time.Time     `json:"createdAt"`
}

func (e *BookingCreatedEvent) EventType() string     { return EventBookingCreated }
func (e *BookingCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// BookingStatusChangedEvent is emitted for every lifecycle transition.
// The event type is chosen by the transition that produced it.
type BookingStatusChangedEvent struct {
	Type        string        `json:"-"`
	BookingID   string        `json:"bookingId"`
	WarehouseID string        `json:"warehouseId"`
	From        BookingStatus `json:"from"`
	To          BookingStatus `json:"to"`
	ActorID     string        `json:"actorId"`
	ActorRole   ActorRole     `json:"actorRole"`
	Reason      string        `json:"reason,omitempty"`
	ChangedAt   time.Time     `json:"changedAt"`
}

func (e *BookingStatusChangedEvent) EventType() string     { return e.Type }
func (e *BookingStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// TimeProposedEvent is emitted when staff counter-propose a drop-in time
type TimeProposedEvent struct {
	BookingID         string    `json:"bookingId"`
	WarehouseID       string    `json:"warehouseId"`
	ProposedStartDate string    `json:"proposedStartDate"`
	ProposedStartTime string    `json:"proposedStartTime"`
	ProposedBy        string    `json:"proposedBy"`
	ProposedAt        time.Time `json:"proposedAt"`
}

func (e *TimeProposedEvent) EventType() string     { return EventBookingTimeProposed }
func (e *TimeProposedEvent) OccurredAt() time.Time { return e.ProposedAt }

// TimeSlotConfirmedEvent is emitted when the customer picks a drop-in slot
type TimeSlotConfirmedEvent struct {
	BookingID   string        `json:"bookingId"`
	WarehouseID string        `json:"warehouseId"`
	Date        string        `json:"date"`
	Time        string        `json:"time"`
	Status      BookingStatus `json:"status"`
	ConfirmedAt time.Time     `json:"confirmedAt"`
}

func (e *TimeSlotConfirmedEvent) EventType() string     { return EventBookingTimeSlotConfirmed }
func (e *TimeSlotConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }

// PricingUpdatedEvent is emitted when a warehouse owner replaces pricing
type PricingUpdatedEvent struct {
	WarehouseID string    `json:"warehouseId"`
	EntryCount  int       `json:"entryCount"`
	UpdatedBy   string    `json:"updatedBy"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (e *PricingUpdatedEvent) EventType() string     { return EventWarehousePricingUpdated }
func (e *PricingUpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }
