package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActorRole identifies who performed a lifecycle action
type ActorRole string

const (
	ActorCustomer ActorRole = "customer"
	ActorStaff    ActorRole = "staff"
	ActorOwner    ActorRole = "owner"
	ActorSystem   ActorRole = "system"
)

// Actor is the principal behind a transition
type Actor struct {
	ID   string    `json:"id" bson:"id"`
	Role ActorRole `json:"role" bson:"role"`
}

// SystemActor is used for transitions triggered by workflows and payment callbacks
func SystemActor(id string) Actor {
	return Actor{ID: id, Role: ActorSystem}
}

// StatusChange is one entry of a booking's history
type StatusChange struct {
	From   BookingStatus `json:"from,omitempty" bson:"from,omitempty"`
	To     BookingStatus `json:"to" bson:"to"`
	Action Action        `json:"action" bson:"action"`
	Actor  Actor         `json:"actor" bson:"actor"`
	Reason string        `json:"reason,omitempty" bson:"reason,omitempty"`
	At     time.Time     `json:"at" bson:"at"`
}

// TimeProposal is the staff counter-proposal. A booking holds at most one.
type TimeProposal struct {
	StartDate  time.Time `json:"proposedStartDate" bson:"startDate"`
	StartTime  string    `json:"proposedStartTime" bson:"startTime"`
	ProposedBy string    `json:"proposedBy" bson:"proposedBy"`
	ProposedAt time.Time `json:"proposedAt" bson:"proposedAt"`
}

// ConfirmedSlot is the drop-in slot the customer picked
type ConfirmedSlot struct {
	Date        time.Time `json:"date" bson:"date"`
	Time        string    `json:"time" bson:"time"`
	ConfirmedAt time.Time `json:"confirmedAt" bson:"confirmedAt"`
}

// BookingMetadata carries customer-supplied extras
type BookingMetadata struct {
	RequestedDropInTime *time.Time `json:"requestedDropInTime,omitempty" bson:"requestedDropInTime,omitempty"`
	Notes               string     `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Booking is the aggregate root for a warehouse booking
type Booking struct {
	ID                 string                `bson:"_id"`
	Type               BookingType           `bson:"type"`
	Flow               BookingFlow           `bson:"flow"`
	Status             BookingStatus         `bson:"status"`
	PreviousStatus     BookingStatus         `bson:"previousStatus,omitempty"`
	CustomerID         string                `bson:"customerId"`
	CustomerName       string                `bson:"customerName"`
	CustomerEmail      string                `bson:"customerEmail"`
	CompanyID          string                `bson:"companyId"`
	WarehouseID        string                `bson:"warehouseId"`
	StartDate          time.Time             `bson:"startDate"`
	EndDate            time.Time             `bson:"endDate"`
	PalletCount        int                   `bson:"palletCount,omitempty"`
	AreaSqFt           int                   `bson:"areaSqFt,omitempty"`
	PalletDetails      *PalletBookingDetails `bson:"palletDetails,omitempty"`
	TotalAmount        float64               `bson:"totalAmount"`
	Proposal           *TimeProposal         `bson:"proposal,omitempty"`
	ConfirmedSlot      *ConfirmedSlot        `bson:"confirmedSlot,omitempty"`
	Metadata           BookingMetadata       `bson:"metadata"`
	PaidAt             *time.Time            `bson:"paidAt,omitempty"`
	CheckedInAt        *time.Time            `bson:"checkedInAt,omitempty"`
	CheckedOutAt       *time.Time            `bson:"checkedOutAt,omitempty"`
	CancellationReason string                `bson:"cancellationReason,omitempty"`
	StatusHistory      []StatusChange        `bson:"statusHistory"`
	Version            int                   `bson:"version"`
	CreatedAt          time.Time             `bson:"createdAt"`
	UpdatedAt          time.Time             `bson:"updatedAt"`

	domainEvents []DomainEvent
}

// NewBookingParams is the validated input of NewBooking
type NewBookingParams struct {
	Flow          BookingFlow
	Type          BookingType
	CustomerID    string
	CustomerName  string
	CustomerEmail string
	CompanyID     string
	WarehouseID   string
	StartDate     time.Time
	EndDate       time.Time
	PalletCount   int
	AreaSqFt      int
	PalletDetails *PalletBookingDetails
	TotalAmount   float64
	Metadata      BookingMetadata
}

// NewBooking creates a booking in the initial status of its flow
func NewBooking(params NewBookingParams, now time.Time) (*Booking, error) {
	verr := NewValidationError()
	if params.Flow != FlowMarketplace && params.Flow != FlowLegacy {
		verr.Add("flow", "must be marketplace or legacy")
	}
	if !params.Type.IsValid() {
		verr.Add("type", "must be pallet or area_rental")
	}
	if strings.TrimSpace(params.CustomerID) == "" {
		verr.Add("customerId", "is required")
	}
	if strings.TrimSpace(params.WarehouseID) == "" {
		verr.Add("warehouseId", "is required")
	}
	if params.StartDate.IsZero() {
		verr.Add("startDate", "is required")
	}
	if params.EndDate.IsZero() {
		verr.Add("endDate", "is required")
	} else if params.EndDate.Before(params.StartDate) {
		verr.Add("endDate", "must not be before startDate")
	}
	switch params.Type {
	case BookingTypePallet:
		if params.PalletCount <= 0 {
			verr.Add("palletCount", "must be positive")
		}
	case BookingTypeAreaRental:
		if params.AreaSqFt <= 0 {
			verr.Add("areaSqFt", "must be positive")
		}
	}
	if params.TotalAmount < 0 {
		verr.Add("totalAmount", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now = now.UTC()
	status := params.Flow.InitialStatus()
	b := &Booking{
		ID:            uuid.New().String(),
		Type:          params.Type,
		Flow:          params.Flow,
		Status:        status,
		CustomerID:    params.CustomerID,
		CustomerName:  params.CustomerName,
		CustomerEmail: params.CustomerEmail,
		CompanyID:     params.CompanyID,
		WarehouseID:   params.WarehouseID,
		StartDate:     params.StartDate.UTC(),
		EndDate:       params.EndDate.UTC(),
		PalletCount:   params.PalletCount,
		AreaSqFt:      params.AreaSqFt,
		PalletDetails: params.PalletDetails,
		TotalAmount:   params.TotalAmount,
		Metadata:      params.Metadata,
		StatusHistory: []StatusChange{{
			To:    status,
			Actor: Actor{ID: params.CustomerID, Role: ActorCustomer},
			At:    now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	b.addDomainEvent(&BookingCreatedEvent{
		BookingID:   b.ID,
		CustomerID:  b.CustomerID,
		CompanyID:   b.CompanyID,
		WarehouseID: b.WarehouseID,
		Type:        b.Type,
		Flow:        b.Flow,
		Status:      b.Status,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		TotalAmount: b.TotalAmount,
		CreatedAt:   now,
	})

	return b, nil
}

// DropInDate is the date the customer asked to drop goods in
func (b *Booking) DropInDate() time.Time {
	if b.Metadata.RequestedDropInTime != nil {
		return DateOnly(*b.Metadata.RequestedDropInTime)
	}
	return DateOnly(b.StartDate)
}

// LegacyStatus is the status as legacy consumers see it
func (b *Booking) LegacyStatus() BookingStatus {
	return b.Status.LegacyStatus()
}

// AvailableActions lists what can be done with the booking now
func (b *Booking) AvailableActions() []Action {
	return b.Status.AvailableActions()
}

// SetAwaitingTimeSlot moves a pre-order to slot selection. day is the
// availability of the requested drop-in date; without an open slot the
// booking stays in pre_order.
func (b *Booking) SetAwaitingTimeSlot(day *DayAvailability, actor Actor, now time.Time) error {
	if !b.Status.CanPerform(ActionSetAwaitingTimeSlot) {
		return &TransitionError{From: b.Status, Action: string(ActionSetAwaitingTimeSlot)}
	}
	if day == nil || !day.HasOpenSlot() {
		return fmt.Errorf("%w: no open drop-in slot on %s", ErrSlotUnavailable, b.DropInDate().Format(DateLayout))
	}
	return b.transition(ActionSetAwaitingTimeSlot, StatusAwaitingTimeSlot, actor, "", now, EventBookingAwaitingTimeSlot)
}

// ProposeTime records a staff counter-proposal, replacing any earlier one
func (b *Booking) ProposeTime(date time.Time, slotTime string, actor Actor, now time.Time) error {
	if !b.Status.CanPerform(ActionProposeTime) {
		return &TransitionError{From: b.Status, Action: string(ActionProposeTime)}
	}
	normalized, err := ParseSlotTime(slotTime)
	if err != nil {
		return err
	}

	now = now.UTC()
	b.Proposal = &TimeProposal{
		StartDate:  DateOnly(date),
		StartTime:  normalized,
		ProposedBy: actor.ID,
		ProposedAt: now,
	}
	b.record(b.Status, ActionProposeTime, actor, "", now)
	b.addDomainEvent(&TimeProposedEvent{
		BookingID:         b.ID,
		WarehouseID:       b.WarehouseID,
		ProposedStartDate: b.Proposal.StartDate.Format(DateLayout),
		ProposedStartTime: normalized,
		ProposedBy:        actor.ID,
		ProposedAt:        now,
	})
	return nil
}

// Approve confirms a legacy booking. It becomes active straight away when
// the storage period has already started.
func (b *Booking) Approve(actor Actor, now time.Time) error {
	to := StatusConfirmed
	if !b.StartDate.After(now) {
		to = StatusActive
	}
	return b.transition(ActionApprove, to, actor, "", now, EventBookingConfirmed)
}

// ConfirmTimeSlot records the customer's slot. Warehouses that require
// prepayment park the booking in payment_pending.
func (b *Booking) ConfirmTimeSlot(date time.Time, slotTime string, requiresPrepayment bool, actor Actor, now time.Time) error {
	if !b.Status.CanPerform(ActionConfirmTimeSlot) {
		return &TransitionError{From: b.Status, Action: string(ActionConfirmTimeSlot)}
	}
	normalized, err := ParseSlotTime(slotTime)
	if err != nil {
		return err
	}

	to, eventType := StatusConfirmed, EventBookingConfirmed
	if requiresPrepayment {
		to, eventType = StatusPaymentPending, EventBookingPaymentPending
	}

	now = now.UTC()
	b.ConfirmedSlot = &ConfirmedSlot{Date: DateOnly(date), Time: normalized, ConfirmedAt: now}
	b.addDomainEvent(&TimeSlotConfirmedEvent{
		BookingID:   b.ID,
		WarehouseID: b.WarehouseID,
		Date:        b.ConfirmedSlot.Date.Format(DateLayout),
		Time:        normalized,
		Status:      to,
		ConfirmedAt: now,
	})
	return b.transition(ActionConfirmTimeSlot, to, actor, "", now, eventType)
}

// MarkPaid confirms a prepaid booking
func (b *Booking) MarkPaid(actor Actor, now time.Time) error {
	if err := b.transition(ActionMarkPaid, StatusConfirmed, actor, "", now, EventBookingConfirmed); err != nil {
		return err
	}
	paidAt := now.UTC()
	b.PaidAt = &paidAt
	return nil
}

// CheckIn marks the goods as received
func (b *Booking) CheckIn(actor Actor, now time.Time) error {
	if err := b.transition(ActionCheckIn, StatusActive, actor, "", now, EventBookingCheckedIn); err != nil {
		return err
	}
	at := now.UTC()
	b.CheckedInAt = &at
	return nil
}

// CheckOut marks the goods as collected
func (b *Booking) CheckOut(actor Actor, now time.Time) error {
	if err := b.transition(ActionCheckOut, StatusCompleted, actor, "", now, EventBookingCompleted); err != nil {
		return err
	}
	at := now.UTC()
	b.CheckedOutAt = &at
	return nil
}

// RequestCancellation parks the booking until staff decide. The current
// status is kept so a rejection can restore it.
func (b *Booking) RequestCancellation(reason string, actor Actor, now time.Time) error {
	from := b.Status
	if err := b.transition(ActionRequestCancellation, StatusCancelRequest, actor, reason, now, EventBookingCancellationRequested); err != nil {
		return err
	}
	b.PreviousStatus = from
	b.CancellationReason = reason
	return nil
}

// ApproveCancellation cancels the booking
func (b *Booking) ApproveCancellation(actor Actor, now time.Time) error {
	if err := b.transition(ActionApproveCancellation, StatusCancelled, actor, b.CancellationReason, now, EventBookingCancelled); err != nil {
		return err
	}
	b.PreviousStatus = ""
	return nil
}

// RejectCancellation restores the status held before the request
func (b *Booking) RejectCancellation(reason string, actor Actor, now time.Time) error {
	if !b.Status.CanPerform(ActionRejectCancellation) {
		return &TransitionError{From: b.Status, Action: string(ActionRejectCancellation)}
	}
	restore := b.PreviousStatus
	if restore == "" {
		restore = b.Flow.InitialStatus()
	}
	if err := b.transition(ActionRejectCancellation, restore, actor, reason, now, EventBookingCancellationRejected); err != nil {
		return err
	}
	b.PreviousStatus = ""
	b.CancellationReason = ""
	return nil
}

// transition applies a legal status change, records it and emits eventType
func (b *Booking) transition(action Action, to BookingStatus, actor Actor, reason string, now time.Time, eventType string) error {
	if !b.Status.CanPerform(action) {
		return &TransitionError{From: b.Status, Action: string(action)}
	}

	now = now.UTC()
	from := b.Status
	b.Status = to
	b.record(from, action, actor, reason, now)
	b.addDomainEvent(&BookingStatusChangedEvent{
		Type:        eventType,
		BookingID:   b.ID,
		WarehouseID: b.WarehouseID,
		From:        from,
		To:          to,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		Reason:      reason,
		ChangedAt:   now,
	})
	return nil
}

func (b *Booking) record(from BookingStatus, action Action, actor Actor, reason string, now time.Time) {
	b.StatusHistory = append(b.StatusHistory, StatusChange{
		From:   from,
		To:     b.Status,
		Action: action,
		Actor:  actor,
		Reason: reason,
		At:     now,
	})
	b.UpdatedAt = now
}

func (b *Booking) addDomainEvent(event DomainEvent) {
	b.domainEvents = append(b.domainEvents, event)
}

// DomainEvents returns the events raised since the last save
func (b *Booking) DomainEvents() []DomainEvent {
	return b.domainEvents
}

// ClearDomainEvents drops raised events once they are stored
func (b *Booking) ClearDomainEvents() {
	b.domainEvents = nil
}
