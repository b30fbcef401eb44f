package domain

import "fmt"

// BookingStatus is a state of the booking lifecycle
type BookingStatus string

const (
	StatusPreOrder         BookingStatus = "pre_order"
	StatusAwaitingTimeSlot BookingStatus = "awaiting_time_slot"
	StatusPaymentPending   BookingStatus = "payment_pending"
	StatusConfirmed        BookingStatus = "confirmed"
	StatusActive           BookingStatus = "active"
	StatusCompleted        BookingStatus = "completed"
	StatusCancelled        BookingStatus = "cancelled"
	StatusCancelRequest    BookingStatus = "cancel_request"
	StatusPending          BookingStatus = "pending"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []BookingStatus{
	StatusPending, StatusPreOrder, StatusAwaitingTimeSlot, StatusPaymentPending,
	StatusConfirmed, StatusActive, StatusCompleted, StatusCancelRequest, StatusCancelled,
}

// IsValid checks if the status is known
func (s BookingStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseBookingStatus validates a status string
func ParseBookingStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: unknown booking status %q", ErrInvalidInput, raw)
	}
	return s, nil
}

// BookingFlow records which vocabulary a booking started in
type BookingFlow string

const (
	FlowMarketplace BookingFlow = "marketplace"
	FlowLegacy      BookingFlow = "legacy"
)

// InitialStatus is the status a new booking of this flow starts in
func (f BookingFlow) InitialStatus() BookingStatus {
	if f == FlowLegacy {
		return StatusPending
	}
	return StatusPreOrder
}

// LegacyStatus translates a status for consumers that only know the
// pending/confirmed vocabulary. Scheduling states before confirmation read as pending.
func (s BookingStatus) LegacyStatus() BookingStatus {
	switch s {
	case StatusPreOrder, StatusAwaitingTimeSlot, StatusPaymentPending:
		return StatusPending
	default:
		return s
	}
}

// Action names a lifecycle operation
type Action string

const (
	ActionSetAwaitingTimeSlot Action = "set_awaiting_time_slot"
	ActionProposeTime         Action = "propose_time"
	ActionApprove             Action = "approve"
	ActionConfirmTimeSlot     Action = "confirm_time_slot"
	ActionMarkPaid            Action = "mark_paid"
	ActionCheckIn             Action = "check_in"
	ActionCheckOut            Action = "check_out"
	ActionRequestCancellation Action = "request_cancellation"
	ActionApproveCancellation Action = "approve_cancellation"
	ActionRejectCancellation  Action = "reject_cancellation"
)

// allowedFrom lists the source states of each action. Cancellation requests
// are handled separately because they apply to every non-terminal state.
var allowedFrom = map[Action][]BookingStatus{
	ActionSetAwaitingTimeSlot: {StatusPreOrder},
	ActionProposeTime:         {StatusPreOrder},
	ActionApprove:             {StatusPending},
	ActionConfirmTimeSlot:     {StatusAwaitingTimeSlot},
	ActionMarkPaid:            {StatusPaymentPending},
	ActionCheckIn:             {StatusConfirmed},
	ActionCheckOut:            {StatusActive},
	ActionApproveCancellation: {StatusCancelRequest},
	ActionRejectCancellation:  {StatusCancelRequest},
}

// CanPerform reports whether action is legal from status s
func (s BookingStatus) CanPerform(action Action) bool {
	if action == ActionRequestCancellation {
		return !s.IsTerminal() && s != StatusCancelRequest
	}
	for _, from := range allowedFrom[action] {
		if s == from {
			return true
		}
	}
	return false
}

// AvailableActions lists the actions legal from s
func (s BookingStatus) AvailableActions() []Action {
	ordered := []Action{
		ActionApprove, ActionSetAwaitingTimeSlot, ActionProposeTime, ActionConfirmTimeSlot,
		ActionMarkPaid, ActionCheckIn, ActionCheckOut, ActionRequestCancellation,
		ActionApproveCancellation, ActionRejectCancellation,
	}
	var actions []Action
	for _, a := range ordered {
		if s.CanPerform(a) {
			actions = append(actions, a)
		}
	}
	return actions
}
