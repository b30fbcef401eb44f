package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errors for the booking domain
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrPricingUnavailable = errors.New("pricing unavailable")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrSlotUnavailable    = errors.New("requested slot is not available")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrWarehouseNotFound  = errors.New("warehouse not found")
	ErrCapacityUnknown    = errors.New("capacity unknown")
	ErrVersionConflict    = errors.New("booking was modified concurrently")
)

// Pricing-unavailable reasons
const (
	ReasonNoPricingEntry       = "no_pricing_entry"
	ReasonNoMatchingCustomSize = "no_matching_custom_size"
	ReasonUnknownHeightRange   = "unknown_height_range"
	ReasonUnknownWeightRange   = "unknown_weight_range"
	ReasonNoDailyRate          = "no_daily_rate"
	ReasonNoMonthlyRate        = "no_monthly_rate"
)

// PricingUnavailableError reports why no rate applies. It is never a zero price.
type PricingUnavailableError struct {
	Reason string
	Detail string
}

func (e *PricingUnavailableError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("pricing unavailable: %s", e.Reason)
	}
	return fmt.Sprintf("pricing unavailable: %s: %s", e.Reason, e.Detail)
}

func (e *PricingUnavailableError) Unwrap() error { return ErrPricingUnavailable }

func pricingUnavailable(reason, format string, args ...any) error {
	return &PricingUnavailableError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// InputError is an invalid-input error carrying the offending field
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalidInput(field, format string, args ...any) error {
	return &InputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidationError collects field problems found in one pass
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates an empty collector
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records the first problem seen for field
func (e *ValidationError) Add(field, format string, args ...any) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = fmt.Sprintf(format, args...)
	}
}

// OrNil returns nil when nothing was recorded
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// TransitionError describes a rejected status change
type TransitionError struct {
	From   BookingStatus
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: cannot %s a booking in status %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
