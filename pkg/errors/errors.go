// Package errors defines AppError, the error shape every HTTP failure is
// rendered from, and the code catalogue of the booking API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeUnprocessable      = "UNPROCESSABLE_ENTITY"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// Booking specific codes
	CodePricingUnavailable = "PRICING_UNAVAILABLE"
	CodeSlotUnavailable    = "SLOT_UNAVAILABLE"
	CodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
)

// AppError carries the code, message and status a client sees, plus the
// underlying cause for logs.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail sets one detail entry, for example the offending field
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = map[string]string{}
	}
	e.Details[key] = value
	return e
}

// Wrap records the cause without changing what the client sees
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields reports per field problems keyed by JSON name
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	err := ErrValidation(message)
	err.Details = fields
	return err
}

func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

func ErrUnauthorized(message string) *AppError {
	return NewAppError(CodeUnauthorized, orDefault(message, "Unauthorized"), http.StatusUnauthorized)
}

func ErrForbidden(message string) *AppError {
	return NewAppError(CodeForbidden, orDefault(message, "access denied"), http.StatusForbidden)
}

func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, resource+" not found", http.StatusNotFound)
}

func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrUnprocessable is for well formed input the service cannot act on
func ErrUnprocessable(message string) *AppError {
	return NewAppError(CodeUnprocessable, message, http.StatusUnprocessableEntity)
}

// ErrPricingUnavailable means no rate covers the request. A quote never
// falls back to a zero price.
func ErrPricingUnavailable(message string) *AppError {
	return NewAppError(CodePricingUnavailable, message, http.StatusUnprocessableEntity)
}

// ErrSlotUnavailable is a requested date or time the warehouse cannot take
func ErrSlotUnavailable(message string) *AppError {
	return NewAppError(CodeSlotUnavailable, message, http.StatusConflict)
}

// ErrInvalidTransition is an action the booking's current status does not allow
func ErrInvalidTransition(message string) *AppError {
	return NewAppError(CodeInvalidTransition, message, http.StatusConflict)
}

func ErrRateLimitExceeded() *AppError {
	return NewAppError(CodeRateLimitExceeded, "rate limit exceeded", http.StatusTooManyRequests)
}

func ErrInternal(message string) *AppError {
	return NewAppError(CodeInternalError, orDefault(message, "an internal error occurred"), http.StatusInternalServerError)
}

// ErrServiceUnavailable names a feature that is switched off or down
func ErrServiceUnavailable(feature string) *AppError {
	return NewAppError(CodeServiceUnavailable, feature+" is temporarily unavailable", http.StatusServiceUnavailable)
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// messageRules classify errors nobody translated, by what their text says
var messageRules = []struct {
	needles []string
	build   func(err error) *AppError
}{
	{[]string{"not found"}, func(error) *AppError { return ErrNotFound("resource") }},
	{[]string{"already exists"}, func(err error) *AppError { return ErrConflict(err.Error()) }},
	{[]string{"invalid", "required"}, func(err error) *AppError { return ErrValidation(err.Error()) }},
	{[]string{"unauthorized"}, func(err error) *AppError { return ErrUnauthorized(err.Error()) }},
	{[]string{"forbidden", "permission denied"}, func(err error) *AppError { return ErrForbidden(err.Error()) }},
}

// MapDomainError is the last resort of the error responder. Services map
// their own sentinels first, so anything left here is classified by its
// message and defaults to an internal error.
func MapDomainError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		for _, needle := range rule.needles {
			if strings.Contains(msg, needle) {
				return rule.build(err).Wrap(err)
			}
		}
	}
	return ErrInternal("").Wrap(err)
}
