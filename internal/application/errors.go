package application

import (
	stderrors "errors"
	"fmt"

	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/errors"
)

// ErrAccessDenied is returned when the caller may not act on a resource
var ErrAccessDenied = stderrors.New("access denied")

// toAppError translates domain errors into API errors. Unknown errors are
// returned unchanged so callers keep their wrapping.
func toAppError(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}

	var (
		verr        *domain.ValidationError
		inputErr    *domain.InputError
		unavailable *domain.PricingUnavailableError
		transition  *domain.TransitionError
	)

	switch {
	case stderrors.As(err, &verr):
		return errors.ErrValidationWithFields("validation failed", verr.Fields).Wrap(err)
	case stderrors.As(err, &inputErr):
		return errors.ErrValidationWithFields(inputErr.Error(), map[string]string{inputErr.Field: inputErr.Message}).Wrap(err)
	case stderrors.Is(err, domain.ErrInvalidInput):
		return errors.ErrValidation(err.Error()).Wrap(err)
	case stderrors.As(err, &unavailable):
		return errors.ErrPricingUnavailable(unavailable.Error()).WithDetail("reason", unavailable.Reason).Wrap(err)
	case stderrors.As(err, &transition):
		return errors.ErrInvalidTransition(transition.Error()).
			WithDetail("status", string(transition.From)).
			WithDetail("action", transition.Action).
			Wrap(err)
	case stderrors.Is(err, domain.ErrSlotUnavailable):
		return errors.ErrSlotUnavailable(err.Error()).Wrap(err)
	case stderrors.Is(err, domain.ErrBookingNotFound):
		return errors.ErrNotFound("booking").Wrap(err)
	case stderrors.Is(err, domain.ErrWarehouseNotFound):
		return errors.ErrNotFound("warehouse").Wrap(err)
	case stderrors.Is(err, domain.ErrVersionConflict):
		return errors.ErrConflict("the booking was changed by someone else, reload and retry").Wrap(err)
	case stderrors.Is(err, ErrAccessDenied):
		return errors.ErrForbidden(err.Error()).Wrap(err)
	}
	return err
}

func denied(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAccessDenied, fmt.Sprintf(format, args...))
}
