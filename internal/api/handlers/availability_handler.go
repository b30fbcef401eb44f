package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/palletspace/booking-service/internal/application"
	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/api"
	"github.com/palletspace/booking-service/pkg/errors"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/middleware"
)

// AvailabilityHandler serves drop-in availability
type AvailabilityHandler struct {
	service *application.AvailabilityService
	logger  *logging.Logger
}

// NewAvailabilityHandler creates a new AvailabilityHandler
func NewAvailabilityHandler(service *application.AvailabilityService, logger *logging.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		logger:  logger,
	}
}

// Availability handles GET /api/v1/warehouses/:id/availability?date=
func (h *AvailabilityHandler) Availability(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	date, appErr := queryDate(c, "date")
	if appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	bookingType := domain.BookingType(c.Query("type"))
	if bookingType != "" && !bookingType.IsValid() {
		responder.RespondWithAppError(errors.ErrValidationWithFields("validation failed", map[string]string{
			"type": "must be one of: pallet, area_rental",
		}))
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"warehouse.id": c.Param("id"),
		"date":         date.Format(domain.DateLayout),
	})

	day, err := h.service.IsAvailable(c.Request.Context(), c.Param("id"), date, bookingType)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	api.OK(c, http.StatusOK, day)
}

// Calendar handles GET /api/v1/warehouses/:id/availability/calendar?from=&to=
func (h *AvailabilityHandler) Calendar(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	from, appErr := queryDate(c, "from")
	if appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	to, appErr := queryDate(c, "to")
	if appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	days, err := h.service.Calendar(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	api.OK(c, http.StatusOK, days)
}

func queryDate(c *gin.Context, name string) (time.Time, *errors.AppError) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, errors.ErrValidationWithFields("validation failed", map[string]string{name: "is required"})
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, errors.ErrValidationWithFields("validation failed", map[string]string{name: "must be a date in YYYY-MM-DD format"})
	}
	return date, nil
}
