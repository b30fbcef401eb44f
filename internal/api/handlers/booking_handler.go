package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/palletspace/booking-service/internal/application"
	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/api"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/middleware"
	"github.com/palletspace/booking-service/pkg/tenant"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BookingHandler handles HTTP requests for bookings
type BookingHandler struct {
	service *application.BookingService
	logger  *logging.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(service *application.BookingService, logger *logging.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		logger:  logger,
	}
}

// Draft handles POST /api/v1/bookings/draft
func (h *BookingHandler) Draft(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var cmd application.DraftCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	details, err := h.service.Draft(c.Request.Context(), cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	api.OK(c, http.StatusOK, details)
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var cmd application.CreateBookingCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"warehouse.id": cmd.WarehouseID,
		"booking.type": cmd.Type,
		"booking.flow": cmd.Flow,
	})

	principal, _ := middleware.GetPrincipal(c)
	booking, err := h.service.CreateBooking(c.Request.Context(), principal, cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	api.Created(c, application.ToBookingDTO(booking))
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	principal, _ := middleware.GetPrincipal(c)
	booking, err := h.service.GetBooking(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	api.OK(c, http.StatusOK, application.ToBookingDTO(booking))
}

type transitionFunc func(ctx context.Context, principal *tenant.Context, bookingID string) (*domain.Booking, error)

// transition adapts a body-less lifecycle call to a handler
func (h *BookingHandler) transition(action domain.Action, fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, h.logger)
		bookingID := c.Param("id")

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"booking.id":     bookingID,
			"booking.action": string(action),
		})

		principal, _ := middleware.GetPrincipal(c)
		booking, err := fn(c.Request.Context(), principal, bookingID)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		api.OK(c, http.StatusOK, application.ToBookingDTO(booking))
	}
}

// Approve handles POST /api/v1/bookings/:id/approve
func (h *BookingHandler) Approve(c *gin.Context) {
	h.transition(domain.ActionApprove, h.service.Approve)(c)
}

// SetAwaitingTimeSlot handles POST /api/v1/bookings/:id/set-awaiting-time-slot
func (h *BookingHandler) SetAwaitingTimeSlot(c *gin.Context) {
	h.transition(domain.ActionSetAwaitingTimeSlot, h.service.SetAwaitingTimeSlot)(c)
}

// MarkPaid handles POST /api/v1/bookings/:id/mark-paid
func (h *BookingHandler) MarkPaid(c *gin.Context) {
	h.transition(domain.ActionMarkPaid, h.service.MarkPaid)(c)
}

// CheckIn handles POST /api/v1/bookings/:id/check-in
func (h *BookingHandler) CheckIn(c *gin.Context) {
	h.transition(domain.ActionCheckIn, h.service.CheckIn)(c)
}

// CheckOut handles POST /api/v1/bookings/:id/check-out
func (h *BookingHandler) CheckOut(c *gin.Context) {
	h.transition(domain.ActionCheckOut, h.service.CheckOut)(c)
}

// ApproveCancellation handles POST /api/v1/bookings/:id/approve-cancellation
func (h *BookingHandler) ApproveCancellation(c *gin.Context) {
	h.transition(domain.ActionApproveCancellation, h.service.ApproveCancellation)(c)
}

// ProposeTime handles POST /api/v1/bookings/:id/propose-time
func (h *BookingHandler) ProposeTime(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var cmd application.ProposeTimeCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	h.transition(domain.ActionProposeTime, func(ctx context.Context, principal *tenant.Context, id string) (*domain.Booking, error) {
		return h.service.ProposeTime(ctx, principal, id, cmd)
	})(c)
}

// ConfirmTimeSlot handles POST /api/v1/bookings/:id/confirm-time-slot
func (h *BookingHandler) ConfirmTimeSlot(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var cmd application.ConfirmTimeSlotCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	h.transition(domain.ActionConfirmTimeSlot, func(ctx context.Context, principal *tenant.Context, id string) (*domain.Booking, error) {
		return h.service.ConfirmTimeSlot(ctx, principal, id, cmd)
	})(c)
}

// RequestCancellation handles POST /api/v1/bookings/:id/request-cancellation
func (h *BookingHandler) RequestCancellation(c *gin.Context) {
	h.cancellation(domain.ActionRequestCancellation, h.service.RequestCancellation)(c)
}

// RejectCancellation handles POST /api/v1/bookings/:id/reject-cancellation
func (h *BookingHandler) RejectCancellation(c *gin.Context) {
	h.cancellation(domain.ActionRejectCancellation, h.service.RejectCancellation)(c)
}

// cancellation binds an optional reason body
func (h *BookingHandler) cancellation(
	action domain.Action,
	fn func(context.Context, *tenant.Context, string, application.CancellationCommand) (*domain.Booking, error),
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd application.CancellationCommand
		if c.Request.ContentLength > 0 {
			if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
				middleware.NewErrorResponder(c, h.logger).RespondWithAppError(appErr)
				return
			}
		}

		h.transition(action, func(ctx context.Context, principal *tenant.Context, id string) (*domain.Booking, error) {
			return fn(ctx, principal, id, cmd)
		})(c)
	}
}

// ListBookings handles GET /api/v1/warehouse-staff/bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var query application.ListBookingsQuery
	if appErr := middleware.BindQueryAndValidate(c, &query); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	principal, _ := middleware.GetPrincipal(c)
	page, err := h.service.ListBookings(c.Request.Context(), principal, query)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	items := make([]*application.BookingDTO, len(page.Bookings))
	for i, b := range page.Bookings {
		items[i] = application.ToBookingDTO(b)
	}

	api.OK(c, http.StatusOK, api.NewPageResponse(items, page.Page, page.PageSize, page.Total))
}

// ExportBookings handles GET /api/v1/warehouse-staff/bookings/export
func (h *BookingHandler) ExportBookings(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var query application.ListBookingsQuery
	if appErr := middleware.BindQueryAndValidate(c, &query); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	principal, _ := middleware.GetPrincipal(c)
	var buf bytes.Buffer
	if err := h.service.ExportBookings(c.Request.Context(), principal, query, &buf); err != nil {
		responder.RespondWithError(err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="bookings-%s.xlsx"`, principal.CompanyID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
