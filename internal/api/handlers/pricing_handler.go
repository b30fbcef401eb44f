package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/palletspace/booking-service/internal/application"
	"github.com/palletspace/booking-service/internal/domain"
	"github.com/palletspace/booking-service/pkg/api"
	"github.com/palletspace/booking-service/pkg/errors"
	"github.com/palletspace/booking-service/pkg/logging"
	"github.com/palletspace/booking-service/pkg/middleware"
)

// maxImportSize bounds pricing workbook uploads
const maxImportSize = 5 << 20

// PricingHandler handles HTTP requests for prices and pricing configuration
type PricingHandler struct {
	service *application.PricingService
	logger  *logging.Logger
}

// NewPricingHandler creates a new PricingHandler
func NewPricingHandler(service *application.PricingService, logger *logging.Logger) *PricingHandler {
	return &PricingHandler{
		service: service,
		logger:  logger,
	}
}

// Calculate handles POST /api/v1/pricing/calculate
func (h *PricingHandler) Calculate(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var cmd application.PriceCalculationCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"warehouse.id": cmd.WarehouseID,
		"booking.type": cmd.Type,
		"quantity":     cmd.Quantity,
	})

	breakdown, err := h.service.Quote(c.Request.Context(), cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "breakdown": breakdown})
}

// GetPricing handles GET /api/v1/warehouses/:id/pricing
func (h *PricingHandler) GetPricing(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	pricing, err := h.service.GetPricing(c.Request.Context(), c.Param("id"))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	api.OK(c, http.StatusOK, pricing)
}

// UpdatePricing handles PUT /api/v1/warehouses/:id/pricing
func (h *PricingHandler) UpdatePricing(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var pricing domain.WarehousePricing
	if appErr := middleware.BindAndValidate(c, &pricing); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	pricing.WarehouseID = c.Param("id")

	principal, _ := middleware.GetPrincipal(c)
	saved, err := h.service.UpdatePricing(c.Request.Context(), principal, &pricing)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	api.OK(c, http.StatusOK, saved)
}

// ImportPricing handles POST /api/v1/warehouses/:id/pricing/import
func (h *PricingHandler) ImportPricing(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)
	header, err := c.FormFile("file")
	if err != nil {
		responder.RespondWithAppError(errors.ErrValidationWithFields("validation failed", map[string]string{
			"file": "an .xlsx workbook is required",
		}))
		return
	}
	file, err := header.Open()
	if err != nil {
		responder.RespondBadRequest("the uploaded workbook could not be read")
		return
	}
	defer file.Close()

	principal, _ := middleware.GetPrincipal(c)
	saved, err := h.service.ImportPalletEntries(c.Request.Context(), principal, c.Param("id"), file)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	api.OK(c, http.StatusOK, saved)
}
