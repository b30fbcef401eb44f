package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/palletspace/booking-service/internal/domain"
)

// PriceCalculationCommand is the public pricing request
type PriceCalculationCommand struct {
	WarehouseID   string              `json:"warehouse_id" binding:"required"`
	Type          string              `json:"type" binding:"required,bookingtype"`
	Quantity      int                 `json:"quantity" binding:"required,gt=0"`
	StartDate     string              `json:"start_date" binding:"required,isodate"`
	EndDate       string              `json:"end_date" binding:"required,isodate"`
	PalletDetails *PalletDetailsInput `json:"pallet_details,omitempty"`
}

// PalletDetailsInput describes pallet lines to price
type PalletDetailsInput struct {
	GoodsType string            `json:"goods_type"`
	Items     []PalletItemInput `json:"items" binding:"dive"`
}

// PalletItemInput is one pallet line to price. Custom pallets carry their
// footprint in centimetres.
type PalletItemInput struct {
	PalletType    string  `json:"pallet_type" binding:"required,palletkind"`
	GoodsType     string  `json:"goods_type" binding:"omitempty,goodstype"`
	Quantity      int     `json:"quantity" binding:"required,gt=0"`
	HeightRangeID string  `json:"height_range_id" binding:"required"`
	WeightRangeID string  `json:"weight_range_id" binding:"required"`
	LengthCm      float64 `json:"length_cm" binding:"omitempty,gt=0"`
	WidthCm       float64 `json:"width_cm" binding:"omitempty,gt=0"`
}

// ToPriceRequest converts the command into calculator input
func (c PriceCalculationCommand) ToPriceRequest() (domain.PriceRequest, error) {
	start, err := parseTimestamp("start_date", c.StartDate)
	if err != nil {
		return domain.PriceRequest{}, err
	}
	end, err := parseTimestamp("end_date", c.EndDate)
	if err != nil {
		return domain.PriceRequest{}, err
	}

	req := domain.PriceRequest{
		WarehouseID: c.WarehouseID,
		Type:        domain.BookingType(c.Type),
		Quantity:    c.Quantity,
		StartDate:   start,
		EndDate:     end,
	}

	if c.PalletDetails != nil && len(c.PalletDetails.Items) > 0 {
		details := &domain.PalletDetails{GoodsType: domain.GoodsType(c.PalletDetails.GoodsType)}
		for i, item := range c.PalletDetails.Items {
			palletType, err := domain.NewPalletType(domain.PalletKind(item.PalletType), domain.CustomDimensions{
				LengthCm: item.LengthCm,
				WidthCm:  item.WidthCm,
			})
			if err != nil {
				return domain.PriceRequest{}, fmt.Errorf("pallet_details.items[%d]: %w", i, err)
			}
			details.Items = append(details.Items, domain.PalletItem{
				PalletType:    palletType,
				GoodsType:     domain.GoodsType(item.GoodsType),
				Quantity:      item.Quantity,
				HeightRangeID: item.HeightRangeID,
				WeightRangeID: item.WeightRangeID,
			})
		}
		req.PalletDetails = details
	}

	return req, nil
}

// PalletConfigurationInput is the customer's pallet configuration
type PalletConfigurationInput struct {
	GoodsType    string           `json:"goodsType"`
	TotalPallets int              `json:"totalPallets"`
	Items        []DraftItemInput `json:"items"`
}

// DraftItemInput is one pallet line as typed by the customer
type DraftItemInput struct {
	PalletType    string  `json:"palletType"`
	GoodsType     string  `json:"goodsType"`
	Quantity      int     `json:"quantity"`
	HeightRangeID string  `json:"heightRangeId"`
	WeightRangeID string  `json:"weightRangeId"`
	Stackable     bool    `json:"stackable"`
	Length        float64 `json:"length"`
	Width         float64 `json:"width"`
	Unit          string  `json:"unit"`
}

// ToDraftInput converts the payload into builder input
func (p PalletConfigurationInput) ToDraftInput() domain.DraftInput {
	items := make([]domain.DraftLineItem, len(p.Items))
	for i, item := range p.Items {
		items[i] = domain.DraftLineItem{
			PalletKind:    domain.PalletKind(item.PalletType),
			GoodsType:     domain.GoodsType(item.GoodsType),
			Quantity:      item.Quantity,
			HeightRangeID: item.HeightRangeID,
			WeightRangeID: item.WeightRangeID,
			Stackable:     item.Stackable,
			Length:        item.Length,
			Width:         item.Width,
			Unit:          domain.LengthUnit(item.Unit),
		}
	}
	return domain.DraftInput{
		GoodsType:    domain.GoodsType(p.GoodsType),
		TotalPallets: p.TotalPallets,
		Items:        items,
	}
}

// DraftCommand validates a pallet configuration for a warehouse
type DraftCommand struct {
	WarehouseID string `json:"warehouseId" binding:"required"`
	PalletConfigurationInput
}

// CreateBookingCommand places a booking
type CreateBookingCommand struct {
	Flow                string                    `json:"flow" binding:"omitempty,oneof=marketplace legacy"`
	Type                string                    `json:"type" binding:"required,bookingtype"`
	WarehouseID         string                    `json:"warehouseId" binding:"required"`
	StartDate           string                    `json:"startDate" binding:"required,isodate"`
	EndDate             string                    `json:"endDate" binding:"required,isodate"`
	PalletCount         int                       `json:"palletCount" binding:"omitempty,gt=0"`
	AreaSqFt            int                       `json:"areaSqFt" binding:"omitempty,gt=0"`
	PalletDetails       *PalletConfigurationInput `json:"palletDetails,omitempty"`
	CustomerName        string                    `json:"customerName" binding:"max=200"`
	CustomerEmail       string                    `json:"customerEmail" binding:"omitempty,email"`
	RequestedDropInTime string                    `json:"requestedDropInTime" binding:"omitempty,isodate"`
	Notes               string                    `json:"notes" binding:"max=1000"`
}

// ProposeTimeCommand is a staff counter-proposal
type ProposeTimeCommand struct {
	ProposedStartDate string `json:"proposedStartDate" binding:"required,isodate"`
	ProposedStartTime string `json:"proposedStartTime" binding:"required,slottime"`
}

// ConfirmTimeSlotCommand is the customer's slot pick
type ConfirmTimeSlotCommand struct {
	Date string `json:"date" binding:"required,isodate"`
	Time string `json:"time" binding:"required,slottime"`
}

// CancellationCommand carries the reason for a cancellation decision
type CancellationCommand struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ListBookingsQuery is the staff list query string
type ListBookingsQuery struct {
	Status         string `form:"status"`
	WarehouseID    string `form:"warehouseId"`
	StartDate      string `form:"startDate" binding:"omitempty,isodate"`
	EndDate        string `form:"endDate" binding:"omitempty,isodate"`
	CustomerSearch string `form:"customerSearch" binding:"max=100"`
	SortBy         string `form:"sortBy"`
	SortOrder      string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
	Page           int64  `form:"page" binding:"omitempty,gte=1"`
	PageSize       int64  `form:"pageSize" binding:"omitempty,gte=1,lte=100"`
}

// ToFilter converts the query into a repository filter
func (q ListBookingsQuery) ToFilter() (domain.BookingFilter, error) {
	filter := domain.BookingFilter{
		WarehouseID:    q.WarehouseID,
		CustomerSearch: strings.TrimSpace(q.CustomerSearch),
		SortBy:         q.SortBy,
		SortDesc:       q.SortOrder != "asc",
		Page:           q.Page,
		PageSize:       q.PageSize,
	}

	if q.Status != "" {
		for _, raw := range strings.Split(q.Status, ",") {
			status, err := domain.ParseBookingStatus(strings.TrimSpace(raw))
			if err != nil {
				return domain.BookingFilter{}, err
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if q.StartDate != "" {
		start, err := domain.ParseDate(q.StartDate)
		if err != nil {
			return domain.BookingFilter{}, err
		}
		filter.StartDate = &start
	}
	if q.EndDate != "" {
		end, err := domain.ParseDate(q.EndDate)
		if err != nil {
			return domain.BookingFilter{}, err
		}
		filter.EndDate = &end
	}
	if err := filter.Normalize(); err != nil {
		return domain.BookingFilter{}, err
	}
	return filter, nil
}

// parseTimestamp accepts YYYY-MM-DD (midnight UTC) or RFC3339
func parseTimestamp(field, raw string) (time.Time, error) {
	if t, err := time.Parse(domain.DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &domain.InputError{Field: field, Message: fmt.Sprintf("%q is not a date", raw)}
	}
	return t.UTC(), nil
}
