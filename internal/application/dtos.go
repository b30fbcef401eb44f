package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/palletspace/booking-service/internal/domain"
)

// PriceBreakdownDTO is the wire form of a price breakdown
type PriceBreakdownDTO struct {
	BasePrice       decimal.Decimal `json:"base_price"`
	Days            int             `json:"days"`
	FreeDays        int             `json:"free_days"`
	BillableDays    int             `json:"billable_days"`
	PricingPeriod   string          `json:"pricing_period"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	VolumeDiscount  decimal.Decimal `json:"volume_discount"`
	Total           decimal.Decimal `json:"total"`
	Lines           []PriceLineDTO  `json:"lines"`
}

// PriceLineDTO is one priced pallet line
type PriceLineDTO struct {
	PalletType    string          `json:"pallet_type"`
	GoodsType     string          `json:"goods_type,omitempty"`
	Quantity      int             `json:"quantity"`
	HeightRangeID string          `json:"height_range_id,omitempty"`
	WeightRangeID string          `json:"weight_range_id,omitempty"`
	UnitRate      decimal.Decimal `json:"unit_rate"`
	Amount        decimal.Decimal `json:"amount"`
}

// ToPriceBreakdownDTO converts a breakdown for the API
func ToPriceBreakdownDTO(bd *domain.PriceBreakdown) *PriceBreakdownDTO {
	lines := make([]PriceLineDTO, len(bd.Lines))
	for i, l := range bd.Lines {
		lines[i] = PriceLineDTO{
			PalletType:    l.PalletType,
			GoodsType:     string(l.GoodsType),
			Quantity:      l.Quantity,
			HeightRangeID: l.HeightRangeID,
			WeightRangeID: l.WeightRangeID,
			UnitRate:      l.UnitRate,
			Amount:        l.Amount,
		}
	}
	return &PriceBreakdownDTO{
		BasePrice:       bd.BasePrice,
		Days:            bd.Days,
		FreeDays:        bd.FreeDays,
		BillableDays:    bd.BillableDays,
		PricingPeriod:   string(bd.Period),
		Subtotal:        bd.Subtotal,
		DiscountPercent: bd.DiscountPercent,
		VolumeDiscount:  bd.VolumeDiscount,
		Total:           bd.Total,
		Lines:           lines,
	}
}

// BookingDTO is the wire form of a booking
type BookingDTO struct {
	ID                 string                       `json:"id"`
	Type               string                       `json:"type"`
	Flow               string                       `json:"flow"`
	Status             string                       `json:"status"`
	LegacyStatus       string                       `json:"legacyStatus"`
	PreviousStatus     string                       `json:"previousStatus,omitempty"`
	CustomerID         string                       `json:"customerId"`
	CustomerName       string                       `json:"customerName,omitempty"`
	CustomerEmail      string                       `json:"customerEmail,omitempty"`
	CompanyID          string                       `json:"companyId"`
	WarehouseID        string                       `json:"warehouseId"`
	StartDate          time.Time                    `json:"startDate"`
	EndDate            time.Time                    `json:"endDate"`
	PalletCount        int                          `json:"palletCount,omitempty"`
	AreaSqFt           int                          `json:"areaSqFt,omitempty"`
	PalletDetails      *domain.PalletBookingDetails `json:"palletDetails,omitempty"`
	TotalAmount        float64                      `json:"totalAmount"`
	Proposal           *domain.TimeProposal         `json:"proposal,omitempty"`
	ConfirmedSlot      *domain.ConfirmedSlot        `json:"confirmedSlot,omitempty"`
	Metadata           domain.BookingMetadata       `json:"metadata"`
	PaidAt             *time.Time                   `json:"paidAt,omitempty"`
	CheckedInAt        *time.Time                   `json:"checkedInAt,omitempty"`
	CheckedOutAt       *time.Time                   `json:"checkedOutAt,omitempty"`
	CancellationReason string                       `json:"cancellationReason,omitempty"`
	StatusHistory      []domain.StatusChange        `json:"statusHistory"`
	AvailableActions   []string                     `json:"availableActions"`
	CreatedAt          time.Time                    `json:"createdAt"`
	UpdatedAt          time.Time                    `json:"updatedAt"`
}

// ToBookingDTO converts a booking for the API
func ToBookingDTO(b *domain.Booking) *BookingDTO {
	actions := b.AvailableActions()
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}

	history := b.StatusHistory
	if history == nil {
		history = []domain.StatusChange{}
	}

	return &BookingDTO{
		ID:                 b.ID,
		Type:               string(b.Type),
		Flow:               string(b.Flow),
		Status:             string(b.Status),
		LegacyStatus:       string(b.LegacyStatus()),
		PreviousStatus:     string(b.PreviousStatus),
		CustomerID:         b.CustomerID,
		CustomerName:       b.CustomerName,
		CustomerEmail:      b.CustomerEmail,
		CompanyID:          b.CompanyID,
		WarehouseID:        b.WarehouseID,
		StartDate:          b.StartDate,
		EndDate:            b.EndDate,
		PalletCount:        b.PalletCount,
		AreaSqFt:           b.AreaSqFt,
		PalletDetails:      b.PalletDetails,
		TotalAmount:        b.TotalAmount,
		Proposal:           b.Proposal,
		ConfirmedSlot:      b.ConfirmedSlot,
		Metadata:           b.Metadata,
		PaidAt:             b.PaidAt,
		CheckedInAt:        b.CheckedInAt,
		CheckedOutAt:       b.CheckedOutAt,
		CancellationReason: b.CancellationReason,
		StatusHistory:      history,
		AvailableActions:   names,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

// CalendarDayDTO is one day of the availability calendar
type CalendarDayDTO struct {
	Date                 string `json:"date"`
	Status               string `json:"status"`
	WorkingDay           bool   `json:"workingDay"`
	PalletSlotsRemaining *int   `json:"palletSlotsRemaining,omitempty"`
	SqFtRemaining        *int   `json:"sqFtRemaining,omitempty"`
}
