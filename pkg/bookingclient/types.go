package bookingclient

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteRequest asks for a price without creating a booking
type QuoteRequest struct {
	WarehouseID   string              `json:"warehouse_id"`
	Type          string              `json:"type"`
	Quantity      int                 `json:"quantity"`
	StartDate     string              `json:"start_date"`
	EndDate       string              `json:"end_date"`
	PalletDetails *QuotePalletDetails `json:"pallet_details,omitempty"`
}

// QuotePalletDetails prices individual pallet lines
type QuotePalletDetails struct {
	GoodsType string            `json:"goods_type,omitempty"`
	Items     []QuotePalletItem `json:"items"`
}

// QuotePalletItem is one priced pallet line
type QuotePalletItem struct {
	PalletType    string  `json:"pallet_type"`
	GoodsType     string  `json:"goods_type,omitempty"`
	Quantity      int     `json:"quantity"`
	HeightRangeID string  `json:"height_range_id"`
	WeightRangeID string  `json:"weight_range_id"`
	LengthCm      float64 `json:"length_cm,omitempty"`
	WidthCm       float64 `json:"width_cm,omitempty"`
}

// PriceBreakdown is the quoted price
type PriceBreakdown struct {
	BasePrice       decimal.Decimal `json:"base_price"`
	Days            int             `json:"days"`
	FreeDays        int             `json:"free_days"`
	BillableDays    int             `json:"billable_days"`
	PricingPeriod   string          `json:"pricing_period"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	VolumeDiscount  decimal.Decimal `json:"volume_discount"`
	Total           decimal.Decimal `json:"total"`
	Lines           []PriceLine     `json:"lines"`
}

// PriceLine is the price of one pallet line
type PriceLine struct {
	PalletType    string          `json:"pallet_type"`
	GoodsType     string          `json:"goods_type,omitempty"`
	Quantity      int             `json:"quantity"`
	HeightRangeID string          `json:"height_range_id,omitempty"`
	WeightRangeID string          `json:"weight_range_id,omitempty"`
	UnitRate      decimal.Decimal `json:"unit_rate"`
	Amount        decimal.Decimal `json:"amount"`
}

// TimeSlot is one drop-in slot of a day
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// DayAvailability lists the drop-in slots of one date
type DayAvailability struct {
	Date      string     `json:"date"`
	TimeSlots []TimeSlot `json:"timeSlots"`
}

// OpenSlots returns the times that can still be booked
func (d *DayAvailability) OpenSlots() []string {
	var open []string
	for _, s := range d.TimeSlots {
		if s.Available {
			open = append(open, s.Time)
		}
	}
	return open
}

// CalendarDay classifies one date of the availability calendar
type CalendarDay struct {
	Date                 string `json:"date"`
	Status               string `json:"status"`
	WorkingDay           bool   `json:"workingDay"`
	PalletSlotsRemaining *int   `json:"palletSlotsRemaining,omitempty"`
	SqFtRemaining        *int   `json:"sqFtRemaining,omitempty"`
}

// Booking is the booking view returned by the service
type Booking struct {
	ID                 string     `json:"id"`
	Type               string     `json:"type"`
	Flow               string     `json:"flow"`
	Status             string     `json:"status"`
	LegacyStatus       string     `json:"legacyStatus"`
	PreviousStatus     string     `json:"previousStatus,omitempty"`
	CustomerID         string     `json:"customerId"`
	CustomerName       string     `json:"customerName,omitempty"`
	CustomerEmail      string     `json:"customerEmail,omitempty"`
	CompanyID          string     `json:"companyId"`
	WarehouseID        string     `json:"warehouseId"`
	StartDate          time.Time  `json:"startDate"`
	EndDate            time.Time  `json:"endDate"`
	PalletCount        int        `json:"palletCount,omitempty"`
	AreaSqFt           int        `json:"areaSqFt,omitempty"`
	TotalAmount        float64    `json:"totalAmount"`
	PaidAt             *time.Time `json:"paidAt,omitempty"`
	CheckedInAt        *time.Time `json:"checkedInAt,omitempty"`
	CheckedOutAt       *time.Time `json:"checkedOutAt,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
	AvailableActions   []string   `json:"availableActions"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// BookingPage is one page of the staff booking list
type BookingPage struct {
	Items      []Booking `json:"items"`
	Page       int64     `json:"page"`
	PageSize   int64     `json:"pageSize"`
	TotalItems int64     `json:"totalItems"`
	TotalPages int64     `json:"totalPages"`
	HasNext    bool      `json:"hasNext"`
	HasPrev    bool      `json:"hasPrev"`
}

// ListOptions filters and pages the staff booking list. Zero values are omitted.
type ListOptions struct {
	Statuses       []string
	WarehouseID    string
	StartDate      string
	EndDate        string
	CustomerSearch string
	SortBy         string
	SortOrder      string
	Page           int64
	PageSize       int64
}

// APIError is a non-2xx answer from the service
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("booking-service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("booking-service %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// envelope is the response wrapper of every endpoint except the quote
type envelope[T any] struct {
	Success   bool              `json:"success"`
	Data      T                 `json:"data"`
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Details   map[string]string `json:"details"`
	RequestID string            `json:"requestId"`
}
