package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// BookingType distinguishes pallet storage from area rental
type BookingType string

const (
	BookingTypePallet     BookingType = "pallet"
	BookingTypeAreaRental BookingType = "area_rental"
)

// IsValid checks if the booking type is known
func (t BookingType) IsValid() bool {
	return t == BookingTypePallet || t == BookingTypeAreaRental
}

// PalletItem is one priced pallet line. An empty GoodsType takes the
// booking level goods type.
type PalletItem struct {
	PalletType    PalletType
	GoodsType     GoodsType
	Quantity      int
	HeightRangeID string
	WeightRangeID string
}

// PalletDetails describes the pallets of a booking. GoodsType is the default
// for lines that do not name their own.
type PalletDetails struct {
	GoodsType GoodsType
	Items     []PalletItem
}

// PriceRequest is the input of a price calculation. Quantity is pallets for
// pallet bookings and square feet for area rental.
type PriceRequest struct {
	WarehouseID   string
	Type          BookingType
	Quantity      int
	StartDate     time.Time
	EndDate       time.Time
	PalletDetails *PalletDetails
}

// PriceLine is the priced result for one pallet line
type PriceLine struct {
	PalletType    string
	GoodsType     GoodsType
	Quantity      int
	HeightRangeID string
	WeightRangeID string
	UnitRate      decimal.Decimal
	Amount        decimal.Decimal
}

// PriceBreakdown is derived on every request and never persisted
type PriceBreakdown struct {
	BasePrice       decimal.Decimal
	Days            int
	FreeDays        int
	BillableDays    int
	Period          PricingPeriod
	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	VolumeDiscount  decimal.Decimal
	Total           decimal.Decimal
	Lines           []PriceLine
}

// DurationDays is ceil((end-start)/24h) with a minimum of one day
func DurationDays(start, end time.Time) int {
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// PriceCalculator computes price breakdowns. It holds no state, so equal
// inputs always give equal outputs.
type PriceCalculator struct{}

// NewPriceCalculator creates a calculator
func NewPriceCalculator() *PriceCalculator {
	return &PriceCalculator{}
}

// Calculate prices a request against a warehouse's configuration. A missing
// rate is ErrPricingUnavailable, never a zero amount.
func (c *PriceCalculator) Calculate(req PriceRequest, pricing *WarehousePricing) (*PriceBreakdown, error) {
	if !req.Type.IsValid() {
		return nil, invalidInput("type", "must be pallet or area_rental")
	}
	if req.Quantity <= 0 {
		return nil, invalidInput("quantity", "must be positive")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, invalidInput("startDate", "start and end dates are required")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, invalidInput("endDate", "must not be before startDate")
	}
	if pricing == nil {
		return nil, pricingUnavailable(ReasonNoPricingEntry, "warehouse %s has no pricing", req.WarehouseID)
	}

	days := DurationDays(req.StartDate, req.EndDate)
	period := PeriodForDays(days)

	if req.Type == BookingTypeAreaRental {
		return c.areaRental(req, pricing, days, period)
	}
	return c.pallets(req, pricing, days, period)
}

func (c *PriceCalculator) areaRental(req PriceRequest, pricing *WarehousePricing, days int, period PricingPeriod) (*PriceBreakdown, error) {
	if pricing.PricePerSqFtPerMonth == nil {
		return nil, pricingUnavailable(ReasonNoMonthlyRate, "warehouse %s has no area rental rate", req.WarehouseID)
	}

	rate := *pricing.PricePerSqFtPerMonth
	months := decimal.NewFromInt(int64((days + 29) / 30))
	sqft := decimal.NewFromInt(int64(req.Quantity))
	subtotal := sqft.Mul(rate).Mul(months).Round(2)

	return &PriceBreakdown{
		BasePrice:       rate.Round(2),
		Days:            days,
		BillableDays:    days,
		Period:          period,
		Subtotal:        subtotal,
		DiscountPercent: decimal.Zero,
		VolumeDiscount:  decimal.Zero,
		Total:           subtotal,
		Lines: []PriceLine{{
			PalletType: "area",
			Quantity:   req.Quantity,
			UnitRate:   rate.Round(2),
			Amount:     subtotal,
		}},
	}, nil
}

func (c *PriceCalculator) pallets(req PriceRequest, pricing *WarehousePricing, days int, period PricingPeriod) (*PriceBreakdown, error) {
	freeDays, _ := FreeDaysFor(pricing.FreeStorageRules, days)
	billable := days - freeDays
	if billable < 0 {
		billable = 0
	}
	billableDec := decimal.NewFromInt(int64(billable))

	var (
		base     = decimal.Zero
		subtotal = decimal.Zero
		lines    []PriceLine
	)

	if req.PalletDetails != nil && len(req.PalletDetails.Items) > 0 {
		sum := 0
		for i, item := range req.PalletDetails.Items {
			if item.Quantity <= 0 {
				return nil, invalidInput("palletDetails.items", "item %d quantity must be positive", i)
			}
			sum += item.Quantity

			goods := req.PalletDetails.goodsFor(item)
			rate, err := c.lineRate(pricing, goods, item, period)
			if err != nil {
				return nil, err
			}

			qty := decimal.NewFromInt(int64(item.Quantity))
			amount := rate.Mul(qty).Mul(billableDec)
			base = base.Add(rate.Mul(qty))
			subtotal = subtotal.Add(amount)
			lines = append(lines, PriceLine{
				PalletType:    item.PalletType.String(),
				GoodsType:     goods,
				Quantity:      item.Quantity,
				HeightRangeID: item.HeightRangeID,
				WeightRangeID: item.WeightRangeID,
				UnitRate:      rate.Round(2),
				Amount:        amount.Round(2),
			})
		}
		if sum != req.Quantity {
			return nil, invalidInput("palletDetails.items", "line quantities sum to %d but quantity is %d", sum, req.Quantity)
		}
	} else {
		if pricing.PricePerPalletPerDay == nil {
			return nil, pricingUnavailable(ReasonNoDailyRate, "warehouse %s has no daily pallet rate", req.WarehouseID)
		}
		rate := *pricing.PricePerPalletPerDay
		qty := decimal.NewFromInt(int64(req.Quantity))
		base = rate.Mul(qty)
		subtotal = base.Mul(billableDec)
		lines = append(lines, PriceLine{
			PalletType: string(PalletKindStandard),
			Quantity:   req.Quantity,
			UnitRate:   rate.Round(2),
			Amount:     subtotal.Round(2),
		})
	}

	percent := decimal.Zero
	if tier, ok := DiscountFor(pricing.VolumeDiscounts, req.Quantity); ok {
		percent = tier.DiscountPercent
	}

	subtotalRounded := subtotal.Round(2)
	discount := subtotal.Mul(percent).Div(hundred).Round(2)

	return &PriceBreakdown{
		BasePrice:       base.Round(2),
		Days:            days,
		FreeDays:        freeDays,
		BillableDays:    billable,
		Period:          period,
		Subtotal:        subtotalRounded,
		DiscountPercent: percent,
		VolumeDiscount:  discount,
		Total:           subtotalRounded.Sub(discount),
		Lines:           lines,
	}, nil
}

func (d *PalletDetails) goodsFor(item PalletItem) GoodsType {
	if item.GoodsType != "" {
		return item.GoodsType.Normalize()
	}
	return d.GoodsType.Normalize()
}

// lineRate is the height range price per unit plus the weight range price per pallet
func (c *PriceCalculator) lineRate(pricing *WarehousePricing, goodsType GoodsType, item PalletItem, period PricingPeriod) (decimal.Decimal, error) {
	resolved, err := ResolveRates(pricing, goodsType, item.PalletType, period)
	if err != nil {
		return decimal.Zero, err
	}
	if !resolved.Found {
		return decimal.Zero, pricingUnavailable(ReasonNoPricingEntry, "no %s rate for %s pallets of %s goods",
			period, item.PalletType.Kind(), goodsType.Normalize())
	}

	height, ok := findHeightRange(resolved.HeightRanges, item.HeightRangeID)
	if !ok {
		return decimal.Zero, pricingUnavailable(ReasonUnknownHeightRange, "height range %q is not configured", item.HeightRangeID)
	}
	weight, ok := findWeightRange(resolved.WeightRanges, item.WeightRangeID)
	if !ok {
		return decimal.Zero, pricingUnavailable(ReasonUnknownWeightRange, "weight range %q is not configured", item.WeightRangeID)
	}

	return height.PricePerUnit.Add(weight.PricePerPallet), nil
}
