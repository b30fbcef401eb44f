package domain

import (
	"fmt"
	"math"
)

// DraftLineItem is one pallet line as entered by the customer. An empty
// GoodsType takes the booking level goods type.
type DraftLineItem struct {
	PalletKind    PalletKind
	GoodsType     GoodsType
	Quantity      int
	HeightRangeID string
	WeightRangeID string
	Stackable     bool
	Length        float64
	Width         float64
	Unit          LengthUnit
}

// DraftInput is the raw pallet configuration of a booking request
type DraftInput struct {
	GoodsType    GoodsType
	TotalPallets int
	Items        []DraftLineItem
}

// DisplayDimensions keeps what the customer typed
type DisplayDimensions struct {
	Length float64    `json:"length" bson:"length"`
	Width  float64    `json:"width" bson:"width"`
	Unit   LengthUnit `json:"unit" bson:"unit"`
}

// PalletLine is a validated pallet line with dimensions in centimetres
type PalletLine struct {
	PalletKind        PalletKind         `json:"palletType" bson:"palletType"`
	GoodsType         GoodsType          `json:"goodsType,omitempty" bson:"goodsType,omitempty"`
	Quantity          int                `json:"quantity" bson:"quantity"`
	HeightRangeID     string             `json:"heightRangeId" bson:"heightRangeId"`
	WeightRangeID     string             `json:"weightRangeId" bson:"weightRangeId"`
	Stackable         bool               `json:"stackable" bson:"stackable"`
	Dimensions        *CustomDimensions  `json:"dimensions,omitempty" bson:"dimensions,omitempty"`
	DisplayDimensions *DisplayDimensions `json:"displayDimensions,omitempty" bson:"displayDimensions,omitempty"`
}

// PalletType rebuilds the tagged pallet variant for pricing
func (l PalletLine) PalletType() PalletType {
	if l.PalletKind == PalletKindCustom && l.Dimensions != nil {
		return CustomPallet(l.Dimensions.LengthCm, l.Dimensions.WidthCm)
	}
	if l.PalletKind == PalletKindEuro {
		return EuroPallet()
	}
	return StandardPallet()
}

// PalletBookingDetails is a submission-ready pallet configuration
type PalletBookingDetails struct {
	GoodsType    GoodsType    `json:"goodsType" bson:"goodsType"`
	TotalPallets int          `json:"totalPallets" bson:"totalPallets"`
	Items        []PalletLine `json:"items" bson:"items"`
}

// PriceDetails converts the draft into calculator input
func (d *PalletBookingDetails) PriceDetails() *PalletDetails {
	items := make([]PalletItem, len(d.Items))
	for i, line := range d.Items {
		items[i] = PalletItem{
			PalletType:    line.PalletType(),
			GoodsType:     line.GoodsType,
			Quantity:      line.Quantity,
			HeightRangeID: line.HeightRangeID,
			WeightRangeID: line.WeightRangeID,
		}
	}
	return &PalletDetails{GoodsType: d.GoodsType, Items: items}
}

// BuildDraft validates a pallet configuration and normalises custom
// dimensions to centimetres. Every problem is reported in one
// ValidationError. It has no side effects.
func BuildDraft(input DraftInput, goodsTypeOptions []GoodsType) (*PalletBookingDetails, error) {
	verr := NewValidationError()

	goods := input.GoodsType.Normalize()
	if !goodsTypeAllowed(goods, goodsTypeOptions) {
		verr.Add("goodsType", "goods type %q is not offered by this warehouse", goods)
	}

	if input.TotalPallets <= 0 {
		verr.Add("totalPallets", "must be positive")
	}
	if len(input.Items) == 0 {
		verr.Add("items", "at least one pallet line is required")
	}

	lines := make([]PalletLine, 0, len(input.Items))
	sum := 0
	for i, item := range input.Items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		if item.Quantity <= 0 {
			verr.Add(field("quantity"), "must be positive")
		} else {
			sum += item.Quantity
		}
		if item.HeightRangeID == "" {
			verr.Add(field("heightRangeId"), "a height range must be selected")
		}
		if item.WeightRangeID == "" {
			verr.Add(field("weightRangeId"), "a weight range must be selected")
		}

		lineGoods := goods
		if item.GoodsType != "" {
			lineGoods = item.GoodsType.Normalize()
			if !goodsTypeAllowed(lineGoods, goodsTypeOptions) {
				verr.Add(field("goodsType"), "goods type %q is not offered by this warehouse", lineGoods)
			}
		}

		line := PalletLine{
			PalletKind:    item.PalletKind,
			GoodsType:     lineGoods,
			Quantity:      item.Quantity,
			HeightRangeID: item.HeightRangeID,
			WeightRangeID: item.WeightRangeID,
			Stackable:     item.Stackable,
		}

		switch item.PalletKind {
		case PalletKindStandard, PalletKindEuro:
		case PalletKindCustom:
			if item.Length <= 0 {
				verr.Add(field("length"), "custom pallets need a positive length")
			}
			if item.Width <= 0 {
				verr.Add(field("width"), "custom pallets need a positive width")
			}
			lengthCm, lerr := ToCentimetres(item.Length, item.Unit)
			widthCm, werr := ToCentimetres(item.Width, item.Unit)
			if lerr != nil || werr != nil {
				verr.Add(field("unit"), "unsupported unit %q", item.Unit)
				break
			}
			unit := item.Unit
			if unit == "" {
				unit = UnitCentimetre
			}
			line.Dimensions = &CustomDimensions{LengthCm: roundCm(lengthCm), WidthCm: roundCm(widthCm)}
			line.DisplayDimensions = &DisplayDimensions{Length: item.Length, Width: item.Width, Unit: unit}
		default:
			verr.Add(field("palletType"), "must be standard, euro or custom")
		}

		lines = append(lines, line)
	}

	if input.TotalPallets > 0 && len(input.Items) > 0 && sum != input.TotalPallets {
		verr.Add("items", "line quantities sum to %d but %d pallets were requested", sum, input.TotalPallets)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	return &PalletBookingDetails{
		GoodsType:    goods,
		TotalPallets: input.TotalPallets,
		Items:        lines,
	}, nil
}

func goodsTypeAllowed(goods GoodsType, options []GoodsType) bool {
	if goods == GoodsTypeGeneral {
		return true
	}
	for _, opt := range options {
		if opt.Normalize() == goods {
			return true
		}
	}
	return false
}

// roundCm keeps a tenth of a millimetre so unit conversions compare stably
func roundCm(v float64) float64 {
	return math.Round(v*100) / 100
}
