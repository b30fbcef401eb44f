package domain

import (
	"fmt"
	"strings"
)

// GoodsType classifies stored goods. GoodsTypeGeneral is the fallback rate key.
type GoodsType string

const GoodsTypeGeneral GoodsType = "general"

// Normalize lower-cases the goods type and maps empty to general
func (g GoodsType) Normalize() GoodsType {
	v := GoodsType(strings.ToLower(strings.TrimSpace(string(g))))
	if v == "" {
		return GoodsTypeGeneral
	}
	return v
}

// IsGeneral reports whether g is the fallback goods type
func (g GoodsType) IsGeneral() bool {
	return g.Normalize() == GoodsTypeGeneral
}

// PalletKind is the discriminator of PalletType
type PalletKind string

const (
	PalletKindStandard PalletKind = "standard"
	PalletKindEuro     PalletKind = "euro"
	PalletKindCustom   PalletKind = "custom"
)

// IsValid checks if the pallet kind is known
func (k PalletKind) IsValid() bool {
	switch k {
	case PalletKindStandard, PalletKindEuro, PalletKindCustom:
		return true
	}
	return false
}

// CustomDimensions is the footprint of a custom pallet in centimetres
type CustomDimensions struct {
	LengthCm float64 `json:"lengthCm" bson:"lengthCm"`
	WidthCm  float64 `json:"widthCm" bson:"widthCm"`
}

// PalletType is Standard, Euro or Custom(CustomDimensions). Only the custom
// variant carries dimensions.
type PalletType struct {
	kind   PalletKind
	custom CustomDimensions
}

// StandardPallet returns the standard pallet variant
func StandardPallet() PalletType { return PalletType{kind: PalletKindStandard} }

// EuroPallet returns the euro pallet variant
func EuroPallet() PalletType { return PalletType{kind: PalletKindEuro} }

// CustomPallet returns the custom variant for a footprint in centimetres
func CustomPallet(lengthCm, widthCm float64) PalletType {
	return PalletType{kind: PalletKindCustom, custom: CustomDimensions{LengthCm: lengthCm, WidthCm: widthCm}}
}

// NewPalletType builds the variant for kind. dims is ignored unless kind is custom.
func NewPalletType(kind PalletKind, dims CustomDimensions) (PalletType, error) {
	switch kind {
	case PalletKindStandard:
		return StandardPallet(), nil
	case PalletKindEuro:
		return EuroPallet(), nil
	case PalletKindCustom:
		if dims.LengthCm <= 0 || dims.WidthCm <= 0 {
			return PalletType{}, invalidInput("palletType", "custom pallets need a positive length and width")
		}
		return CustomPallet(dims.LengthCm, dims.WidthCm), nil
	default:
		return PalletType{}, invalidInput("palletType", "unknown pallet type %q", kind)
	}
}

// Kind returns the variant discriminator
func (p PalletType) Kind() PalletKind { return p.kind }

// Custom returns the footprint and true for the custom variant
func (p PalletType) Custom() (CustomDimensions, bool) {
	return p.custom, p.kind == PalletKindCustom
}

func (p PalletType) String() string {
	if p.kind == PalletKindCustom {
		return fmt.Sprintf("custom(%gx%g cm)", p.custom.LengthCm, p.custom.WidthCm)
	}
	return string(p.kind)
}

// LengthUnit is a unit accepted for custom pallet dimensions
type LengthUnit string

const (
	UnitCentimetre LengthUnit = "cm"
	UnitMillimetre LengthUnit = "mm"
	UnitMetre      LengthUnit = "m"
	UnitInch       LengthUnit = "in"
	UnitFoot       LengthUnit = "ft"
)

var centimetresPerUnit = map[LengthUnit]float64{
	UnitCentimetre: 1,
	UnitMillimetre: 0.1,
	UnitMetre:      100,
	UnitInch:       2.54,
	UnitFoot:       30.48,
}

// ToCentimetres converts value in unit to centimetres. An empty unit is cm.
func ToCentimetres(value float64, unit LengthUnit) (float64, error) {
	if unit == "" {
		unit = UnitCentimetre
	}
	factor, ok := centimetresPerUnit[LengthUnit(strings.ToLower(string(unit)))]
	if !ok {
		return 0, invalidInput("unit", "unsupported length unit %q", unit)
	}
	return value * factor, nil
}
