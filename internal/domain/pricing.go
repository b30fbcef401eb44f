package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// PricingPeriod selects the rate table used for a booking duration
type PricingPeriod string

const (
	PeriodDay   PricingPeriod = "day"
	PeriodWeek  PricingPeriod = "week"
	PeriodMonth PricingPeriod = "month"
)

// IsValid checks if the period is known
func (p PricingPeriod) IsValid() bool {
	return p == PeriodDay || p == PeriodWeek || p == PeriodMonth
}

// PeriodForDays buckets a duration. Crossing 7 or 30 days switches the whole table.
func PeriodForDays(days int) PricingPeriod {
	switch {
	case days < 7:
		return PeriodDay
	case days < 30:
		return PeriodWeek
	default:
		return PeriodMonth
	}
}

// HeightRange is a priced height bracket. A nil MaxCm is unbounded.
type HeightRange struct {
	ID           string          `json:"id"`
	MinCm        float64         `json:"minCm"`
	MaxCm        *float64        `json:"maxCm,omitempty"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
}

// Contains reports whether heightCm falls in the bracket
func (r HeightRange) Contains(heightCm float64) bool {
	return heightCm >= r.MinCm && (r.MaxCm == nil || heightCm <= *r.MaxCm)
}

// WeightRange is a priced weight bracket. A nil MaxKg is unbounded.
type WeightRange struct {
	ID             string          `json:"id"`
	MinKg          float64         `json:"minKg"`
	MaxKg          *float64        `json:"maxKg,omitempty"`
	PricePerPallet decimal.Decimal `json:"pricePerPallet"`
}

// Contains reports whether weightKg falls in the bracket
func (r WeightRange) Contains(weightKg float64) bool {
	return weightKg >= r.MinKg && (r.MaxKg == nil || weightKg <= *r.MaxKg)
}

// CustomSize is the largest footprint a custom pallet rate accepts
type CustomSize struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	LengthCm     float64       `json:"lengthCm"`
	WidthCm      float64       `json:"widthCm"`
	HeightRanges []HeightRange `json:"heightRanges"`
}

// Fits reports whether a footprint fits in either orientation
func (s CustomSize) Fits(dims CustomDimensions) bool {
	straight := dims.LengthCm <= s.LengthCm && dims.WidthCm <= s.WidthCm
	rotated := dims.LengthCm <= s.WidthCm && dims.WidthCm <= s.LengthCm
	return straight || rotated
}

func (s CustomSize) area() float64 { return s.LengthCm * s.WidthCm }

// PricingEntry is a rate rule keyed by goods type, pallet kind and period
type PricingEntry struct {
	ID           string        `json:"id"`
	WarehouseID  string        `json:"warehouseId"`
	GoodsType    GoodsType     `json:"goodsType"`
	PalletKind   PalletKind    `json:"palletType"`
	Period       PricingPeriod `json:"pricingPeriod"`
	HeightRanges []HeightRange `json:"heightRanges"`
	WeightRanges []WeightRange `json:"weightRanges"`
	CustomSizes  []CustomSize  `json:"customSizes,omitempty"`
}

// WarehousePricing is the full pricing configuration of one warehouse
type WarehousePricing struct {
	WarehouseID          string            `json:"warehouseId"`
	Entries              []PricingEntry    `json:"entries"`
	FreeStorageRules     []FreeStorageRule `json:"freeStorageRules"`
	VolumeDiscounts      []VolumeDiscount  `json:"volumeDiscounts"`
	PricePerPalletPerDay *decimal.Decimal  `json:"pricePerPalletPerDay,omitempty"`
	PricePerSqFtPerMonth *decimal.Decimal  `json:"pricePerSqFtPerMonth,omitempty"`
}

// Validate checks every entry, rule and tier, reporting all problems at once
func (p *WarehousePricing) Validate() error {
	verr := NewValidationError()

	type entryKey struct {
		goods  GoodsType
		kind   PalletKind
		period PricingPeriod
	}
	seen := make(map[entryKey]int)
	ids := make(map[string]int)

	for i, entry := range p.Entries {
		prefix := fmt.Sprintf("entries[%d]", i)
		if entry.ID != "" {
			if j, dup := ids[entry.ID]; dup {
				verr.Add(prefix+".id", "id %q is already used by entries[%d]", entry.ID, j)
			} else {
				ids[entry.ID] = i
			}
		}
		if !entry.PalletKind.IsValid() {
			verr.Add(prefix+".palletType", "must be standard, euro or custom")
		}
		if !entry.Period.IsValid() {
			verr.Add(prefix+".pricingPeriod", "must be day, week or month")
		}

		key := entryKey{entry.GoodsType.Normalize(), entry.PalletKind, entry.Period}
		if j, dup := seen[key]; dup {
			verr.Add(prefix, "duplicates entries[%d] for the same goods type, pallet type and period", j)
		}
		seen[key] = i

		if entry.PalletKind == PalletKindCustom {
			if len(entry.CustomSizes) == 0 {
				verr.Add(prefix+".customSizes", "custom pallet entries need at least one size")
			}
			sizeIDs := make(map[string]int)
			for j, size := range entry.CustomSizes {
				sizePrefix := fmt.Sprintf("%s.customSizes[%d]", prefix, j)
				if size.ID != "" {
					if k, dup := sizeIDs[size.ID]; dup {
						verr.Add(sizePrefix+".id", "id %q is already used by customSizes[%d]", size.ID, k)
					} else {
						sizeIDs[size.ID] = j
					}
				}
				if size.LengthCm <= 0 || size.WidthCm <= 0 {
					verr.Add(sizePrefix, "length and width must be positive")
				}
				collectRangeErrors(verr, sizePrefix+".heightRanges", ValidateHeightRanges(size.HeightRanges))
			}
		} else {
			collectRangeErrors(verr, prefix+".heightRanges", ValidateHeightRanges(entry.HeightRanges))
		}
		collectRangeErrors(verr, prefix+".weightRanges", ValidateWeightRanges(entry.WeightRanges))
	}

	if err := ValidateFreeStorageRules(p.FreeStorageRules); err != nil {
		verr.Add("freeStorageRules", "%s", err.Error())
	}
	if err := ValidateVolumeDiscounts(p.VolumeDiscounts); err != nil {
		verr.Add("volumeDiscounts", "%s", err.Error())
	}
	for field, rate := range map[string]*decimal.Decimal{
		"pricePerPalletPerDay": p.PricePerPalletPerDay,
		"pricePerSqFtPerMonth": p.PricePerSqFtPerMonth,
	} {
		switch {
		case rate == nil:
		case rate.IsNegative():
			verr.Add(field, "must not be negative")
		case !fitsNumeric(*rate, pricePrecision, priceScale):
			verr.Add(field, "must be below 10^%d with at most %d decimal places", pricePrecision-priceScale, priceScale)
		}
	}

	return verr.OrNil()
}

func collectRangeErrors(verr *ValidationError, field string, err error) {
	if err != nil {
		verr.Add(field, "%s", err.Error())
	}
}

// bracket is the shape shared by height and weight ranges
type bracket struct {
	id    string
	min   float64
	max   *float64
	price decimal.Decimal
}

// ValidateHeightRanges checks ordering, contiguity and the open-ended rule
func ValidateHeightRanges(ranges []HeightRange) error {
	brackets := make([]bracket, len(ranges))
	for i, r := range ranges {
		brackets[i] = bracket{id: r.ID, min: r.MinCm, max: r.MaxCm, price: r.PricePerUnit}
	}
	return validateBrackets("height", brackets)
}

// ValidateWeightRanges checks ordering, contiguity and the open-ended rule
func ValidateWeightRanges(ranges []WeightRange) error {
	brackets := make([]bracket, len(ranges))
	for i, r := range ranges {
		brackets[i] = bracket{id: r.ID, min: r.MinKg, max: r.MaxKg, price: r.PricePerPallet}
	}
	return validateBrackets("weight", brackets)
}

// validateBrackets sorts by min, then requires each next min to lie in
// [prev.max, prev.max+1]. Only the last bracket may be open-ended.
func validateBrackets(kind string, brackets []bracket) error {
	if len(brackets) == 0 {
		return invalidInput(kind+"Ranges", "at least one %s range is required", kind)
	}

	sorted := append([]bracket(nil), brackets...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].min < sorted[j].min })

	ids := make(map[string]struct{}, len(sorted))
	for i, b := range sorted {
		if b.id == "" {
			return invalidInput(kind+"Ranges", "%s range %d has no id", kind, i)
		}
		if _, dup := ids[b.id]; dup {
			return invalidInput(kind+"Ranges", "duplicate %s range id %q", kind, b.id)
		}
		ids[b.id] = struct{}{}

		if b.min < 0 {
			return invalidInput(kind+"Ranges", "%s range %q has a negative minimum", kind, b.id)
		}
		if b.price.IsNegative() {
			return invalidInput(kind+"Ranges", "%s range %q has a negative price", kind, b.id)
		}
		if !fitsNumeric(b.price, pricePrecision, priceScale) {
			return invalidInput(kind+"Ranges", "%s range %q price must be below 10^%d with at most %d decimal places",
				kind, b.id, pricePrecision-priceScale, priceScale)
		}
		if b.max != nil && *b.max < b.min {
			return invalidInput(kind+"Ranges", "%s range %q has max below min", kind, b.id)
		}

		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if prev.max == nil {
			return invalidInput(kind+"Ranges", "only the last %s range may omit its maximum", kind)
		}
		if b.min < *prev.max {
			return invalidInput(kind+"Ranges", "%s ranges %q and %q overlap", kind, prev.id, b.id)
		}
		if b.min > *prev.max+1 {
			return invalidInput(kind+"Ranges", "gap between %s ranges %q and %q", kind, prev.id, b.id)
		}
	}
	return nil
}

// Rates are stored as NUMERIC(12,4)
const (
	pricePrecision = 12
	priceScale     = 4
)

// fitsNumeric reports whether d is stored exactly by a NUMERIC(precision, scale) column
func fitsNumeric(d decimal.Decimal, precision, scale int32) bool {
	if !d.Equal(d.Round(scale)) {
		return false
	}
	return d.Abs().LessThan(decimal.New(1, precision-scale))
}

// findHeightRange returns the range with id
func findHeightRange(ranges []HeightRange, id string) (HeightRange, bool) {
	for _, r := range ranges {
		if r.ID == id {
			return r, true
		}
	}
	return HeightRange{}, false
}

// findWeightRange returns the range with id
func findWeightRange(ranges []WeightRange, id string) (WeightRange, bool) {
	for _, r := range ranges {
		if r.ID == id {
			return r, true
		}
	}
	return WeightRange{}, false
}
