package domain

// ResolvedRates is the rate table that applies to one pallet line. Found is
// false when no entry matches; callers must report pricing as unavailable.
type ResolvedRates struct {
	Found        bool
	EntryID      string
	GoodsType    GoodsType
	Period       PricingPeriod
	HeightRanges []HeightRange
	WeightRanges []WeightRange
	CustomSize   *CustomSize
}

// ResolveRates finds the entry for a goods type, pallet type and period. An
// entry for the exact goods type wins over the general fallback. For custom
// pallets the smallest configured size that fits the footprint is selected.
func ResolveRates(pricing *WarehousePricing, goodsType GoodsType, palletType PalletType, period PricingPeriod) (ResolvedRates, error) {
	if pricing == nil {
		return ResolvedRates{}, nil
	}

	wanted := goodsType.Normalize()
	var exact, fallback *PricingEntry
	for i := range pricing.Entries {
		entry := &pricing.Entries[i]
		if entry.PalletKind != palletType.Kind() || entry.Period != period {
			continue
		}
		entryGoods := entry.GoodsType.Normalize()
		switch {
		case entryGoods == wanted && exact == nil:
			exact = entry
		case entryGoods == GoodsTypeGeneral && fallback == nil:
			fallback = entry
		}
	}

	entry := exact
	if entry == nil {
		entry = fallback
	}
	if entry == nil {
		return ResolvedRates{}, nil
	}

	resolved := ResolvedRates{
		Found:        true,
		EntryID:      entry.ID,
		GoodsType:    entry.GoodsType.Normalize(),
		Period:       entry.Period,
		WeightRanges: entry.WeightRanges,
	}

	switch palletType.Kind() {
	case PalletKindStandard, PalletKindEuro:
		resolved.HeightRanges = entry.HeightRanges
		return resolved, nil

	case PalletKindCustom:
		dims, _ := palletType.Custom()
		size := smallestFittingSize(entry.CustomSizes, dims)
		if size == nil {
			return ResolvedRates{}, pricingUnavailable(ReasonNoMatchingCustomSize,
				"no custom size fits %gx%g cm", dims.LengthCm, dims.WidthCm)
		}
		resolved.CustomSize = size
		resolved.HeightRanges = size.HeightRanges
		return resolved, nil

	default:
		return ResolvedRates{}, invalidInput("palletType", "unknown pallet type %q", palletType.Kind())
	}
}

func smallestFittingSize(sizes []CustomSize, dims CustomDimensions) *CustomSize {
	var best *CustomSize
	for i := range sizes {
		if !sizes[i].Fits(dims) {
			continue
		}
		if best == nil || sizes[i].area() < best.area() {
			best = &sizes[i]
		}
	}
	return best
}
