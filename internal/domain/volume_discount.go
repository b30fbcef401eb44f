package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// VolumeDiscount is a percentage off once quantity reaches MinPallets
type VolumeDiscount struct {
	ID              string          `json:"id,omitempty"`
	MinPallets      int             `json:"minPallets"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

// ValidateVolumeDiscounts requires positive unique thresholds and a percent in (0,100]
func ValidateVolumeDiscounts(tiers []VolumeDiscount) error {
	seen := make(map[int]struct{}, len(tiers))
	for _, t := range tiers {
		if t.MinPallets <= 0 {
			return invalidInput("minPallets", "must be positive")
		}
		if !t.DiscountPercent.IsPositive() || t.DiscountPercent.GreaterThan(hundred) {
			return invalidInput("discountPercent", "must be greater than 0 and at most 100")
		}
		if !fitsNumeric(t.DiscountPercent, 5, 2) {
			return invalidInput("discountPercent", "at most 2 decimal places are allowed")
		}
		if _, dup := seen[t.MinPallets]; dup {
			return invalidInput("minPallets", "duplicate threshold %d", t.MinPallets)
		}
		seen[t.MinPallets] = struct{}{}
	}
	return nil
}

// DiscountFor returns the tier with the highest threshold at or below quantity
func DiscountFor(tiers []VolumeDiscount, quantity int) (VolumeDiscount, bool) {
	var best VolumeDiscount
	found := false
	for _, t := range tiers {
		if t.MinPallets > quantity {
			continue
		}
		if !found || t.MinPallets > best.MinPallets {
			best = t
			found = true
		}
	}
	return best, found
}
