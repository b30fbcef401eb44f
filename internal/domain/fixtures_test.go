package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func f64(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func assertMoney(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.Equal(t, expected, actual.StringFixed(2))
}

func heights(small, tall string) []HeightRange {
	return []HeightRange{
		{ID: "h1", MinCm: 0, MaxCm: f64(100), PricePerUnit: dec(small)},
		{ID: "h2", MinCm: 101, PricePerUnit: dec(tall)},
	}
}

func weights(light, heavy string) []WeightRange {
	return []WeightRange{
		{ID: "w1", MinKg: 0, MaxKg: f64(500), PricePerPallet: dec(light)},
		{ID: "w2", MinKg: 501, PricePerPallet: dec(heavy)},
	}
}

// testPricing prices a general standard pallet at 2+1 per day, 1+0.5 per
// week-bucket day and 1+0.25 per month-bucket day.
func testPricing() *WarehousePricing {
	return &WarehousePricing{
		WarehouseID: "wh-1",
		Entries: []PricingEntry{
			{ID: "gen-day", GoodsType: GoodsTypeGeneral, PalletKind: PalletKindStandard, Period: PeriodDay,
				HeightRanges: heights("2", "3"), WeightRanges: weights("1", "1.5")},
			{ID: "gen-week", GoodsType: GoodsTypeGeneral, PalletKind: PalletKindStandard, Period: PeriodWeek,
				HeightRanges: heights("1", "2"), WeightRanges: weights("0.5", "1")},
			{ID: "gen-month", GoodsType: GoodsTypeGeneral, PalletKind: PalletKindStandard, Period: PeriodMonth,
				HeightRanges: heights("1", "1.5"), WeightRanges: weights("0.25", "0.5")},
			{ID: "frozen-day", GoodsType: "frozen", PalletKind: PalletKindStandard, Period: PeriodDay,
				HeightRanges: heights("4", "5"), WeightRanges: weights("2", "2.5")},
			{ID: "euro-day", GoodsType: GoodsTypeGeneral, PalletKind: PalletKindEuro, Period: PeriodDay,
				HeightRanges: heights("2.5", "3.5"), WeightRanges: weights("1", "1.5")},
			{ID: "custom-day", GoodsType: GoodsTypeGeneral, PalletKind: PalletKindCustom, Period: PeriodDay,
				WeightRanges: weights("1", "1.5"),
				CustomSizes: []CustomSize{
					{ID: "large", Name: "Large", LengthCm: 150, WidthCm: 120, HeightRanges: heights("7", "8")},
					{ID: "small", Name: "Small", LengthCm: 100, WidthCm: 80, HeightRanges: heights("5", "6")},
				}},
		},
		FreeStorageRules: []FreeStorageRule{
			{ID: "long", MinDuration: 30, MaxDuration: intPtr(60), DurationUnit: UnitDay, FreeAmount: 1, FreeUnit: UnitWeek},
		},
		VolumeDiscounts: []VolumeDiscount{
			{ID: "t50", MinPallets: 50, DiscountPercent: dec("5")},
			{ID: "t100", MinPallets: 100, DiscountPercent: dec("10")},
		},
	}
}

var testStart = time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)

func days(n int) time.Time { return testStart.Add(time.Duration(n) * 24 * time.Hour) }

func standardItems(qty int, goods GoodsType) *PalletDetails {
	return &PalletDetails{
		GoodsType: goods,
		Items: []PalletItem{
			{PalletType: StandardPallet(), Quantity: qty, HeightRangeID: "h1", WeightRangeID: "w1"},
		},
	}
}
