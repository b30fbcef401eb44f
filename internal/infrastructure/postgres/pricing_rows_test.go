package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletspace/booking-service/internal/domain"
)

func strPtr(s string) *string      { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestAssemble_NothingConfigured(t *testing.T) {
	var rs pricingRows
	pricing, err := rs.assemble("wh-1")
	require.NoError(t, err)
	assert.Nil(t, pricing)
}

func TestAssemble_NestsRows(t *testing.T) {
	entryID := rowID("wh-1", "e1", "")
	sizeID := rowID(entryID, "big", "")

	rs := pricingRows{
		PalletPerDay: strPtr("2.5000"),
		HasFlatRates: true,
		Entries: []entryRow{
			{ID: entryID, GoodsType: "general", PalletKind: "custom", Period: "day"},
		},
		CustomSizes: []customSizeRow{
			{ID: sizeID, EntryID: entryID, Name: "Big", LengthCm: 200, WidthCm: 100},
		},
		HeightRanges: []heightRangeRow{
			{ID: "h1", EntryID: entryID, MinCm: 0, MaxCm: floatPtr(150), PricePerUnit: "1.2500"},
			{ID: "h2", EntryID: entryID, CustomSizeID: &sizeID, MinCm: 0, PricePerUnit: "3.0000"},
		},
		WeightRanges: []weightRangeRow{
			{ID: "w1", EntryID: entryID, MinKg: 0, MaxKg: floatPtr(500), PricePerPallet: "0.5000"},
		},
		Discounts: []discountRow{{ID: "d1", MinPallets: 10, DiscountPercent: "5.00"}},
	}

	pricing, err := rs.assemble("wh-1")
	require.NoError(t, err)
	require.NotNil(t, pricing)

	require.NotNil(t, pricing.PricePerPalletPerDay)
	assert.True(t, pricing.PricePerPalletPerDay.Equal(decimal.RequireFromString("2.5")))
	assert.Nil(t, pricing.PricePerSqFtPerMonth)

	require.Len(t, pricing.Entries, 1)
	entry := pricing.Entries[0]
	assert.Equal(t, "e1", entry.ID)
	assert.Equal(t, "wh-1", entry.WarehouseID)
	assert.Equal(t, domain.PricingPeriod("day"), entry.Period)

	require.Len(t, entry.HeightRanges, 1)
	assert.Equal(t, "h1", entry.HeightRanges[0].ID)
	assert.Equal(t, 150.0, *entry.HeightRanges[0].MaxCm)

	require.Len(t, entry.CustomSizes, 1)
	size := entry.CustomSizes[0]
	assert.Equal(t, "big", size.ID)
	require.Len(t, size.HeightRanges, 1)
	assert.Nil(t, size.HeightRanges[0].MaxCm)
	assert.True(t, size.HeightRanges[0].PricePerUnit.Equal(decimal.NewFromInt(3)))

	require.Len(t, entry.WeightRanges, 1)
	assert.True(t, entry.WeightRanges[0].PricePerPallet.Equal(decimal.RequireFromString("0.5")))

	require.Len(t, pricing.VolumeDiscounts, 1)
	assert.Equal(t, 10, pricing.VolumeDiscounts[0].MinPallets)
}

func TestAssemble_RejectsCorruptNumeric(t *testing.T) {
	rs := pricingRows{
		Entries:      []entryRow{{ID: "wh-1/e1", GoodsType: "general", PalletKind: "standard", Period: "day"}},
		WeightRanges: []weightRangeRow{{ID: "w1", EntryID: "wh-1/e1", PricePerPallet: "abc"}},
	}
	_, err := rs.assemble("wh-1")
	assert.Error(t, err)
}

func TestRowID(t *testing.T) {
	assert.Equal(t, "wh-1/e1", rowID("wh-1", "e1", "entry-0"))
	assert.Equal(t, "wh-1/entry-0", rowID("wh-1", "", "entry-0"))
	assert.Equal(t, "e1", localID("wh-1", "wh-1/e1"))
	assert.Equal(t, "other", localID("wh-1", "other"))
}

func TestQueuePricing(t *testing.T) {
	flat := decimal.NewFromInt(2)
	pricing := &domain.WarehousePricing{
		WarehouseID:          "wh-1",
		PricePerPalletPerDay: &flat,
		Entries: []domain.PricingEntry{{
			ID:           "e1", GoodsType: "general", PalletKind: "standard", Period: domain.PeriodDay,
			HeightRanges: []domain.HeightRange{{ID: "h1", PricePerUnit: decimal.NewFromInt(1)}},
			WeightRanges: []domain.WeightRange{{ID: "w1", PricePerPallet: decimal.NewFromInt(1)}},
		}},
		VolumeDiscounts: []domain.VolumeDiscount{{MinPallets: 5, DiscountPercent: decimal.NewFromInt(10)}},
	}

	batch := &pgx.Batch{}
	queuePricing(batch, pricing)

	// flat rates, entry, height, weight, discount
	assert.Equal(t, 5, batch.Len())
}
