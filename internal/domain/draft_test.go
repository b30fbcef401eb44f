package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDraft(t *testing.T) {
	draft, err := BuildDraft(DraftInput{
		GoodsType:    "Frozen",
		TotalPallets: 5,
		Items: []DraftLineItem{
			{PalletKind: PalletKindStandard, Quantity: 3, HeightRangeID: "h1", WeightRangeID: "w1", Stackable: true},
			{PalletKind: PalletKindCustom, Quantity: 2, HeightRangeID: "h2", WeightRangeID: "w2", Length: 1.2, Width: 0.8, Unit: UnitMetre},
		},
	}, []GoodsType{"frozen", "chilled"})
	require.NoError(t, err)

	assert.Equal(t, GoodsType("frozen"), draft.GoodsType)
	assert.Equal(t, 5, draft.TotalPallets)
	require.Len(t, draft.Items, 2)
	assert.Nil(t, draft.Items[0].Dimensions)
	assert.True(t, draft.Items[0].Stackable)

	custom := draft.Items[1]
	require.NotNil(t, custom.Dimensions)
	assert.Equal(t, 120.0, custom.Dimensions.LengthCm)
	assert.Equal(t, 80.0, custom.Dimensions.WidthCm)
	require.NotNil(t, custom.DisplayDimensions)
	assert.Equal(t, UnitMetre, custom.DisplayDimensions.Unit)

	details := draft.PriceDetails()
	assert.Equal(t, PalletKindCustom, details.Items[1].PalletType.Kind())
	dims, ok := details.Items[1].PalletType.Custom()
	require.True(t, ok)
	assert.Equal(t, 120.0, dims.LengthCm)
}

func TestBuildDraftLineGoodsTypes(t *testing.T) {
	options := []GoodsType{"frozen"}

	draft, err := BuildDraft(DraftInput{
		TotalPallets: 3,
		Items: []DraftLineItem{
			{PalletKind: PalletKindStandard, GoodsType: "Frozen", Quantity: 1, HeightRangeID: "h1", WeightRangeID: "w1"},
			{PalletKind: PalletKindStandard, Quantity: 2, HeightRangeID: "h1", WeightRangeID: "w1"},
		},
	}, options)
	require.NoError(t, err)
	assert.Equal(t, GoodsType("frozen"), draft.Items[0].GoodsType)
	assert.Equal(t, GoodsTypeGeneral, draft.Items[1].GoodsType)

	details := draft.PriceDetails()
	assert.Equal(t, GoodsType("frozen"), details.Items[0].GoodsType)

	_, err = BuildDraft(DraftInput{
		TotalPallets: 1,
		Items: []DraftLineItem{
			{PalletKind: PalletKindStandard, GoodsType: "hazmat", Quantity: 1, HeightRangeID: "h1", WeightRangeID: "w1"},
		},
	}, options)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "items[0].goodsType")
}

func TestBuildDraftInchesConvert(t *testing.T) {
	draft, err := BuildDraft(DraftInput{
		TotalPallets: 1,
		Items: []DraftLineItem{
			{PalletKind: PalletKindCustom, Quantity: 1, HeightRangeID: "h1", WeightRangeID: "w1", Length: 48, Width: 40, Unit: UnitInch},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, GoodsTypeGeneral, draft.GoodsType)
	assert.Equal(t, 121.92, draft.Items[0].Dimensions.LengthCm)
	assert.Equal(t, 101.6, draft.Items[0].Dimensions.WidthCm)
}

func TestBuildDraftCollectsEveryProblem(t *testing.T) {
	_, err := BuildDraft(DraftInput{
		GoodsType:    "hazmat",
		TotalPallets: 4,
		Items: []DraftLineItem{
			{PalletKind: PalletKindStandard, Quantity: 0},
			{PalletKind: PalletKindCustom, Quantity: 2, HeightRangeID: "h1", WeightRangeID: "w1", Length: 0, Width: 10, Unit: "yd"},
			{PalletKind: "crate", Quantity: 1, HeightRangeID: "h1", WeightRangeID: "w1"},
		},
	}, []GoodsType{"frozen"})
	require.ErrorIs(t, err, ErrInvalidInput)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{
		"goodsType",
		"items[0].quantity",
		"items[0].heightRangeId",
		"items[0].weightRangeId",
		"items[1].length",
		"items[1].unit",
		"items[2].palletType",
		"items",
	} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestBuildDraftRequiresItems(t *testing.T) {
	_, err := BuildDraft(DraftInput{TotalPallets: 0}, nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "totalPallets")
	assert.Contains(t, verr.Fields, "items")
}
