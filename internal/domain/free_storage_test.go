package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeDaysFor(t *testing.T) {
	rules := []FreeStorageRule{
		{ID: "week", MinDuration: 1, MaxDuration: intPtr(4), DurationUnit: UnitWeek, FreeAmount: 2, FreeUnit: UnitDay},
		{ID: "month", MinDuration: 1, DurationUnit: UnitMonth, FreeAmount: 1, FreeUnit: UnitWeek},
	}

	tests := []struct {
		days int
		free int
		rule string
	}{
		{6, 0, ""},
		{7, 2, "week"},
		{28, 2, "week"},
		{29, 0, ""},
		{30, 7, "month"},
		{400, 7, "month"},
	}

	for _, tt := range tests {
		free, rule := FreeDaysFor(rules, tt.days)
		assert.Equal(t, tt.free, free, "days=%d", tt.days)
		if tt.rule == "" {
			assert.Nil(t, rule)
		} else {
			require.NotNil(t, rule)
			assert.Equal(t, tt.rule, rule.ID)
		}
	}
}

func TestFreeDaysForPicksLargestMinimum(t *testing.T) {
	// overlapping rules are rejected by validation but still resolve deterministically
	rules := []FreeStorageRule{
		{ID: "a", MinDuration: 10, FreeAmount: 1},
		{ID: "b", MinDuration: 20, FreeAmount: 5},
	}
	free, rule := FreeDaysFor(rules, 25)
	assert.Equal(t, 5, free)
	assert.Equal(t, "b", rule.ID)
}

func TestValidateFreeStorageRules(t *testing.T) {
	tests := []struct {
		name    string
		rules   []FreeStorageRule
		wantErr string
	}{
		{
			name: "valid",
			rules: []FreeStorageRule{
				{MinDuration: 7, MaxDuration: intPtr(29), DurationUnit: UnitDay, FreeAmount: 1, FreeUnit: UnitDay},
				{MinDuration: 30, DurationUnit: UnitDay, FreeAmount: 7, FreeUnit: UnitDay},
			},
		},
		{
			name: "overlap",
			rules: []FreeStorageRule{
				{MinDuration: 7, MaxDuration: intPtr(30), DurationUnit: UnitDay, FreeAmount: 1, FreeUnit: UnitDay},
				{MinDuration: 30, DurationUnit: UnitDay, FreeAmount: 7, FreeUnit: UnitDay},
			},
			wantErr: "overlap",
		},
		{
			name: "open-ended rule before another",
			rules: []FreeStorageRule{
				{MinDuration: 7, DurationUnit: UnitDay, FreeAmount: 1, FreeUnit: UnitDay},
				{MinDuration: 30, DurationUnit: UnitDay, FreeAmount: 7, FreeUnit: UnitDay},
			},
			wantErr: "open-ended",
		},
		{
			name:    "free time longer than minimum",
			rules:   []FreeStorageRule{{MinDuration: 5, DurationUnit: UnitDay, FreeAmount: 1, FreeUnit: UnitWeek}},
			wantErr: "exceed",
		},
		{
			name:    "unknown unit",
			rules:   []FreeStorageRule{{MinDuration: 5, DurationUnit: "year", FreeAmount: 1, FreeUnit: UnitDay}},
			wantErr: "unknown unit",
		},
		{
			name:    "max below min",
			rules:   []FreeStorageRule{{MinDuration: 5, MaxDuration: intPtr(4), FreeAmount: 1}},
			wantErr: "below minDuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFreeStorageRules(tt.rules)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDiscountFor(t *testing.T) {
	tiers := testPricing().VolumeDiscounts

	_, ok := DiscountFor(tiers, 49)
	assert.False(t, ok)

	tier, ok := DiscountFor(tiers, 50)
	require.True(t, ok)
	assert.Equal(t, "t50", tier.ID)

	tier, ok = DiscountFor(tiers, 150)
	require.True(t, ok)
	assert.Equal(t, "t100", tier.ID)
}

func TestValidateVolumeDiscounts(t *testing.T) {
	assert.NoError(t, ValidateVolumeDiscounts(testPricing().VolumeDiscounts))
	assert.ErrorIs(t, ValidateVolumeDiscounts([]VolumeDiscount{{MinPallets: 0, DiscountPercent: dec("5")}}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateVolumeDiscounts([]VolumeDiscount{{MinPallets: 10, DiscountPercent: dec("101")}}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateVolumeDiscounts([]VolumeDiscount{{MinPallets: 10, DiscountPercent: dec("12.345")}}), ErrInvalidInput)
	assert.NoError(t, ValidateVolumeDiscounts([]VolumeDiscount{{MinPallets: 10, DiscountPercent: dec("12.50")}}))
	assert.ErrorIs(t, ValidateVolumeDiscounts([]VolumeDiscount{
		{MinPallets: 10, DiscountPercent: dec("5")},
		{MinPallets: 10, DiscountPercent: dec("6")},
	}), ErrInvalidInput)
}
