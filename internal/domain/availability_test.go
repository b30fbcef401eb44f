package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2030-03-04 is a Monday
var monday = time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

func testWarehouse() *Warehouse {
	return &Warehouse{
		ID:          "wh-1",
		CompanyID:   "co-1",
		Name:        "North Depot",
		WorkingDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		TimeSlots: []SlotDefinition{
			{Time: "09:00", MaxDropIns: 2},
			{Time: "13:00", MaxDropIns: 0},
		},
		TotalPalletSlots: 100,
		TotalSqFt:        5000,
	}
}

func capacity(pallets, sqft int, dropIns map[string]int) *Capacity {
	return &Capacity{PalletSlotsRemaining: &pallets, SqFtRemaining: &sqft, DropIns: dropIns}
}

func TestEvaluateDay(t *testing.T) {
	w := testWarehouse()

	tests := []struct {
		name     string
		date     time.Time
		capacity *Capacity
		expected []TimeSlotAvailability
	}{
		{
			name:     "open day",
			date:     monday,
			capacity: capacity(50, 2000, nil),
			expected: []TimeSlotAvailability{{Time: "09:00", Available: true}, {Time: "13:00", Available: true}},
		},
		{
			name:     "weekend",
			date:     monday.AddDate(0, 0, 5),
			capacity: capacity(50, 2000, nil),
			expected: []TimeSlotAvailability{
				{Time: "09:00", Reason: ReasonNonWorkingDay},
				{Time: "13:00", Reason: ReasonNonWorkingDay},
			},
		},
		{
			name:     "past date",
			date:     monday.AddDate(0, 0, -1),
			capacity: capacity(50, 2000, nil),
			expected: []TimeSlotAvailability{
				{Time: "09:00", Reason: ReasonPastDate},
				{Time: "13:00", Reason: ReasonPastDate},
			},
		},
		{
			name:     "no capacity data",
			date:     monday,
			capacity: nil,
			expected: []TimeSlotAvailability{
				{Time: "09:00", Reason: ReasonCapacityUnknown},
				{Time: "13:00", Reason: ReasonCapacityUnknown},
			},
		},
		{
			name:     "no pallet slots left",
			date:     monday,
			capacity: capacity(0, 2000, nil),
			expected: []TimeSlotAvailability{
				{Time: "09:00", Reason: ReasonFullyBooked},
				{Time: "13:00", Reason: ReasonFullyBooked},
			},
		},
		{
			name:     "slot reached its drop-in limit",
			date:     monday,
			capacity: capacity(50, 2000, map[string]int{"09:00": 2, "13:00": 40}),
			expected: []TimeSlotAvailability{
				{Time: "09:00", Reason: ReasonSlotFull},
				{Time: "13:00", Available: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day := EvaluateDay(w, tt.date, tt.capacity, monday.Add(10*time.Hour), BookingTypePallet)
			assert.Equal(t, tt.date.Format(DateLayout), day.Date)
			assert.Equal(t, tt.expected, day.TimeSlots)
		})
	}
}

func TestEvaluateDayUsesDefaultSlots(t *testing.T) {
	w := testWarehouse()
	w.TimeSlots = nil

	day := EvaluateDay(w, monday, capacity(10, 10, nil), monday, "")
	require.Len(t, day.TimeSlots, len(DefaultTimeSlots))
	assert.True(t, day.HasOpenSlot())
}

func TestEvaluateDayAreaRentalUsesSqFt(t *testing.T) {
	w := testWarehouse()

	day := EvaluateDay(w, monday, capacity(0, 2000, nil), monday, BookingTypeAreaRental)
	assert.True(t, day.HasOpenSlot())

	day = EvaluateDay(w, monday, capacity(10, 0, nil), monday, BookingTypeAreaRental)
	assert.False(t, day.HasOpenSlot())
}

func TestDayAvailabilitySlotOpen(t *testing.T) {
	day := DayAvailability{TimeSlots: []TimeSlotAvailability{
		{Time: "09:00", Available: false, Reason: ReasonSlotFull},
		{Time: "13:00", Available: true},
	}}

	assert.True(t, day.HasOpenSlot())
	assert.True(t, day.SlotOpen("13:00"))
	assert.False(t, day.SlotOpen("09:00"))
	assert.False(t, day.SlotOpen("17:00"))
}

func TestClassify(t *testing.T) {
	thresholds := DefaultThresholds()
	sqftOnly := func(v int) *Capacity { return &Capacity{SqFtRemaining: &v} }

	tests := []struct {
		name     string
		date     time.Time
		capacity *Capacity
		expected Classification
	}{
		{"past", monday.AddDate(0, 0, -1), capacity(50, 5000, nil), ClassPast},
		{"unknown", monday, nil, ClassUnknown},
		{"unknown without metrics", monday, &Capacity{}, ClassUnknown},
		{"booked", monday, capacity(0, 0, nil), ClassBooked},
		{"limited by sq ft", monday, capacity(50, 999, nil), ClassLimited},
		{"limited by pallets", monday, capacity(9, 5000, nil), ClassLimited},
		{"available at thresholds", monday, capacity(10, 1000, nil), ClassAvailable},
		{"sq ft only warehouse", monday, sqftOnly(4000), ClassAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.date, tt.capacity, monday, thresholds))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2030-03-04")
	require.NoError(t, err)
	assert.Equal(t, monday, d)

	d, err = ParseDate("2030-03-04T15:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, monday, d)

	_, err = ParseDate("04/03/2030")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
