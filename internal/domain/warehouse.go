package domain

import (
	"fmt"
	"time"
)

// SlotDefinition is a drop-in time offered by a warehouse. MaxDropIns of 0 is unlimited.
type SlotDefinition struct {
	Time       string `json:"time"`
	MaxDropIns int    `json:"maxDropIns"`
}

// DefaultTimeSlots applies to warehouses without configured slots
var DefaultTimeSlots = []SlotDefinition{
	{Time: "09:00"}, {Time: "10:00"}, {Time: "11:00"}, {Time: "12:00"},
	{Time: "13:00"}, {Time: "14:00"}, {Time: "15:00"}, {Time: "16:00"}, {Time: "17:00"},
}

// Warehouse is the catalogue data the booking flow needs
type Warehouse struct {
	ID                 string           `json:"id"`
	CompanyID          string           `json:"companyId"`
	Name               string           `json:"name"`
	WorkingDays        []time.Weekday   `json:"workingDays"`
	TimeSlots          []SlotDefinition `json:"timeSlots"`
	TotalPalletSlots   int              `json:"totalPalletSlots"`
	TotalSqFt          int              `json:"totalSqFt"`
	RequiresPrepayment bool             `json:"requiresPrepayment"`
	GoodsTypeOptions   []GoodsType      `json:"goodsTypeOptions"`
}

// IsWorkingDay reports whether the warehouse accepts drop-ins on date's weekday
func (w *Warehouse) IsWorkingDay(date time.Time) bool {
	for _, d := range w.WorkingDays {
		if d == date.Weekday() {
			return true
		}
	}
	return false
}

// Slots returns the configured slots or the defaults
func (w *Warehouse) Slots() []SlotDefinition {
	if len(w.TimeSlots) == 0 {
		return DefaultTimeSlots
	}
	return w.TimeSlots
}

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses YYYY-MM-DD or RFC3339 into a UTC date
func ParseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrInvalidInput, raw)
	}
	return DateOnly(t), nil
}

// ParseSlotTime validates an HH:MM slot time
func ParseSlotTime(raw string) (string, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not an HH:MM time", ErrInvalidInput, raw)
	}
	return t.Format("15:04"), nil
}
