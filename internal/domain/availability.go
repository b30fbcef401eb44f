package domain

import "time"

// Slot unavailability reasons
const (
	ReasonNonWorkingDay   = "non_working_day"
	ReasonPastDate        = "past_date"
	ReasonFullyBooked     = "fully_booked"
	ReasonSlotFull        = "slot_full"
	ReasonCapacityUnknown = "capacity_unknown"
)

// Capacity is what remains free at a warehouse on one date. Nil remaining
// values mean the warehouse does not offer that kind of space.
type Capacity struct {
	Date                 time.Time
	PalletSlotsRemaining *int
	SqFtRemaining        *int
	// DropIns counts booked drop-ins per slot time
	DropIns map[string]int
}

// HasRemaining reports free space for a booking type. An empty type accepts either kind.
func (c *Capacity) HasRemaining(bookingType BookingType) bool {
	pallets := c.PalletSlotsRemaining != nil && *c.PalletSlotsRemaining > 0
	area := c.SqFtRemaining != nil && *c.SqFtRemaining > 0

	switch bookingType {
	case BookingTypePallet:
		return pallets
	case BookingTypeAreaRental:
		return area
	default:
		return pallets || area
	}
}

// TimeSlotAvailability is the gate's answer for one slot
type TimeSlotAvailability struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// DayAvailability is the gate's answer for one date
type DayAvailability struct {
	Date      string                 `json:"date"`
	TimeSlots []TimeSlotAvailability `json:"timeSlots"`
}

// HasOpenSlot reports whether at least one slot is available
func (d *DayAvailability) HasOpenSlot() bool {
	for _, s := range d.TimeSlots {
		if s.Available {
			return true
		}
	}
	return false
}

// SlotOpen reports whether the slot at slotTime is available
func (d *DayAvailability) SlotOpen(slotTime string) bool {
	for _, s := range d.TimeSlots {
		if s.Time == slotTime {
			return s.Available
		}
	}
	return false
}

// EvaluateDay decides per slot whether a drop-in on date is possible. A nil
// capacity means the provider had no data for the date.
func EvaluateDay(w *Warehouse, date time.Time, capacity *Capacity, today time.Time, bookingType BookingType) DayAvailability {
	day := DateOnly(date)
	slots := w.Slots()
	result := DayAvailability{
		Date:      day.Format(DateLayout),
		TimeSlots: make([]TimeSlotAvailability, 0, len(slots)),
	}

	dayReason := ""
	switch {
	case day.Before(DateOnly(today)):
		dayReason = ReasonPastDate
	case !w.IsWorkingDay(day):
		dayReason = ReasonNonWorkingDay
	case capacity == nil:
		dayReason = ReasonCapacityUnknown
	case !capacity.HasRemaining(bookingType):
		dayReason = ReasonFullyBooked
	}

	for _, slot := range slots {
		entry := TimeSlotAvailability{Time: slot.Time, Available: true}
		switch {
		case dayReason != "":
			entry.Available = false
			entry.Reason = dayReason
		case slot.MaxDropIns > 0 && capacity.DropIns[slot.Time] >= slot.MaxDropIns:
			entry.Available = false
			entry.Reason = ReasonSlotFull
		}
		result.TimeSlots = append(result.TimeSlots, entry)
	}

	return result
}

// Classification is the calendar label of a date
type Classification string

const (
	ClassAvailable Classification = "available"
	ClassLimited   Classification = "limited"
	ClassBooked    Classification = "booked"
	ClassUnknown   Classification = "unknown"
	ClassPast      Classification = "past"
)

// Thresholds below which remaining capacity is labelled limited
type Thresholds struct {
	LimitedSqFt        int
	LimitedPalletSlots int
}

// DefaultThresholds are 1000 sq ft and 10 pallet slots
func DefaultThresholds() Thresholds {
	return Thresholds{LimitedSqFt: 1000, LimitedPalletSlots: 10}
}

// Classify labels a date for the availability calendar
func Classify(date time.Time, capacity *Capacity, today time.Time, thresholds Thresholds) Classification {
	if DateOnly(date).Before(DateOnly(today)) {
		return ClassPast
	}
	if capacity == nil || (capacity.PalletSlotsRemaining == nil && capacity.SqFtRemaining == nil) {
		return ClassUnknown
	}
	if !capacity.HasRemaining("") {
		return ClassBooked
	}

	if capacity.SqFtRemaining != nil && *capacity.SqFtRemaining < thresholds.LimitedSqFt {
		return ClassLimited
	}
	if capacity.PalletSlotsRemaining != nil && *capacity.PalletSlotsRemaining < thresholds.LimitedPalletSlots {
		return ClassLimited
	}
	return ClassAvailable
}
