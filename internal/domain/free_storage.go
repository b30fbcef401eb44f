package domain

import (
	"fmt"
	"sort"
)

// DurationUnit is the unit of a free storage rule bound or amount
type DurationUnit string

const (
	UnitDay   DurationUnit = "day"
	UnitWeek  DurationUnit = "week"
	UnitMonth DurationUnit = "month"
)

// Days converts n units to days. A month counts as 30 days.
func (u DurationUnit) Days(n int) (int, bool) {
	switch u {
	case UnitDay, "":
		return n, true
	case UnitWeek:
		return n * 7, true
	case UnitMonth:
		return n * 30, true
	}
	return 0, false
}

// FreeStorageRule grants FreeAmount free days to bookings whose duration
// falls in [MinDuration, MaxDuration]. A nil MaxDuration is open-ended.
type FreeStorageRule struct {
	ID           string       `json:"id,omitempty"`
	MinDuration  int          `json:"minDuration"`
	MaxDuration  *int         `json:"maxDuration,omitempty"`
	DurationUnit DurationUnit `json:"durationUnit"`
	FreeAmount   int          `json:"freeAmount"`
	FreeUnit     DurationUnit `json:"freeUnit"`
}

// MinDays is the lower bound in days
func (r FreeStorageRule) MinDays() int {
	d, _ := r.DurationUnit.Days(r.MinDuration)
	return d
}

// MaxDays is the upper bound in days, nil when open-ended
func (r FreeStorageRule) MaxDays() *int {
	if r.MaxDuration == nil {
		return nil
	}
	d, _ := r.DurationUnit.Days(*r.MaxDuration)
	return &d
}

// FreeDays is the granted amount in days
func (r FreeStorageRule) FreeDays() int {
	d, _ := r.FreeUnit.Days(r.FreeAmount)
	return d
}

// Applies reports whether a booking of days qualifies
func (r FreeStorageRule) Applies(days int) bool {
	if days < r.MinDays() {
		return false
	}
	upper := r.MaxDays()
	return upper == nil || days <= *upper
}

// Validate rejects unknown units, non-positive amounts, max below min and
// rules granting more free time than their own minimum duration.
func (r FreeStorageRule) Validate() error {
	if _, ok := r.DurationUnit.Days(0); !ok {
		return invalidInput("durationUnit", "unknown unit %q", r.DurationUnit)
	}
	if _, ok := r.FreeUnit.Days(0); !ok {
		return invalidInput("freeUnit", "unknown unit %q", r.FreeUnit)
	}
	if r.MinDuration <= 0 {
		return invalidInput("minDuration", "must be positive")
	}
	if r.FreeAmount <= 0 {
		return invalidInput("freeAmount", "must be positive")
	}
	if r.MaxDuration != nil && *r.MaxDuration < r.MinDuration {
		return invalidInput("maxDuration", "must not be below minDuration")
	}
	if r.FreeDays() > r.MinDays() {
		return invalidInput("freeAmount", "%d free days exceed the %d day minimum duration", r.FreeDays(), r.MinDays())
	}
	return nil
}

// ValidateFreeStorageRules validates each rule and the set: rules must not
// overlap and only the last one by minimum may be open-ended.
func ValidateFreeStorageRules(rules []FreeStorageRule) error {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}

	sorted := append([]FreeStorageRule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinDays() < sorted[j].MinDays() })

	for i := 1; i < len(sorted); i++ {
		prevMax := sorted[i-1].MaxDays()
		if prevMax == nil {
			return invalidInput("maxDuration", "only the last free storage rule may be open-ended")
		}
		if sorted[i].MinDays() <= *prevMax {
			return invalidInput("minDuration", "free storage rules starting at %d and %d days overlap",
				sorted[i-1].MinDays(), sorted[i].MinDays())
		}
	}
	return nil
}

// FreeDaysFor picks the applicable rule for a duration. When several apply,
// the one with the largest minimum wins.
func FreeDaysFor(rules []FreeStorageRule, days int) (int, *FreeStorageRule) {
	var best *FreeStorageRule
	for i := range rules {
		r := rules[i]
		if !r.Applies(days) {
			continue
		}
		if best == nil || r.MinDays() > best.MinDays() {
			best = &rules[i]
		}
	}
	if best == nil {
		return 0, nil
	}
	return best.FreeDays(), best
}
