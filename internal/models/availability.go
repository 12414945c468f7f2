package models

import (
	"time"

	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

// AvailabilityRule is a doctor's recurring weekly template for one weekday:
// working window, optional break window and slot size. One row per
// (doctor_id, day_of_week); saving a new rule replaces the old one.
type AvailabilityRule struct {
	ID                  string     `db:"id" json:"id"`
	DoctorID            string     `db:"doctor_id" json:"doctor_id"`
	DayOfWeek           int        `db:"day_of_week" json:"day_of_week"`
	StartTime           TimeOfDay  `db:"start_time" json:"start_time"`
	EndTime             TimeOfDay  `db:"end_time" json:"end_time"`
	BreakStart          *TimeOfDay `db:"break_start" json:"break_start,omitempty"`
	BreakEnd            *TimeOfDay `db:"break_end" json:"break_end,omitempty"`
	SlotDurationMinutes int        `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Validate enforces the rule invariants. The same check runs on the
// availability-save path and before every booking recomputation so the two
// cannot drift.
func (r *AvailabilityRule) Validate() error {
	if r.DayOfWeek < 1 || r.DayOfWeek > 7 {
		return appErrors.Clone(appErrors.ErrValidation, "day_of_week must be between 1 and 7")
	}
	if !r.StartTime.Valid() || !r.EndTime.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "start_time and end_time must be valid times of day")
	}
	if r.StartTime >= r.EndTime {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if r.SlotDurationMinutes <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "slot_duration_minutes must be positive")
	}
	if (r.BreakStart == nil) != (r.BreakEnd == nil) {
		return appErrors.Clone(appErrors.ErrValidation, "break_start and break_end must be set together")
	}
	if r.BreakStart != nil {
		if *r.BreakStart >= *r.BreakEnd {
			return appErrors.Clone(appErrors.ErrValidation, "break_start must be before break_end")
		}
		if *r.BreakStart < r.StartTime || *r.BreakEnd > r.EndTime {
			return appErrors.Clone(appErrors.ErrValidation, "break window must fall within working hours")
		}
	}
	return nil
}

// Slot is a derived bookable interval. Slots are never persisted; they are
// recomputed from the availability rule on every read and every booking.
type Slot struct {
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
}

// ISOWeekday maps a calendar date to the 1..7 (Monday..Sunday) convention
// used by availability rules.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
