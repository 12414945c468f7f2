package dto

import "github.com/careslot/careslot-api/internal/models"

// AvailabilityRuleRequest is one weekday's template in a save payload.
type AvailabilityRuleRequest struct {
	DayOfWeek           int     `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime           string  `json:"start_time" validate:"required"`
	EndTime             string  `json:"end_time" validate:"required"`
	BreakStart          *string `json:"break_start" validate:"omitempty"`
	BreakEnd            *string `json:"break_end" validate:"omitempty"`
	SlotDurationMinutes int     `json:"slot_duration_minutes" validate:"required,min=1"`
}

// SaveAvailabilityRequest replaces the doctor's weekly rule set.
type SaveAvailabilityRequest struct {
	Rules []AvailabilityRuleRequest `json:"rules" validate:"required,min=1,max=7,dive"`
}

// AvailabilityResponse returns the persisted weekly rules.
type AvailabilityResponse struct {
	DoctorID string                    `json:"doctor_id"`
	Rules    []models.AvailabilityRule `json:"rules"`
}
