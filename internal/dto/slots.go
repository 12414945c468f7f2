package dto

import "github.com/careslot/careslot-api/internal/models"

// SlotItem is one bookable interval in a slot listing. Available is false
// for slots already booked or elapsed.
type SlotItem struct {
	StartTime models.TimeOfDay `json:"start_time"`
	EndTime   models.TimeOfDay `json:"end_time"`
	Available bool             `json:"available"`
}

// SlotListResponse is the getSlots payload for one doctor and date.
type SlotListResponse struct {
	DoctorID string     `json:"doctor_id"`
	Date     string     `json:"date"`
	Slots    []SlotItem `json:"slots"`
}
