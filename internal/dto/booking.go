package dto

import "github.com/careslot/careslot-api/internal/models"

// BookSlotRequest books one slot for a patient. The server never trusts the
// submitted boundaries; they must match a freshly generated slot exactly.
type BookSlotRequest struct {
	DoctorID        string `json:"doctor_id" validate:"required"`
	AppointmentDate string `json:"appointment_date" validate:"required"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time" validate:"required"`
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	MobileNumber    string `json:"mobile_number" validate:"required"`
}

// BookSlotResponse confirms the pending appointment.
type BookSlotResponse struct {
	AppointmentID string                   `json:"appointment_id"`
	Status        models.AppointmentStatus `json:"status"`
}

// UpdateAppointmentStatusRequest drives a lifecycle transition.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" validate:"required,oneof=confirmed rejected cancelled completed"`
}

// AppointmentStatusResponse reports the status after a transition.
type AppointmentStatusResponse struct {
	AppointmentID string                   `json:"appointment_id"`
	Status        models.AppointmentStatus `json:"status"`
}
