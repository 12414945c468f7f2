package models

import "time"

// AppointmentStatus tracks the booking lifecycle.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentRejected  AppointmentStatus = "rejected"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

// Terminal reports whether no further transitions are allowed.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentRejected, AppointmentCancelled, AppointmentCompleted:
		return true
	}
	return false
}

// CanTransitionTo encodes the lifecycle state machine:
// pending -> confirmed | rejected | cancelled, confirmed -> completed.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentPending:
		return next == AppointmentConfirmed || next == AppointmentRejected || next == AppointmentCancelled
	case AppointmentConfirmed:
		return next == AppointmentCompleted
	}
	return false
}

// Appointment is a booked slot. At most one non-cancelled row may exist per
// (doctor_id, appointment_date, start_time); the booking transaction and a
// partial unique index both enforce it.
type Appointment struct {
	ID              string            `db:"id" json:"id"`
	DoctorID        string            `db:"doctor_id" json:"doctor_id"`
	AppointmentDate string            `db:"appointment_date" json:"appointment_date"`
	StartTime       TimeOfDay         `db:"start_time" json:"start_time"`
	EndTime         TimeOfDay         `db:"end_time" json:"end_time"`
	FirstName       string            `db:"first_name" json:"first_name"`
	LastName        string            `db:"last_name" json:"last_name"`
	Email           string            `db:"email" json:"email"`
	MobileNumber    string            `db:"mobile_number" json:"mobile_number"`
	Status          AppointmentStatus `db:"status" json:"status"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentFilter captures listing criteria for doctor and patient views.
type AppointmentFilter struct {
	DoctorID string
	Email    string
	Date     string
	Status   *AppointmentStatus
	Page     int
	PageSize int
}
