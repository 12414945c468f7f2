package models

import "time"

// Feedback is a patient's rating for a completed appointment.
type Feedback struct {
	ID            string    `db:"id" json:"id"`
	DoctorID      string    `db:"doctor_id" json:"doctor_id"`
	AppointmentID string    `db:"appointment_id" json:"appointment_id"`
	PatientEmail  string    `db:"patient_email" json:"patient_email"`
	Rating        int       `db:"rating" json:"rating"`
	Comment       string    `db:"comment" json:"comment"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
