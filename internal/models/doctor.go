package models

import "time"

// DoctorStatus tracks the registration approval workflow.
type DoctorStatus string

const (
	DoctorPending  DoctorStatus = "pending"
	DoctorApproved DoctorStatus = "approved"
	DoctorRejected DoctorStatus = "rejected"
)

// Doctor is a practitioner account. Registration creates the row in
// 'pending'; only admin approval makes it visible and bookable.
type Doctor struct {
	ID             string       `db:"id" json:"id"`
	Email          string       `db:"email" json:"email"`
	PasswordHash   string       `db:"password_hash" json:"-"`
	FullName       string       `db:"full_name" json:"full_name"`
	Specialization string       `db:"specialization" json:"specialization"`
	LicenseNumber  string       `db:"license_number" json:"license_number"`
	Phone          string       `db:"phone" json:"phone"`
	Status         DoctorStatus `db:"status" json:"status"`
	ReviewedBy     *string      `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time   `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// DoctorFilter captures filtering criteria for doctor listings.
type DoctorFilter struct {
	Specialization string
	Status         *DoctorStatus
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
