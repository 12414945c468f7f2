package dto

// RegisterDoctorRequest creates a pending doctor application.
type RegisterDoctorRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=6"`
	FullName       string `json:"full_name" validate:"required"`
	Specialization string `json:"specialization" validate:"required"`
	LicenseNumber  string `json:"license_number" validate:"required"`
	Phone          string `json:"phone" validate:"required"`
}

// DoctorItem is the public doctor listing shape. Approval status and
// credentials never leave the admin surface.
type DoctorItem struct {
	ID             string `json:"id"`
	FullName       string `json:"full_name"`
	Specialization string `json:"specialization"`
}
