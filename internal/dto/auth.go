package dto

import "time"

// RequestOTPRequest asks for a one-time password to be sent to the email.
type RequestOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestOTPResponse acknowledges OTP issuance.
type RequestOTPResponse struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyOTPRequest exchanges an OTP code for an access token.
type VerifyOTPRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required,numeric"`
	FullName string `json:"full_name"`
	Mobile   string `json:"mobile_number"`
}

// LoginRequest authenticates doctors and admins with email and password.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse returns the issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Role        string    `json:"role"`
	IssuedAt    time.Time `json:"issued_at"`
}
