package dto

// CreateFeedbackRequest rates a completed appointment.
type CreateFeedbackRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	Rating        int    `json:"rating" validate:"required,min=1,max=5"`
	Comment       string `json:"comment" validate:"max=1000"`
}

// DoctorFeedbackResponse lists a doctor's feedback with the average rating.
type DoctorFeedbackResponse struct {
	DoctorID      string         `json:"doctor_id"`
	AverageRating float64        `json:"average_rating"`
	Items         []FeedbackItem `json:"items"`
}

// FeedbackItem is one rating in a doctor's feedback listing.
type FeedbackItem struct {
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at"`
}
