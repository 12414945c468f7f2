package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

type feedbackRepository interface {
	Create(ctx context.Context, fb *models.Feedback) error
	ExistsForAppointment(ctx context.Context, appointmentID string) (bool, error)
	ListByDoctor(ctx context.Context, doctorID string, limit int) ([]models.Feedback, error)
	AverageRating(ctx context.Context, doctorID string) (float64, error)
}

type feedbackAppointmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
}

// FeedbackService collects patient ratings. A rating is accepted only from
// the patient who attended the appointment, only once, and only after the
// appointment is completed.
type FeedbackService struct {
	feedback     feedbackRepository
	appointments feedbackAppointmentRepository
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(feedback feedbackRepository, appointments feedbackAppointmentRepository, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{feedback: feedback, appointments: appointments, validator: validate, logger: logger}
}

// Create records the patient's rating for a completed appointment.
func (s *FeedbackService) Create(ctx context.Context, patientEmail string, req dto.CreateFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	appt, err := s.appointments.FindByID(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch appointment")
	}
	if appt.Email != patientEmail {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to rate this appointment")
	}
	if appt.Status != models.AppointmentCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "feedback is allowed only for completed appointments")
	}

	exists, err := s.feedback.ExistsForAppointment(ctx, appt.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing feedback")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already submitted")
	}

	fb := &models.Feedback{
		ID:            uuid.NewString(),
		DoctorID:      appt.DoctorID,
		AppointmentID: appt.ID,
		PatientEmail:  patientEmail,
		Rating:        req.Rating,
		Comment:       req.Comment,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store feedback")
	}
	s.logger.Info("feedback recorded", zap.String("appointment_id", appt.ID), zap.Int("rating", req.Rating))
	return fb, nil
}

// ListForDoctor returns recent feedback and the average rating for a doctor.
func (s *FeedbackService) ListForDoctor(ctx context.Context, doctorID string, limit int) (*dto.DoctorFeedbackResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	items, err := s.feedback.ListByDoctor(ctx, doctorID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}
	avg, err := s.feedback.AverageRating(ctx, doctorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute average rating")
	}

	resp := &dto.DoctorFeedbackResponse{DoctorID: doctorID, AverageRating: avg, Items: make([]dto.FeedbackItem, 0, len(items))}
	for _, fb := range items {
		resp.Items = append(resp.Items, dto.FeedbackItem{
			Rating:    fb.Rating,
			Comment:   fb.Comment,
			CreatedAt: fb.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp, nil
}
