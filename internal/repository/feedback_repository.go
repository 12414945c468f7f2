package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careslot/careslot-api/internal/models"
)

// FeedbackRepository handles persistence for appointment feedback.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository instantiates a feedback repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts a feedback record.
func (r *FeedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	fb.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO feedback (id, doctor_id, appointment_id, patient_email, rating, comment, created_at)
		VALUES (:id, :doctor_id, :appointment_id, :patient_email, :rating, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fb); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// ExistsForAppointment checks whether feedback was already left.
func (r *FeedbackRepository) ExistsForAppointment(ctx context.Context, appointmentID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM feedback WHERE appointment_id = $1 LIMIT 1`, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check feedback existence: %w", err)
	}
	return true, nil
}

// ListByDoctor returns a doctor's feedback, newest first.
func (r *FeedbackRepository) ListByDoctor(ctx context.Context, doctorID string, limit int) ([]models.Feedback, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, doctor_id, appointment_id, patient_email, rating, comment, created_at
		FROM feedback WHERE doctor_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var items []models.Feedback
	if err := r.db.SelectContext(ctx, &items, query, doctorID); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}

// AverageRating computes the doctor's mean rating; zero when unrated.
func (r *FeedbackRepository) AverageRating(ctx context.Context, doctorID string) (float64, error) {
	var avg float64
	err := r.db.GetContext(ctx, &avg, `SELECT COALESCE(AVG(rating), 0) FROM feedback WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	return avg, nil
}
