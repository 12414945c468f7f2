package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

type mockFeedbackRepo struct {
	created []*models.Feedback
	exists  bool
	items   []models.Feedback
	average float64
}

func (m *mockFeedbackRepo) Create(_ context.Context, fb *models.Feedback) error {
	m.created = append(m.created, fb)
	return nil
}

func (m *mockFeedbackRepo) ExistsForAppointment(_ context.Context, appointmentID string) (bool, error) {
	return m.exists, nil
}

func (m *mockFeedbackRepo) ListByDoctor(_ context.Context, doctorID string, limit int) ([]models.Feedback, error) {
	return m.items, nil
}

func (m *mockFeedbackRepo) AverageRating(_ context.Context, doctorID string) (float64, error) {
	return m.average, nil
}

type mockFeedbackApptRepo struct {
	appt *models.Appointment
}

func (m *mockFeedbackApptRepo) FindByID(_ context.Context, id string) (*models.Appointment, error) {
	if m.appt == nil || m.appt.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *m.appt
	return &copied, nil
}

func completedAppt() *models.Appointment {
	return &models.Appointment{
		ID:              "appt-1",
		DoctorID:        "doc-1",
		AppointmentDate: "2026-03-02",
		Email:           "pat@example.com",
		Status:          models.AppointmentCompleted,
	}
}

func feedbackReq(rating int) dto.CreateFeedbackRequest {
	return dto.CreateFeedbackRequest{AppointmentID: "appt-1", Rating: rating, Comment: "thanks"}
}

func TestFeedbackCreateForCompletedAppointment(t *testing.T) {
	repo := &mockFeedbackRepo{}
	svc := NewFeedbackService(repo, &mockFeedbackApptRepo{appt: completedAppt()}, nil, nil)

	fb, err := svc.Create(context.Background(), "pat@example.com", feedbackReq(5))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", fb.DoctorID)
	assert.Equal(t, 5, fb.Rating)
	require.Len(t, repo.created, 1)
}

func TestFeedbackCreateRejectsNonOwner(t *testing.T) {
	svc := NewFeedbackService(&mockFeedbackRepo{}, &mockFeedbackApptRepo{appt: completedAppt()}, nil, nil)

	_, err := svc.Create(context.Background(), "other@example.com", feedbackReq(4))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFeedbackCreateRequiresCompletedStatus(t *testing.T) {
	appt := completedAppt()
	appt.Status = models.AppointmentConfirmed
	svc := NewFeedbackService(&mockFeedbackRepo{}, &mockFeedbackApptRepo{appt: appt}, nil, nil)

	_, err := svc.Create(context.Background(), "pat@example.com", feedbackReq(4))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestFeedbackCreateOncePerAppointment(t *testing.T) {
	repo := &mockFeedbackRepo{exists: true}
	svc := NewFeedbackService(repo, &mockFeedbackApptRepo{appt: completedAppt()}, nil, nil)

	_, err := svc.Create(context.Background(), "pat@example.com", feedbackReq(3))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestFeedbackCreateRejectsOutOfRangeRating(t *testing.T) {
	svc := NewFeedbackService(&mockFeedbackRepo{}, &mockFeedbackApptRepo{appt: completedAppt()}, nil, nil)

	_, err := svc.Create(context.Background(), "pat@example.com", feedbackReq(6))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestFeedbackListForDoctorIncludesAverage(t *testing.T) {
	repo := &mockFeedbackRepo{
		items: []models.Feedback{
			{Rating: 5, Comment: "great", CreatedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)},
			{Rating: 4, Comment: "good", CreatedAt: time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)},
		},
		average: 4.5,
	}
	svc := NewFeedbackService(repo, &mockFeedbackApptRepo{}, nil, nil)

	resp, err := svc.ListForDoctor(context.Background(), "doc-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 4.5, resp.AverageRating)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "2026-03-02T12:00:00Z", resp.Items[0].CreatedAt)
}
