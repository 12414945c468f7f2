package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

type appointmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus) (int64, error)
}

// AppointmentService drives the appointment lifecycle. Every transition is a
// compare-and-set on the previously observed status, so two actors racing on
// the same appointment resolve to exactly one winner.
type AppointmentService struct {
	appointments  appointmentRepository
	slots         *SlotService
	notifications *NotificationService
	location      *time.Location
	logger        *zap.Logger
	now           func() time.Time
}

// NewAppointmentService constructs an AppointmentService.
func NewAppointmentService(appointments appointmentRepository, slots *SlotService, notifications *NotificationService, location *time.Location, logger *zap.Logger) *AppointmentService {
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{
		appointments:  appointments,
		slots:         slots,
		notifications: notifications,
		location:      location,
		logger:        logger,
		now:           time.Now,
	}
}

// UpdateStatus applies one lifecycle transition on behalf of the actor.
// Doctors confirm, reject and complete their own appointments; patients
// cancel their own pending ones. Completion additionally requires that the
// slot's end time has passed.
func (s *AppointmentService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, next models.AppointmentStatus) (*dto.AppointmentStatusResponse, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch appointment")
	}

	if err := s.authorize(actor, appt, next); err != nil {
		return nil, err
	}
	if !appt.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move from %s to %s", appt.Status, next))
	}
	if next == models.AppointmentCompleted {
		if err := s.checkCompletable(appt); err != nil {
			return nil, err
		}
	}

	rows, err := s.appointments.UpdateStatus(ctx, id, appt.Status, next)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "appointment was updated concurrently")
	}

	// Cancelling frees the slot for rebooking; a rejected appointment keeps
	// blocking it.
	if next == models.AppointmentCancelled {
		s.slots.InvalidateDate(ctx, appt.DoctorID, appt.AppointmentDate)
	}
	s.notifications.AppointmentStatusChanged(appt, next)
	s.logger.Info("appointment status updated",
		zap.String("appointment_id", id),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(next)))

	return &dto.AppointmentStatusResponse{AppointmentID: id, Status: next}, nil
}

// ListForDoctor returns the doctor's own appointments.
func (s *AppointmentService) ListForDoctor(ctx context.Context, doctorID string, filter models.AppointmentFilter) ([]models.Appointment, models.Pagination, error) {
	filter.DoctorID = doctorID
	filter.Email = ""
	return s.list(ctx, filter)
}

// ListForPatient returns the appointments booked under the patient's email.
func (s *AppointmentService) ListForPatient(ctx context.Context, email string, filter models.AppointmentFilter) ([]models.Appointment, models.Pagination, error) {
	filter.Email = email
	filter.DoctorID = ""
	return s.list(ctx, filter)
}

func (s *AppointmentService) list(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	appts, total, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appts, models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *AppointmentService) authorize(actor *models.JWTClaims, appt *models.Appointment, next models.AppointmentStatus) error {
	switch next {
	case models.AppointmentConfirmed, models.AppointmentRejected, models.AppointmentCompleted:
		if actor.Role == models.RoleDoctor && actor.UserID == appt.DoctorID {
			return nil
		}
	case models.AppointmentCancelled:
		if actor.Role == models.RolePatient && actor.Email == appt.Email {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "not allowed to update this appointment")
}

func (s *AppointmentService) checkCompletable(appt *models.Appointment) error {
	day, err := time.ParseInLocation("2006-01-02", appt.AppointmentDate, s.location)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored appointment date is malformed")
	}
	end := day.Add(time.Duration(appt.EndTime) * time.Second)
	if s.now().In(s.location).Before(end) {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "appointment cannot be completed before it ends")
	}
	return nil
}
