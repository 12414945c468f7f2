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

type bookingAppointmentRepository interface {
	CreateIfSlotFree(ctx context.Context, appt *models.Appointment) error
}

type bookingDoctorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

// BookingService owns the booking decision. Submitted slot boundaries are
// never trusted; they must match a slot recomputed from the doctor's current
// rule, and the insert itself revalidates occupancy under a row lock so two
// racing requests for the same slot cannot both succeed.
type BookingService struct {
	appointments  bookingAppointmentRepository
	doctors       bookingDoctorRepository
	slots         *SlotService
	notifications *NotificationService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewBookingService constructs a BookingService.
func NewBookingService(appointments bookingAppointmentRepository, doctors bookingDoctorRepository, slots *SlotService, notifications *NotificationService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		appointments:  appointments,
		doctors:       doctors,
		slots:         slots,
		notifications: notifications,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// BookSlot books one slot as a pending appointment. Checks run in a fixed
// order so clients get the most specific error: payload shape, doctor
// visibility, slot validity against the current rule, slot not elapsed, and
// finally occupancy inside the insert transaction.
func (s *BookingService) BookSlot(ctx context.Context, req dto.BookSlotRequest) (*dto.BookSlotResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	day, err := s.slots.ParseDate(req.AppointmentDate)
	if err != nil {
		return nil, err
	}
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be formatted HH:MM")
	}
	end, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be formatted HH:MM")
	}

	doctor, err := s.doctors.FindByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch doctor")
	}
	if doctor.Status != models.DoctorApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
	}

	generated, err := s.slots.AuthoritativeSlots(ctx, req.DoctorID, day)
	if err != nil {
		return nil, err
	}
	if !matchesGeneratedSlot(generated, start, end) {
		s.metrics.RecordBooking("invalid_slot")
		return nil, appErrors.Clone(appErrors.ErrInvalidSlot, "slot does not match the doctor's schedule")
	}
	if s.slots.SlotElapsed(day, start) {
		s.metrics.RecordBooking("invalid_slot")
		return nil, appErrors.Clone(appErrors.ErrInvalidSlot, "slot has already started")
	}

	now := time.Now().UTC()
	appt := &models.Appointment{
		ID:              uuid.NewString(),
		DoctorID:        req.DoctorID,
		AppointmentDate: req.AppointmentDate,
		StartTime:       start,
		EndTime:         end,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		MobileNumber:    req.MobileNumber,
		Status:          models.AppointmentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.appointments.CreateIfSlotFree(ctx, appt); err != nil {
		if errors.Is(err, appErrors.ErrSlotTaken) {
			s.metrics.RecordBooking("slot_taken")
			return nil, appErrors.Clone(appErrors.ErrSlotTaken, "")
		}
		s.metrics.RecordBooking("error")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to book slot")
	}

	s.metrics.RecordBooking("booked")
	s.slots.InvalidateDate(ctx, req.DoctorID, req.AppointmentDate)
	s.notifications.AppointmentBooked(appt, doctor)
	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("doctor_id", appt.DoctorID),
		zap.String("date", appt.AppointmentDate),
		zap.String("start_time", appt.StartTime.String()))

	return &dto.BookSlotResponse{AppointmentID: appt.ID, Status: appt.Status}, nil
}

func matchesGeneratedSlot(slots []models.Slot, start, end models.TimeOfDay) bool {
	for _, slot := range slots {
		if slot.StartTime == start && slot.EndTime == end {
			return true
		}
	}
	return false
}
