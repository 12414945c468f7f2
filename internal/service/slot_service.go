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

type slotAvailabilityRepository interface {
	FindByDoctorAndDay(ctx context.Context, doctorID string, dayOfWeek int) (*models.AvailabilityRule, error)
}

type slotAppointmentRepository interface {
	ListBookedStartTimes(ctx context.Context, doctorID, date string) ([]models.TimeOfDay, error)
}

type slotDoctorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

// SlotService derives bookable slots from availability rules. Slots are
// never stored; every read and every booking recomputes them from the rule,
// so a changed rule is reflected immediately and nothing can go stale.
type SlotService struct {
	availability slotAvailabilityRepository
	appointments slotAppointmentRepository
	doctors      slotDoctorRepository
	cache        *CacheService
	location     *time.Location
	cacheTTL     time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewSlotService constructs a SlotService. All wall-clock decisions use the
// provided location.
func NewSlotService(availability slotAvailabilityRepository, appointments slotAppointmentRepository, doctors slotDoctorRepository, cache *CacheService, location *time.Location, cacheTTL time.Duration, logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.Local
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &SlotService{
		availability: availability,
		appointments: appointments,
		doctors:      doctors,
		cache:        cache,
		location:     location,
		cacheTTL:     cacheTTL,
		logger:       logger,
		now:          time.Now,
	}
}

// GenerateSlots expands a rule into its slot grid for one day. Slots step
// from StartTime in fixed increments of the slot duration; a trailing
// remainder shorter than one slot is dropped, and any slot overlapping the
// break window is excluded without re-anchoring the grid after the break.
func GenerateSlots(rule *models.AvailabilityRule) ([]models.Slot, error) {
	if rule == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "availability rule required")
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	step := models.TimeOfDay(rule.SlotDurationMinutes * 60)
	slots := make([]models.Slot, 0, int((rule.EndTime-rule.StartTime)/step))
	for start := rule.StartTime; start+step <= rule.EndTime; start += step {
		end := start + step
		if rule.BreakStart != nil && start < *rule.BreakEnd && *rule.BreakStart < end {
			continue
		}
		slots = append(slots, models.Slot{StartTime: start, EndTime: end})
	}
	return slots, nil
}

// SlotKey is the cache key for one doctor's slot listing on one date.
func SlotKey(doctorID, date string) string {
	return fmt.Sprintf("slots:%s:%s", doctorID, date)
}

// GetSlots returns the slot listing for an approved doctor on a date, with
// booked and elapsed slots flagged unavailable. Listings are cached briefly
// and invalidated on every booking and availability change.
func (s *SlotService) GetSlots(ctx context.Context, doctorID, date string) (*dto.SlotListResponse, error) {
	day, err := s.parseDate(date)
	if err != nil {
		return nil, err
	}

	doctor, err := s.doctors.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch doctor")
	}
	if doctor.Status != models.DoctorApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
	}

	key := SlotKey(doctorID, date)
	if s.cache.Enabled() {
		var cached dto.SlotListResponse
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	rule, err := s.ruleForDay(ctx, doctorID, models.ISOWeekday(day))
	if err != nil {
		return nil, err
	}
	slots, err := GenerateSlots(rule)
	if err != nil {
		return nil, err
	}

	booked, err := s.appointments.ListBookedStartTimes(ctx, doctorID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch booked slots")
	}
	taken := make(map[models.TimeOfDay]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	cutoff, wholeDayElapsed := s.elapsedCutoff(day)
	items := make([]dto.SlotItem, 0, len(slots))
	for _, slot := range slots {
		_, isTaken := taken[slot.StartTime]
		elapsed := wholeDayElapsed || slot.StartTime <= cutoff
		items = append(items, dto.SlotItem{
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			Available: !isTaken && !elapsed,
		})
	}

	resp := &dto.SlotListResponse{DoctorID: doctorID, Date: date, Slots: items}
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			s.logger.Warn("slot cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return resp, nil
}

// AuthoritativeSlots recomputes the slot grid for a booking decision. It
// bypasses the cache so a booking is only ever validated against the current
// rule.
func (s *SlotService) AuthoritativeSlots(ctx context.Context, doctorID string, day time.Time) ([]models.Slot, error) {
	rule, err := s.ruleForDay(ctx, doctorID, models.ISOWeekday(day))
	if err != nil {
		return nil, err
	}
	return GenerateSlots(rule)
}

// InvalidateDate drops the cached listing for one doctor and date.
func (s *SlotService) InvalidateDate(ctx context.Context, doctorID, date string) {
	if err := s.cache.Delete(ctx, SlotKey(doctorID, date)); err != nil {
		s.logger.Warn("slot cache invalidation failed", zap.String("doctor_id", doctorID), zap.String("date", date), zap.Error(err))
	}
}

// InvalidateDoctor drops every cached listing for one doctor. Availability
// changes affect all future dates, so the whole keyspace goes.
func (s *SlotService) InvalidateDoctor(ctx context.Context, doctorID string) {
	if err := s.cache.Invalidate(ctx, SlotKey(doctorID, "*")); err != nil {
		s.logger.Warn("slot cache invalidation failed", zap.String("doctor_id", doctorID), zap.Error(err))
	}
}

// SlotElapsed reports whether a slot starting at start on the given day has
// already begun.
func (s *SlotService) SlotElapsed(day time.Time, start models.TimeOfDay) bool {
	cutoff, wholeDayElapsed := s.elapsedCutoff(day)
	return wholeDayElapsed || start <= cutoff
}

// ParseDate validates a YYYY-MM-DD date in the booking timezone.
func (s *SlotService) ParseDate(date string) (time.Time, error) {
	return s.parseDate(date)
}

func (s *SlotService) parseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.location)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	return day, nil
}

func (s *SlotService) ruleForDay(ctx context.Context, doctorID string, dayOfWeek int) (*models.AvailabilityRule, error) {
	rule, err := s.availability.FindByDoctorAndDay(ctx, doctorID, dayOfWeek)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrDoctorUnavailable, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch availability")
	}
	return rule, nil
}

// elapsedCutoff returns the time-of-day below which slots on the given date
// have already started. The bool is true when the entire date lies in the
// past.
func (s *SlotService) elapsedCutoff(day time.Time) (models.TimeOfDay, bool) {
	now := s.now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	switch {
	case day.Before(today):
		return 0, true
	case day.After(today):
		return -1, false
	default:
		return models.TimeOfDayFromClock(now), false
	}
}
