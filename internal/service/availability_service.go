package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

type availabilityRepository interface {
	ListByDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityRule, error)
	ReplaceForDoctor(ctx context.Context, doctorID string, rules []models.AvailabilityRule) error
}

// AvailabilityService manages a doctor's weekly rule set. A save replaces
// the whole set atomically; existing appointments are untouched, only future
// slot derivation changes.
type AvailabilityService struct {
	rules     availabilityRepository
	slots     *SlotService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(rules availabilityRepository, slots *SlotService, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{rules: rules, slots: slots, validator: validate, logger: logger}
}

// Save replaces the doctor's weekly availability and drops every cached slot
// listing for that doctor.
func (s *AvailabilityService) Save(ctx context.Context, doctorID string, req dto.SaveAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	now := time.Now().UTC()
	seen := make(map[int]struct{}, len(req.Rules))
	rules := make([]models.AvailabilityRule, 0, len(req.Rules))
	for _, item := range req.Rules {
		if _, dup := seen[item.DayOfWeek]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate rule for day_of_week %d", item.DayOfWeek))
		}
		seen[item.DayOfWeek] = struct{}{}

		rule, err := s.buildRule(doctorID, item, now)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}

	if err := s.rules.ReplaceForDoctor(ctx, doctorID, rules); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability")
	}
	s.slots.InvalidateDoctor(ctx, doctorID)
	s.logger.Info("availability replaced", zap.String("doctor_id", doctorID), zap.Int("rules", len(rules)))

	return s.Get(ctx, doctorID)
}

// Get returns the doctor's persisted weekly rules.
func (s *AvailabilityService) Get(ctx context.Context, doctorID string) (*dto.AvailabilityResponse, error) {
	rules, err := s.rules.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch availability")
	}
	return &dto.AvailabilityResponse{DoctorID: doctorID, Rules: rules}, nil
}

func (s *AvailabilityService) buildRule(doctorID string, item dto.AvailabilityRuleRequest, now time.Time) (*models.AvailabilityRule, error) {
	start, err := models.ParseTimeOfDay(item.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be formatted HH:MM")
	}
	end, err := models.ParseTimeOfDay(item.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be formatted HH:MM")
	}
	rule := &models.AvailabilityRule{
		ID:                  uuid.NewString(),
		DoctorID:            doctorID,
		DayOfWeek:           item.DayOfWeek,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: item.SlotDurationMinutes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if item.BreakStart != nil {
		bs, err := models.ParseTimeOfDay(*item.BreakStart)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "break_start must be formatted HH:MM")
		}
		rule.BreakStart = &bs
	}
	if item.BreakEnd != nil {
		be, err := models.ParseTimeOfDay(*item.BreakEnd)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "break_end must be formatted HH:MM")
		}
		rule.BreakEnd = &be
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}
