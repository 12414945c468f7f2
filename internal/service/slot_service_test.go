package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

func tod(t *testing.T, v string) models.TimeOfDay {
	t.Helper()
	parsed, err := models.ParseTimeOfDay(v)
	require.NoError(t, err)
	return parsed
}

func todPtr(t *testing.T, v string) *models.TimeOfDay {
	t.Helper()
	parsed := tod(t, v)
	return &parsed
}

func workdayRule(t *testing.T) *models.AvailabilityRule {
	t.Helper()
	return &models.AvailabilityRule{
		ID:                  "rule-1",
		DoctorID:            "doc-1",
		DayOfWeek:           1,
		StartTime:           tod(t, "09:00"),
		EndTime:             tod(t, "17:00"),
		BreakStart:          todPtr(t, "13:00"),
		BreakEnd:            todPtr(t, "14:00"),
		SlotDurationMinutes: 30,
	}
}

func TestGenerateSlotsSkipsBreakWindow(t *testing.T) {
	slots, err := GenerateSlots(workdayRule(t))
	require.NoError(t, err)

	// 16 half-hour slots fit between 09:00 and 17:00; the 13:00 and 13:30
	// slots fall inside the break.
	require.Len(t, slots, 14)
	assert.Equal(t, tod(t, "09:00"), slots[0].StartTime)
	assert.Equal(t, tod(t, "09:30"), slots[0].EndTime)
	for _, slot := range slots {
		overlapsBreak := slot.StartTime < tod(t, "14:00") && tod(t, "13:00") < slot.EndTime
		assert.False(t, overlapsBreak, "slot %s overlaps break", slot.StartTime)
	}
	// The grid resumes on its original anchor after the break.
	assert.Equal(t, tod(t, "14:00"), slots[8].StartTime)
	assert.Equal(t, tod(t, "16:30"), slots[len(slots)-1].StartTime)
}

func TestGenerateSlotsDropsTrailingRemainder(t *testing.T) {
	rule := workdayRule(t)
	rule.BreakStart = nil
	rule.BreakEnd = nil
	rule.EndTime = tod(t, "10:45")

	slots, err := GenerateSlots(rule)
	require.NoError(t, err)

	// 09:00-10:45 holds three full half-hour slots; the 15 minute tail is
	// not offered.
	require.Len(t, slots, 3)
	assert.Equal(t, tod(t, "10:00"), slots[2].StartTime)
	assert.Equal(t, tod(t, "10:30"), slots[2].EndTime)
}

func TestGenerateSlotsPartialBreakOverlapExcluded(t *testing.T) {
	rule := workdayRule(t)
	rule.BreakStart = todPtr(t, "12:45")
	rule.BreakEnd = todPtr(t, "13:15")

	slots, err := GenerateSlots(rule)
	require.NoError(t, err)

	// Both the 12:30 and 13:00 slots touch the break window.
	for _, slot := range slots {
		assert.NotEqual(t, tod(t, "12:30"), slot.StartTime)
		assert.NotEqual(t, tod(t, "13:00"), slot.StartTime)
	}
	// 13:30 clears the break and stays on the original grid.
	found := false
	for _, slot := range slots {
		if slot.StartTime == tod(t, "13:30") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGenerateSlotsDeterministic(t *testing.T) {
	first, err := GenerateSlots(workdayRule(t))
	require.NoError(t, err)
	second, err := GenerateSlots(workdayRule(t))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateSlotsInvalidRule(t *testing.T) {
	rule := workdayRule(t)
	rule.StartTime = tod(t, "17:00")
	rule.EndTime = tod(t, "09:00")

	_, err := GenerateSlots(rule)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

type mockSlotAvailabilityRepo struct {
	rules map[int]*models.AvailabilityRule
}

func (m *mockSlotAvailabilityRepo) FindByDoctorAndDay(_ context.Context, _ string, dayOfWeek int) (*models.AvailabilityRule, error) {
	rule, ok := m.rules[dayOfWeek]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rule, nil
}

type mockSlotAppointmentRepo struct {
	booked []models.TimeOfDay
}

func (m *mockSlotAppointmentRepo) ListBookedStartTimes(_ context.Context, _, _ string) ([]models.TimeOfDay, error) {
	return m.booked, nil
}

type mockSlotDoctorRepo struct {
	doctors map[string]*models.Doctor
}

func (m *mockSlotDoctorRepo) FindByID(_ context.Context, id string) (*models.Doctor, error) {
	doctor, ok := m.doctors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return doctor, nil
}

func newSlotFixture(t *testing.T, booked []models.TimeOfDay, status models.DoctorStatus) *SlotService {
	t.Helper()
	svc := NewSlotService(
		&mockSlotAvailabilityRepo{rules: map[int]*models.AvailabilityRule{1: workdayRule(t)}},
		&mockSlotAppointmentRepo{booked: booked},
		&mockSlotDoctorRepo{doctors: map[string]*models.Doctor{"doc-1": {ID: "doc-1", Status: status}}},
		nil,
		time.UTC,
		time.Minute,
		nil,
	)
	// 2026-03-02 is a Monday.
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 10, 5, 0, 0, time.UTC) }
	return svc
}

func TestGetSlotsFlagsBookedAndElapsed(t *testing.T) {
	svc := newSlotFixture(t, []models.TimeOfDay{tod(t, "14:00")}, models.DoctorApproved)

	resp, err := svc.GetSlots(context.Background(), "doc-1", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, resp.Slots, 14)

	byStart := make(map[models.TimeOfDay]bool, len(resp.Slots))
	for _, slot := range resp.Slots {
		byStart[slot.StartTime] = slot.Available
	}
	assert.False(t, byStart[tod(t, "09:30")], "elapsed slot should be unavailable")
	assert.False(t, byStart[tod(t, "10:00")], "slot that already started should be unavailable")
	assert.True(t, byStart[tod(t, "10:30")])
	assert.False(t, byStart[tod(t, "14:00")], "booked slot should be unavailable")
	assert.True(t, byStart[tod(t, "14:30")])
}

func TestGetSlotsFutureDateAllAvailable(t *testing.T) {
	svc := newSlotFixture(t, nil, models.DoctorApproved)

	resp, err := svc.GetSlots(context.Background(), "doc-1", "2026-03-09")
	require.NoError(t, err)
	for _, slot := range resp.Slots {
		assert.True(t, slot.Available)
	}
}

func TestGetSlotsNoRuleForDay(t *testing.T) {
	svc := newSlotFixture(t, nil, models.DoctorApproved)

	// 2026-03-03 is a Tuesday and the fixture only has a Monday rule.
	_, err := svc.GetSlots(context.Background(), "doc-1", "2026-03-03")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDoctorUnavailable.Code, appErrors.FromError(err).Code)
}

func TestGetSlotsUnapprovedDoctorHidden(t *testing.T) {
	svc := newSlotFixture(t, nil, models.DoctorPending)

	_, err := svc.GetSlots(context.Background(), "doc-1", "2026-03-02")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGetSlotsRejectsMalformedDate(t *testing.T) {
	svc := newSlotFixture(t, nil, models.DoctorApproved)

	_, err := svc.GetSlots(context.Background(), "doc-1", "02-03-2026")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSlotElapsed(t *testing.T) {
	svc := newSlotFixture(t, nil, models.DoctorApproved)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	assert.True(t, svc.SlotElapsed(day, tod(t, "10:00")))
	assert.False(t, svc.SlotElapsed(day, tod(t, "10:30")))
	assert.True(t, svc.SlotElapsed(day.AddDate(0, 0, -1), tod(t, "23:30")))
	assert.False(t, svc.SlotElapsed(day.AddDate(0, 0, 1), tod(t, "00:00")))
}
