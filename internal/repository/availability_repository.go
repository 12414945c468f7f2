package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/careslot/careslot-api/internal/models"
)

const availabilityColumns = `id, doctor_id, day_of_week, start_time, end_time, break_start, break_end, slot_duration_minutes, created_at, updated_at`

// AvailabilityRepository handles persistence for weekly availability rules.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository instantiates an availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// FindByDoctorAndDay loads the rule for one weekday, if any.
func (r *AvailabilityRepository) FindByDoctorAndDay(ctx context.Context, doctorID string, dayOfWeek int) (*models.AvailabilityRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_rules WHERE doctor_id = $1 AND day_of_week = $2`, availabilityColumns)
	var rule models.AvailabilityRule
	if err := r.db.GetContext(ctx, &rule, query, doctorID, dayOfWeek); err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListByDoctor returns the doctor's full weekly rule set ordered by weekday.
func (r *AvailabilityRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.AvailabilityRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_rules WHERE doctor_id = $1 ORDER BY day_of_week`, availabilityColumns)
	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, doctorID); err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}

// ReplaceForDoctor swaps the doctor's weekly rules in one transaction.
// Each rule upserts on (doctor_id, day_of_week); weekdays missing from the
// new set are removed so the save is a full replace.
func (r *AvailabilityRepository) ReplaceForDoctor(ctx context.Context, doctorID string, rules []models.AvailabilityRule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin availability tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	days := make([]int, 0, len(rules))
	now := time.Now().UTC()
	for i := range rules {
		rule := &rules[i]
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		rule.DoctorID = doctorID
		rule.CreatedAt = now
		rule.UpdatedAt = now
		days = append(days, rule.DayOfWeek)

		_, err = tx.ExecContext(ctx,
			`INSERT INTO availability_rules (id, doctor_id, day_of_week, start_time, end_time, break_start, break_end, slot_duration_minutes, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (doctor_id, day_of_week) DO UPDATE SET
			   start_time = EXCLUDED.start_time,
			   end_time = EXCLUDED.end_time,
			   break_start = EXCLUDED.break_start,
			   break_end = EXCLUDED.break_end,
			   slot_duration_minutes = EXCLUDED.slot_duration_minutes,
			   updated_at = EXCLUDED.updated_at`,
			rule.ID, rule.DoctorID, rule.DayOfWeek, rule.StartTime, rule.EndTime,
			rule.BreakStart, rule.BreakEnd, rule.SlotDurationMinutes, rule.CreatedAt, rule.UpdatedAt)
		if err != nil {
			err = fmt.Errorf("upsert availability rule day %d: %w", rule.DayOfWeek, err)
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM availability_rules WHERE doctor_id = $1 AND day_of_week <> ALL($2)`,
		doctorID, pq.Array(days))
	if err != nil {
		err = fmt.Errorf("prune availability rules: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit availability tx: %w", err)
		return err
	}
	return nil
}
