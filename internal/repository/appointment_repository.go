package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

const appointmentColumns = `id, doctor_id, appointment_date::text AS appointment_date, start_time, end_time, first_name, last_name, email, mobile_number, status, created_at, updated_at`

// AppointmentRepository handles persistence for appointments.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository instantiates an appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// CreateIfSlotFree atomically checks the (doctor, date, start_time) key for an
// active appointment and inserts the new row in the same transaction.
// Concurrent attempts on one slot serialize on the row lock; losers get
// ErrSlotTaken. The partial unique index uq_appointments_active_slot catches
// the insert race between two transactions that both saw an empty key.
func (r *AppointmentRepository) CreateIfSlotFree(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	appt.Status = models.AppointmentPending

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existing string
	err = tx.GetContext(ctx, &existing,
		`SELECT id FROM appointments WHERE doctor_id = $1 AND appointment_date = $2 AND start_time = $3 AND status <> 'cancelled' FOR UPDATE`,
		appt.DoctorID, appt.AppointmentDate, appt.StartTime)
	if err == nil {
		err = appErrors.ErrSlotTaken
		return err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("check slot occupancy: %w", err)
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO appointments (id, doctor_id, appointment_date, start_time, end_time, first_name, last_name, email, mobile_number, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		appt.ID, appt.DoctorID, appt.AppointmentDate, appt.StartTime, appt.EndTime,
		appt.FirstName, appt.LastName, appt.Email, appt.MobileNumber, appt.Status,
		appt.CreatedAt, appt.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			err = appErrors.ErrSlotTaken
			return err
		}
		err = fmt.Errorf("insert appointment: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit booking tx: %w", err)
		return err
	}
	return nil
}

// FindByID loads an appointment by identifier.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListBookedStartTimes returns the start offsets of active
// appointments for the doctor and date, used to mark slots unavailable.
func (r *AppointmentRepository) ListBookedStartTimes(ctx context.Context, doctorID, date string) ([]models.TimeOfDay, error) {
	var starts []models.TimeOfDay
	err := r.db.SelectContext(ctx, &starts,
		`SELECT start_time FROM appointments WHERE doctor_id = $1 AND appointment_date = $2 AND status <> 'cancelled' ORDER BY start_time`,
		doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list booked start times: %w", err)
	}
	return starts, nil
}

// List returns appointments matching the filter with pagination.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	base := "FROM appointments WHERE 1=1"
	var args []interface{}

	if filter.DoctorID != "" {
		args = append(args, filter.DoctorID)
		base += fmt.Sprintf(" AND doctor_id = $%d", len(args))
	}
	if filter.Email != "" {
		args = append(args, filter.Email)
		base += fmt.Sprintf(" AND email = $%d", len(args))
	}
	if filter.Date != "" {
		args = append(args, filter.Date)
		base += fmt.Sprintf(" AND appointment_date = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND status = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY appointment_date DESC, start_time ASC LIMIT %d OFFSET %d", appointmentColumns, base, size, offset)

	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appts, total, nil
}

// ListByDoctorRange returns appointments for a doctor between two dates
// inclusive, ordered for export rendering.
func (r *AppointmentRepository) ListByDoctorRange(ctx context.Context, doctorID, dateFrom, dateTo string) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE doctor_id = $1 AND appointment_date BETWEEN $2 AND $3 ORDER BY appointment_date, start_time`, appointmentColumns)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, doctorID, dateFrom, dateTo); err != nil {
		return nil, fmt.Errorf("list appointments by range: %w", err)
	}
	return appts, nil
}

// UpdateStatus performs a compare-and-swap transition: the update applies
// only while the row still holds the expected status. Returns the number of
// rows affected; zero means a concurrent actor moved the row first.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, from, to models.AppointmentStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("update appointment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read affected rows: %w", err)
	}
	return affected, nil
}
