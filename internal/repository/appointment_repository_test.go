package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func pendingAppointment() *models.Appointment {
	start, _ := models.ParseTimeOfDay("09:00")
	end, _ := models.ParseTimeOfDay("09:30")
	return &models.Appointment{
		DoctorID:        "doc-1",
		AppointmentDate: "2026-09-07",
		StartTime:       start,
		EndTime:         end,
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.com",
		MobileNumber:    "5550001",
	}
}

func TestAppointmentRepositoryCreateIfSlotFree(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM appointments").
		WithArgs("doc-1", "2026-09-07", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	appt := pendingAppointment()
	require.NoError(t, repo.CreateIfSlotFree(context.Background(), appt))
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, models.AppointmentPending, appt.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCreateIfSlotFreeOccupied(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM appointments").
		WithArgs("doc-1", "2026-09-07", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-appt"))
	mock.ExpectRollback()

	err := repo.CreateIfSlotFree(context.Background(), pendingAppointment())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSlotTaken))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryListBookedStartTimes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	rows := sqlmock.NewRows([]string{"start_time"}).
		AddRow("09:00:00").
		AddRow("10:30:00")
	mock.ExpectQuery("SELECT start_time FROM appointments").
		WithArgs("doc-1", "2026-09-07").
		WillReturnRows(rows)

	starts, err := repo.ListBookedStartTimes(context.Background(), "doc-1", "2026-09-07")
	require.NoError(t, err)
	require.Len(t, starts, 2)
	assert.Equal(t, "09:00:00", starts[0].String())
	assert.Equal(t, "10:30:00", starts[1].String())
}

func TestAppointmentRepositoryUpdateStatusCAS(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs("appt-1", models.AppointmentPending, models.AppointmentConfirmed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.UpdateStatus(context.Background(), "appt-1", models.AppointmentPending, models.AppointmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestAppointmentRepositoryUpdateStatusRaceLost(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs("appt-1", models.AppointmentPending, models.AppointmentRejected, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.UpdateStatus(context.Background(), "appt-1", models.AppointmentPending, models.AppointmentRejected)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestAppointmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "doctor_id", "appointment_date", "start_time", "end_time", "first_name", "last_name", "email", "mobile_number", "status", "created_at", "updated_at"}).
		AddRow("appt-1", "doc-1", "2026-09-07", "09:00:00", "09:30:00", "Ada", "Lovelace", "ada@example.com", "5550001", "pending", now, now)
	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id").
		WithArgs("appt-1").
		WillReturnRows(rows)

	appt, err := repo.FindByID(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-07", appt.AppointmentDate)
	assert.Equal(t, "09:00:00", appt.StartTime.String())
	assert.Equal(t, models.AppointmentPending, appt.Status)
}
