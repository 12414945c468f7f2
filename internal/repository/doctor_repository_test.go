package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/careslot-api/internal/models"
)

func TestDoctorRepositoryCreateDefaultsPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDoctorRepository(db)

	mock.ExpectExec("INSERT INTO doctors").
		WillReturnResult(sqlmock.NewResult(1, 1))

	doctor := &models.Doctor{
		Email:          "doc@example.com",
		PasswordHash:   "hash",
		FullName:       "Dr. Grace Hopper",
		Specialization: "cardiology",
		LicenseNumber:  "LIC-1",
		Phone:          "5550002",
	}
	require.NoError(t, repo.Create(context.Background(), doctor))
	assert.Equal(t, models.DoctorPending, doctor.Status)
	assert.NotEmpty(t, doctor.ID)
}

func TestDoctorRepositoryUpdateStatusOnlyPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDoctorRepository(db)

	mock.ExpectExec("UPDATE doctors SET status").
		WithArgs("doc-1", models.DoctorApproved, "admin-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.UpdateStatus(context.Background(), "doc-1", models.DoctorApproved, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestDoctorRepositoryListFiltersBySpecialization(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDoctorRepository(db)

	now := time.Now()
	status := models.DoctorApproved
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "specialization", "license_number", "phone", "status", "reviewed_by", "reviewed_at", "created_at", "updated_at"}).
		AddRow("doc-1", "doc@example.com", "hash", "Dr. Grace Hopper", "cardiology", "LIC-1", "5550002", "approved", nil, nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM doctors").
		WithArgs("cardiology", status).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("cardiology", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	doctors, total, err := repo.List(context.Background(), models.DoctorFilter{Specialization: "cardiology", Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, doctors, 1)
	assert.Equal(t, models.DoctorApproved, doctors[0].Status)
}
