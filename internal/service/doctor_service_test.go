package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

type mockDoctorRepo struct {
	byEmail    map[string]*models.Doctor
	byID       map[string]*models.Doctor
	created    []*models.Doctor
	listResult []models.Doctor
	listTotal  int
	lastFilter models.DoctorFilter
	casRows    int64
	lastStatus models.DoctorStatus
}

func (m *mockDoctorRepo) Create(_ context.Context, doctor *models.Doctor) error {
	m.created = append(m.created, doctor)
	return nil
}

func (m *mockDoctorRepo) FindByID(_ context.Context, id string) (*models.Doctor, error) {
	if d, ok := m.byID[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDoctorRepo) FindByEmail(_ context.Context, email string) (*models.Doctor, error) {
	if d, ok := m.byEmail[email]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDoctorRepo) List(_ context.Context, filter models.DoctorFilter) ([]models.Doctor, int, error) {
	m.lastFilter = filter
	return m.listResult, m.listTotal, nil
}

func (m *mockDoctorRepo) UpdateStatus(_ context.Context, id string, status models.DoctorStatus, reviewedBy string) (int64, error) {
	m.lastStatus = status
	return m.casRows, nil
}

func registerReq() dto.RegisterDoctorRequest {
	return dto.RegisterDoctorRequest{
		Email:          "doc@example.com",
		Password:       "s3cret-pass",
		FullName:       "Dr. Demo",
		Specialization: "cardiology",
		LicenseNumber:  "LIC-42",
		Phone:          "+6281234567",
	}
}

func TestRegisterCreatesPendingDoctor(t *testing.T) {
	repo := &mockDoctorRepo{}
	svc := NewDoctorService(repo, nil, nil, nil)

	doctor, err := svc.Register(context.Background(), registerReq())
	require.NoError(t, err)
	assert.Equal(t, models.DoctorPending, doctor.Status)
	assert.NotEmpty(t, doctor.ID)
	require.Len(t, repo.created, 1)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(doctor.PasswordHash), []byte("s3cret-pass")))
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := &mockDoctorRepo{byEmail: map[string]*models.Doctor{
		"doc@example.com": {ID: "doc-1", Email: "doc@example.com"},
	}}
	svc := NewDoctorService(repo, nil, nil, nil)

	_, err := svc.Register(context.Background(), registerReq())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestListPublicForcesApprovedFilter(t *testing.T) {
	repo := &mockDoctorRepo{listResult: []models.Doctor{{ID: "doc-1", FullName: "Dr. Demo"}}, listTotal: 1}
	svc := NewDoctorService(repo, nil, nil, nil)

	rejected := models.DoctorRejected
	items, pagination, err := svc.ListPublic(context.Background(), models.DoctorFilter{Status: &rejected})
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.Status)
	assert.Equal(t, models.DoctorApproved, *repo.lastFilter.Status)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestGetPublicHidesPendingDoctor(t *testing.T) {
	repo := &mockDoctorRepo{byID: map[string]*models.Doctor{
		"doc-1": {ID: "doc-1", Status: models.DoctorPending},
	}}
	svc := NewDoctorService(repo, nil, nil, nil)

	_, err := svc.GetPublic(context.Background(), "doc-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReviewApprovesPendingDoctor(t *testing.T) {
	repo := &mockDoctorRepo{
		byID:    map[string]*models.Doctor{"doc-1": {ID: "doc-1", Status: models.DoctorPending}},
		casRows: 1,
	}
	svc := NewDoctorService(repo, nil, nil, nil)

	doctor, err := svc.Review(context.Background(), "admin-1", "doc-1", true)
	require.NoError(t, err)
	assert.Equal(t, models.DoctorApproved, doctor.Status)
	assert.Equal(t, models.DoctorApproved, repo.lastStatus)
}

func TestReviewAlreadyReviewedConflicts(t *testing.T) {
	repo := &mockDoctorRepo{byID: map[string]*models.Doctor{
		"doc-1": {ID: "doc-1", Status: models.DoctorApproved},
	}}
	svc := NewDoctorService(repo, nil, nil, nil)

	_, err := svc.Review(context.Background(), "admin-1", "doc-1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReviewRaceLostConflicts(t *testing.T) {
	repo := &mockDoctorRepo{
		byID:    map[string]*models.Doctor{"doc-1": {ID: "doc-1", Status: models.DoctorPending}},
		casRows: 0,
	}
	svc := NewDoctorService(repo, nil, nil, nil)

	_, err := svc.Review(context.Background(), "admin-1", "doc-1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
