package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
	"github.com/careslot/careslot-api/pkg/jobs"
)

type mockExportJobStore struct {
	jobs       map[string]*models.ExportJob
	processing []string
	finished   map[string]string
	failed     map[string]string
}

func newMockExportJobStore() *mockExportJobStore {
	return &mockExportJobStore{
		jobs:     map[string]*models.ExportJob{},
		finished: map[string]string{},
		failed:   map[string]string{},
	}
}

func (m *mockExportJobStore) Create(_ context.Context, job *models.ExportJob) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockExportJobStore) FindByID(_ context.Context, id string) (*models.ExportJob, error) {
	if job, ok := m.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, os.ErrNotExist
}

func (m *mockExportJobStore) MarkProcessing(_ context.Context, id string) error {
	m.processing = append(m.processing, id)
	return nil
}

func (m *mockExportJobStore) MarkFinished(_ context.Context, id, filePath string) error {
	m.finished[id] = filePath
	if job, ok := m.jobs[id]; ok {
		job.Status = models.ExportStatusFinished
		job.FilePath = &filePath
	}
	return nil
}

func (m *mockExportJobStore) MarkFailed(_ context.Context, id, message string) error {
	m.failed[id] = message
	return nil
}

type mockExportApptRepo struct {
	appts []models.Appointment
}

func (m *mockExportApptRepo) ListByDoctorRange(_ context.Context, doctorID, dateFrom, dateTo string) ([]models.Appointment, error) {
	return m.appts, nil
}

type mockExportDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockExportDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockFileStorage struct {
	saved map[string][]byte
}

func (m *mockFileStorage) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockFileStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *mockFileStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

func exportReq(format models.ExportFormat) dto.CreateExportRequest {
	return dto.CreateExportRequest{Format: format, DateFrom: "2026-03-01", DateTo: "2026-03-07"}
}

func TestExportCreateQueuesJob(t *testing.T) {
	store := newMockExportJobStore()
	dispatcher := &mockExportDispatcher{}
	svc := NewExportService(store, &mockExportApptRepo{}, dispatcher, &mockFileStorage{}, nil, nil, nil, ExportConfig{})

	resp, err := svc.Create(context.Background(), "doc-1", exportReq(models.ExportFormatCSV))
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, resp.ID, dispatcher.enqueued[0].ID)
	assert.Equal(t, "schedule_export", dispatcher.enqueued[0].Type)
}

func TestExportCreateRejectsInvertedRange(t *testing.T) {
	svc := NewExportService(newMockExportJobStore(), &mockExportApptRepo{}, &mockExportDispatcher{}, &mockFileStorage{}, nil, nil, nil, ExportConfig{})

	req := dto.CreateExportRequest{Format: models.ExportFormatCSV, DateFrom: "2026-03-07", DateTo: "2026-03-01"}
	_, err := svc.Create(context.Background(), "doc-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportCreateMarksFailedWhenQueueDown(t *testing.T) {
	store := newMockExportJobStore()
	dispatcher := &mockExportDispatcher{err: errors.New("broker down")}
	svc := NewExportService(store, &mockExportApptRepo{}, dispatcher, &mockFileStorage{}, nil, nil, nil, ExportConfig{})

	_, err := svc.Create(context.Background(), "doc-1", exportReq(models.ExportFormatCSV))
	require.Error(t, err)
	require.Len(t, store.failed, 1)
}

func TestExportGetHidesForeignJob(t *testing.T) {
	store := newMockExportJobStore()
	store.jobs["job-1"] = &models.ExportJob{ID: "job-1", DoctorID: "doc-2", Status: models.ExportStatusQueued}
	svc := NewExportService(store, &mockExportApptRepo{}, &mockExportDispatcher{}, &mockFileStorage{}, nil, nil, nil, ExportConfig{})

	_, err := svc.Get(context.Background(), "doc-1", "job-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportWorkerRendersCSV(t *testing.T) {
	store := newMockExportJobStore()
	store.jobs["job-1"] = &models.ExportJob{
		ID:       "job-1",
		DoctorID: "doc-1",
		Format:   models.ExportFormatCSV,
		DateFrom: "2026-03-01",
		DateTo:   "2026-03-07",
		Status:   models.ExportStatusQueued,
	}
	appts := &mockExportApptRepo{appts: []models.Appointment{{
		AppointmentDate: "2026-03-02",
		StartTime:       tod(t, "09:00"),
		EndTime:         tod(t, "09:30"),
		FirstName:       "Pat",
		LastName:        "Lee",
		Email:           "pat@example.com",
		Status:          models.AppointmentConfirmed,
	}}}
	files := &mockFileStorage{}
	worker := NewExportWorker(store, appts, files, nil, nil, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Type: "schedule_export"})
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, store.processing)

	path, ok := store.finished["job-1"]
	require.True(t, ok)
	payload := string(files.saved[path])
	assert.True(t, strings.HasPrefix(payload, "Date,Start,End,Patient,Email,Status"))
	assert.Contains(t, payload, "2026-03-02,09:00:00,09:30:00,Pat Lee,pat@example.com,confirmed")
}

func TestExportWorkerRendersPDF(t *testing.T) {
	store := newMockExportJobStore()
	store.jobs["job-2"] = &models.ExportJob{
		ID:       "job-2",
		DoctorID: "doc-1",
		Format:   models.ExportFormatPDF,
		DateFrom: "2026-03-01",
		DateTo:   "2026-03-07",
		Status:   models.ExportStatusQueued,
	}
	files := &mockFileStorage{}
	worker := NewExportWorker(store, &mockExportApptRepo{}, files, nil, nil, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-2", Type: "schedule_export"})
	require.NoError(t, err)

	path := store.finished["job-2"]
	require.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, ".pdf"))
	assert.True(t, strings.HasPrefix(string(files.saved[path]), "%PDF"))
}
