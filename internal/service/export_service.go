package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
	"github.com/careslot/careslot-api/pkg/export"
	"github.com/careslot/careslot-api/pkg/jobs"
	"github.com/careslot/careslot-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id, filePath string) error
	MarkFailed(ctx context.Context, id, message string) error
}

type exportAppointmentRepository interface {
	ListByDoctorRange(ctx context.Context, doctorID, dateFrom, dateTo string) ([]models.Appointment, error)
}

type exportDispatcher interface {
	Enqueue(job jobs.Job) error
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File     *os.File
	Filename string
	Format   models.ExportFormat
}

// ExportService queues and resolves doctor schedule exports. Rendering runs
// on the job queue; downloads go through short-lived signed URLs so the
// files need no authentication of their own.
type ExportService struct {
	jobs         exportJobStore
	appointments exportAppointmentRepository
	queue        exportDispatcher
	storage      fileStorage
	signer       *storage.SignedURLSigner
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(jobStore exportJobStore, appointments exportAppointmentRepository, queue exportDispatcher, fileStore fileStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		jobs:         jobStore,
		appointments: appointments,
		queue:        queue,
		storage:      fileStore,
		signer:       signer,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
	}
}

// Create persists an export job for the doctor's date range and enqueues
// rendering.
func (s *ExportService) Create(ctx context.Context, doctorID string, req dto.CreateExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	from, err := time.Parse("2006-01-02", req.DateFrom)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_from must be formatted YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", req.DateTo)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must be formatted YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must not precede date_from")
	}

	job := &models.ExportJob{
		ID:        uuid.NewString(),
		DoctorID:  doctorID,
		Format:    req.Format,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Status:    models.ExportStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "schedule_export"}); err != nil {
		s.logger.Warn("export enqueue failed", zap.String("job_id", job.ID), zap.Error(err))
		if markErr := s.jobs.MarkFailed(ctx, job.ID, "queue unavailable"); markErr != nil {
			s.logger.Warn("failed to mark export failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue unavailable")
	}
	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status}, nil
}

// Get returns job progress for its owner, including a signed download URL
// once rendering finished.
func (s *ExportService) Get(ctx context.Context, doctorID, id string) (*dto.ExportJobResponse, error) {
	job, err := s.findOwnedJob(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.ExportJobResponse{ID: job.ID, Status: job.Status, Error: job.ErrorMessage}
	if job.Status == models.ExportStatusFinished && job.FilePath != nil {
		token, _, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
		}
		prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
		if prefix == "" {
			prefix = "/api/v1"
		}
		url := fmt.Sprintf("%s/exports/download/%s", prefix, token)
		resp.DownloadURL = &url
	}
	return resp, nil
}

// ResolveDownload validates a signed token and opens the rendered file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	if job.Status != models.ExportStatusFinished || job.FilePath == nil || *job.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return &ExportDownload{File: file, Filename: relPath, Format: job.Format}, nil
}

// Cleanup deletes rendered files older than the configured TTL.
func (s *ExportService) Cleanup() {
	removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("export files cleaned up", zap.Int("count", len(removed)))
	}
}

func (s *ExportService) findOwnedJob(ctx context.Context, doctorID, id string) (*models.ExportJob, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	if job.DoctorID != doctorID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	return job, nil
}

// ExportWorker renders queued exports.
type ExportWorker struct {
	jobs         exportJobStore
	appointments exportAppointmentRepository
	storage      fileStorage
	csv          csvRenderer
	pdf          pdfRenderer
	logger       *zap.Logger
}

// NewExportWorker constructs a worker.
func NewExportWorker(jobStore exportJobStore, appointments exportAppointmentRepository, fileStore fileStorage, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportWorker {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportWorker{
		jobs:         jobStore,
		appointments: appointments,
		storage:      fileStore,
		csv:          csv,
		pdf:          pdf,
		logger:       logger,
	}
}

// Handle processes a queue job.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.jobs.FindByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := w.jobs.MarkProcessing(ctx, record.ID); err != nil {
		return err
	}

	relPath, err := w.render(ctx, record)
	if err != nil {
		if markErr := w.jobs.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			w.logger.Warn("failed to mark export failed", zap.String("job_id", record.ID), zap.Error(markErr))
		}
		return err
	}
	if err := w.jobs.MarkFinished(ctx, record.ID, relPath); err != nil {
		w.logger.Warn("failed to mark export finished", zap.String("job_id", record.ID), zap.Error(err))
		return err
	}
	return nil
}

func (w *ExportWorker) render(ctx context.Context, job *models.ExportJob) (string, error) {
	appts, err := w.appointments.ListByDoctorRange(ctx, job.DoctorID, job.DateFrom, job.DateTo)
	if err != nil {
		return "", fmt.Errorf("list appointments: %w", err)
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Start", "End", "Patient", "Email", "Status"},
		Rows:    make([]map[string]string, 0, len(appts)),
	}
	for _, appt := range appts {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":    appt.AppointmentDate,
			"Start":   appt.StartTime.String(),
			"End":     appt.EndTime.String(),
			"Patient": strings.TrimSpace(appt.FirstName + " " + appt.LastName),
			"Email":   appt.Email,
			"Status":  string(appt.Status),
		})
	}

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = w.csv.Render(dataset)
	case models.ExportFormatPDF:
		title := fmt.Sprintf("Appointments %s to %s", job.DateFrom, job.DateTo)
		payload, err = w.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("schedule_%s_%s.%s", job.DoctorID, job.ID, job.Format)
	return w.storage.Save(filename, payload)
}
