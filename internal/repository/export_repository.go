package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careslot/careslot-api/internal/models"
)

const exportColumns = `id, doctor_id, format, date_from::text AS date_from, date_to::text AS date_to, status, file_path, error_message, created_at, finished_at`

// ExportRepository handles persistence for schedule export jobs.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository instantiates an export repository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts a queued export job.
func (r *ExportRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = time.Now().UTC()
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}

	const query = `INSERT INTO export_jobs (id, doctor_id, format, date_from, date_to, status, created_at)
		VALUES (:id, :doctor_id, :format, :date_from, :date_to, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID loads an export job by identifier.
func (r *ExportRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM export_jobs WHERE id = $1`, exportColumns)
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing flags the job as picked up by a worker.
func (r *ExportRepository) MarkProcessing(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE export_jobs SET status = $2 WHERE id = $1`, id, models.ExportStatusProcessing); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}
	return nil
}

// MarkFinished records the artifact path on success.
func (r *ExportRepository) MarkFinished(ctx context.Context, id, filePath string) error {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx,
		`UPDATE export_jobs SET status = $2, file_path = $3, finished_at = $4 WHERE id = $1`,
		id, models.ExportStatusFinished, filePath, now); err != nil {
		return fmt.Errorf("mark export finished: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason.
func (r *ExportRepository) MarkFailed(ctx context.Context, id, message string) error {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx,
		`UPDATE export_jobs SET status = $2, error_message = $3, finished_at = $4 WHERE id = $1`,
		id, models.ExportStatusFailed, message, now); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return nil
}
