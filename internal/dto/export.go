package dto

import "github.com/careslot/careslot-api/internal/models"

// CreateExportRequest queues a schedule export for the doctor's appointments.
type CreateExportRequest struct {
	Format   models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	DateFrom string              `json:"date_from" validate:"required"`
	DateTo   string              `json:"date_to" validate:"required"`
}

// ExportJobResponse reports job progress and, once finished, a signed
// download URL.
type ExportJobResponse struct {
	ID          string              `json:"id"`
	Status      models.ExportStatus `json:"status"`
	DownloadURL *string             `json:"download_url,omitempty"`
	Error       *string             `json:"error,omitempty"`
}
