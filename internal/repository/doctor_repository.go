package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careslot/careslot-api/internal/models"
)

const doctorColumns = `id, email, password_hash, full_name, specialization, license_number, phone, status, reviewed_by, reviewed_at, created_at, updated_at`

// DoctorRepository handles persistence for doctor accounts.
type DoctorRepository struct {
	db *sqlx.DB
}

// NewDoctorRepository instantiates a doctor repository.
func NewDoctorRepository(db *sqlx.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// Create inserts a new doctor registration in pending status.
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doctor.CreatedAt = now
	doctor.UpdatedAt = now
	if doctor.Status == "" {
		doctor.Status = models.DoctorPending
	}

	const query = `INSERT INTO doctors (id, email, password_hash, full_name, specialization, license_number, phone, status, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :full_name, :specialization, :license_number, :phone, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

// FindByID loads a doctor by identifier.
func (r *DoctorRepository) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE id = $1`, doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// FindByEmail loads a doctor by email.
func (r *DoctorRepository) FindByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE email = $1`, doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, email); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// List returns doctors matching provided filters.
func (r *DoctorRepository) List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, int, error) {
	base := "FROM doctors WHERE 1=1"
	var args []interface{}

	if filter.Specialization != "" {
		args = append(args, filter.Specialization)
		base += fmt.Sprintf(" AND specialization = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		base += fmt.Sprintf(" AND (full_name ILIKE $%d OR email ILIKE $%d)", len(args), len(args))
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"full_name":      true,
		"specialization": true,
		"created_at":     true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", doctorColumns, base, sortBy, order, size, offset)

	var doctors []models.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	return doctors, total, nil
}

// UpdateStatus applies an approval decision only while the application is
// still pending, so a stale admin client cannot flip a settled decision.
func (r *DoctorRepository) UpdateStatus(ctx context.Context, id string, status models.DoctorStatus, reviewedBy string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE doctors SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE id = $1 AND status = 'pending'`,
		id, status, reviewedBy, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("update doctor status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read affected rows: %w", err)
	}
	return affected, nil
}
