package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

type doctorRepository interface {
	Create(ctx context.Context, doctor *models.Doctor) error
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	FindByEmail(ctx context.Context, email string) (*models.Doctor, error)
	List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, int, error)
	UpdateStatus(ctx context.Context, id string, status models.DoctorStatus, reviewedBy string) (int64, error)
}

// DoctorService handles doctor registration, the admin approval workflow and
// the public directory. Only approved doctors are visible outside the admin
// surface.
type DoctorService struct {
	doctors       doctorRepository
	notifications *NotificationService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewDoctorService constructs a DoctorService.
func NewDoctorService(doctors doctorRepository, notifications *NotificationService, validate *validator.Validate, logger *zap.Logger) *DoctorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoctorService{doctors: doctors, notifications: notifications, validator: validate, logger: logger}
}

// Register creates a pending doctor account awaiting admin review.
func (s *DoctorService) Register(ctx context.Context, req dto.RegisterDoctorRequest) (*models.Doctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.doctors.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	now := time.Now().UTC()
	doctor := &models.Doctor{
		ID:             uuid.NewString(),
		Email:          req.Email,
		PasswordHash:   string(hash),
		FullName:       req.FullName,
		Specialization: req.Specialization,
		LicenseNumber:  req.LicenseNumber,
		Phone:          req.Phone,
		Status:         models.DoctorPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.doctors.Create(ctx, doctor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register doctor")
	}
	s.logger.Info("doctor registered", zap.String("doctor_id", doctor.ID))
	return doctor, nil
}

// ListPublic returns the approved doctor directory.
func (s *DoctorService) ListPublic(ctx context.Context, filter models.DoctorFilter) ([]dto.DoctorItem, models.Pagination, error) {
	approved := models.DoctorApproved
	filter.Status = &approved
	doctors, pagination, err := s.list(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	items := make([]dto.DoctorItem, 0, len(doctors))
	for _, d := range doctors {
		items = append(items, dto.DoctorItem{ID: d.ID, FullName: d.FullName, Specialization: d.Specialization})
	}
	return items, pagination, nil
}

// GetPublic returns one approved doctor.
func (s *DoctorService) GetPublic(ctx context.Context, id string) (*dto.DoctorItem, error) {
	doctor, err := s.findDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	if doctor.Status != models.DoctorApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
	}
	return &dto.DoctorItem{ID: doctor.ID, FullName: doctor.FullName, Specialization: doctor.Specialization}, nil
}

// ListForAdmin returns doctors in any status for the review queue.
func (s *DoctorService) ListForAdmin(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, models.Pagination, error) {
	return s.list(ctx, filter)
}

// Review applies the admin's approval decision. Only pending registrations
// can be reviewed; a second reviewer racing on the same doctor loses.
func (s *DoctorService) Review(ctx context.Context, adminID, doctorID string, approve bool) (*models.Doctor, error) {
	doctor, err := s.findDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor.Status != models.DoctorPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration already reviewed")
	}

	status := models.DoctorRejected
	if approve {
		status = models.DoctorApproved
	}
	rows, err := s.doctors.UpdateStatus(ctx, doctorID, status, adminID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update doctor")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "registration already reviewed")
	}

	doctor.Status = status
	s.notifications.DoctorReviewed(doctor, status)
	s.logger.Info("doctor reviewed",
		zap.String("doctor_id", doctorID),
		zap.String("status", string(status)),
		zap.String("reviewed_by", adminID))
	return doctor, nil
}

func (s *DoctorService) list(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	doctors, total, err := s.doctors.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doctors")
	}
	return doctors, models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *DoctorService) findDoctor(ctx context.Context, id string) (*models.Doctor, error) {
	doctor, err := s.doctors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch doctor")
	}
	return doctor, nil
}
