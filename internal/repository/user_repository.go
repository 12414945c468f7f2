package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careslot/careslot-api/internal/models"
)

const userColumns = `id, email, password_hash, full_name, mobile_number, role, active, created_at, updated_at`

// UserRepository handles persistence for patient and admin accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository instantiates a user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail loads a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertPatient creates the patient account on first OTP verification and
// refreshes profile fields on later sign-ins.
func (r *UserRepository) UpsertPatient(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.Role = models.RolePatient
	user.Active = true
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, full_name, mobile_number, role, active, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :full_name, :mobile_number, :role, :active, :created_at, :updated_at)
		ON CONFLICT (email) DO UPDATE SET
		  full_name = CASE WHEN EXCLUDED.full_name <> '' THEN EXCLUDED.full_name ELSE users.full_name END,
		  mobile_number = CASE WHEN EXCLUDED.mobile_number <> '' THEN EXCLUDED.mobile_number ELSE users.mobile_number END,
		  updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("upsert patient: %w", err)
	}
	return nil
}
