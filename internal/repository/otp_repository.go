package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/careslot/careslot-api/internal/models"
)

// OTPRepository handles persistence for one-time password codes.
type OTPRepository struct {
	db *sqlx.DB
}

// NewOTPRepository instantiates an OTP repository.
func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create stores a freshly issued code hash.
func (r *OTPRepository) Create(ctx context.Context, otp *models.OTPCode) error {
	if otp.ID == "" {
		otp.ID = uuid.NewString()
	}
	otp.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO otp_codes (id, email, code_hash, expires_at, consumed, attempts, created_at)
		VALUES (:id, :email, :code_hash, :expires_at, :consumed, :attempts, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, otp); err != nil {
		return fmt.Errorf("create otp code: %w", err)
	}
	return nil
}

// FindLatestActive returns the newest unconsumed code for the email.
func (r *OTPRepository) FindLatestActive(ctx context.Context, email string) (*models.OTPCode, error) {
	const query = `SELECT id, email, code_hash, expires_at, consumed, attempts, created_at
		FROM otp_codes WHERE email = $1 AND consumed = FALSE ORDER BY created_at DESC LIMIT 1`
	var otp models.OTPCode
	if err := r.db.GetContext(ctx, &otp, query, email); err != nil {
		return nil, err
	}
	return &otp, nil
}

// MarkConsumed burns a code after successful verification.
func (r *OTPRepository) MarkConsumed(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE otp_codes SET consumed = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark otp consumed: %w", err)
	}
	return nil
}

// IncrementAttempts counts a failed verification against the code.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE otp_codes SET attempts = attempts + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment otp attempts: %w", err)
	}
	return nil
}

// InvalidateForEmail consumes any outstanding codes before a new issue.
func (r *OTPRepository) InvalidateForEmail(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE otp_codes SET consumed = TRUE WHERE email = $1 AND consumed = FALSE`, email); err != nil {
		return fmt.Errorf("invalidate otp codes: %w", err)
	}
	return nil
}
