package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertPatient(ctx context.Context, user *models.User) error
}

type authOTPRepository interface {
	Create(ctx context.Context, otp *models.OTPCode) error
	FindLatestActive(ctx context.Context, email string) (*models.OTPCode, error)
	MarkConsumed(ctx context.Context, id string) error
	IncrementAttempts(ctx context.Context, id string) error
	InvalidateForEmail(ctx context.Context, email string) error
}

type authDoctorRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Doctor, error)
}

// OTPLimiter throttles code issuance per email.
type OTPLimiter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret    string
	TokenExpiry    time.Duration
	Issuer         string
	OTPTTL         time.Duration
	OTPLength      int
	OTPMaxAttempts int
	OTPRateLimit   int
	OTPRateWindow  time.Duration
}

// AuthService provides authentication use cases. Patients sign in with a
// mailed one-time password; doctors and admins sign in with a password. All
// three roles receive the same JWT shape.
type AuthService struct {
	users         authUserRepository
	otps          authOTPRepository
	doctors       authDoctorRepository
	limiter       OTPLimiter
	notifications *NotificationService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	config        AuthConfig
	now           func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, otps authOTPRepository, doctors authDoctorRepository, limiter OTPLimiter, notifications *NotificationService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.OTPTTL <= 0 {
		config.OTPTTL = 5 * time.Minute
	}
	if config.OTPLength <= 0 {
		config.OTPLength = 6
	}
	if config.OTPMaxAttempts <= 0 {
		config.OTPMaxAttempts = 5
	}
	if config.TokenExpiry <= 0 {
		config.TokenExpiry = 24 * time.Hour
	}
	return &AuthService{
		users:         users,
		otps:          otps,
		doctors:       doctors,
		limiter:       limiter,
		notifications: notifications,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		config:        config,
		now:           time.Now,
	}
}

// RequestOTP issues a fresh one-time password for the email. Older codes for
// the same email are invalidated, the bcrypt hash is stored and the plain
// code travels only through the notification queue.
func (s *AuthService) RequestOTP(ctx context.Context, req dto.RequestOTPRequest) (*dto.RequestOTPResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid otp request")
	}

	if s.limiter != nil && s.config.OTPRateLimit > 0 {
		count, err := s.limiter.Increment(ctx, "otp:rate:"+req.Email, s.config.OTPRateWindow)
		if err != nil {
			s.logger.Warn("otp rate limiter unavailable", zap.Error(err))
		} else if count > int64(s.config.OTPRateLimit) {
			return nil, appErrors.Clone(appErrors.ErrTooManyRequests, "too many codes requested, try again later")
		}
	}

	code, err := generateOTPCode(s.config.OTPLength)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash code")
	}

	if err := s.otps.InvalidateForEmail(ctx, req.Email); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate previous codes")
	}

	now := s.now().UTC()
	otp := &models.OTPCode{
		ID:        uuid.NewString(),
		Email:     req.Email,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.config.OTPTTL),
		CreatedAt: now,
	}
	if err := s.otps.Create(ctx, otp); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store code")
	}

	s.notifications.OTPIssued(req.Email, code, otp.ExpiresAt)
	s.metrics.RecordOTPIssued()
	s.logger.Info("otp issued", zap.String("email", req.Email))

	return &dto.RequestOTPResponse{Message: "code sent", ExpiresAt: otp.ExpiresAt}, nil
}

// VerifyOTP exchanges a valid code for an access token, creating or
// refreshing the patient account on success.
func (s *AuthService) VerifyOTP(ctx context.Context, req dto.VerifyOTPRequest) (*dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}

	otp, err := s.otps.FindLatestActive(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid or expired code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch code")
	}
	if s.now().UTC().After(otp.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid or expired code")
	}
	if otp.Attempts >= s.config.OTPMaxAttempts {
		return nil, appErrors.Clone(appErrors.ErrTooManyRequests, "too many attempts, request a new code")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(req.Code)); err != nil {
		if incErr := s.otps.IncrementAttempts(ctx, otp.ID); incErr != nil {
			s.logger.Warn("failed to record otp attempt", zap.Error(incErr))
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid or expired code")
	}
	if err := s.otps.MarkConsumed(ctx, otp.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume code")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FullName:     req.FullName,
		MobileNumber: req.Mobile,
		Role:         models.RolePatient,
		Active:       true,
	}
	if err := s.users.UpsertPatient(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert patient")
	}

	return s.issueToken(user.ID, models.RolePatient, user.Email, user.FullName)
}

// Login authenticates doctors and admins with email and password. Doctors
// whose registration is still pending or was rejected cannot sign in.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err == nil && user.Role == models.RoleAdmin && user.PasswordHash != nil {
		if !user.Active {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "account is inactive")
		}
		if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return s.issueToken(user.ID, models.RoleAdmin, user.Email, user.FullName)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	doctor, err := s.doctors.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch doctor")
	}
	if bcrypt.CompareHashAndPassword([]byte(doctor.PasswordHash), []byte(req.Password)) != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if doctor.Status != models.DoctorApproved {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "registration has not been approved")
	}
	return s.issueToken(doctor.ID, models.RoleDoctor, doctor.Email, doctor.FullName)
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) issueToken(userID string, role models.UserRole, email, fullName string) (*dto.TokenResponse, error) {
	now := s.now().UTC()
	claims := models.JWTClaims{
		UserID:   userID,
		Role:     role,
		Email:    email,
		FullName: fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return &dto.TokenResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		Role:        string(role),
		IssuedAt:    now,
	}, nil
}

func generateOTPCode(length int) (string, error) {
	const digits = "0123456789"
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = digits[int(buf[i])%len(digits)]
	}
	return string(buf), nil
}
