package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
)

type mockAuthUserRepo struct {
	users    map[string]*models.User
	upserted *models.User
}

func (m *mockAuthUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthUserRepo) UpsertPatient(_ context.Context, user *models.User) error {
	m.upserted = user
	return nil
}

type mockAuthOTPRepo struct {
	latest      *models.OTPCode
	created     *models.OTPCode
	consumed    string
	attempts    int
	invalidated string
}

func (m *mockAuthOTPRepo) Create(_ context.Context, otp *models.OTPCode) error {
	m.created = otp
	return nil
}

func (m *mockAuthOTPRepo) FindLatestActive(_ context.Context, _ string) (*models.OTPCode, error) {
	if m.latest == nil {
		return nil, sql.ErrNoRows
	}
	return m.latest, nil
}

func (m *mockAuthOTPRepo) MarkConsumed(_ context.Context, id string) error {
	m.consumed = id
	return nil
}

func (m *mockAuthOTPRepo) IncrementAttempts(_ context.Context, _ string) error {
	m.attempts++
	return nil
}

func (m *mockAuthOTPRepo) InvalidateForEmail(_ context.Context, email string) error {
	m.invalidated = email
	return nil
}

type mockAuthDoctorRepo struct {
	doctor *models.Doctor
}

func (m *mockAuthDoctorRepo) FindByEmail(_ context.Context, email string) (*models.Doctor, error) {
	if m.doctor == nil || m.doctor.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.doctor, nil
}

type mockLimiter struct {
	count int64
}

func (m *mockLimiter) Increment(_ context.Context, _ string, _ time.Duration) (int64, error) {
	m.count++
	return m.count, nil
}

func authConfig() AuthConfig {
	return AuthConfig{
		TokenSecret:    "test-secret",
		TokenExpiry:    time.Hour,
		Issuer:         "careslot",
		OTPTTL:         5 * time.Minute,
		OTPLength:      6,
		OTPMaxAttempts: 3,
		OTPRateLimit:   3,
		OTPRateWindow:  15 * time.Minute,
	}
}

func newAuthFixture(users *mockAuthUserRepo, otps *mockAuthOTPRepo, doctors *mockAuthDoctorRepo, limiter OTPLimiter) *AuthService {
	if users == nil {
		users = &mockAuthUserRepo{}
	}
	if otps == nil {
		otps = &mockAuthOTPRepo{}
	}
	if doctors == nil {
		doctors = &mockAuthDoctorRepo{}
	}
	return NewAuthService(users, otps, doctors, limiter, nil, nil, nil, nil, authConfig())
}

func hashOf(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRequestOTPStoresHashedCode(t *testing.T) {
	otps := &mockAuthOTPRepo{}
	svc := newAuthFixture(nil, otps, nil, &mockLimiter{})

	resp, err := svc.RequestOTP(context.Background(), dto.RequestOTPRequest{Email: "pat@example.com"})
	require.NoError(t, err)
	assert.False(t, resp.ExpiresAt.IsZero())

	require.NotNil(t, otps.created)
	assert.Equal(t, "pat@example.com", otps.created.Email)
	assert.Equal(t, "pat@example.com", otps.invalidated)
	// Only the bcrypt hash is stored.
	assert.NotEmpty(t, otps.created.CodeHash)
	assert.NotRegexp(t, `^\d{6}$`, otps.created.CodeHash)
}

func TestRequestOTPRateLimited(t *testing.T) {
	svc := newAuthFixture(nil, &mockAuthOTPRepo{}, nil, &mockLimiter{count: 3})

	_, err := svc.RequestOTP(context.Background(), dto.RequestOTPRequest{Email: "pat@example.com"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTooManyRequests.Code, appErrors.FromError(err).Code)
}

func TestVerifyOTPIssuesPatientToken(t *testing.T) {
	users := &mockAuthUserRepo{}
	otps := &mockAuthOTPRepo{latest: &models.OTPCode{
		ID:        "otp-1",
		Email:     "pat@example.com",
		CodeHash:  hashOf(t, "123456"),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}}
	svc := newAuthFixture(users, otps, nil, nil)

	resp, err := svc.VerifyOTP(context.Background(), dto.VerifyOTPRequest{Email: "pat@example.com", Code: "123456", FullName: "Pat Lee"})
	require.NoError(t, err)
	assert.Equal(t, string(models.RolePatient), resp.Role)
	assert.Equal(t, "otp-1", otps.consumed)
	require.NotNil(t, users.upserted)
	assert.Equal(t, models.RolePatient, users.upserted.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", claims.Email)
	assert.Equal(t, models.RolePatient, claims.Role)
}

func TestVerifyOTPWrongCodeCountsAttempt(t *testing.T) {
	otps := &mockAuthOTPRepo{latest: &models.OTPCode{
		ID:        "otp-1",
		Email:     "pat@example.com",
		CodeHash:  hashOf(t, "123456"),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}}
	svc := newAuthFixture(nil, otps, nil, nil)

	_, err := svc.VerifyOTP(context.Background(), dto.VerifyOTPRequest{Email: "pat@example.com", Code: "654321"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, otps.attempts)
}

func TestVerifyOTPExpiredCode(t *testing.T) {
	otps := &mockAuthOTPRepo{latest: &models.OTPCode{
		ID:        "otp-1",
		Email:     "pat@example.com",
		CodeHash:  hashOf(t, "123456"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}}
	svc := newAuthFixture(nil, otps, nil, nil)

	_, err := svc.VerifyOTP(context.Background(), dto.VerifyOTPRequest{Email: "pat@example.com", Code: "123456"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestVerifyOTPAttemptCapExhausted(t *testing.T) {
	otps := &mockAuthOTPRepo{latest: &models.OTPCode{
		ID:        "otp-1",
		Email:     "pat@example.com",
		CodeHash:  hashOf(t, "123456"),
		ExpiresAt: time.Now().Add(5 * time.Minute),
		Attempts:  3,
	}}
	svc := newAuthFixture(nil, otps, nil, nil)

	_, err := svc.VerifyOTP(context.Background(), dto.VerifyOTPRequest{Email: "pat@example.com", Code: "123456"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTooManyRequests.Code, appErrors.FromError(err).Code)
}

func TestLoginApprovedDoctor(t *testing.T) {
	doctors := &mockAuthDoctorRepo{doctor: &models.Doctor{
		ID:           "doc-1",
		Email:        "doc@example.com",
		PasswordHash: hashOf(t, "secret123"),
		FullName:     "Dr. Demo",
		Status:       models.DoctorApproved,
	}}
	svc := newAuthFixture(nil, nil, doctors, nil)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Email: "doc@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleDoctor), resp.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", claims.UserID)
}

func TestLoginPendingDoctorForbidden(t *testing.T) {
	doctors := &mockAuthDoctorRepo{doctor: &models.Doctor{
		ID:           "doc-1",
		Email:        "doc@example.com",
		PasswordHash: hashOf(t, "secret123"),
		Status:       models.DoctorPending,
	}}
	svc := newAuthFixture(nil, nil, doctors, nil)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "doc@example.com", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLoginAdmin(t *testing.T) {
	hash := hashOf(t, "admin-pass")
	users := &mockAuthUserRepo{users: map[string]*models.User{
		"admin@example.com": {ID: "admin-1", Email: "admin@example.com", PasswordHash: &hash, Role: models.RoleAdmin, Active: true},
	}}
	svc := newAuthFixture(users, nil, nil, nil)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Email: "admin@example.com", Password: "admin-pass"})
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleAdmin), resp.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	doctors := &mockAuthDoctorRepo{doctor: &models.Doctor{
		Email:        "doc@example.com",
		PasswordHash: hashOf(t, "secret123"),
		Status:       models.DoctorApproved,
	}}
	svc := newAuthFixture(nil, nil, doctors, nil)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "doc@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := newAuthFixture(nil, nil, nil, nil)
	resp, err := svc.issueToken("user-1", models.RolePatient, "pat@example.com", "Pat")
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestGenerateOTPCodeLengthAndDigits(t *testing.T) {
	code, err := generateOTPCode(6)
	require.NoError(t, err)
	assert.Regexp(t, `^\d{6}$`, code)
}
