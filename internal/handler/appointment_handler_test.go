package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/careslot/careslot-api/internal/middleware"
	"github.com/careslot/careslot-api/internal/models"
)

func appointmentTestContext(t *testing.T, method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestAppointmentHandlerBookRejectsMalformedBody(t *testing.T) {
	handler := NewAppointmentHandler(nil, nil, nil)
	c, w := appointmentTestContext(t, http.MethodPost, "/appointments", []byte(`{"doctor_id":`), nil)

	handler.Book(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestAppointmentHandlerUpdateStatusRejectsMalformedBody(t *testing.T) {
	handler := NewAppointmentHandler(nil, nil, nil)
	c, w := appointmentTestContext(t, http.MethodPatch, "/appointments/appt-1/status", []byte(`not json`), nil)
	c.Params = gin.Params{{Key: "id", Value: "appt-1"}}

	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandlerListMineRequiresClaims(t *testing.T) {
	handler := NewAppointmentHandler(nil, nil, nil)
	c, w := appointmentTestContext(t, http.MethodGet, "/appointments", nil, nil)

	handler.ListMine(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAppointmentHandlerListForDoctorRequiresClaims(t *testing.T) {
	handler := NewAppointmentHandler(nil, nil, nil)
	c, w := appointmentTestContext(t, http.MethodGet, "/doctor/appointments", nil, nil)

	handler.ListForDoctor(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAppointmentHandlerFeedbackRequiresClaims(t *testing.T) {
	handler := NewAppointmentHandler(nil, nil, nil)
	c, w := appointmentTestContext(t, http.MethodPost, "/feedback", []byte(`{}`), nil)

	handler.CreateFeedback(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
