package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func authTestContext(t *testing.T, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestAuthHandlerRequestOTPRejectsMalformedBody(t *testing.T) {
	handler := NewAuthHandler(nil)
	c, w := authTestContext(t, "/auth/otp/request", []byte(`{"email":`))

	handler.RequestOTP(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestAuthHandlerVerifyOTPRejectsMalformedBody(t *testing.T) {
	handler := NewAuthHandler(nil)
	c, w := authTestContext(t, "/auth/otp/verify", []byte(`nope`))

	handler.VerifyOTP(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerLoginRejectsMalformedBody(t *testing.T) {
	handler := NewAuthHandler(nil)
	c, w := authTestContext(t, "/auth/login", []byte(`nope`))

	handler.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
