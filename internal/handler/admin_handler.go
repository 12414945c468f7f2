package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/careslot/careslot-api/internal/models"
	"github.com/careslot/careslot-api/internal/service"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
	"github.com/careslot/careslot-api/pkg/response"
)

// AdminHandler exposes the doctor review queue.
type AdminHandler struct {
	doctors *service.DoctorService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(doctors *service.DoctorService) *AdminHandler {
	return &AdminHandler{doctors: doctors}
}

// ListDoctors godoc
// @Summary List doctor registrations in any status
// @Tags Admin
// @Produce json
// @Param status query string false "Filter by status (pending, approved, rejected)"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/doctors [get]
func (h *AdminHandler) ListDoctors(c *gin.Context) {
	var filter models.DoctorFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if raw := c.Query("status"); raw != "" {
		status := models.DoctorStatus(raw)
		filter.Status = &status
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	doctors, pagination, err := h.doctors.ListForAdmin(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctors, &pagination)
}

// Approve godoc
// @Summary Approve a pending doctor registration
// @Tags Admin
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Router /admin/doctors/{id}/approve [post]
func (h *AdminHandler) Approve(c *gin.Context) {
	h.review(c, true)
}

// Reject godoc
// @Summary Reject a pending doctor registration
// @Tags Admin
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Router /admin/doctors/{id}/reject [post]
func (h *AdminHandler) Reject(c *gin.Context) {
	h.review(c, false)
}

func (h *AdminHandler) review(c *gin.Context, approve bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doctor, err := h.doctors.Review(c.Request.Context(), claims.UserID, c.Param("id"), approve)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": doctor.ID, "status": doctor.Status}, nil)
}
