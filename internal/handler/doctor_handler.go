package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	"github.com/careslot/careslot-api/internal/service"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
	"github.com/careslot/careslot-api/pkg/response"
)

// DoctorHandler exposes the public doctor directory and registration.
type DoctorHandler struct {
	doctors  *service.DoctorService
	feedback *service.FeedbackService
}

// NewDoctorHandler constructs DoctorHandler.
func NewDoctorHandler(doctors *service.DoctorService, feedback *service.FeedbackService) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, feedback: feedback}
}

// Register godoc
// @Summary Register a doctor account pending admin approval
// @Tags Doctors
// @Accept json
// @Produce json
// @Param payload body dto.RegisterDoctorRequest true "Registration"
// @Success 201 {object} response.Envelope
// @Router /doctors/register [post]
func (h *DoctorHandler) Register(c *gin.Context) {
	var req dto.RegisterDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	doctor, err := h.doctors.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": doctor.ID, "status": doctor.Status})
}

// List godoc
// @Summary List approved doctors
// @Tags Doctors
// @Produce json
// @Param specialization query string false "Filter by specialization"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /doctors [get]
func (h *DoctorHandler) List(c *gin.Context) {
	var filter models.DoctorFilter
	filter.Specialization = strings.TrimSpace(c.Query("specialization"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	doctors, pagination, err := h.doctors.ListPublic(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctors, &pagination)
}

// Get godoc
// @Summary Get one approved doctor
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id} [get]
func (h *DoctorHandler) Get(c *gin.Context) {
	doctor, err := h.doctors.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// Feedback godoc
// @Summary List feedback and average rating for a doctor
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Param limit query int false "Max items"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id}/feedback [get]
func (h *DoctorHandler) Feedback(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	resp, err := h.feedback.ListForDoctor(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
