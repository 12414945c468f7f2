package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/models"
	"github.com/careslot/careslot-api/internal/service"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
	"github.com/careslot/careslot-api/pkg/response"
)

// AppointmentHandler exposes booking and lifecycle endpoints.
type AppointmentHandler struct {
	booking      *service.BookingService
	appointments *service.AppointmentService
	feedback     *service.FeedbackService
}

// NewAppointmentHandler constructs AppointmentHandler.
func NewAppointmentHandler(booking *service.BookingService, appointments *service.AppointmentService, feedback *service.FeedbackService) *AppointmentHandler {
	return &AppointmentHandler{booking: booking, appointments: appointments, feedback: feedback}
}

// Book godoc
// @Summary Book a slot
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.BookSlotRequest true "Slot"
// @Success 201 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req dto.BookSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.Email = claims.Email
	}
	resp, err := h.booking.BookSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// UpdateStatus godoc
// @Summary Apply a lifecycle transition to an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body dto.UpdateAppointmentStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/status [patch]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	resp, err := h.appointments.UpdateStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// ListMine godoc
// @Summary List the signed-in patient's appointments
// @Tags Appointments
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /appointments [get]
func (h *AppointmentHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	appts, pagination, err := h.appointments.ListForPatient(c.Request.Context(), claims.Email, appointmentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appts, &pagination)
}

// ListForDoctor godoc
// @Summary List the signed-in doctor's appointments
// @Tags Appointments
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /doctor/appointments [get]
func (h *AppointmentHandler) ListForDoctor(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	appts, pagination, err := h.appointments.ListForDoctor(c.Request.Context(), claims.UserID, appointmentFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appts, &pagination)
}

// CreateFeedback godoc
// @Summary Rate a completed appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body dto.CreateFeedbackRequest true "Rating"
// @Success 201 {object} response.Envelope
// @Router /feedback [post]
func (h *AppointmentHandler) CreateFeedback(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	fb, err := h.feedback.Create(c.Request.Context(), claims.Email, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fb)
}

func appointmentFilterFromQuery(c *gin.Context) models.AppointmentFilter {
	var filter models.AppointmentFilter
	filter.Date = c.Query("date")
	if raw := c.Query("status"); raw != "" {
		status := models.AppointmentStatus(raw)
		filter.Status = &status
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter
}
