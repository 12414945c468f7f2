package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careslot/careslot-api/internal/dto"
	"github.com/careslot/careslot-api/internal/service"
	appErrors "github.com/careslot/careslot-api/pkg/errors"
	"github.com/careslot/careslot-api/pkg/response"
)

// AvailabilityHandler exposes the doctor's weekly schedule management.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

// NewAvailabilityHandler constructs AvailabilityHandler.
func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// Save godoc
// @Summary Replace the signed-in doctor's weekly availability
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.SaveAvailabilityRequest true "Weekly rules"
// @Success 200 {object} response.Envelope
// @Router /doctor/availability [put]
func (h *AvailabilityHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SaveAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	resp, err := h.availability.Save(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Get godoc
// @Summary Get the signed-in doctor's weekly availability
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /doctor/availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp, err := h.availability.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// GetForDoctor godoc
// @Summary Get a doctor's weekly availability
// @Tags Availability
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id}/availability [get]
func (h *AvailabilityHandler) GetForDoctor(c *gin.Context) {
	resp, err := h.availability.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
