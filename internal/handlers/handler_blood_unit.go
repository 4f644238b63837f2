package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
	"github.com/redcross-vn/blood_bank_app/internal/middleware"
)

// bloodUnitHandler handles HTTP requests for the blood unit inventory.
type bloodUnitHandler struct {
	unitService portssvc.BloodUnitSvcFacade
}

func newBloodUnitHandler(us portssvc.BloodUnitSvcFacade) *bloodUnitHandler {
	return &bloodUnitHandler{unitService: us}
}

// registerBloodUnitRoutes registers all inventory routes.
func registerBloodUnitRoutes(rg *gin.RouterGroup, unitService portssvc.BloodUnitSvcFacade) {
	h := newBloodUnitHandler(unitService)

	units := rg.Group("/blood-units")
	{
		units.POST("", h.createUnit)
		units.GET("", h.listUnits)
		units.GET("/compatible", h.findCompatibleUnits)
		units.GET("/:unitID", h.getUnit)
		units.GET("/:unitID/actions", h.listUnitActions)
		units.POST("/:unitID/separate", h.separateComponents)
		units.POST("/:unitID/deduct", h.deductVolume)
		units.PUT("/:unitID/status", h.updateStatus)
		units.POST("/expire-overdue", h.expireOverdueUnits)
	}
	rg.GET("/donors/:donorID/blood-units", h.listUnitsByDonor)
}

// createUnit godoc
// @Summary Register a whole blood intake
// @Description Creates a new whole blood unit for a donor. The donor's first unit establishes their blood type.
// @Tags blood-units
// @Accept json
// @Produce json
// @Param unit body dto.CreateBloodUnitRequest true "Unit details"
// @Success 201 {object} dto.BloodUnitResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /blood-units [post]
func (h *bloodUnitHandler) createUnit(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateBloodUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	unit, err := h.unitService.CreateWholeBloodUnit(c.Request.Context(), req, actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToBloodUnitResponse(unit))
}

// getUnit godoc
// @Summary Get a blood unit
// @Tags blood-units
// @Produce json
// @Param unitID path string true "Unit ID"
// @Success 200 {object} dto.BloodUnitResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /blood-units/{unitID} [get]
func (h *bloodUnitHandler) getUnit(c *gin.Context) {
	unit, err := h.unitService.GetUnitByID(c.Request.Context(), c.Param("unitID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBloodUnitResponse(unit))
}

// listUnits godoc
// @Summary List blood units
// @Description Lists blood units filtered by blood type, component, status and expiry.
// @Tags blood-units
// @Produce json
// @Success 200 {object} dto.ListUnitsResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /blood-units [get]
func (h *bloodUnitHandler) listUnits(c *gin.Context) {
	var params dto.ListUnitsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}
	resp, err := h.unitService.ListUnits(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// findCompatibleUnits godoc
// @Summary Search compatible units
// @Description Resolves donor blood types compatible with the recipient and component, then lists matching units.
// @Tags blood-units
// @Produce json
// @Success 200 {object} dto.ListUnitsResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /blood-units/compatible [get]
func (h *bloodUnitHandler) findCompatibleUnits(c *gin.Context) {
	var params dto.FindCompatibleParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}
	resp, err := h.unitService.FindCompatibleUnits(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listUnitsByDonor godoc
// @Summary List a donor's blood units
// @Tags blood-units
// @Produce json
// @Param donorID path string true "Donor ID"
// @Success 200 {array} dto.BloodUnitResponse
// @Security BearerAuth
// @Router /donors/{donorID}/blood-units [get]
func (h *bloodUnitHandler) listUnitsByDonor(c *gin.Context) {
	units, err := h.unitService.ListUnitsByDonor(c.Request.Context(), c.Param("donorID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBloodUnitResponses(units))
}

// listUnitActions godoc
// @Summary List a unit's audit trail
// @Tags blood-units
// @Produce json
// @Param unitID path string true "Unit ID"
// @Success 200 {array} dto.BloodUnitActionResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /blood-units/{unitID}/actions [get]
func (h *bloodUnitHandler) listUnitActions(c *gin.Context) {
	actions, err := h.unitService.ListUnitActions(c.Request.Context(), c.Param("unitID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBloodUnitActionResponses(actions))
}

// separateComponents godoc
// @Summary Separate a whole blood unit
// @Description Splits a whole blood unit into red cells, plasma and platelets in one atomic write.
// @Tags blood-units
// @Accept json
// @Produce json
// @Param unitID path string true "Unit ID"
// @Param separation body dto.SeparateComponentsRequest true "Component volumes and expiries"
// @Success 201 {object} dto.SeparationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /blood-units/{unitID}/separate [post]
func (h *bloodUnitHandler) separateComponents(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SeparateComponentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	resp, err := h.unitService.SeparateComponents(c.Request.Context(), c.Param("unitID"), req, actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// deductVolume godoc
// @Summary Deduct volume from a unit
// @Description Removes volume from a unit; a unit drained to zero becomes USED.
// @Tags blood-units
// @Accept json
// @Produce json
// @Param unitID path string true "Unit ID"
// @Param deduction body dto.DeductVolumeRequest true "Amount to deduct"
// @Success 200 {object} dto.BloodUnitResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /blood-units/{unitID}/deduct [post]
func (h *bloodUnitHandler) deductVolume(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.DeductVolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	unit, err := h.unitService.DeductVolume(c.Request.Context(), c.Param("unitID"), req.AmountMl, actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBloodUnitResponse(unit))
}

// updateStatus godoc
// @Summary Update a unit's status
// @Tags blood-units
// @Accept json
// @Produce json
// @Param unitID path string true "Unit ID"
// @Param status body dto.UpdateUnitStatusRequest true "New status"
// @Success 200 {object} dto.BloodUnitResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /blood-units/{unitID}/status [put]
func (h *bloodUnitHandler) updateStatus(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateUnitStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	unit, err := h.unitService.UpdateStatus(c.Request.Context(), c.Param("unitID"), req.Status, actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToBloodUnitResponse(unit))
}

// expireOverdueUnits godoc
// @Summary Expire overdue units
// @Description Sweeps every past-expiry AVAILABLE or RESERVED unit to EXPIRED.
// @Tags blood-units
// @Produce json
// @Success 200 {array} dto.BloodUnitResponse
// @Security BearerAuth
// @Router /blood-units/expire-overdue [post]
func (h *bloodUnitHandler) expireOverdueUnits(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	expired, err := h.unitService.ExpireOverdueUnits(c.Request.Context(), actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	logger.Info("expiry sweep requested", slog.Int("expired", len(expired)))
	c.JSON(http.StatusOK, dto.ToBloodUnitResponses(expired))
}
