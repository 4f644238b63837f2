package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
)

// emergencyHandler handles HTTP requests for emergency blood allocation.
type emergencyHandler struct {
	emergencyService portssvc.EmergencySvcFacade
}

func newEmergencyHandler(es portssvc.EmergencySvcFacade) *emergencyHandler {
	return &emergencyHandler{emergencyService: es}
}

// registerEmergencyRoutes registers all emergency allocation routes.
func registerEmergencyRoutes(rg *gin.RouterGroup, emergencyService portssvc.EmergencySvcFacade) {
	h := newEmergencyHandler(emergencyService)

	requests := rg.Group("/emergency-requests")
	{
		requests.POST("", h.createRequest)
		requests.GET("", h.listRequests)
		requests.GET("/:requestID", h.getRequest)
		requests.GET("/:requestID/logs", h.listRequestLogs)
		requests.POST("/:requestID/approve", h.approveRequest)
		requests.POST("/:requestID/reject", h.rejectRequest)
		requests.POST("/:requestID/contacts", h.provideContacts)
		requests.POST("/reject-by-blood-type", h.rejectByBloodType)
	}
}

// createRequest godoc
// @Summary Submit an emergency request
// @Description Creates a PENDING emergency blood request for the caller. The request stays valid for one day.
// @Tags emergency
// @Accept json
// @Produce json
// @Param request body dto.CreateEmergencyRequest true "Request details"
// @Success 201 {object} dto.EmergencyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /emergency-requests [post]
func (h *emergencyHandler) createRequest(c *gin.Context) {
	requesterID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	request, err := h.emergencyService.CreateRequest(c.Request.Context(), requesterID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToEmergencyResponse(request))
}

// getRequest godoc
// @Summary Get an emergency request
// @Tags emergency
// @Produce json
// @Param requestID path string true "Request ID"
// @Success 200 {object} dto.EmergencyResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /emergency-requests/{requestID} [get]
func (h *emergencyHandler) getRequest(c *gin.Context) {
	request, err := h.emergencyService.GetRequestByID(c.Request.Context(), c.Param("requestID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToEmergencyResponse(request))
}

// listRequests godoc
// @Summary List emergency requests
// @Tags emergency
// @Produce json
// @Success 200 {object} dto.ListEmergencyResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /emergency-requests [get]
func (h *emergencyHandler) listRequests(c *gin.Context) {
	var params dto.ListEmergencyParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}
	resp, err := h.emergencyService.ListRequests(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listRequestLogs godoc
// @Summary List a request's transition log
// @Tags emergency
// @Produce json
// @Param requestID path string true "Request ID"
// @Success 200 {array} dto.EmergencyLogResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /emergency-requests/{requestID}/logs [get]
func (h *emergencyHandler) listRequestLogs(c *gin.Context) {
	logs, err := h.emergencyService.ListRequestLogs(c.Request.Context(), c.Param("requestID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToEmergencyLogResponses(logs))
}

// approveRequest godoc
// @Summary Approve a hospital request
// @Description Allocates a compatible blood unit and deducts the used volume in one transaction.
// @Tags emergency
// @Accept json
// @Produce json
// @Param requestID path string true "Request ID"
// @Param approval body dto.ApproveEmergencyRequest true "Unit and volume"
// @Success 200 {object} dto.EmergencyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /emergency-requests/{requestID}/approve [post]
func (h *emergencyHandler) approveRequest(c *gin.Context) {
	staffID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ApproveEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	request, err := h.emergencyService.Approve(c.Request.Context(), c.Param("requestID"), req, staffID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToEmergencyResponse(request))
}

// rejectRequest godoc
// @Summary Reject a hospital request
// @Tags emergency
// @Accept json
// @Produce json
// @Param requestID path string true "Request ID"
// @Param rejection body dto.RejectEmergencyRequest true "Rejection reason"
// @Success 200 {object} dto.EmergencyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /emergency-requests/{requestID}/reject [post]
func (h *emergencyHandler) rejectRequest(c *gin.Context) {
	staffID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RejectEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	request, err := h.emergencyService.Reject(c.Request.Context(), c.Param("requestID"), req, staffID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToEmergencyResponse(request))
}

// rejectByBloodType godoc
// @Summary Bulk-reject hospital requests
// @Description Rejects every pending hospital request for a blood type and component with one reason.
// @Tags emergency
// @Accept json
// @Produce json
// @Param rejection body dto.RejectByBloodTypeRequest true "Blood type, component and reason"
// @Success 200 {object} dto.BulkRejectResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /emergency-requests/reject-by-blood-type [post]
func (h *emergencyHandler) rejectByBloodType(c *gin.Context) {
	staffID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RejectByBloodTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	resp, err := h.emergencyService.RejectByBloodType(c.Request.Context(), req, staffID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// provideContacts godoc
// @Summary Provide donor contacts
// @Description Answers a pending individual request with suggested donor contacts instead of stock.
// @Tags emergency
// @Accept json
// @Produce json
// @Param requestID path string true "Request ID"
// @Param contacts body dto.ProvideContactsRequest false "Explicit donor IDs, or empty to auto-match"
// @Success 200 {object} dto.EmergencyResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /emergency-requests/{requestID}/contacts [post]
func (h *emergencyHandler) provideContacts(c *gin.Context) {
	staffID, ok := actorFromContext(c)
	if !ok {
		return
	}
	// auto-matching needs no body, so an empty one is accepted
	var req dto.ProvideContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	request, err := h.emergencyService.ProvideContacts(c.Request.Context(), c.Param("requestID"), req, staffID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToEmergencyResponse(request))
}
