package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
)

// donationHandler handles HTTP requests for the campaign donation workflow.
type donationHandler struct {
	donationService portssvc.DonationSvcFacade
}

func newDonationHandler(ds portssvc.DonationSvcFacade) *donationHandler {
	return &donationHandler{donationService: ds}
}

// registerDonationRoutes registers all donation workflow routes.
func registerDonationRoutes(rg *gin.RouterGroup, donationService portssvc.DonationSvcFacade) {
	h := newDonationHandler(donationService)

	donations := rg.Group("/donations")
	{
		donations.POST("", h.requestDonation)
		donations.GET("/:donationID", h.getDonation)
		donations.GET("/:donationID/result", h.getDonationResult)
		donations.GET("/:donationID/logs", h.listDonationLogs)
		donations.PUT("/:donationID/status", h.updateStatus)
		donations.POST("/:donationID/cancel", h.customerCancel)
		donations.POST("/:donationID/complete", h.completeDonation)
		donations.POST("/:donationID/reschedule", h.rescheduleDonation)
	}
	rg.GET("/campaigns/:campaignID/donations", h.listDonationsByCampaign)
	rg.GET("/donors/:donorID/donations", h.listDonationsByDonor)
}

// requestDonation godoc
// @Summary Request a campaign donation
// @Description Submits the caller's participation in a campaign. The donation starts in PENDING.
// @Tags donations
// @Accept json
// @Produce json
// @Param donation body dto.CreateDonationRequest true "Donation details"
// @Success 201 {object} dto.DonationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /donations [post]
func (h *donationHandler) requestDonation(c *gin.Context) {
	donorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	donation, err := h.donationService.RequestDonation(c.Request.Context(), donorID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToDonationResponse(donation))
}

// getDonation godoc
// @Summary Get a donation
// @Tags donations
// @Produce json
// @Param donationID path string true "Donation ID"
// @Success 200 {object} dto.DonationResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /donations/{donationID} [get]
func (h *donationHandler) getDonation(c *gin.Context) {
	donation, err := h.donationService.GetDonationByID(c.Request.Context(), c.Param("donationID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDonationResponse(donation))
}

// updateStatus godoc
// @Summary Transition a donation
// @Description Moves a donation to a new status. Invalid transitions are rejected.
// @Tags donations
// @Accept json
// @Produce json
// @Param donationID path string true "Donation ID"
// @Param transition body dto.UpdateDonationStatusRequest true "Target status"
// @Success 200 {object} dto.DonationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /donations/{donationID}/status [put]
func (h *donationHandler) updateStatus(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateDonationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	donation, err := h.donationService.UpdateStatus(c.Request.Context(), c.Param("donationID"), req, actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDonationResponse(donation))
}

// customerCancel godoc
// @Summary Cancel own donation
// @Description Cancels the caller's donation. Confirmed appointments need 24h of lead time.
// @Tags donations
// @Accept json
// @Produce json
// @Param donationID path string true "Donation ID"
// @Param cancellation body dto.CancelDonationRequest false "Optional note"
// @Success 200 {object} dto.DonationResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /donations/{donationID}/cancel [post]
func (h *donationHandler) customerCancel(c *gin.Context) {
	donorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	// the cancellation note is optional so an empty body is accepted
	var req dto.CancelDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	donation, err := h.donationService.CustomerCancel(c.Request.Context(), c.Param("donationID"), donorID, req.Note)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDonationResponse(donation))
}

// completeDonation godoc
// @Summary Complete a donation
// @Description Marks a checked-in donation COMPLETED and records its result in the same transaction.
// @Tags donations
// @Accept json
// @Produce json
// @Param donationID path string true "Donation ID"
// @Param outcome body dto.CompleteDonationRequest true "Collection outcome"
// @Success 200 {object} dto.DonationResultResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /donations/{donationID}/complete [post]
func (h *donationHandler) completeDonation(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CompleteDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	result, err := h.donationService.Complete(c.Request.Context(), c.Param("donationID"), req, actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDonationResultResponse(result))
}

// rescheduleDonation godoc
// @Summary Reschedule an appointment
// @Tags donations
// @Accept json
// @Produce json
// @Param donationID path string true "Donation ID"
// @Param reschedule body dto.RescheduleDonationRequest true "New appointment date"
// @Success 200 {object} dto.DonationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /donations/{donationID}/reschedule [post]
func (h *donationHandler) rescheduleDonation(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RescheduleDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	donation, err := h.donationService.Reschedule(c.Request.Context(), c.Param("donationID"), req, actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDonationResponse(donation))
}

// getDonationResult godoc
// @Summary Get a donation's result
// @Tags donations
// @Produce json
// @Param donationID path string true "Donation ID"
// @Success 200 {object} dto.DonationResultResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /donations/{donationID}/result [get]
func (h *donationHandler) getDonationResult(c *gin.Context) {
	result, err := h.donationService.GetDonationResult(c.Request.Context(), c.Param("donationID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDonationResultResponse(result))
}

// listDonationLogs godoc
// @Summary List a donation's transition log
// @Tags donations
// @Produce json
// @Param donationID path string true "Donation ID"
// @Success 200 {array} dto.DonationLogResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /donations/{donationID}/logs [get]
func (h *donationHandler) listDonationLogs(c *gin.Context) {
	logs, err := h.donationService.ListDonationLogs(c.Request.Context(), c.Param("donationID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDonationLogResponses(logs))
}

// listDonationsByCampaign godoc
// @Summary List a campaign's donations
// @Tags donations
// @Produce json
// @Param campaignID path string true "Campaign ID"
// @Success 200 {object} dto.ListDonationsResponse
// @Security BearerAuth
// @Router /campaigns/{campaignID}/donations [get]
func (h *donationHandler) listDonationsByCampaign(c *gin.Context) {
	var params dto.ListDonationsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}
	resp, err := h.donationService.ListDonationsByCampaign(c.Request.Context(), c.Param("campaignID"), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listDonationsByDonor godoc
// @Summary List a donor's donations
// @Tags donations
// @Produce json
// @Param donorID path string true "Donor ID"
// @Success 200 {array} dto.DonationResponse
// @Security BearerAuth
// @Router /donors/{donorID}/donations [get]
func (h *donationHandler) listDonationsByDonor(c *gin.Context) {
	donations, err := h.donationService.ListDonationsByDonor(c.Request.Context(), c.Param("donorID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDonationResponses(donations))
}
