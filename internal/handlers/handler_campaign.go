package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
	"github.com/redcross-vn/blood_bank_app/internal/dto"
)

// campaignHandler handles HTTP requests for donation campaigns.
type campaignHandler struct {
	campaignService portssvc.CampaignSvcFacade
}

func newCampaignHandler(cs portssvc.CampaignSvcFacade) *campaignHandler {
	return &campaignHandler{campaignService: cs}
}

// registerCampaignRoutes registers all campaign routes.
func registerCampaignRoutes(rg *gin.RouterGroup, campaignService portssvc.CampaignSvcFacade) {
	h := newCampaignHandler(campaignService)

	campaigns := rg.Group("/campaigns")
	{
		campaigns.POST("", h.createCampaign)
		campaigns.GET("", h.listCampaigns)
		campaigns.GET("/:campaignID", h.getCampaign)
		campaigns.PUT("/:campaignID", h.updateCampaign)
	}
}

// createCampaign godoc
// @Summary Create a campaign
// @Tags campaigns
// @Accept json
// @Produce json
// @Param campaign body dto.CreateCampaignRequest true "Campaign details"
// @Success 201 {object} dto.CampaignResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /campaigns [post]
func (h *campaignHandler) createCampaign(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	campaign, err := h.campaignService.CreateCampaign(c.Request.Context(), req, actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToCampaignResponse(campaign))
}

// getCampaign godoc
// @Summary Get a campaign
// @Tags campaigns
// @Produce json
// @Param campaignID path string true "Campaign ID"
// @Success 200 {object} dto.CampaignResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /campaigns/{campaignID} [get]
func (h *campaignHandler) getCampaign(c *gin.Context) {
	campaign, err := h.campaignService.GetCampaignByID(c.Request.Context(), c.Param("campaignID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCampaignResponse(campaign))
}

// listCampaigns godoc
// @Summary List active campaigns
// @Tags campaigns
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} dto.CampaignResponse
// @Security BearerAuth
// @Router /campaigns [get]
func (h *campaignHandler) listCampaigns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	campaigns, err := h.campaignService.ListCampaigns(c.Request.Context(), limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCampaignResponses(campaigns))
}

// updateCampaign godoc
// @Summary Update a campaign
// @Tags campaigns
// @Accept json
// @Produce json
// @Param campaignID path string true "Campaign ID"
// @Param campaign body dto.UpdateCampaignRequest true "Fields to update"
// @Success 200 {object} dto.CampaignResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /campaigns/{campaignID} [put]
func (h *campaignHandler) updateCampaign(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	campaign, err := h.campaignService.UpdateCampaign(c.Request.Context(), c.Param("campaignID"), req, actorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCampaignResponse(campaign))
}
