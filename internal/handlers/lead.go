package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/backend/internal/apierror"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/service"
)

type LeadHandler struct {
	leadService service.LeadService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadService service.LeadService) *LeadHandler {
	return &LeadHandler{
		leadService: leadService,
	}
}

// ListLeads handles GET /api/v1/leads
func (h *LeadHandler) ListLeads(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var filter models.LeadFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		apierror.WriteProblem(c, apierror.FromBindingError(apierror.GetRequestID(c), err))
		return
	}

	leads, err := h.leadService.List(c.Request.Context(), user, filter)
	if err != nil {
		writeError(c, err, "lead")
		return
	}

	c.JSON(http.StatusOK, leads)
}

// GetLead handles GET /api/v1/leads/:id
func (h *LeadHandler) GetLead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	lead, err := h.leadService.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		writeError(c, err, "lead")
		return
	}

	c.JSON(http.StatusOK, lead)
}

// CreateLead handles POST /api/v1/leads
func (h *LeadHandler) CreateLead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateLeadRequest
	if !bindJSON(c, &req) {
		return
	}

	lead, err := h.leadService.Create(c.Request.Context(), user, &req)
	if err != nil {
		writeError(c, err, "lead")
		return
	}

	c.JSON(http.StatusCreated, lead)
}

// UpdateLead handles PATCH /api/v1/leads/:id
func (h *LeadHandler) UpdateLead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.UpdateLeadRequest
	if !bindJSON(c, &req) {
		return
	}

	lead, err := h.leadService.Update(c.Request.Context(), user, c.Param("id"), &req)
	if err != nil {
		writeError(c, err, "lead")
		return
	}

	c.JSON(http.StatusOK, lead)
}

// MoveLead handles PUT /api/v1/leads/:id/stage, the kanban drag
func (h *LeadHandler) MoveLead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.MoveLeadRequest
	if !bindJSON(c, &req) {
		return
	}

	lead, err := h.leadService.Move(c.Request.Context(), user, c.Param("id"), req.StageID)
	if err != nil {
		writeError(c, err, "lead")
		return
	}

	c.JSON(http.StatusOK, lead)
}

// BulkUpdateLeads handles POST /api/v1/leads/bulk
func (h *LeadHandler) BulkUpdateLeads(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.BulkUpdateLeadsRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.leadService.BulkUpdate(c.Request.Context(), user, &req)
	if err != nil {
		writeError(c, err, "lead")
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteLead handles DELETE /api/v1/leads/:id
func (h *LeadHandler) DeleteLead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.leadService.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		writeError(c, err, "lead")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetTimeline handles GET /api/v1/leads/:id/timeline
func (h *LeadHandler) GetTimeline(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	timeline, err := h.leadService.Timeline(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		writeError(c, err, "lead")
		return
	}

	c.JSON(http.StatusOK, timeline)
}

// ListSectors handles GET /api/v1/leads/sectors
func (h *LeadHandler) ListSectors(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	sectors, err := h.leadService.Sectors(c.Request.Context(), user)
	if err != nil {
		writeError(c, err, "sector")
		return
	}

	c.JSON(http.StatusOK, sectors)
}

// ListActivities handles GET /api/v1/leads/:id/activities
func (h *LeadHandler) ListActivities(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	activities, err := h.leadService.ListActivities(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		writeError(c, err, "lead")
		return
	}

	c.JSON(http.StatusOK, activities)
}

// AddActivity handles POST /api/v1/leads/:id/activities
func (h *LeadHandler) AddActivity(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.AddActivityRequest
	if !bindJSON(c, &req) {
		return
	}

	activity, err := h.leadService.AddActivity(c.Request.Context(), user, c.Param("id"), &req)
	if err != nil {
		writeError(c, err, "lead")
		return
	}

	c.JSON(http.StatusCreated, activity)
}
