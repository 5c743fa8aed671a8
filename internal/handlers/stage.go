package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/service"
)

type StageHandler struct {
	stageService service.StageService
}

// NewStageHandler creates a new pipeline stage handler
func NewStageHandler(stageService service.StageService) *StageHandler {
	return &StageHandler{stageService: stageService}
}

// ListStages handles GET /api/v1/stages
func (h *StageHandler) ListStages(c *gin.Context) {
	stages, err := h.stageService.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "stage")
		return
	}
	c.JSON(http.StatusOK, stages)
}

// CreateStage handles POST /api/v1/stages
func (h *StageHandler) CreateStage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.CreateStageRequest
	if !bindJSON(c, &req) {
		return
	}

	stage, err := h.stageService.Create(c.Request.Context(), user, &req)
	if err != nil {
		writeError(c, err, "stage")
		return
	}
	c.JSON(http.StatusCreated, stage)
}

// RenameStage handles PUT /api/v1/stages/:id/name
func (h *StageHandler) RenameStage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.RenameStageRequest
	if !bindJSON(c, &req) {
		return
	}

	stage, err := h.stageService.Rename(c.Request.Context(), user, c.Param("id"), &req)
	if err != nil {
		writeError(c, err, "stage")
		return
	}
	c.JSON(http.StatusOK, stage)
}

// UpdateStageProperty handles PATCH /api/v1/stages/:id
func (h *StageHandler) UpdateStageProperty(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.UpdateStagePropertyRequest
	if !bindJSON(c, &req) {
		return
	}

	stage, err := h.stageService.UpdateProperty(c.Request.Context(), user, c.Param("id"), &req)
	if err != nil {
		writeError(c, err, "stage")
		return
	}
	c.JSON(http.StatusOK, stage)
}

// ReorderStages handles PUT /api/v1/stages/order
func (h *StageHandler) ReorderStages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.ReorderStagesRequest
	if !bindJSON(c, &req) {
		return
	}

	stages, err := h.stageService.Reorder(c.Request.Context(), user, &req)
	if err != nil {
		writeError(c, err, "stage")
		return
	}
	c.JSON(http.StatusOK, stages)
}

// DeleteStage handles DELETE /api/v1/stages/:id
func (h *StageHandler) DeleteStage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.stageService.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		writeError(c, err, "stage")
		return
	}
	c.Status(http.StatusNoContent)
}
