package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/service"
)

type AutomationHandler struct {
	automationService service.AutomationService
}

// NewAutomationHandler creates a new automation handler
func NewAutomationHandler(automationService service.AutomationService) *AutomationHandler {
	return &AutomationHandler{automationService: automationService}
}

// ListRules handles GET /api/v1/automation/rules
func (h *AutomationHandler) ListRules(c *gin.Context) {
	rules, err := h.automationService.ListRules(c.Request.Context())
	if err != nil {
		writeError(c, err, "automation rule")
		return
	}
	c.JSON(http.StatusOK, rules)
}

// SaveRule handles PUT /api/v1/automation/rules/:stageId
func (h *AutomationHandler) SaveRule(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.SaveAutomationRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	rule, err := h.automationService.SaveRule(c.Request.Context(), user, c.Param("stageId"), &req)
	if err != nil {
		writeError(c, err, "stage")
		return
	}
	c.JSON(http.StatusOK, rule)
}

// GetProjection handles GET /api/v1/leads/:id/projection. A lead without an
// applicable rule gets {"projection": null}.
func (h *AutomationHandler) GetProjection(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	projection, err := h.automationService.ProjectLead(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		writeError(c, err, "lead")
		return
	}
	c.JSON(http.StatusOK, gin.H{"projection": projection})
}

// GetForecast handles GET /api/v1/automation/forecast
func (h *AutomationHandler) GetForecast(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	forecasts, err := h.automationService.Forecast(c.Request.Context(), user)
	if err != nil {
		writeError(c, err, "forecast")
		return
	}
	c.JSON(http.StatusOK, forecasts)
}

// Recommend handles POST /api/v1/automation/recommendations
func (h *AutomationHandler) Recommend(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.automationService.Recommend(c.Request.Context(), user)
	if err != nil {
		writeError(c, err, "recommendation")
		return
	}
	c.JSON(http.StatusOK, result)
}
