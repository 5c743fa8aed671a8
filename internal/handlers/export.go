package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/backend/internal/apierror"
	"github.com/leadflow/backend/internal/service"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ExportHandler struct {
	exportService    service.ExportService
	dashboardService service.DashboardService
}

// NewExportHandler creates a new export and dashboard handler
func NewExportHandler(exportService service.ExportService, dashboardService service.DashboardService) *ExportHandler {
	return &ExportHandler{
		exportService:    exportService,
		dashboardService: dashboardService,
	}
}

// ExportLeads handles GET /api/v1/leads/export?format=csv|xlsx. The file is
// rendered into memory first so a failure still yields a problem response.
func (h *ExportHandler) ExportLeads(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "csv")
	var (
		buf         bytes.Buffer
		err         error
		contentType string
	)
	switch format {
	case "csv":
		contentType = contentTypeCSV
		err = h.exportService.ExportCSV(c.Request.Context(), user, &buf)
	case "xlsx":
		contentType = contentTypeXLSX
		err = h.exportService.ExportXLSX(c.Request.Context(), user, &buf)
	default:
		apierror.WriteProblem(c, apierror.NewBadRequestError(
			apierror.GetRequestID(c),
			fmt.Sprintf("unsupported export format %q", format),
			"Choose CSV or Excel as the export format.",
		))
		return
	}
	if err != nil {
		writeError(c, err, "lead")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="leads.%s"`, format))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// GetSummary handles GET /api/v1/dashboard
func (h *ExportHandler) GetSummary(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	summary, err := h.dashboardService.Summary(c.Request.Context(), user)
	if err != nil {
		writeError(c, err, "dashboard")
		return
	}
	c.JSON(http.StatusOK, summary)
}
