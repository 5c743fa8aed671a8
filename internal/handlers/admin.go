package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/backend/internal/apierror"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/service"
)

// AdminHandler serves entity, user and audit trail administration. Routes
// are mounted behind middleware.RequireAdmin.
type AdminHandler struct {
	entityService service.EntityService
	userService   service.UserService
	auditService  service.AuditService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(entityService service.EntityService, userService service.UserService, auditService service.AuditService) *AdminHandler {
	return &AdminHandler{
		entityService: entityService,
		userService:   userService,
		auditService:  auditService,
	}
}

// ListEntities handles GET /api/v1/entities. Any signed-in user may read
// entities; signup lists them too.
func (h *AdminHandler) ListEntities(c *gin.Context) {
	entities, err := h.entityService.List(c.Request.Context())
	if err != nil {
		writeError(c, err, "entity")
		return
	}
	c.JSON(http.StatusOK, entities)
}

// CreateEntity handles POST /api/v1/admin/entities
func (h *AdminHandler) CreateEntity(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.CreateEntityRequest
	if !bindJSON(c, &req) {
		return
	}

	entity, err := h.entityService.Create(c.Request.Context(), user, &req)
	if err != nil {
		writeError(c, err, "entity")
		return
	}
	c.JSON(http.StatusCreated, entity)
}

// UpdateEntity handles PUT /api/v1/admin/entities/:id
func (h *AdminHandler) UpdateEntity(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.UpdateEntityRequest
	if !bindJSON(c, &req) {
		return
	}

	entity, err := h.entityService.Update(c.Request.Context(), user, c.Param("id"), &req)
	if err != nil {
		writeError(c, err, "entity")
		return
	}
	c.JSON(http.StatusOK, entity)
}

// DeleteEntity handles DELETE /api/v1/admin/entities/:id
func (h *AdminHandler) DeleteEntity(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.entityService.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		writeError(c, err, "entity")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListUsers handles GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var (
		users []models.User
		err   error
	)
	if c.Query("status") == string(models.UserStatusPending) {
		users, err = h.userService.ListPending(c.Request.Context(), user)
	} else {
		users, err = h.userService.List(c.Request.Context(), user)
	}
	if err != nil {
		writeError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser handles POST /api/v1/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.userService.Create(c.Request.Context(), user, &req)
	if err != nil {
		writeError(c, err, "user")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateUser handles PATCH /api/v1/admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.userService.Update(c.Request.Context(), user, c.Param("id"), &req)
	if err != nil {
		writeError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ApproveUser handles POST /api/v1/admin/users/:id/approve
func (h *AdminHandler) ApproveUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	approved, err := h.userService.Approve(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		writeError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, approved)
}

// RejectUser handles POST /api/v1/admin/users/:id/reject
func (h *AdminHandler) RejectUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.userService.Reject(c.Request.Context(), user, c.Param("id")); err != nil {
		writeError(c, err, "user")
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteUser handles DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		writeError(c, err, "user")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAuditLogs handles GET /api/v1/admin/audit-logs
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	var filter models.AuditLogFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		apierror.WriteProblem(c, apierror.FromBindingError(apierror.GetRequestID(c), err))
		return
	}

	page, err := h.auditService.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err, "audit log")
		return
	}
	c.JSON(http.StatusOK, page)
}
