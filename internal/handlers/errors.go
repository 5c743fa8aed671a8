package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/leadflow/backend/internal/apierror"
	"github.com/leadflow/backend/internal/logger"
	"github.com/leadflow/backend/internal/middleware"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/recommend"
	"github.com/leadflow/backend/internal/service"
)

// RegisterValidation makes binding errors report JSON field names
func RegisterValidation() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
}

// writeError maps a service error to its problem response. Unknown errors
// are logged and reported as 500 without their cause.
func writeError(c *gin.Context, err error, resource string) {
	requestID := apierror.GetRequestID(c)

	var problem *apierror.ProblemDetails
	switch {
	case errors.Is(err, service.ErrNotFound):
		problem = apierror.NewNotFoundError(requestID, resource, c.Param("id"))
	case errors.Is(err, service.ErrStageRuleViolation):
		problem = apierror.NewStageRuleError(requestID, err.Error())
	case errors.Is(err, service.ErrValidation):
		problem = apierror.NewValidationError(requestID, nil)
		problem.Detail = detailOf(err, service.ErrValidation)
		problem.UserMessage = problem.Detail
	case errors.Is(err, service.ErrConflict):
		problem = apierror.NewConflictError(requestID, detailOf(err, service.ErrConflict))
	case errors.Is(err, service.ErrPendingApproval):
		problem = apierror.NewPendingApprovalError(requestID)
	case errors.Is(err, service.ErrForbidden):
		problem = apierror.NewForbiddenError(requestID)
		problem.Detail = detailOf(err, service.ErrForbidden)
	case errors.Is(err, service.ErrUnauthorized):
		problem = apierror.NewUnauthorizedError(requestID)
	case errors.Is(err, recommend.ErrDisabled):
		problem = apierror.NewServiceUnavailableError(requestID, "AI recommendations are not configured", 0)
	case errors.Is(err, recommend.ErrInvalidResponse):
		problem = apierror.NewServiceUnavailableError(requestID, "the recommendation model returned an unusable answer", 30)
	default:
		log := logger.FromContext(c.Request.Context())
		log.Error("request failed",
			logger.Err(err),
			logger.String("path", c.FullPath()),
			logger.String("resource", resource),
		)
		problem = apierror.NewInternalError(requestID)
	}

	_ = c.Error(err)
	apierror.WriteProblem(c, problem)
}

// detailOf strips the sentinel's own text from a wrapped message
func detailOf(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return rest
	}
	return msg
}

// bindJSON binds the body and writes the problem response on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apierror.WriteProblem(c, apierror.FromBindingError(apierror.GetRequestID(c), err))
		return false
	}
	return true
}

// currentUser returns the authenticated caller or writes a 401
func currentUser(c *gin.Context) (*models.User, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		apierror.WriteProblem(c, apierror.NewUnauthorizedError(apierror.GetRequestID(c)))
		return nil, false
	}
	return user, true
}
