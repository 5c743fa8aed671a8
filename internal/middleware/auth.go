package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/backend/internal/apierror"
	"github.com/leadflow/backend/internal/logger"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/repository"
	"github.com/leadflow/backend/pkg/supabase"
)

// Context keys set by Auth
const (
	ContextUser      = "user"
	ContextUserID    = "user_id"
	ContextUserToken = "user_token"
)

// TokenVerifier resolves a bearer token to an identity
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*supabase.AuthUser, error)
}

// ProfileLoader loads the CRM profile behind an identity
type ProfileLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Auth verifies the bearer token and loads the caller's profile. Accounts
// still awaiting approval are turned away with a pending-approval problem.
func Auth(verifier TokenVerifier, profiles ProfileLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context())
		requestID := apierror.GetRequestID(c)

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			log.Debug("authentication failed: missing or malformed authorization header")
			apierror.WriteProblem(c, apierror.NewUnauthorizedError(requestID))
			return
		}

		identity, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			log.Warn("authentication failed: token verification error", logger.Err(err))
			apierror.WriteProblem(c, apierror.NewUnauthorizedError(requestID))
			return
		}

		// Profiles are read with the service key; the caller's row may not
		// be visible to them yet while pending
		user, err := profiles.GetByID(supabase.WithUserToken(c.Request.Context(), ""), identity.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				log.Warn("authentication failed: no profile for identity", logger.String("user_id", identity.ID))
				apierror.WriteProblem(c, apierror.NewUnauthorizedError(requestID))
				return
			}
			log.Error("failed to load user profile", logger.Err(err), logger.String("user_id", identity.ID))
			apierror.WriteProblem(c, apierror.NewInternalError(requestID))
			return
		}
		if user.IsPending() {
			log.Info("rejected request from pending account", logger.String("user_id", user.ID))
			apierror.WriteProblem(c, apierror.NewPendingApprovalError(requestID))
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserToken, token)

		ctx := supabase.WithUserToken(c.Request.Context(), token)
		ctx = logger.WithUserID(ctx, user.ID)
		if entityID := user.OwnEntityID(); entityID != "" {
			ctx = logger.WithEntityID(ctx, entityID)
		}
		c.Request = c.Request.WithContext(ctx)

		log.Debug("authentication successful",
			logger.String("user_id", user.ID),
			logger.String("role", string(user.Role)),
		)

		c.Next()
	}
}

// RequireAdmin rejects callers without an admin role. It must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.Role.IsAdmin() {
			apierror.WriteProblem(c, apierror.NewForbiddenError(apierror.GetRequestID(c)))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the profile stored by Auth, or nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextUser); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
