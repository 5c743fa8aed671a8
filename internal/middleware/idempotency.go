package middleware

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/backend/internal/apierror"
	"github.com/leadflow/backend/internal/logger"
	"github.com/leadflow/backend/internal/repository"
)

// IdempotencyKeyHeader is the HTTP header name for idempotency keys
const IdempotencyKeyHeader = "Idempotency-Key"

// idempotencyBodyWriter captures the response body so it can be replayed
type idempotencyBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *idempotencyBodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a POST, PUT or PATCH repeats
// an Idempotency-Key the same user already sent to the same route. Only 2xx
// responses are stored, so a retried lead creation or bulk update is applied
// and audited once. It must run after Auth.
func Idempotency(repo repository.IdempotencyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		log := logger.FromContext(c.Request.Context())
		userID := c.GetString(ContextUserID)
		if userID == "" {
			log.Warn("idempotency check failed: no user_id in context")
			apierror.WriteProblem(c, apierror.NewUnauthorizedError(apierror.GetRequestID(c)))
			return
		}

		route := method + " " + c.FullPath()

		existing, err := repo.Get(c.Request.Context(), key, route, userID)
		if err != nil {
			// Serving the request unprotected beats refusing it
			log.Error("failed to check idempotency key", logger.Err(err), logger.String("key", key))
			c.Next()
			return
		}

		if existing != nil {
			log.Info("replaying idempotent response",
				logger.String("key", key),
				logger.String("route", route),
				logger.Int("status_code", existing.StatusCode),
			)
			c.Header("X-Idempotency-Replayed", "true")
			c.Data(existing.StatusCode, "application/json", existing.ResponseBody)
			c.Abort()
			return
		}

		blw := &idempotencyBodyWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if err := repo.Store(c.Request.Context(), key, route, userID, blw.body.Bytes(), status); err != nil {
			log.Warn("failed to store idempotency key", logger.Err(err), logger.String("key", key))
			return
		}
		log.Debug("stored idempotency key",
			logger.String("key", key),
			logger.String("route", route),
			logger.Int("status_code", status),
		)
	}
}
