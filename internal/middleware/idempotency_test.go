package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/leadflow/backend/internal/models"
)

type memoryIdempotency struct {
	mu      sync.Mutex
	records map[string]models.IdempotencyKey
}

func (m *memoryIdempotency) Get(_ context.Context, key, route, userID string) (*models.IdempotencyKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID+"|"+route+"|"+key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memoryIdempotency) Store(_ context.Context, key, route, userID string, body []byte, status int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[userID+"|"+route+"|"+key] = models.IdempotencyKey{
		Key: key, Route: route, UserID: userID, ResponseBody: body, StatusCode: status,
	}
	return nil
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &memoryIdempotency{records: map[string]models.IdempotencyKey{}}
	calls := 0

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(ContextUserID, "u-1") }, Idempotency(repo))
	router.POST("/leads", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"id": "lead-1"})
	})

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/leads", nil)
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := send("k-1")
	second := send("k-1")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replayed"))

	send("")
	send("k-2")
	assert.Equal(t, 3, calls)
}
