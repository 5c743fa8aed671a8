package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/pkg/supabase"
)

const idempotencyTable = "idempotency_keys"

// IdempotencyRepository defines the interface for idempotency key operations
type IdempotencyRepository interface {
	// Get retrieves an existing idempotency record, or nil if there is none
	Get(ctx context.Context, key, route, userID string) (*models.IdempotencyKey, error)

	// Store saves a new idempotency record
	Store(ctx context.Context, key, route, userID string, responseBody []byte, statusCode int) error
}

type idempotencyRepository struct {
	client *supabase.Client
}

// NewIdempotencyRepository creates a new idempotency repository
func NewIdempotencyRepository(client *supabase.Client) IdempotencyRepository {
	return &idempotencyRepository{client: client}
}

func (r *idempotencyRepository) Get(ctx context.Context, key, route, userID string) (*models.IdempotencyKey, error) {
	body, err := r.client.Query(ctx, idempotencyTable, supabase.Filter{
		"key":     supabase.Eq(key),
		"route":   supabase.Eq(route),
		"user_id": supabase.Eq(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query idempotency key: %w", err)
	}

	record, err := decodeFirst[models.IdempotencyKey](body, "idempotency key", key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return record, err
}

func (r *idempotencyRepository) Store(ctx context.Context, key, route, userID string, responseBody []byte, statusCode int) error {
	data := map[string]any{
		"key":           key,
		"route":         route,
		"user_id":       userID,
		"response_body": json.RawMessage(responseBody),
		"status_code":   statusCode,
	}

	if _, err := r.client.Insert(ctx, idempotencyTable, data); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}
