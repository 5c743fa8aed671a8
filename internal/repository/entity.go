package repository

import (
	"context"
	"fmt"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/pkg/supabase"
)

const entitiesTable = "entities"

type entityRepository struct {
	client *supabase.Client
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(client *supabase.Client) EntityRepository {
	return &entityRepository{client: client}
}

func (r *entityRepository) Create(ctx context.Context, entity *models.Entity) (*models.Entity, error) {
	data := map[string]any{"name": entity.Name}
	if entity.ID != "" {
		data["id"] = entity.ID
	}

	body, err := r.client.Insert(ctx, entitiesTable, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}
	return decodeFirst[models.Entity](body, "entity", entity.Name)
}

func (r *entityRepository) GetByID(ctx context.Context, id string) (*models.Entity, error) {
	body, err := r.client.Query(ctx, entitiesTable, supabase.Filter{
		"select": "*",
		"id":     supabase.Eq(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return decodeFirst[models.Entity](body, "entity", id)
}

func (r *entityRepository) List(ctx context.Context) ([]models.Entity, error) {
	body, err := r.client.Query(ctx, entitiesTable, supabase.Filter{
		"select": "*",
		"order":  "name.asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	return decodeList[models.Entity](body, "entities")
}

func (r *entityRepository) Update(ctx context.Context, id string, fields map[string]any) (*models.Entity, error) {
	body, err := r.client.Update(ctx, entitiesTable, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update entity: %w", err)
	}
	return decodeFirst[models.Entity](body, "entity", id)
}

func (r *entityRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, entitiesTable, id); err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	return nil
}
