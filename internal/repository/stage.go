package repository

import (
	"context"
	"fmt"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/pkg/supabase"
)

const stagesTable = "pipeline_stages"

type stageRepository struct {
	client *supabase.Client
}

// NewStageRepository creates a new pipeline stage repository
func NewStageRepository(client *supabase.Client) StageRepository {
	return &stageRepository{client: client}
}

func (r *stageRepository) Create(ctx context.Context, stage *models.Stage) (*models.Stage, error) {
	data := map[string]any{
		"name":       stage.Name,
		"order":      stage.Order,
		"isIsolated": stage.IsIsolated,
		"rules":      stage.Rules,
	}
	if stage.ID != "" {
		data["id"] = stage.ID
	}

	body, err := r.client.Insert(ctx, stagesTable, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}
	return decodeFirst[models.Stage](body, "stage", stage.Name)
}

func (r *stageRepository) GetByID(ctx context.Context, id string) (*models.Stage, error) {
	body, err := r.client.Query(ctx, stagesTable, supabase.Filter{
		"select": "*",
		"id":     supabase.Eq(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	return decodeFirst[models.Stage](body, "stage", id)
}

func (r *stageRepository) List(ctx context.Context) ([]models.Stage, error) {
	body, err := r.client.Query(ctx, stagesTable, supabase.Filter{
		"select": "*",
		"order":  "order.asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	return decodeList[models.Stage](body, "stages")
}

func (r *stageRepository) Update(ctx context.Context, id string, fields map[string]any) (*models.Stage, error) {
	body, err := r.client.Update(ctx, stagesTable, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}
	return decodeFirst[models.Stage](body, "stage", id)
}

func (r *stageRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, stagesTable, id); err != nil {
		return fmt.Errorf("failed to delete stage: %w", err)
	}
	return nil
}
