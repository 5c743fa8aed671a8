package repository

import (
	"context"
	"fmt"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/pkg/supabase"
)

const leadsTable = "leads"

type leadRepository struct {
	client *supabase.Client
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(client *supabase.Client) LeadRepository {
	return &leadRepository{client: client}
}

func (r *leadRepository) Create(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	body, err := r.client.Insert(ctx, leadsTable, lead)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return decodeFirst[models.Lead](body, "lead", lead.ID)
}

func (r *leadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	body, err := r.client.Query(ctx, leadsTable, supabase.Filter{
		"select": "*",
		"id":     supabase.Eq(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return decodeFirst[models.Lead](body, "lead", id)
}

func (r *leadRepository) List(ctx context.Context) ([]models.Lead, error) {
	body, err := r.client.Query(ctx, leadsTable, supabase.Filter{
		"select": "*",
		"order":  "addedDate.desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return decodeList[models.Lead](body, "leads")
}

func (r *leadRepository) ListByStage(ctx context.Context, stageID string) ([]models.Lead, error) {
	body, err := r.client.Query(ctx, leadsTable, supabase.Filter{
		"select":  "*",
		"stageId": supabase.Eq(stageID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list leads by stage: %w", err)
	}
	return decodeList[models.Lead](body, "leads")
}

func (r *leadRepository) Update(ctx context.Context, id string, fields map[string]any) (*models.Lead, error) {
	body, err := r.client.Update(ctx, leadsTable, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	return decodeFirst[models.Lead](body, "lead", id)
}

func (r *leadRepository) UpdateMany(ctx context.Context, ids []string, fields map[string]any) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.client.UpdateWhere(ctx, leadsTable, supabase.Filter{"id": supabase.In(ids)}, fields)
	if err != nil {
		return fmt.Errorf("failed to update leads: %w", err)
	}
	return nil
}

func (r *leadRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Delete(ctx, leadsTable, id); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil
}
