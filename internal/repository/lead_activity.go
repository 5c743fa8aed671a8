package repository

import (
	"context"
	"fmt"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/pkg/supabase"
)

const leadActivitiesTable = "lead_activities"

type leadActivityRepository struct {
	client *supabase.Client
}

// NewLeadActivityRepository creates a new lead activity repository
func NewLeadActivityRepository(client *supabase.Client) LeadActivityRepository {
	return &leadActivityRepository{client: client}
}

func (r *leadActivityRepository) Create(ctx context.Context, activity *models.LeadActivity) (*models.LeadActivity, error) {
	data := map[string]any{
		"leadId":   activity.LeadID,
		"userId":   activity.UserID,
		"date":     activity.Date,
		"activity": activity.Activity,
	}
	if activity.ID != "" {
		data["id"] = activity.ID
	}

	body, err := r.client.Insert(ctx, leadActivitiesTable, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead activity: %w", err)
	}
	return decodeFirst[models.LeadActivity](body, "lead activity", activity.LeadID)
}

func (r *leadActivityRepository) ListByLead(ctx context.Context, leadID string) ([]models.LeadActivity, error) {
	body, err := r.client.Query(ctx, leadActivitiesTable, supabase.Filter{
		"select": "*",
		"leadId": supabase.Eq(leadID),
		"order":  "date.desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list lead activities: %w", err)
	}
	return decodeList[models.LeadActivity](body, "lead activities")
}
