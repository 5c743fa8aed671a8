package repository

import (
	"context"
	"fmt"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/pkg/supabase"
)

const rulesTable = "automation_rules"

type automationRuleRepository struct {
	client *supabase.Client
}

// NewAutomationRuleRepository creates a new automation rule repository
func NewAutomationRuleRepository(client *supabase.Client) AutomationRuleRepository {
	return &automationRuleRepository{client: client}
}

func (r *automationRuleRepository) List(ctx context.Context) ([]models.AutomationRule, error) {
	body, err := r.client.Query(ctx, rulesTable, supabase.Filter{"select": "*"})
	if err != nil {
		return nil, fmt.Errorf("failed to list automation rules: %w", err)
	}
	return decodeList[models.AutomationRule](body, "automation rules")
}

func (r *automationRuleRepository) GetByStageID(ctx context.Context, stageID string) (*models.AutomationRule, error) {
	body, err := r.client.Query(ctx, rulesTable, supabase.Filter{
		"select":  "*",
		"stageId": supabase.Eq(stageID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get automation rule: %w", err)
	}
	return decodeFirst[models.AutomationRule](body, "automation rule", stageID)
}

// Upsert writes the rule for its stage, replacing any previous rule
func (r *automationRuleRepository) Upsert(ctx context.Context, rule *models.AutomationRule) (*models.AutomationRule, error) {
	body, err := r.client.Upsert(ctx, rulesTable, rule, "stageId")
	if err != nil {
		return nil, fmt.Errorf("failed to save automation rule: %w", err)
	}
	return decodeFirst[models.AutomationRule](body, "automation rule", rule.StageID)
}

func (r *automationRuleRepository) DeleteByStageID(ctx context.Context, stageID string) error {
	if err := r.client.DeleteWhere(ctx, rulesTable, supabase.Filter{"stageId": supabase.Eq(stageID)}); err != nil {
		return fmt.Errorf("failed to delete automation rule: %w", err)
	}
	return nil
}
