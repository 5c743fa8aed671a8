package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/pipeline"
	"github.com/leadflow/backend/internal/repository"
)

type dashboardService struct {
	leadRepo  repository.LeadRepository
	stageRepo repository.StageRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(leadRepo repository.LeadRepository, stageRepo repository.StageRepository) DashboardService {
	return &dashboardService{leadRepo: leadRepo, stageRepo: stageRepo}
}

// Summary counts the visible leads per stage, contract type and sector.
// Amounts are summed as decimals and reported with two places.
func (s *dashboardService) Summary(ctx context.Context, actor *models.User) (*models.DashboardSummary, error) {
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	leads, err := s.leadRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	leads = visibilityFor(actor, stages).filter(leads)

	counts := make(map[string]int)
	values := make(map[string]decimal.Decimal)
	total := decimal.Zero
	summary := &models.DashboardSummary{
		TotalLeads:    len(leads),
		ContractTypes: make(map[string]int),
		Sectors:       make(map[string]int),
	}

	for _, lead := range leads {
		amount := decimal.NewFromFloat(lead.Amount)
		counts[lead.StageID]++
		values[lead.StageID] = values[lead.StageID].Add(amount)
		total = total.Add(amount)

		if lead.ContractType != "" {
			summary.ContractTypes[string(lead.ContractType)]++
		}
		if lead.Sector != "" {
			summary.Sectors[lead.Sector]++
		}
	}

	ordered := pipeline.OrderStages(stages)
	summary.Stages = make([]models.StageSummary, 0, len(ordered))
	for _, stage := range ordered {
		summary.Stages = append(summary.Stages, models.StageSummary{
			StageID:   stage.ID,
			StageName: stage.Name,
			Count:     counts[stage.ID],
			Value:     values[stage.ID].StringFixed(2),
		})
	}
	summary.TotalValue = total.StringFixed(2)
	return summary, nil
}
