package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leadflow/backend/internal/audit"
	"github.com/leadflow/backend/internal/metrics"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/pipeline"
	"github.com/leadflow/backend/internal/recommend"
	"github.com/leadflow/backend/internal/repository"
)

type automationService struct {
	ruleRepo    repository.AutomationRuleRepository
	stageRepo   repository.StageRepository
	leadRepo    repository.LeadRepository
	recommender recommend.Recommender
	audit       AuditService
	metrics     metrics.Recorder
	now         func() time.Time
}

// NewAutomationService creates a new automation service. recommender may be nil
// when AI recommendations are switched off.
func NewAutomationService(
	ruleRepo repository.AutomationRuleRepository,
	stageRepo repository.StageRepository,
	leadRepo repository.LeadRepository,
	recommender recommend.Recommender,
	auditService AuditService,
	recorder metrics.Recorder,
) AutomationService {
	if recorder == nil {
		recorder = metrics.Noop()
	}
	return &automationService{
		ruleRepo:    ruleRepo,
		stageRepo:   stageRepo,
		leadRepo:    leadRepo,
		recommender: recommender,
		audit:       auditService,
		metrics:     recorder,
		now:         time.Now,
	}
}

// ListRules returns one rule per stage in pipeline order; stages without a
// saved rule get the disabled default.
func (s *automationService) ListRules(ctx context.Context) ([]models.AutomationRule, error) {
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	saved, err := s.ruleRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	byStage := make(map[string]models.AutomationRule, len(saved))
	for _, rule := range saved {
		if _, dup := byStage[rule.StageID]; !dup {
			byStage[rule.StageID] = rule
		}
	}

	ordered := pipeline.OrderStages(stages)
	rules := make([]models.AutomationRule, 0, len(ordered))
	for _, stage := range ordered {
		rule, ok := byStage[stage.ID]
		if !ok {
			rule = models.DefaultAutomationRule(stage.ID)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s *automationService) SaveRule(ctx context.Context, actor *models.User, stageID string, req *models.SaveAutomationRuleRequest) (*models.AutomationRule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !req.Action.Valid() {
		return nil, invalidf("unknown automation action %q", req.Action)
	}
	if req.TriggerDays < 0 {
		return nil, invalidf("triggerDays must not be negative")
	}

	stage, err := s.stageRepo.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}

	previous := models.DefaultAutomationRule(stageID)
	if existing, err := s.ruleRepo.GetByStageID(ctx, stageID); err == nil {
		previous = *existing
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	saved, err := s.ruleRepo.Upsert(ctx, &models.AutomationRule{
		StageID:     stageID,
		Enabled:     req.Enabled,
		TriggerDays: req.TriggerDays,
		Action:      req.Action,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditSaveRule,
		audit.RuleSnapshot{Rule: previous}, audit.RuleSnapshot{Rule: *saved},
		map[string]any{"stageName": stage.Name})
	return saved, nil
}

// ProjectLead predicts the next transition of one lead. It returns a nil
// projection, not an error, when no rule applies.
func (s *automationService) ProjectLead(ctx context.Context, actor *models.User, leadID string) (*pipeline.Projection, error) {
	lead, err := s.leadRepo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if !visibilityFor(actor, stages).canSee(*lead) {
		return nil, fmt.Errorf("lead %s: %w", leadID, ErrNotFound)
	}
	rules, err := s.ruleRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	projection := pipeline.ProjectNextTransition(pipeline.CurrentStageID(*lead), lead.StageHistory, rules, stages)
	s.metrics.IncProjection(projectionOutcome(*lead, projection))
	return projection, nil
}

func (s *automationService) Forecast(ctx context.Context, actor *models.User) ([]pipeline.Forecast, error) {
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	leads, err := s.leadRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := s.ruleRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	visible := visibilityFor(actor, stages).filter(leads)
	forecasts := pipeline.ForecastLeads(visible, rules, stages, s.now())
	for range forecasts {
		s.metrics.IncProjection(metrics.ProjectionPredicted)
	}
	return forecasts, nil
}

func (s *automationService) Recommend(ctx context.Context, actor *models.User) (*recommend.Result, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if s.recommender == nil {
		return nil, recommend.ErrDisabled
	}

	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	leads, err := s.leadRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	leads = visibilityFor(actor, stages).filter(leads)
	if len(leads) == 0 {
		return nil, invalidf("at least one lead is needed to generate recommendations")
	}

	result, err := s.recommender.Recommend(ctx, recommend.Input{
		Lead:       leads[0],
		History:    leads,
		StageNames: pipeline.ActiveStageNames(stages),
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditAIRecommendations, nil, nil,
		map[string]any{"recommendationCount": len(result.Recommendations)})
	return result, nil
}
