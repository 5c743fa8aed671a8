package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leadflow/backend/internal/audit"
	"github.com/leadflow/backend/internal/logger"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/pipeline"
	"github.com/leadflow/backend/internal/repository"
)

type stageService struct {
	stageRepo repository.StageRepository
	leadRepo  repository.LeadRepository
	ruleRepo  repository.AutomationRuleRepository
	audit     AuditService
	now       func() time.Time
}

// NewStageService creates a new pipeline stage service
func NewStageService(
	stageRepo repository.StageRepository,
	leadRepo repository.LeadRepository,
	ruleRepo repository.AutomationRuleRepository,
	auditService AuditService,
) StageService {
	return &stageService{
		stageRepo: stageRepo,
		leadRepo:  leadRepo,
		ruleRepo:  ruleRepo,
		audit:     auditService,
		now:       time.Now,
	}
}

func (s *stageService) List(ctx context.Context) ([]models.Stage, error) {
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.OrderStages(stages), nil
}

func (s *stageService) Create(ctx context.Context, actor *models.User, req *models.CreateStageRequest) (*models.Stage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidf("stage name is required")
	}

	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if _, exists := pipeline.FindStageByName(name, stages); exists {
		return nil, fmt.Errorf("%w: a stage named %q already exists", ErrConflict, name)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate stage id: %w", err)
	}

	stage := &models.Stage{ID: id.String(), Name: name, Order: pipeline.NextOrder(stages)}
	if stage.IsGlobal() {
		stage.Order = 0
		stage.IsIsolated = true
	}

	created, err := s.stageRepo.Create(ctx, stage)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditCreateStage, nil, audit.StageSnapshot{Stage: *created},
		map[string]any{"stageName": created.Name})
	return created, nil
}

func (s *stageService) Rename(ctx context.Context, actor *models.User, id string, req *models.RenameStageRequest) (*models.Stage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidf("stage name is required")
	}

	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	stage, ok := pipeline.FindStage(id, stages)
	if !ok {
		return nil, fmt.Errorf("stage %s: %w", id, ErrNotFound)
	}
	if stage.IsGlobal() {
		return nil, invalidf("the %s stage cannot be renamed", models.GlobalStageName)
	}
	if strings.EqualFold(name, models.GlobalStageName) {
		return nil, invalidf("%q is reserved", models.GlobalStageName)
	}
	if other, exists := pipeline.FindStageByName(name, stages); exists && other.ID != id {
		return nil, fmt.Errorf("%w: a stage named %q already exists", ErrConflict, name)
	}
	if stage.Name == name {
		return &stage, nil
	}

	updated, err := s.stageRepo.Update(ctx, id, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditRenameStage,
		map[string]any{"name": stage.Name}, map[string]any{"name": updated.Name},
		map[string]any{"stageId": id})
	return updated, nil
}

func (s *stageService) UpdateProperty(ctx context.Context, actor *models.User, id string, req *models.UpdateStagePropertyRequest) (*models.Stage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if req.Value == nil {
		return nil, invalidf("value is required")
	}
	existing, err := s.stageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	fields := map[string]any{}
	switch req.Property {
	case models.StagePropIsolated:
		if existing.IsGlobal() && !*req.Value {
			return nil, invalidf("the %s stage is always isolated", models.GlobalStageName)
		}
		updated.IsIsolated = *req.Value
		fields["isIsolated"] = updated.IsIsolated
	case models.StagePropRequireStartDate:
		updated.Rules.RequireStartDateToEnter = *req.Value
		fields["rules"] = updated.Rules
	case models.StagePropRequireEndDate:
		updated.Rules.RequireEndDateToLeave = *req.Value
		fields["rules"] = updated.Rules
	default:
		return nil, invalidf("unknown stage property %q", req.Property)
	}

	saved, err := s.stageRepo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditUpdateStageProp,
		audit.StageSnapshot{Stage: *existing}, audit.StageSnapshot{Stage: *saved},
		map[string]any{"stageName": saved.Name, "property": req.Property})
	return saved, nil
}

func (s *stageService) Reorder(ctx context.Context, actor *models.User, req *models.ReorderStagesRequest) ([]models.Stage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	ordered := pipeline.OrderStages(stages)

	reordered, err := pipeline.Reorder(stages, req.StageIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	for _, stage := range reordered {
		current, _ := pipeline.FindStage(stage.ID, stages)
		if current.Order == stage.Order {
			continue
		}
		if _, err := s.stageRepo.Update(ctx, stage.ID, map[string]any{"order": stage.Order}); err != nil {
			return nil, err
		}
	}

	result := reordered
	if global, ok := pipeline.GlobalStage(stages); ok {
		result = append([]models.Stage{global}, reordered...)
	}

	before := pipeline.StageNames(ordered)
	after := pipeline.StageNames(result)
	if !slices.Equal(before, after) {
		s.audit.Record(ctx, actor, models.AuditReorderStages,
			map[string]any{"order": before}, map[string]any{"order": after}, nil)
	}
	return result, nil
}

// Delete removes a stage. Its leads are moved to the Global stage and its
// automation rule is dropped.
func (s *stageService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return err
	}
	stage, ok := pipeline.FindStage(id, stages)
	if !ok {
		return fmt.Errorf("stage %s: %w", id, ErrNotFound)
	}
	if stage.IsGlobal() {
		return invalidf("the %s stage cannot be deleted", models.GlobalStageName)
	}
	global, ok := pipeline.GlobalStage(stages)
	if !ok {
		return invalidf("the %s stage is missing; leads would have nowhere to go", models.GlobalStageName)
	}

	leads, err := s.leadRepo.ListByStage(ctx, id)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	for _, lead := range leads {
		history := append(slices.Clone(lead.StageHistory), models.StageHistoryEntry{StageID: global.ID, Timestamp: now})
		if _, err := s.leadRepo.Update(ctx, lead.ID, map[string]any{
			"stageId":      global.ID,
			"stageHistory": history,
		}); err != nil {
			return fmt.Errorf("failed to move lead %s to %s: %w", lead.ID, models.GlobalStageName, err)
		}
	}

	if err := s.ruleRepo.DeleteByStageID(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		log := logger.FromContext(ctx)
		log.Warn("failed to delete automation rule of removed stage", logger.Err(err), logger.String("stage_id", id))
	}

	if err := s.stageRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, actor, models.AuditDeleteStage, audit.StageSnapshot{Stage: stage}, nil,
		map[string]any{"stageName": stage.Name, "movedLeads": len(leads)})
	return nil
}
