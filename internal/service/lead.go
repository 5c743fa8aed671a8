package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/leadflow/backend/internal/audit"
	"github.com/leadflow/backend/internal/metrics"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/pipeline"
	"github.com/leadflow/backend/internal/repository"
)

type leadService struct {
	leadRepo     repository.LeadRepository
	stageRepo    repository.StageRepository
	ruleRepo     repository.AutomationRuleRepository
	entityRepo   repository.EntityRepository
	activityRepo repository.LeadActivityRepository
	audit        AuditService
	metrics      metrics.Recorder
	now          func() time.Time
}

// NewLeadService creates a new lead service
func NewLeadService(
	leadRepo repository.LeadRepository,
	stageRepo repository.StageRepository,
	ruleRepo repository.AutomationRuleRepository,
	entityRepo repository.EntityRepository,
	activityRepo repository.LeadActivityRepository,
	auditService AuditService,
	recorder metrics.Recorder,
) LeadService {
	if recorder == nil {
		recorder = metrics.Noop()
	}
	return &leadService{
		leadRepo:     leadRepo,
		stageRepo:    stageRepo,
		ruleRepo:     ruleRepo,
		entityRepo:   entityRepo,
		activityRepo: activityRepo,
		audit:        auditService,
		metrics:      recorder,
		now:          time.Now,
	}
}

func (s *leadService) List(ctx context.Context, actor *models.User, filter models.LeadFilter) ([]models.Lead, error) {
	leads, _, err := s.visibleLeads(ctx, actor)
	if err != nil {
		return nil, err
	}

	result := make([]models.Lead, 0, len(leads))
	for _, lead := range leads {
		if matchLead(lead, filter, actor) {
			result = append(result, lead)
		}
	}
	return result, nil
}

// visibleLeads loads every lead the actor may see, together with the stages
// used to decide.
func (s *leadService) visibleLeads(ctx context.Context, actor *models.User) ([]models.Lead, []models.Stage, error) {
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	leads, err := s.leadRepo.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return visibilityFor(actor, stages).filter(leads), stages, nil
}

// load fetches a lead and hides it from actors who may not see it
func (s *leadService) load(ctx context.Context, actor *models.User, id string) (*models.Lead, []models.Stage, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !visibilityFor(actor, stages).canSee(*lead) {
		return nil, nil, fmt.Errorf("lead %s: %w", id, ErrNotFound)
	}
	return lead, stages, nil
}

func (s *leadService) Get(ctx context.Context, actor *models.User, id string) (*models.Lead, error) {
	lead, _, err := s.load(ctx, actor, id)
	return lead, err
}

func (s *leadService) Create(ctx context.Context, actor *models.User, req *models.CreateLeadRequest) (*models.Lead, error) {
	if err := requireLeadEditor(actor); err != nil {
		return nil, err
	}
	if req.ContractType != "" && !req.ContractType.Valid() {
		return nil, invalidf("unknown contract type %q", req.ContractType)
	}

	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	// New leads land in the Global stage unless told otherwise
	var stage models.Stage
	if req.StageID != "" {
		found, ok := pipeline.FindStage(req.StageID, stages)
		if !ok {
			return nil, invalidf("stage %s does not exist", req.StageID)
		}
		stage = found
	} else {
		global, ok := pipeline.GlobalStage(stages)
		if !ok {
			return nil, invalidf("no stage given and the %s stage does not exist", models.GlobalStageName)
		}
		stage = global
	}

	owner := strings.TrimSpace(req.OwnerEntityID)
	if owner == "" && actor != nil {
		owner = actor.OwnEntityID()
	}
	if actor != nil && !actor.Role.IsSuper() && actor.OwnEntityID() != "" && owner != actor.OwnEntityID() {
		return nil, fmt.Errorf("%w: leads can only be created for your own entity", ErrForbidden)
	}
	if owner != "" {
		if _, err := s.entityRepo.GetByID(ctx, owner); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalidf("entity %s does not exist", owner)
			}
			return nil, err
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate lead id: %w", err)
	}
	now := s.now().UTC()

	lead := &models.Lead{
		ID:                id.String(),
		AccountName:       strings.TrimSpace(req.AccountName),
		StageID:           stage.ID,
		Sector:            strings.TrimSpace(req.Sector),
		OwnerEntityID:     owner,
		ContractType:      req.ContractType,
		ContractStartDate: req.ContractStartDate,
		ContractEndDate:   req.ContractEndDate,
		Amount:            req.Amount,
		ContractDuration:  req.ContractDuration,
		AddedUserID:       actorID(actor),
		AddedDate:         now,
		StageHistory:      []models.StageHistoryEntry{{StageID: stage.ID, Timestamp: now}},
	}

	if err := pipeline.CheckTransition(*lead, nil, stage); err != nil {
		return nil, err
	}

	created, err := s.leadRepo.Create(ctx, lead)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditCreateLead, nil, audit.LeadSnapshot{Lead: *created},
		map[string]any{"leadId": created.ID, "accountName": created.AccountName})
	return created, nil
}

func (s *leadService) Update(ctx context.Context, actor *models.User, id string, req *models.UpdateLeadRequest) (*models.Lead, error) {
	if err := requireLeadEditor(actor); err != nil {
		return nil, err
	}
	existing, stages, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.StageHistory = slices.Clone(existing.StageHistory)
	fields := map[string]any{}

	if req.AccountName != nil {
		updated.AccountName = strings.TrimSpace(*req.AccountName)
		fields["accountName"] = updated.AccountName
	}
	if req.Sector != nil {
		updated.Sector = strings.TrimSpace(*req.Sector)
		fields["sector"] = updated.Sector
	}
	if req.OwnerEntityID != nil {
		if actor != nil && !actor.Role.IsSuper() && actor.OwnEntityID() != "" && *req.OwnerEntityID != actor.OwnEntityID() {
			return nil, fmt.Errorf("%w: leads can only be assigned to your own entity", ErrForbidden)
		}
		updated.OwnerEntityID = *req.OwnerEntityID
		fields["ownerEntityId"] = updated.OwnerEntityID
	}
	if req.ContractType != nil {
		if !req.ContractType.Valid() {
			return nil, invalidf("unknown contract type %q", *req.ContractType)
		}
		updated.ContractType = *req.ContractType
		fields["contractType"] = updated.ContractType
	}
	if req.ContractStartDate.Set {
		req.ContractStartDate.Apply(&updated.ContractStartDate)
		fields["contractStartDate"] = updated.ContractStartDate
	}
	if req.ContractEndDate.Set {
		req.ContractEndDate.Apply(&updated.ContractEndDate)
		fields["contractEndDate"] = updated.ContractEndDate
	}
	if req.Amount != nil {
		updated.Amount = *req.Amount
		fields["amount"] = updated.Amount
	}
	if req.ContractDuration != nil {
		updated.ContractDuration = *req.ContractDuration
		fields["contractDuration"] = updated.ContractDuration
	}

	if req.StageID != nil && *req.StageID != existing.StageID {
		if err := s.enterStage(&updated, *req.StageID, stages); err != nil {
			return nil, err
		}
		fields["stageId"] = updated.StageID
		fields["stageHistory"] = updated.StageHistory
	}

	if len(fields) == 0 {
		return existing, nil
	}

	saved, err := s.leadRepo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditUpdateLead,
		audit.LeadSnapshot{Lead: *existing}, audit.LeadSnapshot{Lead: *saved},
		map[string]any{"leadId": id, "accountName": saved.AccountName})
	return saved, nil
}

// enterStage moves lead into stageID, enforcing the stage rules, and appends
// the history entry.
func (s *leadService) enterStage(lead *models.Lead, stageID string, stages []models.Stage) error {
	to, ok := pipeline.FindStage(stageID, stages)
	if !ok {
		return invalidf("stage %s does not exist", stageID)
	}
	var from *models.Stage
	if current, found := pipeline.FindStage(lead.StageID, stages); found {
		from = &current
	}
	if err := pipeline.CheckTransition(*lead, from, to); err != nil {
		return err
	}

	lead.StageID = to.ID
	lead.StageHistory = append(lead.StageHistory, models.StageHistoryEntry{
		StageID:   to.ID,
		Timestamp: s.now().UTC(),
	})
	return nil
}

func (s *leadService) Move(ctx context.Context, actor *models.User, id, stageID string) (*models.Lead, error) {
	if err := requireLeadEditor(actor); err != nil {
		return nil, err
	}
	existing, stages, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if existing.StageID == stageID {
		return existing, nil
	}

	moved := *existing
	moved.StageHistory = slices.Clone(existing.StageHistory)
	if err := s.enterStage(&moved, stageID, stages); err != nil {
		return nil, err
	}

	saved, err := s.leadRepo.Update(ctx, id, map[string]any{
		"stageId":      moved.StageID,
		"stageHistory": moved.StageHistory,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditMoveLead,
		map[string]any{"stage": pipeline.StageName(existing.StageID, stages)},
		map[string]any{"stage": pipeline.StageName(saved.StageID, stages)},
		map[string]any{"leadId": id, "accountName": saved.AccountName})
	return saved, nil
}

func (s *leadService) BulkUpdate(ctx context.Context, actor *models.User, req *models.BulkUpdateLeadsRequest) (int, error) {
	if err := requireLeadEditor(actor); err != nil {
		return 0, err
	}
	if len(req.LeadIDs) == 0 {
		return 0, invalidf("no leads selected")
	}
	value := strings.TrimSpace(req.Value)
	if value == "" {
		return 0, invalidf("a value is required")
	}

	stages, err := s.stageRepo.List(ctx)
	if err != nil {
		return 0, err
	}

	switch req.Field {
	case models.BulkFieldStage:
		if _, ok := pipeline.FindStage(value, stages); !ok {
			return 0, invalidf("stage %s does not exist", value)
		}
	case models.BulkFieldOwnerEntity:
		if actor != nil && !actor.Role.IsSuper() && actor.OwnEntityID() != "" && value != actor.OwnEntityID() {
			return 0, fmt.Errorf("%w: leads can only be assigned to your own entity", ErrForbidden)
		}
		if _, err := s.entityRepo.GetByID(ctx, value); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, invalidf("entity %s does not exist", value)
			}
			return 0, err
		}
	case models.BulkFieldContractType:
		if !models.ContractType(value).Valid() {
			return 0, invalidf("unknown contract type %q", value)
		}
	case models.BulkFieldSector:
	default:
		return 0, invalidf("field %q cannot be bulk updated", req.Field)
	}

	// Validate every lead before writing any of them
	vis := visibilityFor(actor, stages)
	leads := make([]models.Lead, 0, len(req.LeadIDs))
	for _, id := range req.LeadIDs {
		lead, err := s.leadRepo.GetByID(ctx, id)
		if err != nil {
			return 0, err
		}
		if !vis.canSee(*lead) {
			return 0, fmt.Errorf("lead %s: %w", id, ErrNotFound)
		}
		if req.Field == models.BulkFieldStage && lead.StageID != value {
			if err := s.enterStage(lead, value, stages); err != nil {
				return 0, fmt.Errorf("lead %s: %w", lead.AccountName, err)
			}
		}
		leads = append(leads, *lead)
	}

	if req.Field == models.BulkFieldStage {
		// Each moved lead carries its own history
		for _, lead := range leads {
			if _, err := s.leadRepo.Update(ctx, lead.ID, map[string]any{
				"stageId":      lead.StageID,
				"stageHistory": lead.StageHistory,
			}); err != nil {
				return 0, err
			}
		}
	} else {
		if err := s.leadRepo.UpdateMany(ctx, req.LeadIDs, map[string]any{req.Field: value}); err != nil {
			return 0, err
		}
	}

	s.audit.Record(ctx, actor, models.AuditBulkUpdatePrefix+req.Field, nil,
		map[string]any{req.Field: value},
		map[string]any{"leadIds": req.LeadIDs, "count": len(req.LeadIDs)})
	return len(req.LeadIDs), nil
}

func (s *leadService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := requireLeadEditor(actor); err != nil {
		return err
	}
	existing, _, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.leadRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, actor, models.AuditDeleteLead, audit.LeadSnapshot{Lead: *existing}, nil,
		map[string]any{"leadId": id, "accountName": existing.AccountName})
	return nil
}

func (s *leadService) Timeline(ctx context.Context, actor *models.User, id string) (*pipeline.Timeline, error) {
	lead, stages, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	rules, err := s.ruleRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	timeline := pipeline.BuildTimeline(*lead, rules, stages)
	s.metrics.IncProjection(projectionOutcome(*lead, timeline.Prediction))
	return &timeline, nil
}

func projectionOutcome(lead models.Lead, p *pipeline.Projection) string {
	switch {
	case p != nil:
		return metrics.ProjectionPredicted
	case len(lead.StageHistory) == 0:
		return metrics.ProjectionNoHistory
	default:
		return metrics.ProjectionNoRule
	}
}

// Sectors returns the distinct sectors of the visible leads. Spellings that
// differ only in case collapse to the first one seen.
func (s *leadService) Sectors(ctx context.Context, actor *models.User) ([]string, error) {
	leads, _, err := s.visibleLeads(ctx, actor)
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	seen := make(map[string]struct{})
	sectors := make([]string, 0)
	for _, lead := range leads {
		sector := strings.TrimSpace(lead.Sector)
		if sector == "" {
			continue
		}
		key := fold.String(sector)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sectors = append(sectors, sector)
	}
	slices.SortFunc(sectors, func(a, b string) int {
		return strings.Compare(fold.String(a), fold.String(b))
	})
	return sectors, nil
}

func (s *leadService) ListActivities(ctx context.Context, actor *models.User, leadID string) ([]models.LeadActivity, error) {
	if _, _, err := s.load(ctx, actor, leadID); err != nil {
		return nil, err
	}
	return s.activityRepo.ListByLead(ctx, leadID)
}

func (s *leadService) AddActivity(ctx context.Context, actor *models.User, leadID string, req *models.AddActivityRequest) (*models.LeadActivity, error) {
	if err := requireLeadEditor(actor); err != nil {
		return nil, err
	}
	lead, _, err := s.load(ctx, actor, leadID)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Activity)
	if text == "" {
		return nil, invalidf("activity text is required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate activity id: %w", err)
	}
	date := s.now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	created, err := s.activityRepo.Create(ctx, &models.LeadActivity{
		ID:       id.String(),
		LeadID:   leadID,
		UserID:   actorID(actor),
		Date:     date,
		Activity: text,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditAddLeadActivity, nil, nil,
		map[string]any{"leadId": leadID, "accountName": lead.AccountName, "activityId": created.ID})
	return created, nil
}
