// Package seed creates the initial pipeline stages, automation rules and
// entities from a YAML description. Applying the same file twice is a no-op.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/leadflow/backend/internal/logger"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/pipeline"
	"github.com/leadflow/backend/internal/repository"
)

//go:embed default.yaml
var defaultPipeline []byte

// Rule is the automation rule attached to a seeded stage
type Rule struct {
	Enabled     bool                    `yaml:"enabled"`
	TriggerDays int                     `yaml:"triggerDays"`
	Action      models.AutomationAction `yaml:"action"`
}

// Stage describes one pipeline stage in the seed file
type Stage struct {
	Name                    string `yaml:"name"`
	Isolated                bool   `yaml:"isolated"`
	RequireStartDateToEnter bool   `yaml:"requireStartDateToEnter"`
	RequireEndDateToLeave   bool   `yaml:"requireEndDateToLeave"`
	Rule                    *Rule  `yaml:"rule"`
}

// Pipeline is the decoded seed file
type Pipeline struct {
	Stages   []Stage  `yaml:"stages"`
	Entities []string `yaml:"entities"`
}

// Result counts what Apply created
type Result struct {
	StagesCreated   int `json:"stagesCreated"`
	RulesSaved      int `json:"rulesSaved"`
	EntitiesCreated int `json:"entitiesCreated"`
}

// Auditor records the seed run in the audit trail.
// service.AuditService satisfies it.
type Auditor interface {
	Record(ctx context.Context, actor *models.User, action string, from, to any, details map[string]any) bool
}

// Default returns the built-in pipeline
func Default() (*Pipeline, error) {
	return Load(bytes.NewReader(defaultPipeline))
}

// LoadFile reads a seed file from disk
func LoadFile(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a seed file. Unknown keys are rejected.
func Load(r io.Reader) (*Pipeline, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Pipeline
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks names and rules
func (p *Pipeline) Validate() error {
	if len(p.Stages) == 0 {
		return errors.New("seed file lists no stages")
	}

	seen := make(map[string]bool, len(p.Stages))
	for i, s := range p.Stages {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("stage %d: name is required", i+1)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("stage %q is listed twice", name)
		}
		seen[key] = true

		if s.Rule == nil {
			continue
		}
		if !s.Rule.Action.Valid() {
			return fmt.Errorf("stage %q: unknown action %q", name, s.Rule.Action)
		}
		if s.Rule.TriggerDays < 0 {
			return fmt.Errorf("stage %q: triggerDays must not be negative", name)
		}
	}

	entities := make(map[string]bool, len(p.Entities))
	for _, e := range p.Entities {
		key := strings.ToLower(strings.TrimSpace(e))
		if key == "" {
			return errors.New("entity name is required")
		}
		if entities[key] {
			return fmt.Errorf("entity %q is listed twice", e)
		}
		entities[key] = true
	}
	return nil
}

// Seeder writes a Pipeline through the repositories
type Seeder struct {
	Stages   repository.StageRepository
	Rules    repository.AutomationRuleRepository
	Entities repository.EntityRepository
	Audit    Auditor
}

// Apply creates every stage and entity that does not exist yet, matched by
// name without regard to case. Rules are saved only for stages created in
// this run so edits made through the API survive a reseed.
func (s *Seeder) Apply(ctx context.Context, p *Pipeline) (*Result, error) {
	log := logger.FromContext(ctx)

	existing, err := s.Stages.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}

	var result Result
	for _, spec := range p.Stages {
		name := strings.TrimSpace(spec.Name)
		if _, ok := pipeline.FindStageByName(name, existing); ok {
			log.Debug("stage already present", logger.String("stage", name))
			continue
		}

		stage, err := s.createStage(ctx, spec, name, existing)
		if err != nil {
			return &result, err
		}
		existing = append(existing, *stage)
		result.StagesCreated++

		if spec.Rule == nil {
			continue
		}
		rule := &models.AutomationRule{
			StageID:     stage.ID,
			Enabled:     spec.Rule.Enabled,
			TriggerDays: spec.Rule.TriggerDays,
			Action:      spec.Rule.Action,
		}
		if _, err := s.Rules.Upsert(ctx, rule); err != nil {
			return &result, fmt.Errorf("failed to save rule for stage %q: %w", name, err)
		}
		result.RulesSaved++
	}

	if err := s.createEntities(ctx, p.Entities, &result); err != nil {
		return &result, err
	}

	if s.Audit != nil && (result.StagesCreated > 0 || result.EntitiesCreated > 0) {
		s.Audit.Record(ctx, nil, models.AuditSeed, nil, nil, map[string]any{
			"stagesCreated":   result.StagesCreated,
			"rulesSaved":      result.RulesSaved,
			"entitiesCreated": result.EntitiesCreated,
		})
	}

	log.Info("pipeline seeded",
		logger.Int("stages_created", result.StagesCreated),
		logger.Int("rules_saved", result.RulesSaved),
		logger.Int("entities_created", result.EntitiesCreated),
	)
	return &result, nil
}

func (s *Seeder) createStage(ctx context.Context, spec Stage, name string, existing []models.Stage) (*models.Stage, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate stage id: %w", err)
	}

	stage := &models.Stage{
		ID:         id.String(),
		Name:       name,
		Order:      pipeline.NextOrder(existing),
		IsIsolated: spec.Isolated,
		Rules: models.StageRules{
			RequireStartDateToEnter: spec.RequireStartDateToEnter,
			RequireEndDateToLeave:   spec.RequireEndDateToLeave,
		},
	}
	if stage.IsGlobal() {
		stage.Order = 0
		stage.IsIsolated = true
	}

	created, err := s.Stages.Create(ctx, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage %q: %w", name, err)
	}
	return created, nil
}

func (s *Seeder) createEntities(ctx context.Context, names []string, result *Result) error {
	if len(names) == 0 {
		return nil
	}

	entities, err := s.Entities.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list entities: %w", err)
	}
	have := make(map[string]bool, len(entities))
	for _, e := range entities {
		have[strings.ToLower(strings.TrimSpace(e.Name))] = true
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if have[strings.ToLower(name)] {
			continue
		}
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate entity id: %w", err)
		}
		if _, err := s.Entities.Create(ctx, &models.Entity{ID: id.String(), Name: name}); err != nil {
			return fmt.Errorf("failed to create entity %q: %w", name, err)
		}
		have[strings.ToLower(name)] = true
		result.EntitiesCreated++
	}
	return nil
}
