package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/leadflow/backend/internal/audit"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/repository"
)

type entityService struct {
	entityRepo repository.EntityRepository
	leadRepo   repository.LeadRepository
	audit      AuditService
}

// NewEntityService creates a new entity service
func NewEntityService(entityRepo repository.EntityRepository, leadRepo repository.LeadRepository, auditService AuditService) EntityService {
	return &entityService{
		entityRepo: entityRepo,
		leadRepo:   leadRepo,
		audit:      auditService,
	}
}

func (s *entityService) List(ctx context.Context) ([]models.Entity, error) {
	return s.entityRepo.List(ctx)
}

func (s *entityService) Create(ctx context.Context, actor *models.User, req *models.CreateEntityRequest) (*models.Entity, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidf("entity name is required")
	}
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate entity id: %w", err)
	}

	created, err := s.entityRepo.Create(ctx, &models.Entity{ID: id.String(), Name: name})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditCreateEntity, nil, audit.EntitySnapshot{Entity: *created}, nil)
	return created, nil
}

func (s *entityService) Update(ctx context.Context, actor *models.User, id string, req *models.UpdateEntityRequest) (*models.Entity, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidf("entity name is required")
	}

	existing, err := s.entityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, name, id); err != nil {
		return nil, err
	}

	updated, err := s.entityRepo.Update(ctx, id, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor, models.AuditUpdateEntity,
		audit.EntitySnapshot{Entity: *existing}, audit.EntitySnapshot{Entity: *updated}, nil)
	return updated, nil
}

// Delete removes an entity that no longer owns any lead
func (s *entityService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	existing, err := s.entityRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	leads, err := s.leadRepo.List(ctx)
	if err != nil {
		return err
	}
	owned := 0
	for _, lead := range leads {
		if lead.OwnerEntityID == id {
			owned++
		}
	}
	if owned > 0 {
		return fmt.Errorf("%w: entity %q still owns %d leads", ErrConflict, existing.Name, owned)
	}

	if err := s.entityRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, actor, models.AuditDeleteEntity, audit.EntitySnapshot{Entity: *existing}, nil, nil)
	return nil
}

func (s *entityService) ensureUniqueName(ctx context.Context, name, exceptID string) error {
	entities, err := s.entityRepo.List(ctx)
	if err != nil {
		return err
	}
	for _, e := range entities {
		if e.ID != exceptID && strings.EqualFold(e.Name, name) {
			return fmt.Errorf("%w: an entity named %q already exists", ErrConflict, name)
		}
	}
	return nil
}
