package service

import (
	"context"
	"time"

	"github.com/leadflow/backend/internal/audit"
	"github.com/leadflow/backend/internal/logger"
	"github.com/leadflow/backend/internal/metrics"
	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/repository"
)

type auditService struct {
	auditRepo repository.AuditLogRepository
	metrics   metrics.Recorder
	now       func() time.Time
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo repository.AuditLogRepository, recorder metrics.Recorder) AuditService {
	if recorder == nil {
		recorder = metrics.Noop()
	}
	return &auditService{
		auditRepo: auditRepo,
		metrics:   recorder,
		now:       time.Now,
	}
}

func (s *auditService) Record(ctx context.Context, actor *models.User, action string, from, to any, details map[string]any) bool {
	changes := audit.Compute(from, to, action)
	if changes == nil {
		s.metrics.IncAuditSuppressed(action)
		logger.FromContext(ctx).Debug("audit entry suppressed, nothing changed", logger.String("action", action))
		return false
	}

	entry := &models.AuditLog{
		User:      auditActor(actor),
		Action:    action,
		From:      changes.From,
		To:        changes.To,
		Details:   details,
		Timestamp: s.now().UTC(),
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.metrics.IncAuditFailed(action)
		log := logger.FromContext(ctx)
		log.Warn("failed to write audit log", logger.Err(err), logger.String("action", action))
		return false
	}

	s.metrics.IncAuditRecorded(action)
	return true
}

func (s *auditService) List(ctx context.Context, filter models.AuditLogFilter) (*models.AuditLogPage, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, invalidf("limit and offset must not be negative")
	}
	return s.auditRepo.List(ctx, filter)
}

func auditActor(actor *models.User) models.AuditActor {
	if actor == nil || actor.ID == "" {
		return models.SystemActor()
	}
	name := actor.Name
	if name == "" {
		name = actor.Email
	}
	return models.AuditActor{ID: actor.ID, Name: name, EntityID: actor.EntityID}
}
