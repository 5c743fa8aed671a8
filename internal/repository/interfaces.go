package repository

import (
	"context"

	"github.com/leadflow/backend/internal/models"
)

// LeadRepository defines the interface for lead data access
type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) (*models.Lead, error)
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	List(ctx context.Context) ([]models.Lead, error)
	ListByStage(ctx context.Context, stageID string) ([]models.Lead, error)
	Update(ctx context.Context, id string, fields map[string]any) (*models.Lead, error)
	UpdateMany(ctx context.Context, ids []string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}

// StageRepository defines the interface for pipeline stage data access
type StageRepository interface {
	Create(ctx context.Context, stage *models.Stage) (*models.Stage, error)
	GetByID(ctx context.Context, id string) (*models.Stage, error)
	List(ctx context.Context) ([]models.Stage, error)
	Update(ctx context.Context, id string, fields map[string]any) (*models.Stage, error)
	Delete(ctx context.Context, id string) error
}

// AutomationRuleRepository defines the interface for automation rule data access.
// Rules are keyed by stage ID.
type AutomationRuleRepository interface {
	List(ctx context.Context) ([]models.AutomationRule, error)
	GetByStageID(ctx context.Context, stageID string) (*models.AutomationRule, error)
	Upsert(ctx context.Context, rule *models.AutomationRule) (*models.AutomationRule, error)
	DeleteByStageID(ctx context.Context, stageID string) error
}

// EntityRepository defines the interface for entity data access
type EntityRepository interface {
	Create(ctx context.Context, entity *models.Entity) (*models.Entity, error)
	GetByID(ctx context.Context, id string) (*models.Entity, error)
	List(ctx context.Context) ([]models.Entity, error)
	Update(ctx context.Context, id string, fields map[string]any) (*models.Entity, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository defines the interface for user profile data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	ListByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error)
	Update(ctx context.Context, id string, fields map[string]any) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// AuditLogRepository defines the interface for the audit trail
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditLogFilter) (*models.AuditLogPage, error)
}

// LeadActivityRepository defines the interface for lead activity notes
type LeadActivityRepository interface {
	Create(ctx context.Context, activity *models.LeadActivity) (*models.LeadActivity, error)
	ListByLead(ctx context.Context, leadID string) ([]models.LeadActivity, error)
}
