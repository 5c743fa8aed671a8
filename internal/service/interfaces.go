package service

import (
	"context"
	"io"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/pipeline"
	"github.com/leadflow/backend/internal/recommend"
	"github.com/leadflow/backend/pkg/supabase"
)

// Every method that acts on behalf of a user takes the acting user explicitly.
// A nil actor is the system (CLI commands, seeding) and sees everything.

// AuditService defines the interface for recording and reading the audit trail
type AuditService interface {
	// Record diffs from/to for update actions and persists the entry.
	// It reports whether an entry was written; failures are logged, never returned.
	Record(ctx context.Context, actor *models.User, action string, from, to any, details map[string]any) bool
	List(ctx context.Context, filter models.AuditLogFilter) (*models.AuditLogPage, error)
}

// LeadService defines the interface for lead business logic
type LeadService interface {
	List(ctx context.Context, actor *models.User, filter models.LeadFilter) ([]models.Lead, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.Lead, error)
	Create(ctx context.Context, actor *models.User, req *models.CreateLeadRequest) (*models.Lead, error)
	Update(ctx context.Context, actor *models.User, id string, req *models.UpdateLeadRequest) (*models.Lead, error)
	Move(ctx context.Context, actor *models.User, id, stageID string) (*models.Lead, error)
	BulkUpdate(ctx context.Context, actor *models.User, req *models.BulkUpdateLeadsRequest) (int, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	Timeline(ctx context.Context, actor *models.User, id string) (*pipeline.Timeline, error)
	Sectors(ctx context.Context, actor *models.User) ([]string, error)
	ListActivities(ctx context.Context, actor *models.User, leadID string) ([]models.LeadActivity, error)
	AddActivity(ctx context.Context, actor *models.User, leadID string, req *models.AddActivityRequest) (*models.LeadActivity, error)
}

// StageService defines the interface for pipeline stage administration
type StageService interface {
	List(ctx context.Context) ([]models.Stage, error)
	Create(ctx context.Context, actor *models.User, req *models.CreateStageRequest) (*models.Stage, error)
	Rename(ctx context.Context, actor *models.User, id string, req *models.RenameStageRequest) (*models.Stage, error)
	UpdateProperty(ctx context.Context, actor *models.User, id string, req *models.UpdateStagePropertyRequest) (*models.Stage, error)
	Reorder(ctx context.Context, actor *models.User, req *models.ReorderStagesRequest) ([]models.Stage, error)
	Delete(ctx context.Context, actor *models.User, id string) error
}

// AutomationService defines the interface for automation rules and projections
type AutomationService interface {
	ListRules(ctx context.Context) ([]models.AutomationRule, error)
	SaveRule(ctx context.Context, actor *models.User, stageID string, req *models.SaveAutomationRuleRequest) (*models.AutomationRule, error)
	ProjectLead(ctx context.Context, actor *models.User, leadID string) (*pipeline.Projection, error)
	Forecast(ctx context.Context, actor *models.User) ([]pipeline.Forecast, error)
	Recommend(ctx context.Context, actor *models.User) (*recommend.Result, error)
}

// EntityService defines the interface for entity administration
type EntityService interface {
	List(ctx context.Context) ([]models.Entity, error)
	Create(ctx context.Context, actor *models.User, req *models.CreateEntityRequest) (*models.Entity, error)
	Update(ctx context.Context, actor *models.User, id string, req *models.UpdateEntityRequest) (*models.Entity, error)
	Delete(ctx context.Context, actor *models.User, id string) error
}

// UserService defines the interface for user administration
type UserService interface {
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, actor *models.User) ([]models.User, error)
	ListPending(ctx context.Context, actor *models.User) ([]models.User, error)
	Create(ctx context.Context, actor *models.User, req *models.CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, actor *models.User, id string, req *models.UpdateUserRequest) (*models.User, error)
	Approve(ctx context.Context, actor *models.User, id string) (*models.User, error)
	Reject(ctx context.Context, actor *models.User, id string) error
	Delete(ctx context.Context, actor *models.User, id string) error
}

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context, actor *models.User) error
}

// ExportService defines the interface for lead exports
type ExportService interface {
	ExportCSV(ctx context.Context, actor *models.User, w io.Writer) error
	ExportXLSX(ctx context.Context, actor *models.User, w io.Writer) error
}

// DashboardService defines the interface for the pipeline overview
type DashboardService interface {
	Summary(ctx context.Context, actor *models.User) (*models.DashboardSummary, error)
}

// AuthProvider is the identity backend. *supabase.Client satisfies it.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*supabase.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*supabase.Session, error)
	AdminCreateUser(ctx context.Context, email, password string, metadata map[string]any) (*supabase.AuthUser, error)
	AdminDeleteUser(ctx context.Context, id string) error
}
