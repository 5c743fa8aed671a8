package models

import (
	"encoding/json"
	"time"
)

// Audit action names
const (
	AuditCreateLead        = "create_lead"
	AuditUpdateLead        = "update_lead"
	AuditMoveLead          = "move_lead"
	AuditDeleteLead        = "delete_lead"
	AuditBulkUpdatePrefix  = "bulk_update_"
	AuditAddLeadActivity   = "add_lead_activity"
	AuditCreateStage       = "create_pipeline_stage"
	AuditRenameStage       = "rename_pipeline_stage"
	AuditReorderStages     = "reorder_pipeline_stages"
	AuditUpdateStageProp   = "update_stage_property"
	AuditDeleteStage       = "delete_pipeline_stage"
	AuditSaveRule          = "save_automation_rule"
	AuditAIRecommendations = "generate_ai_recommendations"
	AuditCreateEntity      = "create_entity"
	AuditUpdateEntity      = "update_entity"
	AuditDeleteEntity      = "delete_entity"
	AuditCreateUser        = "create_user"
	AuditUpdateUser        = "update_user"
	AuditDeleteUser        = "delete_user"
	AuditApproveUser       = "approve_user"
	AuditRejectUser        = "reject_user"
	AuditSignup            = "signup"
	AuditLogin             = "login"
	AuditLogout            = "logout"
	AuditExportLeads       = "export_leads"
	AuditSeed              = "seed_pipeline"
)

// System actor recorded when no authenticated user is available
const (
	SystemActorID   = "system"
	SystemActorName = "System"
)

// AuditActor identifies who performed an audited action
type AuditActor struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	EntityID *string `json:"entityId"`
}

// SystemActor returns the fallback actor for unauthenticated writes
func SystemActor() AuditActor {
	return AuditActor{ID: SystemActorID, Name: SystemActorName}
}

// AuditLog is one persisted audit record. From and To hold either the
// full payloads or, for update actions, only the fields that changed.
type AuditLog struct {
	ID        string         `json:"id,omitempty"`
	User      AuditActor     `json:"user"`
	Action    string         `json:"action"`
	From      map[string]any `json:"from,omitempty"`
	To        map[string]any `json:"to,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AuditLogFilter narrows audit trail listings
type AuditLogFilter struct {
	Action string `form:"action"`
	UserID string `form:"userId"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// AuditLogPage is one page of the audit trail, newest first
type AuditLogPage struct {
	Logs    []AuditLog `json:"logs"`
	HasMore bool       `json:"hasMore"`
}

// IdempotencyKey represents a stored idempotency key record
type IdempotencyKey struct {
	ID           string          `json:"id"`
	Key          string          `json:"key"`
	Route        string          `json:"route"`
	UserID       string          `json:"user_id"`
	ResponseBody json.RawMessage `json:"response_body"`
	StatusCode   int             `json:"status_code"`
	CreatedAt    time.Time       `json:"created_at"`
}
