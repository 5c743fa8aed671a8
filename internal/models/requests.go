package models

import "time"

// CreateLeadRequest represents the request body for creating a lead
type CreateLeadRequest struct {
	AccountName       string       `json:"accountName" binding:"required"`
	Sector            string       `json:"sector" binding:"required"`
	StageID           string       `json:"stageId"`
	OwnerEntityID     string       `json:"ownerEntityId"`
	ContractType      ContractType `json:"contractType"`
	ContractStartDate *time.Time   `json:"contractStartDate"`
	ContractEndDate   *time.Time   `json:"contractEndDate"`
	Amount            float64      `json:"amount" binding:"gte=0"`
	ContractDuration  int          `json:"contractDuration" binding:"gte=0"`
}

// UpdateLeadRequest represents the request body for updating a lead.
// Contract dates use Nullable so that a client can clear them with null.
type UpdateLeadRequest struct {
	AccountName       *string             `json:"accountName" binding:"omitempty,min=1"`
	Sector            *string             `json:"sector" binding:"omitempty,min=1"`
	StageID           *string             `json:"stageId"`
	OwnerEntityID     *string             `json:"ownerEntityId"`
	ContractType      *ContractType       `json:"contractType"`
	ContractStartDate Nullable[time.Time] `json:"contractStartDate"`
	ContractEndDate   Nullable[time.Time] `json:"contractEndDate"`
	Amount            *float64            `json:"amount" binding:"omitempty,gte=0"`
	ContractDuration  *int                `json:"contractDuration" binding:"omitempty,gte=0"`
}

// MoveLeadRequest represents a kanban drag of a lead into another stage
type MoveLeadRequest struct {
	StageID string `json:"stageId" binding:"required"`
}

// Bulk-updatable lead fields
const (
	BulkFieldStage        = "stageId"
	BulkFieldSector       = "sector"
	BulkFieldOwnerEntity  = "ownerEntityId"
	BulkFieldContractType = "contractType"
)

// BulkUpdateLeadsRequest sets one field to the same value on many leads
type BulkUpdateLeadsRequest struct {
	LeadIDs []string `json:"leadIds" binding:"required,min=1"`
	Field   string   `json:"field" binding:"required,oneof=stageId sector ownerEntityId contractType"`
	Value   string   `json:"value" binding:"required"`
}

// AddActivityRequest represents a note logged against a lead
type AddActivityRequest struct {
	Activity string     `json:"activity" binding:"required"`
	Date     *time.Time `json:"date"`
}

// CreateStageRequest represents the request body for adding a pipeline stage
type CreateStageRequest struct {
	Name string `json:"name" binding:"required"`
}

// RenameStageRequest represents the request body for renaming a pipeline stage
type RenameStageRequest struct {
	Name string `json:"name" binding:"required"`
}

// Toggleable stage properties
const (
	StagePropIsolated         = "isIsolated"
	StagePropRequireStartDate = "rules.requireStartDateToEnter"
	StagePropRequireEndDate   = "rules.requireEndDateToLeave"
)

// UpdateStagePropertyRequest toggles a single stage flag
type UpdateStagePropertyRequest struct {
	Property string `json:"property" binding:"required,oneof=isIsolated rules.requireStartDateToEnter rules.requireEndDateToLeave"`
	Value    *bool  `json:"value" binding:"required"`
}

// ReorderStagesRequest lists the non-Global stage IDs in their new order
type ReorderStagesRequest struct {
	StageIDs []string `json:"stageIds" binding:"required,min=1"`
}

// SaveAutomationRuleRequest represents the request body for saving a stage's rule
type SaveAutomationRuleRequest struct {
	Enabled     bool             `json:"enabled"`
	TriggerDays int              `json:"triggerDays" binding:"gte=0"`
	Action      AutomationAction `json:"action" binding:"required"`
}

// CreateEntityRequest represents the request body for creating an entity
type CreateEntityRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateEntityRequest represents the request body for renaming an entity
type UpdateEntityRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateUserRequest represents an admin creating a user account
type CreateUserRequest struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6"`
	Role     UserRole `json:"role" binding:"required"`
	EntityID *string  `json:"entityId"`
}

// UpdateUserRequest represents an admin editing a user profile
type UpdateUserRequest struct {
	Name     *string          `json:"name" binding:"omitempty,min=1"`
	Email    *string          `json:"email" binding:"omitempty,email"`
	Role     *UserRole        `json:"role"`
	EntityID Nullable[string] `json:"entityId"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest represents a self-registration awaiting approval
type SignupRequest struct {
	Name     string  `json:"name" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6"`
	EntityID *string `json:"entityId"`
}

// AuthResponse represents the response for authentication requests
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

// StageSummary aggregates the leads of one stage. Values are decimal strings.
type StageSummary struct {
	StageID   string `json:"stageId"`
	StageName string `json:"stageName"`
	Count     int    `json:"count"`
	Value     string `json:"value"`
}

// DashboardSummary is the pipeline overview for the current user
type DashboardSummary struct {
	TotalLeads    int            `json:"totalLeads"`
	TotalValue    string         `json:"totalValue"`
	Stages        []StageSummary `json:"stages"`
	ContractTypes map[string]int `json:"contractTypes"`
	Sectors       map[string]int `json:"sectors"`
}
