package models

import (
	"slices"
	"time"
)

// UserRole is the CRM role that gates admin panels and lead visibility
type UserRole string

const (
	RoleSuperUser  UserRole = "Super User"
	RoleSuperAdmin UserRole = "Super Admin"
	RoleAdmin      UserRole = "Admin"
	RoleManager    UserRole = "Manager"
	RoleViewer     UserRole = "Viewer"
	// RolePending is held by self-registered users until an admin approves them
	RolePending UserRole = "pending"
)

// AssignableRoles are the roles an admin can grant
var AssignableRoles = []UserRole{RoleSuperUser, RoleSuperAdmin, RoleAdmin, RoleManager, RoleViewer}

// Valid reports whether r is an assignable role
func (r UserRole) Valid() bool {
	return slices.Contains(AssignableRoles, r)
}

// IsSuper reports whether the role sees every entity's leads
func (r UserRole) IsSuper() bool {
	return r == RoleSuperUser || r == RoleSuperAdmin
}

// IsAdmin reports whether the role may use the admin panels
func (r UserRole) IsAdmin() bool {
	return r.IsSuper() || r == RoleAdmin
}

// CanEditLeads reports whether the role may mutate leads
func (r UserRole) CanEditLeads() bool {
	return r.IsAdmin() || r == RoleManager
}

// UserStatus tracks self-registration approval
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
)

// User represents a CRM user profile
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	Role      UserRole   `json:"role"`
	EntityID  *string    `json:"entityId"`
	Status    UserStatus `json:"status,omitempty"`
}

// OwnEntityID returns the user's entity ID, or "" when the user is not attached to one
func (u *User) OwnEntityID() string {
	if u == nil || u.EntityID == nil {
		return ""
	}
	return *u.EntityID
}

// IsPending reports whether the user still awaits approval
func (u *User) IsPending() bool {
	return u.Status == UserStatusPending || u.Role == RolePending
}

// Entity is an organizational unit that owns leads
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GlobalStageName is the reserved name of the shared stage every entity can see
const GlobalStageName = "Global"

// StageRules are the entry/exit requirements of a pipeline stage
type StageRules struct {
	RequireStartDateToEnter bool `json:"requireStartDateToEnter"`
	RequireEndDateToLeave   bool `json:"requireEndDateToLeave"`
}

// Stage is a named, ordered position in the sales pipeline
type Stage struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Order      int        `json:"order"`
	IsIsolated bool       `json:"isIsolated"`
	Rules      StageRules `json:"rules"`
}

// IsGlobal reports whether s is the reserved Global stage
func (s Stage) IsGlobal() bool {
	return s.Name == GlobalStageName
}

// StageHistoryEntry records when a lead entered a stage
type StageHistoryEntry struct {
	StageID   string    `json:"stageId"`
	Timestamp time.Time `json:"timestamp"`
}

// ContractType is the billing cadence of a lead's contract
type ContractType string

const (
	ContractAnnual  ContractType = "Annual"
	ContractMonthly ContractType = "Monthly"
	ContractOneTime ContractType = "One-Time"
)

// Valid reports whether c is a known contract type
func (c ContractType) Valid() bool {
	switch c {
	case ContractAnnual, ContractMonthly, ContractOneTime:
		return true
	}
	return false
}

// Lead represents a sales opportunity moving through the pipeline
type Lead struct {
	ID                string              `json:"id"`
	AccountName       string              `json:"accountName"`
	StageID           string              `json:"stageId"`
	Sector            string              `json:"sector"`
	OwnerEntityID     string              `json:"ownerEntityId,omitempty"`
	ContractType      ContractType        `json:"contractType,omitempty"`
	ContractStartDate *time.Time          `json:"contractStartDate"`
	ContractEndDate   *time.Time          `json:"contractEndDate"`
	Amount            float64             `json:"amount"`
	ContractDuration  int                 `json:"contractDuration"`
	AddedUserID       string              `json:"addedUserId,omitempty"`
	AddedDate         time.Time           `json:"addedDate"`
	StageHistory      []StageHistoryEntry `json:"stageHistory"`
}

// LeadFilter narrows lead listings. EntityID is honoured for super roles only.
type LeadFilter struct {
	Search       string       `form:"search"`
	StageID      string       `form:"stageId"`
	Sector       string       `form:"sector"`
	EntityID     string       `form:"entityId"`
	ContractType ContractType `form:"contractType"`
}

// LeadActivity is a free-text note logged against a lead
type LeadActivity struct {
	ID       string    `json:"id"`
	LeadID   string    `json:"leadId"`
	UserID   string    `json:"userId"`
	Date     time.Time `json:"date"`
	Activity string    `json:"activity"`
}

// AutomationAction is the transition an automation rule proposes
type AutomationAction string

const (
	ActionMoveToNextStage   AutomationAction = "Move to Next Stage"
	ActionMoveToGlobalStage AutomationAction = "Move to Global Stage"
)

// Valid reports whether a is a known automation action
func (a AutomationAction) Valid() bool {
	return a == ActionMoveToNextStage || a == ActionMoveToGlobalStage
}

// DefaultTriggerDays is the trigger delay of a rule that was never saved
const DefaultTriggerDays = 30

// AutomationRule proposes a transition once a lead has sat in a stage for TriggerDays
type AutomationRule struct {
	StageID     string           `json:"stageId"`
	Enabled     bool             `json:"enabled"`
	TriggerDays int              `json:"triggerDays"`
	Action      AutomationAction `json:"action"`
}

// DefaultAutomationRule returns the disabled rule shown for stages without a saved rule
func DefaultAutomationRule(stageID string) AutomationRule {
	return AutomationRule{
		StageID:     stageID,
		Enabled:     false,
		TriggerDays: DefaultTriggerDays,
		Action:      ActionMoveToNextStage,
	}
}
