package audit

import (
	"time"

	"github.com/leadflow/backend/internal/models"
)

// Snapshot is an audited view of a domain object.
type Snapshot interface {
	Fields() Record
}

// LeadSnapshot is the audited view of a lead.
type LeadSnapshot struct {
	Lead models.Lead
}

func (s LeadSnapshot) Fields() Record {
	l := s.Lead
	return Record{
		"id":                l.ID,
		"accountName":       l.AccountName,
		"stageId":           l.StageID,
		"sector":            l.Sector,
		"ownerEntityId":     l.OwnerEntityID,
		"contractType":      string(l.ContractType),
		"contractStartDate": timeValue(l.ContractStartDate),
		"contractEndDate":   timeValue(l.ContractEndDate),
		"amount":            l.Amount,
		"contractDuration":  l.ContractDuration,
		"addedUserId":       l.AddedUserID,
		"addedDate":         formatTime(l.AddedDate),
		"stageHistory":      historyValue(l.StageHistory),
	}
}

// StageSnapshot is the audited view of a pipeline stage.
type StageSnapshot struct {
	Stage models.Stage
}

func (s StageSnapshot) Fields() Record {
	st := s.Stage
	return Record{
		"id":         st.ID,
		"name":       st.Name,
		"order":      st.Order,
		"isIsolated": st.IsIsolated,
		"rules": Record{
			"requireStartDateToEnter": st.Rules.RequireStartDateToEnter,
			"requireEndDateToLeave":   st.Rules.RequireEndDateToLeave,
		},
	}
}

// UserSnapshot is the audited view of a user profile.
type UserSnapshot struct {
	User models.User
}

func (s UserSnapshot) Fields() Record {
	u := s.User
	return Record{
		"id":       u.ID,
		"name":     u.Name,
		"email":    u.Email,
		"role":     string(u.Role),
		"entityId": stringValue(u.EntityID),
		"status":   string(u.Status),
	}
}

// RuleSnapshot is the audited view of an automation rule.
type RuleSnapshot struct {
	Rule models.AutomationRule
}

func (s RuleSnapshot) Fields() Record {
	r := s.Rule
	return Record{
		"stageId":     r.StageID,
		"enabled":     r.Enabled,
		"triggerDays": r.TriggerDays,
		"action":      string(r.Action),
	}
}

// EntitySnapshot is the audited view of an entity.
type EntitySnapshot struct {
	Entity models.Entity
}

func (s EntitySnapshot) Fields() Record {
	return Record{
		"id":   s.Entity.ID,
		"name": s.Entity.Name,
	}
}

// formatTime renders t in UTC so that one instant always compares equal.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func stringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func historyValue(history []models.StageHistoryEntry) []any {
	out := make([]any, 0, len(history))
	for _, entry := range history {
		out = append(out, Record{
			"stageId":   entry.StageID,
			"timestamp": formatTime(entry.Timestamp),
		})
	}
	return out
}
