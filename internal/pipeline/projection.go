// Package pipeline holds the pure rules of the sales pipeline: stage ordering,
// stage entry/exit checks, lead timelines, and the projection of the next
// automated transition. Nothing in this package performs I/O.
package pipeline

import (
	"slices"
	"time"

	"github.com/leadflow/backend/internal/models"
)

// NextStagePlaceholder names the target when no stage follows the current one.
const NextStagePlaceholder = "Next Stage"

// Projection is an advisory prediction of a lead's next automated transition.
// It is never persisted or executed.
type Projection struct {
	TargetStageID   string                  `json:"targetStageId,omitempty"`
	TargetStageName string                  `json:"targetStageName"`
	ProjectedDate   time.Time               `json:"projectedDate"`
	Action          models.AutomationAction `json:"action"`
	RuleStageID     string                  `json:"ruleStageId"`
	TriggerDays     int                     `json:"triggerDays"`
}

// ProjectNextTransition predicts when and where the enabled automation rule
// of the current stage would move a lead.
//
// The projection is anchored on the most recent history entry. It returns nil
// when the history is empty, when the current stage has no enabled rule, or
// when the rule's action is unknown.
func ProjectNextTransition(currentStageID string, history []models.StageHistoryEntry, rules []models.AutomationRule, stages []models.Stage) *Projection {
	sorted := SortHistory(history)
	if len(sorted) == 0 {
		return nil
	}
	entered := sorted[len(sorted)-1].Timestamp

	rule, ok := ActiveRule(currentStageID, rules)
	if !ok {
		return nil
	}

	projection := &Projection{
		ProjectedDate: entered.AddDate(0, 0, rule.TriggerDays),
		Action:        rule.Action,
		RuleStageID:   rule.StageID,
		TriggerDays:   rule.TriggerDays,
	}

	switch rule.Action {
	case models.ActionMoveToNextStage:
		next, found := NextStage(currentStageID, stages)
		if !found {
			projection.TargetStageName = NextStagePlaceholder
			break
		}
		projection.TargetStageID = next.ID
		projection.TargetStageName = next.Name
	case models.ActionMoveToGlobalStage:
		projection.TargetStageName = models.GlobalStageName
		if global, found := GlobalStage(stages); found {
			projection.TargetStageID = global.ID
		}
	default:
		return nil
	}

	return projection
}

// SortHistory returns a copy of history ordered by timestamp, oldest first.
// Entries with equal timestamps keep their relative order.
func SortHistory(history []models.StageHistoryEntry) []models.StageHistoryEntry {
	sorted := slices.Clone(history)
	slices.SortStableFunc(sorted, func(a, b models.StageHistoryEntry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return sorted
}

// ActiveRule returns the first enabled rule for stageID.
func ActiveRule(stageID string, rules []models.AutomationRule) (models.AutomationRule, bool) {
	for _, rule := range rules {
		if rule.StageID == stageID && rule.Enabled {
			return rule, true
		}
	}
	return models.AutomationRule{}, false
}

// CurrentStageID returns the lead's stage, falling back to its latest history entry.
func CurrentStageID(lead models.Lead) string {
	if lead.StageID != "" {
		return lead.StageID
	}
	sorted := SortHistory(lead.StageHistory)
	if len(sorted) == 0 {
		return ""
	}
	return sorted[len(sorted)-1].StageID
}

// Forecast pairs a lead with the projection of its next transition.
type Forecast struct {
	LeadID      string     `json:"leadId"`
	AccountName string     `json:"accountName"`
	StageID     string     `json:"stageId"`
	StageName   string     `json:"stageName"`
	Projection  Projection `json:"projection"`
	DaysInStage int        `json:"daysInStage"`
	Overdue     bool       `json:"overdue"`
}

// ForecastLeads projects every lead and returns those with a pending
// transition, soonest first. now is used only for the informational
// DaysInStage and Overdue fields.
func ForecastLeads(leads []models.Lead, rules []models.AutomationRule, stages []models.Stage, now time.Time) []Forecast {
	forecasts := make([]Forecast, 0, len(leads))
	for _, lead := range leads {
		stageID := CurrentStageID(lead)
		projection := ProjectNextTransition(stageID, lead.StageHistory, rules, stages)
		if projection == nil {
			continue
		}

		sorted := SortHistory(lead.StageHistory)
		entered := sorted[len(sorted)-1].Timestamp

		forecasts = append(forecasts, Forecast{
			LeadID:      lead.ID,
			AccountName: lead.AccountName,
			StageID:     stageID,
			StageName:   StageName(stageID, stages),
			Projection:  *projection,
			DaysInStage: int(now.Sub(entered).Hours() / 24),
			Overdue:     !now.Before(projection.ProjectedDate),
		})
	}

	slices.SortStableFunc(forecasts, func(a, b Forecast) int {
		return a.Projection.ProjectedDate.Compare(b.Projection.ProjectedDate)
	})
	return forecasts
}
