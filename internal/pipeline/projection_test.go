package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/backend/internal/models"
)

var (
	jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	testStages = []models.Stage{
		{ID: "G", Name: models.GlobalStageName, Order: 0, IsIsolated: true},
		{ID: "S1", Name: "Prospecting", Order: 1},
		{ID: "S2", Name: "Closed", Order: 2},
	}
)

func enabledRule(stageID string, days int, action models.AutomationAction) models.AutomationRule {
	return models.AutomationRule{StageID: stageID, Enabled: true, TriggerDays: days, Action: action}
}

func TestProjectNextTransition_NextStage(t *testing.T) {
	history := []models.StageHistoryEntry{{StageID: "S1", Timestamp: jan1}}
	rules := []models.AutomationRule{enabledRule("S1", 30, models.ActionMoveToNextStage)}

	got := ProjectNextTransition("S1", history, rules, testStages)

	require.NotNil(t, got)
	assert.Equal(t, "Closed", got.TargetStageName)
	assert.Equal(t, "S2", got.TargetStageID)
	assert.True(t, got.ProjectedDate.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.ActionMoveToNextStage, got.Action)
	assert.Equal(t, "S1", got.RuleStageID)

	again := ProjectNextTransition("S1", history, rules, testStages)
	assert.Equal(t, got, again, "projection must be deterministic")
}

func TestProjectNextTransition_NilCases(t *testing.T) {
	history := []models.StageHistoryEntry{{StageID: "S1", Timestamp: jan1}}

	tests := []struct {
		name    string
		history []models.StageHistoryEntry
		rules   []models.AutomationRule
	}{
		{
			name:    "no rules",
			history: history,
			rules:   nil,
		},
		{
			name:    "disabled rule",
			history: history,
			rules:   []models.AutomationRule{{StageID: "S1", Enabled: false, TriggerDays: 30, Action: models.ActionMoveToNextStage}},
		},
		{
			name:    "rule for another stage",
			history: history,
			rules:   []models.AutomationRule{enabledRule("S2", 30, models.ActionMoveToNextStage)},
		},
		{
			name:    "empty history",
			history: nil,
			rules:   []models.AutomationRule{enabledRule("S1", 30, models.ActionMoveToNextStage)},
		},
		{
			name:    "unknown action",
			history: history,
			rules:   []models.AutomationRule{enabledRule("S1", 30, "Archive")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ProjectNextTransition("S1", tt.history, tt.rules, testStages))
		})
	}
}

func TestProjectNextTransition_UsesLatestHistoryEntry(t *testing.T) {
	history := []models.StageHistoryEntry{
		{StageID: "S1", Timestamp: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{StageID: "G", Timestamp: jan1},
		{StageID: "S1", Timestamp: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	original := append([]models.StageHistoryEntry(nil), history...)
	rules := []models.AutomationRule{enabledRule("S1", 5, models.ActionMoveToNextStage)}

	got := ProjectNextTransition("S1", history, rules, testStages)

	require.NotNil(t, got)
	assert.True(t, got.ProjectedDate.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, original, history, "input history must not be reordered")
}

func TestProjectNextTransition_NoFollowingStage(t *testing.T) {
	history := []models.StageHistoryEntry{{StageID: "S2", Timestamp: jan1}}
	rules := []models.AutomationRule{enabledRule("S2", 7, models.ActionMoveToNextStage)}

	got := ProjectNextTransition("S2", history, rules, testStages)

	require.NotNil(t, got)
	assert.Equal(t, NextStagePlaceholder, got.TargetStageName)
	assert.Empty(t, got.TargetStageID)
}

func TestProjectNextTransition_UnknownCurrentStage(t *testing.T) {
	history := []models.StageHistoryEntry{{StageID: "gone", Timestamp: jan1}}
	rules := []models.AutomationRule{enabledRule("gone", 1, models.ActionMoveToNextStage)}

	got := ProjectNextTransition("gone", history, rules, testStages)

	require.NotNil(t, got)
	assert.Equal(t, NextStagePlaceholder, got.TargetStageName)
}

func TestProjectNextTransition_NextStageMayBeIsolated(t *testing.T) {
	stages := []models.Stage{
		{ID: "S1", Name: "Prospecting", Order: 1},
		{ID: "H", Name: "On Hold", Order: 2, IsIsolated: true},
	}
	history := []models.StageHistoryEntry{{StageID: "S1", Timestamp: jan1}}
	rules := []models.AutomationRule{enabledRule("S1", 1, models.ActionMoveToNextStage)}

	got := ProjectNextTransition("S1", history, rules, stages)

	require.NotNil(t, got)
	assert.Equal(t, "On Hold", got.TargetStageName)
}

func TestProjectNextTransition_GlobalStage(t *testing.T) {
	history := []models.StageHistoryEntry{{StageID: "S1", Timestamp: jan1}}
	rules := []models.AutomationRule{enabledRule("S1", 90, models.ActionMoveToGlobalStage)}

	got := ProjectNextTransition("S1", history, rules, testStages)

	require.NotNil(t, got)
	assert.Equal(t, models.GlobalStageName, got.TargetStageName)
	assert.Equal(t, "G", got.TargetStageID)
	assert.True(t, got.ProjectedDate.Equal(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)))
}

func TestProjectNextTransition_DuplicateRulesFirstMatchWins(t *testing.T) {
	history := []models.StageHistoryEntry{{StageID: "S1", Timestamp: jan1}}
	rules := []models.AutomationRule{
		{StageID: "S1", Enabled: false, TriggerDays: 1, Action: models.ActionMoveToGlobalStage},
		enabledRule("S1", 10, models.ActionMoveToNextStage),
		enabledRule("S1", 20, models.ActionMoveToGlobalStage),
	}

	got := ProjectNextTransition("S1", history, rules, testStages)

	require.NotNil(t, got)
	assert.Equal(t, 10, got.TriggerDays)
	assert.Equal(t, "Closed", got.TargetStageName)
}

func TestProjectNextTransition_CalendarDaysKeepLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	entered := time.Date(2024, 2, 28, 9, 30, 0, 0, loc)
	history := []models.StageHistoryEntry{{StageID: "S1", Timestamp: entered}}
	rules := []models.AutomationRule{enabledRule("S1", 2, models.ActionMoveToNextStage)}

	got := ProjectNextTransition("S1", history, rules, testStages)

	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, loc), got.ProjectedDate)
	assert.Equal(t, loc, got.ProjectedDate.Location())
}

func TestProjectNextTransition_ZeroTriggerDays(t *testing.T) {
	history := []models.StageHistoryEntry{{StageID: "S1", Timestamp: jan1}}
	rules := []models.AutomationRule{enabledRule("S1", 0, models.ActionMoveToNextStage)}

	got := ProjectNextTransition("S1", history, rules, testStages)

	require.NotNil(t, got)
	assert.True(t, got.ProjectedDate.Equal(jan1))
}

func TestCurrentStageID(t *testing.T) {
	assert.Equal(t, "S2", CurrentStageID(models.Lead{StageID: "S2"}))

	lead := models.Lead{StageHistory: []models.StageHistoryEntry{
		{StageID: "S2", Timestamp: jan1.AddDate(0, 1, 0)},
		{StageID: "S1", Timestamp: jan1},
	}}
	assert.Equal(t, "S2", CurrentStageID(lead))
	assert.Empty(t, CurrentStageID(models.Lead{}))
}

func TestForecastLeads(t *testing.T) {
	now := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	leads := []models.Lead{
		{
			ID: "late", AccountName: "Later Co", StageID: "S1",
			StageHistory: []models.StageHistoryEntry{{StageID: "S1", Timestamp: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)}},
		},
		{
			ID: "none", AccountName: "Closed Co", StageID: "S2",
			StageHistory: []models.StageHistoryEntry{{StageID: "S2", Timestamp: jan1}},
		},
		{
			ID: "early", AccountName: "Early Co", StageID: "S1",
			StageHistory: []models.StageHistoryEntry{{StageID: "S1", Timestamp: jan1}},
		},
	}
	rules := []models.AutomationRule{enabledRule("S1", 30, models.ActionMoveToNextStage)}

	got := ForecastLeads(leads, rules, testStages, now)

	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].LeadID)
	assert.True(t, got[0].Overdue)
	assert.Equal(t, 35, got[0].DaysInStage)
	assert.Equal(t, "Prospecting", got[0].StageName)
	assert.Equal(t, "late", got[1].LeadID)
	assert.False(t, got[1].Overdue)
}
