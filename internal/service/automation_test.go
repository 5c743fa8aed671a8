package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/recommend"
)

func TestAutomationListRules(t *testing.T) {
	env := newTestEnv(t)
	env.store.rules = []models.AutomationRule{
		{StageID: "st-negotiation", Enabled: true, TriggerDays: 14, Action: models.ActionMoveToGlobalStage},
		{StageID: "st-negotiation", Enabled: false, TriggerDays: 99, Action: models.ActionMoveToNextStage},
	}

	rules, err := env.automation.ListRules(env.ctx())
	require.NoError(t, err)
	require.Len(t, rules, 4)

	assert.Equal(t, models.DefaultAutomationRule("st-global"), rules[0])
	assert.Equal(t, models.DefaultAutomationRule("st-prospect"), rules[1])
	assert.Equal(t, 14, rules[2].TriggerDays, "first saved rule wins")
	assert.True(t, rules[2].Enabled)
}

func TestAutomationSaveRule(t *testing.T) {
	t.Run("first save audits against the default", func(t *testing.T) {
		env := newTestEnv(t)

		saved, err := env.automation.SaveRule(env.ctx(), adminUser, "st-prospect", &models.SaveAutomationRuleRequest{
			Enabled:     true,
			TriggerDays: 7,
			Action:      models.ActionMoveToNextStage,
		})
		require.NoError(t, err)
		assert.Equal(t, 7, saved.TriggerDays)

		entry := env.store.lastAudit()
		assert.Equal(t, models.AuditSaveRule, entry.Action)
		assert.Equal(t, false, entry.From["enabled"])
		assert.Equal(t, 30, entry.From["triggerDays"])
		assert.Equal(t, true, entry.To["enabled"])
		assert.Equal(t, 7, entry.To["triggerDays"])
		assert.Equal(t, "Prospect", entry.Details["stageName"])
	})

	t.Run("second save replaces the rule", func(t *testing.T) {
		env := newTestEnv(t)
		req := &models.SaveAutomationRuleRequest{Enabled: true, TriggerDays: 7, Action: models.ActionMoveToNextStage}
		_, err := env.automation.SaveRule(env.ctx(), adminUser, "st-prospect", req)
		require.NoError(t, err)

		req.TriggerDays = 21
		_, err = env.automation.SaveRule(env.ctx(), adminUser, "st-prospect", req)
		require.NoError(t, err)

		require.Len(t, env.store.rules, 1)
		assert.Equal(t, 21, env.store.rules[0].TriggerDays)
		assert.Equal(t, 7, env.store.lastAudit().From["triggerDays"])
	})

	tests := []struct {
		name    string
		actor   *models.User
		stageID string
		req     models.SaveAutomationRuleRequest
		wantErr error
	}{
		{"unknown action", adminUser, "st-prospect", models.SaveAutomationRuleRequest{TriggerDays: 1, Action: "Archive"}, ErrValidation},
		{"negative days", adminUser, "st-prospect", models.SaveAutomationRuleRequest{TriggerDays: -1, Action: models.ActionMoveToNextStage}, ErrValidation},
		{"unknown stage", adminUser, "st-missing", models.SaveAutomationRuleRequest{TriggerDays: 1, Action: models.ActionMoveToNextStage}, ErrNotFound},
		{"not an admin", northMgr, "st-prospect", models.SaveAutomationRuleRequest{TriggerDays: 1, Action: models.ActionMoveToNextStage}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.automation.SaveRule(env.ctx(), tt.actor, tt.stageID, &tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, env.store.rules)
		})
	}
}

func TestAutomationProjectLead(t *testing.T) {
	env := newTestEnv(t)
	env.store.rules = []models.AutomationRule{
		{StageID: "st-negotiation", Enabled: true, TriggerDays: 3, Action: models.ActionMoveToGlobalStage},
	}

	projection, err := env.automation.ProjectLead(env.ctx(), superUser, "lead-globex")
	require.NoError(t, err)
	require.NotNil(t, projection)
	assert.Equal(t, "st-global", projection.TargetStageID)
	assert.Equal(t, models.GlobalStageName, projection.TargetStageName)
	assert.Equal(t, time.Date(2025, 1, 4, 1, 0, 0, 0, time.UTC), projection.ProjectedDate)

	projection, err = env.automation.ProjectLead(env.ctx(), superUser, "lead-acme")
	require.NoError(t, err)
	assert.Nil(t, projection)

	_, err = env.automation.ProjectLead(env.ctx(), northMgr, "lead-globex")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAutomationForecast(t *testing.T) {
	env := newTestEnv(t)
	env.store.rules = []models.AutomationRule{
		{StageID: "st-prospect", Enabled: true, TriggerDays: 90, Action: models.ActionMoveToNextStage},
		{StageID: "st-negotiation", Enabled: true, TriggerDays: 3, Action: models.ActionMoveToNextStage},
	}

	forecasts, err := env.automation.Forecast(env.ctx(), superUser)
	require.NoError(t, err)
	require.Len(t, forecasts, 2)

	assert.Equal(t, "lead-globex", forecasts[0].LeadID, "soonest first")
	assert.Equal(t, "Closed", forecasts[0].Projection.TargetStageName)
	assert.True(t, forecasts[0].Overdue)
	assert.Equal(t, "lead-acme", forecasts[1].LeadID)
	assert.False(t, forecasts[1].Overdue)

	visible, err := env.automation.Forecast(env.ctx(), northMgr)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "lead-acme", visible[0].LeadID)
}

func TestAutomationRecommend(t *testing.T) {
	t.Run("passes visible leads and active stages", func(t *testing.T) {
		env := newTestEnv(t)
		env.recommender.result = &recommend.Result{Recommendations: []recommend.Recommendation{
			{Stage: "Prospect", TriggerDays: 10, Action: models.ActionMoveToNextStage, Confidence: 0.8},
		}}

		result, err := env.automation.Recommend(env.ctx(), adminUser)
		require.NoError(t, err)
		assert.Len(t, result.Recommendations, 1)

		assert.Equal(t, []string{"Prospect", "Negotiation", "Closed"}, env.recommender.input.StageNames)
		assert.Equal(t, []string{"Acme", "Initech"}, leadNames(env.recommender.input.History))

		entry := env.store.lastAudit()
		assert.Equal(t, models.AuditAIRecommendations, entry.Action)
		assert.Equal(t, 1, entry.Details["recommendationCount"])
	})

	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t)
		env.automation.recommender = nil

		_, err := env.automation.Recommend(env.ctx(), adminUser)
		assert.ErrorIs(t, err, recommend.ErrDisabled)
	})

	t.Run("no leads", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.leads = map[string]models.Lead{}

		_, err := env.automation.Recommend(env.ctx(), adminUser)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("upstream failure is not audited", func(t *testing.T) {
		env := newTestEnv(t)
		env.recommender.err = recommend.ErrInvalidResponse

		_, err := env.automation.Recommend(env.ctx(), adminUser)
		assert.ErrorIs(t, err, recommend.ErrInvalidResponse)
		assert.Empty(t, env.store.actions())
	})
}
