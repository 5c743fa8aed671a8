package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/backend/internal/audit"
	"github.com/leadflow/backend/internal/models"
)

func TestAuditRecord(t *testing.T) {
	t.Run("non-update action keeps both payloads", func(t *testing.T) {
		env := newTestEnv(t)

		ok := env.audit.Record(env.ctx(), adminUser, models.AuditRenameStage,
			map[string]any{"name": "Old"}, map[string]any{"name": "New"}, map[string]any{"stageId": "st-1"})
		require.True(t, ok)

		entry := env.store.lastAudit()
		assert.Equal(t, models.AuditRenameStage, entry.Action)
		assert.Equal(t, map[string]any{"name": "Old"}, entry.From)
		assert.Equal(t, map[string]any{"name": "New"}, entry.To)
		assert.Equal(t, "st-1", entry.Details["stageId"])
		assert.Equal(t, testNow, entry.Timestamp)
		assert.Equal(t, models.AuditActor{ID: "u-admin", Name: "Ada Admin", EntityID: adminUser.EntityID}, entry.User)
	})

	t.Run("update action keeps only changed fields", func(t *testing.T) {
		env := newTestEnv(t)
		before := env.store.leads["lead-acme"]
		after := before
		after.Amount = 2000

		require.True(t, env.audit.Record(env.ctx(), adminUser, models.AuditUpdateLead,
			audit.LeadSnapshot{Lead: before}, audit.LeadSnapshot{Lead: after}, nil))

		entry := env.store.lastAudit()
		assert.Equal(t, map[string]any{"amount": 1200.5}, entry.From)
		assert.Equal(t, map[string]any{"amount": 2000.0}, entry.To)
	})

	t.Run("no-op update is suppressed", func(t *testing.T) {
		env := newTestEnv(t)
		lead := env.store.leads["lead-acme"]

		ok := env.audit.Record(env.ctx(), adminUser, models.AuditUpdateLead,
			audit.LeadSnapshot{Lead: lead}, audit.LeadSnapshot{Lead: lead}, nil)
		assert.False(t, ok)
		assert.Empty(t, env.store.actions())
	})

	t.Run("missing actor falls back to system", func(t *testing.T) {
		env := newTestEnv(t)

		require.True(t, env.audit.Record(env.ctx(), nil, models.AuditSeed, nil, nil, nil))
		assert.Equal(t, models.SystemActor(), env.store.lastAudit().User)
	})

	t.Run("actor without name is recorded by email", func(t *testing.T) {
		env := newTestEnv(t)
		actor := &models.User{ID: "u-x", Email: "x@example.com", Role: models.RoleAdmin}

		require.True(t, env.audit.Record(env.ctx(), actor, models.AuditLogout, nil, nil, nil))
		assert.Equal(t, "x@example.com", env.store.lastAudit().User.Name)
	})

	t.Run("write failure is swallowed", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.auditErr = errStoreDown

		assert.False(t, env.audit.Record(env.ctx(), adminUser, models.AuditLogin, nil, nil, nil))
	})
}

func TestAuditList(t *testing.T) {
	env := newTestEnv(t)
	env.audit.Record(env.ctx(), adminUser, models.AuditLogin, nil, nil, nil)
	env.audit.Record(env.ctx(), adminUser, models.AuditLogout, nil, nil, nil)

	page, err := env.audit.List(env.ctx(), models.AuditLogFilter{Action: models.AuditLogout})
	require.NoError(t, err)
	require.Len(t, page.Logs, 1)
	assert.Equal(t, models.AuditLogout, page.Logs[0].Action)

	_, err = env.audit.List(env.ctx(), models.AuditLogFilter{Limit: -1})
	assert.ErrorIs(t, err, ErrValidation)
}
