package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/backend/internal/models"
)

func TestEntityLifecycle(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.entities.Create(env.ctx(), adminUser, &models.CreateEntityRequest{Name: " West "})
	require.NoError(t, err)
	assert.Equal(t, "West", created.Name)

	_, err = env.entities.Create(env.ctx(), adminUser, &models.CreateEntityRequest{Name: "north"})
	assert.ErrorIs(t, err, ErrConflict)

	renamed, err := env.entities.Update(env.ctx(), adminUser, created.ID, &models.UpdateEntityRequest{Name: "West Coast"})
	require.NoError(t, err)
	assert.Equal(t, "West Coast", renamed.Name)

	entry := env.store.lastAudit()
	assert.Equal(t, models.AuditUpdateEntity, entry.Action)
	assert.Equal(t, map[string]any{"name": "West"}, entry.From)
	assert.Equal(t, map[string]any{"name": "West Coast"}, entry.To)

	require.NoError(t, env.entities.Delete(env.ctx(), adminUser, created.ID))
	assert.Equal(t, []string{models.AuditCreateEntity, models.AuditUpdateEntity, models.AuditDeleteEntity}, env.store.actions())
}

func TestEntityRenameToItselfIsNotAudited(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.entities.Update(env.ctx(), adminUser, "ent-north", &models.UpdateEntityRequest{Name: "North"})
	require.NoError(t, err)
	assert.Empty(t, env.store.actions())
}

func TestEntityDeleteWithLeads(t *testing.T) {
	env := newTestEnv(t)

	err := env.entities.Delete(env.ctx(), adminUser, "ent-south")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, env.store.entities, "ent-south")
}

func TestEntityRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.entities.Create(env.ctx(), viewer, &models.CreateEntityRequest{Name: "East"})
	assert.ErrorIs(t, err, ErrForbidden)
}
