package service

import (
	"context"
	"testing"

	"github.com/leadflow/backend/internal/metrics"
)

// testEnv wires every service against one memory store with a fixed clock.
type testEnv struct {
	store       *memoryStore
	auth        *fakeAuth
	recommender *fakeRecommender

	audit      *auditService
	leads      *leadService
	stages     *stageService
	automation *automationService
	entities   *entityService
	users      *userService
	authn      *authService
	export     *exportService
	dashboard  *dashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemoryStore()
	seedPipeline(store)

	env := &testEnv{
		store:       store,
		auth:        newFakeAuth(),
		recommender: &fakeRecommender{},
	}

	recorder := metrics.Noop()
	env.audit = NewAuditService(auditRepo{store}, recorder).(*auditService)
	env.audit.now = fixedNow

	env.leads = NewLeadService(leadRepo{store}, stageRepo{store}, ruleRepo{store}, entityRepo{store},
		activityRepo{store}, env.audit, recorder).(*leadService)
	env.leads.now = fixedNow

	env.stages = NewStageService(stageRepo{store}, leadRepo{store}, ruleRepo{store}, env.audit).(*stageService)
	env.stages.now = fixedNow

	env.automation = NewAutomationService(ruleRepo{store}, stageRepo{store}, leadRepo{store},
		env.recommender, env.audit, recorder).(*automationService)
	env.automation.now = fixedNow

	env.entities = NewEntityService(entityRepo{store}, leadRepo{store}, env.audit).(*entityService)
	env.users = NewUserService(userRepo{store}, entityRepo{store}, env.auth, env.audit).(*userService)
	env.authn = NewAuthService(env.auth, userRepo{store}, env.audit).(*authService)
	env.export = NewExportService(leadRepo{store}, stageRepo{store}, entityRepo{store}, env.audit).(*exportService)
	env.dashboard = NewDashboardService(leadRepo{store}, stageRepo{store}).(*dashboardService)
	return env
}

func (e *testEnv) ctx() context.Context {
	return context.Background()
}
