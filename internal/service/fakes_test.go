package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/recommend"
	"github.com/leadflow/backend/internal/repository"
	"github.com/leadflow/backend/pkg/supabase"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

// memoryStore is an in-memory implementation of every repository the
// services use.
type memoryStore struct {
	mu         sync.Mutex
	leads      map[string]models.Lead
	stages     map[string]models.Stage
	rules      []models.AutomationRule
	entities   map[string]models.Entity
	users      map[string]models.User
	activities []models.LeadActivity
	auditLogs  []models.AuditLog
	auditErr   error
	leadErr    error
	createdIDs []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		leads:    make(map[string]models.Lead),
		stages:   make(map[string]models.Stage),
		entities: make(map[string]models.Entity),
		users:    make(map[string]models.User),
	}
}

// applyFields sets the JSON-named fields the services write
func applyLeadFields(lead *models.Lead, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "accountName":
			lead.AccountName = v.(string)
		case "sector":
			lead.Sector = v.(string)
		case "stageId":
			lead.StageID = v.(string)
		case "ownerEntityId":
			lead.OwnerEntityID = v.(string)
		case "contractType":
			switch ct := v.(type) {
			case models.ContractType:
				lead.ContractType = ct
			case string:
				lead.ContractType = models.ContractType(ct)
			}
		case "contractStartDate":
			lead.ContractStartDate = v.(*time.Time)
		case "contractEndDate":
			lead.ContractEndDate = v.(*time.Time)
		case "amount":
			lead.Amount = v.(float64)
		case "contractDuration":
			lead.ContractDuration = v.(int)
		case "stageHistory":
			lead.StageHistory = slices.Clone(v.([]models.StageHistoryEntry))
		default:
			panic(fmt.Sprintf("unexpected lead field %q", k))
		}
	}
}

// --- leads ---

type leadRepo struct{ *memoryStore }

func (r leadRepo) Create(_ context.Context, lead *models.Lead) (*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.leadErr != nil {
		return nil, r.leadErr
	}
	r.leads[lead.ID] = *lead
	out := *lead
	return &out, nil
}

func (r leadRepo) GetByID(_ context.Context, id string) (*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", id, repository.ErrNotFound)
	}
	lead.StageHistory = slices.Clone(lead.StageHistory)
	return &lead, nil
}

func (r leadRepo) List(_ context.Context) ([]models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		out = append(out, lead)
	}
	slices.SortFunc(out, func(a, b models.Lead) int { return a.AddedDate.Compare(b.AddedDate) })
	return out, nil
}

func (r leadRepo) ListByStage(ctx context.Context, stageID string) ([]models.Lead, error) {
	all, _ := r.List(ctx)
	var out []models.Lead
	for _, lead := range all {
		if lead.StageID == stageID {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (r leadRepo) Update(_ context.Context, id string, fields map[string]any) (*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.leadErr != nil {
		return nil, r.leadErr
	}
	lead, ok := r.leads[id]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", id, repository.ErrNotFound)
	}
	applyLeadFields(&lead, fields)
	r.leads[id] = lead
	return &lead, nil
}

func (r leadRepo) UpdateMany(_ context.Context, ids []string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		lead := r.leads[id]
		applyLeadFields(&lead, fields)
		r.leads[id] = lead
	}
	return nil
}

func (r leadRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leads, id)
	return nil
}

// --- stages ---

type stageRepo struct{ *memoryStore }

func (r stageRepo) Create(_ context.Context, stage *models.Stage) (*models.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage.ID] = *stage
	out := *stage
	return &out, nil
}

func (r stageRepo) GetByID(_ context.Context, id string) (*models.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stage, ok := r.stages[id]
	if !ok {
		return nil, fmt.Errorf("stage %s: %w", id, repository.ErrNotFound)
	}
	return &stage, nil
}

func (r stageRepo) List(_ context.Context) ([]models.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Stage, 0, len(r.stages))
	for _, stage := range r.stages {
		out = append(out, stage)
	}
	slices.SortFunc(out, func(a, b models.Stage) int { return a.Order - b.Order })
	return out, nil
}

func (r stageRepo) Update(_ context.Context, id string, fields map[string]any) (*models.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stage, ok := r.stages[id]
	if !ok {
		return nil, fmt.Errorf("stage %s: %w", id, repository.ErrNotFound)
	}
	for k, v := range fields {
		switch k {
		case "name":
			stage.Name = v.(string)
		case "order":
			stage.Order = v.(int)
		case "isIsolated":
			stage.IsIsolated = v.(bool)
		case "rules":
			stage.Rules = v.(models.StageRules)
		default:
			panic(fmt.Sprintf("unexpected stage field %q", k))
		}
	}
	r.stages[id] = stage
	return &stage, nil
}

func (r stageRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stages, id)
	return nil
}

// --- automation rules ---

type ruleRepo struct{ *memoryStore }

func (r ruleRepo) List(_ context.Context) ([]models.AutomationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.rules), nil
}

func (r ruleRepo) GetByStageID(_ context.Context, stageID string) (*models.AutomationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.StageID == stageID {
			return &rule, nil
		}
	}
	return nil, fmt.Errorf("rule %s: %w", stageID, repository.ErrNotFound)
}

func (r ruleRepo) Upsert(_ context.Context, rule *models.AutomationRule) (*models.AutomationRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rules {
		if r.rules[i].StageID == rule.StageID {
			r.rules[i] = *rule
			out := *rule
			return &out, nil
		}
	}
	r.rules = append(r.rules, *rule)
	out := *rule
	return &out, nil
}

func (r ruleRepo) DeleteByStageID(_ context.Context, stageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = slices.DeleteFunc(r.rules, func(rule models.AutomationRule) bool { return rule.StageID == stageID })
	return nil
}

// --- entities ---

type entityRepo struct{ *memoryStore }

func (r entityRepo) Create(_ context.Context, e *models.Entity) (*models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[e.ID] = *e
	out := *e
	return &out, nil
}

func (r entityRepo) GetByID(_ context.Context, id string) (*models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", id, repository.ErrNotFound)
	}
	return &e, nil
}

func (r entityRepo) List(_ context.Context) ([]models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b models.Entity) int { return compareStrings(a.Name, b.Name) })
	return out, nil
}

func (r entityRepo) Update(_ context.Context, id string, fields map[string]any) (*models.Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entities[id]
	if name, ok := fields["name"].(string); ok {
		e.Name = name
	}
	r.entities[id] = e
	return &e, nil
}

func (r entityRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, id)
	return nil
}

// --- users ---

type userRepo struct{ *memoryStore }

func (r userRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
	out := *u
	return &out, nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, repository.ErrNotFound)
}

func (r userRepo) List(_ context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b models.User) int { return compareStrings(a.Name, b.Name) })
	return out, nil
}

func (r userRepo) ListByStatus(ctx context.Context, status models.UserStatus) ([]models.User, error) {
	all, _ := r.List(ctx)
	return slices.DeleteFunc(all, func(u models.User) bool { return u.Status != status }), nil
}

func (r userRepo) Update(_ context.Context, id string, fields map[string]any) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	for k, v := range fields {
		switch k {
		case "name":
			u.Name = v.(string)
		case "email":
			u.Email = v.(string)
		case "role":
			u.Role = v.(models.UserRole)
		case "status":
			u.Status = v.(models.UserStatus)
		case "entityId":
			u.EntityID = v.(*string)
		default:
			panic(fmt.Sprintf("unexpected user field %q", k))
		}
	}
	r.users[id] = u
	return &u, nil
}

func (r userRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

// --- audit logs and activities ---

type auditRepo struct{ *memoryStore }

func (r auditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.auditErr != nil {
		return r.auditErr
	}
	r.auditLogs = append(r.auditLogs, *entry)
	return nil
}

func (r auditRepo) List(_ context.Context, filter models.AuditLogFilter) (*models.AuditLogPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var logs []models.AuditLog
	for i := len(r.auditLogs) - 1; i >= 0; i-- {
		entry := r.auditLogs[i]
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		logs = append(logs, entry)
	}
	return &models.AuditLogPage{Logs: logs}, nil
}

type activityRepo struct{ *memoryStore }

func (r activityRepo) Create(_ context.Context, a *models.LeadActivity) (*models.LeadActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities = append(r.activities, *a)
	out := *a
	return &out, nil
}

func (r activityRepo) ListByLead(_ context.Context, leadID string) ([]models.LeadActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LeadActivity
	for _, a := range r.activities {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out, nil
}

// actions lists the recorded audit actions in write order
func (m *memoryStore) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.auditLogs))
	for _, entry := range m.auditLogs {
		out = append(out, entry.Action)
	}
	return out
}

func (m *memoryStore) lastAudit() models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.auditLogs) == 0 {
		return models.AuditLog{}
	}
	return m.auditLogs[len(m.auditLogs)-1]
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// --- identity provider ---

type fakeAuth struct {
	mu        sync.Mutex
	users     map[string]string // email -> password
	ids       map[string]string // email -> id
	deleted   []string
	signInErr error
	nextID    int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{users: make(map[string]string), ids: make(map[string]string)}
}

func (f *fakeAuth) register(email, password string) string {
	f.nextID++
	id := fmt.Sprintf("auth-%d", f.nextID)
	f.users[email] = password
	f.ids[email] = id
	return id
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (*supabase.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	if pw, ok := f.users[email]; !ok || pw != password {
		return nil, fmt.Errorf("login failed: %w", &supabase.Error{StatusCode: 400, Body: "invalid_grant"})
	}
	return &supabase.Session{
		AccessToken:  "access-" + f.ids[email],
		RefreshToken: "refresh-" + f.ids[email],
		User:         supabase.AuthUser{ID: f.ids[email], Email: email},
	}, nil
}

func (f *fakeAuth) SignUp(_ context.Context, email, password string, _ map[string]any) (*supabase.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[email]; ok {
		return nil, fmt.Errorf("signup failed: %w", &supabase.Error{StatusCode: 422, Body: "user_already_exists"})
	}
	id := f.register(email, password)
	return &supabase.Session{User: supabase.AuthUser{ID: id, Email: email}}, nil
}

func (f *fakeAuth) AdminCreateUser(_ context.Context, email, password string, _ map[string]any) (*supabase.AuthUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.register(email, password)
	return &supabase.AuthUser{ID: id, Email: email}, nil
}

func (f *fakeAuth) AdminDeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

// --- recommender ---

type fakeRecommender struct {
	result *recommend.Result
	err    error
	input  recommend.Input
}

func (f *fakeRecommender) Recommend(_ context.Context, in recommend.Input) (*recommend.Result, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

var errStoreDown = errors.New("store unavailable")

// --- fixture ---

var (
	superUser = &models.User{ID: "u-super", Name: "Sam Super", Role: models.RoleSuperUser}
	adminUser = &models.User{ID: "u-admin", Name: "Ada Admin", Role: models.RoleAdmin, EntityID: strPtr("ent-north")}
	northMgr  = &models.User{ID: "u-north", Name: "Nia North", Role: models.RoleManager, EntityID: strPtr("ent-north")}
	southMgr  = &models.User{ID: "u-south", Name: "Sol South", Role: models.RoleManager, EntityID: strPtr("ent-south")}
	viewer    = &models.User{ID: "u-viewer", Name: "Vic Viewer", Role: models.RoleViewer, EntityID: strPtr("ent-north")}
)

// seedPipeline loads Global + three ordered stages, two entities and three leads.
func seedPipeline(m *memoryStore) {
	m.stages["st-global"] = models.Stage{ID: "st-global", Name: models.GlobalStageName, Order: 0, IsIsolated: true}
	m.stages["st-prospect"] = models.Stage{ID: "st-prospect", Name: "Prospect", Order: 1}
	m.stages["st-negotiation"] = models.Stage{ID: "st-negotiation", Name: "Negotiation", Order: 2}
	m.stages["st-closed"] = models.Stage{ID: "st-closed", Name: "Closed", Order: 3}

	m.entities["ent-north"] = models.Entity{ID: "ent-north", Name: "North"}
	m.entities["ent-south"] = models.Entity{ID: "ent-south", Name: "South"}

	jan1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	m.leads["lead-acme"] = models.Lead{
		ID: "lead-acme", AccountName: "Acme", StageID: "st-prospect", Sector: "Retail",
		OwnerEntityID: "ent-north", ContractType: models.ContractAnnual, Amount: 1200.5,
		ContractStartDate: &start, AddedDate: jan1,
		StageHistory: []models.StageHistoryEntry{{StageID: "st-prospect", Timestamp: jan1}},
	}
	m.leads["lead-globex"] = models.Lead{
		ID: "lead-globex", AccountName: "Globex", StageID: "st-negotiation", Sector: "energy",
		OwnerEntityID: "ent-south", ContractType: models.ContractMonthly, Amount: 300,
		AddedDate:    jan1.Add(time.Hour),
		StageHistory: []models.StageHistoryEntry{{StageID: "st-negotiation", Timestamp: jan1.Add(time.Hour)}},
	}
	m.leads["lead-initech"] = models.Lead{
		ID: "lead-initech", AccountName: "Initech", StageID: "st-global", Sector: "Energy",
		OwnerEntityID: "ent-south", Amount: 99.25,
		AddedDate:    jan1.Add(2 * time.Hour),
		StageHistory: []models.StageHistoryEntry{{StageID: "st-global", Timestamp: jan1.Add(2 * time.Hour)}},
	}
}
