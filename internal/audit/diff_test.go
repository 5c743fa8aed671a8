package audit

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/backend/internal/models"
)

func TestComputeChangeSet_NoOpUpdateIsSuppressed(t *testing.T) {
	lead := Record{"accountName": "Acme", "amount": 100, "sector": "Retail"}
	same := Record{"sector": "Retail", "amount": 100, "accountName": "Acme"}

	assert.Nil(t, ComputeChangeSet(lead, same, models.AuditUpdateLead))
}

func TestComputeChangeSet_SingleFieldChange(t *testing.T) {
	from := Record{"name": "Acme", "amount": 100}
	to := Record{"name": "Acme", "amount": 150}

	got := ComputeChangeSet(from, to, "update_lead")

	require.NotNil(t, got)
	assert.Equal(t, Record{"amount": 100}, got.From)
	assert.Equal(t, Record{"amount": 150}, got.To)
}

func TestComputeChangeSet_StageHistoryIgnored(t *testing.T) {
	from := Record{
		"stageId":      "s1",
		"stageHistory": []any{Record{"stageId": "s1", "timestamp": "2025-01-01T00:00:00Z"}},
	}
	to := Record{
		"stageId": "s1",
		"stageHistory": []any{
			Record{"stageId": "s1", "timestamp": "2025-01-01T00:00:00Z"},
			Record{"stageId": "s2", "timestamp": "2025-02-01T00:00:00Z"},
		},
	}

	assert.Nil(t, ComputeChangeSet(from, to, "update_lead"))

	to["stageId"] = "s2"
	got := ComputeChangeSet(from, to, "update_lead")
	require.NotNil(t, got)
	assert.Equal(t, Record{"stageId": "s1"}, got.From)
	assert.Equal(t, Record{"stageId": "s2"}, got.To)
	assert.NotContains(t, got.To, "stageHistory")
}

func TestComputeChangeSet_AddedAndRemovedKeys(t *testing.T) {
	tests := []struct {
		name     string
		from     Record
		to       Record
		wantFrom Record
		wantTo   Record
	}{
		{
			name:     "key added",
			from:     Record{},
			to:       Record{"sector": "Tech"},
			wantFrom: Record{"sector": nil},
			wantTo:   Record{"sector": "Tech"},
		},
		{
			name:     "key removed",
			from:     Record{"sector": "Tech"},
			to:       Record{},
			wantFrom: Record{"sector": "Tech"},
			wantTo:   Record{"sector": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeChangeSet(tt.from, tt.to, "update_lead")
			require.NotNil(t, got)
			assert.Equal(t, tt.wantFrom, got.From)
			assert.Equal(t, tt.wantTo, got.To)
		})
	}
}

func TestComputeChangeSet_NonUpdatePassthrough(t *testing.T) {
	to := Record{"a": 1}

	got := ComputeChangeSet(nil, to, "create_lead")
	require.NotNil(t, got)
	assert.Nil(t, got.From)
	assert.Equal(t, to, got.To)

	same := Record{"a": 1}
	got = ComputeChangeSet(same, same, "move_lead")
	require.NotNil(t, got, "non-update actions are never suppressed")
	assert.Equal(t, same, got.From)
	assert.Equal(t, same, got.To)
}

func TestComputeChangeSet_UpdateWithAbsentSidePassesThrough(t *testing.T) {
	to := Record{"name": "Acme"}

	got := ComputeChangeSet(nil, to, "update_entity")

	require.NotNil(t, got)
	assert.Nil(t, got.From)
	assert.Equal(t, to, got.To)
}

func TestComputeChangeSet_StructuralEquality(t *testing.T) {
	tests := []struct {
		name        string
		before      any
		after       any
		wantChanged bool
	}{
		{
			name:        "nested key order ignored",
			before:      Record{"requireStartDateToEnter": true, "requireEndDateToLeave": false},
			after:       Record{"requireEndDateToLeave": false, "requireStartDateToEnter": true},
			wantChanged: false,
		},
		{
			name:        "array order significant",
			before:      []any{"a", "b"},
			after:       []any{"b", "a"},
			wantChanged: true,
		},
		{
			name:        "string and number differ",
			before:      "5",
			after:       5,
			wantChanged: true,
		},
		{
			name:        "same number as int and float",
			before:      5,
			after:       5.0,
			wantChanged: false,
		},
		{
			name:        "null and absent are equal",
			before:      nil,
			after:       nil,
			wantChanged: false,
		},
		{
			name:        "nested value changed",
			before:      Record{"rules": Record{"a": true}},
			after:       Record{"rules": Record{"a": false}},
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeChangeSet(Record{"field": tt.before}, Record{"field": tt.after}, "update_stage_property")
			if tt.wantChanged {
				require.NotNil(t, got)
				assert.Contains(t, got.To, "field")
				return
			}
			assert.Nil(t, got)
		})
	}
}

func TestComputeChangeSet_RoundTrip(t *testing.T) {
	from := Record{"a": 1, "b": "x", "c": []any{1, 2}, "stageHistory": []any{}}
	to := Record{"a": 1, "b": "y", "c": []any{2, 1}, "d": true, "stageHistory": []any{"new"}}

	got := ComputeChangeSet(from, to, "update_lead")
	require.NotNil(t, got)

	applied := Record{}
	for k, v := range from {
		applied[k] = v
	}
	for k, v := range got.To {
		applied[k] = v
	}

	for k := range to {
		if IsExcluded(k) {
			continue
		}
		assert.True(t, Equal(to[k], applied[k]), "key %q", k)
	}
	assert.ElementsMatch(t, []string{"b", "c", "d"}, keysOf(got.To))
}

func TestCompute_MalformedUpdatePayloadReturnsNil(t *testing.T) {
	assert.Nil(t, Compute([]string{"not", "an", "object"}, Record{"a": 1}, "update_lead"))
	assert.Nil(t, Compute(Record{"a": 1}, "plain string", "update_lead"))
	assert.Nil(t, Compute(Record{"a": 1}, math.Inf(1), "update_lead"))
}

func TestCompute_MalformedNonUpdatePayloadIsDropped(t *testing.T) {
	got := Compute("not an object", Record{"a": 1}, "create_lead")

	require.NotNil(t, got)
	assert.Nil(t, got.From)
	assert.Equal(t, Record{"a": 1}, got.To)
}

func TestCompute_StructPayloads(t *testing.T) {
	type payload struct {
		Name   string `json:"name"`
		Amount int    `json:"amount"`
	}

	got := Compute(payload{Name: "Acme", Amount: 1}, payload{Name: "Acme", Amount: 2}, "update_lead")

	require.NotNil(t, got)
	assert.Equal(t, Record{"amount": float64(1)}, got.From)
	assert.Equal(t, Record{"amount": float64(2)}, got.To)
}

func TestCompute_LeadSnapshots(t *testing.T) {
	start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	before := models.Lead{
		ID:          "lead-1",
		AccountName: "Acme",
		StageID:     "s1",
		Sector:      "Retail",
		Amount:      1000,
		AddedDate:   start,
		StageHistory: []models.StageHistoryEntry{
			{StageID: "s1", Timestamp: start},
		},
	}

	after := before
	after.StageHistory = append([]models.StageHistoryEntry{}, before.StageHistory...)
	assert.Nil(t, Compute(LeadSnapshot{Lead: before}, LeadSnapshot{Lead: after}, models.AuditUpdateLead))

	end := start.AddDate(1, 0, 0)
	after.ContractEndDate = &end
	after.StageID = "s2"
	after.StageHistory = append(after.StageHistory, models.StageHistoryEntry{StageID: "s2", Timestamp: end})

	got := Compute(LeadSnapshot{Lead: before}, LeadSnapshot{Lead: after}, models.AuditUpdateLead)

	require.NotNil(t, got)
	assert.Equal(t, Record{"stageId": "s1", "contractEndDate": nil}, got.From)
	assert.Equal(t, Record{"stageId": "s2", "contractEndDate": "2026-01-10T09:00:00Z"}, got.To)
}

func TestCompute_SameInstantDifferentZonesIsNoChange(t *testing.T) {
	utc := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("UTC+2", 2*60*60))

	before := models.Lead{ID: "lead-1", ContractStartDate: &utc}
	after := models.Lead{ID: "lead-1", ContractStartDate: &local}

	assert.Nil(t, Compute(LeadSnapshot{Lead: before}, LeadSnapshot{Lead: after}, models.AuditUpdateLead))
}

func TestComputeChangeSet_ConcurrentUse(t *testing.T) {
	from := Record{"a": 1, "b": Record{"c": []any{1, 2}}}
	to := Record{"a": 2, "b": Record{"c": []any{1, 2}}}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := ComputeChangeSet(from, to, "update_lead")
			if assert.NotNil(t, got) {
				assert.Equal(t, Record{"a": 2}, got.To)
			}
		}()
	}
	wg.Wait()
}

func TestToRecord(t *testing.T) {
	rec, err := ToRecord(nil)
	require.NoError(t, err)
	assert.Nil(t, rec)

	var missing *models.Lead
	rec, err = ToRecord(missing)
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = ToRecord([]int{1, 2})
	assert.ErrorIs(t, err, ErrNotObject)

	rec, err = ToRecord(EntitySnapshot{Entity: models.Entity{ID: "e1", Name: "North"}})
	require.NoError(t, err)
	assert.Equal(t, Record{"id": "e1", "name": "North"}, rec)
}

func keysOf(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}
