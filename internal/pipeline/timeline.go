package pipeline

import (
	"time"

	"github.com/leadflow/backend/internal/models"
)

// TimelineEntry is one stop of a lead's journey through the pipeline.
type TimelineEntry struct {
	StageID   string    `json:"stageId,omitempty"`
	StageName string    `json:"stageName"`
	Timestamp time.Time `json:"timestamp"`
	Predicted bool      `json:"predicted"`
}

// Timeline is a lead's recorded history followed by its projected next move.
type Timeline struct {
	LeadID     string          `json:"leadId"`
	Entries    []TimelineEntry `json:"entries"`
	Prediction *Projection     `json:"prediction,omitempty"`
}

// BuildTimeline resolves the lead's history to stage names, oldest first,
// and appends the projected transition when one exists.
func BuildTimeline(lead models.Lead, rules []models.AutomationRule, stages []models.Stage) Timeline {
	sorted := SortHistory(lead.StageHistory)
	entries := make([]TimelineEntry, 0, len(sorted)+1)
	for _, h := range sorted {
		entries = append(entries, TimelineEntry{
			StageID:   h.StageID,
			StageName: StageName(h.StageID, stages),
			Timestamp: h.Timestamp,
		})
	}

	timeline := Timeline{LeadID: lead.ID, Entries: entries}

	projection := ProjectNextTransition(CurrentStageID(lead), lead.StageHistory, rules, stages)
	if projection != nil {
		timeline.Prediction = projection
		timeline.Entries = append(timeline.Entries, TimelineEntry{
			StageID:   projection.TargetStageID,
			StageName: projection.TargetStageName,
			Timestamp: projection.ProjectedDate,
			Predicted: true,
		})
	}
	return timeline
}
