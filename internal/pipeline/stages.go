package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/leadflow/backend/internal/models"
)

// UnknownStageName labels history entries whose stage no longer exists.
const UnknownStageName = "Unknown Stage"

// ErrInvalidOrder is returned by Reorder when the IDs are not a permutation
// of the reorderable stages.
var ErrInvalidOrder = errors.New("stage order must list every non-Global stage exactly once")

// FindStage returns the stage with the given ID.
func FindStage(id string, stages []models.Stage) (models.Stage, bool) {
	for _, s := range stages {
		if s.ID == id {
			return s, true
		}
	}
	return models.Stage{}, false
}

// FindStageByName returns the first stage whose name matches case-insensitively.
func FindStageByName(name string, stages []models.Stage) (models.Stage, bool) {
	for _, s := range stages {
		if strings.EqualFold(strings.TrimSpace(s.Name), strings.TrimSpace(name)) {
			return s, true
		}
	}
	return models.Stage{}, false
}

// StageName resolves a stage ID to its display name.
func StageName(id string, stages []models.Stage) string {
	if s, ok := FindStage(id, stages); ok {
		return s.Name
	}
	return UnknownStageName
}

// NextStage returns the stage whose order immediately follows the current
// stage's, isolated stages included.
func NextStage(currentStageID string, stages []models.Stage) (models.Stage, bool) {
	current, ok := FindStage(currentStageID, stages)
	if !ok {
		return models.Stage{}, false
	}
	for _, s := range stages {
		if s.Order == current.Order+1 {
			return s, true
		}
	}
	return models.Stage{}, false
}

// GlobalStage returns the reserved Global stage.
func GlobalStage(stages []models.Stage) (models.Stage, bool) {
	for _, s := range stages {
		if s.IsGlobal() {
			return s, true
		}
	}
	return models.Stage{}, false
}

// OrderStages returns a copy of stages for display: Global first, then by order.
func OrderStages(stages []models.Stage) []models.Stage {
	ordered := slices.Clone(stages)
	slices.SortStableFunc(ordered, func(a, b models.Stage) int {
		switch {
		case a.IsGlobal() && !b.IsGlobal():
			return -1
		case b.IsGlobal() && !a.IsGlobal():
			return 1
		}
		return a.Order - b.Order
	})
	return ordered
}

// ActiveStageNames lists the names of the non-isolated stages in pipeline order.
func ActiveStageNames(stages []models.Stage) []string {
	var names []string
	for _, s := range OrderStages(stages) {
		if !s.IsIsolated {
			names = append(names, s.Name)
		}
	}
	return names
}

// NextOrder is the order assigned to a newly appended stage.
func NextOrder(stages []models.Stage) int {
	highest := 0
	for _, s := range stages {
		if !s.IsGlobal() && s.Order > highest {
			highest = s.Order
		}
	}
	return highest + 1
}

// Reorder assigns orders 1..n to the non-Global stages following ids.
// Global keeps order 0 and must not appear in ids.
func Reorder(stages []models.Stage, ids []string) ([]models.Stage, error) {
	reorderable := make(map[string]models.Stage, len(stages))
	for _, s := range stages {
		if !s.IsGlobal() {
			reorderable[s.ID] = s
		}
	}
	if len(ids) != len(reorderable) {
		return nil, fmt.Errorf("%w: got %d IDs for %d stages", ErrInvalidOrder, len(ids), len(reorderable))
	}

	seen := make(map[string]struct{}, len(ids))
	out := make([]models.Stage, 0, len(ids))
	for i, id := range ids {
		s, ok := reorderable[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidOrder, id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate stage %q", ErrInvalidOrder, id)
		}
		seen[id] = struct{}{}
		s.Order = i + 1
		out = append(out, s)
	}
	return out, nil
}

// StageNames lists the names of stages in the given order.
func StageNames(stages []models.Stage) []string {
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		names = append(names, s.Name)
	}
	return names
}
