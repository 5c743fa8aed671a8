package pipeline

import (
	"errors"
	"fmt"

	"github.com/leadflow/backend/internal/models"
)

// ErrStageRule is wrapped by every RuleViolation.
var ErrStageRule = errors.New("stage rule violated")

// RuleViolation reports which stage rule blocked a move.
type RuleViolation struct {
	StageName string
	Rule      string
}

func (v *RuleViolation) Error() string {
	switch v.Rule {
	case models.StagePropRequireStartDate:
		return fmt.Sprintf("a contract start date is required to enter stage %q", v.StageName)
	case models.StagePropRequireEndDate:
		return fmt.Sprintf("a contract end date is required to leave stage %q", v.StageName)
	}
	return fmt.Sprintf("stage %q rule %s violated", v.StageName, v.Rule)
}

func (v *RuleViolation) Unwrap() error {
	return ErrStageRule
}

// CheckTransition verifies that lead may leave from and enter to.
// from may be nil for a lead that is not yet in any stage.
func CheckTransition(lead models.Lead, from *models.Stage, to models.Stage) error {
	if from != nil && from.ID == to.ID {
		return nil
	}
	if from != nil && from.Rules.RequireEndDateToLeave && lead.ContractEndDate == nil {
		return &RuleViolation{StageName: from.Name, Rule: models.StagePropRequireEndDate}
	}
	if to.Rules.RequireStartDateToEnter && lead.ContractStartDate == nil {
		return &RuleViolation{StageName: to.Name, Rule: models.StagePropRequireStartDate}
	}
	return nil
}
