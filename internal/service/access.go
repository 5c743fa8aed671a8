package service

import (
	"fmt"
	"strings"

	"github.com/leadflow/backend/internal/models"
	"github.com/leadflow/backend/internal/pipeline"
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func requireAdmin(actor *models.User) error {
	if actor != nil && !actor.Role.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

func requireLeadEditor(actor *models.User) error {
	if actor != nil && !actor.Role.CanEditLeads() {
		return fmt.Errorf("%w: role %q cannot edit leads", ErrForbidden, actor.Role)
	}
	return nil
}

// visibility decides which leads an actor can see. Super roles, users
// without an entity and the system see everything. Everyone else sees
// their entity's leads plus every lead parked in the Global stage.
type visibility struct {
	entityID      string
	globalStageID string
	unrestricted  bool
}

func visibilityFor(actor *models.User, stages []models.Stage) visibility {
	v := visibility{unrestricted: true}
	if actor == nil || actor.Role.IsSuper() || actor.OwnEntityID() == "" {
		return v
	}
	v.unrestricted = false
	v.entityID = actor.OwnEntityID()
	if global, ok := pipeline.GlobalStage(stages); ok {
		v.globalStageID = global.ID
	}
	return v
}

func (v visibility) canSee(lead models.Lead) bool {
	if v.unrestricted {
		return true
	}
	if lead.OwnerEntityID == v.entityID {
		return true
	}
	return v.globalStageID != "" && lead.StageID == v.globalStageID
}

func (v visibility) filter(leads []models.Lead) []models.Lead {
	if v.unrestricted {
		return leads
	}
	out := make([]models.Lead, 0, len(leads))
	for _, lead := range leads {
		if v.canSee(lead) {
			out = append(out, lead)
		}
	}
	return out
}

// matchLead applies the listing filters
func matchLead(lead models.Lead, filter models.LeadFilter, actor *models.User) bool {
	if filter.Search != "" && !strings.Contains(strings.ToLower(lead.AccountName), strings.ToLower(filter.Search)) {
		return false
	}
	if filter.StageID != "" && lead.StageID != filter.StageID {
		return false
	}
	if filter.Sector != "" && lead.Sector != filter.Sector {
		return false
	}
	if filter.ContractType != "" && lead.ContractType != filter.ContractType {
		return false
	}
	if filter.EntityID != "" && (actor == nil || actor.Role.IsSuper()) && lead.OwnerEntityID != filter.EntityID {
		return false
	}
	return true
}

func actorID(actor *models.User) string {
	if actor == nil {
		return models.SystemActorID
	}
	return actor.ID
}
