// Package initiative orders encounter participants for a combat round.
package initiative

import (
	"sort"

	"github.com/critfumble/encounter-api/internal/entities"
)

// Order returns the turn sequence for a round. Inactive participants are
// excluded. Participants sort descending by initiative; ties break descending
// by initiative roll, with unrolled participants after rolled ones. Full ties
// preserve insertion order. Pure function; callers persist the result if the
// order must survive reloads.
func Order(participants []entities.Participant) []entities.Participant {
	out := make([]entities.Participant, 0, len(participants))
	for _, p := range participants {
		if p.IsActive {
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Initiative != b.Initiative {
			return a.Initiative > b.Initiative
		}
		switch {
		case a.InitiativeRoll != nil && b.InitiativeRoll != nil:
			return *a.InitiativeRoll > *b.InitiativeRoll
		case a.InitiativeRoll != nil:
			return true
		default:
			return false
		}
	})

	return out
}
