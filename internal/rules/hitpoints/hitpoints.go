// Package hitpoints computes hit-point changes for encounter participants.
package hitpoints

import "github.com/critfumble/encounter-api/internal/entities"

// Adjustment describes a requested hit-point change. At most one of
// SetCurrentHP, Damage, and Healing is meaningful per call; when several are
// supplied the precedence is SetCurrentHP, then Damage, then Healing. SetTempHP
// is independent of the other three.
type Adjustment struct {
	Damage       *int
	Healing      *int
	SetCurrentHP *int
	SetTempHP    *int
}

// Result is the computed hit-point state
type Result struct {
	CurrentHP int
	TempHP    int
}

// Apply computes the participant's new hit-point values. Current HP is clamped
// to [0, MaxHP]; temp HP is floored at 0. Damage applies directly to current
// HP and does not drain temp HP. Pure function; the caller persists the result.
func Apply(p entities.Participant, adj Adjustment) Result {
	hp := p.CurrentHP
	switch {
	case adj.SetCurrentHP != nil:
		hp = *adj.SetCurrentHP
	case adj.Damage != nil:
		hp = p.CurrentHP - *adj.Damage
	case adj.Healing != nil:
		hp = p.CurrentHP + *adj.Healing
	}
	hp = clamp(hp, 0, p.MaxHP)

	temp := p.TempHP
	if adj.SetTempHP != nil {
		temp = *adj.SetTempHP
		if temp < 0 {
			temp = 0
		}
	}

	return Result{CurrentHP: hp, TempHP: temp}
}

// Empty reports whether the adjustment requests no change at all
func (a Adjustment) Empty() bool {
	return a.Damage == nil && a.Healing == nil && a.SetCurrentHP == nil && a.SetTempHP == nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
