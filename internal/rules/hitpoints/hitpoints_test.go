package hitpoints_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/critfumble/encounter-api/internal/entities"
	"github.com/critfumble/encounter-api/internal/rules/hitpoints"
)

type HitpointsTestSuite struct {
	suite.Suite
}

func TestHitpointsSuite(t *testing.T) {
	suite.Run(t, new(HitpointsTestSuite))
}

func intPtr(v int) *int {
	return &v
}

func fighter() entities.Participant {
	return entities.Participant{
		ID:        "part_1",
		Name:      "Fighter",
		CurrentHP: 20,
		MaxHP:     30,
		TempHP:    5,
	}
}

func (s *HitpointsTestSuite) TestDamageClampsAtZero() {
	res := hitpoints.Apply(fighter(), hitpoints.Adjustment{Damage: intPtr(25)})

	s.Assert().Equal(0, res.CurrentHP)
	s.Assert().Equal(5, res.TempHP, "damage does not drain temp HP")
}

func (s *HitpointsTestSuite) TestDamageNeverNegative() {
	for _, dmg := range []int{1, 20, 21, 100, 1 << 20} {
		res := hitpoints.Apply(fighter(), hitpoints.Adjustment{Damage: intPtr(dmg)})
		s.Assert().GreaterOrEqual(res.CurrentHP, 0, "damage %d", dmg)
	}
}

func (s *HitpointsTestSuite) TestHealingCapsAtMax() {
	res := hitpoints.Apply(fighter(), hitpoints.Adjustment{Healing: intPtr(15)})

	s.Assert().Equal(30, res.CurrentHP, "capped at maxHp, not 35")
}

func (s *HitpointsTestSuite) TestHealingNeverExceedsMax() {
	for _, heal := range []int{1, 10, 11, 500} {
		res := hitpoints.Apply(fighter(), hitpoints.Adjustment{Healing: intPtr(heal)})
		s.Assert().LessOrEqual(res.CurrentHP, 30, "healing %d", heal)
	}
}

func (s *HitpointsTestSuite) TestDirectSetClamped() {
	res := hitpoints.Apply(fighter(), hitpoints.Adjustment{SetCurrentHP: intPtr(99)})
	s.Assert().Equal(30, res.CurrentHP)

	res = hitpoints.Apply(fighter(), hitpoints.Adjustment{SetCurrentHP: intPtr(-4)})
	s.Assert().Equal(0, res.CurrentHP)

	res = hitpoints.Apply(fighter(), hitpoints.Adjustment{SetCurrentHP: intPtr(12)})
	s.Assert().Equal(12, res.CurrentHP)
}

func (s *HitpointsTestSuite) TestPrecedenceSetThenDamageThenHealing() {
	// Direct set wins over everything else.
	res := hitpoints.Apply(fighter(), hitpoints.Adjustment{
		SetCurrentHP: intPtr(10),
		Damage:       intPtr(5),
		Healing:      intPtr(5),
	})
	s.Assert().Equal(10, res.CurrentHP)

	// Damage wins over healing.
	res = hitpoints.Apply(fighter(), hitpoints.Adjustment{
		Damage:  intPtr(5),
		Healing: intPtr(7),
	})
	s.Assert().Equal(15, res.CurrentHP)
}

func (s *HitpointsTestSuite) TestTempHPFlooredAtZero() {
	res := hitpoints.Apply(fighter(), hitpoints.Adjustment{SetTempHP: intPtr(-3)})
	s.Assert().Equal(0, res.TempHP)

	res = hitpoints.Apply(fighter(), hitpoints.Adjustment{SetTempHP: intPtr(8)})
	s.Assert().Equal(8, res.TempHP)
	s.Assert().Equal(20, res.CurrentHP, "temp HP change leaves current HP alone")
}

func (s *HitpointsTestSuite) TestNoAdjustmentIsNoop() {
	res := hitpoints.Apply(fighter(), hitpoints.Adjustment{})

	s.Assert().Equal(20, res.CurrentHP)
	s.Assert().Equal(5, res.TempHP)
	s.Assert().True(hitpoints.Adjustment{}.Empty())
	s.Assert().False(hitpoints.Adjustment{Damage: intPtr(1)}.Empty())
}
