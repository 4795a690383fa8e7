package encounter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/critfumble/encounter-api/internal/errors"
	"github.com/critfumble/encounter-api/internal/orchestrators/encounter"
	"github.com/critfumble/encounter-api/internal/pkg/idgen"
	"github.com/critfumble/encounter-api/internal/repositories/encounters"
	encountermock "github.com/critfumble/encounter-api/internal/repositories/encounters/mock"
)

// AuthorizationTestSuite proves denied callers never reach a mutating
// repository method. The mock controller fails the test on any call
// that is not explicitly expected.
type AuthorizationTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockRepo     *encountermock.MockRepository
	orchestrator encounter.Service
	ctx          context.Context
}

func TestAuthorizationSuite(t *testing.T) {
	suite.Run(t, new(AuthorizationTestSuite))
}

func (s *AuthorizationTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockRepo = encountermock.NewMockRepository(s.ctrl)

	svc, err := encounter.NewOrchestrator(&encounter.Config{
		Repository:     s.mockRepo,
		Broadcaster:    &recordingBroadcaster{},
		EncounterIDs:   idgen.NewSequential("enc"),
		ParticipantIDs: idgen.NewSequential("part"),
	})
	s.Require().NoError(err)
	s.orchestrator = svc

	s.ctx = context.Background()
}

func (s *AuthorizationTestSuite) expectOwner(encounterID, ownerID string) {
	s.mockRepo.EXPECT().
		GetOwner(s.ctx, encounters.GetOwnerInput{ID: encounterID}).
		Return(&encounters.GetOwnerOutput{OwnerID: ownerID}, nil)
}

func (s *AuthorizationTestSuite) TestStrangerCannotMutate() {
	const encounterID = "enc_1"

	testCases := []struct {
		name string
		call func() error
	}{
		{
			name: "update",
			call: func() error {
				_, err := s.orchestrator.UpdateEncounter(s.ctx, &encounter.UpdateEncounterInput{
					EncounterID: encounterID,
					UserID:      testStranger,
					Name:        strPtr("Hijacked"),
				})
				return err
			},
		},
		{
			name: "delete",
			call: func() error {
				_, err := s.orchestrator.DeleteEncounter(s.ctx, &encounter.DeleteEncounterInput{
					EncounterID: encounterID,
					UserID:      testStranger,
				})
				return err
			},
		},
		{
			name: "add participant",
			call: func() error {
				_, err := s.orchestrator.AddParticipant(s.ctx, &encounter.AddParticipantInput{
					EncounterID: encounterID,
					UserID:      testStranger,
					Participant: encounter.ParticipantData{
						Type: "creature", Name: "Goblin",
						CreatureID: "creature_goblin", CurrentHP: 7, MaxHP: 7,
					},
				})
				return err
			},
		},
		{
			name: "adjust hit points",
			call: func() error {
				_, err := s.orchestrator.AdjustHitPoints(s.ctx, &encounter.AdjustHitPointsInput{
					EncounterID:   encounterID,
					ParticipantID: "part_1",
					UserID:        testStranger,
					Damage:        intPtr(1),
				})
				return err
			},
		},
		{
			name: "start combat",
			call: func() error {
				_, err := s.orchestrator.StartCombat(s.ctx, &encounter.StartCombatInput{
					EncounterID: encounterID,
					UserID:      testStranger,
				})
				return err
			},
		},
		{
			name: "end combat",
			call: func() error {
				_, err := s.orchestrator.EndCombat(s.ctx, &encounter.EndCombatInput{
					EncounterID: encounterID,
					UserID:      testStranger,
				})
				return err
			},
		},
		{
			name: "next turn",
			call: func() error {
				_, err := s.orchestrator.NextTurn(s.ctx, &encounter.NextTurnInput{
					EncounterID: encounterID,
					UserID:      testStranger,
				})
				return err
			},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.expectOwner(encounterID, testOwner)

			err := tc.call()
			s.Assert().True(errors.IsPermissionDenied(err))
		})
	}
}

func (s *AuthorizationTestSuite) TestMissingEncounterIsNotFound() {
	s.mockRepo.EXPECT().
		GetOwner(s.ctx, encounters.GetOwnerInput{ID: "enc_missing"}).
		Return(nil, errors.NotFound("encounter not found"))

	_, err := s.orchestrator.StartCombat(s.ctx, &encounter.StartCombatInput{
		EncounterID: "enc_missing",
		UserID:      testOwner,
	})
	s.Assert().True(errors.IsNotFound(err))
}

func (s *AuthorizationTestSuite) TestAnonymousCallerIsUnauthenticated() {
	s.expectOwner("enc_1", testOwner)

	_, err := s.orchestrator.GetEncounter(s.ctx, &encounter.GetEncounterInput{
		EncounterID: "enc_1",
		UserID:      "",
	})
	s.Assert().True(errors.IsUnauthenticated(err))
}
