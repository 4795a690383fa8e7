// Package encounter implements the encounter lifecycle manager: creation,
// roster changes, the combat state machine, and hit-point bookkeeping.
package encounter

//go:generate mockgen -destination=mock/mock_service.go -package=encountermock github.com/critfumble/encounter-api/internal/orchestrators/encounter Service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/critfumble/encounter-api/internal/authz"
	"github.com/critfumble/encounter-api/internal/entities"
	"github.com/critfumble/encounter-api/internal/errors"
	"github.com/critfumble/encounter-api/internal/pkg/idgen"
	"github.com/critfumble/encounter-api/internal/repositories/encounters"
	"github.com/critfumble/encounter-api/internal/rules/hitpoints"
	"github.com/critfumble/encounter-api/internal/rules/initiative"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 1000
)

// Service defines the interface for encounter operations. Every operation
// requires the resolved caller identity; ownership is checked before any
// other precondition so unauthorized callers learn nothing else.
type Service interface {
	// CreateEncounter creates a new encounter in planning state
	CreateEncounter(ctx context.Context, input *CreateEncounterInput) (*CreateEncounterOutput, error)

	// GetEncounter retrieves an encounter for its owner
	GetEncounter(ctx context.Context, input *GetEncounterInput) (*GetEncounterOutput, error)

	// ListEncounters lists the caller's encounters, most recently updated first
	ListEncounters(ctx context.Context, input *ListEncountersInput) (*ListEncountersOutput, error)

	// UpdateEncounter applies a partial update to name/description/status
	UpdateEncounter(ctx context.Context, input *UpdateEncounterInput) (*UpdateEncounterOutput, error)

	// DeleteEncounter hard-deletes an encounter and its participants
	DeleteEncounter(ctx context.Context, input *DeleteEncounterInput) (*DeleteEncounterOutput, error)

	// AddParticipant adds a combatant to the roster
	AddParticipant(ctx context.Context, input *AddParticipantInput) (*AddParticipantOutput, error)

	// AdjustHitPoints applies damage, healing, or direct HP changes to one participant
	AdjustHitPoints(ctx context.Context, input *AdjustHitPointsInput) (*AdjustHitPointsOutput, error)

	// StartCombat transitions the encounter to active and fixes the initiative order
	StartCombat(ctx context.Context, input *StartCombatInput) (*StartCombatOutput, error)

	// EndCombat transitions the encounter to completed
	EndCombat(ctx context.Context, input *EndCombatInput) (*EndCombatOutput, error)

	// NextTurn advances the turn counter, wrapping into the next round
	NextTurn(ctx context.Context, input *NextTurnInput) (*NextTurnOutput, error)
}

// Broadcaster receives fresh snapshots after successful mutations
type Broadcaster interface {
	Publish(encounterID string, enc *entities.Encounter)
}

// Config holds the dependencies for the encounter orchestrator
type Config struct {
	Repository     encounters.Repository
	Broadcaster    Broadcaster
	EncounterIDs   idgen.Generator
	ParticipantIDs idgen.Generator
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Repository == nil {
		vb.RequiredField("Repository")
	}
	if c.Broadcaster == nil {
		vb.RequiredField("Broadcaster")
	}
	if c.EncounterIDs == nil {
		vb.RequiredField("EncounterIDs")
	}
	if c.ParticipantIDs == nil {
		vb.RequiredField("ParticipantIDs")
	}

	return vb.Build()
}

type orchestrator struct {
	repo           encounters.Repository
	broadcaster    Broadcaster
	encounterIDs   idgen.Generator
	participantIDs idgen.Generator
}

// NewOrchestrator creates a new encounter orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &orchestrator{
		repo:           cfg.Repository,
		broadcaster:    cfg.Broadcaster,
		encounterIDs:   cfg.EncounterIDs,
		participantIDs: cfg.ParticipantIDs,
	}, nil
}

// authorize resolves the encounter's owner through the minimal read and
// checks it against the caller. Absent encounters surface as NotFound,
// foreign ones as PermissionDenied.
func (o *orchestrator) authorize(ctx context.Context, encounterID, userID string) error {
	owner, err := o.repo.GetOwner(ctx, encounters.GetOwnerInput{ID: encounterID})
	if err != nil {
		return err
	}
	return authz.Authorize(owner.OwnerID, userID)
}

// CreateEncounter creates a new encounter in planning state
func (o *orchestrator) CreateEncounter(ctx context.Context, input *CreateEncounterInput) (*CreateEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.UserID == "" {
		return nil, errors.Unauthenticated("caller identity is required")
	}

	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)

	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("name", name, vb)
	errors.ValidateMaxLength("name", name, maxNameLength, vb)
	errors.ValidateMaxLength("description", description, maxDescriptionLength, vb)
	if err := vb.Build(); err != nil {
		return nil, err
	}

	enc := &entities.Encounter{
		ID:           o.encounterIDs.Generate(),
		OwnerID:      input.UserID,
		Name:         name,
		Description:  description,
		Status:       entities.StatusPlanning,
		Round:        0,
		Turn:         0,
		IsActive:     false,
		Participants: []entities.Participant{},
	}

	out, err := o.repo.Create(ctx, encounters.CreateInput{Encounter: enc})
	if err != nil {
		return nil, err
	}

	slog.Info("Encounter created",
		"encounter_id", out.Encounter.ID,
		"user_id", input.UserID,
	)

	return &CreateEncounterOutput{Encounter: out.Encounter}, nil
}

// GetEncounter retrieves an encounter for its owner
func (o *orchestrator) GetEncounter(ctx context.Context, input *GetEncounterInput) (*GetEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	if err := o.authorize(ctx, input.EncounterID, input.UserID); err != nil {
		return nil, err
	}

	out, err := o.repo.Get(ctx, encounters.GetInput{ID: input.EncounterID})
	if err != nil {
		return nil, err
	}

	return &GetEncounterOutput{Encounter: out.Encounter}, nil
}

// ListEncounters lists the caller's encounters, most recently updated first
func (o *orchestrator) ListEncounters(ctx context.Context, input *ListEncountersInput) (*ListEncountersOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if input.UserID == "" {
		return nil, errors.Unauthenticated("caller identity is required")
	}

	out, err := o.repo.ListByOwner(ctx, encounters.ListByOwnerInput{OwnerID: input.UserID})
	if err != nil {
		return nil, err
	}

	return &ListEncountersOutput{Encounters: out.Encounters}, nil
}

// UpdateEncounter applies a partial update to name/description/status
func (o *orchestrator) UpdateEncounter(ctx context.Context, input *UpdateEncounterInput) (*UpdateEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	if err := o.authorize(ctx, input.EncounterID, input.UserID); err != nil {
		return nil, err
	}

	vb := errors.NewValidationBuilder()
	var name, description string
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
		errors.ValidateRequired("name", name, vb)
		errors.ValidateMaxLength("name", name, maxNameLength, vb)
	}
	if input.Description != nil {
		description = strings.TrimSpace(*input.Description)
		errors.ValidateMaxLength("description", description, maxDescriptionLength, vb)
	}
	if input.Status != nil {
		errors.ValidateEnum("status", *input.Status, entities.Statuses(), vb)
	}
	if err := vb.Build(); err != nil {
		return nil, err
	}

	out, err := o.repo.Mutate(ctx, encounters.MutateInput{
		ID: input.EncounterID,
		Fn: func(enc *entities.Encounter) error {
			if input.Name != nil {
				enc.Name = name
			}
			if input.Description != nil {
				// Empty string normalizes to absent.
				enc.Description = description
			}
			if input.Status != nil {
				enc.Status = entities.Status(*input.Status)
				enc.IsActive = enc.Status == entities.StatusActive
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Encounter updated",
		"encounter_id", input.EncounterID,
		"user_id", input.UserID,
	)
	o.broadcaster.Publish(input.EncounterID, out.Encounter)

	return &UpdateEncounterOutput{Encounter: out.Encounter}, nil
}

// DeleteEncounter hard-deletes an encounter and its participants
func (o *orchestrator) DeleteEncounter(ctx context.Context, input *DeleteEncounterInput) (*DeleteEncounterOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	if err := o.authorize(ctx, input.EncounterID, input.UserID); err != nil {
		return nil, err
	}

	out, err := o.repo.Delete(ctx, encounters.DeleteInput{ID: input.EncounterID})
	if err != nil {
		return nil, err
	}

	slog.Info("Encounter deleted",
		"encounter_id", input.EncounterID,
		"user_id", input.UserID,
	)

	return &DeleteEncounterOutput{Success: out.Success}, nil
}

func validateParticipant(data ParticipantData) error {
	vb := errors.NewValidationBuilder()

	errors.ValidateEnum("type", data.Type, entities.ParticipantTypes(), vb)
	errors.ValidateRequired("name", data.Name, vb)
	errors.ValidateMaxLength("name", data.Name, maxNameLength, vb)
	errors.ValidateMin("maxHp", data.MaxHP, 1, vb)
	if data.MaxHP >= 1 {
		errors.ValidateRange("currentHp", data.CurrentHP, 0, data.MaxHP, vb)
	}
	errors.ValidateMin("tempHp", data.TempHP, 0, vb)

	switch entities.ParticipantType(data.Type) {
	case entities.ParticipantCharacter:
		if data.CharacterID == "" {
			vb.RequiredField("characterId")
		}
		if data.CreatureID != "" {
			vb.InvalidField("creatureId", "must not be set for a character")
		}
	case entities.ParticipantCreature:
		if data.CreatureID == "" {
			vb.RequiredField("creatureId")
		}
		if data.CharacterID != "" {
			vb.InvalidField("characterId", "must not be set for a creature")
		}
	}

	return vb.Build()
}

// AddParticipant adds a combatant to the roster
func (o *orchestrator) AddParticipant(ctx context.Context, input *AddParticipantInput) (*AddParticipantOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	if err := o.authorize(ctx, input.EncounterID, input.UserID); err != nil {
		return nil, err
	}

	if err := validateParticipant(input.Participant); err != nil {
		return nil, err
	}

	data := input.Participant
	participant := entities.Participant{
		ID:             o.participantIDs.Generate(),
		EncounterID:    input.EncounterID,
		Type:           entities.ParticipantType(data.Type),
		CharacterID:    data.CharacterID,
		CreatureID:     data.CreatureID,
		Name:           strings.TrimSpace(data.Name),
		Initiative:     data.Initiative,
		InitiativeRoll: data.InitiativeRoll,
		CurrentHP:      data.CurrentHP,
		MaxHP:          data.MaxHP,
		TempHP:         data.TempHP,
		AC:             data.AC,
		Conditions:     data.Conditions,
		IsActive:       true,
		Notes:          data.Notes,
	}
	if participant.Conditions == nil {
		participant.Conditions = []string{}
	}

	out, err := o.repo.Mutate(ctx, encounters.MutateInput{
		ID: input.EncounterID,
		Fn: func(enc *entities.Encounter) error {
			enc.Participants = append(enc.Participants, participant)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Participant added",
		"encounter_id", input.EncounterID,
		"participant_id", participant.ID,
		"user_id", input.UserID,
	)
	o.broadcaster.Publish(input.EncounterID, out.Encounter)

	return &AddParticipantOutput{Encounter: out.Encounter}, nil
}

// AdjustHitPoints applies damage, healing, or direct HP changes to one participant
func (o *orchestrator) AdjustHitPoints(ctx context.Context, input *AdjustHitPointsInput) (*AdjustHitPointsOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	if err := o.authorize(ctx, input.EncounterID, input.UserID); err != nil {
		return nil, err
	}

	adjustment := hitpoints.Adjustment{
		Damage:       input.Damage,
		Healing:      input.Healing,
		SetCurrentHP: input.CurrentHP,
		SetTempHP:    input.TempHP,
	}

	out, err := o.repo.Mutate(ctx, encounters.MutateInput{
		ID: input.EncounterID,
		Fn: func(enc *entities.Encounter) error {
			participant := enc.Participant(input.ParticipantID)
			if participant == nil {
				return errors.ParticipantMismatchf(
					"participant %s does not belong to encounter %s",
					input.ParticipantID, input.EncounterID,
				)
			}

			result := hitpoints.Apply(*participant, adjustment)
			participant.CurrentHP = result.CurrentHP
			participant.TempHP = result.TempHP
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Hit points adjusted",
		"encounter_id", input.EncounterID,
		"participant_id", input.ParticipantID,
		"user_id", input.UserID,
	)
	o.broadcaster.Publish(input.EncounterID, out.Encounter)

	return &AdjustHitPointsOutput{Encounter: out.Encounter}, nil
}

// StartCombat transitions the encounter to active and fixes the initiative order
func (o *orchestrator) StartCombat(ctx context.Context, input *StartCombatInput) (*StartCombatOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	if err := o.authorize(ctx, input.EncounterID, input.UserID); err != nil {
		return nil, err
	}

	out, err := o.repo.Mutate(ctx, encounters.MutateInput{
		ID: input.EncounterID,
		Fn: func(enc *entities.Encounter) error {
			if len(enc.Participants) == 0 {
				return errors.FailedPrecondition("cannot start combat with no participants")
			}

			// Persist the initiative order as array position: ordered active
			// participants first, inactive ones after in insertion order.
			ordered := initiative.Order(enc.Participants)
			for _, p := range enc.Participants {
				if !p.IsActive {
					ordered = append(ordered, p)
				}
			}
			enc.Participants = ordered

			enc.Status = entities.StatusActive
			enc.IsActive = true
			enc.Round = 1
			enc.Turn = 0
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Combat started",
		"encounter_id", input.EncounterID,
		"user_id", input.UserID,
		"participant_count", len(out.Encounter.Participants),
	)
	o.broadcaster.Publish(input.EncounterID, out.Encounter)

	return &StartCombatOutput{Encounter: out.Encounter}, nil
}

// EndCombat transitions the encounter to completed
func (o *orchestrator) EndCombat(ctx context.Context, input *EndCombatInput) (*EndCombatOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	if err := o.authorize(ctx, input.EncounterID, input.UserID); err != nil {
		return nil, err
	}

	out, err := o.repo.Mutate(ctx, encounters.MutateInput{
		ID: input.EncounterID,
		Fn: func(enc *entities.Encounter) error {
			enc.Status = entities.StatusCompleted
			enc.IsActive = false
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Combat ended",
		"encounter_id", input.EncounterID,
		"user_id", input.UserID,
	)
	o.broadcaster.Publish(input.EncounterID, out.Encounter)

	return &EndCombatOutput{Encounter: out.Encounter}, nil
}

// NextTurn advances the turn counter, wrapping into the next round
func (o *orchestrator) NextTurn(ctx context.Context, input *NextTurnInput) (*NextTurnOutput, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}

	if err := o.authorize(ctx, input.EncounterID, input.UserID); err != nil {
		return nil, err
	}

	out, err := o.repo.Mutate(ctx, encounters.MutateInput{
		ID: input.EncounterID,
		Fn: func(enc *entities.Encounter) error {
			if enc.Status != entities.StatusActive {
				return errors.FailedPrecondition("combat is not active")
			}

			active := 0
			for _, p := range enc.Participants {
				if p.IsActive {
					active++
				}
			}
			if active == 0 {
				return errors.FailedPrecondition("no active participants")
			}

			enc.Turn++
			if enc.Turn >= active {
				enc.Turn = 0
				enc.Round++
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Turn advanced",
		"encounter_id", input.EncounterID,
		"round", out.Encounter.Round,
		"turn", out.Encounter.Turn,
	)
	o.broadcaster.Publish(input.EncounterID, out.Encounter)

	return &NextTurnOutput{Encounter: out.Encounter}, nil
}
