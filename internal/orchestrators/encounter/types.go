package encounter

import "github.com/critfumble/encounter-api/internal/entities"

// CreateEncounterInput defines the request for creating an encounter
type CreateEncounterInput struct {
	UserID      string
	Name        string
	Description string
}

// CreateEncounterOutput defines the response for creating an encounter
type CreateEncounterOutput struct {
	Encounter *entities.Encounter
}

// GetEncounterInput defines the request for retrieving an encounter
type GetEncounterInput struct {
	EncounterID string
	UserID      string
}

// GetEncounterOutput defines the response for retrieving an encounter
type GetEncounterOutput struct {
	Encounter *entities.Encounter
}

// ListEncountersInput defines the request for listing a user's encounters
type ListEncountersInput struct {
	UserID string
}

// ListEncountersOutput defines the response for listing a user's encounters
type ListEncountersOutput struct {
	Encounters []*entities.Encounter
}

// UpdateEncounterInput defines a partial update; nil fields are left unchanged
type UpdateEncounterInput struct {
	EncounterID string
	UserID      string
	Name        *string
	Description *string
	Status      *string
}

// UpdateEncounterOutput defines the response for updating an encounter
type UpdateEncounterOutput struct {
	Encounter *entities.Encounter
}

// DeleteEncounterInput defines the request for deleting an encounter
type DeleteEncounterInput struct {
	EncounterID string
	UserID      string
}

// DeleteEncounterOutput defines the response for deleting an encounter
type DeleteEncounterOutput struct {
	Success bool
}

// ParticipantData carries the caller-supplied fields for a new participant.
// Omitted optional fields take their documented defaults: no initiative roll,
// zero temp HP, no conditions, no notes, active.
type ParticipantData struct {
	Type           string
	Name           string
	Initiative     int
	InitiativeRoll *int
	CurrentHP      int
	MaxHP          int
	TempHP         int
	AC             int
	CharacterID    string
	CreatureID     string
	Conditions     []string
	Notes          string
}

// AddParticipantInput defines the request for adding a participant
type AddParticipantInput struct {
	EncounterID string
	UserID      string
	Participant ParticipantData
}

// AddParticipantOutput returns the encounter with its updated roster
type AddParticipantOutput struct {
	Encounter *entities.Encounter
}

// AdjustHitPointsInput defines a hit-point adjustment request. At most one of
// Damage, Healing, and CurrentHP is meaningful; precedence is CurrentHP, then
// Damage, then Healing.
type AdjustHitPointsInput struct {
	EncounterID   string
	ParticipantID string
	UserID        string
	Damage        *int
	Healing       *int
	CurrentHP     *int
	TempHP        *int
}

// AdjustHitPointsOutput returns the encounter after the adjustment
type AdjustHitPointsOutput struct {
	Encounter *entities.Encounter
}

// StartCombatInput defines the request for starting combat
type StartCombatInput struct {
	EncounterID string
	UserID      string
}

// StartCombatOutput returns the encounter in its combat-ready state
type StartCombatOutput struct {
	Encounter *entities.Encounter
}

// EndCombatInput defines the request for ending combat
type EndCombatInput struct {
	EncounterID string
	UserID      string
}

// EndCombatOutput returns the completed encounter
type EndCombatOutput struct {
	Encounter *entities.Encounter
}

// NextTurnInput defines the request for advancing the turn counter
type NextTurnInput struct {
	EncounterID string
	UserID      string
}

// NextTurnOutput returns the encounter after the turn advance
type NextTurnOutput struct {
	Encounter *entities.Encounter
}
