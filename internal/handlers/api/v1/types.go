package v1

import "github.com/critfumble/encounter-api/internal/entities"

// CreateEncounterRequest is the body for creating an encounter
type CreateEncounterRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateEncounterRequest is a partial update; omitted fields are unchanged
type UpdateEncounterRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// ListEncountersResponse wraps the caller's encounter list
type ListEncountersResponse struct {
	Encounters []*entities.Encounter `json:"encounters"`
}

// AddParticipantRequest is the body for adding a roster member
type AddParticipantRequest struct {
	Type           string   `json:"type"`
	Name           string   `json:"name"`
	Initiative     int      `json:"initiative"`
	InitiativeRoll *int     `json:"initiativeRoll"`
	CurrentHP      int      `json:"currentHp"`
	MaxHP          int      `json:"maxHp"`
	TempHP         int      `json:"tempHp"`
	AC             int      `json:"ac"`
	CharacterID    string   `json:"characterId"`
	CreatureID     string   `json:"creatureId"`
	Conditions     []string `json:"conditions"`
	Notes          string   `json:"notes"`
}

// AdjustHitPointsRequest is the body for a hit-point adjustment. CurrentHP
// takes precedence over Damage, which takes precedence over Healing.
type AdjustHitPointsRequest struct {
	Damage    *int `json:"damage"`
	Healing   *int `json:"healing"`
	CurrentHP *int `json:"currentHp"`
	TempHP    *int `json:"tempHp"`
}

// ErrorBody carries the machine-readable error code and its message
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope for all error replies
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
