// Package entities defines the encounter document model shared by the
// repository, orchestrator, and boundary layers.
package entities

import "time"

// Status is the lifecycle state of an encounter
type Status string

// Encounter statuses
const (
	StatusPlanning  Status = "planning"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Statuses lists the valid status values
func Statuses() []string {
	return []string{
		string(StatusPlanning),
		string(StatusActive),
		string(StatusPaused),
		string(StatusCompleted),
	}
}

// IsValid reports whether s is a known status value
func (s Status) IsValid() bool {
	switch s {
	case StatusPlanning, StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// ParticipantType distinguishes player characters from creatures
type ParticipantType string

// Participant types
const (
	ParticipantCharacter ParticipantType = "character"
	ParticipantCreature  ParticipantType = "creature"
)

// ParticipantTypes lists the valid participant type values
func ParticipantTypes() []string {
	return []string{string(ParticipantCharacter), string(ParticipantCreature)}
}

// LairAction is an environment-triggered effect attached to an encounter.
// The engine stores and forwards it without interpreting it.
type LairAction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Initiative  int    `json:"initiative"`
}

// Participant is one combatant inside an encounter
type Participant struct {
	ID          string          `json:"id"`
	EncounterID string          `json:"encounterId"`
	Type        ParticipantType `json:"type"`
	CharacterID string          `json:"characterId,omitempty"`
	CreatureID  string          `json:"creatureId,omitempty"`
	Name        string          `json:"name"`
	Initiative  int             `json:"initiative"`
	// InitiativeRoll breaks initiative ties; nil means no roll was recorded
	InitiativeRoll *int     `json:"initiativeRoll,omitempty"`
	CurrentHP      int      `json:"currentHp"`
	MaxHP          int      `json:"maxHp"`
	TempHP         int      `json:"tempHp"`
	AC             int      `json:"ac"`
	Conditions     []string `json:"conditions"`
	IsActive       bool     `json:"isActive"`
	Notes          string   `json:"notes,omitempty"`
}

// Encounter is one combat session: a roster, round/turn counters, and a
// lifecycle status, owned by a single user.
type Encounter struct {
	ID          string `json:"id"`
	OwnerID     string `json:"ownerId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`
	Round       int    `json:"round"`
	Turn        int    `json:"turn"`
	// IsActive mirrors Status == StatusActive for cheap filtering
	IsActive     bool          `json:"isActive"`
	Participants []Participant `json:"participants"`
	LairActions  []LairAction  `json:"lairActions,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	// Version backs the repository's conditional update; it is opaque to
	// callers and bumped on every successful write.
	Version int64 `json:"version"`
}

// Participant returns the roster entry with the given id, or nil
func (e *Encounter) Participant(id string) *Participant {
	for i := range e.Participants {
		if e.Participants[i].ID == id {
			return &e.Participants[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the encounter
func (e *Encounter) Clone() *Encounter {
	if e == nil {
		return nil
	}

	out := *e

	out.Participants = make([]Participant, len(e.Participants))
	copy(out.Participants, e.Participants)
	for i := range out.Participants {
		if roll := e.Participants[i].InitiativeRoll; roll != nil {
			v := *roll
			out.Participants[i].InitiativeRoll = &v
		}
		if conds := e.Participants[i].Conditions; conds != nil {
			out.Participants[i].Conditions = append([]string(nil), conds...)
		}
	}

	if e.LairActions != nil {
		out.LairActions = append([]LairAction(nil), e.LairActions...)
	}

	return &out
}
