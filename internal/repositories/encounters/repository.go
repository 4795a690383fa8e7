// Package encounters provides persistence for encounter documents.
package encounters

//go:generate mockgen -destination=mock/mock_repository.go -package=encountermock github.com/critfumble/encounter-api/internal/repositories/encounters Repository

import (
	"context"

	"github.com/critfumble/encounter-api/internal/entities"
)

// MutateFunc edits an encounter in place inside an atomic read-modify-write.
// Returning an error aborts the write and surfaces the error unchanged.
type MutateFunc func(*entities.Encounter) error

// Repository defines the storage contract for encounters. Each mutating
// method is a single-document unit of work; Mutate is the atomic conditional
// update mandated for racy in-document changes such as hit-point adjustments.
type Repository interface {
	// Create stores a new encounter
	Create(ctx context.Context, input CreateInput) (*CreateOutput, error)

	// Get retrieves an encounter by ID
	Get(ctx context.Context, input GetInput) (*GetOutput, error)

	// GetOwner retrieves only the owner of an encounter; it never loads the
	// full document, so ownership checks stay cheap for unauthorized callers
	GetOwner(ctx context.Context, input GetOwnerInput) (*GetOwnerOutput, error)

	// ListByOwner retrieves a user's encounters, most recently updated first
	ListByOwner(ctx context.Context, input ListByOwnerInput) (*ListByOwnerOutput, error)

	// Update replaces an encounter document, conditional on its version
	Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error)

	// Mutate applies fn to the stored document atomically and persists the
	// result; concurrent writers never lose updates
	Mutate(ctx context.Context, input MutateInput) (*MutateOutput, error)

	// Delete removes an encounter and everything it owns
	Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error)
}

// CreateInput defines the request for storing a new encounter
type CreateInput struct {
	Encounter *entities.Encounter
}

// CreateOutput defines the response for storing a new encounter
type CreateOutput struct {
	Encounter *entities.Encounter
}

// GetInput defines the request for retrieving an encounter
type GetInput struct {
	ID string
}

// GetOutput defines the response for retrieving an encounter
type GetOutput struct {
	Encounter *entities.Encounter
}

// GetOwnerInput defines the request for the minimal ownership read
type GetOwnerInput struct {
	ID string
}

// GetOwnerOutput defines the response for the minimal ownership read
type GetOwnerOutput struct {
	OwnerID string
}

// ListByOwnerInput defines the request for listing a user's encounters
type ListByOwnerInput struct {
	OwnerID string
}

// ListByOwnerOutput defines the response for listing a user's encounters
type ListByOwnerOutput struct {
	Encounters []*entities.Encounter
}

// UpdateInput defines the request for a conditional full-document update
type UpdateInput struct {
	Encounter *entities.Encounter
}

// UpdateOutput defines the response for a conditional full-document update
type UpdateOutput struct {
	Encounter *entities.Encounter
}

// MutateInput defines the request for an atomic read-modify-write
type MutateInput struct {
	ID string
	Fn MutateFunc
}

// MutateOutput defines the response for an atomic read-modify-write
type MutateOutput struct {
	Encounter *entities.Encounter
}

// DeleteInput defines the request for deleting an encounter
type DeleteInput struct {
	ID string
}

// DeleteOutput defines the response for deleting an encounter
type DeleteOutput struct {
	Success bool
}
