package encounters

import (
	"context"
	"sort"
	"sync"

	"github.com/critfumble/encounter-api/internal/entities"
	"github.com/critfumble/encounter-api/internal/errors"
	"github.com/critfumble/encounter-api/internal/pkg/clock"
)

// InMemoryRepository implements Repository using in-memory storage. It is the
// reference implementation used in tests and local development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*entities.Encounter
	clock clock.Clock
}

// NewInMemory creates a new in-memory repository
func NewInMemory(c clock.Clock) *InMemoryRepository {
	if c == nil {
		c = clock.New()
	}
	return &InMemoryRepository{
		store: make(map[string]*entities.Encounter),
		clock: c,
	}
}

// Create stores a new encounter
func (r *InMemoryRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if input.Encounter == nil {
		return nil, errors.InvalidArgument(errEncounterNil)
	}
	if input.Encounter.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}
	if input.Encounter.OwnerID == "" {
		return nil, errors.InvalidArgument(errOwnerIDEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store[input.Encounter.ID]; exists {
		return nil, errors.AlreadyExistsf("encounter with ID %s already exists", input.Encounter.ID)
	}

	enc := input.Encounter.Clone()
	now := r.clock.Now().UTC()
	enc.CreatedAt = now
	enc.UpdatedAt = now
	enc.Version = 1

	r.store[enc.ID] = enc

	return &CreateOutput{Encounter: enc.Clone()}, nil
}

// Get retrieves an encounter by ID
func (r *InMemoryRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	enc, exists := r.store[input.ID]
	if !exists {
		return nil, errors.NotFoundf("encounter with ID %s not found", input.ID)
	}

	// Return a copy to prevent external modification
	return &GetOutput{Encounter: enc.Clone()}, nil
}

// GetOwner retrieves only the owner of an encounter
func (r *InMemoryRepository) GetOwner(ctx context.Context, input GetOwnerInput) (*GetOwnerOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	enc, exists := r.store[input.ID]
	if !exists {
		return nil, errors.NotFoundf("encounter with ID %s not found", input.ID)
	}

	return &GetOwnerOutput{OwnerID: enc.OwnerID}, nil
}

// ListByOwner retrieves a user's encounters, most recently updated first
func (r *InMemoryRepository) ListByOwner(ctx context.Context, input ListByOwnerInput) (*ListByOwnerOutput, error) {
	if input.OwnerID == "" {
		return nil, errors.InvalidArgument(errOwnerIDEmpty)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Encounter, 0)
	for _, enc := range r.store {
		if enc.OwnerID == input.OwnerID {
			out = append(out, enc.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return &ListByOwnerOutput{Encounters: out}, nil
}

// Update replaces an encounter document, conditional on its version
func (r *InMemoryRepository) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	if input.Encounter == nil {
		return nil, errors.InvalidArgument(errEncounterNil)
	}
	if input.Encounter.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.store[input.Encounter.ID]
	if !exists {
		return nil, errors.NotFoundf("encounter with ID %s not found", input.Encounter.ID)
	}

	if stored.Version != input.Encounter.Version {
		return nil, errors.Abortedf("encounter %s was modified concurrently", input.Encounter.ID)
	}

	enc := input.Encounter.Clone()
	// Owner and creation time are immutable once written.
	enc.OwnerID = stored.OwnerID
	enc.CreatedAt = stored.CreatedAt
	enc.UpdatedAt = r.clock.Now().UTC()
	enc.Version = stored.Version + 1

	r.store[enc.ID] = enc

	return &UpdateOutput{Encounter: enc.Clone()}, nil
}

// Mutate applies fn to the stored document atomically
func (r *InMemoryRepository) Mutate(ctx context.Context, input MutateInput) (*MutateOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}
	if input.Fn == nil {
		return nil, errors.InvalidArgument(errMutateFnNil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.store[input.ID]
	if !exists {
		return nil, errors.NotFoundf("encounter with ID %s not found", input.ID)
	}

	enc := stored.Clone()
	if err := input.Fn(enc); err != nil {
		return nil, err
	}

	enc.ID = stored.ID
	enc.OwnerID = stored.OwnerID
	enc.CreatedAt = stored.CreatedAt
	enc.UpdatedAt = r.clock.Now().UTC()
	enc.Version = stored.Version + 1

	r.store[enc.ID] = enc

	return &MutateOutput{Encounter: enc.Clone()}, nil
}

// Delete removes an encounter and its participants
func (r *InMemoryRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store[input.ID]; !exists {
		return nil, errors.NotFoundf("encounter with ID %s not found", input.ID)
	}

	delete(r.store, input.ID)

	return &DeleteOutput{Success: true}, nil
}
