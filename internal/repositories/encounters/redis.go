package encounters

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"github.com/critfumble/encounter-api/internal/entities"
	"github.com/critfumble/encounter-api/internal/errors"
	"github.com/critfumble/encounter-api/internal/pkg/clock"
	redisclient "github.com/critfumble/encounter-api/internal/redis"
)

const (
	encounterKeyPrefix = "encounter:"
	ownerKeyPrefix     = "encounter:owner:"
	ownerIndexPrefix   = "encounter:user:"

	// watchRetries bounds optimistic-lock retries for atomic mutations.
	// Conflict retry is a repository concern; callers never retry.
	watchRetries = 10

	// Error messages
	errEncounterNil     = "encounter cannot be nil"
	errEncounterIDEmpty = "encounter ID cannot be empty"
	errOwnerIDEmpty     = "owner ID cannot be empty"
	errMutateFnNil      = "mutate function cannot be nil"
)

type redisRepository struct {
	client redisclient.Client
	clock  clock.Clock
}

// RedisConfig contains configuration for the Redis encounter repository.
type RedisConfig struct {
	Client redisclient.Client
	Clock  clock.Clock
}

// Validate validates the RedisConfig.
func (cfg *RedisConfig) Validate() error {
	if cfg == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if cfg.Client == nil {
		return errors.InvalidArgument("client cannot be nil")
	}
	return nil
}

// NewRedis creates a new Redis-backed encounter repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Use real clock if none provided
	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	return &redisRepository{
		client: cfg.Client,
		clock:  c,
	}, nil
}

func encounterKey(id string) string {
	return encounterKeyPrefix + id
}

func ownerKey(id string) string {
	return ownerKeyPrefix + id
}

func ownerIndexKey(ownerID string) string {
	return ownerIndexPrefix + ownerID
}

func (r *redisRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if input.Encounter == nil {
		return nil, errors.InvalidArgument(errEncounterNil)
	}
	if input.Encounter.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}
	if input.Encounter.OwnerID == "" {
		return nil, errors.InvalidArgument(errOwnerIDEmpty)
	}

	key := encounterKey(input.Encounter.ID)

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check existence")
	}
	if exists > 0 {
		return nil, errors.AlreadyExistsf("encounter with ID %s already exists", input.Encounter.ID)
	}

	enc := input.Encounter.Clone()
	now := r.clock.Now().UTC()
	enc.CreatedAt = now
	enc.UpdatedAt = now
	enc.Version = 1

	data, err := json.Marshal(enc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal encounter")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.Set(ctx, ownerKey(enc.ID), enc.OwnerID, 0)
	pipe.ZAdd(ctx, ownerIndexKey(enc.OwnerID), redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: enc.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to create encounter")
	}

	return &CreateOutput{Encounter: enc}, nil
}

func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	result, err := r.client.Get(ctx, encounterKey(input.ID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("encounter with ID %s not found", input.ID)
		}
		return nil, errors.Wrapf(err, "failed to get encounter")
	}

	var enc entities.Encounter
	if err := json.Unmarshal([]byte(result), &enc); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal encounter")
	}

	return &GetOutput{Encounter: &enc}, nil
}

func (r *redisRepository) GetOwner(ctx context.Context, input GetOwnerInput) (*GetOwnerOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	ownerID, err := r.client.Get(ctx, ownerKey(input.ID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("encounter with ID %s not found", input.ID)
		}
		return nil, errors.Wrapf(err, "failed to get encounter owner")
	}

	return &GetOwnerOutput{OwnerID: ownerID}, nil
}

func (r *redisRepository) ListByOwner(ctx context.Context, input ListByOwnerInput) (*ListByOwnerOutput, error) {
	if input.OwnerID == "" {
		return nil, errors.InvalidArgument(errOwnerIDEmpty)
	}

	// Index scores are updatedAt timestamps, so a reverse range is already
	// most-recently-updated first.
	ids, err := r.client.ZRevRange(ctx, ownerIndexKey(input.OwnerID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list encounters")
	}

	if len(ids) == 0 {
		return &ListByOwnerOutput{Encounters: []*entities.Encounter{}}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = encounterKey(id)
	}

	docs, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load encounters")
	}

	out := make([]*entities.Encounter, 0, len(docs))
	for _, doc := range docs {
		raw, ok := doc.(string)
		if !ok {
			// Stale index entry; the document is gone.
			continue
		}
		var enc entities.Encounter
		if err := json.Unmarshal([]byte(raw), &enc); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal encounter")
		}
		out = append(out, &enc)
	}

	return &ListByOwnerOutput{Encounters: out}, nil
}

func (r *redisRepository) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	if input.Encounter == nil {
		return nil, errors.InvalidArgument(errEncounterNil)
	}
	if input.Encounter.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	submitted := input.Encounter
	var saved *entities.Encounter

	err := r.withWatch(ctx, submitted.ID, func(tx *redis.Tx, stored *entities.Encounter) error {
		if stored.Version != submitted.Version {
			return errors.Abortedf("encounter %s was modified concurrently", submitted.ID)
		}

		enc := submitted.Clone()
		// Owner and creation time are immutable once written.
		enc.OwnerID = stored.OwnerID
		enc.CreatedAt = stored.CreatedAt
		enc.UpdatedAt = r.clock.Now().UTC()
		enc.Version = stored.Version + 1

		if err := r.storeTx(ctx, tx, enc); err != nil {
			return err
		}
		saved = enc
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &UpdateOutput{Encounter: saved}, nil
}

func (r *redisRepository) Mutate(ctx context.Context, input MutateInput) (*MutateOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}
	if input.Fn == nil {
		return nil, errors.InvalidArgument(errMutateFnNil)
	}

	var saved *entities.Encounter

	err := r.withWatch(ctx, input.ID, func(tx *redis.Tx, stored *entities.Encounter) error {
		enc := stored.Clone()
		if err := input.Fn(enc); err != nil {
			return err
		}

		enc.ID = stored.ID
		enc.OwnerID = stored.OwnerID
		enc.CreatedAt = stored.CreatedAt
		enc.UpdatedAt = r.clock.Now().UTC()
		enc.Version = stored.Version + 1

		if err := r.storeTx(ctx, tx, enc); err != nil {
			return err
		}
		saved = enc
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &MutateOutput{Encounter: saved}, nil
}

func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errEncounterIDEmpty)
	}

	ownerID, err := r.client.Get(ctx, ownerKey(input.ID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("encounter with ID %s not found", input.ID)
		}
		return nil, errors.Wrapf(err, "failed to get encounter owner")
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, encounterKey(input.ID))
	pipe.Del(ctx, ownerKey(input.ID))
	pipe.ZRem(ctx, ownerIndexKey(ownerID), input.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to delete encounter")
	}

	return &DeleteOutput{Success: true}, nil
}

// withWatch runs fn inside an optimistic transaction on the encounter's
// document key, retrying a bounded number of times when a concurrent write
// invalidates the watch.
func (r *redisRepository) withWatch(ctx context.Context, id string, fn func(tx *redis.Tx, stored *entities.Encounter) error) error {
	key := encounterKey(id)

	txFn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				return errors.NotFoundf("encounter with ID %s not found", id)
			}
			return errors.Wrapf(err, "failed to get encounter")
		}

		var stored entities.Encounter
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return errors.Wrapf(err, "failed to unmarshal encounter")
		}

		return fn(tx, &stored)
	}

	var err error
	for i := 0; i < watchRetries; i++ {
		err = r.client.Watch(ctx, txFn, key)
		if err != redis.TxFailedErr {
			break
		}
	}
	if err == redis.TxFailedErr {
		return errors.Abortedf("encounter %s was modified concurrently", id)
	}
	if err != nil {
		var domainErr *errors.Error
		if errors.As(err, &domainErr) {
			return domainErr
		}
		return errors.Wrapf(err, "failed to update encounter")
	}
	return nil
}

// storeTx writes the document and refreshes the owner index inside the
// watched transaction.
func (r *redisRepository) storeTx(ctx context.Context, tx *redis.Tx, enc *entities.Encounter) error {
	data, err := json.Marshal(enc)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal encounter")
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, encounterKey(enc.ID), data, 0)
		pipe.ZAdd(ctx, ownerIndexKey(enc.OwnerID), redis.Z{
			Score:  float64(enc.UpdatedAt.UnixMilli()),
			Member: enc.ID,
		})
		return nil
	})
	return err
}
