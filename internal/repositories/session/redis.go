package session

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/gamemaster-api/internal/entities"
	"github.com/KirkDiggler/gamemaster-api/internal/errors"
	"github.com/KirkDiggler/gamemaster-api/internal/pkg/clock"
	redisclient "github.com/KirkDiggler/gamemaster-api/internal/redis"
)

const (
	sessionKeyPrefix    = "session:"
	campaignIndexPrefix = "session:campaign:"

	// Error messages
	errSessionNil       = "session cannot be nil"
	errSessionIDEmpty   = "session ID cannot be empty"
	errCampaignIDEmpty  = "campaign ID cannot be empty"
	errSessionNotFoundf = "session with ID %s not found"
)

type redisRepository struct {
	client redisclient.Client
	clock  clock.Clock
}

// RedisConfig contains configuration for the Redis session repository.
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

// NewRedis creates a new Redis-backed session repository
func NewRedis(cfg *RedisConfig) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}

	return &redisRepository{
		client: cfg.Client,
		clock:  c,
	}, nil
}

func (r *redisRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	if input.Session == nil {
		return nil, errors.InvalidArgument(errSessionNil)
	}
	if input.Session.ID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}
	if input.Session.CampaignID == "" {
		return nil, errors.InvalidArgument(errCampaignIDEmpty)
	}

	key := sessionKeyPrefix + input.Session.ID

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check existence")
	}
	if exists > 0 {
		return nil, errors.AlreadyExistsf("session with ID %s already exists", input.Session.ID)
	}

	stored := input.Session.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	now := r.clock.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.LastActivity = now

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal session")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, 0) // sessions live until explicitly deleted
	pipe.SAdd(ctx, campaignIndexPrefix+stored.CampaignID, stored.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to create session")
	}

	return &CreateOutput{Session: stored}, nil
}

func (r *redisRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	key := sessionKeyPrefix + input.ID
	result, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf(errSessionNotFoundf, input.ID)
		}
		return nil, errors.Wrapf(err, "failed to get session")
	}

	var sess entities.Session
	if err := json.Unmarshal([]byte(result), &sess); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal session")
	}

	return &GetOutput{Session: &sess}, nil
}

// UpdateIfVersion implements the conditional write with a WATCH/MULTI/EXEC
// transaction: the session key is watched, the stored version is compared
// inside the transaction callback, and the write is discarded by the
// server if any other client touches the key before EXEC. Either path —
// the explicit version check or the watch trip — surfaces as a
// VersionConflict, and no partial mutation is ever visible.
func (r *redisRepository) UpdateIfVersion(ctx context.Context, input UpdateIfVersionInput) (*UpdateIfVersionOutput, error) {
	if input.Session == nil {
		return nil, errors.InvalidArgument(errSessionNil)
	}
	if input.Session.ID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}
	if input.ExpectedVersion < 1 {
		return nil, errors.InvalidArgument("expected version must be at least 1")
	}

	key := sessionKeyPrefix + input.Session.ID
	stored := input.Session.Clone()

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				return errors.NotFoundf(errSessionNotFoundf, input.Session.ID)
			}
			return errors.Wrapf(err, "failed to read session")
		}

		var existing entities.Session
		if err := json.Unmarshal([]byte(current), &existing); err != nil {
			return errors.Wrapf(err, "failed to unmarshal session")
		}

		if existing.Version != input.ExpectedVersion {
			return errors.VersionConflictf(
				"session %s is at version %d, caller expected %d",
				input.Session.ID, existing.Version, input.ExpectedVersion)
		}

		stored.Version = existing.Version + 1
		stored.CreatedAt = existing.CreatedAt
		stored.LastActivity = r.clock.Now()

		data, err := json.Marshal(stored)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal session")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	if err != nil {
		if err == redis.TxFailedErr {
			// Another writer touched the key between our read and EXEC
			return nil, errors.VersionConflictf(
				"session %s was modified concurrently", input.Session.ID)
		}
		return nil, err
	}

	return &UpdateIfVersionOutput{Session: stored}, nil
}

func (r *redisRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	getOutput, err := r.Get(ctx, GetInput(input))
	if err != nil {
		return nil, err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+input.ID)
	pipe.SRem(ctx, campaignIndexPrefix+getOutput.Session.CampaignID, input.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Wrapf(err, "failed to delete session")
	}

	return &DeleteOutput{}, nil
}

func (r *redisRepository) ListByCampaign(ctx context.Context, input ListByCampaignInput) (*ListByCampaignOutput, error) {
	if input.CampaignID == "" {
		return nil, errors.InvalidArgument(errCampaignIDEmpty)
	}

	ids, err := r.client.SMembers(ctx, campaignIndexPrefix+input.CampaignID).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list campaign sessions")
	}

	sessions := make([]*entities.Session, 0, len(ids))
	for _, id := range ids {
		getOutput, err := r.Get(ctx, GetInput{ID: id})
		if err != nil {
			// Stale index entry; drop it and move on
			if errors.IsNotFound(err) {
				r.client.SRem(ctx, campaignIndexPrefix+input.CampaignID, id)
				continue
			}
			return nil, err
		}
		sessions = append(sessions, getOutput.Session)
	}

	return &ListByCampaignOutput{Sessions: sessions}, nil
}
