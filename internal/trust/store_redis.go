package trust

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "shamba/pkg/domain"
	"shamba/pkg/platform/sentinel"
)

const (
	profileKeyPrefix = "shamba:validator:"
	leaderboardKey   = "shamba:leaderboard"
)

// RedisStore keeps each profile as a JSON value plus a sorted-set index on
// trust score, so the leaderboard read is a single ZREVRANGE instead of a
// full scan. Final ordering (accuracy and claims_validated tie-breaks) is
// still applied by the service; the zset only pre-sorts by score.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func profileKey(validatorID id.ValidatorID) string {
	return profileKeyPrefix + validatorID.String()
}

func (s *RedisStore) Get(ctx context.Context, validatorID id.ValidatorID) (Profile, error) {
	raw, err := s.client.Get(ctx, profileKey(validatorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Profile{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (s *RedisStore) Save(ctx context.Context, profile Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, profileKey(profile.ValidatorID), raw, 0)
	pipe.ZAdd(ctx, leaderboardKey, redis.Z{
		Score:  profile.TrustScore,
		Member: profile.ValidatorID.String(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Profile, error) {
	members, err := s.client.ZRevRange(ctx, leaderboardKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list leaderboard: %w", err)
	}
	profiles := make([]Profile, 0, len(members))
	for _, member := range members {
		validatorID, err := id.ParseValidatorID(member)
		if err != nil {
			continue // index entry without a parseable id; skip, don't fail the read
		}
		p, err := s.Get(ctx, validatorID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
