package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
	logx "github.com/VirtuLab-core-poc-v1/server/pkg/logger"
)

// RedisProfileStore keeps student XP in a hash and the completion log in a
// list. Each session is awarded at most once.
type RedisProfileStore struct {
	rdb redis.Cmdable
}

func NewRedisProfileStore(rdb redis.Cmdable) *RedisProfileStore {
	return &RedisProfileStore{rdb: rdb}
}

func (r *RedisProfileStore) profileKey(student string) string {
	return fmt.Sprintf("profile:%s", student)
}

func (r *RedisProfileStore) completionsKey(student string) string {
	return fmt.Sprintf("profile:%s:completions", student)
}

func (r *RedisProfileStore) awardedKey(sessionID string) string {
	return fmt.Sprintf("labsession:%s:awarded", sessionID)
}

func (r *RedisProfileStore) AwardCompletion(ctx context.Context, c model.Completion) (int, error) {
	if c.StudentName == "" || c.SessionID == "" {
		return 0, errx.New(errx.InvalidCommand, nil, "completion needs a student and a session")
	}

	first, err := r.rdb.SetNX(ctx, r.awardedKey(c.SessionID), c.ExperimentID, 0).Result()
	if err != nil {
		logx.Error().Err(err).Str("session_id", c.SessionID).Msg("failed to mark completion")
		return 0, errx.WrapRedis(err)
	}
	if !first {
		logx.Warn().Str("session_id", c.SessionID).Msg("completion already awarded")
		return r.TotalXP(ctx, c.StudentName)
	}

	b, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("marshal completion: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	total := pipe.HIncrBy(ctx, r.profileKey(c.StudentName), "xp", int64(c.RewardXP))
	pipe.HIncrBy(ctx, r.profileKey(c.StudentName), "completed", 1)
	pipe.RPush(ctx, r.completionsKey(c.StudentName), b)
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("student", c.StudentName).Msg("failed to award completion")
		return 0, errx.WrapRedis(err)
	}
	return int(total.Val()), nil
}

func (r *RedisProfileStore) TotalXP(ctx context.Context, student string) (int, error) {
	n, err := r.rdb.HGet(ctx, r.profileKey(student), "xp").Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, errx.WrapRedis(err)
	}
	return n, nil
}

var _ model.ProfileStore = (*RedisProfileStore)(nil)
