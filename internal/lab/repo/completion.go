package repo

import (
	"context"

	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
	logx "github.com/VirtuLab-core-poc-v1/server/pkg/logger"
)

// RecordCompletion adapts a profile store into a session completion callback.
func RecordCompletion(store model.ProfileStore) func(context.Context, model.Completion) error {
	return func(ctx context.Context, c model.Completion) error {
		total, err := store.AwardCompletion(ctx, c)
		if err != nil {
			return err
		}
		logx.Info().
			Str("session_id", c.SessionID).
			Str("experiment_id", c.ExperimentID).
			Str("student", c.StudentName).
			Int("reward_xp", c.RewardXP).
			Int("total_xp", total).
			Msg("Completion recorded")
		return nil
	}
}
