package crawler

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hadsh/spamhunter/internal/platform"
	"github.com/hadsh/spamhunter/pkg/utils"
)

// newUserBatchSize is the max rows drained from the NewUser queue per tick
// (spec §4.8.3), matching the platform's batch-fetch cap.
const newUserBatchSize = 50

// runNewUserDrain pulls from the NewUser inbox every new_check_interval,
// fetching and inspecting each account before removing its queue row.
func (c *Crawler) runNewUserDrain(ctx context.Context) {
	for {
		if utils.ContextGuardWithLog(ctx, c.logger, "context cancelled, stopping new user drain loop") {
			return
		}

		if c.client.IsForbidden() {
			if !utils.ErrorSleep(ctx, c.cfg.APIBlockedDelay(), c.logger, "new user drain loop") {
				return
			}

			continue
		}

		if err := c.drainNewUsers(ctx); err != nil {
			c.logger.Error("new user drain tick failed", zap.Error(err))
		}

		if !utils.IntervalSleep(ctx, c.cfg.NewCheckInterval(), c.logger, "new user drain loop") {
			return
		}
	}
}

func (c *Crawler) drainNewUsers(ctx context.Context) error {
	ids, err := c.store.DequeueNew(ctx, newUserBatchSize)
	if err != nil {
		return err
	}

	c.metrics.NewUserInboxSize.Set(float64(len(ids)))

	if len(ids) == 0 {
		return nil
	}

	users, err := c.api.GetUsersBatch(ctx, ids)
	if err != nil {
		return err
	}

	for _, u := range users {
		if _, _, err := c.UpdateUserFromData(ctx, u, true, true); err != nil {
			if errors.Is(err, platform.InvalidUser) {
				continue
			}

			c.logger.Warn("failed to inspect new user",
				zap.Int64("user_id", u.ID), zap.Error(err))

			continue
		}

		if err := c.store.RemoveNew(ctx, u.ID); err != nil {
			c.logger.Warn("failed to remove drained new user row",
				zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}

	return nil
}
