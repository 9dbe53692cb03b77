package crawler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hadsh/spamhunter/internal/platform"
	"github.com/hadsh/spamhunter/pkg/utils"
)

// deferredBatchSize is the max rows drained from the DeferredUser queue
// per tick (spec §4.8.4).
const deferredBatchSize = 50

// runDeferredDrain re-inspects deferred users once their inspect_at has
// elapsed, every deferred_check_interval.
func (c *Crawler) runDeferredDrain(ctx context.Context) {
	for {
		if utils.ContextGuardWithLog(ctx, c.logger, "context cancelled, stopping deferred drain loop") {
			return
		}

		if c.client.IsForbidden() {
			if !utils.ErrorSleep(ctx, c.cfg.APIBlockedDelay(), c.logger, "deferred drain loop") {
				return
			}

			continue
		}

		if err := c.drainDeferred(ctx); err != nil {
			c.logger.Error("deferred drain tick failed", zap.Error(err))
		}

		if !utils.IntervalSleep(ctx, c.cfg.DeferredCheckInterval(), c.logger, "deferred drain loop") {
			return
		}
	}
}

func (c *Crawler) drainDeferred(ctx context.Context) error {
	rows, err := c.store.ListDeferred(ctx, c.cfg.DeferMaxCount, deferredBatchSize)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return nil
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}

	users, err := c.api.GetUsersBatch(ctx, ids)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		// The batch came back empty even though ids were requested: push
		// every row's deferral forward rather than spinning on the same
		// unreachable accounts every tick.
		for _, r := range rows {
			inspections := r.Inspections + 1
			delay := c.cfg.DeferDelay() * time.Duration(inspections)

			if err := c.store.Defer(ctx, r.UserID, time.Now().Add(delay), inspections); err != nil {
				c.logger.Warn("failed to advance deferral",
					zap.Int64("user_id", r.UserID), zap.Error(err))
			}
		}

		return nil
	}

	for _, u := range users {
		if _, _, err := c.UpdateUserFromData(ctx, u, true, true); err != nil && !errors.Is(err, platform.InvalidUser) {
			c.logger.Warn("failed to inspect deferred user",
				zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}

	return nil
}
