package crawler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hadsh/spamhunter/internal/platform"
	"github.com/hadsh/spamhunter/internal/store/models"
	"github.com/hadsh/spamhunter/pkg/utils"
)

// adminTeamPerPage is the page size used against the project-team listing.
const adminTeamPerPage = 50

// runAdminRefresh recomputes the admin group's membership every
// admin_user_fetch_interval (spec §4.8.5), pausing on the same forbidden
// backoff the other loops observe.
func (c *Crawler) runAdminRefresh(ctx context.Context) {
	for {
		if utils.ContextGuardWithLog(ctx, c.logger, "context cancelled, stopping admin refresh loop") {
			return
		}

		if c.client.IsForbidden() {
			if !utils.ErrorSleep(ctx, c.cfg.APIBlockedDelay(), c.logger, "admin refresh loop") {
				return
			}

			continue
		}

		if err := c.refreshAdminGroup(ctx); err != nil {
			c.logger.Error("admin refresh tick failed", zap.Error(err))
		}

		if !utils.IntervalSleep(ctx, c.cfg.AdminUserFetchInterval(), c.logger, "admin refresh loop") {
			return
		}
	}
}

// refreshAdminGroup pages through the configured project's team listing,
// unions it with the explicit admin id list, and replaces the admin
// group's membership with exactly that set (spec §4.8.5).
func (c *Crawler) refreshAdminGroup(ctx context.Context) error {
	members := make(map[int64]struct{}, len(c.cfg.AdminExplicitIDs))
	for _, id := range c.cfg.AdminExplicitIDs {
		members[id] = struct{}{}
	}

	if c.cfg.AdminProjectID != 0 {
		for page := 1; ; page++ {
			team, err := c.api.GetProjectTeam(ctx, c.cfg.AdminProjectID, page, adminTeamPerPage)
			if err != nil {
				return err
			}

			for _, m := range team.Team {
				members[m.ID] = struct{}{}
			}

			if team.LastPage == 0 || team.Page >= team.LastPage {
				break
			}
		}
	}

	if err := c.ensureAdminUsersExist(ctx); err != nil {
		return fmt.Errorf("ensure admin users exist: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}

	return c.store.SetGroupMembers(ctx, models.GroupAdmin, ids)
}

// ensureAdminUsersExist batch-fetches and upserts the explicitly configured
// admin ids (spec §4.8.5: "also batch-fetch explicit admin IDs passed in
// configuration") so that none of them are missing a users row when
// SetGroupMembers inserts their user_groups membership.
func (c *Crawler) ensureAdminUsersExist(ctx context.Context) error {
	ids := c.cfg.AdminExplicitIDs

	for start := 0; start < len(ids); start += platform.MaxBatchIDs {
		end := min(start+platform.MaxBatchIDs, len(ids))

		users, err := c.api.GetUsersBatch(ctx, ids[start:end])
		if err != nil {
			return fmt.Errorf("batch-fetch admin ids: %w", err)
		}

		for _, u := range users {
			if _, _, err := c.UpdateUserFromData(ctx, u, false, false); err != nil {
				return fmt.Errorf("upsert admin user %d: %w", u.ID, err)
			}
		}
	}

	return nil
}
