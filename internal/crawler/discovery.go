package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hadsh/spamhunter/internal/platform"
	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/pkg/utils"
)

// discoveryPerPage is the page size used against the newest-sort scrape
// endpoint.
const discoveryPerPage = 50

// discoveryMinNewIDs and discoveryMaxPages bound a single discovery tick
// (spec §4.8.1): stop once either is reached.
const (
	discoveryMinNewIDs = 10
	discoveryMaxPages  = 10
)

// discoveryPageSkipWindow is how recently a page must have been scanned
// for a tick to skip it rather than re-fetch it.
const discoveryPageSkipWindow = 30 * 24 * time.Hour

// fetchNewUserIDs scans consecutive newest-sort pages starting at
// startPage, recording each page's refresh timestamp and enqueuing unseen
// ids into NewUser, until at least discoveryMinNewIDs have been queued or
// discoveryMaxPages have been scanned (whichever comes first). If maxPage
// is positive, scanning never advances past it. Returns the next page to
// resume a later tick from.
func (c *Crawler) fetchNewUserIDs(ctx context.Context, startPage, maxPage int) (int, error) {
	page := startPage
	queued := 0
	scanned := 0

	for queued < discoveryMinNewIDs && scanned < discoveryMaxPages {
		if maxPage > 0 && page > maxPage {
			return page, nil
		}

		refresh, err := c.store.GetPageRefresh(ctx, page)
		if err == nil && time.Since(refresh.RefreshedAt) < discoveryPageSkipWindow {
			page++
			continue
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			return page, fmt.Errorf("discovery: get page refresh %d: %w", page, err)
		}

		users, err := c.api.GetUsersNewestScrape(ctx, page, discoveryPerPage)
		if err != nil {
			return page, fmt.Errorf("discovery: scrape page %d: %w", page, err)
		}

		if len(users) == 0 {
			return page, platform.NoUsersReturned
		}

		if err := c.store.UpsertPageRefresh(ctx, page, time.Now()); err != nil {
			return page, fmt.Errorf("discovery: record page refresh %d: %w", page, err)
		}

		ids := make([]int64, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}

		unknown, err := c.store.FilterUnknownIDs(ctx, ids)
		if err != nil {
			return page, fmt.Errorf("discovery: filter unknown ids: %w", err)
		}

		if len(unknown) > 0 {
			if err := c.store.EnqueueNewBulk(ctx, unknown); err != nil {
				return page, fmt.Errorf("discovery: enqueue new ids: %w", err)
			}
		}

		queued += len(unknown)
		scanned++
		page++
	}

	return page, nil
}

// runNewestDiscovery re-scans page 1 upward on every tick, bounded above
// by the historical loop's current cursor (spec §4.8.1: "the newest loop
// walks forward from page 1 up to max(hist_page, 2) - 1"), so the two
// loops never race over the same unscanned tail of pages.
func (c *Crawler) runNewestDiscovery(ctx context.Context) {
	for {
		if utils.ContextGuardWithLog(ctx, c.logger, "context cancelled, stopping newest discovery loop") {
			return
		}

		if c.client.IsForbidden() {
			if !utils.ErrorSleep(ctx, c.cfg.APIBlockedDelay(), c.logger, "newest discovery loop") {
				return
			}

			continue
		}

		upper := c.histPageGet()
		if upper < 2 {
			upper = 2
		}

		upper--

		if _, err := c.fetchNewUserIDs(ctx, 1, upper); err != nil && !errors.Is(err, platform.NoUsersReturned) {
			c.logger.Error("newest discovery tick failed", zap.Error(err))
		}

		if !utils.IntervalSleep(ctx, c.cfg.NewUserFetchInterval(), c.logger, "newest discovery loop") {
			return
		}
	}
}

// runHistoricalDiscovery walks the full page range starting from the
// persisted hist_page cursor, advancing it every tick; it backs off to a
// much longer interval once a scan comes back empty (the archive has been
// fully walked at least once).
func (c *Crawler) runHistoricalDiscovery(ctx context.Context) {
	for {
		if utils.ContextGuardWithLog(ctx, c.logger, "context cancelled, stopping historical discovery loop") {
			return
		}

		if c.client.IsForbidden() {
			if !utils.ErrorSleep(ctx, c.cfg.APIBlockedDelay(), c.logger, "historical discovery loop") {
				return
			}

			continue
		}

		startPage := c.histPageGet()

		nextPage, err := c.fetchNewUserIDs(ctx, startPage, 0)

		lastPage := false

		switch {
		case errors.Is(err, platform.NoUsersReturned):
			lastPage = true
		case err != nil:
			c.logger.Error("historical discovery tick failed", zap.Error(err))
		}

		c.histPageSet(nextPage)

		interval := c.cfg.OldUserFetchInterval()
		if lastPage {
			interval = c.cfg.OldUserFetchIntervalLastPage()
		}

		if !utils.IntervalSleep(ctx, interval, c.logger, "historical discovery loop") {
			return
		}
	}
}
