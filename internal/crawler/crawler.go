// Package crawler drives the discovery, inspection, deferral and verdict
// loops that turn raw platform accounts into scored, grouped users: the
// background scheduler on top of internal/store, internal/platform and
// internal/traits.
package crawler

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hadsh/spamhunter/internal/imagehash"
	"github.com/hadsh/spamhunter/internal/metrics"
	"github.com/hadsh/spamhunter/internal/platform"
	"github.com/hadsh/spamhunter/internal/setup/config"
	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/suffix"
	"github.com/hadsh/spamhunter/internal/tokenizer"
	"github.com/hadsh/spamhunter/internal/traits"
	"github.com/hadsh/spamhunter/pkg/utils"
)

// Dependencies bundles everything a Crawler needs. cmd/worker fills it from
// the setup.App bundle built by setup.InitializeApp and passes it to New once.
type Dependencies struct {
	Store     *store.Store
	API       *platform.API
	Client    *platform.RateLimitedClient
	Suffix    *suffix.Cache
	Tokenizer *tokenizer.Tokenizer
	Hasher    *imagehash.Hasher
	Traits    *traits.Registry
	Metrics   *metrics.Metrics
	Config    config.Crawler
	Logger    *zap.Logger
}

// Crawler is the stateful scheduler for every background loop (spec
// §4.8): discovery, new-user drain, deferred-user drain and admin-group
// refresh, plus the inspection pipeline and verdict applier they all
// share.
type Crawler struct {
	store     *store.Store
	api       *platform.API
	client    *platform.RateLimitedClient
	suffix    *suffix.Cache
	tokenizer *tokenizer.Tokenizer
	hasher    *imagehash.Hasher
	traits    *traits.Registry
	metrics   *metrics.Metrics
	cfg       config.Crawler
	logger    *zap.Logger

	histPageMu sync.Mutex
	histPage   int

	deletedMu  sync.Mutex
	deletedIDs map[int64]struct{}

	eventMu   sync.Mutex
	newUserCh chan struct{}
}

// New builds a Crawler, seeding its historical-page cursor from the
// persisted high-water mark (or 1, if the store has never recorded one).
func New(ctx context.Context, deps Dependencies) (*Crawler, error) {
	histPage, err := deps.Store.MaxPageRefresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("crawler: resolve historical page cursor: %w", err)
	}

	if histPage < 1 {
		histPage = 1
	}

	return &Crawler{
		store:      deps.Store,
		api:        deps.API,
		client:     deps.Client,
		suffix:     deps.Suffix,
		tokenizer:  deps.Tokenizer,
		hasher:     deps.Hasher,
		traits:     deps.Traits,
		metrics:    deps.Metrics,
		cfg:        deps.Config,
		logger:     deps.Logger.Named("crawler"),
		histPage:   histPage,
		deletedIDs: make(map[int64]struct{}),
		newUserCh:  make(chan struct{}),
	}, nil
}

// Start launches every background loop and blocks until ctx is cancelled.
func (c *Crawler) Start(ctx context.Context) {
	if utils.ContextSleepWithLog(ctx, c.cfg.InitDelay(), c.logger,
		"context cancelled before crawler start") == utils.SleepCancelled {
		return
	}

	loops := []func(context.Context){
		c.runAdminRefresh,
		c.runNewestDiscovery,
		c.runHistoricalDiscovery,
		c.runNewUserDrain,
		c.runDeferredDrain,
	}

	var wg sync.WaitGroup

	for _, loop := range loops {
		wg.Add(1)

		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(loop)
	}

	wg.Wait()
}

// NewUserEvent returns a channel that closes the next time a previously
// unknown user is upserted. Callers that want to react to discovery should
// re-fetch the channel after each close (the old one is never reused).
func (c *Crawler) NewUserEvent() <-chan struct{} {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	return c.newUserCh
}

func (c *Crawler) signalNewUser() {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	close(c.newUserCh)
	c.newUserCh = make(chan struct{})
}

func (c *Crawler) isDeleted(userID int64) bool {
	c.deletedMu.Lock()
	defer c.deletedMu.Unlock()

	_, ok := c.deletedIDs[userID]

	return ok
}

func (c *Crawler) markDeleted(userID int64) {
	c.deletedMu.Lock()
	defer c.deletedMu.Unlock()

	c.deletedIDs[userID] = struct{}{}
}

func (c *Crawler) histPageGet() int {
	c.histPageMu.Lock()
	defer c.histPageMu.Unlock()

	return c.histPage
}

func (c *Crawler) histPageSet(page int) {
	c.histPageMu.Lock()
	defer c.histPageMu.Unlock()

	c.histPage = page
}
