package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hadsh/spamhunter/internal/imagehash"
	"github.com/hadsh/spamhunter/internal/platform"
	"github.com/hadsh/spamhunter/internal/store"
	"github.com/hadsh/spamhunter/internal/store/models"
	"github.com/hadsh/spamhunter/internal/tokenizer"
)

// checkPatterns fire on the four free-text profile fields only (about_me,
// who_am_i, location, what_i_would_like_to_do); the first match of each
// pattern against each field increments a per-user token counter keyed on
// the matched substring and flags the user as suspicious. Links, projects
// and pages are tokenized for the corpus but never pattern-matched, since
// legitimate project descriptions and page bodies routinely contain anchor
// tags that would otherwise trip the anchor-tag pattern.
var checkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<a .*href=".*">.*</a>`),
	regexp.MustCompile(`\([0-9]+\)[ 0-9\-]+`),
	regexp.MustCompile(`\+[0-9]+[ 0-9\-]+`),
	regexp.MustCompile(`\+[0-9]+ *\([0-9]+\)[ 0-9\-]+`),
}

// uriWhitelist lists the link destinations a legitimate profile commonly
// carries; any link matching none of these is treated as suspicious.
var uriWhitelist = []*regexp.Regexp{
	regexp.MustCompile(`^https?://plus\.google\.com/`),
	regexp.MustCompile(`^https?://github\.com/[^/]+$`),
	regexp.MustCompile(`^https?://twitter\.com/[^/]+$`),
	regexp.MustCompile(`^https?://www\.youtube\.com/channel/`),
	regexp.MustCompile(`^https?://hackaday\.com`),
	regexp.MustCompile(`^https?://hackaday\.io`),
}

// avatarAlgorithms lists every fingerprint computed for a user's avatar,
// so the image-hash traits have something to read by the time Assess runs.
var avatarAlgorithms = []imagehash.Algorithm{
	imagehash.SHA512,
	imagehash.AverageHash,
	imagehash.DHash,
	imagehash.PHash,
	imagehash.WHash,
}

const (
	inspectIdempotenceWindow = 5 * time.Minute
	scoreBestOf              = 10
	deferScoreThreshold      = 0.5
	autoSuspectThreshold     = -0.5
	perPage                  = 50
	projectBurstMinAge       = 300 * time.Second
	projectBurstRatio        = 5.0
)

// adjKey identifies a corpus-wide word-adjacency pair by the ids of its
// two words, once they have been resolved via UpsertWord.
type adjKey struct {
	predecessor int64
	successor   int64
}

// UpdateUserFromData reconciles a freshly-fetched platform record with the
// store: it upserts the Avatar and User rows, then inspects the user if
// this is its first sighting, inspectAll was requested, or it has never
// been inspected before. Returns the persisted User and whether it was
// newly created.
func (c *Crawler) UpdateUserFromData(
	ctx context.Context, data platform.User, inspectAll, allowDefer bool,
) (*models.User, bool, error) {
	avatarID, err := c.store.UpsertAvatar(ctx, data.ImageURL)
	if err != nil {
		return nil, false, fmt.Errorf("update user %d: upsert avatar: %w", data.ID, err)
	}

	existing, err := c.store.GetUser(ctx, data.ID)

	isNew := errors.Is(err, store.ErrNotFound)
	if err != nil && !isNew {
		return nil, false, fmt.Errorf("update user %d: get existing: %w", data.ID, err)
	}

	wasInspected := !isNew && existing.LastInspected != nil

	fields := store.UserFields{
		ID:            data.ID,
		ScreenName:    data.ScreenName,
		ProfileURL:    data.URL,
		AvatarID:      &avatarID,
		RemoteCreated: time.Unix(data.Created, 0).UTC(),
	}

	if err := c.store.UpsertUser(ctx, fields); err != nil {
		return nil, false, fmt.Errorf("update user %d: upsert: %w", data.ID, err)
	}

	if inspectAll || isNew || !wasInspected {
		if err := c.InspectUser(ctx, data, allowDefer); err != nil {
			return nil, isNew, err
		}
	}

	user, err := c.store.GetUser(ctx, data.ID)
	if err != nil {
		return nil, isNew, fmt.Errorf("update user %d: reload: %w", data.ID, err)
	}

	if isNew {
		c.signalNewUser()
	}

	return user, isNew, nil
}

// InspectUser runs the full inspection pipeline for one user (spec
// §4.8.2). It is idempotent within a 5-minute window. For users already
// moved to a manual legit/suspect group it skips scanning, scoring,
// deferral and group assignment, and only stamps last_inspected_at.
func (c *Crawler) InspectUser(ctx context.Context, data platform.User, allowDefer bool) error {
	if c.isDeleted(data.ID) {
		return nil
	}

	if err := c.client.CheckProfile(ctx, data.URL); err != nil {
		if errors.Is(err, platform.InvalidUser) {
			if delErr := c.deleteUser(ctx, data.ID); delErr != nil {
				return fmt.Errorf("inspect user %d: delete invalid user: %w", data.ID, delErr)
			}

			c.metrics.InspectionsTotal.WithLabelValues("invalid").Inc()

			return platform.InvalidUser
		}

		return fmt.Errorf("inspect user %d: check profile: %w", data.ID, err)
	}

	user, err := c.store.GetUser(ctx, data.ID)
	if err != nil {
		return fmt.Errorf("inspect user %d: get: %w", data.ID, err)
	}

	if user.LastInspected != nil && time.Since(*user.LastInspected) < inspectIdempotenceWindow {
		return nil
	}

	groups, err := c.store.InGroups(ctx, data.ID, models.GroupLegit, models.GroupSuspect)
	if err != nil {
		return fmt.Errorf("inspect user %d: check groups: %w", data.ID, err)
	}

	classified := groups[models.GroupLegit] || groups[models.GroupSuspect]

	outcome := "classified"

	if !classified {
		if err := c.inspectUnclassified(ctx, data, user, allowDefer); err != nil {
			return fmt.Errorf("inspect user %d: %w", data.ID, err)
		}

		outcome = "inspected"
	}

	if err := c.store.SetLastInspected(ctx, data.ID, time.Now()); err != nil {
		return fmt.Errorf("inspect user %d: stamp last inspected: %w", data.ID, err)
	}

	c.metrics.InspectionsTotal.WithLabelValues(outcome).Inc()

	return nil
}

func (c *Crawler) deleteUser(ctx context.Context, userID int64) error {
	if err := c.store.DeleteUser(ctx, userID); err != nil {
		return err
	}

	if err := c.store.RemoveNew(ctx, userID); err != nil {
		return err
	}

	c.markDeleted(userID)
	c.metrics.UsersDeleted.Inc()

	return nil
}

// inspectUnclassified runs steps 4-10 of the pipeline: token-pattern
// scanning, link/project/page tokenization, corpus persistence, scoring,
// deferral and group assignment.
func (c *Crawler) inspectUnclassified(
	ctx context.Context, data platform.User, user *models.User, allowDefer bool,
) error {
	userTokens := make(map[string]int64)
	wordFreq := make(map[string]int64)
	hostFreq := make(map[string]int64)
	adjFreq := make(map[tokenizer.Pair]int64)

	match := false

	scanField := func(field string) {
		for _, pattern := range checkPatterns {
			loc := pattern.FindString(field)
			if loc == "" {
				continue
			}

			userTokens[loc]++
			match = true
		}
	}

	tallyText := func(text string) {
		words := c.tokenizer.Tokenize(text)
		tokenizer.Frequency(words, wordFreq)

		if len(words) > 2 {
			tokenizer.Adjacency(words, adjFreq)
		}
	}

	scanField(data.AboutMe)
	scanField(data.WhoAmI)
	scanField(data.Location)
	scanField(data.WhatIWouldLikeToDo)

	tallyText(data.AboutMe)
	tallyText(data.WhoAmI)
	tallyText(data.Location)
	tallyText(data.WhatIWouldLikeToDo)

	if err := c.scanLinks(ctx, data.ID, tallyText, hostFreq, &match); err != nil {
		return fmt.Errorf("scan links: %w", err)
	}

	if err := c.scanProjects(ctx, data.ID, tallyText); err != nil {
		return fmt.Errorf("scan projects: %w", err)
	}

	if err := c.scanPages(ctx, data.ID, tallyText); err != nil {
		return fmt.Errorf("scan pages: %w", err)
	}

	for token, count := range userTokens {
		if err := c.store.IncrementUserToken(ctx, data.ID, token, count); err != nil {
			return fmt.Errorf("persist token: %w", err)
		}
	}

	now := time.Now()
	age := now.Sub(user.RemoteCreated)

	if age > projectBurstMinAge && float64(data.Projects) > projectBurstRatio*(age.Minutes()) {
		match = true
	}

	scores, err := c.persistCorpusAndScore(ctx, data.ID, wordFreq, hostFreq, adjFreq)
	if err != nil {
		return fmt.Errorf("persist corpus: %w", err)
	}

	if user.AvatarID != nil {
		for _, alg := range avatarAlgorithms {
			if _, err := c.GetAvatarHash(ctx, *user.AvatarID, alg); err != nil {
				c.logger.Warn("avatar hash computation failed",
					zap.Int64("user_id", data.ID), zap.String("algorithm", string(alg)), zap.Error(err))
			}
		}
	}

	observations, err := c.traits.Assess(ctx, c.store, user)
	if err != nil {
		return fmt.Errorf("assess traits: %w", err)
	}

	for _, o := range observations {
		scores = append(scores, o.WeightedScore())
	}

	sort.Float64s(scores)

	n := scoreBestOf
	if len(scores) < n {
		n = len(scores)
	}

	var score float64
	for _, s := range scores[:n] {
		score += s
	}

	weak := score < deferScoreThreshold
	shouldDefer := allowDefer && (weak || age < c.cfg.DeferMinAge()) && age < c.cfg.DeferMaxAge()

	if shouldDefer {
		if err := c.scheduleDefer(ctx, data.ID); err != nil {
			return fmt.Errorf("schedule deferral: %w", err)
		}
	} else if err := c.store.Undefer(ctx, data.ID); err != nil {
		return fmt.Errorf("clear deferral: %w", err)
	}

	if score < autoSuspectThreshold {
		match = true
	}

	if err := c.store.UpsertUserDetail(ctx, data.ID, store.UserDetailFields{
		AboutMe:      data.AboutMe,
		WhoAmI:       data.WhoAmI,
		WantToDo:     data.WhatIWouldLikeToDo,
		Location:     data.Location,
		ProjectCount: data.Projects,
	}); err != nil {
		return fmt.Errorf("upsert user detail: %w", err)
	}

	if match {
		if err := c.store.AssignExclusive(ctx, data.ID, models.GroupAutoSuspect, models.GroupAutoLegit); err != nil {
			return fmt.Errorf("assign auto_suspect: %w", err)
		}
	} else if err := c.store.AssignExclusive(ctx, data.ID, models.GroupAutoLegit, models.GroupAutoSuspect); err != nil {
		return fmt.Errorf("assign auto_legit: %w", err)
	}

	return nil
}

func (c *Crawler) scheduleDefer(ctx context.Context, userID int64) error {
	inspections := 1

	existing, err := c.store.GetDeferred(ctx, userID)
	if err == nil {
		inspections = existing.Inspections + 1
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	delay := c.cfg.DeferDelay() * time.Duration(inspections)
	if err := c.store.Defer(ctx, userID, time.Now().Add(delay), inspections); err != nil {
		return err
	}

	c.metrics.DeferralsTotal.Inc()

	return nil
}

// scanLinks paginates a user's links, tokenizing each title, deriving and
// tallying the registrable hostname candidates, persisting the link row
// and flipping match if the URL is outside the whitelist.
func (c *Crawler) scanLinks(
	ctx context.Context, userID int64,
	tallyText func(string),
	hostFreq map[string]int64, match *bool,
) error {
	for page := 1; ; page++ {
		linkPage, err := c.api.GetUserLinks(ctx, userID, page, perPage)
		if err != nil {
			return err
		}

		for _, link := range linkPage.Links {
			if link.Title == "" || link.URL == "" {
				continue
			}

			tallyText(link.Title)

			if err := c.store.UpsertUserLink(ctx, userID, link.URL, link.Title); err != nil {
				return err
			}

			parsed, err := url.Parse(link.URL)
			if err == nil && parsed.Hostname() != "" {
				for _, candidate := range c.suffix.Split(ctx, parsed.Hostname()) {
					hostFreq[candidate]++
				}
			}

			whitelisted := false

			for _, re := range uriWhitelist {
				if re.MatchString(link.URL) {
					whitelisted = true
					break
				}
			}

			if !whitelisted {
				*match = true
			}
		}

		if linkPage.LastPage == 0 || linkPage.Page >= linkPage.LastPage {
			return nil
		}
	}
}

func (c *Crawler) scanProjects(
	ctx context.Context, userID int64, tallyText func(string),
) error {
	for page := 1; ; page++ {
		projectPage, err := c.api.GetUserProjects(ctx, userID, page, perPage)
		if err != nil {
			return err
		}

		for _, project := range projectPage.Projects {
			tallyText(project.Name)
			tallyText(project.Summary)
			tallyText(project.Description)
		}

		if projectPage.LastPage == 0 || projectPage.Page >= projectPage.LastPage {
			return nil
		}
	}
}

func (c *Crawler) scanPages(
	ctx context.Context, userID int64, tallyText func(string),
) error {
	for page := 1; ; page++ {
		pagePage, err := c.api.GetUserPages(ctx, userID, page, perPage)
		if err != nil {
			return err
		}

		for _, pg := range pagePage.Pages {
			tallyText(pg.Title)
			tallyText(pg.Body)
		}

		if pagePage.LastPage == 0 || pagePage.Page >= pagePage.LastPage {
			return nil
		}
	}
}

// persistCorpusAndScore resolves every observed word/hostname/adjacency to
// its corpus-wide row, writes this user's per-feature counters and returns
// the per-feature score ratios (global score / global count) that feed the
// best-of-10 sum.
func (c *Crawler) persistCorpusAndScore(
	ctx context.Context, userID int64,
	wordFreq, hostFreq map[string]int64, adjFreq map[tokenizer.Pair]int64,
) ([]float64, error) {
	wordIDs := make(map[string]int64, len(wordFreq))

	for w := range wordFreq {
		id, err := c.store.UpsertWord(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("upsert word %q: %w", w, err)
		}

		wordIDs[w] = id
	}

	hostIDs := make(map[string]int64, len(hostFreq))

	for h := range hostFreq {
		id, err := c.store.UpsertHostname(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("upsert hostname %q: %w", h, err)
		}

		hostIDs[h] = id
	}

	adjIDFreq := make(map[adjKey]int64, len(adjFreq))

	for pair, count := range adjFreq {
		predID, ok := wordIDs[pair.Predecessor]
		if !ok {
			continue
		}

		succID, ok := wordIDs[pair.Successor]
		if !ok {
			continue
		}

		if _, err := c.store.UpsertWordAdjacent(ctx, predID, succID); err != nil {
			return nil, fmt.Errorf("upsert word adjacency: %w", err)
		}

		adjIDFreq[adjKey{predecessor: predID, successor: succID}] += count
	}

	for w, count := range wordFreq {
		if err := c.store.SetUserWordCount(ctx, userID, wordIDs[w], count); err != nil {
			return nil, fmt.Errorf("set user word count: %w", err)
		}
	}

	for h, count := range hostFreq {
		if err := c.store.SetUserHostnameCount(ctx, userID, hostIDs[h], count); err != nil {
			return nil, fmt.Errorf("set user hostname count: %w", err)
		}
	}

	for k, count := range adjIDFreq {
		if err := c.store.SetUserWordAdjacentCount(ctx, userID, k.predecessor, k.successor, count); err != nil {
			return nil, fmt.Errorf("set user word adjacency count: %w", err)
		}
	}

	scores := make([]float64, 0, len(wordIDs)+len(hostIDs)+len(adjIDFreq))

	for _, id := range wordIDs {
		row, err := c.store.GetWord(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get word %d: %w", id, err)
		}

		if row.Count > 0 {
			scores = append(scores, float64(row.Score)/float64(row.Count))
		}
	}

	for _, id := range hostIDs {
		row, err := c.store.GetHostname(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get hostname %d: %w", id, err)
		}

		if row.Count > 0 {
			scores = append(scores, float64(row.Score)/float64(row.Count))
		}
	}

	for k := range adjIDFreq {
		row, err := c.store.GetWordAdjacent(ctx, k.predecessor, k.successor)
		if err != nil {
			return nil, fmt.Errorf("get word adjacency: %w", err)
		}

		if row.Count > 0 {
			scores = append(scores, float64(row.Score)/float64(row.Count))
		}
	}

	return scores, nil
}
