package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
)

// newestAnchorRe matches the fixed anchor the HTML listing page emits per
// user row: `<a href="/hacker/<id>" class="hacker-image">`.
var newestAnchorRe = regexp.MustCompile(`<a href="/hacker/(\d+)" class="hacker-image">`)

// GetUsersNewestScrape implements the documented workaround for
// `users?sort=newest`: the JSON endpoint does not support that sort, so the
// HTML listing page is scraped for up to perPage user ids, which are then
// resolved through the normal batch-fetch endpoint.
func (a *API) GetUsersNewestScrape(ctx context.Context, page, perPage int) ([]User, error) {
	if perPage <= 0 {
		perPage = 50
	}

	uri := fmt.Sprintf("%s?sort=newest&page=%d", a.cfg.NewestScrapeURI, page)

	headers := http.Header{}
	headers.Set("Accept", "text/html")

	resp, err := a.client.Fetch(ctx, http.MethodGet, uri, headers, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, uri); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("platform: read newest scrape body: %w", err)
	}

	ids := extractNewestIDs(body, perPage)
	if len(ids) == 0 {
		return nil, nil
	}

	return a.GetUsersBatch(ctx, ids)
}

func extractNewestIDs(body []byte, limit int) []int64 {
	matches := newestAnchorRe.FindAllSubmatch(body, -1)

	ids := make([]int64, 0, len(matches))

	for _, m := range matches {
		id, err := strconv.ParseInt(string(m[1]), 10, 64)
		if err != nil {
			continue
		}

		ids = append(ids, id)

		if len(ids) >= limit {
			break
		}
	}

	return ids
}
