package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// APIConfig names the endpoints and credentials the API wrapper injects
// into every request.
type APIConfig struct {
	BaseURI         string `koanf:"base_uri"`
	AuthURI         string `koanf:"auth_uri"`
	TokenURI        string `koanf:"token_uri"`
	NewestScrapeURI string `koanf:"newest_scrape_uri"`
	ClientID        string `koanf:"client_id"`
	ClientSecret    string `koanf:"client_secret"`
	APIKey          string `koanf:"api_key"`
}

// DefaultAPIConfig returns the community site's well-known endpoints.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		BaseURI:         "https://api.hackaday.io/v1",
		AuthURI:         "https://hackaday.io/authorize",
		TokenURI:        "https://auth.hackaday.io/access_token",
		NewestScrapeURI: "https://hackaday.io/hackers",
	}
}

// API is a thin typed wrapper over the remote platform's REST endpoints,
// built on top of a RateLimitedClient.
type API struct {
	cfg    APIConfig
	client *RateLimitedClient
	logger *zap.Logger
}

// NewAPI constructs an API wrapper around an already-configured
// RateLimitedClient.
func NewAPI(cfg APIConfig, client *RateLimitedClient, logger *zap.Logger) *API {
	return &API{cfg: cfg, client: client, logger: logger.Named("platform.api")}
}

func (a *API) buildURL(path string, query url.Values, injectAPIKey bool) string {
	if injectAPIKey && a.cfg.APIKey != "" {
		query = cloneValues(query)
		if query.Get("api_key") == "" {
			query.Set("api_key", a.cfg.APIKey)
		}
	}

	base := path
	if !strings.HasPrefix(base, "http") {
		base = a.cfg.BaseURI + path
	}

	if len(query) == 0 {
		return base
	}

	return base + "?" + query.Encode()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}

	return out
}

func pageQuery(page, perPage int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}

	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}

	return q
}

func (a *API) get(ctx context.Context, path string, query url.Values, token string, out any) error {
	headers := http.Header{}
	headers.Set("Accept", "application/json")

	if token != "" {
		headers.Set("Authorization", "token "+token)
	}

	resp, err := a.client.Fetch(ctx, http.MethodGet, a.buildURL(path, query, token == ""), headers, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, a.buildURL(path, query, token == "")); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("platform: read response body: %w", err)
	}

	if out == nil {
		return nil
	}

	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("platform: decode response: %w", err)
	}

	return nil
}

func checkStatus(resp *http.Response, reqURL string) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusNotFound, http.StatusGone:
		return fmt.Errorf("%w: status %d for %s", InvalidUser, resp.StatusCode, reqURL)
	case http.StatusForbidden:
		return fmt.Errorf("%w: status 403 for %s", Forbidden, reqURL)
	default:
		return &HTTPError{Status: resp.StatusCode, URL: reqURL}
	}
}

// Me fetches the current OAuth-authenticated user's profile.
func (a *API) Me(ctx context.Context, token string) (*User, error) {
	var user User
	if err := a.get(ctx, "/me", nil, token, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUsers lists users sorted by sortby, paginated. The `newest` sort is
// broken on the JSON endpoint for this platform; callers that need newest
// ordering should use GetUsersNewestScrape instead (spec §4.2's documented
// workaround).
func (a *API) GetUsers(ctx context.Context, sortby UserSortBy, page, perPage int) ([]User, error) {
	q := pageQuery(page, perPage)
	q.Set("sortby", string(sortby))

	var users []User
	if err := a.get(ctx, "/users", q, "", &users); err != nil {
		return nil, err
	}

	return users, nil
}

// GetUsersBatch fetches up to MaxBatchIDs users by id in one call.
func (a *API) GetUsersBatch(ctx context.Context, ids []int64) ([]User, error) {
	if len(ids) > MaxBatchIDs {
		return nil, fmt.Errorf("%w: %d ids requested, max %d", ErrTooManyIDs, len(ids), MaxBatchIDs)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("ids", joinIDs(ids))

	var users []User
	if err := a.get(ctx, "/users/batch", q, "", &users); err != nil {
		return nil, err
	}

	return users, nil
}

// GetUsersRange fetches every user whose id falls within [start, stop).
func (a *API) GetUsersRange(ctx context.Context, start, stop int64) ([]User, error) {
	q := url.Values{}
	q.Set("ids", fmt.Sprintf("%d,%d", start, stop))

	var users []User
	if err := a.get(ctx, "/users/range", q, "", &users); err != nil {
		return nil, err
	}

	return users, nil
}

// GetUserLinks fetches one page of a user's link list.
func (a *API) GetUserLinks(ctx context.Context, userID int64, page, perPage int) (*LinkPage, error) {
	q := pageQuery(page, perPage)

	var out LinkPage
	if err := a.get(ctx, fmt.Sprintf("/users/%d/links", userID), q, "", &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// GetUserProjects fetches one page of a user's project list.
func (a *API) GetUserProjects(ctx context.Context, userID int64, page, perPage int) (*ProjectPage, error) {
	q := pageQuery(page, perPage)
	q.Set("sortby", "skulls")

	var out ProjectPage
	if err := a.get(ctx, fmt.Sprintf("/users/%d/projects", userID), q, "", &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// GetUserPages fetches one page of a user's page list.
func (a *API) GetUserPages(ctx context.Context, userID int64, page, perPage int) (*PagePage, error) {
	q := pageQuery(page, perPage)

	var out PagePage
	if err := a.get(ctx, fmt.Sprintf("/users/%d/pages", userID), q, "", &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// GetProjectTeam fetches one page of a project's team listing, used by the
// admin refresh loop.
func (a *API) GetProjectTeam(ctx context.Context, projectID int64, page, perPage int) (*TeamPage, error) {
	q := pageQuery(page, perPage)
	q.Set("sortby", string(UserSortInfluence))

	var out TeamPage
	if err := a.get(ctx, fmt.Sprintf("/projects/%d/team", projectID), q, "", &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ExchangeToken trades an OAuth authorization code for an access token.
func (a *API) ExchangeToken(ctx context.Context, code string) (*TokenResponse, error) {
	uri := fmt.Sprintf(
		"%s?client_id=%s&client_secret=%s&code=%s&grant_type=authorization_code",
		a.cfg.TokenURI,
		url.QueryEscape(a.cfg.ClientID),
		url.QueryEscape(a.cfg.ClientSecret),
		url.QueryEscape(code),
	)

	headers := http.Header{}
	headers.Set("Accept", "application/json")

	resp, err := a.client.Fetch(ctx, http.MethodPost, uri, headers, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, uri); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("platform: read token response: %w", err)
	}

	var out TokenResponse
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("platform: decode token response: %w", err)
	}

	return &out, nil
}

// AuthURI returns the URI a front-end should redirect an unauthenticated
// user to.
func (a *API) AuthURI() string {
	return fmt.Sprintf("%s?client_id=%s&response_type=code", a.cfg.AuthURI, url.QueryEscape(a.cfg.ClientID))
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}

	return strings.Join(parts, ",")
}
