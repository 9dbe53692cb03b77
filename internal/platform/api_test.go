package platform_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hadsh/spamhunter/internal/platform"
)

func newTestAPI(t *testing.T, handler http.Handler) (*platform.API, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)

	cfg := platform.DefaultClientConfig()
	cfg.MinInterval = 0
	client := platform.NewRateLimitedClient(cfg, zaptest.NewLogger(t), nil)

	apiCfg := platform.APIConfig{BaseURI: server.URL, APIKey: "testkey"}

	return platform.NewAPI(apiCfg, client, zaptest.NewLogger(t)), server
}

func TestAPI_GetUsersBatch_TooManyIDs(t *testing.T) {
	t.Parallel()

	api, server := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ids := make([]int64, 51)
	for i := range ids {
		ids[i] = int64(i)
	}

	_, err := api.GetUsersBatch(t.Context(), ids)
	require.ErrorIs(t, err, platform.ErrTooManyIDs)
}

func TestAPI_GetUsersBatch_InjectsAPIKey(t *testing.T) {
	t.Parallel()

	var gotQuery string

	api, server := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"screen_name":"alice"}]`))
	}))
	defer server.Close()

	users, err := api.GetUsersBatch(t.Context(), []int64{1})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].ScreenName)
	assert.Contains(t, gotQuery, "api_key=testkey")
	assert.Contains(t, gotQuery, "ids=1")
}

func TestAPI_Me_UsesBearerNotAPIKey(t *testing.T) {
	t.Parallel()

	var gotQuery, gotAuth string

	api, server := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"screen_name":"bob"}`))
	}))
	defer server.Close()

	user, err := api.Me(t.Context(), "sometoken")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.ScreenName)
	assert.Equal(t, "token sometoken", gotAuth)
	assert.NotContains(t, gotQuery, "api_key")
}

func TestAPI_GetUsers_NotFoundBecomesInvalidUser(t *testing.T) {
	t.Parallel()

	api, server := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := api.GetUsers(t.Context(), platform.UserSortInfluence, 1, 50)
	require.ErrorIs(t, err, platform.InvalidUser)
}

func TestAPI_GetUsersNewestScrape_ExtractsIDs(t *testing.T) {
	t.Parallel()

	html := []byte(`
    <a href="/hacker/42" class="hacker-image">
    <a href="/hacker/7" class="hacker-image">
`)

	mux := http.NewServeMux()
	mux.HandleFunc("/hackers", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(html)
	})
	mux.HandleFunc("/users/batch", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "ids=42%2C7")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":42},{"id":7}]`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := platform.DefaultClientConfig()
	cfg.MinInterval = 0
	client := platform.NewRateLimitedClient(cfg, zaptest.NewLogger(t), nil)

	apiCfg := platform.APIConfig{BaseURI: server.URL, NewestScrapeURI: server.URL + "/hackers", APIKey: "k"}
	api := platform.NewAPI(apiCfg, client, zaptest.NewLogger(t))

	users, err := api.GetUsersNewestScrape(t.Context(), 1, 50)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(42), users[0].ID)
	assert.Equal(t, int64(7), users[1].ID)
}

func TestAPI_GetUserLinks_Pagination(t *testing.T) {
	t.Parallel()

	api, server := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "page=2")
		assert.Contains(t, r.URL.RawQuery, "per_page=50")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"page":2,"last_page":2,"links":[{"title":"a","url":"http://x"}]}`))
	}))
	defer server.Close()

	page, err := api.GetUserLinks(t.Context(), 1, 2, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, page.LastPage)
	require.Len(t, page.Links, 1)
	assert.Equal(t, "a", page.Links[0].Title)
}

func TestAPI_Forbidden_Propagates(t *testing.T) {
	t.Parallel()

	api, server := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := api.GetUsers(t.Context(), platform.UserSortInfluence, 1, 50)
	require.ErrorIs(t, err, platform.Forbidden)
}
