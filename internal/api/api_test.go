package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tysmp/whitelist/internal/api"
	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/links"
	"tysmp/whitelist/internal/playercache"
)

type fakeSubmitter struct {
	mu      sync.Mutex
	records []application.Record
	err     error
}

func (f *fakeSubmitter) Submit(_ context.Context, r application.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, r)
	return nil
}

type staticLinks []links.Link

func (s staticLinks) All(context.Context) ([]links.Link, error) { return s, nil }

type fakeProfiles map[string]error

func (f fakeProfiles) GetOrFetch(_ context.Context, username string) (playercache.ProfileData, error) {
	if err, ok := f[username]; ok {
		return playercache.ProfileData{}, err
	}
	return playercache.ProfileData{UUID: "uuid-" + username, Name: username}, nil
}

func newRouter(t *testing.T, deps api.Dependencies) http.Handler {
	t.Helper()
	if deps.Submitter == nil {
		deps.Submitter = &fakeSubmitter{}
	}
	if deps.Links == nil {
		deps.Links = staticLinks{}
	}
	if deps.Profiles == nil {
		deps.Profiles = fakeProfiles{}
	}
	r, err := api.NewRouter(deps)
	require.NoError(t, err)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestSubmitQueuesRecord(t *testing.T) {
	sub := &fakeSubmitter{}
	h := newRouter(t, api.Dependencies{Submitter: sub})

	rec := do(h, http.MethodPost, "/submit",
		`{"code":"42","in_game_name":"Steve","about_me":"castles","public_profile":true,"age":17,"rules":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())

	require.Len(t, sub.records, 1)
	got := sub.records[0]
	assert.Equal(t, "42", got.ActorID)
	assert.Equal(t, "Steve", got.InGameName)
	assert.Equal(t, application.NotProvided, got.PlaytimeExperience)
	assert.True(t, got.PublicProfile)
	assert.Equal(t, map[string]string{"age": "17", "rules": "false"}, got.Extra)
}

func TestSubmitRejectsIncompleteForms(t *testing.T) {
	sub := &fakeSubmitter{}
	h := newRouter(t, api.Dependencies{Submitter: sub})

	for _, body := range []string{
		`{"in_game_name":"Steve"}`,
		`{"code":"42","in_game_name":"  "}`,
		`not json`,
	} {
		rec := do(h, http.MethodPost, "/submit", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, sub.records)
}

func TestSubmitStoreFailure(t *testing.T) {
	h := newRouter(t, api.Dependencies{Submitter: &fakeSubmitter{err: errors.New("disk full")}})
	rec := do(h, http.MethodPost, "/submit", `{"code":"42","in_game_name":"Steve"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWhitelistedPlayers(t *testing.T) {
	h := newRouter(t, api.Dependencies{
		Links: staticLinks{
			{ActorID: "42", Username: "Steve"},
			{ActorID: "manual_Ghost", Username: "Ghost"},
			{ActorID: "43", Username: "Alex"},
		},
		Profiles: fakeProfiles{
			"Ghost": playercache.ErrNotFound,
			"Alex":  errors.WithType(errors.New("timeout"), playercache.ErrLookupFailed),
		},
	})

	rec := do(h, http.MethodGet, "/api/whitelisted-players", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var players []api.Player
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &players))
	assert.Equal(t, []api.Player{
		{Name: "Steve", DiscordID: "42", UUID: "uuid-Steve"},
		{Name: "Ghost", DiscordID: "manual_Ghost"},
		{Name: "Alex", DiscordID: "43"},
	}, players)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	h := newRouter(t, api.Dependencies{})
	rec := do(h, http.MethodOptions, "/submit", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHealthz(t *testing.T) {
	healthy := true
	h := newRouter(t, api.Dependencies{Health: func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("store closed")
	}})
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/healthz", "").Code)
	healthy = false
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/healthz", "").Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "whitelist_test_total"})
	reg.MustRegister(c)
	c.Inc()

	h := newRouter(t, api.Dependencies{Gatherer: reg})
	rec := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "whitelist_test_total 1")
}

func TestNewRouterValidates(t *testing.T) {
	_, err := api.NewRouter(api.Dependencies{})
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestSubmitKeepsNumericIDsExact(t *testing.T) {
	sub := &fakeSubmitter{}
	h := newRouter(t, api.Dependencies{Submitter: sub})

	rec := do(h, http.MethodPost, "/submit", `{"code":123456789012345678,"in_game_name":"Steve","referrer":987654321098765432}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sub.records, 1)
	assert.Equal(t, "123456789012345678", sub.records[0].ActorID)
	assert.Equal(t, "987654321098765432", sub.records[0].Extra["referrer"])
}

func TestRecordFromFormNumber(t *testing.T) {
	got, err := api.RecordFromForm(map[string]any{
		"code":         json.Number("123456789012345678"),
		"in_game_name": "Steve",
	})
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678", got.ActorID)
}
