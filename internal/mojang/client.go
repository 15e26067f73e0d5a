// Package mojang resolves Minecraft usernames to profiles through the public
// Mojang APIs.
package mojang

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/juju/errors"
	"golang.org/x/time/rate"

	"tysmp/whitelist/internal/config"
	"tysmp/whitelist/internal/playercache"
)

// Client implements playercache.Lookup.
type Client struct {
	profilesURL string
	sessionURL  string
	http        *retryablehttp.Client
	limiter     *rate.Limiter
}

// New builds a client from the mojang section of the process config.
func New(cfg config.MojangConfig, logger *slog.Logger) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 2
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 3 * time.Second
	hc.HTTPClient.Timeout = 10 * time.Second
	hc.Logger = nil
	if logger != nil {
		hc.Logger = logger.With("component", "mojang")
	}

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	return &Client{
		profilesURL: withSlash(cfg.ProfilesURL),
		sessionURL:  withSlash(cfg.SessionServerURL),
		http:        hc,
		limiter:     rate.NewLimiter(limit, 1),
	}
}

type uuidResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Fetch resolves username to its UUID and then loads the session profile,
// which carries the skin textures.
func (c *Client) Fetch(ctx context.Context, username string) (playercache.ProfileData, error) {
	var id uuidResponse
	body, err := c.get(ctx, c.profilesURL+url.PathEscape(username))
	if err != nil {
		return playercache.ProfileData{}, errors.Annotatef(err, "resolving %q", username)
	}
	if err := json.Unmarshal(body, &id); err != nil {
		return playercache.ProfileData{}, errors.Annotatef(err, "decoding uuid for %q", username)
	}
	if id.ID == "" {
		return playercache.ProfileData{}, errors.Trace(playercache.ErrNotFound)
	}

	profile, err := c.get(ctx, c.sessionURL+url.PathEscape(id.ID))
	if err != nil {
		return playercache.ProfileData{}, errors.Annotatef(err, "loading profile %s", id.ID)
	}
	var named struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(profile, &named); err != nil {
		return playercache.ProfileData{}, errors.Annotatef(err, "decoding profile %s", id.ID)
	}
	return playercache.ProfileData{
		UUID:    id.ID,
		Name:    named.Name,
		Profile: json.RawMessage(profile),
	}, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Trace(err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		return nil, playercache.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

func withSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
