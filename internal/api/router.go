// Package api serves the application form endpoint and the public player
// listing.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/links"
	"tysmp/whitelist/internal/playercache"
)

// Submitter accepts validated application records.
type Submitter interface {
	Submit(ctx context.Context, record application.Record) error
}

// LinkLister lists the member to username links.
type LinkLister interface {
	All(ctx context.Context) ([]links.Link, error)
}

// Profiles resolves usernames to cached profiles.
type Profiles interface {
	GetOrFetch(ctx context.Context, username string) (playercache.ProfileData, error)
}

// Dependencies are the collaborators behind the routes.
type Dependencies struct {
	Submitter Submitter
	Links     LinkLister
	Profiles  Profiles
	// Health reports whether the store is usable. Nil means always healthy.
	Health   func(ctx context.Context) error
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Validate checks the dependencies.
func (d Dependencies) Validate() error {
	if d.Submitter == nil {
		return errors.NotValidf("nil Submitter")
	}
	if d.Links == nil {
		return errors.NotValidf("nil Links")
	}
	if d.Profiles == nil {
		return errors.NotValidf("nil Profiles")
	}
	return nil
}

// NewRouter wires the routes.
func NewRouter(deps Dependencies) (http.Handler, error) {
	if err := deps.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handlers{deps: deps, logger: logger.With("component", "api")}

	r := mux.NewRouter()
	r.Use(cors)
	r.HandleFunc("/submit", h.submit).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/whitelisted-players", h.whitelistedPlayers).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r, nil
}

// cors lets the form be served from another origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
