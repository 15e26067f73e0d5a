package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"

	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/playercache"
)

const (
	submitTimeout  = 15 * time.Second
	listingTimeout = 30 * time.Second
	maxBodyBytes   = 64 << 10
)

type handlers struct {
	deps   Dependencies
	logger *slog.Logger
}

// Player is one entry of the public listing. UUID is omitted when the
// profile could not be resolved.
type Player struct {
	Name      string `json:"name"`
	DiscordID string `json:"discord_id"`
	UUID      string `json:"uuid,omitempty"`
}

func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
	var form map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&form); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	record, err := RecordFromForm(form)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	if err := h.deps.Submitter.Submit(ctx, record); err != nil {
		h.logger.Error("queueing application", "actor", record.ActorID, "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *handlers) whitelistedPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), listingTimeout)
	defer cancel()
	all, err := h.deps.Links.All(ctx)
	if err != nil {
		h.logger.Error("listing links", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	players := make([]Player, 0, len(all))
	for _, l := range all {
		p := Player{Name: l.Username, DiscordID: l.ActorID}
		profile, err := h.deps.Profiles.GetOrFetch(ctx, l.Username)
		switch {
		case err == nil:
			p.UUID = profile.UUID
		case errors.Is(err, playercache.ErrNotFound):
		default:
			h.logger.Debug("profile lookup failed", "username", l.Username, "error", err)
		}
		players = append(players, p)
	}
	writeJSON(w, http.StatusOK, players)
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health(r.Context()); err != nil {
			h.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// RecordFromForm builds a record from the submitted form. code and
// in_game_name are required; unknown keys are kept as extension fields.
// The form should be decoded with UseNumber so numeric ids stay exact.
func RecordFromForm(form map[string]any) (application.Record, error) {
	var rec application.Record
	for key, raw := range form {
		value := formValue(raw)
		switch key {
		case "code":
			rec.ActorID = value
		case "in_game_name":
			rec.InGameName = value
		case "playtime_experience":
			rec.PlaytimeExperience = value
		case "about_me":
			rec.AboutMe = value
		case "public_profile":
			rec.PublicProfile = truthy(raw)
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[key] = value
		}
	}
	if rec.ActorID == "" {
		return application.Record{}, errors.NotValidf("missing code")
	}
	if rec.InGameName == "" {
		return application.Record{}, errors.NotValidf("missing in_game_name")
	}
	rec.PlaytimeExperience = orNotProvided(rec.PlaytimeExperience)
	rec.AboutMe = orNotProvided(rec.AboutMe)
	return rec, nil
}

func formValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	buf, _ := json.Marshal(v)
	return string(buf)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "on", "yes", "1":
			return true
		}
	}
	return false
}

func orNotProvided(s string) string {
	if s == "" {
		return application.NotProvided
	}
	return s
}
