// Package admin implements the staff operations behind the management
// commands: manual whitelist changes, link repair, moderation notes and
// flags, and database cleanup.
package admin

import (
	"context"
	"log/slog"
	"strings"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"tysmp/whitelist/internal/config"
	"tysmp/whitelist/internal/links"
	"tysmp/whitelist/internal/pipeline"
	"tysmp/whitelist/internal/queue"
)

// RemoveCommand is the console command that takes a player off the
// whitelist.
const RemoveCommand = "whitelist remove"

// MaxBulkRemove caps BulkRemoveWhitelist.
const MaxBulkRemove = 10

// Guild is the part of the community the admin operations touch.
type Guild interface {
	SetNickname(ctx context.Context, guildID, userID, nickname string) error
	Members(ctx context.Context, guildID string) ([]pipeline.Member, error)
}

// Config holds the collaborators of a Service.
type Config struct {
	Links    *links.Registry
	Queue    *queue.Queue
	Gateway  pipeline.Gateway
	Guild    Guild
	Settings pipeline.SettingsSource
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Validate returns an error if config cannot drive a Service.
func (c Config) Validate() error {
	if c.Links == nil {
		return errors.NotValidf("nil Links")
	}
	if c.Queue == nil {
		return errors.NotValidf("nil Queue")
	}
	if c.Gateway == nil {
		return errors.NotValidf("nil Gateway")
	}
	if c.Guild == nil {
		return errors.NotValidf("nil Guild")
	}
	if c.Settings == nil {
		return errors.NotValidf("nil Settings")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	return nil
}

// Service runs admin operations. Every operation re-reads the store.
type Service struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{cfg: cfg, logger: logger.With("component", "admin")}, nil
}

// RunCommand sends an arbitrary console command. A leading "/" is dropped.
func (s *Service) RunCommand(ctx context.Context, command string) (string, error) {
	command = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(command), "/"))
	if command == "" {
		return "", errors.NotValidf("empty command")
	}
	out, err := s.cfg.Gateway.Execute(ctx, command)
	return out, errors.Trace(err)
}

// TestConnection runs "list" to prove the console is reachable.
func (s *Service) TestConnection(ctx context.Context) (string, error) {
	return s.RunCommand(ctx, "list")
}

// ManualWhitelist whitelists a player with no Discord member behind them and
// records a manual link so they show up in listings.
func (s *Service) ManualWhitelist(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.NotValidf("empty username")
	}
	template := s.cfg.Settings.Snapshot().WhitelistCommand
	if template == "" {
		return "", errors.Annotate(config.ErrNotConfigured, "whitelist command")
	}
	out, err := s.cfg.Gateway.Execute(ctx, template+" "+username)
	if err != nil {
		return "", errors.Trace(err)
	}
	if err := s.cfg.Links.Link(ctx, links.ManualKey(username), username); err != nil {
		return out, errors.Annotatef(err, "whitelisted %s but could not record the link", username)
	}
	s.logger.Info("manual whitelist", "username", username)
	return out, nil
}

// RemoveWhitelist takes username off the server whitelist and then drops
// every link to it. Links are kept when the console command fails.
func (s *Service) RemoveWhitelist(ctx context.Context, username string) (string, []string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", nil, errors.NotValidf("empty username")
	}
	out, err := s.cfg.Gateway.Execute(ctx, RemoveCommand+" "+username)
	if err != nil {
		return "", nil, errors.Trace(err)
	}
	removed, err := s.cfg.Links.UnlinkUsername(ctx, username)
	if err != nil {
		return out, nil, errors.Trace(err)
	}
	s.logger.Info("removed from whitelist", "username", username, "links", len(removed))
	return out, removed, nil
}

// BulkResult is the outcome for one username of BulkRemoveWhitelist.
type BulkResult struct {
	Username     string
	Output       string
	LinksRemoved int
	Err          error
}

// BulkRemoveWhitelist runs RemoveWhitelist for up to MaxBulkRemove
// comma-separated usernames.
func (s *Service) BulkRemoveWhitelist(ctx context.Context, usernames string) ([]BulkResult, error) {
	var names []string
	for _, n := range strings.Split(usernames, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return nil, errors.NotValidf("empty username list")
	}
	if len(names) > MaxBulkRemove {
		return nil, errors.NotValidf("%d usernames (max %d)", len(names), MaxBulkRemove)
	}
	results := make([]BulkResult, 0, len(names))
	for _, n := range names {
		out, removed, err := s.RemoveWhitelist(ctx, n)
		results = append(results, BulkResult{Username: n, Output: out, LinksRemoved: len(removed), Err: err})
	}
	return results, nil
}

// RelinkResult describes what Relink changed.
type RelinkResult struct {
	Previous        string
	Displaced       string
	NicknameUpdated bool
	RemovedOld      bool
	Whitelisted     bool
	WhitelistErr    error
}

// Relink points a member at a new username, replacing whoever held it. When
// a whitelist command is configured the old name is removed from the server
// and the new one added.
func (s *Service) Relink(ctx context.Context, actorID, username string) (RelinkResult, error) {
	var res RelinkResult
	username = strings.TrimSpace(username)
	if actorID == "" || username == "" {
		return res, errors.NotValidf("relink needs a member and a username")
	}
	previous, displaced, err := s.cfg.Links.Relink(ctx, actorID, username)
	if err != nil {
		return res, errors.Trace(err)
	}
	res.Previous, res.Displaced = previous, displaced

	settings := s.cfg.Settings.Snapshot()
	if settings.GuildID != "" {
		err := s.cfg.Guild.SetNickname(ctx, settings.GuildID, actorID, username)
		res.NicknameUpdated = err == nil
		if err != nil {
			s.logger.Info("could not update nickname", "actor", actorID, "error", err)
		}
	}

	if settings.WhitelistCommand == "" {
		return res, nil
	}
	if previous != "" && !strings.EqualFold(previous, username) {
		_, err := s.cfg.Gateway.Execute(ctx, RemoveCommand+" "+previous)
		res.RemovedOld = err == nil
	}
	_, res.WhitelistErr = s.cfg.Gateway.Execute(ctx, settings.WhitelistCommand+" "+username)
	res.Whitelisted = res.WhitelistErr == nil
	return res, nil
}

// RequeueDeadLetters puts applications that could not be posted back on the
// queue.
func (s *Service) RequeueDeadLetters(ctx context.Context) (int, error) {
	n, err := s.cfg.Queue.RequeueDeadLetters(ctx)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if n > 0 {
		s.logger.Info("dead letters requeued", "count", n)
	}
	return n, nil
}

// ListWhitelisted returns every link sorted by username.
func (s *Service) ListWhitelisted(ctx context.Context) ([]links.Link, error) {
	return s.cfg.Links.All(ctx)
}
