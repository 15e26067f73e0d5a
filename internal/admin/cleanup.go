package admin

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"tysmp/whitelist/internal/config"
	"tysmp/whitelist/internal/links"
)

// CleanupReport describes what Cleanup found and changed.
type CleanupReport struct {
	// Links dropped because the member left the guild.
	Removed []links.Link
	// Usernames the server refused to remove; their links were dropped
	// anyway.
	RemoveFailed []string
	// Linked members whose username is missing from the server whitelist.
	NotWhitelisted []links.Link
}

// Cleanup drops member links whose member is no longer in the guild and
// takes their usernames off the server whitelist. Manual links are kept.
func (s *Service) Cleanup(ctx context.Context) (CleanupReport, error) {
	var report CleanupReport
	guildID := s.cfg.Settings.Snapshot().GuildID
	if guildID == "" {
		return report, errors.Annotate(config.ErrNotConfigured, "guild")
	}

	listing, err := s.cfg.Gateway.Execute(ctx, "whitelist list")
	if err != nil {
		return report, errors.Annotate(err, "reading server whitelist")
	}
	whitelisted := make(map[string]bool)
	for _, n := range ParseWhitelist(listing) {
		whitelisted[strings.ToLower(n)] = true
	}

	members, err := s.cfg.Guild.Members(ctx, guildID)
	if err != nil {
		return report, errors.Annotate(err, "listing guild members")
	}
	present := make(map[string]bool, len(members))
	for _, m := range members {
		present[m.ID] = true
	}

	all, err := s.cfg.Links.All(ctx)
	if err != nil {
		return report, errors.Trace(err)
	}
	for _, l := range all {
		if links.IsManual(l.ActorID) {
			continue
		}
		if present[l.ActorID] {
			if !whitelisted[strings.ToLower(l.Username)] {
				report.NotWhitelisted = append(report.NotWhitelisted, l)
			}
			continue
		}
		if _, err := s.cfg.Gateway.Execute(ctx, RemoveCommand+" "+l.Username); err != nil {
			report.RemoveFailed = append(report.RemoveFailed, l.Username)
			s.logger.Warn("cleanup could not remove player from whitelist", "username", l.Username, "error", err)
		}
		if _, err := s.cfg.Links.Unlink(ctx, l.ActorID); err != nil && !errors.Is(err, errors.NotFound) {
			return report, errors.Trace(err)
		}
		report.Removed = append(report.Removed, l)
	}
	s.logger.Info("cleanup finished",
		"removed", len(report.Removed),
		"remove_failed", len(report.RemoveFailed),
		"not_whitelisted", len(report.NotWhitelisted),
	)
	return report, nil
}

// ParseWhitelist extracts player names from the reply to "whitelist list",
// which reads "There are N whitelisted player(s): a, b, c".
func ParseWhitelist(reply string) []string {
	_, players, ok := strings.Cut(reply, ":")
	if !ok {
		return nil
	}
	var out []string
	for _, n := range strings.Split(players, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
