package admin

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"tysmp/whitelist/internal/links"
)

// Target names a player by Discord member, Minecraft username or both.
type Target struct {
	ActorID  string
	Username string
}

func (t Target) validate() error {
	if t.ActorID == "" && strings.TrimSpace(t.Username) == "" {
		return errors.NotValidf("target without member or username")
	}
	return nil
}

// Identity resolves the key notes and flags are stored under: the member id
// when given, otherwise the actor linked to the username, otherwise the
// username itself.
func (s *Service) Identity(ctx context.Context, t Target) (string, error) {
	if err := t.validate(); err != nil {
		return "", errors.Trace(err)
	}
	if t.ActorID != "" {
		return t.ActorID, nil
	}
	username := strings.TrimSpace(t.Username)
	actor, err := s.cfg.Links.FindByUsername(ctx, username)
	if errors.Is(err, errors.NotFound) {
		return username, nil
	}
	if err != nil {
		return "", errors.Trace(err)
	}
	return actor, nil
}

// AddNote records a staff note against t.
func (s *Service) AddNote(ctx context.Context, t Target, text, author string) error {
	id, err := s.Identity(ctx, t)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(s.cfg.Links.AddNote(ctx, id, links.Note{
		Text:      strings.TrimSpace(text),
		Author:    author,
		Timestamp: s.cfg.Clock.Now().UTC(),
	}))
}

// Notes lists the notes on t, oldest first.
func (s *Service) Notes(ctx context.Context, t Target) ([]links.Note, error) {
	id, err := s.Identity(ctx, t)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return s.cfg.Links.Notes(ctx, id)
}

// FlagRemove clears a flag in SetFlag.
const FlagRemove = "remove"

// SetFlag flags t, or unflags it when flag is FlagRemove.
func (s *Service) SetFlag(ctx context.Context, t Target, flag string) error {
	id, err := s.Identity(ctx, t)
	if err != nil {
		return errors.Trace(err)
	}
	if flag == FlagRemove {
		_, err := s.cfg.Links.ClearFlag(ctx, id)
		return errors.Trace(err)
	}
	f, err := links.ParseFlag(flag)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(s.cfg.Links.SetFlag(ctx, id, f))
}

// FlaggedPlayer is a flag with the username linked to the flagged member.
type FlaggedPlayer struct {
	ActorID  string
	Username string
	Flag     links.Flag
}

// ListFlags returns flagged players worst first. An empty filter lists all
// flags.
func (s *Service) ListFlags(ctx context.Context, filter links.Flag) ([]FlaggedPlayer, error) {
	flags, err := s.cfg.Links.Flags(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	all, err := s.cfg.Links.All(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	names := make(map[string]string, len(all))
	for _, l := range all {
		names[l.ActorID] = l.Username
	}
	var out []FlaggedPlayer
	for _, f := range flags {
		if filter != "" && f.Flag != filter {
			continue
		}
		out = append(out, FlaggedPlayer{ActorID: f.ActorID, Username: names[f.ActorID], Flag: f.Flag})
	}
	return out, nil
}

// PlayerInfo is one match of FindPlayer.
type PlayerInfo struct {
	ActorID   string
	Username  string
	Manual    bool
	Flag      links.Flag
	NoteCount int
}

// FindPlayer looks t up by member and by username (case-insensitive).
func (s *Service) FindPlayer(ctx context.Context, t Target) ([]PlayerInfo, error) {
	if err := t.validate(); err != nil {
		return nil, errors.Trace(err)
	}
	all, err := s.cfg.Links.All(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var out []PlayerInfo
	for _, l := range all {
		byActor := t.ActorID != "" && l.ActorID == t.ActorID
		byName := t.Username != "" && strings.EqualFold(l.Username, strings.TrimSpace(t.Username))
		if !byActor && !byName {
			continue
		}
		info := PlayerInfo{ActorID: l.ActorID, Username: l.Username, Manual: links.IsManual(l.ActorID)}
		if info.Flag, err = s.cfg.Links.Flag(ctx, l.ActorID); err != nil {
			return nil, errors.Trace(err)
		}
		notes, err := s.cfg.Links.Notes(ctx, l.ActorID)
		if err != nil {
			return nil, errors.Trace(err)
		}
		info.NoteCount = len(notes)
		out = append(out, info)
	}
	return out, nil
}

// RemovePlayerData drops the links matching t without touching the server
// whitelist.
func (s *Service) RemovePlayerData(ctx context.Context, t Target) ([]links.Link, error) {
	if err := t.validate(); err != nil {
		return nil, errors.Trace(err)
	}
	var removed []links.Link
	if t.ActorID != "" {
		name, err := s.cfg.Links.Unlink(ctx, t.ActorID)
		switch {
		case err == nil:
			removed = append(removed, links.Link{ActorID: t.ActorID, Username: name})
		case !errors.Is(err, errors.NotFound):
			return nil, errors.Trace(err)
		}
	}
	if username := strings.TrimSpace(t.Username); username != "" {
		actors, err := s.cfg.Links.UnlinkUsername(ctx, username)
		if err != nil {
			return removed, errors.Trace(err)
		}
		for _, a := range actors {
			removed = append(removed, links.Link{ActorID: a, Username: username})
		}
	}
	return removed, nil
}
