package config

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/juju/errors"

	"tysmp/whitelist/internal/store"
)

// ErrNotConfigured reports a required setting that has never been set.
const ErrNotConfigured = errors.ConstError("not configured")

// Settings is the runtime configuration shared by every component. Discord
// snowflakes are kept as strings.
type Settings struct {
	Token            string
	GuildID          string
	ReviewChannelID  string
	ChatChannelID    string
	IntroChannelID   string
	WhitelistCommand string
	RconHost         string
	RconPort         int
	RconPassword     string
	MemberRoleID     string
	ManagedRoleIDs   []string
	Domain           string
	ClientID         string
	ClientSecret     string
}

// ReviewDestination returns the guild and channel applications are posted
// to, or ErrNotConfigured when either is unset.
func (s Settings) ReviewDestination() (guildID, channelID string, err error) {
	if s.GuildID == "" || s.ReviewChannelID == "" {
		return "", "", errors.Annotate(ErrNotConfigured, "review guild/channel")
	}
	return s.GuildID, s.ReviewChannelID, nil
}

// IsManagedRole reports whether any of roleIDs may use management commands.
func (s Settings) IsManagedRole(roleIDs []string) bool {
	for _, id := range roleIDs {
		if slices.Contains(s.ManagedRoleIDs, id) {
			return true
		}
	}
	return false
}

// SettingsStore persists individual settings. Every write of a setting goes
// through it; nothing else writes the scalar configuration keys.
type SettingsStore interface {
	Load(ctx context.Context) (Settings, error)
	Set(ctx context.Context, key, value string) error
	AddManagedRole(ctx context.Context, roleID string) (bool, error)
	RemoveManagedRole(ctx context.Context, roleID string) (bool, error)
}

var settingKeys = []string{
	store.KeyToken,
	store.KeyGuild,
	store.KeyChannel,
	store.KeyChatChannel,
	store.KeyIntroChannel,
	store.KeyWhitelistCommand,
	store.KeyRconHost,
	store.KeyRconPort,
	store.KeyRconPassword,
	store.KeyMemberRole,
	store.KeyDomain,
	store.KeyClientID,
	store.KeyClientSecret,
}

// SettingKeys lists the scalar settings accepted by Set.
func SettingKeys() []string {
	return slices.Clone(settingKeys)
}

// KVSettings is the SettingsStore backed by the key-value store.
type KVSettings struct {
	store *store.Store
}

func NewKVSettings(s *store.Store) *KVSettings {
	return &KVSettings{store: s}
}

func (k *KVSettings) Load(ctx context.Context) (Settings, error) {
	var out Settings
	for _, key := range settingKeys {
		var raw json.RawMessage
		err := k.store.Get(ctx, key, &raw)
		if errors.Is(err, errors.NotFound) {
			continue
		}
		if err != nil {
			return Settings{}, errors.Trace(err)
		}
		if err := out.apply(key, stringify(raw)); err != nil {
			return Settings{}, errors.Trace(err)
		}
	}
	roles, err := store.Read[[]string](ctx, k.store, store.KeyManagedRoles)
	if err != nil {
		return Settings{}, errors.Trace(err)
	}
	out.ManagedRoleIDs = roles
	return out, nil
}

func (k *KVSettings) Set(ctx context.Context, key, value string) error {
	var probe Settings
	if err := probe.apply(key, value); err != nil {
		return errors.Trace(err)
	}
	if key == store.KeyRconPort {
		return errors.Trace(k.store.Set(ctx, key, probe.RconPort))
	}
	return errors.Trace(k.store.Set(ctx, key, value))
}

func (k *KVSettings) AddManagedRole(ctx context.Context, roleID string) (bool, error) {
	added := false
	err := store.Update(ctx, k.store, store.KeyManagedRoles, func(roles *[]string) error {
		if slices.Contains(*roles, roleID) {
			return nil
		}
		*roles = append(*roles, roleID)
		added = true
		return nil
	})
	return added, errors.Trace(err)
}

func (k *KVSettings) RemoveManagedRole(ctx context.Context, roleID string) (bool, error) {
	removed := false
	err := store.Update(ctx, k.store, store.KeyManagedRoles, func(roles *[]string) error {
		i := slices.Index(*roles, roleID)
		if i < 0 {
			return nil
		}
		*roles = slices.Delete(*roles, i, i+1)
		removed = true
		return nil
	})
	return removed, errors.Trace(err)
}

func (s *Settings) apply(key, value string) error {
	switch key {
	case store.KeyToken:
		s.Token = value
	case store.KeyGuild:
		s.GuildID = value
	case store.KeyChannel:
		s.ReviewChannelID = value
	case store.KeyChatChannel:
		s.ChatChannelID = value
	case store.KeyIntroChannel:
		s.IntroChannelID = value
	case store.KeyWhitelistCommand:
		s.WhitelistCommand = strings.TrimSpace(strings.TrimPrefix(value, "/"))
	case store.KeyRconHost:
		s.RconHost = value
	case store.KeyRconPort:
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			return errors.NotValidf("rcon port %q", value)
		}
		s.RconPort = port
	case store.KeyRconPassword:
		s.RconPassword = value
	case store.KeyMemberRole:
		s.MemberRoleID = value
	case store.KeyDomain:
		s.Domain = value
	case store.KeyClientID:
		s.ClientID = value
	case store.KeyClientSecret:
		s.ClientSecret = value
	default:
		return errors.NotValidf("setting %q", key)
	}
	return nil
}

// Older deployments wrote numeric snowflakes. They are kept as their JSON
// literal since a float64 cannot hold every 64-bit id.
func stringify(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// Live holds the settings loaded at start and keeps them current as they are
// written. Components read a snapshot per operation.
type Live struct {
	mu       sync.RWMutex
	settings Settings
	store    SettingsStore
}

// LoadLive loads the settings once.
func LoadLive(ctx context.Context, st SettingsStore) (*Live, error) {
	s, err := st.Load(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "loading settings")
	}
	return &Live{settings: s, store: st}, nil
}

// Snapshot returns a copy of the current settings.
func (l *Live) Snapshot() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := l.settings
	s.ManagedRoleIDs = slices.Clone(l.settings.ManagedRoleIDs)
	return s
}

// Set writes one setting through the store and applies it.
func (l *Live) Set(ctx context.Context, key, value string) error {
	if err := l.store.Set(ctx, key, value); err != nil {
		return errors.Trace(err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings.apply(key, value)
}

// AddManagedRole records a role allowed to run management commands.
func (l *Live) AddManagedRole(ctx context.Context, roleID string) (bool, error) {
	added, err := l.store.AddManagedRole(ctx, roleID)
	if err != nil || !added {
		return added, errors.Trace(err)
	}
	l.mu.Lock()
	l.settings.ManagedRoleIDs = append(l.settings.ManagedRoleIDs, roleID)
	l.mu.Unlock()
	return true, nil
}

// RemoveManagedRole drops a role from the management list.
func (l *Live) RemoveManagedRole(ctx context.Context, roleID string) (bool, error) {
	removed, err := l.store.RemoveManagedRole(ctx, roleID)
	if err != nil || !removed {
		return removed, errors.Trace(err)
	}
	l.mu.Lock()
	if i := slices.Index(l.settings.ManagedRoleIDs, roleID); i >= 0 {
		l.settings.ManagedRoleIDs = slices.Delete(l.settings.ManagedRoleIDs, i, i+1)
	}
	l.mu.Unlock()
	return true, nil
}
