package store

import "context"

// Logical keys shared by every component.
const (
	KeyApplications     = "applications"
	KeyQueue            = "pending_applications_queue"
	KeyDeadLetters      = "application_dead_letters"
	KeyLinks            = "links"
	KeyManagedRoles     = "managed_roles"
	KeyUserFlags        = "user_flags"
	KeyUserNotes        = "user_notes"
	KeyPlayerCache      = "player_cache"
	KeyToken            = "token"
	KeyGuild            = "guild"
	KeyChannel          = "channel"
	KeyChatChannel      = "chat_channel_id"
	KeyIntroChannel     = "intro_channel_id"
	KeyWhitelistCommand = "whitelist"
	KeyRconHost         = "rcon_host"
	KeyRconPort         = "rcon_port"
	KeyRconPassword     = "rcon_password"
	KeyMemberRole       = "role"
	KeyDomain           = "domain"
	KeyClientID         = "client_id"
	KeyClientSecret     = "secret"
)

type ctxKey string

const actorContextKey ctxKey = "store.actor"

// WithActor labels writes made with ctx. Backends that keep an audit trail
// record the label alongside the change.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext returns the label set by WithActor, or "".
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey).(string)
	return actor
}
