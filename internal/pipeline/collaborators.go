package pipeline

import (
	"context"

	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/config"
)

// ReviewBoard is where staff see applications and click Accept or Deny.
type ReviewBoard interface {
	// Post publishes record with decision controls and returns the new
	// message id.
	Post(ctx context.Context, channelID string, record application.Record) (string, error)
	// MarkDecided rewrites the post to show the decision and removes the
	// controls.
	MarkDecided(ctx context.Context, channelID, messageID string, record application.Record, decision application.Decision, reviewer Reviewer) error
	// Reattach restores the decision controls on an existing post. A post
	// that no longer exists is reported with errors.NotFound.
	Reattach(ctx context.Context, channelID, messageID string, record application.Record) error
}

// Member is a guild member as the pipeline needs to see it.
type Member struct {
	ID          string
	DisplayName string
	RoleIDs     []string
}

// Notice is a direct message the applicant receives.
type Notice int

const (
	NoticeSubmitted Notice = iota
	NoticeAccepted
	NoticeDenied
)

// Welcome is the public message posted when an applicant is accepted.
// Introduction selects the richer embed carrying AboutMe.
type Welcome struct {
	UserID       string
	InGameName   string
	AboutMe      string
	Introduction bool
}

// Community performs guild and user operations. Lookups of absent members
// report errors.NotFound.
type Community interface {
	Member(ctx context.Context, guildID, userID string) (Member, error)
	SetNickname(ctx context.Context, guildID, userID, nickname string) error
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
	DirectMessage(ctx context.Context, userID string, notice Notice) error
	Announce(ctx context.Context, channelID string, welcome Welcome) error
}

// Gateway runs a console command on the Minecraft server.
type Gateway interface {
	Execute(ctx context.Context, command string) (string, error)
}

// SettingsSource supplies the current runtime settings.
type SettingsSource interface {
	Snapshot() config.Settings
}

// Reviewer is the staff member acting on a post.
type Reviewer struct {
	ID   string
	Name string
}
