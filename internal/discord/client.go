// Package discord connects the pipeline and admin operations to Discord:
// review posts with Accept/Deny buttons, member updates, direct messages
// and the slash command surface.
package discord

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/juju/errors"

	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/pipeline"
)

const membersPageSize = 1000

// Client implements pipeline.ReviewBoard, pipeline.Community and
// admin.Guild over a discordgo session.
type Client struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// NewClient wraps an open session.
func NewClient(session *discordgo.Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{session: session, logger: logger.With("component", "discord")}
}

// Post sends the review embed with decision buttons.
func (c *Client) Post(ctx context.Context, channelID string, record application.Record) (string, error) {
	msg, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{applicationEmbed(record)},
		Components: decisionButtons(),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", classify(err, "channel %s", channelID)
	}
	return msg.ID, nil
}

// MarkDecided replaces the review embed with the decided version and drops
// the buttons.
func (c *Client) MarkDecided(ctx context.Context, channelID, messageID string, record application.Record, decision application.Decision, reviewer pipeline.Reviewer) error {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	edit.Embeds = []*discordgo.MessageEmbed{decidedEmbed(record, decision, reviewer)}
	edit.Components = []discordgo.MessageComponent{}
	_, err := c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return classify(err, "message %s", messageID)
}

// Reattach checks the post still exists and puts fresh buttons on it.
func (c *Client) Reattach(ctx context.Context, channelID, messageID string, record application.Record) error {
	msg, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return classify(err, "message %s", messageID)
	}
	edit := discordgo.NewMessageEdit(channelID, messageID)
	edit.Embeds = msg.Embeds
	if len(edit.Embeds) == 0 {
		edit.Embeds = []*discordgo.MessageEmbed{applicationEmbed(record)}
	}
	edit.Components = decisionButtons()
	_, err = c.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return classify(err, "message %s", messageID)
}

// Member looks a guild member up by id.
func (c *Client) Member(ctx context.Context, guildID, userID string) (pipeline.Member, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return pipeline.Member{}, classify(err, "member %s", userID)
	}
	return toMember(m), nil
}

// Members lists every guild member, paging through the API.
func (c *Client) Members(ctx context.Context, guildID string) ([]pipeline.Member, error) {
	var all []pipeline.Member
	var after string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		members, err := c.session.GuildMembers(guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify(err, "guild %s", guildID)
		}
		for _, m := range members {
			all = append(all, toMember(m))
			after = m.User.ID
		}
		if len(members) < membersPageSize {
			return all, nil
		}
	}
}

func toMember(m *discordgo.Member) pipeline.Member {
	name := m.Nick
	if name == "" && m.User != nil {
		name = m.User.Username
	}
	var id string
	if m.User != nil {
		id = m.User.ID
	}
	return pipeline.Member{
		ID:          id,
		DisplayName: name,
		RoleIDs:     append([]string(nil), m.Roles...),
	}
}

func (c *Client) SetNickname(ctx context.Context, guildID, userID, nickname string) error {
	err := c.session.GuildMemberNickname(guildID, userID, nickname, discordgo.WithContext(ctx))
	return classify(err, "member %s", userID)
}

func (c *Client) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	err := c.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
	return classify(err, "role %s", roleID)
}

// DirectMessage opens a DM channel with the user and sends the notice.
func (c *Client) DirectMessage(ctx context.Context, userID string, notice pipeline.Notice) error {
	ch, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return classify(err, "user %s", userID)
	}
	_, err = c.session.ChannelMessageSendEmbed(ch.ID, noticeEmbed(notice), discordgo.WithContext(ctx))
	return classify(err, "user %s", userID)
}

// Announce posts the welcome or introduction for a newly accepted player.
func (c *Client) Announce(ctx context.Context, channelID string, w pipeline.Welcome) error {
	_, err := c.session.ChannelMessageSendComplex(channelID, welcomeMessage(w), discordgo.WithContext(ctx))
	return classify(err, "channel %s", channelID)
}

// classify maps Discord's "unknown resource" answers onto errors.NotFound
// and annotates everything else.
func classify(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		notFound := rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
		if rest.Message != nil {
			switch rest.Message.Code {
			case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownMember,
				discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownRole:
				notFound = true
			}
		}
		if notFound {
			return errors.NewNotFound(err, errors.Errorf(format, args...).Error())
		}
	}
	return errors.Annotatef(err, format, args...)
}
