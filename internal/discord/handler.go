package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/juju/errors"

	"tysmp/whitelist/internal/admin"
	"tysmp/whitelist/internal/config"
	"tysmp/whitelist/internal/pipeline"
	"tysmp/whitelist/internal/store"
)

const interactionTimeout = 30 * time.Second

// Responder is the part of a discordgo session used to answer
// interactions.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Handler routes button clicks to the pipeline and slash commands to the
// admin service.
type Handler struct {
	pipeline *pipeline.Pipeline
	admin    *admin.Service
	settings *config.Live
	logger   *slog.Logger
	commands map[string]command
}

func NewHandler(p *pipeline.Pipeline, a *admin.Service, settings *config.Live, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{
		pipeline: p,
		admin:    a,
		settings: settings,
		logger:   logger.With("component", "discord-handler"),
		commands: make(map[string]command),
	}
	for _, c := range commandTable() {
		h.commands[c.def.Name] = c
	}
	return h
}

// Register installs the interaction handler on the session and returns a
// function that removes it.
func (h *Handler) Register(s *discordgo.Session) func() {
	return s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		h.Handle(s, ic.Interaction)
	})
}

// SyncCommands replaces the guild's slash commands with ours. Guild-scoped
// commands show up immediately, unlike global ones.
func (h *Handler) SyncCommands(s *discordgo.Session, guildID string) error {
	defs := make([]*discordgo.ApplicationCommand, 0, len(h.commands))
	for _, c := range commandTable() {
		defs = append(defs, c.def)
	}
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, defs)
	return errors.Annotatef(err, "registering %d commands", len(defs))
}

// Handle answers one interaction.
func (h *Handler) Handle(r Responder, i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	if i.Member != nil && i.Member.User != nil {
		ctx = store.WithActor(ctx, "discord:"+i.Member.User.ID)
	}

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		h.handleButton(ctx, r, i)
	case discordgo.InteractionApplicationCommand:
		h.handleCommand(ctx, r, i)
	}
}

func (h *Handler) handleButton(ctx context.Context, r Responder, i *discordgo.Interaction) {
	decision, ok := decisionFromButton(i.MessageComponentData().CustomID)
	if !ok || i.Message == nil {
		return
	}
	if denied := h.authorize(i, accessManaged); denied != "" {
		h.respondEphemeral(r, i, denied)
		return
	}
	if err := r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		h.logger.Warn("acknowledging button", "error", err)
		return
	}

	report, err := h.pipeline.Decide(ctx, pipeline.DecisionRequest{
		MessageID: i.Message.ID,
		ChannelID: i.ChannelID,
		Decision:  decision,
		Reviewer:  reviewer(i),
	})
	switch {
	case errors.Is(err, pipeline.ErrStaleAction):
		h.followup(r, i, reply{content: "This application has already been processed."})
	case err != nil:
		h.logger.Error("applying decision", "message", i.Message.ID, "error", err)
		h.followup(r, i, reply{content: "Error: " + err.Error()})
	case len(report.Notes) > 0:
		h.followup(r, i, reply{content: strings.Join(report.Notes, "\n")})
	}
}

func (h *Handler) handleCommand(ctx context.Context, r Responder, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	cmd, ok := h.commands[data.Name]
	if !ok {
		h.respondEphemeral(r, i, "Unknown command.")
		return
	}
	if denied := h.authorize(i, cmd.access); denied != "" {
		h.respondEphemeral(r, i, denied)
		return
	}
	if err := r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		h.logger.Warn("acknowledging command", "command", data.Name, "error", err)
		return
	}

	inv := newInvocation(i, data)
	out, err := cmd.run(ctx, h, inv)
	if err != nil {
		h.logger.Info("command failed", "command", data.Name, "error", err)
		out = reply{content: describeError(err)}
	}
	h.followup(r, i, out)
}

type access int

const (
	accessAdmin access = iota
	accessManaged
)

// authorize returns the refusal to show, or "" when the caller may proceed.
// Administrators may do everything; managed roles unlock the rest.
func (h *Handler) authorize(i *discordgo.Interaction, level access) string {
	if i.Member == nil {
		return "This command must be used in a server."
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return ""
	}
	if level == accessAdmin {
		return "You need the Administrator permission to use this command."
	}
	s := h.settings.Snapshot()
	if len(s.ManagedRoleIDs) == 0 {
		return "No management roles configured. Access denied."
	}
	if !s.IsManagedRole(i.Member.Roles) {
		return "You do not have the required role to use this command."
	}
	return ""
}

func reviewer(i *discordgo.Interaction) pipeline.Reviewer {
	if i.Member == nil || i.Member.User == nil {
		return pipeline.Reviewer{}
	}
	name := i.Member.Nick
	if name == "" {
		name = i.Member.User.Username
	}
	return pipeline.Reviewer{ID: i.Member.User.ID, Name: name}
}

func (h *Handler) respondEphemeral(r Responder, i *discordgo.Interaction, content string) {
	err := r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		h.logger.Warn("responding to interaction", "error", err)
	}
}

// Discord accepts at most ten embeds per message.
const maxEmbedsPerMessage = 10

func (h *Handler) followup(r Responder, i *discordgo.Interaction, out reply) {
	if out.content == "" && len(out.embeds) == 0 {
		out.content = "Done."
	}
	embeds := out.embeds
	first := true
	for first || len(embeds) > 0 {
		n := min(len(embeds), maxEmbedsPerMessage)
		params := &discordgo.WebhookParams{Embeds: embeds[:n], Flags: discordgo.MessageFlagsEphemeral}
		if first {
			params.Content = truncate(out.content, 2000)
		}
		if _, err := r.FollowupMessageCreate(i, true, params); err != nil {
			h.logger.Warn("sending follow-up", "error", err)
			return
		}
		embeds = embeds[n:]
		first = false
	}
}

func describeError(err error) string {
	switch {
	case errors.Is(err, config.ErrNotConfigured):
		return "Not configured: " + err.Error()
	case errors.Is(err, errors.NotValid):
		return "Invalid input: " + err.Error()
	case errors.Is(err, errors.NotFound):
		return "Not found: " + err.Error()
	}
	return "Error: " + err.Error()
}

// invocation gives typed access to a slash command's options.
type invocation struct {
	interaction *discordgo.Interaction
	options     map[string]*discordgo.ApplicationCommandInteractionDataOption
}

func newInvocation(i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) *invocation {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, o := range data.Options {
		opts[o.Name] = o
	}
	return &invocation{interaction: i, options: opts}
}

// str returns the option value as a string. User, channel and role options
// carry their snowflake.
func (inv *invocation) str(name string) string {
	o, ok := inv.options[name]
	if !ok {
		return ""
	}
	switch v := o.Value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(o.Value)
}

func (inv *invocation) guildID() string {
	return inv.interaction.GuildID
}

func (inv *invocation) caller() pipeline.Reviewer {
	return reviewer(inv.interaction)
}
