package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tysmp/whitelist/internal/admin"
	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/config"
	"tysmp/whitelist/internal/links"
	"tysmp/whitelist/internal/pipeline"
	"tysmp/whitelist/internal/queue"
	"tysmp/whitelist/internal/store"
	"tysmp/whitelist/internal/store/memory"
)

type fakeResponder struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
}

func (r *fakeResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
	return nil
}

func (r *fakeResponder) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.followups = append(r.followups, data)
	return &discordgo.Message{}, nil
}

func (r *fakeResponder) lastFollowup(t *testing.T) *discordgo.WebhookParams {
	t.Helper()
	require.NotEmpty(t, r.followups)
	return r.followups[len(r.followups)-1]
}

// fakeGuild stands in for both the review board and the community.
type fakeGuild struct {
	mu      sync.Mutex
	posts   int
	decided []string
}

func (g *fakeGuild) Post(context.Context, string, application.Record) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.posts++
	return fmt.Sprintf("m%d", g.posts), nil
}

func (g *fakeGuild) MarkDecided(_ context.Context, _, messageID string, _ application.Record, _ application.Decision, _ pipeline.Reviewer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.decided = append(g.decided, messageID)
	return nil
}

func (g *fakeGuild) Reattach(context.Context, string, string, application.Record) error { return nil }

func (g *fakeGuild) Member(_ context.Context, _, userID string) (pipeline.Member, error) {
	return pipeline.Member{ID: userID, DisplayName: "member" + userID}, nil
}

func (g *fakeGuild) Members(context.Context, string) ([]pipeline.Member, error) { return nil, nil }

func (g *fakeGuild) SetNickname(context.Context, string, string, string) error { return nil }

func (g *fakeGuild) GrantRole(context.Context, string, string, string) error { return nil }

func (g *fakeGuild) DirectMessage(context.Context, string, pipeline.Notice) error { return nil }

func (g *fakeGuild) Announce(context.Context, string, pipeline.Welcome) error { return nil }

type echoGateway struct {
	mu       sync.Mutex
	commands []string
}

func (g *echoGateway) Execute(_ context.Context, command string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commands = append(g.commands, command)
	return "ok: " + command, nil
}

type handlerHarness struct {
	handler   *Handler
	pipeline  *pipeline.Pipeline
	links     *links.Registry
	settings  *config.Live
	guild     *fakeGuild
	gateway   *echoGateway
	responder *fakeResponder
}

func newHandlerHarness(t *testing.T) *handlerHarness {
	t.Helper()
	ctx := context.Background()
	s := store.New(memory.New())
	live, err := config.LoadLive(ctx, config.NewKVSettings(s))
	require.NoError(t, err)
	require.NoError(t, live.Set(ctx, store.KeyWhitelistCommand, "whitelist add"))

	h := &handlerHarness{
		links:     links.New(s),
		settings:  live,
		guild:     &fakeGuild{},
		gateway:   &echoGateway{},
		responder: &fakeResponder{},
	}
	clk := testclock.NewClock(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	q := queue.New(s)
	h.pipeline, err = pipeline.New(pipeline.Config{
		Queue:     q,
		Pending:   queue.NewPending(s),
		Links:     h.links,
		Board:     h.guild,
		Community: h.guild,
		Gateway:   h.gateway,
		Settings:  live,
		Clock:     clk,
	})
	require.NoError(t, err)
	svc, err := admin.New(admin.Config{
		Links:    h.links,
		Queue:    q,
		Gateway:  h.gateway,
		Guild:    h.guild,
		Settings: live,
		Clock:    clk,
	})
	require.NoError(t, err)
	h.handler = NewHandler(h.pipeline, svc, live, nil)
	return h
}

func adminMember(id string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: "admin" + id}, Permissions: discordgo.PermissionAdministrator}
}

func staffMember(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: "staff" + id}, Roles: roles}
}

func commandInteraction(member *discordgo.Member, name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "1",
		Member:  member,
		Data:    discordgo.ApplicationCommandInteractionData{Name: name, Options: options},
	}
}

func option(t discordgo.ApplicationCommandOptionType, name string, value any) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Type: t, Name: name, Value: value}
}

func buttonInteraction(member *discordgo.Member, messageID, customID string) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "1",
		ChannelID: "100",
		Member:    member,
		Message:   &discordgo.Message{ID: messageID},
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID},
	}
}

func TestCommandTableIsConsistent(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range commandTable() {
		require.NotNil(t, c.def)
		require.NotNil(t, c.run, c.def.Name)
		assert.False(t, seen[c.def.Name], "duplicate %s", c.def.Name)
		seen[c.def.Name] = true
		assert.NotEmpty(t, c.def.Description, c.def.Name)
		if c.access == accessAdmin {
			require.NotNil(t, c.def.DefaultMemberPermissions, c.def.Name)
			assert.Equal(t, int64(discordgo.PermissionAdministrator), *c.def.DefaultMemberPermissions)
		}
	}
	for _, name := range []string{"set_channel", "rcon", "relink", "notes", "flag", "cleanup_database", "requeue_dead_letters"} {
		assert.True(t, seen[name], name)
	}
}

func TestSetChannelStoresGuildToo(t *testing.T) {
	h := newHandlerHarness(t)
	h.handler.Handle(h.responder, commandInteraction(adminMember("7"), "set_channel",
		option(discordgo.ApplicationCommandOptionChannel, "channel", "100")))

	require.Len(t, h.responder.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, h.responder.responses[0].Type)
	assert.Contains(t, h.responder.lastFollowup(t).Content, "<#100>")

	guild, channel, err := h.settings.Snapshot().ReviewDestination()
	require.NoError(t, err)
	assert.Equal(t, "1", guild)
	assert.Equal(t, "100", channel)
}

func TestSetRconDetailsTakesIntegerPort(t *testing.T) {
	h := newHandlerHarness(t)
	h.handler.Handle(h.responder, commandInteraction(adminMember("7"), "set_rcon_details",
		option(discordgo.ApplicationCommandOptionString, "host", "mc.example.net"),
		option(discordgo.ApplicationCommandOptionInteger, "port", float64(25575)),
		option(discordgo.ApplicationCommandOptionString, "password", "hunter2")))

	s := h.settings.Snapshot()
	assert.Equal(t, "mc.example.net", s.RconHost)
	assert.Equal(t, 25575, s.RconPort)
	assert.Equal(t, "hunter2", s.RconPassword)
	assert.Equal(t, "RCON details updated: mc.example.net:25575", h.responder.lastFollowup(t).Content)
}

func TestAuthorization(t *testing.T) {
	h := newHandlerHarness(t)

	h.handler.Handle(h.responder, commandInteraction(staffMember("8", "staff"), "set_channel",
		option(discordgo.ApplicationCommandOptionChannel, "channel", "100")))
	require.Len(t, h.responder.responses, 1)
	assert.Contains(t, h.responder.responses[0].Data.Content, "Administrator")

	h.handler.Handle(h.responder, commandInteraction(staffMember("8", "staff"), "rcon",
		option(discordgo.ApplicationCommandOptionString, "command", "list")))
	assert.Equal(t, "No management roles configured. Access denied.", h.responder.responses[1].Data.Content)
	assert.Empty(t, h.gateway.commands)

	_, err := h.settings.AddManagedRole(context.Background(), "staff")
	require.NoError(t, err)
	h.handler.Handle(h.responder, commandInteraction(staffMember("9", "everyone"), "rcon",
		option(discordgo.ApplicationCommandOptionString, "command", "list")))
	assert.Equal(t, "You do not have the required role to use this command.", h.responder.responses[2].Data.Content)

	h.handler.Handle(h.responder, commandInteraction(staffMember("8", "staff"), "rcon",
		option(discordgo.ApplicationCommandOptionString, "command", "/list")))
	assert.Equal(t, []string{"list"}, h.gateway.commands)
	assert.Equal(t, "RCON Success: ```ok: list```", h.responder.lastFollowup(t).Content)
}

func TestDirectMessageIsRefused(t *testing.T) {
	h := newHandlerHarness(t)
	i := commandInteraction(nil, "rcon", option(discordgo.ApplicationCommandOptionString, "command", "list"))
	h.handler.Handle(h.responder, i)
	assert.Equal(t, "This command must be used in a server.", h.responder.responses[0].Data.Content)
}

func TestCommandErrorsAreDescribed(t *testing.T) {
	h := newHandlerHarness(t)
	h.handler.Handle(h.responder, commandInteraction(adminMember("7"), "flag",
		option(discordgo.ApplicationCommandOptionString, "flag_type", "purple"),
		option(discordgo.ApplicationCommandOptionString, "minecraft_username", "Steve")))
	assert.True(t, strings.HasPrefix(h.responder.lastFollowup(t).Content, "Invalid input: "))
}

func TestListWhitelistedPlayersPages(t *testing.T) {
	h := newHandlerHarness(t)
	ctx := context.Background()
	for n := range 25 {
		require.NoError(t, h.links.Link(ctx, fmt.Sprint(1000+n), fmt.Sprintf("player%02d", n)))
	}
	h.handler.Handle(h.responder, commandInteraction(adminMember("7"), "list_whitelisted_players"))

	got := h.responder.lastFollowup(t)
	require.Len(t, got.Embeds, 2)
	assert.Equal(t, "Whitelisted Players (Page 1/2)", got.Embeds[0].Title)
	assert.Equal(t, 20, strings.Count(got.Embeds[0].Description, "\n")+1)
	assert.Contains(t, got.Embeds[1].Description, "**player24** → <@1024>")
}

func TestButtonClickDecidesOnce(t *testing.T) {
	h := newHandlerHarness(t)
	ctx := context.Background()
	require.NoError(t, h.settings.Set(ctx, store.KeyGuild, "1"))
	require.NoError(t, h.settings.Set(ctx, store.KeyChannel, "100"))
	_, err := h.settings.AddManagedRole(ctx, "staff")
	require.NoError(t, err)

	require.NoError(t, h.pipeline.Submit(ctx, application.Record{ActorID: "42", InGameName: "Steve"}))
	moved, err := h.pipeline.Tick(ctx)
	require.NoError(t, err)
	require.True(t, moved)

	h.handler.Handle(h.responder, buttonInteraction(staffMember("8", "staff"), "m1", acceptButtonID))
	require.Len(t, h.responder.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, h.responder.responses[0].Type)
	assert.Equal(t, []string{"m1"}, h.guild.decided)
	assert.Equal(t, []string{"whitelist add Steve"}, h.gateway.commands)

	name, err := h.links.FindByActor(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Steve", name)

	h.handler.Handle(h.responder, buttonInteraction(staffMember("8", "staff"), "m1", denyButtonID))
	assert.Equal(t, "This application has already been processed.", h.responder.lastFollowup(t).Content)
	assert.Len(t, h.guild.decided, 1)
}

func TestButtonClickNeedsManagedRole(t *testing.T) {
	h := newHandlerHarness(t)
	_, err := h.settings.AddManagedRole(context.Background(), "staff")
	require.NoError(t, err)

	h.handler.Handle(h.responder, buttonInteraction(staffMember("9"), "m1", acceptButtonID))
	require.Len(t, h.responder.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, h.responder.responses[0].Type)
	assert.Empty(t, h.guild.decided)
}
