package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/juju/errors"

	"tysmp/whitelist/internal/admin"
	"tysmp/whitelist/internal/links"
	"tysmp/whitelist/internal/store"
)

type reply struct {
	content string
	embeds  []*discordgo.MessageEmbed
}

type command struct {
	def    *discordgo.ApplicationCommand
	access access
	run    func(ctx context.Context, h *Handler, inv *invocation) (reply, error)
}

var adminPermission = int64(discordgo.PermissionAdministrator)

func opt(t discordgo.ApplicationCommandOptionType, name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: t, Name: name, Description: description, Required: required}
}

func adminOnly(def *discordgo.ApplicationCommand) *discordgo.ApplicationCommand {
	def.DefaultMemberPermissions = &adminPermission
	return def
}

var flagChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "Positive", Value: string(links.FlagPositive)},
	{Name: "Amber Warning", Value: string(links.FlagAmber)},
	{Name: "Negative", Value: string(links.FlagNegative)},
}

func targetOptions(what string) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		opt(discordgo.ApplicationCommandOptionUser, "discord_user", "Discord user to "+what, false),
		opt(discordgo.ApplicationCommandOptionString, "minecraft_username", "Minecraft username to "+what, false),
	}
}

func commandTable() []command {
	flagOpt := opt(discordgo.ApplicationCommandOptionString, "flag_type", "Type of flag", true)
	flagOpt.Choices = append(append([]*discordgo.ApplicationCommandOptionChoice{}, flagChoices...),
		&discordgo.ApplicationCommandOptionChoice{Name: "Remove Flag", Value: admin.FlagRemove})
	filterOpt := opt(discordgo.ApplicationCommandOptionString, "flag_filter", "Filter by flag type", false)
	filterOpt.Choices = flagChoices

	return []command{
		// configuration
		{
			def: adminOnly(&discordgo.ApplicationCommand{
				Name:        "set_channel",
				Description: "Sets the channel for whitelist applications (Admin Only).",
				Options:     []*discordgo.ApplicationCommandOption{opt(discordgo.ApplicationCommandOptionChannel, "channel", "The channel where applications will be posted.", true)},
			}),
			access: accessAdmin,
			run:    runSetChannel,
		},
		{
			def: adminOnly(&discordgo.ApplicationCommand{
				Name:        "set_chat_channel",
				Description: "Set the channel for welcome/intro messages (Admin Only).",
				Options:     []*discordgo.ApplicationCommandOption{opt(discordgo.ApplicationCommandOptionChannel, "channel", "The channel where welcome messages will be posted.", true)},
			}),
			access: accessAdmin,
			run:    setting(store.KeyChatChannel, "channel", "Welcome messages will now be posted in <#%s>."),
		},
		{
			def: adminOnly(&discordgo.ApplicationCommand{
				Name:        "set_intro_channel",
				Description: "Set the channel for introduction messages (Admin Only).",
				Options:     []*discordgo.ApplicationCommandOption{opt(discordgo.ApplicationCommandOptionChannel, "channel", "The channel where introductions will be posted.", true)},
			}),
			access: accessAdmin,
			run:    setting(store.KeyIntroChannel, "channel", "Introductions will now be posted in <#%s>."),
		},
		{
			def: adminOnly(&discordgo.ApplicationCommand{
				Name:        "set_member_role",
				Description: "Set the role to give members upon whitelist acceptance (Admin Only).",
				Options:     []*discordgo.ApplicationCommandOption{opt(discordgo.ApplicationCommandOptionRole, "role", "Role granted on acceptance.", true)},
			}),
			access: accessAdmin,
			run:    setting(store.KeyMemberRole, "role", "Accepted applicants will now receive <@&%s>."),
		},
		{
			def: adminOnly(&discordgo.ApplicationCommand{
				Name:        "add_management_role",
				Description: "Add a role that can use bot management commands (Admin Only).",
				Options:     []*discordgo.ApplicationCommandOption{opt(discordgo.ApplicationCommandOptionRole, "role", "Role to add.", true)},
			}),
			access: accessAdmin,
			run:    runAddManagementRole,
		},
		{
			def: adminOnly(&discordgo.ApplicationCommand{
				Name:        "remove_management_role",
				Description: "Remove a role from bot management (Admin Only).",
				Options:     []*discordgo.ApplicationCommandOption{opt(discordgo.ApplicationCommandOptionRole, "role", "Role to remove.", true)},
			}),
			access: accessAdmin,
			run:    runRemoveManagementRole,
		},
		{
			def: adminOnly(&discordgo.ApplicationCommand{
				Name:        "set_rcon_details",
				Description: "Update RCON connection settings (Admin Only).",
				Options: []*discordgo.ApplicationCommandOption{
					opt(discordgo.ApplicationCommandOptionString, "host", "RCON host", true),
					opt(discordgo.ApplicationCommandOptionInteger, "port", "RCON port", true),
					opt(discordgo.ApplicationCommandOptionString, "password", "RCON password", true),
				},
			}),
			access: accessAdmin,
			run:    runSetRconDetails,
		},
		{
			def: adminOnly(&discordgo.ApplicationCommand{
				Name:        "set_whitelist_rcon_command",
				Description: "Set the RCON command for whitelisting (Admin Only).",
				Options:     []*discordgo.ApplicationCommandOption{opt(discordgo.ApplicationCommandOptionString, "command", "Command the username is appended to, e.g. whitelist add", true)},
			}),
			access: accessAdmin,
			run:    setting(store.KeyWhitelistCommand, "command", "Whitelist command set to `%s`."),
		},

		// server
		{
			def: &discordgo.ApplicationCommand{
				Name:        "rcon",
				Description: "Execute an RCON command on the Minecraft server.",
				Options:     []*discordgo.ApplicationCommandOption{opt(discordgo.ApplicationCommandOptionString, "command", "The command to execute (without '/')", true)},
			},
			access: accessManaged,
			run: func(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
				out, err := h.admin.RunCommand(ctx, inv.str("command"))
				if err != nil {
					return reply{}, err
				}
				return reply{content: "RCON Success: ```" + out + "```"}, nil
			},
		},
		{
			def: adminOnly(&discordgo.ApplicationCommand{
				Name:        "test_rcon_connection",
				Description: "Test RCON connectivity to the server (Admin Only).",
			}),
			access: accessAdmin,
			run: func(ctx context.Context, h *Handler, _ *invocation) (reply, error) {
				out, err := h.admin.TestConnection(ctx)
				if err != nil {
					return reply{content: "RCON connection failed: " + err.Error()}, nil
				}
				return reply{content: "RCON connection successful! Response: ```" + out + "```"}, nil
			},
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:        "manual_whitelist",
				Description: "Manually whitelist a Minecraft user via RCON.",
				Options:     []*discordgo.ApplicationCommandOption{opt(discordgo.ApplicationCommandOptionString, "username", "Minecraft username", true)},
			},
			access: accessManaged,
			run: func(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
				name := inv.str("username")
				out, err := h.admin.ManualWhitelist(ctx, name)
				if err != nil {
					return reply{}, errors.Annotatef(err, "whitelisting %s", name)
				}
				return reply{content: fmt.Sprintf("Successfully whitelisted %s: %s", name, out)}, nil
			},
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:        "remove_whitelist",
				Description: "Remove a player from the whitelist via RCON.",
				Options:     []*discordgo.ApplicationCommandOption{opt(discordgo.ApplicationCommandOptionString, "username", "Minecraft username to remove", true)},
			},
			access: accessManaged,
			run:    runRemoveWhitelist,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:        "bulk_remove_whitelist",
				Description: "Remove multiple players from whitelist (comma-separated usernames).",
				Options:     []*discordgo.ApplicationCommandOption{opt(discordgo.ApplicationCommandOptionString, "usernames", "Comma-separated list of Minecraft usernames to remove", true)},
			},
			access: accessManaged,
			run:    runBulkRemove,
		},

		// moderation
		{
			def: &discordgo.ApplicationCommand{
				Name:        "relink",
				Description: "Relink a Discord user to a different Minecraft username or fix incorrect links.",
				Options: []*discordgo.ApplicationCommandOption{
					opt(discordgo.ApplicationCommandOptionUser, "discord_user", "Discord user to relink", true),
					opt(discordgo.ApplicationCommandOptionString, "new_minecraft_username", "New Minecraft username to link to this Discord user", true),
				},
			},
			access: accessManaged,
			run:    runRelink,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:        "notes",
				Description: "View or add notes for a user.",
				Options: append(targetOptions("add a note for"),
					opt(discordgo.ApplicationCommandOptionString, "note", "Note to add (leave empty to view existing notes)", false)),
			},
			access: accessManaged,
			run:    runNotes,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:        "flag",
				Description: "Flag a user positively or negatively.",
				Options:     append([]*discordgo.ApplicationCommandOption{flagOpt}, targetOptions("flag")...),
			},
			access: accessManaged,
			run:    runFlag,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:        "list_flags",
				Description: "List all flagged users sorted from worst to best.",
				Options:     []*discordgo.ApplicationCommandOption{filterOpt},
			},
			access: accessManaged,
			run:    runListFlags,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:        "find_player",
				Description: "Find a player's information by Discord user or Minecraft username.",
				Options:     targetOptions("search for"),
			},
			access: accessManaged,
			run:    runFindPlayer,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:        "remove_player_data",
				Description: "Remove a player's data from the bot's database.",
				Options:     targetOptions("remove data for"),
			},
			access: accessManaged,
			run:    runRemovePlayerData,
		},
		{
			def: &discordgo.ApplicationCommand{
				Name:        "list_whitelisted_players",
				Description: "List all whitelisted players in the database.",
			},
			access: accessManaged,
			run:    runListWhitelisted,
		},

		// maintenance
		{
			def: adminOnly(&discordgo.ApplicationCommand{
				Name:        "cleanup_database",
				Description: "Remove links of members who left and take them off the whitelist (Admin Only).",
			}),
			access: accessAdmin,
			run:    runCleanup,
		},
		{
			def: adminOnly(&discordgo.ApplicationCommand{
				Name:        "requeue_dead_letters",
				Description: "Queue applications that could not be posted for review again (Admin Only).",
			}),
			access: accessAdmin,
			run: func(ctx context.Context, h *Handler, _ *invocation) (reply, error) {
				n, err := h.admin.RequeueDeadLetters(ctx)
				if err != nil {
					return reply{}, err
				}
				return reply{content: fmt.Sprintf("Requeued %d application(s).", n)}, nil
			},
		},
	}
}

// setting builds a command that stores one option under key.
func setting(key, option, confirmation string) func(context.Context, *Handler, *invocation) (reply, error) {
	return func(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
		value := inv.str(option)
		if err := h.settings.Set(ctx, key, value); err != nil {
			return reply{}, err
		}
		return reply{content: fmt.Sprintf(confirmation, value)}, nil
	}
}

func runSetChannel(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	channel := inv.str("channel")
	if err := h.settings.Set(ctx, store.KeyChannel, channel); err != nil {
		return reply{}, err
	}
	if err := h.settings.Set(ctx, store.KeyGuild, inv.guildID()); err != nil {
		return reply{}, err
	}
	return reply{content: fmt.Sprintf("Whitelist applications will now be posted in <#%s>.", channel)}, nil
}

func runAddManagementRole(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	role := inv.str("role")
	added, err := h.settings.AddManagedRole(ctx, role)
	if err != nil {
		return reply{}, err
	}
	if !added {
		return reply{content: fmt.Sprintf("<@&%s> is already a management role.", role)}, nil
	}
	return reply{content: fmt.Sprintf("Added <@&%s> to management roles.", role)}, nil
}

func runRemoveManagementRole(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	role := inv.str("role")
	removed, err := h.settings.RemoveManagedRole(ctx, role)
	if err != nil {
		return reply{}, err
	}
	if !removed {
		return reply{content: fmt.Sprintf("<@&%s> is not a management role.", role)}, nil
	}
	return reply{content: fmt.Sprintf("Removed <@&%s> from management roles.", role)}, nil
}

func runSetRconDetails(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	for _, kv := range [][2]string{
		{store.KeyRconHost, inv.str("host")},
		{store.KeyRconPort, inv.str("port")},
		{store.KeyRconPassword, inv.str("password")},
	} {
		if err := h.settings.Set(ctx, kv[0], kv[1]); err != nil {
			return reply{}, err
		}
	}
	return reply{content: fmt.Sprintf("RCON details updated: %s:%s", inv.str("host"), inv.str("port"))}, nil
}

func runRemoveWhitelist(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	name := inv.str("username")
	out, removed, err := h.admin.RemoveWhitelist(ctx, name)
	if err != nil {
		return reply{}, errors.Annotatef(err, "removing %s from whitelist", name)
	}
	msg := fmt.Sprintf("Successfully removed %s from whitelist: %s", name, out)
	if len(removed) > 0 {
		msg += fmt.Sprintf("\nRemoved %d link(s) from database.", len(removed))
	}
	return reply{content: msg}, nil
}

func runBulkRemove(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	results, err := h.admin.BulkRemoveWhitelist(ctx, inv.str("usernames"))
	if err != nil {
		return reply{}, err
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			lines = append(lines, fmt.Sprintf("❌ **%s**: %v", r.Username, r.Err))
			continue
		}
		lines = append(lines, fmt.Sprintf("✅ **%s**: Removed from whitelist (DB entries: %d)", r.Username, r.LinksRemoved))
	}
	return reply{embeds: []*discordgo.MessageEmbed{{
		Title:       "Bulk Whitelist Removal Results",
		Description: strings.Join(lines, "\n"),
		Color:       colorOrange,
	}}}, nil
}

func runRelink(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	actor, name := inv.str("discord_user"), inv.str("new_minecraft_username")
	res, err := h.admin.Relink(ctx, actor, name)
	if err != nil {
		return reply{}, err
	}
	parts := []string{fmt.Sprintf("Successfully relinked %s to **%s**", mention(actor), name)}
	if res.Previous != "" {
		parts = append(parts, fmt.Sprintf("Previous link: **%s** → %s", res.Previous, mention(actor)))
	}
	if res.Displaced != "" {
		parts = append(parts, fmt.Sprintf("Removed conflicting link: **%s** → %s", name, ownerLabel(res.Displaced)))
	}
	switch {
	case res.NicknameUpdated:
		parts = append(parts, fmt.Sprintf("Updated Discord nickname to **%s**", name))
	case !strings.EqualFold(res.Previous, name):
		parts = append(parts, "⚠️ Could not update Discord nickname (insufficient permissions)")
	}
	if res.RemovedOld {
		parts = append(parts, fmt.Sprintf("Removed **%s** from server whitelist", res.Previous))
	}
	switch {
	case res.Whitelisted:
		parts = append(parts, fmt.Sprintf("Added **%s** to server whitelist", name))
	case res.WhitelistErr != nil:
		parts = append(parts, fmt.Sprintf("⚠️ Failed to whitelist **%s**: %v", name, res.WhitelistErr))
	}
	return reply{embeds: []*discordgo.MessageEmbed{{
		Title:       "Player Relinked Successfully",
		Description: strings.Join(parts, "\n"),
		Color:       colorGreen,
	}}}, nil
}

func ownerLabel(actorID string) string {
	if links.IsManual(actorID) {
		return "Manual entry"
	}
	return mention(actorID)
}

func target(inv *invocation) admin.Target {
	return admin.Target{ActorID: inv.str("discord_user"), Username: inv.str("minecraft_username")}
}

func targetLabel(t admin.Target) string {
	if t.ActorID != "" {
		return mention(t.ActorID)
	}
	return t.Username
}

func runNotes(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	t := target(inv)
	if note := inv.str("note"); note != "" {
		if err := h.admin.AddNote(ctx, t, note, inv.caller().Name); err != nil {
			return reply{}, err
		}
		return reply{content: "Added note for " + targetLabel(t) + "."}, nil
	}
	notes, err := h.admin.Notes(ctx, t)
	if err != nil {
		return reply{}, err
	}
	if len(notes) == 0 {
		return reply{content: "No notes found for " + targetLabel(t) + "."}, nil
	}
	embed := &discordgo.MessageEmbed{Title: "Notes for " + targetLabel(t), Color: colorBlue}
	for n, note := range notes {
		if n == 25 {
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Note %d - %s", n+1, note.Author),
			Value: truncate(fmt.Sprintf("%s\n*%s*", note.Text, note.Timestamp.Format("2006-01-02 15:04 MST")), maxFieldValue),
		})
	}
	return reply{embeds: []*discordgo.MessageEmbed{embed}}, nil
}

var flagEmoji = map[links.Flag]string{
	links.FlagPositive: "🟢",
	links.FlagAmber:    "🟡",
	links.FlagNegative: "🔴",
}

func flagTitle(f links.Flag) string {
	s := string(f)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func runFlag(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	t := target(inv)
	flag := inv.str("flag_type")
	if err := h.admin.SetFlag(ctx, t, flag); err != nil {
		return reply{}, err
	}
	if flag == admin.FlagRemove {
		return reply{content: "Removed flag for " + targetLabel(t) + "."}, nil
	}
	return reply{content: fmt.Sprintf("Flagged %s as %s %s", targetLabel(t), flag, flagEmoji[links.Flag(flag)])}, nil
}

func runListFlags(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	filter := links.Flag(inv.str("flag_filter"))
	flagged, err := h.admin.ListFlags(ctx, filter)
	if err != nil {
		return reply{}, err
	}
	if len(flagged) == 0 {
		return reply{content: "No flagged users found in the database."}, nil
	}
	lines := make([]string, 0, len(flagged))
	for _, f := range flagged {
		who := "Minecraft: " + f.ActorID
		if f.Username != "" {
			who = fmt.Sprintf("%s → %s", ownerLabel(f.ActorID), f.Username)
		}
		lines = append(lines, fmt.Sprintf("%s **%s**: %s", flagEmoji[f.Flag], flagTitle(f.Flag), who))
	}
	label := "All Flags"
	if filter != "" {
		label = flagTitle(filter)
	}
	return reply{embeds: pagedEmbeds("Flagged Users ("+label+")", lines, colorOrange, "Sorted from worst to best: Red → Amber → Green")}, nil
}

func runFindPlayer(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	found, err := h.admin.FindPlayer(ctx, target(inv))
	if err != nil {
		return reply{}, err
	}
	if len(found) == 0 {
		return reply{content: "No matching players found in the database."}, nil
	}
	embed := &discordgo.MessageEmbed{Title: "Player Search Results", Color: colorGreen}
	for n, p := range found {
		var b strings.Builder
		fmt.Fprintf(&b, "Minecraft: %s", p.Username)
		if p.Manual {
			b.WriteString("\nType: Manual whitelist")
		} else {
			fmt.Fprintf(&b, "\nDiscord: %s", mention(p.ActorID))
		}
		if p.Flag != "" {
			fmt.Fprintf(&b, "\nFlag: %s %s", flagTitle(p.Flag), flagEmoji[p.Flag])
		}
		if p.NoteCount > 0 {
			fmt.Fprintf(&b, "\nNotes: %d note(s)", p.NoteCount)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: fmt.Sprintf("Match %d", n+1), Value: b.String()})
	}
	return reply{embeds: []*discordgo.MessageEmbed{embed}}, nil
}

func runRemovePlayerData(ctx context.Context, h *Handler, inv *invocation) (reply, error) {
	removed, err := h.admin.RemovePlayerData(ctx, target(inv))
	if err != nil {
		return reply{}, err
	}
	if len(removed) == 0 {
		return reply{content: "No matching player data found to remove."}, nil
	}
	lines := []string{fmt.Sprintf("Removed %d player link(s) from database:", len(removed))}
	for _, l := range removed {
		lines = append(lines, fmt.Sprintf("• %s → Minecraft: %s", ownerLabel(l.ActorID), l.Username))
	}
	return reply{content: strings.Join(lines, "\n")}, nil
}

func runListWhitelisted(ctx context.Context, h *Handler, _ *invocation) (reply, error) {
	all, err := h.admin.ListWhitelisted(ctx)
	if err != nil {
		return reply{}, err
	}
	if len(all) == 0 {
		return reply{content: "No whitelisted players found in the database."}, nil
	}
	lines := make([]string, 0, len(all))
	for _, l := range all {
		if links.IsManual(l.ActorID) {
			lines = append(lines, fmt.Sprintf("**%s** (Manual)", l.Username))
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s** → %s", l.Username, mention(l.ActorID)))
	}
	return reply{embeds: pagedEmbeds("Whitelisted Players", lines, colorBlue, "")}, nil
}

func runCleanup(ctx context.Context, h *Handler, _ *invocation) (reply, error) {
	report, err := h.admin.Cleanup(ctx)
	if err != nil {
		return reply{}, err
	}
	var sections []string
	if len(report.NotWhitelisted) > 0 {
		lines := []string{fmt.Sprintf("**Members not actually whitelisted (%d):**", len(report.NotWhitelisted))}
		for _, l := range report.NotWhitelisted {
			lines = append(lines, fmt.Sprintf("%s → %s", mention(l.ActorID), l.Username))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if len(report.Removed) > 0 {
		lines := []string{fmt.Sprintf("**Database entries cleaned (%d):**", len(report.Removed))}
		for _, l := range report.Removed {
			lines = append(lines, fmt.Sprintf("Removed: %s (Discord user not in server)", l.Username))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if len(report.RemoveFailed) > 0 {
		sections = append(sections, "**Failed to remove from server whitelist:**\n"+strings.Join(report.RemoveFailed, "\n"))
	}
	if len(sections) == 0 {
		return reply{embeds: []*discordgo.MessageEmbed{{
			Title:       "Database Cleanup Results",
			Description: "✅ Everything looks good! No issues found.",
			Color:       colorYellow,
		}}}, nil
	}
	embeds := make([]*discordgo.MessageEmbed, 0, len(sections))
	for _, s := range sections {
		embeds = append(embeds, &discordgo.MessageEmbed{
			Title:       "Database Cleanup Results",
			Description: truncate(s, 4000),
			Color:       colorYellow,
		})
	}
	return reply{embeds: embeds}, nil
}

const linesPerPage = 20

func pagedEmbeds(title string, lines []string, color int, footer string) []*discordgo.MessageEmbed {
	chunks := pages(lines, linesPerPage)
	out := make([]*discordgo.MessageEmbed, 0, len(chunks))
	for n, chunk := range chunks {
		e := &discordgo.MessageEmbed{Title: title, Description: strings.Join(chunk, "\n"), Color: color}
		if len(chunks) > 1 {
			e.Title = fmt.Sprintf("%s (Page %d/%d)", title, n+1, len(chunks))
		}
		if n == 0 && footer != "" {
			e.Footer = &discordgo.MessageEmbedFooter{Text: footer}
		}
		out = append(out, e)
	}
	return out
}
