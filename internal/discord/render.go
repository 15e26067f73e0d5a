package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/pipeline"
)

const (
	acceptButtonID = "persistent_accept_button"
	denyButtonID   = "persistent_deny_button"

	colorBlue   = 0x3498db
	colorGreen  = 0x2ecc71
	colorRed    = 0xe74c3c
	colorOrange = 0xe67e22
	colorYellow = 0xf1c40f

	// Discord rejects embed field values longer than this.
	maxFieldValue = 1024
)

func decisionButtons() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Accept", Style: discordgo.SuccessButton, CustomID: acceptButtonID},
			discordgo.Button{Label: "Deny", Style: discordgo.DangerButton, CustomID: denyButtonID},
		}},
	}
}

func decisionFromButton(customID string) (application.Decision, bool) {
	switch customID {
	case acceptButtonID:
		return application.Accept, true
	case denyButtonID:
		return application.Deny, true
	}
	return "", false
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func applicationFields(record application.Record) []*discordgo.MessageEmbedField {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Minecraft IGN", Value: record.InGameName},
		{Name: "Discord User", Value: mention(record.ActorID)},
	}
	for _, f := range record.Fields() {
		fields = append(fields, &discordgo.MessageEmbedField{Name: f.Name, Value: truncate(f.Value, maxFieldValue)})
	}
	return fields
}

func applicationEmbed(record application.Record) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:  "New Whitelist Application",
		Color:  colorBlue,
		Fields: applicationFields(record),
	}
	if !record.SubmittedAt.IsZero() {
		e.Timestamp = record.SubmittedAt.Format(time.RFC3339)
	}
	return e
}

func decidedEmbed(record application.Record, decision application.Decision, reviewer pipeline.Reviewer) *discordgo.MessageEmbed {
	e := applicationEmbed(record)
	e.Title = "Whitelist Application - " + decision.Title()
	e.Color = colorRed
	if decision == application.Accept {
		e.Color = colorGreen
	}
	status := &discordgo.MessageEmbedField{Name: "Status", Value: fmt.Sprintf("%s by %s", decision.Title(), mention(reviewer.ID))}
	e.Fields = append([]*discordgo.MessageEmbedField{status}, e.Fields...)
	return e
}

func noticeEmbed(n pipeline.Notice) *discordgo.MessageEmbed {
	switch n {
	case pipeline.NoticeAccepted:
		return &discordgo.MessageEmbed{
			Title:       "Application Accepted!",
			Description: "Congratulations! Your whitelist application has been accepted. You should now be able to join the Minecraft server.",
			Color:       colorGreen,
		}
	case pipeline.NoticeDenied:
		return &discordgo.MessageEmbed{
			Title:       "Application Denied",
			Description: "We regret to inform you that your whitelist application has been denied at this time.",
			Color:       colorRed,
		}
	default:
		return &discordgo.MessageEmbed{
			Title:       "Application Submitted",
			Description: "Your whitelist application has been successfully submitted and is awaiting review by staff.",
			Color:       colorOrange,
		}
	}
}

func welcomeMessage(w pipeline.Welcome) *discordgo.MessageSend {
	if !w.Introduction {
		return &discordgo.MessageSend{Content: fmt.Sprintf("Welcome %s to the server! 🎉", mention(w.UserID))}
	}
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{{
		Title:       fmt.Sprintf("Meet %s! 👋", w.InGameName),
		Description: fmt.Sprintf("%s just joined the server! Here's a little about them:", mention(w.UserID)),
		Color:       colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "About Me", Value: truncate(w.AboutMe, maxFieldValue)},
		},
	}}}
}

// pages splits lines into embed descriptions of at most perPage lines.
func pages(lines []string, perPage int) [][]string {
	var out [][]string
	for len(lines) > perPage {
		out = append(out, lines[:perPage])
		lines = lines[perPage:]
	}
	if len(lines) > 0 {
		out = append(out, lines)
	}
	return out
}
