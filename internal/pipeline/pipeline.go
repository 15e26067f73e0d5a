// Package pipeline moves whitelist applications from submission to a
// decision: queued records are posted for review one per tick, and a
// reviewer's Accept or Deny runs the whitelist, role and notification side
// effects exactly once.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/im7mortal/kmutex"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/config"
	"tysmp/whitelist/internal/links"
	"tysmp/whitelist/internal/queue"
	"tysmp/whitelist/internal/rcon"
)

// ErrStaleAction is returned when a decision arrives for a post that is no
// longer pending, typically a duplicate click.
const ErrStaleAction = errors.ConstError("application already processed")

// Config holds the collaborators of a Pipeline.
type Config struct {
	Queue     *queue.Queue
	Pending   *queue.Pending
	Links     *links.Registry
	Board     ReviewBoard
	Community Community
	Gateway   Gateway
	Settings  SettingsSource
	Clock     clock.Clock
	Logger    *slog.Logger

	PromRegistry prometheus.Registerer
}

// Validate returns an error if config cannot drive a Pipeline.
func (c Config) Validate() error {
	if c.Queue == nil {
		return errors.NotValidf("nil Queue")
	}
	if c.Pending == nil {
		return errors.NotValidf("nil Pending")
	}
	if c.Links == nil {
		return errors.NotValidf("nil Links")
	}
	if c.Board == nil {
		return errors.NotValidf("nil Board")
	}
	if c.Community == nil {
		return errors.NotValidf("nil Community")
	}
	if c.Gateway == nil {
		return errors.NotValidf("nil Gateway")
	}
	if c.Settings == nil {
		return errors.NotValidf("nil Settings")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	return nil
}

// Pipeline is the application lifecycle.
type Pipeline struct {
	cfg       Config
	logger    *slog.Logger
	decisions *kmutex.Kmutex
	metrics   metrics
}

func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Pipeline{
		cfg:       cfg,
		logger:    logger.With("component", "pipeline"),
		decisions: kmutex.New(),
	}
	p.metrics.init(cfg.PromRegistry)
	return p, nil
}

// Submit queues a validated record.
func (p *Pipeline) Submit(ctx context.Context, record application.Record) error {
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = p.cfg.Clock.Now().UTC()
	}
	if err := p.cfg.Queue.Enqueue(ctx, record); err != nil {
		return errors.Annotatef(err, "queueing application from %s", record.ActorID)
	}
	p.metrics.submitted.Inc()
	p.logger.Info("application queued", "actor", record.ActorID, "in_game_name", record.InGameName)
	return nil
}

// Tick posts at most one queued record for review. It reports whether a
// record left the queue. With no review destination configured nothing is
// dequeued and ErrNotConfigured is returned.
func (p *Pipeline) Tick(ctx context.Context) (bool, error) {
	_, channelID, err := p.cfg.Settings.Snapshot().ReviewDestination()
	if err != nil {
		return false, errors.Trace(err)
	}

	record, err := p.cfg.Queue.DequeueOldest(ctx)
	if errors.Is(err, queue.ErrEmpty) {
		return false, nil
	}
	if err != nil {
		return false, errors.Trace(err)
	}
	logger := p.logger.With("actor", record.ActorID, "in_game_name", record.InGameName)

	if record.ActorID == "" {
		return true, p.deadLetter(ctx, record, "missing applicant id")
	}

	messageID, err := p.cfg.Board.Post(ctx, channelID, record)
	if err != nil {
		logger.Warn("posting application failed", "channel", channelID, "error", err)
		return true, p.deadLetter(ctx, record, err.Error())
	}
	if err := p.cfg.Pending.Put(ctx, messageID, record); err != nil {
		// The post is live but its buttons lead nowhere; keep the record
		// recoverable through the dead-letter list.
		logger.Error("recording review post failed", "orphaned_message", messageID, "error", err)
		return true, p.deadLetter(ctx, record, fmt.Sprintf("recording post %s: %v", messageID, err))
	}
	p.metrics.posted.Inc()
	logger.Info("application posted for review", "message", messageID)

	if err := p.cfg.Community.DirectMessage(ctx, record.ActorID, NoticeSubmitted); err != nil {
		logger.Info("could not send submission confirmation", "error", err)
	}
	return true, nil
}

func (p *Pipeline) deadLetter(ctx context.Context, record application.Record, reason string) error {
	if err := p.cfg.Queue.DeadLetter(ctx, record, reason, p.cfg.Clock.Now().UTC()); err != nil {
		return errors.Annotatef(err, "dead-lettering application from %s", record.ActorID)
	}
	p.metrics.deadLettered.Inc()
	p.logger.Warn("application dead-lettered", "actor", record.ActorID, "reason", reason)
	return nil
}

// DecisionRequest is a reviewer's click on a review post. ChannelID may be
// empty, in which case the configured review channel is assumed.
type DecisionRequest struct {
	MessageID string
	ChannelID string
	Decision  application.Decision
	Reviewer  Reviewer
}

// Report lists what did not go to plan while applying a decision, phrased
// for the reviewer.
type Report struct {
	Notes []string
}

func (r *Report) add(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Decide applies a reviewer's decision. The record leaves PendingReview
// whatever happens to the individual side effects; failures are collected in
// the Report. Decisions on one message are serialized, so a duplicate click
// observes ErrStaleAction.
func (p *Pipeline) Decide(ctx context.Context, req DecisionRequest) (Report, error) {
	var report Report
	if !req.Decision.Valid() {
		return report, errors.NotValidf("decision %q", req.Decision)
	}
	p.decisions.Lock(req.MessageID)
	defer p.decisions.Unlock(req.MessageID)

	record, err := p.cfg.Pending.Get(ctx, req.MessageID)
	if errors.Is(err, errors.NotFound) {
		p.metrics.stale.Inc()
		return report, ErrStaleAction
	}
	if err != nil {
		return report, errors.Trace(err)
	}

	settings := p.cfg.Settings.Snapshot()
	channelID := req.ChannelID
	if channelID == "" {
		channelID = settings.ReviewChannelID
	}
	logger := p.logger.With(
		"message", req.MessageID,
		"actor", record.ActorID,
		"in_game_name", record.InGameName,
		"decision", string(req.Decision),
		"reviewer", req.Reviewer.ID,
	)

	if err := p.cfg.Board.MarkDecided(ctx, channelID, req.MessageID, record, req.Decision, req.Reviewer); err != nil {
		logger.Warn("could not update review post", "error", err)
	}

	member, found := p.member(ctx, settings, record, &report, logger)
	switch req.Decision {
	case application.Accept:
		p.accept(ctx, settings, record, member, found, &report, logger)
	case application.Deny:
		if found {
			p.notify(ctx, member, NoticeDenied, &report, logger)
		}
	}

	if _, err := p.cfg.Pending.Remove(ctx, req.MessageID); err != nil {
		return report, errors.Annotatef(err, "removing pending application %s", req.MessageID)
	}
	p.metrics.decisions.WithLabelValues(string(req.Decision)).Inc()
	logger.Info("application decided", "notes", len(report.Notes))
	return report, nil
}

func (p *Pipeline) member(ctx context.Context, s config.Settings, record application.Record, report *Report, logger *slog.Logger) (Member, bool) {
	if s.GuildID == "" {
		report.add("Guild is not configured; skipped member updates.")
		return Member{}, false
	}
	m, err := p.cfg.Community.Member(ctx, s.GuildID, record.ActorID)
	if err != nil {
		if !errors.Is(err, errors.NotFound) {
			logger.Warn("member lookup failed", "error", err)
		}
		report.add("Could not find user with ID %s in the server to send a DM or assign roles.", record.ActorID)
		return Member{}, false
	}
	return m, true
}

func (p *Pipeline) accept(ctx context.Context, s config.Settings, record application.Record, member Member, found bool, report *Report, logger *slog.Logger) {
	p.whitelist(ctx, s, record, report, logger)
	if !found {
		return
	}

	if err := p.cfg.Community.SetNickname(ctx, s.GuildID, member.ID, record.InGameName); err != nil {
		logger.Info("could not set nickname", "error", err)
	}
	if s.MemberRoleID != "" {
		if err := p.cfg.Community.GrantRole(ctx, s.GuildID, member.ID, s.MemberRoleID); err != nil {
			report.add("Could not assign the member role: %v", err)
		}
	}
	p.welcome(ctx, s, record, member, report, logger)
	p.notify(ctx, member, NoticeAccepted, report, logger)
}

func (p *Pipeline) whitelist(ctx context.Context, s config.Settings, record application.Record, report *Report, logger *slog.Logger) {
	template := strings.TrimSpace(s.WhitelistCommand)
	if template == "" {
		report.add("Whitelist command is not configured; %s was not whitelisted.", record.InGameName)
		return
	}
	command := template + " " + record.InGameName
	out, err := p.cfg.Gateway.Execute(ctx, command)
	switch {
	case errors.Is(err, rcon.ErrConnectionRefused):
		report.add("Failed to whitelist %s: the server refused the RCON connection. Is it running?", record.InGameName)
		return
	case errors.Is(err, rcon.ErrNotConfigured):
		report.add("Failed to whitelist %s: RCON details are not configured.", record.InGameName)
		return
	case err != nil:
		report.add("Failed to whitelist %s via RCON: %v", record.InGameName, err)
		return
	}
	logger.Info("whitelisted", "command", command, "output", out)

	_, displaced, err := p.cfg.Links.Relink(ctx, record.ActorID, record.InGameName)
	if err != nil {
		report.add("Whitelisted %s but could not record the link: %v", record.InGameName, err)
		return
	}
	if displaced != "" {
		report.add("%s was previously linked to %s; that link was replaced.", record.InGameName, displaced)
	}
}

func (p *Pipeline) welcome(ctx context.Context, s config.Settings, record application.Record, member Member, report *Report, logger *slog.Logger) {
	w := Welcome{
		UserID:       member.ID,
		InGameName:   record.InGameName,
		AboutMe:      record.AboutMe,
		Introduction: record.ShowsIntroduction(),
	}
	var channels []string
	if s.ChatChannelID != "" {
		channels = append(channels, s.ChatChannelID)
	}
	if w.Introduction && s.IntroChannelID != "" && s.IntroChannelID != s.ChatChannelID {
		channels = append(channels, s.IntroChannelID)
	}
	if len(channels) == 0 {
		report.add("Chat channel is not configured; no welcome message was sent.")
		return
	}
	for _, ch := range channels {
		if err := p.cfg.Community.Announce(ctx, ch, w); err != nil {
			logger.Warn("could not post welcome", "channel", ch, "error", err)
			report.add("Could not post the welcome message in <#%s>.", ch)
		}
	}
}

func (p *Pipeline) notify(ctx context.Context, member Member, notice Notice, report *Report, logger *slog.Logger) {
	if err := p.cfg.Community.DirectMessage(ctx, member.ID, notice); err != nil {
		logger.Info("could not DM applicant", "error", err)
		report.add("Note: Could not DM user %s (they may have DMs disabled).", member.DisplayName)
	}
}

// RecoverResult counts what Recover did.
type RecoverResult struct {
	Reattached int
	Orphaned   int
	Failed     int
}

// Recover restores decision controls on every pending post after a restart.
// Posts that no longer exist are orphaned: their entries are dropped without
// any whitelist or notification side effects.
func (p *Pipeline) Recover(ctx context.Context) (RecoverResult, error) {
	var result RecoverResult
	_, channelID, err := p.cfg.Settings.Snapshot().ReviewDestination()
	if err != nil {
		return result, errors.Trace(err)
	}
	pending, err := p.cfg.Pending.All(ctx)
	if err != nil {
		return result, errors.Trace(err)
	}
	ids := make([]string, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		err := p.cfg.Board.Reattach(ctx, channelID, id, pending[id])
		switch {
		case err == nil:
			result.Reattached++
		case errors.Is(err, errors.NotFound):
			if _, err := p.cfg.Pending.Remove(ctx, id); err != nil {
				return result, errors.Annotatef(err, "purging orphaned application %s", id)
			}
			result.Orphaned++
			p.metrics.orphaned.Inc()
			p.logger.Info("orphaned application purged", "message", id, "actor", pending[id].ActorID)
		default:
			result.Failed++
			p.logger.Warn("could not reattach review controls", "message", id, "error", err)
		}
	}
	return result, nil
}

type metrics struct {
	submitted    prometheus.Counter
	posted       prometheus.Counter
	deadLettered prometheus.Counter
	orphaned     prometheus.Counter
	stale        prometheus.Counter
	decisions    *prometheus.CounterVec
}

func (m *metrics) init(reg prometheus.Registerer) {
	factory := promauto.With(reg)
	m.submitted = factory.NewCounter(prometheus.CounterOpts{
		Name: "whitelist_applications_submitted_total",
		Help: "Applications accepted into the queue",
	})
	m.posted = factory.NewCounter(prometheus.CounterOpts{
		Name: "whitelist_applications_posted_total",
		Help: "Applications posted for review",
	})
	m.deadLettered = factory.NewCounter(prometheus.CounterOpts{
		Name: "whitelist_applications_dead_lettered_total",
		Help: "Applications that could not be posted for review",
	})
	m.orphaned = factory.NewCounter(prometheus.CounterOpts{
		Name: "whitelist_applications_orphaned_total",
		Help: "Pending applications whose review post disappeared",
	})
	m.stale = factory.NewCounter(prometheus.CounterOpts{
		Name: "whitelist_decisions_stale_total",
		Help: "Decisions received for applications already processed",
	})
	m.decisions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "whitelist_decisions_total",
		Help: "Decisions applied by outcome",
	}, []string{"decision"})
}
