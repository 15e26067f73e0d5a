package pipeline_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/juju/errors"

	"tysmp/whitelist/internal/application"
	"tysmp/whitelist/internal/config"
	"tysmp/whitelist/internal/pipeline"
)

type staticSettings struct {
	mu sync.Mutex
	s  config.Settings
}

func (f *staticSettings) Snapshot() config.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

type decided struct {
	MessageID string
	Decision  application.Decision
	Reviewer  pipeline.Reviewer
}

type fakeBoard struct {
	mu         sync.Mutex
	next       int
	postErr    error
	posts      map[string]application.Record
	decided    []decided
	reattached []string
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{posts: map[string]application.Record{}}
}

func (b *fakeBoard) Post(_ context.Context, _ string, record application.Record) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.postErr != nil {
		return "", b.postErr
	}
	b.next++
	id := fmt.Sprintf("m%d", b.next)
	b.posts[id] = record
	return id, nil
}

func (b *fakeBoard) MarkDecided(_ context.Context, _, messageID string, _ application.Record, d application.Decision, r pipeline.Reviewer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decided = append(b.decided, decided{MessageID: messageID, Decision: d, Reviewer: r})
	return nil
}

func (b *fakeBoard) Reattach(_ context.Context, _, messageID string, _ application.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.posts[messageID]; !ok {
		return errors.NotFoundf("message %s", messageID)
	}
	b.reattached = append(b.reattached, messageID)
	return nil
}

func (b *fakeBoard) postCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.posts)
}

type dm struct {
	UserID string
	Notice pipeline.Notice
}

type fakeCommunity struct {
	mu        sync.Mutex
	members   map[string]pipeline.Member
	dmErr     error
	nicknames map[string]string
	roles     map[string][]string
	dms       []dm
	announced map[string][]pipeline.Welcome
}

func newFakeCommunity(members ...pipeline.Member) *fakeCommunity {
	c := &fakeCommunity{
		members:   map[string]pipeline.Member{},
		nicknames: map[string]string{},
		roles:     map[string][]string{},
		announced: map[string][]pipeline.Welcome{},
	}
	for _, m := range members {
		c.members[m.ID] = m
	}
	return c
}

func (c *fakeCommunity) Member(_ context.Context, _, userID string) (pipeline.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.members[userID]
	if !ok {
		return pipeline.Member{}, errors.NotFoundf("member %s", userID)
	}
	return m, nil
}

func (c *fakeCommunity) SetNickname(_ context.Context, _, userID, nickname string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nicknames[userID] = nickname
	return nil
}

func (c *fakeCommunity) GrantRole(_ context.Context, _, userID, roleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles[userID] = append(c.roles[userID], roleID)
	return nil
}

func (c *fakeCommunity) DirectMessage(_ context.Context, userID string, notice pipeline.Notice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dmErr != nil {
		return c.dmErr
	}
	c.dms = append(c.dms, dm{UserID: userID, Notice: notice})
	return nil
}

func (c *fakeCommunity) Announce(_ context.Context, channelID string, w pipeline.Welcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.announced[channelID] = append(c.announced[channelID], w)
	return nil
}

type fakeGateway struct {
	mu       sync.Mutex
	err      error
	commands []string
}

func (g *fakeGateway) Execute(_ context.Context, command string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commands = append(g.commands, command)
	if g.err != nil {
		return "", g.err
	}
	return "Added to the whitelist", nil
}

func (g *fakeGateway) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.commands...)
}
