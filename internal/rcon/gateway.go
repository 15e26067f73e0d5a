// Package rcon issues single commands to the Minecraft server console.
package rcon

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/gorcon/rcon"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tysmp/whitelist/internal/config"
)

const (
	// ErrNotConfigured means host, port or password is unset. No connection
	// is attempted.
	ErrNotConfigured = errors.ConstError("rcon is not configured")
	// ErrConnectionRefused means nothing is listening at the configured
	// address, usually because the server is down.
	ErrConnectionRefused = errors.ConstError("rcon connection refused")
)

const defaultDialTimeout = 5 * time.Second

// Conn is an open console session.
type Conn interface {
	Execute(command string) (string, error)
	Close() error
}

// Dialer opens console sessions.
type Dialer interface {
	Dial(ctx context.Context, address, password string) (Conn, error)
}

// SettingsSource supplies the current connection details.
type SettingsSource interface {
	Snapshot() config.Settings
}

type netDialer struct{}

func (netDialer) Dial(ctx context.Context, address, password string) (Conn, error) {
	opts := []rcon.Option{rcon.SetDialTimeout(defaultDialTimeout)}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, rcon.SetDeadline(time.Until(deadline)))
	}
	return rcon.Dial(address, password, opts...)
}

// Gateway runs one command per connection and always closes it afterwards.
type Gateway struct {
	settings SettingsSource
	dialer   Dialer
	logger   *slog.Logger
	commands *prometheus.CounterVec
}

// New creates a Gateway. A nil dialer uses the network.
func New(settings SettingsSource, dialer Dialer, logger *slog.Logger, reg prometheus.Registerer) *Gateway {
	if dialer == nil {
		dialer = netDialer{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{
		settings: settings,
		dialer:   dialer,
		logger:   logger.With("component", "rcon"),
		commands: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "whitelist_rcon_commands_total",
			Help: "RCON commands issued by result",
		}, []string{"result"}),
	}
}

// Execute sends command and returns the server's reply.
func (g *Gateway) Execute(ctx context.Context, command string) (string, error) {
	s := g.settings.Snapshot()
	if s.RconHost == "" || s.RconPort == 0 || s.RconPassword == "" {
		g.commands.WithLabelValues("not_configured").Inc()
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Trace(err)
	}
	address := net.JoinHostPort(s.RconHost, strconv.Itoa(s.RconPort))

	conn, err := g.dialer.Dial(ctx, address, s.RconPassword)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			g.commands.WithLabelValues("refused").Inc()
			return "", errors.WithType(err, ErrConnectionRefused)
		}
		g.commands.WithLabelValues("error").Inc()
		return "", errors.Annotatef(err, "connecting to %s", address)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			g.logger.Debug("closing rcon connection", "error", err)
		}
	}()

	out, err := conn.Execute(command)
	if err != nil {
		g.commands.WithLabelValues("error").Inc()
		return "", errors.Annotatef(err, "executing %q", command)
	}
	g.commands.WithLabelValues("ok").Inc()
	g.logger.Info("rcon command executed", "command", command)
	return out, nil
}
