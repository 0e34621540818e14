// Package link owns the single persistent connection to the receiver. It
// writes queued wire codes, pairs each with the reply that follows, drains
// unsolicited frames, and re-dials after any failure.
package link

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"avr-control/internal/domain"
	"avr-control/internal/infra"
	"avr-control/internal/infra/bridge"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnected
	// StateDegraded means the last session failed and a reconnect is pending.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "disconnected"
	}
}

const writeTimeout = 2 * time.Second

type Config struct {
	// ResponseWindow bounds the wait for a reply after each write. A silent
	// receiver within this window is treated as a dead connection.
	ResponseWindow time.Duration
	ReconnectDelay time.Duration
	// SilenceTimeout forces a reconnect when no frame at all arrives for
	// this long. Zero disables it.
	SilenceTimeout time.Duration
	// Terminator is appended to every forwarded frame.
	Terminator string
	// IsNoise marks frames that never answer a command, such as heartbeats.
	IsNoise func(frame string) bool
	// SkipLeading lists codes whose first reply frame is a stale echo.
	SkipLeading []string
}

type Manager struct {
	dialer Dialer
	bridge *bridge.Bridge
	cfg    Config
	logger *slog.Logger

	state    atomic.Int32
	sessions atomic.Int64
}

func NewManager(dialer Dialer, b *bridge.Bridge, cfg Config, logger *slog.Logger) *Manager {
	if cfg.ResponseWindow <= 0 {
		cfg.ResponseWindow = 500 * time.Millisecond
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 10 * time.Second
	}
	if cfg.IsNoise == nil {
		cfg.IsNoise = func(string) bool { return false }
	}
	return &Manager{
		dialer: dialer,
		bridge: b,
		cfg:    cfg,
		logger: logger,
	}
}

func (m *Manager) State() State {
	return State(m.state.Load())
}

// Sessions counts successful connections since start.
func (m *Manager) Sessions() int64 {
	return m.sessions.Load()
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
}

// Run keeps the receiver connection alive until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	m.logger.Info("starting receiver link", "link", m.dialer.String())

	infra.Forever(ctx, m.cfg.ReconnectDelay, m.session, func(err error) {
		m.setState(StateDegraded)
		m.logger.Error("receiver connection failed",
			"error", err,
			"link", m.dialer.String(),
			"retry_in", m.cfg.ReconnectDelay,
		)
	})

	m.setState(StateDisconnected)
	m.logger.Info("receiver link stopped")
}

func (m *Manager) session(ctx context.Context) error {
	m.setState(StateDisconnected)

	conn, err := m.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", m.dialer, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)

	frames := make(chan string)
	readErr := make(chan error, 1)
	go readFrames(conn, frames, readErr, done)

	m.sessions.Add(1)
	m.setState(StateConnected)
	m.logger.Info("connected to receiver", "link", m.dialer.String())

	var silence <-chan time.Time
	var silenceTimer *time.Timer
	if m.cfg.SilenceTimeout > 0 {
		silenceTimer = time.NewTimer(m.cfg.SilenceTimeout)
		defer silenceTimer.Stop()
		silence = silenceTimer.C
	}
	heard := func() {
		if silenceTimer != nil {
			silenceTimer.Reset(m.cfg.SilenceTimeout)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			return fmt.Errorf("%w: reading: %w", domain.ErrConnectionLost, err)

		case frame := <-frames:
			heard()
			m.logger.Debug("discarding unsolicited frame", "frame", frame)

		case req := <-m.bridge.Outbound():
			if err := m.exchange(ctx, conn, req, frames, readErr); err != nil {
				return err
			}
			heard()

		case <-silence:
			return fmt.Errorf("%w: no frames for %s", domain.ErrConnectionLost, m.cfg.SilenceTimeout)
		}
	}
}

// exchange writes one code and forwards the reply. For codes listed in
// SkipLeading (power on) the receiver first repeats its previous state; the
// first frame is dropped, or forwarded if nothing follows it.
func (m *Manager) exchange(ctx context.Context, w io.Writer, req bridge.Request, frames <-chan string, readErr <-chan error) error {
	if err := write(w, req.Code); err != nil {
		return fmt.Errorf("%w: writing %q: %w", domain.ErrConnectionLost, req.Code, err)
	}
	m.logger.Debug("sent code", "code", req.Code, "exchange", req.ID)

	skip := slices.Contains(m.cfg.SkipLeading, req.Code)
	var skipped string

	window := time.NewTimer(m.cfg.ResponseWindow)
	defer window.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErr:
			return fmt.Errorf("%w: reading: %w", domain.ErrConnectionLost, err)

		case frame := <-frames:
			if m.cfg.IsNoise(frame) {
				m.logger.Debug("discarding noise frame", "frame", frame, "exchange", req.ID)
				continue
			}
			if skip && skipped == "" {
				skipped = frame
				m.logger.Debug("skipping leading frame", "frame", frame, "exchange", req.ID)
				continue
			}
			m.forward(req, frame)
			return nil

		case <-window.C:
			if skipped != "" {
				m.forward(req, skipped)
				return nil
			}
			return fmt.Errorf("%w: no reply to %q within %s", domain.ErrConnectionLost, req.Code, m.cfg.ResponseWindow)
		}
	}
}

func (m *Manager) forward(req bridge.Request, frame string) {
	reply := frame + m.cfg.Terminator
	m.logger.Info("code sent to receiver", "code", req.Code, "reply", reply, "exchange", req.ID)
	m.bridge.SendInbound(bridge.Frame{ID: req.ID, Text: reply})
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

func write(w io.Writer, code string) error {
	if d, ok := w.(writeDeadliner); ok {
		if err := d.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, code)
	return err
}
