// Package bridge hands wire codes from request goroutines to the connection
// manager and device replies back, one exchange at a time.
package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"avr-control/internal/domain"
)

// Request is an outbound wire code tagged with its exchange id.
type Request struct {
	ID   string
	Code string
}

// Frame is a device reply tagged with the id of the request it answers.
type Frame struct {
	ID   string
	Text string
}

// Bridge holds two single-slot queues. A value put into a full slot replaces
// the undelivered one: only the latest exchange has a waiter.
type Bridge struct {
	outbound chan Request
	inbound  chan Frame
	outMu    sync.Mutex
	inMu     sync.Mutex
	logger   *slog.Logger
}

func New(logger *slog.Logger) *Bridge {
	return &Bridge{
		outbound: make(chan Request, 1),
		inbound:  make(chan Frame, 1),
		logger:   logger,
	}
}

// SendOutbound queues code for the device and returns the exchange id. It
// never blocks.
func (b *Bridge) SendOutbound(code string) string {
	req := Request{ID: uuid.NewString(), Code: code}
	if stale, dropped := offer(&b.outMu, b.outbound, req); dropped {
		b.logger.Debug("discarded undelivered code", "code", stale.Code, "exchange", stale.ID)
	}
	b.logger.Debug("queued code", "code", code, "exchange", req.ID)
	return req.ID
}

// Outbound is drained by the connection manager.
func (b *Bridge) Outbound() <-chan Request {
	return b.outbound
}

// SendInbound hands a device reply to whoever waits on frame.ID.
func (b *Bridge) SendInbound(frame Frame) {
	if stale, dropped := offer(&b.inMu, b.inbound, frame); dropped {
		b.logger.Debug("discarded unread reply", "frame", stale.Text, "exchange", stale.ID)
	}
}

// RecvInbound waits up to timeout for the reply to exchange id. Frames left
// over from earlier exchanges are discarded.
func (b *Bridge) RecvInbound(ctx context.Context, id string, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", domain.ErrTimeout
		case frame := <-b.inbound:
			if frame.ID != id {
				b.logger.Debug("discarded stale reply", "frame", frame.Text, "exchange", frame.ID)
				continue
			}
			b.logger.Debug("received reply", "frame", frame.Text, "exchange", id)
			return frame.Text, nil
		}
	}
}

// Exchange sends code and waits for its reply.
func (b *Bridge) Exchange(ctx context.Context, code string, timeout time.Duration) (string, error) {
	return b.RecvInbound(ctx, b.SendOutbound(code), timeout)
}

func offer[T any](mu *sync.Mutex, slot chan T, v T) (stale T, dropped bool) {
	mu.Lock()
	defer mu.Unlock()

	for {
		select {
		case slot <- v:
			return stale, dropped
		default:
		}
		select {
		case stale = <-slot:
			dropped = true
		default:
		}
	}
}
