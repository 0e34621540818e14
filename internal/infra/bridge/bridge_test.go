package bridge_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"avr-control/internal/domain"
	"avr-control/internal/infra/bridge"
)

func newBridge() *bridge.Bridge {
	return bridge.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBridge_SendOutboundKeepsLatest(t *testing.T) {
	b := newBridge()

	first := b.SendOutbound("?P\r")
	second := b.SendOutbound("?V\r")
	if first == second {
		t.Fatal("exchange ids should differ")
	}

	select {
	case req := <-b.Outbound():
		if req.Code != "?V\r" || req.ID != second {
			t.Errorf("outbound: got %+v, want code ?V with id %s", req, second)
		}
	default:
		t.Fatal("outbound slot is empty")
	}

	select {
	case req := <-b.Outbound():
		t.Errorf("outbound slot should hold one code, got extra %+v", req)
	default:
	}
}

func TestBridge_RecvInboundTimeout(t *testing.T) {
	b := newBridge()
	id := b.SendOutbound("?P\r")

	start := time.Now()
	_, err := b.RecvInbound(context.Background(), id, 50*time.Millisecond)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("error: got %v, want ErrTimeout", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("returned before the timeout elapsed")
	}
}

func TestBridge_RecvInboundDiscardsStale(t *testing.T) {
	b := newBridge()

	old := b.SendOutbound("?P\r")
	b.SendInbound(bridge.Frame{ID: old, Text: "PWR0\r\n"})

	id := b.SendOutbound("?V\r")
	go func() {
		time.Sleep(20 * time.Millisecond)
		b.SendInbound(bridge.Frame{ID: id, Text: "VOL051\r\n"})
	}()

	got, err := b.RecvInbound(context.Background(), id, time.Second)
	if err != nil {
		t.Fatalf("RecvInbound: %v", err)
	}
	if got != "VOL051\r\n" {
		t.Errorf("reply: got %q, want VOL051", got)
	}
}

func TestBridge_SendInboundOverwrites(t *testing.T) {
	b := newBridge()
	id := b.SendOutbound("?V\r")

	b.SendInbound(bridge.Frame{ID: id, Text: "VOL040\r\n"})
	b.SendInbound(bridge.Frame{ID: id, Text: "VOL041\r\n"})

	got, err := b.RecvInbound(context.Background(), id, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("RecvInbound: %v", err)
	}
	if got != "VOL041\r\n" {
		t.Errorf("reply: got %q, want the latest frame", got)
	}
}

func TestBridge_Exchange(t *testing.T) {
	b := newBridge()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-b.Outbound():
				b.SendInbound(bridge.Frame{ID: req.ID, Text: "ack:" + req.Code})
			}
		}
	}()

	got, err := b.Exchange(ctx, "?M\r", time.Second)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if got != "ack:?M\r" {
		t.Errorf("reply: got %q", got)
	}
}

func TestBridge_RecvInboundContextCancelled(t *testing.T) {
	b := newBridge()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.RecvInbound(ctx, "none", time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want context.Canceled", err)
	}
}
