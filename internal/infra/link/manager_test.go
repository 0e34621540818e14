package link_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"avr-control/internal/domain"
	"avr-control/internal/infra/bridge"
	"avr-control/internal/infra/link"
	"avr-control/internal/infra/pioneer"
)

// fakeAVR is a loopback receiver that answers codes from a fixed table.
type fakeAVR struct {
	ln       net.Listener
	replies  map[string]string
	greeting string
	accepts  atomic.Int32
	received chan string
}

func newFakeAVR(t *testing.T, replies map[string]string, greeting string) *fakeAVR {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	f := &fakeAVR{
		ln:       ln,
		replies:  replies,
		greeting: greeting,
		received: make(chan string, 32),
	}
	t.Cleanup(func() { ln.Close() })

	go f.serve()
	return f
}

func (f *fakeAVR) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.accepts.Add(1)
		go f.handle(conn)
	}
}

func (f *fakeAVR) handle(conn net.Conn) {
	defer conn.Close()

	if f.greeting != "" {
		conn.Write([]byte(f.greeting))
	}

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\r')
		if err != nil {
			return
		}
		code := strings.TrimSpace(line)
		select {
		case f.received <- code:
		default:
		}
		if reply, ok := f.replies[code]; ok {
			conn.Write([]byte(reply))
		}
	}
}

func startManager(t *testing.T, f *fakeAVR) (*link.Manager, *bridge.Bridge) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bridge.New(logger)
	codec := pioneer.NewCodec(0, "")

	m := link.NewManager(
		link.TCPDialer{Addr: f.ln.Addr().String(), Timeout: time.Second},
		b,
		link.Config{
			ResponseWindow: 200 * time.Millisecond,
			ReconnectDelay: 20 * time.Millisecond,
			Terminator:     pioneer.ResponseTerminator,
			IsNoise:        pioneer.IsHeartbeat,
			SkipLeading:    []string{codec.Encode(domain.PowerOn())},
		},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return m, b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestManager_ForwardsReply(t *testing.T) {
	f := newFakeAVR(t, map[string]string{"?P": "PWR0\r\n"}, "")
	m, b := startManager(t, f)

	got, err := b.Exchange(context.Background(), "?P\r", time.Second)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if got != "PWR0\r\n" {
		t.Errorf("reply: got %q, want %q", got, "PWR0\r\n")
	}
	if m.State() != link.StateConnected {
		t.Errorf("state: got %s, want connected", m.State())
	}
}

func TestManager_DiscardsUnsolicitedHeartbeat(t *testing.T) {
	f := newFakeAVR(t, map[string]string{"?V": "VOL051\r\n"}, "R\r\n")
	m, b := startManager(t, f)

	waitFor(t, "connection", func() bool { return m.State() == link.StateConnected })
	time.Sleep(50 * time.Millisecond)

	got, err := b.Exchange(context.Background(), "?V\r", time.Second)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if got != "VOL051\r\n" {
		t.Errorf("reply: got %q, want VOL051", got)
	}
}

func TestManager_SkipsHeartbeatDuringExchange(t *testing.T) {
	f := newFakeAVR(t, map[string]string{"?M": "R\r\nMUT1\r\n"}, "")
	_, b := startManager(t, f)

	got, err := b.Exchange(context.Background(), "?M\r", time.Second)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if got != "MUT1\r\n" {
		t.Errorf("reply: got %q, want MUT1", got)
	}
}

func TestManager_PowerOnSkipsLeadingFrame(t *testing.T) {
	f := newFakeAVR(t, map[string]string{
		"PO": "PWR2\r\nPWR0\r\n",
		"?P": "PWR0\r\n",
	}, "")
	_, b := startManager(t, f)

	got, err := b.Exchange(context.Background(), "PO\r", time.Second)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if got != "PWR0\r\n" {
		t.Errorf("reply: got %q, want the second frame PWR0", got)
	}

	got, err = b.Exchange(context.Background(), "?P\r", time.Second)
	if err != nil {
		t.Fatalf("follow-up Exchange: %v", err)
	}
	if got != "PWR0\r\n" {
		t.Errorf("follow-up reply: got %q", got)
	}
}

func TestManager_NormalisesCarriageReturnOnly(t *testing.T) {
	f := newFakeAVR(t, map[string]string{"?F": "FN05\r"}, "")
	_, b := startManager(t, f)

	got, err := b.Exchange(context.Background(), "?F\r", time.Second)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if got != "FN05\r\n" {
		t.Errorf("reply: got %q, want %q", got, "FN05\r\n")
	}
}

func TestManager_NoReplyReconnects(t *testing.T) {
	f := newFakeAVR(t, map[string]string{"?P": "PWR0\r\n"}, "")
	m, b := startManager(t, f)

	waitFor(t, "first connection", func() bool { return m.Sessions() >= 1 })

	_, err := b.Exchange(context.Background(), "?X\r", 400*time.Millisecond)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("error: got %v, want ErrTimeout", err)
	}

	waitFor(t, "reconnect", func() bool { return f.accepts.Load() >= 2 })
	waitFor(t, "reconnected state", func() bool { return m.State() == link.StateConnected })

	got, err := b.Exchange(context.Background(), "?P\r", time.Second)
	if err != nil {
		t.Fatalf("Exchange after reconnect: %v", err)
	}
	if got != "PWR0\r\n" {
		t.Errorf("reply after reconnect: got %q", got)
	}
}

func TestManager_DialFailureDegrades(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := link.NewManager(
		link.TCPDialer{Addr: addr, Timeout: 100 * time.Millisecond},
		bridge.New(logger),
		link.Config{ReconnectDelay: time.Second},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	waitFor(t, "degraded state", func() bool { return m.State() == link.StateDegraded })
	cancel()
	<-done

	if m.Sessions() != 0 {
		t.Errorf("sessions: got %d, want 0", m.Sessions())
	}
}
