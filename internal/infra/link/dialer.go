package link

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"go.bug.st/serial"
)

// Dialer opens the byte stream to the receiver.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

// TCPDialer connects over the receiver's telnet-style control port.
type TCPDialer struct {
	Addr    string
	Timeout time.Duration
}

func (d TCPDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	nd := net.Dialer{Timeout: d.Timeout}
	return nd.DialContext(ctx, "tcp", d.Addr)
}

func (d TCPDialer) String() string {
	return "tcp://" + d.Addr
}

// SerialDialer connects through the receiver's RS-232 port.
type SerialDialer struct {
	Device   string
	BaudRate int
}

func (d SerialDialer) Dial(_ context.Context) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: d.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(d.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", d.Device, err)
	}
	return port, nil
}

func (d SerialDialer) String() string {
	return fmt.Sprintf("serial://%s@%d", d.Device, d.BaudRate)
}
