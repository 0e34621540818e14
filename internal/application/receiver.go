package application

import (
	"context"
	"time"

	"avr-control/internal/domain"
)

// Codec translates commands into receiver wire codes and back.
type Codec interface {
	Encode(cmd domain.Command) string
	Expected(cmd domain.Command, code string) string
	Query(attr domain.Attribute) string
	NativeVolume(level int) int
	ParseVolume(frame string) (int, error)
}

// Exchanger sends one wire code to the receiver and returns the reply.
type Exchanger interface {
	Exchange(ctx context.Context, code string, timeout time.Duration) (string, error)
}

// CommandProcessor executes a single receiver command end to end.
type CommandProcessor interface {
	Process(ctx context.Context, cmd domain.Command) error
}
