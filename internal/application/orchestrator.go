package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"avr-control/internal/domain"
)

type Timing struct {
	// ReplyTimeout bounds every wait for a receiver reply.
	ReplyTimeout  time.Duration
	PowerOnSettle time.Duration
	VolumeSettle  time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		ReplyTimeout:  1500 * time.Millisecond,
		PowerOnSettle: time.Second,
		VolumeSettle:  2 * time.Second,
	}
}

// Orchestrator runs a command against the receiver and confirms the result
// by querying the receiver afterwards. Replies to the command itself are
// not trusted.
type Orchestrator struct {
	codec      Codec
	link       Exchanger
	timing     Timing
	volumeStep int
	logger     *slog.Logger
}

func NewOrchestrator(codec Codec, link Exchanger, timing Timing, volumeStep int, logger *slog.Logger) *Orchestrator {
	if timing.ReplyTimeout <= 0 {
		timing.ReplyTimeout = DefaultTiming().ReplyTimeout
	}
	if volumeStep <= 0 {
		volumeStep = 1
	}
	return &Orchestrator{
		codec:      codec,
		link:       link,
		timing:     timing,
		volumeStep: volumeStep,
		logger:     logger,
	}
}

func (o *Orchestrator) Process(ctx context.Context, cmd domain.Command) error {
	if cmd.IsZero() {
		return errors.New("empty command")
	}

	code := o.codec.Encode(cmd)
	o.logger.Info("processing command", "command", cmd.String(), "code", code)

	if err := o.checkPower(ctx, cmd); err != nil {
		return err
	}

	switch cmd.Action() {
	case domain.ActionSetVolume:
		steps, err := o.stepVolume(ctx, cmd)
		if err != nil {
			return err
		}
		if steps != 0 {
			if err := sleep(ctx, o.timing.VolumeSettle); err != nil {
				return err
			}
		}

	case domain.ActionPowerOn:
		if _, err := o.send(ctx, code); err != nil {
			return err
		}
		if err := sleep(ctx, o.timing.PowerOnSettle); err != nil {
			return err
		}

	default:
		if _, err := o.send(ctx, code); err != nil {
			return err
		}
	}

	reply, err := o.send(ctx, o.codec.Query(cmd.Attribute()))
	if err != nil {
		return fmt.Errorf("confirming %s: %w", cmd, err)
	}

	expected := o.codec.Expected(cmd, code)
	if !strings.Contains(reply, expected) {
		return &domain.MismatchError{Expected: expected, Got: reply}
	}

	o.logger.Info("receiver confirmed command", "command", cmd.String(), "reply", reply)
	return nil
}

func (o *Orchestrator) checkPower(ctx context.Context, cmd domain.Command) error {
	reply, err := o.send(ctx, o.codec.Query(domain.AttributePower))
	if err != nil {
		return fmt.Errorf("querying power: %w", err)
	}

	off := strings.Contains(reply, o.codec.Expected(domain.PowerOff(), ""))
	on := strings.Contains(reply, o.codec.Expected(domain.PowerOn(), ""))

	switch {
	case off && cmd.Action() == domain.ActionPowerOff:
		return &domain.PreconditionError{Reason: domain.ReasonAlreadyOff}
	case off && cmd.Action() != domain.ActionPowerOn:
		return &domain.PreconditionError{Reason: domain.ReasonPowerOff}
	case on && cmd.Action() == domain.ActionPowerOn:
		return &domain.PreconditionError{Reason: domain.ReasonAlreadyOn}
	case !on && !off:
		o.logger.Warn("unrecognised power reply, proceeding", "reply", reply)
	}
	return nil
}

// stepVolume walks the volume to the requested level with up/down codes,
// sent as one batch. It returns the signed number of steps sent.
func (o *Orchestrator) stepVolume(ctx context.Context, cmd domain.Command) (int, error) {
	reply, err := o.send(ctx, o.codec.Query(domain.AttributeVolume))
	if err != nil {
		return 0, fmt.Errorf("querying volume: %w", err)
	}
	current, err := o.codec.ParseVolume(reply)
	if err != nil {
		o.logger.Warn("unparseable volume reply", "reply", reply, "error", err)
		return 0, &domain.MismatchError{Expected: "VOL", Got: reply}
	}

	desired := o.codec.NativeVolume(cmd.Value())
	steps := (desired - current) / o.volumeStep

	o.logger.Debug("adjusting volume", "current", current, "desired", desired, "steps", steps)
	if steps == 0 {
		return 0, nil
	}

	step := o.codec.Encode(domain.VolumeUp())
	n := steps
	if steps < 0 {
		step = o.codec.Encode(domain.VolumeDown())
		n = -steps
	}

	if _, err := o.send(ctx, strings.Repeat(step, n)); err != nil {
		return 0, err
	}
	return steps, nil
}

func (o *Orchestrator) send(ctx context.Context, code string) (string, error) {
	reply, err := o.link.Exchange(ctx, code, o.timing.ReplyTimeout)
	if err != nil {
		return "", fmt.Errorf("sending %q: %w", code, err)
	}
	return reply, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
