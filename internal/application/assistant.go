package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"avr-control/internal/domain"
)

// Assistant answers voice requests and tool calls. The receiver handles one
// exchange at a time, so commands from all callers run one after another.
type Assistant struct {
	processor CommandProcessor
	notifier  Notifier
	logger    *slog.Logger

	mu sync.Mutex
}

func NewAssistant(processor CommandProcessor, notifier Notifier, logger *slog.Logger) *Assistant {
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	return &Assistant{
		processor: processor,
		notifier:  notifier,
		logger:    logger,
	}
}

func (a *Assistant) HandleRequest(ctx context.Context, req domain.VoiceRequest) domain.Reply {
	a.logger.Info("voice request", "type", req.Type, "id", req.ID, "intent", req.Intent)

	switch req.Type {
	case domain.RequestLaunch:
		return domain.Reply{Speech: SpeechHello}
	case domain.RequestSessionEnded:
		return domain.Reply{EndSession: true}
	case domain.RequestIntent:
		return a.handleIntent(ctx, req)
	default:
		return end(SpeechHmm)
	}
}

func (a *Assistant) handleIntent(ctx context.Context, req domain.VoiceRequest) domain.Reply {
	switch req.Intent {
	case IntentHelp:
		return domain.Reply{Speech: SpeechHelp}
	case IntentCancel, IntentStop, IntentNavigateHome:
		return end(SpeechOK)
	}

	cmd, err := CommandFor(req.Intent, req.Slots)
	if err != nil {
		if errors.Is(err, ErrUnknownIntent) {
			a.logger.Warn("unknown intent", "intent", req.Intent)
		} else {
			a.logger.Warn("invalid slot value", "intent", req.Intent, "error", err)
		}
		return end(Verbalize(err))
	}

	if err := a.Execute(ctx, cmd); err != nil {
		return end(Verbalize(err))
	}
	return end(SpeechOK)
}

// Execute runs cmd on the receiver. Failures are logged and notified.
func (a *Assistant) Execute(ctx context.Context, cmd domain.Command) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.processor.Process(ctx, cmd); err != nil {
		a.logger.Error("command failed", "command", cmd.String(), "error", err)
		if notifyErr := a.notifier.Notify(ctx, fmt.Sprintf("Command %s failed: %s", cmd, err)); notifyErr != nil {
			a.logger.Error("notifying error", "error", notifyErr)
		}
		return err
	}

	a.logger.Info("command executed", "command", cmd.String())
	return nil
}

// Verbalize turns a failure into the sentence spoken back to the user.
func Verbalize(err error) string {
	switch {
	case errors.Is(err, ErrInvalidVolume):
		return SpeechVolumeError
	case errors.Is(err, ErrInvalidInput):
		return SpeechInputError
	case errors.Is(err, ErrUnknownIntent):
		return SpeechHmm
	case domain.IsReason(err, domain.ReasonAlreadyOn):
		return SpeechAlreadyOn
	case domain.IsReason(err, domain.ReasonAlreadyOff):
		return SpeechAlreadyOff
	case domain.IsReason(err, domain.ReasonPowerOff):
		return SpeechTurnPowerOn
	default:
		return SpeechResponseError
	}
}

func end(speech string) domain.Reply {
	return domain.Reply{Speech: speech, EndSession: true}
}
