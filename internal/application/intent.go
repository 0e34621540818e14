package application

import (
	"errors"
	"strconv"
	"strings"

	"avr-control/internal/domain"
)

// Custom intents of the voice skill.
const (
	IntentVolume     = "Volume"
	IntentInput      = "Input"
	IntentMute       = "Mute"
	IntentUnmute     = "Unmute"
	IntentOn         = "On"
	IntentOff        = "Off"
	IntentVolumeUp   = "VolumeUp"
	IntentVolumeDown = "VolumeDown"
)

// Built-in intents.
const (
	IntentHelp         = "AMAZON.HelpIntent"
	IntentCancel       = "AMAZON.CancelIntent"
	IntentStop         = "AMAZON.StopIntent"
	IntentNavigateHome = "AMAZON.NavigateHomeIntent"
)

var (
	ErrUnknownIntent = errors.New("unknown intent")
	ErrInvalidVolume = errors.New("invalid volume")
	ErrInvalidInput  = errors.New("invalid input")
)

// SlotName is the slot carrying the value for a parameterised intent.
func SlotName(intent string) string {
	return intent + "_slot"
}

// CommandFor maps a custom intent and its slots to a receiver command.
func CommandFor(intent string, slots map[string]string) (domain.Command, error) {
	switch intent {
	case IntentVolume:
		n, err := slotInt(slots, intent)
		if err != nil {
			return domain.Command{}, errors.Join(ErrInvalidVolume, err)
		}
		cmd, err := domain.SetVolume(n)
		if err != nil {
			return domain.Command{}, errors.Join(ErrInvalidVolume, err)
		}
		return cmd, nil

	case IntentInput:
		n, err := slotInt(slots, intent)
		if err != nil {
			return domain.Command{}, errors.Join(ErrInvalidInput, err)
		}
		cmd, err := domain.ChangeInput(n)
		if err != nil {
			return domain.Command{}, errors.Join(ErrInvalidInput, err)
		}
		return cmd, nil

	case IntentMute:
		return domain.Mute(), nil
	case IntentUnmute:
		return domain.Unmute(), nil
	case IntentOn:
		return domain.PowerOn(), nil
	case IntentOff:
		return domain.PowerOff(), nil
	case IntentVolumeUp:
		return domain.VolumeUp(), nil
	case IntentVolumeDown:
		return domain.VolumeDown(), nil
	default:
		return domain.Command{}, ErrUnknownIntent
	}
}

// Unrecognised slot values arrive as "?".
func slotInt(slots map[string]string, intent string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(slots[SlotName(intent)]))
}
