package domain_test

import (
	"errors"
	"testing"

	"avr-control/internal/domain"
)

func TestSetVolume_Range(t *testing.T) {
	tests := []struct {
		level   int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{5, false},
		{10, false},
		{11, true},
		{-3, true},
	}

	for _, tt := range tests {
		cmd, err := domain.SetVolume(tt.level)
		if (err != nil) != tt.wantErr {
			t.Errorf("SetVolume(%d) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			continue
		}
		if err == nil && cmd.Value() != tt.level {
			t.Errorf("SetVolume(%d) value: got %d", tt.level, cmd.Value())
		}
		if err != nil && !cmd.IsZero() {
			t.Errorf("SetVolume(%d) returned non-zero command on error", tt.level)
		}
	}
}

func TestChangeInput_Range(t *testing.T) {
	for id := domain.MinInput; id <= domain.MaxInput; id++ {
		if _, err := domain.ChangeInput(id); err != nil {
			t.Errorf("ChangeInput(%d): %v", id, err)
		}
	}
	for _, id := range []int{0, 23, 99} {
		if _, err := domain.ChangeInput(id); err == nil {
			t.Errorf("ChangeInput(%d): expected error", id)
		}
	}
}

func TestCommand_Attribute(t *testing.T) {
	vol, _ := domain.SetVolume(3)
	in, _ := domain.ChangeInput(7)

	tests := []struct {
		cmd  domain.Command
		want domain.Attribute
	}{
		{vol, domain.AttributeVolume},
		{domain.VolumeUp(), domain.AttributeVolume},
		{domain.VolumeDown(), domain.AttributeVolume},
		{domain.Mute(), domain.AttributeMute},
		{domain.Unmute(), domain.AttributeMute},
		{domain.PowerOn(), domain.AttributePower},
		{domain.PowerOff(), domain.AttributePower},
		{in, domain.AttributeInput},
	}

	for _, tt := range tests {
		if got := tt.cmd.Attribute(); got != tt.want {
			t.Errorf("%s attribute: got %s, want %s", tt.cmd, got, tt.want)
		}
	}
}

func TestErrors_Classification(t *testing.T) {
	err := &domain.PreconditionError{Reason: domain.ReasonAlreadyOff}
	if !errors.Is(err, domain.ErrPreconditionViolated) {
		t.Error("precondition error should match ErrPreconditionViolated")
	}
	if !domain.IsReason(err, domain.ReasonAlreadyOff) {
		t.Error("IsReason should match already off")
	}
	if domain.IsReason(err, domain.ReasonAlreadyOn) {
		t.Error("IsReason should not match already on")
	}

	mismatch := &domain.MismatchError{Expected: "VOL051\r\n", Got: "VOL040\r\n"}
	if !errors.Is(mismatch, domain.ErrResponseMismatch) {
		t.Error("mismatch error should match ErrResponseMismatch")
	}
}
