// Package pioneer implements the Pioneer receiver IP/RS-232 control dialect:
// wire codes for each command, status queries, and the acknowledgement each
// command must produce.
package pioneer

import (
	"fmt"
	"strconv"
	"strings"

	"avr-control/internal/domain"
)

const (
	RequestTerminator  = "\r"
	ResponseTerminator = "\r\n"

	// Heartbeat is the unsolicited frame the receiver emits periodically.
	Heartbeat = "R"

	// DefaultVolumeCeiling is the highest native volume a voice command may
	// set. 161 is 0.0dB on the native 0-185 scale.
	DefaultVolumeCeiling = 101
	DefaultPowerOffAck   = "PWR2"
	powerOnAck           = "PWR0"
)

// inputCodes maps the spoken input number to the receiver's function code.
var inputCodes = map[int]string{
	1:  "25", // BD
	2:  "49", // GAME
	3:  "19", // HDMI 1
	4:  "15", // DVR/BDR
	5:  "10", // VIDEO 1
	6:  "14", // VIDEO 2
	7:  "05", // TV/SAT
	8:  "20", // HDMI 2
	9:  "21", // HDMI 3
	10: "22", // HDMI 4
	11: "23", // HDMI 5
	12: "24", // HDMI 6
	13: "26", // HOME MEDIA GALLERY
	14: "17", // iPod/USB
	15: "01", // CD
	16: "03", // CD-R/TAPE
	17: "02", // TUNER
	18: "00", // PHONO
	19: "12", // MULTI CH IN
	20: "33", // ADAPTER PORT
	21: "27", // SIRIUS
	22: "31", // HDMI (cyclic)
}

// InputCode returns the two-digit function code for a logical input id.
func InputCode(id int) (string, bool) {
	code, ok := inputCodes[id]
	return code, ok
}

type Codec struct {
	ceiling     int
	powerOffAck string
}

// NewCodec builds a codec for one receiver. Calibration differs between
// models, so the volume ceiling and the power-off acknowledgement come from
// configuration; zero values fall back to the defaults.
func NewCodec(ceiling int, powerOffAck string) *Codec {
	if ceiling <= 0 {
		ceiling = DefaultVolumeCeiling
	}
	powerOffAck = strings.TrimSpace(powerOffAck)
	if powerOffAck == "" {
		powerOffAck = DefaultPowerOffAck
	}
	return &Codec{ceiling: ceiling, powerOffAck: powerOffAck}
}

// NativeVolume maps a 1-10 level onto the receiver scale: ceil(level/10 * ceiling).
func (c *Codec) NativeVolume(level int) int {
	return (level*c.ceiling + 9) / 10
}

// Encode returns the wire code for cmd. Commands built through the domain
// constructors always have a code; the zero Command encodes to "".
func (c *Codec) Encode(cmd domain.Command) string {
	switch cmd.Action() {
	case domain.ActionSetVolume:
		return fmt.Sprintf("%03dVL%s", c.NativeVolume(cmd.Value()), RequestTerminator)
	case domain.ActionChangeInput:
		code, ok := inputCodes[cmd.Value()]
		if !ok {
			return ""
		}
		return code + "FN" + RequestTerminator
	case domain.ActionPowerOn:
		return "PO" + RequestTerminator
	case domain.ActionPowerOff:
		return "PF" + RequestTerminator
	case domain.ActionMute:
		return "MO" + RequestTerminator
	case domain.ActionUnmute:
		return "MF" + RequestTerminator
	case domain.ActionVolumeUp:
		return "VU" + RequestTerminator
	case domain.ActionVolumeDown:
		return "VD" + RequestTerminator
	default:
		return ""
	}
}

// Expected returns the fragment a status reply must contain once cmd has
// taken effect. For SetVolume and ChangeInput the numeric field is sliced out
// of code so encode and validate always agree.
func (c *Codec) Expected(cmd domain.Command, code string) string {
	switch cmd.Action() {
	case domain.ActionSetVolume:
		return "VOL" + field(code, 3) + ResponseTerminator
	case domain.ActionChangeInput:
		return "FN" + field(code, 2) + ResponseTerminator
	case domain.ActionMute:
		return "MUT0" + ResponseTerminator
	case domain.ActionUnmute:
		return "MUT1" + ResponseTerminator
	case domain.ActionPowerOn:
		return powerOnAck + ResponseTerminator
	case domain.ActionPowerOff:
		return c.powerOffAck + ResponseTerminator
	case domain.ActionVolumeUp, domain.ActionVolumeDown:
		return "VOL"
	default:
		return ""
	}
}

func field(code string, width int) string {
	if len(code) < width {
		return code
	}
	return code[:width]
}

// Query returns the status request code for attr.
func (c *Codec) Query(attr domain.Attribute) string {
	switch attr {
	case domain.AttributeVolume:
		return "?V" + RequestTerminator
	case domain.AttributeMute:
		return "?M" + RequestTerminator
	case domain.AttributePower:
		return "?P" + RequestTerminator
	case domain.AttributeInput:
		return "?F" + RequestTerminator
	default:
		return ""
	}
}

// ParseVolume extracts the native volume from a "VOLnnn" reply.
func (c *Codec) ParseVolume(frame string) (int, error) {
	s := strings.TrimSpace(frame)
	idx := strings.Index(s, "VOL")
	if idx < 0 {
		return 0, fmt.Errorf("not a volume reply: %q", frame)
	}
	digits := s[idx+3:]
	if end := strings.IndexAny(digits, "\r\n"); end >= 0 {
		digits = digits[:end]
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("parsing volume reply %q: %w", frame, err)
	}
	return v, nil
}

// IsHeartbeat reports whether frame is the receiver's periodic keep-alive.
func IsHeartbeat(frame string) bool {
	return strings.TrimSpace(frame) == Heartbeat
}
