package domain

import "fmt"

type Action string

const (
	ActionSetVolume   Action = "set_volume"
	ActionMute        Action = "mute"
	ActionUnmute      Action = "unmute"
	ActionPowerOn     Action = "power_on"
	ActionPowerOff    Action = "power_off"
	ActionChangeInput Action = "change_input"
	ActionVolumeUp    Action = "volume_up"
	ActionVolumeDown  Action = "volume_down"
)

// Accepted ranges for the parameterised commands.
const (
	MinVolume = 1
	MaxVolume = 10
	MinInput  = 1
	MaxInput  = 22
)

// Command is one of the closed set of receiver operations. The zero value is
// not a valid command; use the constructors below.
type Command struct {
	action Action
	value  int
}

func SetVolume(level int) (Command, error) {
	if level < MinVolume || level > MaxVolume {
		return Command{}, fmt.Errorf("volume %d not between %d and %d", level, MinVolume, MaxVolume)
	}
	return Command{action: ActionSetVolume, value: level}, nil
}

func ChangeInput(id int) (Command, error) {
	if id < MinInput || id > MaxInput {
		return Command{}, fmt.Errorf("input %d not between %d and %d", id, MinInput, MaxInput)
	}
	return Command{action: ActionChangeInput, value: id}, nil
}

func Mute() Command       { return Command{action: ActionMute} }
func Unmute() Command     { return Command{action: ActionUnmute} }
func PowerOn() Command    { return Command{action: ActionPowerOn} }
func PowerOff() Command   { return Command{action: ActionPowerOff} }
func VolumeUp() Command   { return Command{action: ActionVolumeUp} }
func VolumeDown() Command { return Command{action: ActionVolumeDown} }

func (c Command) Action() Action { return c.action }

// Value is the volume level or input id; zero for fixed commands.
func (c Command) Value() int { return c.value }

func (c Command) IsZero() bool { return c.action == "" }

// Attribute is the device state the command changes, used to confirm it.
func (c Command) Attribute() Attribute {
	switch c.action {
	case ActionSetVolume, ActionVolumeUp, ActionVolumeDown:
		return AttributeVolume
	case ActionMute, ActionUnmute:
		return AttributeMute
	case ActionPowerOn, ActionPowerOff:
		return AttributePower
	case ActionChangeInput:
		return AttributeInput
	default:
		return ""
	}
}

func (c Command) String() string {
	switch c.action {
	case ActionSetVolume, ActionChangeInput:
		return fmt.Sprintf("%s(%d)", c.action, c.value)
	default:
		return string(c.action)
	}
}

// Attribute names a queryable piece of receiver state.
type Attribute string

const (
	AttributeVolume Attribute = "volume"
	AttributeMute   Attribute = "mute"
	AttributePower  Attribute = "power"
	AttributeInput  Attribute = "input"
)
