package telemetry

import (
	"encoding/json"
	"strings"
)

// Kind is the command tag reported with a sample. The zero Kind is
// KindUpdate, matching a sample that carries no tag.
type Kind int

const (
	KindUpdate Kind = iota
	KindIgnitionOn
	KindIgnitionOff
	KindIdle
	KindPark
	KindUnknown
)

// ParseKind maps a device command tag onto a Kind. Unrecognised tags map to
// KindUnknown rather than failing, since devices add tags over time.
func ParseKind(tag string) Kind {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "", "UPD", "POS":
		return KindUpdate
	case "IGN":
		return KindIgnitionOn
	case "IGF":
		return KindIgnitionOff
	case "IDL":
		return KindIdle
	case "PRK":
		return KindPark
	default:
		return KindUnknown
	}
}

// String returns the wire tag for k.
func (k Kind) String() string {
	switch k {
	case KindUpdate:
		return "UPD"
	case KindIgnitionOn:
		return "IGN"
	case KindIgnitionOff:
		return "IGF"
	case KindIdle:
		return "IDL"
	case KindPark:
		return "PRK"
	default:
		return "UNK"
	}
}

// IsIgnition reports whether k is an ignition on/off event.
func (k Kind) IsIgnition() bool {
	return k == KindIgnitionOn || k == KindIgnitionOff
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	*k = ParseKind(tag)
	return nil
}

// Override is an explicit status supplied by the device. When present it
// takes precedence over anything the pipeline derives.
type Override int

const (
	OverrideNone Override = iota
	OverrideStart
	OverrideStop
)

// ParseOverride maps a status override tag onto an Override. The boolean is
// false for tags that are not recognised.
func ParseOverride(tag string) (Override, bool) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "":
		return OverrideNone, true
	case "start":
		return OverrideStart, true
	case "stop":
		return OverrideStop, true
	default:
		return OverrideNone, false
	}
}

func (o Override) String() string {
	switch o {
	case OverrideStart:
		return "Start"
	case OverrideStop:
		return "Stop"
	default:
		return ""
	}
}

func (o Override) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Override) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	*o, _ = ParseOverride(tag)
	return nil
}
