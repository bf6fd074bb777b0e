package telemetry

import "encoding/json"

// StatusValue is the movement state attached to a processed event.
type StatusValue int

const (
	StatusStopped StatusValue = iota
	StatusMoving
	StatusStart
	StatusStop
)

func (v StatusValue) String() string {
	switch v {
	case StatusMoving:
		return "Moving"
	case StatusStart:
		return "Start"
	case StatusStop:
		return "Stop"
	default:
		return "Stopped"
	}
}

// Status is either derived from the surrounding samples or copied from a
// device override. Overridden statuses always win.
type Status struct {
	Value      StatusValue `json:"value"`
	Overridden bool        `json:"overridden"`
}

// Derived returns a status computed by the pipeline.
func Derived(v StatusValue) Status { return Status{Value: v} }

// FromOverride returns the status forced by o, and false for OverrideNone.
func FromOverride(o Override) (Status, bool) {
	switch o {
	case OverrideStart:
		return Status{Value: StatusStart, Overridden: true}, true
	case OverrideStop:
		return Status{Value: StatusStop, Overridden: true}, true
	default:
		return Status{}, false
	}
}

// IsBoundary reports whether the status marks a start/stop transition.
func (s Status) IsBoundary() bool {
	return s.Value == StatusStart || s.Value == StatusStop
}

func (s Status) String() string { return s.Value.String() }

// Color is the display colour contract for a status; rolled-up idle periods
// use the idle colour regardless of status.
func (s Status) Color(idle bool) string {
	if idle {
		return "#F0AD4E"
	}
	switch s.Value {
	case StatusStart, StatusMoving:
		return "#5CB85C"
	case StatusStop:
		return "#D9534F"
	default:
		return "#777777"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON reads the status name written by MarshalJSON. Whether the
// status was overridden is not part of the wire form.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "Moving":
		s.Value = StatusMoving
	case "Start":
		s.Value = StatusStart
	case "Stop":
		s.Value = StatusStop
	default:
		s.Value = StatusStopped
	}
	s.Overridden = false
	return nil
}
