package history

// Sequence returns events in chronological order, or fully reversed when
// reverse is set. The input is never reordered in place.
func Sequence(events []Event, reverse bool) []Event {
	out := make([]Event, len(events))
	if !reverse {
		copy(out, events)
		return out
	}
	for i, e := range events {
		out[len(events)-1-i] = e
	}
	return out
}
