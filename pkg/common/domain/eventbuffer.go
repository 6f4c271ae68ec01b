package domain

// EventBuffer collects events raised inside a unit of work so they are only
// dispatched once the work has committed.
type EventBuffer struct {
	events []Event
}

func (b *EventBuffer) Dispatch(event Event) error {
	b.events = append(b.events, event)
	return nil
}

func (b *EventBuffer) Events() []Event {
	return b.events
}
