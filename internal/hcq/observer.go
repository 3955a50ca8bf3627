package hcq

import "time"

type EventType int

const (
	EventJoined EventType = iota
	EventGaveUp
	EventAssigned
	EventFinished
)

func (t EventType) String() string {
	switch t {
	case EventJoined:
		return "joined"
	case EventGaveUp:
		return "gave_up"
	case EventAssigned:
		return "assigned"
	case EventFinished:
		return "finished"
	}
	return "unknown"
}

// Event describes one change to a student's place in the help centre.
// Waited is filled for GaveUp and Assigned, Helped for Finished.
type Event struct {
	Type    EventType
	Student string
	Course  string
	Ta      string
	Waited  time.Duration
	Helped  time.Duration
	At      time.Time
}

// Observer receives queue events synchronously, on the goroutine that owns
// the Queue. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// Observers fans an event out to several observers in order.
type Observers []Observer

func (o Observers) Observe(ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ev)
		}
	}
}
