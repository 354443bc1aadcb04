package model

type EventType string

func (et EventType) String() string {
	return string(et)
}

const (
	// EventInit fires once, after the first successful fetch.
	EventInit EventType = "init"
	// EventStateChanged fires on every cache reseed carrying alarm data.
	EventStateChanged EventType = "state_changed"
	// EventError fires on an unrecoverable fetch/parse failure. The
	// recovery task is subscribed to it; hosts may observe it too.
	EventError EventType = "error"
)

// Event is the typed payload delivered to subscribers. State is set for
// init/state_changed, Err for error events.
type Event struct {
	Type  EventType    `json:"type"`
	State *DeviceState `json:"state,omitempty"`
	Err   error        `json:"-"`
}
