package engine

import (
	"fmt"
	"time"

	"github.com/gravitas-games/hexworld/pkg/hex"
)

// EventType represents the type of engine event.
type EventType int

const (
	// EventMapGenerated is emitted after a map is created.
	EventMapGenerated EventType = iota
	// EventMapRemoved is emitted after a map and its entities are gone.
	EventMapRemoved
	// EventEntitySpawned is emitted when an entity is placed.
	EventEntitySpawned
	// EventEntityMoved is emitted for every step an entity takes.
	EventEntityMoved
	// EventEntityDespawned is emitted when an entity is removed.
	EventEntityDespawned
	// EventPathPlanned is emitted when a move is accepted; Path holds the route.
	EventPathPlanned
	// EventSelectionChanged is emitted when a client's selection is replaced
	// or cleared. Entity is nil when nothing is selected any more.
	EventSelectionChanged
	// EventInputRejected carries the error of an input that could not be applied.
	EventInputRejected
	// EventTick closes every pump tick.
	EventTick
	// EventQuit is emitted for a Quit input, just before the pump stops.
	EventQuit
)

var eventNames = map[EventType]string{
	EventMapGenerated:     "MapGenerated",
	EventMapRemoved:       "MapRemoved",
	EventEntitySpawned:    "EntitySpawned",
	EventEntityMoved:      "EntityMoved",
	EventEntityDespawned:  "EntityDespawned",
	EventPathPlanned:      "PathPlanned",
	EventSelectionChanged: "SelectionChanged",
	EventInputRejected:    "InputRejected",
	EventTick:             "Tick",
	EventQuit:             "Quit",
}

// String returns a human-readable representation of the event type.
func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "Unknown"
}

// MarshalText encodes the type by name.
func (t EventType) MarshalText() ([]byte, error) {
	if _, ok := eventNames[t]; !ok {
		return nil, fmt.Errorf("unknown event type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *EventType) UnmarshalText(b []byte) error {
	for k, v := range eventNames {
		if v == string(b) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown event type %q", b)
}

// Event is a state change published by the pump.
type Event struct {
	Type      EventType   `json:"type"`
	Tick      uint64      `json:"tick"`
	Map       string      `json:"map,omitempty"`
	Client    string      `json:"client,omitempty"`
	Entity    *Entity     `json:"entity,omitempty"`
	Coord     hex.Axial   `json:"coord"`
	Path      []hex.Axial `json:"path,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
