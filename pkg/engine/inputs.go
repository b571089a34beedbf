package engine

import (
	"fmt"

	"github.com/gravitas-games/hexworld/pkg/hex"
	"github.com/gravitas-games/hexworld/pkg/tile"
	"github.com/gravitas-games/hexworld/pkg/tilemap"
)

// Input is a request from a front end. Inputs are plain values; Apply
// understands the types declared in this file.
type Input interface {
	ClientID() string
}

// From records which client sent an input.
type From struct {
	Client string `json:"client,omitempty"`
}

// ClientID implements Input.
func (f From) ClientID() string { return f.Client }

// Generator kinds understood by GeneratorSpec.
const (
	GenAlternate = "alternate"
	GenNoise     = "noise"
	GenFill      = "fill"
)

// DefaultGeneratorTypes are used when a GeneratorSpec names no types.
var DefaultGeneratorTypes = []string{"dirt", "grass", "sand"}

// DefaultRiverType is carved when a GeneratorSpec asks for rivers without
// naming their type.
const DefaultRiverType = "water"

// GeneratorSpec selects and parameterises a map generator.
type GeneratorSpec struct {
	Kind  string   `json:"kind,omitempty"`
	Types []string `json:"types,omitempty"`
	Seed  int64    `json:"seed,omitempty"`
	Scale float64  `json:"scale,omitempty"`

	// Rivers carves that many top-to-bottom channels over the base map.
	Rivers    int    `json:"rivers,omitempty"`
	RiverType string `json:"river_type,omitempty"`
}

type GenerateMap struct {
	From
	Name      string        `json:"name"`
	Width     uint8         `json:"width"`
	Height    uint8         `json:"height"`
	WrapsX    bool          `json:"wraps_x"`
	Generator GeneratorSpec `json:"generator"`
}

type RemoveMap struct {
	From
	Name string `json:"name"`
}

type SelectTile struct {
	From
	Map   string    `json:"map"`
	Coord hex.Axial `json:"coord"`
}

// SelectPoint selects the hex under a point of the linear plane.
type SelectPoint struct {
	From
	Map string  `json:"map"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

type ClearSelection struct {
	From
}

type SpawnEntity struct {
	From
	Map   string    `json:"map"`
	Coord hex.Axial `json:"coord"`
	Kind  string    `json:"kind"`
}

type DespawnEntity struct {
	From
	Entity tilemap.EntityID `json:"entity"`
}

type MoveEntity struct {
	From
	Entity tilemap.EntityID `json:"entity"`
	Goal   hex.Axial        `json:"goal"`
}

// Quit asks the pump to stop after the current tick.
type Quit struct {
	From
}

// NewGenerator builds the generator described by spec against the loaded
// tile types.
func (e *Engine) NewGenerator(spec GeneratorSpec) (tilemap.Generator, error) {
	base, err := e.baseGenerator(spec)
	if err != nil || spec.Rivers <= 0 {
		return base, err
	}
	riverType := spec.RiverType
	if riverType == "" {
		riverType = DefaultRiverType
	}
	return tilemap.NewRivers(e.types, base, spec.Seed, spec.Rivers, riverType)
}

func (e *Engine) baseGenerator(spec GeneratorSpec) (tilemap.Generator, error) {
	names := spec.Types
	if len(names) == 0 {
		names = DefaultGeneratorTypes
	}
	switch spec.Kind {
	case "", GenAlternate:
		return tilemap.NewAlternation(e.types, names...)
	case GenNoise:
		return tilemap.NewNoise(e.types, spec.Seed, spec.Scale, names...)
	case GenFill:
		idx, err := e.types.Resolve(names[0])
		if err != nil {
			return nil, err
		}
		return tilemap.Fill(idx[0]), nil
	default:
		return nil, fmt.Errorf("engine: unknown generator %q", spec.Kind)
	}
}

// Apply performs one input and returns the resulting events, without tick
// or timestamp. A failed input changes nothing.
func (e *Engine) Apply(in Input) ([]Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch in := in.(type) {
	case GenerateMap:
		gen, err := e.NewGenerator(in.Generator)
		if err != nil {
			return nil, err
		}
		if _, err := e.generateMapLocked(in.Name, in.Width, in.Height, in.WrapsX, gen); err != nil {
			return nil, err
		}
		return []Event{{Type: EventMapGenerated, Map: in.Name, Client: in.Client}}, nil

	case RemoveMap:
		removed, err := e.removeMapLocked(in.Name)
		if err != nil {
			return nil, err
		}
		events := make([]Event, 0, len(removed)+1)
		for i := range removed {
			events = append(events, Event{Type: EventEntityDespawned, Map: in.Name, Client: in.Client, Entity: &removed[i], Coord: removed[i].Coord})
		}
		return append(events, Event{Type: EventMapRemoved, Map: in.Name, Client: in.Client}), nil

	case SelectTile:
		return e.applySelect(in.Client, in.Map, in.Coord)

	case SelectPoint:
		return e.applySelect(in.Client, in.Map, hex.FromLinear(in.X, in.Y))

	case ClearSelection:
		if !e.clearSelectionLocked(in.Client) {
			return nil, nil
		}
		return []Event{{Type: EventSelectionChanged, Client: in.Client}}, nil

	case SpawnEntity:
		if in.Kind == KindSelected {
			return nil, fmt.Errorf("%w: %s", ErrReservedKind, in.Kind)
		}
		ent, err := e.spawnLocked(in.Map, in.Coord, in.Kind, in.Client)
		if err != nil {
			return nil, err
		}
		return []Event{{Type: EventEntitySpawned, Map: ent.Map, Client: in.Client, Entity: ent.clone(), Coord: ent.Coord}}, nil

	case DespawnEntity:
		ent, ok := e.entities[in.Entity]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrEntityNotFound, in.Entity)
		}
		gone := ent.clone()
		e.despawnLocked(in.Entity)
		return []Event{{Type: EventEntityDespawned, Map: gone.Map, Client: in.Client, Entity: gone, Coord: gone.Coord}}, nil

	case MoveEntity:
		p, err := e.moveToLocked(in.Entity, in.Goal)
		if err != nil {
			return nil, err
		}
		ent := e.entities[in.Entity]
		return []Event{{Type: EventPathPlanned, Map: ent.Map, Client: in.Client, Entity: ent.clone(), Coord: ent.Coord, Path: p}}, nil

	case Quit:
		return []Event{{Type: EventQuit, Client: in.Client}}, nil

	default:
		return nil, fmt.Errorf("engine: unsupported input %T", in)
	}
}

func (e *Engine) applySelect(client, mapName string, c hex.Axial) ([]Event, error) {
	id, err := e.selectLocked(client, mapName, c)
	if err != nil {
		return nil, err
	}
	ev := Event{Type: EventSelectionChanged, Map: mapName, Client: client, Coord: c}
	if id != 0 {
		ev.Entity = e.entities[id].clone()
		ev.Coord = ev.Entity.Coord
	}
	return []Event{ev}, nil
}

// Advance walks every moving entity one step.
func (e *Engine) Advance() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.advanceLocked()
}

// TypeName returns the name of tile type idx, or "" if it is not registered.
func (e *Engine) TypeName(idx tile.Index) string {
	t, _ := e.types.Get(idx)
	return t.Name
}
