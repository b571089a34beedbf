package engine

import (
	"errors"
	"fmt"

	"github.com/gravitas-games/hexworld/pkg/hex"
	"github.com/gravitas-games/hexworld/pkg/hex/path"
	"github.com/gravitas-games/hexworld/pkg/tile"
	"github.com/gravitas-games/hexworld/pkg/tilemap"
)

// KindSelected marks the entity that represents a client's selection.
const KindSelected = "selected"

// Entity is anything placed on a map tile. Path holds the steps still to be
// walked, nearest first.
type Entity struct {
	ID    tilemap.EntityID `json:"id"`
	Kind  string           `json:"kind"`
	Owner string           `json:"owner,omitempty"`
	Map   string           `json:"map"`
	Coord hex.Axial        `json:"coord"`
	Path  []hex.Axial      `json:"path,omitempty"`
}

func (ent *Entity) clone() *Entity {
	c := *ent
	if ent.Path != nil {
		c.Path = append([]hex.Axial(nil), ent.Path...)
	}
	return &c
}

// Spawn places a new entity of kind on the map. Selections are made with
// Select; spawning KindSelected fails with ErrReservedKind.
func (e *Engine) Spawn(mapName string, c hex.Axial, kind, owner string) (Entity, error) {
	if kind == KindSelected {
		return Entity{}, fmt.Errorf("%w: %s", ErrReservedKind, kind)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.spawnLocked(mapName, c, kind, owner)
	if err != nil {
		return Entity{}, err
	}
	return *ent.clone(), nil
}

func (e *Engine) spawnLocked(mapName string, c hex.Axial, kind, owner string) (*Entity, error) {
	if kind == "" {
		return nil, errors.New("engine: entity kind is empty")
	}
	m, ok := e.maps[mapName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, mapName)
	}
	n, ok := m.Normalize(c)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrOffMap, c)
	}
	ent := &Entity{ID: e.nextEntity, Kind: kind, Owner: owner, Map: mapName, Coord: n}
	e.nextEntity++
	t, _ := m.Tile(n)
	t.Entities.Put(ent.ID)
	e.entities[ent.ID] = ent
	return ent, nil
}

// Despawn removes an entity from its tile and the engine.
func (e *Engine) Despawn(id tilemap.EntityID) (Entity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entities[id]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	out := *ent.clone()
	e.despawnLocked(id)
	return out, nil
}

func (e *Engine) despawnLocked(id tilemap.EntityID) {
	ent, ok := e.entities[id]
	if !ok {
		return
	}
	if m, ok := e.maps[ent.Map]; ok {
		if t, err := m.Tile(ent.Coord); err == nil {
			t.Entities.Remove(id)
		}
	}
	if ent.Kind == KindSelected && e.selections[ent.Owner] == id {
		delete(e.selections, ent.Owner)
	}
	delete(e.entities, id)
}

// Entity returns a copy of the entity.
func (e *Engine) Entity(id tilemap.EntityID) (Entity, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ent, ok := e.entities[id]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	return *ent.clone(), nil
}

// EntitiesAt returns the entities on a tile ordered by id.
func (e *Engine) EntitiesAt(mapName string, c hex.Axial) ([]Entity, error) {
	info, err := e.TileAt(mapName, c)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Entity, 0, len(info.Entities))
	for _, id := range info.Entities {
		if ent, ok := e.entities[id]; ok {
			out = append(out, *ent.clone())
		}
	}
	return out, nil
}

// Passable reports whether entities may walk onto a tile of type t.
func Passable(t tile.Index) bool { return t != tile.UnknownIndex }

// MoveTo plans a path from the entity's tile to goal and stores it on the
// entity; the pump walks it one step per tick. The returned path excludes
// the current tile.
func (e *Engine) MoveTo(id tilemap.EntityID, goal hex.Axial) ([]hex.Axial, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.moveToLocked(id, goal)
}

func (e *Engine) moveToLocked(id tilemap.EntityID, goal hex.Axial) ([]hex.Axial, error) {
	ent, ok := e.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrEntityNotFound, id)
	}
	if ent.Kind == KindSelected {
		return nil, errors.New("engine: selections cannot move")
	}
	m := e.maps[ent.Map]
	g, ok := m.Normalize(goal)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrOffMap, goal)
	}
	if gt, _ := m.Tile(g); !Passable(gt.Type) {
		return nil, fmt.Errorf("%w: %v is impassable", ErrNoPath, g)
	}
	graph := path.Graph{
		Neighbors: func(a hex.Axial) []hex.Axial {
			var out []hex.Axial
			for _, n := range m.Neighbors(a) {
				if t, _ := m.Tile(n); Passable(t.Type) {
					out = append(out, n)
				}
			}
			return out
		},
		Heuristic: func(a hex.Axial) int { return m.Distance(a, g) },
	}
	p, _ := path.AStar(ent.Coord, g, graph, m.Len())
	if p == nil {
		return nil, fmt.Errorf("%w: %v -> %v", ErrNoPath, ent.Coord, g)
	}
	ent.Path = append([]hex.Axial(nil), p[1:]...)
	return append([]hex.Axial(nil), ent.Path...), nil
}

// advanceLocked moves every walking entity one step, in id order.
func (e *Engine) advanceLocked() []Event {
	var events []Event
	for _, id := range e.sortedEntityIDsLocked() {
		ent := e.entities[id]
		if len(ent.Path) == 0 {
			continue
		}
		m := e.maps[ent.Map]
		next := ent.Path[0]
		from, _ := m.Tile(ent.Coord)
		to, err := m.Tile(next)
		if err != nil {
			ent.Path = nil
			continue
		}
		from.Entities.Remove(id)
		to.Entities.Put(id)
		ent.Coord = next
		ent.Path = ent.Path[1:]
		if len(ent.Path) == 0 {
			ent.Path = nil
		}
		events = append(events, Event{Type: EventEntityMoved, Map: ent.Map, Client: ent.Owner, Entity: ent.clone(), Coord: next})
	}
	return events
}

// Select replaces the client's selection with one at c. A coordinate off the
// map only clears the previous selection. The new selection id is returned,
// or zero when nothing was selected.
func (e *Engine) Select(client, mapName string, c hex.Axial) (tilemap.EntityID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectLocked(client, mapName, c)
}

func (e *Engine) selectLocked(client, mapName string, c hex.Axial) (tilemap.EntityID, error) {
	m, ok := e.maps[mapName]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMapNotFound, mapName)
	}
	e.clearSelectionLocked(client)
	if !m.Contains(c) {
		return 0, nil
	}
	ent, err := e.spawnLocked(mapName, c, KindSelected, client)
	if err != nil {
		return 0, err
	}
	e.selections[client] = ent.ID
	return ent.ID, nil
}

// ClearSelection drops the client's selection, reporting whether it had one.
func (e *Engine) ClearSelection(client string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clearSelectionLocked(client)
}

func (e *Engine) clearSelectionLocked(client string) bool {
	id, ok := e.selections[client]
	if !ok {
		return false
	}
	e.despawnLocked(id)
	delete(e.selections, client)
	return true
}

// Selection returns the client's selection entity.
func (e *Engine) Selection(client string) (Entity, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.selections[client]
	if !ok {
		return Entity{}, false
	}
	return *e.entities[id].clone(), true
}

// Entities returns all entities ordered by id.
func (e *Engine) Entities() []Entity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Entity, 0, len(e.entities))
	for _, id := range e.sortedEntityIDsLocked() {
		out = append(out, *e.entities[id].clone())
	}
	return out
}
