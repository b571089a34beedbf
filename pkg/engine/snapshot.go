package engine

import (
	"fmt"
	"sort"

	"github.com/gravitas-games/hexworld/pkg/hex"
	"github.com/gravitas-games/hexworld/pkg/snapshot"
	"github.com/gravitas-games/hexworld/pkg/tile"
	"github.com/gravitas-games/hexworld/pkg/tilemap"
)

// ExportSnapshot captures maps, entities and selections.
func (e *Engine) ExportSnapshot(tick uint64) snapshot.SnapshotV1 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := snapshot.SnapshotV1{
		Header:     snapshot.Header{Version: snapshot.Version, Tick: tick, Maps: len(e.maps)},
		TileTypes:  e.types.Names(),
		NextEntity: uint64(e.nextEntity),
	}
	for _, name := range sortedKeys(e.maps) {
		m := e.maps[name]
		tiles := make([]uint16, len(m.Tiles))
		for i := range m.Tiles {
			tiles[i] = uint16(m.Tiles[i].Type)
		}
		snap.Maps = append(snap.Maps, snapshot.MapV1{Name: name, Width: m.Width, Height: m.Height, WrapsX: m.WrapsX, Tiles: tiles})
	}
	for _, id := range e.sortedEntityIDsLocked() {
		ent := e.entities[id]
		ev := snapshot.EntityV1{ID: uint64(id), Kind: ent.Kind, Owner: ent.Owner, Map: ent.Map, Q: ent.Coord.Q, R: ent.Coord.R}
		for _, step := range ent.Path {
			ev.Path = append(ev.Path, [2]int{step.Q, step.R})
		}
		snap.Entities = append(snap.Entities, ev)
	}
	for _, client := range sortedKeys(e.selections) {
		snap.Selections = append(snap.Selections, snapshot.SelectionV1{Client: client, Entity: uint64(e.selections[client])})
	}
	return snap
}

// ImportSnapshot replaces all maps and entities with the snapshot contents.
// The snapshot's tile types must be a prefix of the loaded registry.
func (e *Engine) ImportSnapshot(snap snapshot.SnapshotV1) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := e.types.Names()
	if len(snap.TileTypes) > len(names) {
		return fmt.Errorf("snapshot has %d tile types, engine has %d", len(snap.TileTypes), len(names))
	}
	for i, n := range snap.TileTypes {
		if names[i] != n {
			return fmt.Errorf("snapshot tile type %d is %q, engine has %q", i, n, names[i])
		}
	}

	maps := make(map[string]*tilemap.TileMap, len(snap.Maps))
	for _, mv := range snap.Maps {
		if _, dup := maps[mv.Name]; dup {
			return fmt.Errorf("%w: %s", ErrMapExists, mv.Name)
		}
		tiles := mv.Tiles
		for _, t := range tiles {
			if int(t) >= len(snap.TileTypes) {
				return fmt.Errorf("map %s: tile type %d out of range", mv.Name, t)
			}
		}
		m, err := tilemap.New(mv.Width, mv.Height, mv.WrapsX, tilemap.GeneratorFunc(func(_ hex.Axial, i int) tile.Index {
			if i < len(tiles) {
				return tile.Index(tiles[i])
			}
			return tile.UnknownIndex
		}))
		if err != nil {
			return fmt.Errorf("map %s: %w", mv.Name, err)
		}
		if len(tiles) != m.Len() {
			return fmt.Errorf("map %s: %d tiles, want %d", mv.Name, len(tiles), m.Len())
		}
		maps[mv.Name] = m
	}

	entities := make(map[tilemap.EntityID]*Entity, len(snap.Entities))
	next := tilemap.EntityID(snap.NextEntity)
	for _, ev := range snap.Entities {
		id := tilemap.EntityID(ev.ID)
		m, ok := maps[ev.Map]
		if !ok {
			return fmt.Errorf("entity %d: %w: %s", id, ErrMapNotFound, ev.Map)
		}
		c, ok := m.Normalize(hex.Axial{Q: ev.Q, R: ev.R})
		if !ok {
			return fmt.Errorf("entity %d: %w", id, ErrOffMap)
		}
		if _, dup := entities[id]; dup || id == 0 {
			return fmt.Errorf("entity %d: duplicate or zero id", id)
		}
		ent := &Entity{ID: id, Kind: ev.Kind, Owner: ev.Owner, Map: ev.Map, Coord: c}
		for _, step := range ev.Path {
			ent.Path = append(ent.Path, hex.Axial{Q: step[0], R: step[1]})
		}
		t, _ := m.Tile(c)
		t.Entities.Put(id)
		entities[id] = ent
		if id >= next {
			next = id + 1
		}
	}

	selections := make(map[string]tilemap.EntityID, len(snap.Selections))
	for _, sv := range snap.Selections {
		ent, ok := entities[tilemap.EntityID(sv.Entity)]
		if !ok || ent.Kind != KindSelected || ent.Owner != sv.Client {
			return fmt.Errorf("selection for %s: bad entity %d", sv.Client, sv.Entity)
		}
		selections[sv.Client] = ent.ID
	}

	e.maps = maps
	e.entities = entities
	e.selections = selections
	e.nextEntity = max(next, 1)
	e.logger.Printf("imported snapshot at tick %d: %d maps, %d entities", snap.Header.Tick, len(maps), len(entities))
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
