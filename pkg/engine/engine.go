// Package engine owns named hex maps and the entities placed on them.
//
// All mutation goes through Apply, normally driven by a Pump; the read
// accessors are safe to call from any goroutine.
package engine

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/gravitas-games/hexworld/pkg/hex"
	"github.com/gravitas-games/hexworld/pkg/tile"
	"github.com/gravitas-games/hexworld/pkg/tilemap"
)

var (
	ErrMapExists      = errors.New("engine: map already exists")
	ErrMapNotFound    = errors.New("engine: map does not exist")
	ErrEntityNotFound = errors.New("engine: entity does not exist")
	ErrOffMap         = tilemap.ErrOffMap
	ErrNoPath         = errors.New("engine: no path to destination")
	ErrNotSetup       = errors.New("engine: tile types not loaded")
	ErrReservedKind   = errors.New("engine: entity kind is reserved")
)

// Engine is the map store.
type Engine struct {
	mu     sync.RWMutex
	logger *log.Logger

	types *tile.Registry

	maps       map[string]*tilemap.TileMap
	entities   map[tilemap.EntityID]*Entity
	selections map[string]tilemap.EntityID
	nextEntity tilemap.EntityID
}

// MapInfo summarises one map.
type MapInfo struct {
	Name     string `json:"name"`
	Width    uint8  `json:"width"`
	Height   uint8  `json:"height"`
	WrapsX   bool   `json:"wraps_x"`
	Tiles    int    `json:"tiles"`
	Entities int    `json:"entities"`
}

// TileInfo describes one tile.
type TileInfo struct {
	Map      string             `json:"map"`
	Coord    hex.Axial          `json:"coord"`
	Type     tile.Index         `json:"type"`
	TypeName string             `json:"type_name"`
	Entities []tilemap.EntityID `json:"entities"`
}

// New constructs an engine with no tile types. A nil logger logs to stderr.
func New(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	return &Engine{
		logger:     logger,
		types:      tile.NewRegistry(),
		maps:       make(map[string]*tilemap.TileMap),
		entities:   make(map[tilemap.EntityID]*Entity),
		selections: make(map[string]tilemap.EntityID),
		nextEntity: 1,
	}
}

// Setup loads tile types through io.
func (e *Engine) Setup(io IO) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.types.Load(io, io.TileAdded); err != nil {
		return fmt.Errorf("failed to load tiledata: %w", err)
	}
	e.logger.Printf("loaded %d tile types", e.types.Len())
	return nil
}

// TileTypes exposes the registry; it is read-only after Setup.
func (e *Engine) TileTypes() *tile.Registry { return e.types }

// GenerateMap creates a new named map.
func (e *Engine) GenerateMap(name string, width, height uint8, wrapsX bool, gen tilemap.Generator) (MapInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generateMapLocked(name, width, height, wrapsX, gen)
}

func (e *Engine) generateMapLocked(name string, width, height uint8, wrapsX bool, gen tilemap.Generator) (MapInfo, error) {
	if name == "" {
		return MapInfo{}, errors.New("engine: map name is empty")
	}
	if e.types.Len() == 0 {
		return MapInfo{}, ErrNotSetup
	}
	if _, exists := e.maps[name]; exists {
		return MapInfo{}, fmt.Errorf("%w: %s", ErrMapExists, name)
	}
	m, err := tilemap.New(width, height, wrapsX, gen)
	if err != nil {
		return MapInfo{}, fmt.Errorf("failed to generate tile map: %w", err)
	}
	e.maps[name] = m
	e.logger.Printf("generated map %q %dx%d wraps_x=%v", name, m.Columns(), m.Rows(), wrapsX)
	return e.infoLocked(name, m), nil
}

// RemoveMap deletes a map and despawns everything on it.
func (e *Engine) RemoveMap(name string) ([]Entity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeMapLocked(name)
}

func (e *Engine) removeMapLocked(name string) ([]Entity, error) {
	if _, ok := e.maps[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, name)
	}
	var removed []Entity
	for _, id := range e.sortedEntityIDsLocked() {
		if ent := e.entities[id]; ent.Map == name {
			removed = append(removed, *ent.clone())
			e.despawnLocked(id)
		}
	}
	delete(e.maps, name)
	e.logger.Printf("removed map %q (%d entities)", name, len(removed))
	return removed, nil
}

// Map returns a summary of the named map.
func (e *Engine) Map(name string) (MapInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.maps[name]
	if !ok {
		return MapInfo{}, fmt.Errorf("%w: %s", ErrMapNotFound, name)
	}
	return e.infoLocked(name, m), nil
}

// MapTiles returns the map summary and its tile types in row-major order.
func (e *Engine) MapTiles(name string) (MapInfo, []tile.Index, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.maps[name]
	if !ok {
		return MapInfo{}, nil, fmt.Errorf("%w: %s", ErrMapNotFound, name)
	}
	return e.infoLocked(name, m), m.TypeIndices(), nil
}

// MapNames returns map names sorted.
func (e *Engine) MapNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.maps))
	for name := range e.maps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TileAt describes the tile at c, after wrapping.
func (e *Engine) TileAt(name string, c hex.Axial) (TileInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.maps[name]
	if !ok {
		return TileInfo{}, fmt.Errorf("%w: %s", ErrMapNotFound, name)
	}
	n, ok := m.Normalize(c)
	if !ok {
		return TileInfo{}, fmt.Errorf("%w: %v", ErrOffMap, c)
	}
	t, _ := m.Tile(n)
	ids := t.EntityIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ty, _ := e.types.Get(t.Type)
	return TileInfo{Map: name, Coord: n, Type: t.Type, TypeName: ty.Name, Entities: ids}, nil
}

func (e *Engine) infoLocked(name string, m *tilemap.TileMap) MapInfo {
	count := 0
	for _, ent := range e.entities {
		if ent.Map == name {
			count++
		}
	}
	return MapInfo{Name: name, Width: m.Width, Height: m.Height, WrapsX: m.WrapsX, Tiles: m.Len(), Entities: count}
}

func (e *Engine) sortedEntityIDsLocked() []tilemap.EntityID {
	ids := make([]tilemap.EntityID, 0, len(e.entities))
	for id := range e.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
