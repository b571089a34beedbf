package network

import (
	"encoding/json"
	"fmt"

	"github.com/gravitas-games/hexworld/pkg/engine"
	"github.com/gravitas-games/hexworld/pkg/hex"
	"github.com/gravitas-games/hexworld/pkg/tilemap"
)

// Message types - Client → Server
const (
	MsgTypeHello          = "hello"
	MsgTypeGenerateMap    = "generate_map"
	MsgTypeRemoveMap      = "remove_map"
	MsgTypeSelect         = "select"
	MsgTypeSelectPoint    = "select_point"
	MsgTypeClearSelection = "clear_selection"
	MsgTypeSpawn          = "spawn"
	MsgTypeDespawn        = "despawn"
	MsgTypeMove           = "move"
	MsgTypePing           = "ping"
	MsgTypeGetMap         = "get_map"
)

// Message types - Server → Client
const (
	MsgTypeWelcome = "welcome"
	MsgTypeEvent   = "event"
	MsgTypeMapData = "map_data"
	MsgTypeError   = "error"
	MsgTypePong    = "pong"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// --- Client Message Payloads ---

// HelloPayload is optional; anonymous clients may pick a display name
type HelloPayload struct {
	Username string `json:"username"`
}

// GenerateMapPayload requests a new named map
type GenerateMapPayload struct {
	Name      string               `json:"name"`
	Width     uint8                `json:"width"`
	Height    uint8                `json:"height"`
	WrapsX    bool                 `json:"wraps_x"`
	Generator engine.GeneratorSpec `json:"generator"`
}

// MapNamePayload names a map (remove_map, get_map)
type MapNamePayload struct {
	Name string `json:"name"`
}

// SelectPayload selects a tile by axial coordinate
type SelectPayload struct {
	Map string `json:"map"`
	Q   int    `json:"q"`
	R   int    `json:"r"`
}

// SelectPointPayload selects the hex under a linear-plane point
type SelectPointPayload struct {
	Map string  `json:"map"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

// SpawnPayload places an entity
type SpawnPayload struct {
	Map  string `json:"map"`
	Q    int    `json:"q"`
	R    int    `json:"r"`
	Kind string `json:"kind"`
}

// EntityPayload names an entity (despawn)
type EntityPayload struct {
	Entity tilemap.EntityID `json:"entity"`
}

// MovePayload sends an entity towards a tile
type MovePayload struct {
	Entity tilemap.EntityID `json:"entity"`
	Q      int              `json:"q"`
	R      int              `json:"r"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to client after successful connection
type WelcomePayload struct {
	ClientID  string        `json:"client_id"`
	Username  string        `json:"username"`
	Anonymous bool          `json:"anonymous"`
	SessionID string        `json:"session_id"`
	TileTypes []string      `json:"tile_types"`
	Maps      []string      `json:"maps"`
	Status    SessionStatus `json:"status"`
}

// MapDataPayload carries a whole map's tile types, row-major
type MapDataPayload struct {
	Map       engine.MapInfo `json:"map"`
	Tiles     []uint16       `json:"tiles"`
	TileTypes []string       `json:"tile_types"`
}

// SessionStatus represents the current session state
type SessionStatus struct {
	ClientCount int    `json:"client_count"`
	MaxClients  int    `json:"max_clients"`
	ServerTick  uint64 `json:"server_tick"`
	Uptime      int64  `json:"uptime"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongPayload answers a ping
type PongPayload struct {
	Timestamp int64  `json:"timestamp"`
	Tick      uint64 `json:"tick"`
}

// DecodeInput turns an engine-bound client message into an engine input on
// behalf of client. Messages answered by the server itself (hello, ping,
// get_map) are not inputs and return an error.
func DecodeInput(msg *ClientMessage, client string) (engine.Input, error) {
	from := engine.From{Client: client}
	switch msg.Type {
	case MsgTypeGenerateMap:
		var p GenerateMapPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		return engine.GenerateMap{From: from, Name: p.Name, Width: p.Width, Height: p.Height, WrapsX: p.WrapsX, Generator: p.Generator}, nil

	case MsgTypeRemoveMap:
		var p MapNamePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		return engine.RemoveMap{From: from, Name: p.Name}, nil

	case MsgTypeSelect:
		var p SelectPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		return engine.SelectTile{From: from, Map: p.Map, Coord: hex.Axial{Q: p.Q, R: p.R}}, nil

	case MsgTypeSelectPoint:
		var p SelectPointPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		return engine.SelectPoint{From: from, Map: p.Map, X: p.X, Y: p.Y}, nil

	case MsgTypeClearSelection:
		return engine.ClearSelection{From: from}, nil

	case MsgTypeSpawn:
		var p SpawnPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		return engine.SpawnEntity{From: from, Map: p.Map, Coord: hex.Axial{Q: p.Q, R: p.R}, Kind: p.Kind}, nil

	case MsgTypeDespawn:
		var p EntityPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		return engine.DespawnEntity{From: from, Entity: p.Entity}, nil

	case MsgTypeMove:
		var p MovePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		return engine.MoveEntity{From: from, Entity: p.Entity, Goal: hex.Axial{Q: p.Q, R: p.R}}, nil

	default:
		return nil, fmt.Errorf("message type %q is not an engine input", msg.Type)
	}
}

func decode(msg *ClientMessage, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", msg.Type, err)
	}
	return nil
}
