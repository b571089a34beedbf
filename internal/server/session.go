package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gravitas-games/hexworld/internal/network"
	"github.com/gravitas-games/hexworld/pkg/engine"
	"github.com/gravitas-games/hexworld/pkg/models"
)

// ErrSessionFull is returned when MaxClients players are connected.
var ErrSessionFull = errors.New("session is full")

// Session tracks connected players and fans engine events out to them
type Session struct {
	ID        string
	CreatedAt time.Time

	players     map[string]*models.Player // playerID -> Player
	connections map[string]*Connection    // playerID -> Connection
	mu          sync.RWMutex

	pump       *engine.Pump
	maxClients int
}

// NewSession creates a session and subscribes it to the pump's bus
func NewSession(id string, pump *engine.Pump, maxClients int) *Session {
	s := &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		players:     make(map[string]*models.Player),
		connections: make(map[string]*Connection),
		pump:        pump,
		maxClients:  maxClients,
	}
	pump.Bus().Subscribe(s.busID(), s.onEvent)
	log.Printf("Session %s created (max %d clients)", id, maxClients)
	return s
}

func (s *Session) busID() string { return "session:" + s.ID }

// Close stops event delivery
func (s *Session) Close() {
	s.pump.Bus().Unsubscribe(s.busID())
}

// onEvent runs on the pump goroutine; it encodes once and never blocks.
func (s *Session) onEvent(ev engine.Event) {
	data, err := json.Marshal(network.ServerMessage{Type: network.MsgTypeEvent, Payload: ev})
	if err != nil {
		log.Printf("Failed to marshal event %s: %v", ev.Type, err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conn := range s.connections {
		conn.sendRaw(data)
	}
}

// AddPlayer adds a player to the session
func (s *Session) AddPlayer(player *models.Player, conn *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[player.ID]; !exists && s.maxClients > 0 && len(s.players) >= s.maxClients {
		return ErrSessionFull
	}
	if old, exists := s.connections[player.ID]; exists && old != conn {
		// same account reconnecting; the old socket loses its slot
		go old.Close()
	}
	player.MarkConnected(time.Now())
	s.players[player.ID] = player
	s.connections[player.ID] = conn

	log.Printf("Player %s (%s) joined session %s", player.Username, player.ID, s.ID)
	return nil
}

// RemovePlayer removes a player and drops their selection
func (s *Session) RemovePlayer(playerID string, conn *Connection) {
	s.mu.Lock()
	player, exists := s.players[playerID]
	if !exists || s.connections[playerID] != conn {
		s.mu.Unlock()
		return
	}
	delete(s.players, playerID)
	delete(s.connections, playerID)
	s.mu.Unlock()

	log.Printf("Player %s (%s) left session %s", player.Username, playerID, s.ID)
	if err := s.pump.Submit(engine.ClearSelection{From: engine.From{Client: playerID}}); err != nil {
		log.Printf("Failed to clear selection of %s: %v", playerID, err)
	}
}

// GetPlayer retrieves a player by ID
func (s *Session) GetPlayer(playerID string) (*models.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, exists := s.players[playerID]
	return player, exists
}

// GetPlayers returns all players in the session
func (s *Session) GetPlayers() []*models.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]*models.Player, 0, len(s.players))
	for _, player := range s.players {
		players = append(players, player)
	}
	return players
}

// BroadcastMessage sends a message to all connected players
func (s *Session) BroadcastMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conn := range s.connections {
		conn.sendRaw(data)
	}
}

// GetStatus returns the current session status
func (s *Session) GetStatus() network.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return network.SessionStatus{
		ClientCount: len(s.players),
		MaxClients:  s.maxClients,
		ServerTick:  s.pump.Tick(),
		Uptime:      int64(time.Since(s.CreatedAt).Seconds()),
	}
}
