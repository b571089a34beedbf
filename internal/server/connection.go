package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/hexworld/internal/network"
	"github.com/gravitas-games/hexworld/pkg/engine"
	"github.com/gravitas-games/hexworld/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	ws     *websocket.Conn
	server *Server
	player *models.Player

	// Buffered channel for outbound messages
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection creates a new connection for an identified player
func NewConnection(ws *websocket.Conn, server *Server, player *models.Player) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		player: player,
		send:   make(chan []byte, server.config.Server.SendBuffer),
		done:   make(chan struct{}),
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.sendWelcome()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the engine
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		c.player.Touch(time.Now())

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Printf("Failed to parse client message: %v", err)
			c.SendError("invalid_message", "Failed to parse message")
			continue
		}
		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage answers server-side queries and forwards the rest to the pump
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	switch msg.Type {
	case network.MsgTypeHello:
		c.handleHello(msg.Payload)

	case network.MsgTypePing:
		c.SendMessage(&network.ServerMessage{
			Type:    network.MsgTypePong,
			Payload: network.PongPayload{Timestamp: time.Now().Unix(), Tick: c.server.pump.Tick()},
		})

	case network.MsgTypeGetMap:
		c.handleGetMap(msg)

	default:
		in, err := network.DecodeInput(msg, c.player.ID)
		if err != nil {
			log.Printf("Rejected message from %s: %v", c.player.ID, err)
			c.SendError("invalid_message", err.Error())
			return
		}
		if err := c.server.pump.Submit(in); err != nil {
			if errors.Is(err, engine.ErrInboxFull) {
				c.SendError("server_busy", "Input queue is full, try again")
				return
			}
			c.SendError("submit_failed", err.Error())
		}
	}
}

func (c *Connection) handleHello(payload json.RawMessage) {
	var hello network.HelloPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &hello); err != nil {
			c.SendError("invalid_hello", "Invalid hello payload")
			return
		}
	}
	if c.player.Anonymous && hello.Username != "" {
		c.player.Username = hello.Username
	}
	c.sendWelcome()
}

func (c *Connection) handleGetMap(msg *network.ClientMessage) {
	var req network.MapNamePayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.SendError("invalid_message", "get_map needs a map name")
		return
	}
	payload, err := c.server.mapData(req.Name)
	if err != nil {
		c.SendError("map_not_found", err.Error())
		return
	}
	c.SendMessage(&network.ServerMessage{Type: network.MsgTypeMapData, Payload: payload})
}

func (c *Connection) sendWelcome() {
	eng := c.server.pump.Engine()
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			ClientID:  c.player.ID,
			Username:  c.player.Username,
			Anonymous: c.player.Anonymous,
			SessionID: c.server.session.ID,
			TileTypes: eng.TileTypes().Names(),
			Maps:      eng.MapNames(),
			Status:    c.server.session.GetStatus(),
		},
	})
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}
	c.sendRaw(data)
}

func (c *Connection) sendRaw(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		log.Printf("Send buffer full for %s, dropping message", c.player.ID)
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close leaves the session and shuts the socket; safe to call repeatedly
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.server.session.RemovePlayer(c.player.ID, c)
		c.ws.Close()
	})
}
