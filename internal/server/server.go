package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gravitas-games/hexworld/internal/config"
	"github.com/gravitas-games/hexworld/internal/network"
	"github.com/gravitas-games/hexworld/internal/persistence/indexdb"
	"github.com/gravitas-games/hexworld/pkg/engine"
	"github.com/gravitas-games/hexworld/pkg/models"
)

// Server bridges front ends to the engine over HTTP and WebSocket
type Server struct {
	config       *config.Config
	pump         *engine.Pump
	session      *Session
	upgrader     websocket.Upgrader
	httpSrv      *http.Server
	jwtValidator *JWTValidator
	catalog      Catalog

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// Option customises a Server.
type Option func(*Server)

// WithValidator replaces the validator built from config.
func WithValidator(v *JWTValidator) Option {
	return func(s *Server) { s.jwtValidator = v }
}

// Catalog lists what the persistence index has recorded.
type Catalog interface {
	Maps(ctx context.Context) ([]indexdb.MapRow, error)
	Snapshots(ctx context.Context) ([]indexdb.SnapshotRow, error)
	LatestSnapshot(ctx context.Context) (indexdb.SnapshotRow, bool, error)
}

// WithCatalog serves the persistence index under /index.
func WithCatalog(c Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// New creates a server around a pump. redisClient may be nil. JWT auth is
// enabled when jwt.public_key_url is configured or WithValidator is given.
func New(cfg *config.Config, pump *engine.Pump, redisClient *redis.Client, opts ...Option) (*Server, error) {
	log.Println("Initializing server...")

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		config:      cfg,
		pump:        pump,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{"access_token"},
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(srv)
	}

	if srv.jwtValidator == nil && cfg.JWT.PublicKeyURL != "" {
		v, err := NewJWTValidator(ctx, cfg, redisClient)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
		}
		srv.jwtValidator = v
	}
	if srv.jwtValidator == nil {
		log.Println("JWT not configured, clients connect anonymously")
	}

	srv.session = NewSession(uuid.NewString(), pump, cfg.Server.MaxClients)

	log.Println("Server initialized successfully")
	return srv, nil
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router()
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("WebSocket endpoint: ws://%s/ws", addr)
	log.Printf("Health endpoint: http://%s/health", addr)

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	log.Println("Shutting down server...")

	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}

	s.connMu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.connMu.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}

	s.session.Close()

	log.Println("Server shutdown complete")
	return nil
}

// Session returns the server's client registry
func (s *Server) Session() *Session { return s.session }

// authenticate identifies the caller, anonymously when JWT is off
func (s *Server) authenticate(r *http.Request) (*models.Player, error) {
	if s.jwtValidator == nil {
		return models.NewAnonymous(uuid.NewString()), nil
	}
	tokenString := extractToken(r)
	if tokenString == "" {
		return nil, fmt.Errorf("missing authentication token")
	}
	player, err := s.jwtValidator.ValidateToken(r.Context(), tokenString)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return player, nil
}

// handleWebSocket handles WebSocket connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log.Printf("New WebSocket connection request from %s", r.RemoteAddr)

	player, err := s.authenticate(r)
	if err != nil {
		log.Printf("Rejected connection from %s: %v", r.RemoteAddr, err)
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(ws, s, player)
	if err := s.session.AddPlayer(player, conn); err != nil {
		log.Printf("Refusing %s: %v", player.ID, err)
		data, _ := json.Marshal(network.ServerMessage{Type: network.MsgTypeError, Payload: network.ErrorPayload{Code: "session_full", Message: err.Error()}})
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		ws.WriteMessage(websocket.TextMessage, data)
		ws.Close()
		return
	}

	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	log.Printf("WebSocket connection established: %s (%s)", player.Username, r.RemoteAddr)

	// Handle connection (blocking)
	conn.Handle()

	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()

	log.Printf("WebSocket connection closed: %s (%s)", player.Username, r.RemoteAddr)
}

// mapData builds the payload of a map_data message
func (s *Server) mapData(name string) (network.MapDataPayload, error) {
	eng := s.pump.Engine()
	info, tiles, err := eng.MapTiles(name)
	if err != nil {
		return network.MapDataPayload{}, err
	}
	out := make([]uint16, len(tiles))
	for i, t := range tiles {
		out[i] = uint16(t)
	}
	return network.MapDataPayload{Map: info, Tiles: out, TileTypes: eng.TileTypes().Names()}, nil
}
