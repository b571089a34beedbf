package models

import "time"

// Player is a connected front-end client. Its ID is the client id used for
// engine inputs, selections and event routing.
type Player struct {
	// From JWT claims; only ID and Username are set for anonymous players
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	Permissions int64  `json:"permissions,omitempty"` // bitwise permission flags
	Activated   int64  `json:"activated,omitempty"`   // activation timestamp, or -1 when banned
	AuthMethod  string `json:"auth_method,omitempty"`

	Anonymous bool `json:"anonymous"`

	// Connection state
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// NewAnonymous returns a player with no account behind it.
func NewAnonymous(id string) *Player {
	return &Player{ID: id, Username: "guest-" + shortID(id), Anonymous: true}
}

// IsActive checks if the player account is activated and not banned.
// Anonymous players are always active.
func (p *Player) IsActive() bool {
	return p.Anonymous || p.Activated > 0
}

// IsBanned checks if the player is banned
func (p *Player) IsBanned() bool {
	return p.Activated == -1
}

// MarkConnected records a new connection.
func (p *Player) MarkConnected(now time.Time) {
	p.Connected = true
	p.ConnectedAt = now
	p.LastSeen = now
}

// Touch records activity.
func (p *Player) Touch(now time.Time) { p.LastSeen = now }

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
