package models

import (
	"testing"
	"time"
)

func TestAnonymousPlayer(t *testing.T) {
	p := NewAnonymous("0f8fad5b-d9cb-469f-a165-70867728950e")
	if p.Username != "guest-0f8fad5b" || !p.Anonymous {
		t.Fatalf("unexpected player %+v", p)
	}
	if !p.IsActive() || p.IsBanned() {
		t.Fatalf("anonymous players are active")
	}
	now := time.Unix(100, 0)
	p.MarkConnected(now)
	p.Touch(now.Add(time.Second))
	if !p.Connected || !p.ConnectedAt.Equal(now) || p.LastSeen.Sub(now) != time.Second {
		t.Fatalf("unexpected connection state %+v", p)
	}
}

func TestActivation(t *testing.T) {
	if (&Player{Activated: 0}).IsActive() {
		t.Fatalf("unactivated account must not be active")
	}
	banned := &Player{Activated: -1}
	if banned.IsActive() || !banned.IsBanned() {
		t.Fatalf("banned account state wrong")
	}
}
