package console

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/gravitas-games/hexworld/pkg/engine"
	"github.com/gravitas-games/hexworld/pkg/hex"
	"github.com/gravitas-games/hexworld/pkg/tile"
)

func TestParseCommands(t *testing.T) {
	from := engine.From{Client: ClientID}
	cases := []struct {
		line string
		want engine.Input
	}{
		{"generate world 10 8", engine.GenerateMap{From: from, Name: "world", Width: 10, Height: 8}},
		{"generate world 10 8 wrap noise 42", engine.GenerateMap{From: from, Name: "world", Width: 10, Height: 8, WrapsX: true,
			Generator: engine.GeneratorSpec{Kind: engine.GenNoise, Seed: 42}}},
		{"remove world", engine.RemoveMap{From: from, Name: "world"}},
		{"  select   world 2 -1 ", engine.SelectTile{From: from, Map: "world", Coord: hex.Axial{Q: 2, R: -1}}},
		{"spawn world 1 1 scout", engine.SpawnEntity{From: from, Map: "world", Coord: hex.Axial{Q: 1, R: 1}, Kind: "scout"}},
		{"despawn 7", engine.DespawnEntity{From: from, Entity: 7}},
		{"move 7 3 4", engine.MoveEntity{From: from, Entity: 7, Goal: hex.Axial{Q: 3, R: 4}}},
		{"QUIT", engine.Quit{From: from}},
	}
	for _, tc := range cases {
		cmd, err := Parse(tc.line)
		if err != nil {
			t.Errorf("%q: %v", tc.line, err)
			continue
		}
		got, ok := cmd.Input.(interface{ ClientID() string })
		if !ok || got.ClientID() != ClientID {
			t.Errorf("%q: input not attributed to the console", tc.line)
		}
		if gm, ok := tc.want.(engine.GenerateMap); ok {
			in, ok := cmd.Input.(engine.GenerateMap)
			if !ok || in.Name != gm.Name || in.Width != gm.Width || in.Height != gm.Height || in.WrapsX != gm.WrapsX ||
				in.Generator.Kind != gm.Generator.Kind || in.Generator.Seed != gm.Generator.Seed {
				t.Errorf("%q: got %+v, want %+v", tc.line, cmd.Input, tc.want)
			}
			continue
		}
		if cmd.Input != tc.want {
			t.Errorf("%q: got %+v, want %+v", tc.line, cmd.Input, tc.want)
		}
	}
}

func TestParseLocalAndBlank(t *testing.T) {
	for _, line := range []string{"maps", "save"} {
		cmd, err := Parse(line)
		if err != nil || cmd.Name != line || cmd.Input != nil {
			t.Fatalf("%q: unexpected %+v %v", line, cmd, err)
		}
	}
	cmd, err := Parse("   ")
	if err != nil || cmd.Name != "" {
		t.Fatalf("blank line: %+v %v", cmd, err)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("mississippi"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected unknown command, got %v", err)
	}
	for _, line := range []string{
		"generate world 10",
		"generate world 300 8",
		"generate world 10 8 sideways",
		"select world a 1",
		"despawn -1",
		"move 1 2",
		"remove",
	} {
		if _, err := Parse(line); err == nil {
			t.Errorf("%q: expected error", line)
		}
	}
}

type memIO map[string]string

func (m memIO) Read(path string) (io.ReadCloser, error) {
	s, ok := m[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(s)), nil
}

func (memIO) TileAdded(tile.Index, *tile.Type) error { return nil }

func newPump(t *testing.T) *engine.Pump {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	eng := engine.New(quiet)
	if err := eng.Setup(memIO{tile.TypesPath: `[{"name":"dirt"},{"name":"grass"},{"name":"sand"}]`}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return engine.NewPump(eng, engine.NewSimpleEventBus(), engine.PumpConfig{Logger: quiet})
}

func TestRunSubmitsAndSkipsBadLines(t *testing.T) {
	pump := newPump(t)
	var out, logs bytes.Buffer
	saved := 0
	c := New(pump, func() (string, error) {
		saved++
		return "data/snapshots/snap_1.zst", nil
	}, &out, log.New(&logs, "", 0))

	script := "generate world 3 2 wrap\nbogus\n\nspawn world 0 0 scout\n"
	if err := c.Run(strings.NewReader(script)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(logs.String(), "unknown command: bogus") {
		t.Fatalf("parse error not logged: %q", logs.String())
	}

	pump.Step()
	info, err := pump.Engine().Map("world")
	if err != nil {
		t.Fatalf("map not generated: %v", err)
	}
	if !info.WrapsX || info.Entities != 1 {
		t.Fatalf("unexpected map %+v", info)
	}

	if err := c.Exec("maps"); err != nil {
		t.Fatalf("maps: %v", err)
	}
	if !strings.Contains(out.String(), "world 3x2 wraps tiles=12 entities=1") {
		t.Fatalf("unexpected maps output %q", out.String())
	}
	if err := c.Exec("save"); err != nil || saved != 1 {
		t.Fatalf("save: %v (saved %d)", err, saved)
	}
}

func TestSaveDisabled(t *testing.T) {
	c := New(newPump(t), nil, io.Discard, log.New(io.Discard, "", 0))
	if err := c.Exec("save"); err == nil {
		t.Fatalf("expected error without persistence")
	}
}
