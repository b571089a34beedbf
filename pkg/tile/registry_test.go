package tile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
)

type memSource map[string]string

func (m memSource) Read(path string) (io.ReadCloser, error) {
	s, ok := m[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return io.NopCloser(strings.NewReader(s)), nil
}

const sampleTypes = `[
  {"name": "dirt", "data": {"sprite": "dirt.png"}},
  {"name": "grass"},
  {"name": "sand"},
  {"name": "water"}
]`

func TestLoadInsertsUnknownFirst(t *testing.T) {
	reg := NewRegistry()
	var seen []string
	err := reg.Load(memSource{TypesPath: sampleTypes}, func(idx Index, ty *Type) error {
		seen = append(seen, fmt.Sprintf("%d:%s", idx, ty.Name))
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if reg.Len() != 5 {
		t.Fatalf("expected 5 types, got %d", reg.Len())
	}
	if ty, _ := reg.Get(UnknownIndex); ty.Name != UnknownName {
		t.Fatalf("expected unknown at 0, got %q", ty.Name)
	}
	if idx, ok := reg.Lookup("water"); !ok || idx != 4 {
		t.Fatalf("expected water at 4, got %d (%v)", idx, ok)
	}
	want := "0:unknown 1:dirt 2:grass 3:sand 4:water"
	if got := strings.Join(seen, " "); got != want {
		t.Fatalf("callback order: got %q want %q", got, want)
	}
	if ty, _ := reg.Get(1); ty.Data["sprite"] != "dirt.png" {
		t.Fatalf("expected opaque data to survive load, got %v", ty.Data)
	}
}

func TestLoadTwiceRejected(t *testing.T) {
	reg := NewRegistry()
	src := memSource{TypesPath: sampleTypes}
	if err := reg.Load(src, nil); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if err := reg.Load(src, nil); !errors.Is(err, ErrAlreadyLoaded) {
		t.Fatalf("expected ErrAlreadyLoaded, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	err := NewRegistry().Load(memSource{}, nil)
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed to load tiledata information file") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	cases := []string{
		`{"name": "dirt"}`,
		`[{"data": {}}]`,
		`[{"name": ""}]`,
		`[{"name": "dirt", "colour": "brown"}]`,
		`not json`,
	}
	for _, doc := range cases {
		err := NewRegistry().Load(memSource{TypesPath: doc}, nil)
		if err == nil {
			t.Errorf("expected error for %s", doc)
			continue
		}
		if !strings.Contains(err.Error(), "failed to parse tiledata information") {
			t.Errorf("unexpected message for %s: %v", doc, err)
		}
	}
}

func TestAddValidation(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Add(Type{}, nil); !errors.Is(err, ErrInvalidType) || !strings.Contains(err.Error(), "name is empty") {
		t.Fatalf("expected empty name rejection, got %v", err)
	}
	if _, err := reg.Add(Type{Name: "rock"}, nil); err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}
	if _, err := reg.Add(Type{Name: "rock"}, nil); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	boom := errors.New("boom")
	if _, err := reg.Add(Type{Name: "lava"}, func(Index, *Type) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if _, ok := reg.Lookup("lava"); ok {
		t.Fatalf("failed callback must not insert")
	}
}

func TestAddRegistryFull(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < MaxTypes; i++ {
		if _, err := reg.Add(Type{Name: fmt.Sprintf("t%d", i)}, nil); err != nil {
			t.Fatalf("unexpected add error at %d: %v", i, err)
		}
	}
	if _, err := reg.Add(Type{Name: "overflow"}, nil); !errors.Is(err, ErrRegistryFull) {
		t.Fatalf("expected ErrRegistryFull, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Load(memSource{TypesPath: sampleTypes}, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	idx, err := reg.Resolve("grass", "dirt")
	if err != nil || len(idx) != 2 || idx[0] != 2 || idx[1] != 1 {
		t.Fatalf("unexpected resolve result %v %v", idx, err)
	}
	if _, err := reg.Resolve("lava"); err == nil || err.Error() != "missing tile type: lava" {
		t.Fatalf("expected missing tile type error, got %v", err)
	}
}
