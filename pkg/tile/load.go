package tile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// TypesPath is where tile type data lives relative to the resource root.
const TypesPath = "tiles/tile_types.json"

// Source opens resource files by relative path.
type Source interface {
	Read(path string) (io.ReadCloser, error)
}

const schemaURL = "https://hexworld.local/schemas/tile_types.schema.json"

//go:embed tile_types.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func typesSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Load fills an empty registry: unknown first, then every type listed in
// TypesPath in file order.
func (r *Registry) Load(src Source, onAdded AddedFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.types) != 0 {
		return ErrAlreadyLoaded
	}
	if _, err := r.addLocked(Type{Name: UnknownName}, onAdded); err != nil {
		return err
	}

	rc, err := src.Read(TypesPath)
	if err != nil {
		return fmt.Errorf("failed to load tiledata information file: %w", err)
	}
	defer rc.Close()

	types, err := ParseTypes(rc)
	if err != nil {
		return err
	}
	for _, t := range types {
		if _, err := r.addLocked(t, onAdded); err != nil {
			return err
		}
	}
	return nil
}

// ParseTypes decodes and schema-checks a tile type data file.
func ParseTypes(rd io.Reader) ([]Type, error) {
	raw, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiledata information file: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse tiledata information: %w", err)
	}
	sch, err := typesSchema()
	if err != nil {
		return nil, fmt.Errorf("tile types schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("failed to parse tiledata information: %w", err)
	}
	var types []Type
	if err := json.Unmarshal(raw, &types); err != nil {
		return nil, fmt.Errorf("failed to parse tiledata information: %w", err)
	}
	return types, nil
}
