package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mcpbridge/mcpbridge/internal/toolerr"
	"github.com/mcpbridge/mcpbridge/pkg/types"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// argumentValidator checks call arguments against tool input schemas.
// Compiled schemas are cached by their JSON text.
type argumentValidator struct {
	mu    sync.Mutex
	cache map[string]*jsonschema.Schema
}

func newArgumentValidator() *argumentValidator {
	return &argumentValidator{cache: make(map[string]*jsonschema.Schema)}
}

func (v *argumentValidator) validate(tool types.Tool, args map[string]any) error {
	if len(tool.InputSchema) == 0 {
		return nil
	}
	schema, err := v.compile(tool.InputSchema)
	if err != nil {
		// schemas that do not compile are not enforced
		return nil
	}

	// round-trip the arguments so that numbers and nested values have their decoded JSON types
	var doc any = map[string]any{}
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return toolerr.New(toolerr.KindSerialization, "validate arguments", err)
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return toolerr.New(toolerr.KindSerialization, "validate arguments", err)
		}
	}

	if err := schema.Validate(doc); err != nil {
		return toolerr.ForServer(toolerr.KindConfiguration, "validate arguments", tool.ServerID,
			fmt.Errorf("invalid arguments for tool %s: %w", tool.ID, err))
	}
	return nil
}

func (v *argumentValidator) compile(schema map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	key := string(b)

	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.cache[key]; ok {
		return s, nil
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("schema resource: %w", err)
	}
	s, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v.cache[key] = s
	return s, nil
}
