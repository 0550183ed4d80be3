package adapter

import (
	"slices"
	"sort"
	"strings"

	"github.com/mcpbridge/mcpbridge/pkg/types"
)

// deepCopy copies a decoded JSON value so that filters never touch the tool's own schema.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func copySchema(schema map[string]any) map[string]any {
	if schema == nil {
		return map[string]any{}
	}
	return deepCopy(schema).(map[string]any)
}

func propertiesOf(schema map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	return props
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toAnyList(list []string) []any {
	out := make([]any, 0, len(list))
	for _, s := range list {
		out = append(out, s)
	}
	return out
}

// strictSchema prepares a schema for OpenAI strict function calling:
// every object forbids additional properties and lists all of its properties as required,
// and properties that were optional become nullable instead.
func strictSchema(schema map[string]any) map[string]any {
	out := copySchema(schema)
	delete(out, "$schema")
	out["type"] = "object"
	if propertiesOf(out) == nil {
		out["properties"] = map[string]any{}
	}
	makeStrict(out)
	return out
}

func makeStrict(node map[string]any) {
	if props := propertiesOf(node); props != nil {
		originallyRequired := types.StringList(node["required"])
		for name, p := range props {
			prop, ok := p.(map[string]any)
			if !ok {
				continue
			}
			makeStrict(prop)
			if !slices.Contains(originallyRequired, name) {
				makeNullable(prop)
			}
		}
		node["required"] = toAnyList(sortedKeys(props))
		node["additionalProperties"] = false
	}
	if items, ok := node["items"].(map[string]any); ok {
		makeStrict(items)
	}
	for _, key := range []string{"anyOf", "oneOf", "allOf"} {
		if variants, ok := node[key].([]any); ok {
			for _, v := range variants {
				if m, ok := v.(map[string]any); ok {
					makeStrict(m)
				}
			}
		}
	}
}

func makeNullable(prop map[string]any) {
	switch t := prop["type"].(type) {
	case string:
		if t != "null" {
			prop["type"] = []any{t, "null"}
		}
	case []any:
		if !slices.Contains(t, any("null")) {
			prop["type"] = append(t, "null")
		}
	}
}

// geminiAllowedKeys are the schema keywords Gemini function declarations accept.
var geminiAllowedKeys = map[string]bool{
	"type":        true,
	"format":      true,
	"title":       true,
	"description": true,
	"nullable":    true,
	"enum":        true,
	"items":       true,
	"minItems":    true,
	"maxItems":    true,
	"properties":  true,
	"required":    true,
	"minimum":     true,
	"maximum":     true,
	"anyOf":       true,
}

// geminiSchema keeps only the schema keywords Gemini understands.
func geminiSchema(schema map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range schema {
		if !geminiAllowedKeys[k] {
			continue
		}
		switch k {
		case "properties":
			props, ok := v.(map[string]any)
			if !ok {
				continue
			}
			filtered := make(map[string]any, len(props))
			for name, p := range props {
				if m, ok := p.(map[string]any); ok {
					filtered[name] = geminiSchema(m)
				}
			}
			out[k] = filtered
		case "items":
			if m, ok := v.(map[string]any); ok {
				out[k] = geminiSchema(m)
			}
		case "anyOf":
			if variants, ok := v.([]any); ok {
				filtered := make([]any, 0, len(variants))
				for _, variant := range variants {
					if m, ok := variant.(map[string]any); ok {
						filtered = append(filtered, geminiSchema(m))
					}
				}
				out[k] = filtered
			}
		case "type":
			// Gemini has no union types, a nullable type is expressed with "nullable"
			if list, ok := v.([]any); ok {
				for _, t := range list {
					s, _ := t.(string)
					switch s {
					case "":
					case "null":
						out["nullable"] = true
					default:
						if _, set := out[k]; !set {
							out[k] = s
						}
					}
				}
				continue
			}
			out[k] = deepCopy(v)
		default:
			out[k] = deepCopy(v)
		}
	}

	// string formats other than enum and date-time are rejected
	if t, _ := out["type"].(string); t == "string" {
		if f, ok := out["format"].(string); ok && f != "enum" && f != "date-time" {
			delete(out, "format")
		}
	}
	return out
}

// bedrockSchema projects every top level property to its type (default string) and description.
func bedrockSchema(schema map[string]any) map[string]any {
	props := map[string]any{}
	for name, p := range propertiesOf(schema) {
		prop := map[string]any{"type": "string"}
		if m, ok := p.(map[string]any); ok {
			if t, ok := m["type"]; ok {
				prop["type"] = deepCopy(t)
			}
			if d, ok := m["description"].(string); ok && strings.TrimSpace(d) != "" {
				prop["description"] = d
			}
		}
		props[name] = prop
	}

	required := types.StringList(schema["required"])
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
