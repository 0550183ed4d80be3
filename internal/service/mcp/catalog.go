package mcp

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

// RawTool is the wire descriptor of a tool as listed by an MCP server.
type RawTool struct {
	Name         string          `json:"name"`
	Title        string          `json:"title,omitempty"`
	Description  string          `json:"description,omitempty"`
	InputSchema  json.RawMessage `json:"inputSchema,omitempty"`
	OutputSchema json.RawMessage `json:"outputSchema,omitempty"`
	Annotations  *struct {
		Title string `json:"title,omitempty"`
	} `json:"annotations,omitempty"`
}

// displayName picks the name shown to users. The title annotation wins over the raw name.
func (t *RawTool) displayName() string {
	if t.Annotations != nil && strings.TrimSpace(t.Annotations.Title) != "" {
		return t.Annotations.Title
	}
	if strings.TrimSpace(t.Title) != "" {
		return t.Title
	}
	return t.Name
}

// toCanonicalTool maps a raw tool descriptor from a server onto the canonical Tool.
// A missing or unusable input schema becomes an empty object schema.
func toCanonicalTool(logger *zap.Logger, server *types.MCPServer, raw RawTool) types.Tool {
	inputSchema := decodeSchema(raw.InputSchema)
	if inputSchema == nil {
		if len(bytes.TrimSpace(raw.InputSchema)) > 0 && string(bytes.TrimSpace(raw.InputSchema)) != "null" {
			logger.Debug(
				"tool has an unusable input schema, using an empty object schema",
				zap.String("server", server.ID),
				zap.String("tool", raw.Name),
			)
		}
		inputSchema = types.EmptyObjectSchema()
	}

	return types.Tool{
		ID:           raw.Name,
		Name:         raw.displayName(),
		Description:  raw.Description,
		InputSchema:  inputSchema,
		OutputSchema: decodeSchema(raw.OutputSchema),
		ServerID:     server.ID,
		ServerName:   server.Name,
		Type:         types.ToolTypeMCP,
	}
}

// decodeSchema decodes a JSON schema object. It returns nil for absent, null,
// non-object or empty schemas (a zero-value schema is what some SDKs emit for "no schema").
func decodeSchema(raw json.RawMessage) map[string]any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil || schema == nil {
		return nil
	}
	if t, _ := schema["type"].(string); t == "" {
		if _, hasProps := schema["properties"]; !hasProps {
			return nil
		}
		schema["type"] = "object"
	}
	return schema
}
