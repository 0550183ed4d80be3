package mcp

import (
	"encoding/json"
	"testing"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestToCanonicalTool(t *testing.T) {
	server := &types.MCPServer{ID: "s1", Name: "Search", Type: types.ServerTypeStreamableHTTP}

	tests := []struct {
		name       string
		raw        string
		wantName   string
		wantSchema map[string]any
	}{
		{
			name:     "plain tool",
			raw:      `{"name":"search","inputSchema":{"type":"object","properties":{"q":{"type":"string"}}}}`,
			wantName: "search",
			wantSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"q": map[string]any{"type": "string"}},
			},
		},
		{
			name:       "annotation title wins",
			raw:        `{"name":"search","title":"Find","annotations":{"title":"Web Search"}}`,
			wantName:   "Web Search",
			wantSchema: types.EmptyObjectSchema(),
		},
		{
			name:       "title used without annotation",
			raw:        `{"name":"search","title":"Find"}`,
			wantName:   "Find",
			wantSchema: types.EmptyObjectSchema(),
		},
		{
			name:       "blank annotation title ignored",
			raw:        `{"name":"search","annotations":{"title":"  "}}`,
			wantName:   "search",
			wantSchema: types.EmptyObjectSchema(),
		},
		{
			name:       "zero value schema",
			raw:        `{"name":"search","inputSchema":{"type":""}}`,
			wantName:   "search",
			wantSchema: types.EmptyObjectSchema(),
		},
		{
			name:       "non object schema",
			raw:        `{"name":"search","inputSchema":[1]}`,
			wantName:   "search",
			wantSchema: types.EmptyObjectSchema(),
		},
		{
			name:     "missing type with properties",
			raw:      `{"name":"search","inputSchema":{"properties":{}}}`,
			wantName: "search",
			wantSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw RawTool
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &raw))

			got := toCanonicalTool(zaptest.NewLogger(t), server, raw)
			assert.Equal(t, "search", got.ID)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantSchema, got.InputSchema)
			assert.Equal(t, "s1", got.ServerID)
			assert.Equal(t, "Search", got.ServerName)
			assert.Equal(t, types.ToolTypeMCP, got.Type)
			assert.False(t, got.IsBuiltIn)
		})
	}
}

func TestToCanonicalToolOutputSchema(t *testing.T) {
	var raw RawTool
	require.NoError(t, json.Unmarshal([]byte(
		`{"name":"weather","description":"forecast","outputSchema":{"type":"object","properties":{"temp":{"type":"number"}}}}`,
	), &raw))

	got := toCanonicalTool(zaptest.NewLogger(t), &types.MCPServer{ID: "s2"}, raw)
	assert.Equal(t, "forecast", got.Description)
	assert.Equal(t, "object", got.OutputSchema["type"])
	assert.Empty(t, got.ServerName)
}
