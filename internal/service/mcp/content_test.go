package mcp

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNormalizeBlock(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   types.ContentBlock
		wantOK bool
	}{
		{
			name:   "text",
			raw:    `{"type":"text","text":"hi"}`,
			want:   types.ContentBlock{Type: types.ContentTypeText, Text: "hi"},
			wantOK: true,
		},
		{
			name:   "image",
			raw:    `{"type":"image","data":"aGVsbG8=","mimeType":"image/png"}`,
			want:   types.ContentBlock{Type: types.ContentTypeImage, Data: "aGVsbG8=", MimeType: "image/png"},
			wantOK: true,
		},
		{
			name:   "audio",
			raw:    `{"type":"audio","data":"AAAA","mimeType":"audio/wav"}`,
			want:   types.ContentBlock{Type: types.ContentTypeAudio, Data: "AAAA", MimeType: "audio/wav"},
			wantOK: true,
		},
		{
			name: "embedded resource",
			raw:  `{"type":"resource","resource":{"uri":"file:///a.txt","text":"abc","mimeType":"text/plain"}}`,
			want: types.ContentBlock{
				Type:     types.ContentTypeResource,
				Resource: &types.ResourceContent{URI: "file:///a.txt", Text: "abc", MimeType: "text/plain"},
			},
			wantOK: true,
		},
		{
			name: "blob resource",
			raw:  `{"type":"resource","resource":{"uri":"file:///a.bin","blob":"AQID"}}`,
			want: types.ContentBlock{
				Type:     types.ContentTypeResource,
				Resource: &types.ResourceContent{URI: "file:///a.bin", Blob: "AQID"},
			},
			wantOK: true,
		},
		{
			name: "resource link reads top level fields",
			raw:  `{"type":"resource_link","uri":"https://x/doc","name":"doc","mimeType":"text/html"}`,
			want: types.ContentBlock{
				Type:     types.ContentTypeResource,
				Resource: &types.ResourceContent{URI: "https://x/doc", MimeType: "text/html"},
			},
			wantOK: true,
		},
		{name: "unknown type", raw: `{"type":"video","data":"x"}`},
		{name: "missing type", raw: `{"text":"hi"}`},
		{name: "not an object", raw: `"hi"`},
		{name: "array", raw: `[1,2]`},
		{name: "malformed", raw: `{"type":`},
		{name: "empty", raw: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeBlock(json.RawMessage(tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNormalizeStructuredContent(t *testing.T) {
	logger := zap.NewNop()

	block, ok := normalizeStructuredContent(logger, "already text")
	require.True(t, ok)
	assert.Equal(t, types.TextBlock("already text"), block)

	block, ok = normalizeStructuredContent(logger, map[string]any{"a": 1})
	require.True(t, ok)
	assert.Equal(t, "{\n  \"a\": 1\n}", block.Text)

	_, ok = normalizeStructuredContent(logger, nil)
	assert.False(t, ok)
}

func TestNormalizeStructuredContentUnencodable(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	_, ok := normalizeStructuredContent(zap.New(core), math.Inf(1))
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("failed to serialize structured tool output").Len())
}

func TestFoldCallResult(t *testing.T) {
	t.Run("single text block", func(t *testing.T) {
		raw := &RawCallResult{}
		require.NoError(t, json.Unmarshal([]byte(`{"content":[{"type":"text","text":"hi"}],"isError":false}`), raw))

		got := foldCallResult(zap.NewNop(), raw)
		assert.Equal(t, &types.ToolCallResult{
			Content: []types.ContentBlock{{Type: types.ContentTypeText, Text: "hi"}},
			IsError: false,
		}, got)
	})

	t.Run("sources are folded in order and unknown blocks dropped", func(t *testing.T) {
		raw := &RawCallResult{}
		require.NoError(t, json.Unmarshal([]byte(`{
			"content":[{"type":"text","text":"a"},{"type":"hologram"},{"type":"image","data":"b","mimeType":"image/png"}],
			"structuredContent":{"n":1.50},
			"toolResult":"legacy",
			"isError":true
		}`), raw))

		got := foldCallResult(zap.NewNop(), raw)
		require.Len(t, got.Content, 4)
		assert.Equal(t, "a", got.Content[0].Text)
		assert.Equal(t, types.ContentTypeImage, got.Content[1].Type)
		// numbers keep their wire form
		assert.Equal(t, "{\n  \"n\": 1.50\n}", got.Content[2].Text)
		assert.Equal(t, "legacy", got.Content[3].Text)
		assert.True(t, got.IsError)
	})

	t.Run("legacy null tool result", func(t *testing.T) {
		got := foldCallResult(zap.NewNop(), &RawCallResult{ToolResult: json.RawMessage("null")})
		require.Len(t, got.Content, 1)
		assert.Equal(t, "null", got.Content[0].Text)
	})

	t.Run("empty result", func(t *testing.T) {
		got := foldCallResult(zap.NewNop(), &RawCallResult{})
		assert.Empty(t, got.Content)
		assert.False(t, got.IsError)
	})
}
