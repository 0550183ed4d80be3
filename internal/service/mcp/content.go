package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

// RawCallResult is the wire shape of a tools/call result.
// ToolResult is the single-value result field of the 2024-10-07 protocol revision.
type RawCallResult struct {
	Content           []json.RawMessage `json:"content,omitempty"`
	StructuredContent json.RawMessage   `json:"structuredContent,omitempty"`
	ToolResult        json.RawMessage   `json:"toolResult,omitempty"`
	IsError           bool              `json:"isError,omitempty"`
}

// rawContentBlock holds every field any supported content block can carry.
// "resource" blocks nest their payload, "resource_link" blocks keep it at the top level.
type rawContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
	URI      string `json:"uri"`
	Resource *struct {
		URI      string `json:"uri"`
		Text     string `json:"text"`
		MimeType string `json:"mimeType"`
		Blob     string `json:"blob"`
	} `json:"resource"`
}

// normalizeBlock converts one wire content block into its canonical form.
// Blocks that are not JSON objects or carry an unknown type yield ok=false and must be dropped.
func normalizeBlock(raw json.RawMessage) (types.ContentBlock, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return types.ContentBlock{}, false
	}

	var b rawContentBlock
	if err := json.Unmarshal(trimmed, &b); err != nil {
		return types.ContentBlock{}, false
	}

	switch b.Type {
	case "text":
		return types.ContentBlock{Type: types.ContentTypeText, Text: b.Text}, true
	case "image":
		return types.ContentBlock{Type: types.ContentTypeImage, Data: b.Data, MimeType: b.MimeType}, true
	case "audio":
		return types.ContentBlock{Type: types.ContentTypeAudio, Data: b.Data, MimeType: b.MimeType}, true
	case "resource":
		res := &types.ResourceContent{}
		if b.Resource != nil {
			res.URI = b.Resource.URI
			res.Text = b.Resource.Text
			res.MimeType = b.Resource.MimeType
			res.Blob = b.Resource.Blob
		}
		return types.ContentBlock{Type: types.ContentTypeResource, Resource: res}, true
	case "resource_link":
		return types.ContentBlock{
			Type: types.ContentTypeResource,
			Resource: &types.ResourceContent{
				URI:      b.URI,
				Text:     b.Text,
				MimeType: b.MimeType,
			},
		}, true
	default:
		return types.ContentBlock{}, false
	}
}

// normalizeStructuredContent renders a structured value as a single text block.
// Strings are kept as they are, everything else is pretty-printed JSON.
// A value that cannot be encoded yields ok=false and a warning.
func normalizeStructuredContent(logger *zap.Logger, v any) (types.ContentBlock, bool) {
	if v == nil {
		return types.ContentBlock{}, false
	}
	if s, ok := v.(string); ok {
		return types.TextBlock(s), true
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Warn("failed to serialize structured tool output", zap.Error(err))
		return types.ContentBlock{}, false
	}
	return types.TextBlock(string(b)), true
}

// decodeRawValue decodes a raw JSON value, keeping numbers exact.
// An absent value (nil message) decodes to (nil, false).
func decodeRawValue(raw json.RawMessage) (any, bool) {
	if raw == nil {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		// keep the payload visible rather than losing it
		return string(raw), true
	}
	if v == nil {
		// explicit JSON null is still a value
		return json.RawMessage("null"), true
	}
	return v, true
}

// foldCallResult assembles the canonical result from the three sources a server can use:
// content blocks, structured content and the legacy single-value result.
// IsError is taken literally from the server.
func foldCallResult(logger *zap.Logger, res *RawCallResult) *types.ToolCallResult {
	content := make([]types.ContentBlock, 0, len(res.Content)+2)

	for _, raw := range res.Content {
		if block, ok := normalizeBlock(raw); ok {
			content = append(content, block)
		}
	}

	if v, present := decodeRawValue(res.StructuredContent); present {
		if block, ok := normalizeStructuredContent(logger, v); ok {
			content = append(content, block)
		}
	}

	if v, present := decodeRawValue(res.ToolResult); present {
		block, ok := normalizeStructuredContent(logger, v)
		if !ok {
			block = types.TextBlock(fmt.Sprint(v))
		}
		content = append(content, block)
	}

	return &types.ToolCallResult{Content: content, IsError: res.IsError}
}
