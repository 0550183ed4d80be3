package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

// AnthropicTool is a Messages API tool declaration.
type AnthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// AnthropicMessage is a Messages API message. Content is either a string or a []AnthropicContentBlock.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type AnthropicContentBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *AnthropicImageSource `json:"source,omitempty"`
}

type AnthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicToolUse struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// anthropicImageTypes are the image media types the Messages API accepts.
var anthropicImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// AnthropicAdapter speaks the Anthropic Messages schema.
type AnthropicAdapter struct {
	callDecoder
}

func NewAnthropicAdapter(logger *zap.Logger) *AnthropicAdapter {
	return &AnthropicAdapter{callDecoder{
		vendor: VendorAnthropic,
		logger: logger,
		mode:   matchExact,
		parse: func(raw json.RawMessage) (vendorCall, error) {
			var u anthropicToolUse
			if err := json.Unmarshal(raw, &u); err != nil {
				return vendorCall{}, fmt.Errorf("invalid Anthropic tool_use block: %w", err)
			}
			return vendorCall{name: u.Name, id: u.ID, args: u.Input}, requireName(u.Name)
		},
	}}
}

func (a *AnthropicAdapter) EncodeTools(tools []types.Tool) any {
	return a.Tools(tools)
}

// Tools returns the Messages API declarations of tools. Schemas are passed through as they are.
func (a *AnthropicAdapter) Tools(tools []types.Tool) []AnthropicTool {
	out := make([]AnthropicTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, AnthropicTool{
			Name:        t.ID,
			Description: t.Description,
			InputSchema: copySchema(t.InputSchema),
		})
	}
	return out
}

func (a *AnthropicAdapter) EncodeResult(resp *types.ToolResponse, res *types.ToolCallResult, opts Options) any {
	return a.Message(resp, res, opts)
}

// Message renders a tool result as a Messages API user message.
func (a *AnthropicAdapter) Message(resp *types.ToolResponse, res *types.ToolCallResult, opts Options) AnthropicMessage {
	res = resultOf(resp, res)
	msg := AnthropicMessage{Role: "user"}

	switch {
	case res.IsError:
		msg.Content = res.ContentJSON()
	case opts.NoArrayContent:
		msg.Content = flattenResult(resp, res, opts.Vision)
	default:
		blocks := []AnthropicContentBlock{{Type: "text", Text: preamble(resp)}}
		if opts.Vision {
			for _, block := range res.Content {
				blocks = append(blocks, anthropicBlock(block))
			}
		} else {
			blocks = append(blocks, AnthropicContentBlock{Type: "text", Text: res.ContentJSON()})
		}
		msg.Content = blocks
	}
	return msg
}

func anthropicBlock(block types.ContentBlock) AnthropicContentBlock {
	switch block.Type {
	case types.ContentTypeText:
		return AnthropicContentBlock{Type: "text", Text: textOrPlaceholder(block.Text)}
	case types.ContentTypeImage:
		if !anthropicImageTypes[block.MimeType] {
			return AnthropicContentBlock{Type: "text", Text: "Unsupported image type: " + block.MimeType}
		}
		return AnthropicContentBlock{
			Type: "image",
			Source: &AnthropicImageSource{
				Type:      "base64",
				MediaType: block.MimeType,
				Data:      block.Data,
			},
		}
	default:
		return AnthropicContentBlock{Type: "text", Text: unsupported(block.Type)}
	}
}
