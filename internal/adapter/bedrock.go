package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

// BedrockTool is a Converse API tool declaration.
type BedrockTool struct {
	ToolSpec BedrockToolSpec `json:"toolSpec"`
}

type BedrockToolSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema BedrockInputSchema `json:"inputSchema"`
}

type BedrockInputSchema struct {
	JSON map[string]any `json:"json"`
}

// BedrockMessage is a Converse API message.
type BedrockMessage struct {
	Role    string                  `json:"role"`
	Content []BedrockMessageContent `json:"content"`
}

type BedrockMessageContent struct {
	ToolResult *BedrockToolResult `json:"toolResult,omitempty"`
}

type BedrockToolResult struct {
	ToolUseID string                     `json:"toolUseId"`
	Content   []BedrockToolResultContent `json:"content"`
	Status    string                     `json:"status"`
}

type BedrockToolResultContent struct {
	Text  string        `json:"text,omitempty"`
	Image *BedrockImage `json:"image,omitempty"`
}

type BedrockImage struct {
	Format string             `json:"format"`
	Source BedrockImageSource `json:"source"`
}

// BedrockImageSource carries the image bytes, base64 encoded as the Converse JSON API expects.
type BedrockImageSource struct {
	Bytes string `json:"bytes"`
}

type bedrockToolUse struct {
	ToolUseID string          `json:"toolUseId"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
}

// bedrockImageFormats maps the image media types Converse accepts onto its format names.
var bedrockImageFormats = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// BedrockAdapter speaks the AWS Bedrock Converse schema.
type BedrockAdapter struct {
	callDecoder
}

func NewBedrockAdapter(logger *zap.Logger) *BedrockAdapter {
	return &BedrockAdapter{callDecoder{
		vendor: VendorBedrock,
		logger: logger,
		mode:   matchExact,
		parse: func(raw json.RawMessage) (vendorCall, error) {
			var u bedrockToolUse
			if err := json.Unmarshal(raw, &u); err != nil {
				return vendorCall{}, fmt.Errorf("invalid Bedrock toolUse block: %w", err)
			}
			return vendorCall{name: u.Name, id: u.ToolUseID, args: u.Input}, requireName(u.Name)
		},
	}}
}

func (a *BedrockAdapter) EncodeTools(tools []types.Tool) any {
	return a.Tools(tools)
}

// Tools returns the Converse declarations of tools.
func (a *BedrockAdapter) Tools(tools []types.Tool) []BedrockTool {
	out := make([]BedrockTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, BedrockTool{ToolSpec: BedrockToolSpec{
			Name:        t.ID,
			Description: t.Description,
			InputSchema: BedrockInputSchema{JSON: bedrockSchema(t.InputSchema)},
		}})
	}
	return out
}

func (a *BedrockAdapter) EncodeResult(resp *types.ToolResponse, res *types.ToolCallResult, opts Options) any {
	return a.Message(resp, res, opts)
}

// Message renders a tool result as a Converse user message holding one toolResult block.
func (a *BedrockAdapter) Message(resp *types.ToolResponse, res *types.ToolCallResult, opts Options) BedrockMessage {
	res = resultOf(resp, res)

	toolUseID := "unknown-tool-id"
	if resp != nil {
		toolUseID = resp.VendorCallID()
	}
	result := &BedrockToolResult{ToolUseID: toolUseID, Status: "success"}

	switch {
	case res.IsError:
		result.Content = []BedrockToolResultContent{{Text: "Error: " + res.ContentJSON()}}
		result.Status = "error"
	case opts.NoArrayContent:
		result.Content = []BedrockToolResultContent{{Text: flattenResult(resp, res, opts.Vision)}}
	case opts.Vision:
		content := []BedrockToolResultContent{{Text: preamble(resp)}}
		for _, block := range res.Content {
			content = append(content, bedrockContent(block))
		}
		result.Content = content
	default:
		result.Content = []BedrockToolResultContent{{Text: preamble(resp) + "\n" + joinAsText(res)}}
	}

	return BedrockMessage{
		Role:    "user",
		Content: []BedrockMessageContent{{ToolResult: result}},
	}
}

func bedrockContent(block types.ContentBlock) BedrockToolResultContent {
	switch block.Type {
	case types.ContentTypeText:
		return BedrockToolResultContent{Text: textOrPlaceholder(block.Text)}
	case types.ContentTypeImage:
		if block.Data == "" || block.MimeType == "" {
			return BedrockToolResultContent{Text: "[Image received but no data available]"}
		}
		format, ok := bedrockImageFormats[block.MimeType]
		if !ok {
			return BedrockToolResultContent{
				Text: fmt.Sprintf("[Image received: %s, size: %d bytes]", block.MimeType, len(block.Data)),
			}
		}
		return BedrockToolResultContent{Image: &BedrockImage{
			Format: format,
			Source: BedrockImageSource{Bytes: block.Data},
		}}
	default:
		return BedrockToolResultContent{Text: fmt.Sprintf("Unsupported content type: %s", block.Type)}
	}
}

// joinAsText merges a result into one text: text blocks as they are, other blocks as JSON.
func joinAsText(res *types.ToolCallResult) string {
	lines := make([]string, 0, len(res.Content))
	for _, block := range res.Content {
		if block.Type == types.ContentTypeText {
			lines = append(lines, block.Text)
			continue
		}
		b, err := json.Marshal(block)
		if err != nil {
			lines = append(lines, fmt.Sprintf("[%s content]", block.Type))
			continue
		}
		lines = append(lines, string(b))
	}

	text := strings.Join(lines, "\n")
	if text == "" {
		return "Tool execution completed with no output"
	}
	return text
}
