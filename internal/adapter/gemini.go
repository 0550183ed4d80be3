package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

// GeminiTool groups Gemini function declarations.
type GeminiTool struct {
	FunctionDeclarations []GeminiFunctionDeclaration `json:"functionDeclarations"`
}

type GeminiFunctionDeclaration struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Parameters  GeminiParameters `json:"parameters"`
}

type GeminiParameters struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// GeminiContent is a Gemini conversation turn.
type GeminiContent struct {
	Role  string       `json:"role"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inlineData,omitempty"`
}

type GeminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiFunctionCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// GeminiAdapter speaks the Google Gemini schema.
// Function names may be truncated or sanitized by the host, so calls also match tools whose id or
// name contains the called name.
type GeminiAdapter struct {
	callDecoder
}

func NewGeminiAdapter(logger *zap.Logger) *GeminiAdapter {
	return &GeminiAdapter{callDecoder{
		vendor: VendorGemini,
		logger: logger,
		mode:   matchContains,
		parse: func(raw json.RawMessage) (vendorCall, error) {
			var c geminiFunctionCall
			if err := json.Unmarshal(raw, &c); err != nil {
				return vendorCall{}, fmt.Errorf("invalid Gemini function call: %w", err)
			}
			name := c.Name
			if name == "" {
				name = c.ID
			}
			return vendorCall{name: name, id: c.ID, args: c.Args}, requireName(name)
		},
	}}
}

func (a *GeminiAdapter) EncodeTools(tools []types.Tool) any {
	return a.Tools(tools)
}

// Tools returns the Gemini declarations of tools, grouped into a single tool entry.
func (a *GeminiAdapter) Tools(tools []types.Tool) []GeminiTool {
	decls := make([]GeminiFunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		filtered := geminiSchema(t.InputSchema)
		props, _ := filtered["properties"].(map[string]any)
		decls = append(decls, GeminiFunctionDeclaration{
			Name:        t.ID,
			Description: t.Description,
			Parameters: GeminiParameters{
				Type:       "OBJECT",
				Properties: props,
				Required:   t.RequiredProperties(),
			},
		})
	}
	return []GeminiTool{{FunctionDeclarations: decls}}
}

func (a *GeminiAdapter) EncodeResult(resp *types.ToolResponse, res *types.ToolCallResult, opts Options) any {
	return a.Message(resp, res, opts)
}

// Message renders a tool result as a Gemini user turn.
func (a *GeminiAdapter) Message(resp *types.ToolResponse, res *types.ToolCallResult, opts Options) GeminiContent {
	res = resultOf(resp, res)
	msg := GeminiContent{Role: "user"}

	switch {
	case res.IsError:
		msg.Parts = []GeminiPart{{Text: res.ContentJSON()}}
	case opts.NoArrayContent:
		msg.Parts = []GeminiPart{{Text: flattenResult(resp, res, opts.Vision)}}
	default:
		parts := []GeminiPart{{Text: preamble(resp)}}
		if opts.Vision {
			for _, block := range res.Content {
				parts = append(parts, geminiPart(block))
			}
		} else {
			parts = append(parts, GeminiPart{Text: res.ContentJSON()})
		}
		msg.Parts = parts
	}
	return msg
}

func geminiPart(block types.ContentBlock) GeminiPart {
	switch block.Type {
	case types.ContentTypeText:
		return GeminiPart{Text: textOrPlaceholder(block.Text)}
	case types.ContentTypeImage:
		if block.Data == "" {
			return GeminiPart{Text: "No image data provided"}
		}
		mimeType := block.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return GeminiPart{InlineData: &GeminiInlineData{MimeType: mimeType, Data: block.Data}}
	default:
		return GeminiPart{Text: unsupported(block.Type)}
	}
}
