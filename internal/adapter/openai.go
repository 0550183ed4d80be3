package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

// openAIToolCall covers both OpenAI tool call shapes:
// Responses API function_call items and Chat Completions tool_calls entries.
type openAIToolCall struct {
	ID        string          `json:"id"`
	CallID    string          `json:"call_id"`
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Function  *struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

func parseOpenAICall(raw json.RawMessage) (vendorCall, error) {
	var c openAIToolCall
	if err := json.Unmarshal(raw, &c); err != nil {
		return vendorCall{}, fmt.Errorf("invalid OpenAI tool call: %w", err)
	}

	call := vendorCall{name: c.Name, id: c.CallID, args: c.Arguments}
	if call.id == "" {
		call.id = c.ID
	}
	if call.name == "" && c.Function != nil {
		call.name = c.Function.Name
		call.args = c.Function.Arguments
	}
	return call, requireName(call.name)
}

// ---- Chat Completions ----

// ChatTool is a Chat Completions tool declaration.
type ChatTool struct {
	Type     string       `json:"type"`
	Function ChatFunction `json:"function"`
}

type ChatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict"`
}

// ChatMessage is a Chat Completions message. Content is either a string or a []ChatContentPart.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ChatContentPart struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	ImageURL   *ChatImageURL   `json:"image_url,omitempty"`
	InputAudio *ChatInputAudio `json:"input_audio,omitempty"`
}

type ChatImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type ChatInputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// OpenAIChatAdapter speaks the OpenAI Chat Completions schema.
type OpenAIChatAdapter struct {
	callDecoder
}

func NewOpenAIChatAdapter(logger *zap.Logger) *OpenAIChatAdapter {
	return &OpenAIChatAdapter{callDecoder{
		vendor:         VendorOpenAIChat,
		logger:         logger,
		mode:           matchExact,
		parse:          parseOpenAICall,
		openAIStyleIDs: true,
	}}
}

func (a *OpenAIChatAdapter) EncodeTools(tools []types.Tool) any {
	return a.Tools(tools)
}

// Tools returns the Chat Completions declarations of tools.
func (a *OpenAIChatAdapter) Tools(tools []types.Tool) []ChatTool {
	out := make([]ChatTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, ChatTool{
			Type: "function",
			Function: ChatFunction{
				Name:        t.ID,
				Description: t.Description,
				Parameters:  strictSchema(t.InputSchema),
				Strict:      true,
			},
		})
	}
	return out
}

func (a *OpenAIChatAdapter) EncodeResult(resp *types.ToolResponse, res *types.ToolCallResult, opts Options) any {
	return a.Message(resp, res, opts)
}

// Message renders a tool result as a Chat Completions user message.
func (a *OpenAIChatAdapter) Message(resp *types.ToolResponse, res *types.ToolCallResult, opts Options) ChatMessage {
	res = resultOf(resp, res)
	msg := ChatMessage{Role: "user"}

	switch {
	case res.IsError:
		msg.Content = res.ContentJSON()
	case opts.NoArrayContent:
		msg.Content = flattenResult(resp, res, opts.Vision)
	default:
		parts := []ChatContentPart{{Type: "text", Text: preamble(resp)}}
		if opts.Vision {
			for _, block := range res.Content {
				parts = append(parts, chatPart(block))
			}
		} else {
			parts = append(parts, ChatContentPart{Type: "text", Text: res.ContentJSON()})
		}
		msg.Content = parts
	}
	return msg
}

func chatPart(block types.ContentBlock) ChatContentPart {
	switch block.Type {
	case types.ContentTypeText:
		return ChatContentPart{Type: "text", Text: textOrPlaceholder(block.Text)}
	case types.ContentTypeImage:
		return ChatContentPart{
			Type:     "image_url",
			ImageURL: &ChatImageURL{URL: dataURI(block.MimeType, block.Data), Detail: "auto"},
		}
	case types.ContentTypeAudio:
		return ChatContentPart{
			Type:       "input_audio",
			InputAudio: &ChatInputAudio{Data: block.Data, Format: audioFormat(block.MimeType)},
		}
	default:
		return ChatContentPart{Type: "text", Text: unsupported(block.Type)}
	}
}

// audioFormat maps a mime type onto the input_audio formats OpenAI accepts.
func audioFormat(mimeType string) string {
	if strings.Contains(strings.ToLower(mimeType), "wav") {
		return "wav"
	}
	return "mp3"
}

// ---- Responses API ----

// ResponseTool is a Responses API function tool declaration.
type ResponseTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict"`
}

// ResponseInputMessage is a Responses API input message.
// Content is either a string or a []ResponseInputContent.
type ResponseInputMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ResponseInputContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// OpenAIResponseAdapter speaks the OpenAI Responses API schema.
type OpenAIResponseAdapter struct {
	callDecoder
}

func NewOpenAIResponseAdapter(logger *zap.Logger) *OpenAIResponseAdapter {
	return &OpenAIResponseAdapter{callDecoder{
		vendor:         VendorOpenAIResponse,
		logger:         logger,
		mode:           matchExact,
		parse:          parseOpenAICall,
		openAIStyleIDs: true,
	}}
}

func (a *OpenAIResponseAdapter) EncodeTools(tools []types.Tool) any {
	return a.Tools(tools)
}

// Tools returns the Responses API declarations of tools.
func (a *OpenAIResponseAdapter) Tools(tools []types.Tool) []ResponseTool {
	out := make([]ResponseTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, ResponseTool{
			Type:        "function",
			Name:        t.ID,
			Description: t.Description,
			Parameters:  strictSchema(t.InputSchema),
			Strict:      true,
		})
	}
	return out
}

func (a *OpenAIResponseAdapter) EncodeResult(resp *types.ToolResponse, res *types.ToolCallResult, opts Options) any {
	return a.Message(resp, res, opts)
}

// Message renders a tool result as a Responses API input message.
func (a *OpenAIResponseAdapter) Message(
	resp *types.ToolResponse, res *types.ToolCallResult, opts Options,
) ResponseInputMessage {
	res = resultOf(resp, res)
	msg := ResponseInputMessage{Role: "user"}

	switch {
	case res.IsError:
		msg.Content = res.ContentJSON()
	case opts.NoArrayContent:
		msg.Content = flattenResult(resp, res, opts.Vision)
	default:
		parts := []ResponseInputContent{{Type: "input_text", Text: preamble(resp)}}
		if opts.Vision {
			for _, block := range res.Content {
				switch block.Type {
				case types.ContentTypeText:
					parts = append(parts, ResponseInputContent{Type: "input_text", Text: textOrPlaceholder(block.Text)})
				case types.ContentTypeImage:
					parts = append(parts, ResponseInputContent{
						Type:     "input_image",
						ImageURL: dataURI(block.MimeType, block.Data),
						Detail:   "auto",
					})
				default:
					parts = append(parts, ResponseInputContent{Type: "input_text", Text: unsupported(block.Type)})
				}
			}
		} else {
			parts = append(parts, ResponseInputContent{Type: "input_text", Text: res.ContentJSON()})
		}
		msg.Content = parts
	}
	return msg
}
