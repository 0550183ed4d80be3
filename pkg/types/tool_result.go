package types

import "encoding/json"

// ContentType is the discriminant of a canonical content block.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeImage    ContentType = "image"
	ContentTypeAudio    ContentType = "audio"
	ContentTypeResource ContentType = "resource"
)

// ResourceContent is the payload of a resource block.
type ResourceContent struct {
	URI      string `json:"uri,omitempty"`
	Text     string `json:"text,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ContentBlock is one element of a tool call result.
// Which fields are meaningful depends on Type:
//   - text: Text
//   - image, audio: Data (base64) and MimeType
//   - resource: Resource
type ContentBlock struct {
	Type     ContentType      `json:"type"`
	Text     string           `json:"text,omitempty"`
	Data     string           `json:"data,omitempty"`
	MimeType string           `json:"mimeType,omitempty"`
	Resource *ResourceContent `json:"resource,omitempty"`
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentTypeText, Text: text}
}

// ToolCallResult is the outcome of exactly one tool invocation. It is never mutated after creation.
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// TextResult returns a successful result holding a single text block.
func TextResult(text string) *ToolCallResult {
	return &ToolCallResult{Content: []ContentBlock{TextBlock(text)}}
}

// ErrorResult returns a failed result holding a single text block that describes the failure.
func ErrorResult(text string) *ToolCallResult {
	return &ToolCallResult{Content: []ContentBlock{TextBlock(text)}, IsError: true}
}

// ContentJSON renders the content list as compact JSON.
// Vendors receive this dump for error results and for renderings without per-block support.
func (r *ToolCallResult) ContentJSON() string {
	content := r.Content
	if content == nil {
		content = []ContentBlock{}
	}
	b, err := json.Marshal(content)
	if err != nil {
		// ContentBlock only holds strings, this cannot fail
		return "[]"
	}
	return string(b)
}
