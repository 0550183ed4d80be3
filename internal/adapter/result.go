package adapter

import (
	"fmt"
	"strings"

	"github.com/mcpbridge/mcpbridge/pkg/types"
)

const noContent = "no content"

// resultOf returns the result to render, falling back to the one stored on the response.
func resultOf(resp *types.ToolResponse, res *types.ToolCallResult) *types.ToolCallResult {
	if res != nil {
		return res
	}
	if resp != nil && resp.Response != nil {
		return resp.Response
	}
	return &types.ToolCallResult{}
}

func toolDisplayName(resp *types.ToolResponse) string {
	if resp == nil {
		return ""
	}
	if resp.Tool.Name != "" {
		return resp.Tool.Name
	}
	return resp.Tool.ID
}

// preamble introduces a successful tool result to the model.
func preamble(resp *types.ToolResponse) string {
	return fmt.Sprintf("Here is the result of mcp tool use `%s`:", toolDisplayName(resp))
}

func dataURI(mimeType, data string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, data)
}

func textOrPlaceholder(text string) string {
	if text == "" {
		return noContent
	}
	return text
}

func unsupported(t types.ContentType) string {
	return fmt.Sprintf("Unsupported type: %s", t)
}

// flattenResult renders a successful result as a single string.
// With vision every block gets a textual rendering, otherwise the content list is embedded as JSON.
func flattenResult(resp *types.ToolResponse, res *types.ToolCallResult, vision bool) string {
	var sb strings.Builder
	sb.WriteString(preamble(resp))
	sb.WriteString("\n")

	if !vision {
		sb.WriteString(res.ContentJSON())
		sb.WriteString("\n")
		return sb.String()
	}

	for _, block := range res.Content {
		switch block.Type {
		case types.ContentTypeText:
			sb.WriteString(textOrPlaceholder(block.Text))
		case types.ContentTypeImage:
			sb.WriteString("Here is an image result: " + dataURI(block.MimeType, block.Data))
		case types.ContentTypeAudio:
			sb.WriteString("Here is an audio result: " + dataURI(block.MimeType, block.Data))
		default:
			sb.WriteString("Here is an unsupported result type: " + string(block.Type))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
