package api

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpbridge/mcpbridge/internal/service/builtin"
	"github.com/mcpbridge/mcpbridge/internal/service/tools"
	"github.com/mcpbridge/mcpbridge/pkg/types"
)

// newBuiltinMCPServer creates an MCP server that offers the built-in tools to MCP clients.
// Calls are routed through the tool service like every other call.
func newBuiltinMCPServer(svc *tools.Service) *server.MCPServer {
	s := server.NewMCPServer(
		"mcpbridge built-in tools",
		"0.0.1",
		server.WithToolCapabilities(true),
	)
	for _, tool := range builtin.Tools() {
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			// built-in schemas are static maps, this cannot fail
			panic(err)
		}
		s.AddTool(
			mcp.NewToolWithRawSchema(tool.ID, tool.Description, schema),
			builtinToolHandler(svc, tool),
		)
	}
	return s
}

func builtinToolHandler(svc *tools.Service, tool types.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := svc.Invoke(ctx, &types.ToolResponse{
			ID:        tool.ID,
			Tool:      tool,
			Arguments: request.GetArguments(),
			Status:    types.ToolStatusInvoking,
		})
		return toMCPResult(res), nil
	}
}

// toMCPResult converts a canonical result into its MCP wire form.
func toMCPResult(res *types.ToolCallResult) *mcp.CallToolResult {
	out := &mcp.CallToolResult{IsError: res.IsError}
	for _, block := range res.Content {
		switch block.Type {
		case types.ContentTypeText:
			out.Content = append(out.Content, mcp.NewTextContent(block.Text))
		case types.ContentTypeImage:
			out.Content = append(out.Content, mcp.NewImageContent(block.Data, block.MimeType))
		case types.ContentTypeAudio:
			out.Content = append(out.Content, mcp.NewAudioContent(block.Data, block.MimeType))
		case types.ContentTypeResource:
			if block.Resource == nil {
				continue
			}
			out.Content = append(out.Content, mcp.NewEmbeddedResource(toMCPResourceContents(block.Resource)))
		default:
			b, err := json.Marshal(block)
			if err != nil {
				continue
			}
			out.Content = append(out.Content, mcp.NewTextContent(string(b)))
		}
	}
	if out.Content == nil {
		out.Content = []mcp.Content{}
	}
	return out
}

func toMCPResourceContents(r *types.ResourceContent) mcp.ResourceContents {
	if r.Blob != "" {
		return mcp.BlobResourceContents{URI: r.URI, MIMEType: r.MimeType, Blob: r.Blob}
	}
	return mcp.TextResourceContents{URI: r.URI, MIMEType: r.MimeType, Text: r.Text}
}
