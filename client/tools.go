package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mcpbridge/mcpbridge/pkg/types"
)

// ParsedToolUse is one tool invocation found in model output.
type ParsedToolUse struct {
	types.ToolResponse
	AutoApproved bool `json:"autoApproved"`
}

// ListServerTools returns the enabled tools of a server.
func (c *Client) ListServerTools(serverID string) ([]types.Tool, error) {
	u, _ := c.constructAPIEndpoint("/servers/" + url.PathEscape(serverID) + "/tools")

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	var tools []types.Tool
	if err := c.do(req, http.StatusOK, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// GetTool returns one tool of a server, looked up by wire name or display name.
func (c *Client) GetTool(serverID, name string) (*types.Tool, error) {
	tools, err := c.ListServerTools(serverID)
	if err != nil {
		return nil, err
	}
	for i := range tools {
		if tools[i].ID == name {
			return &tools[i], nil
		}
	}
	for i := range tools {
		if tools[i].Name == name {
			return &tools[i], nil
		}
	}
	return nil, &APIError{StatusCode: http.StatusNotFound, Message: "tool not found: " + name}
}

// InvokeTool calls a tool and returns the completed tool response.
// Tool failures are reported in the response's result, not as an error.
func (c *Client) InvokeTool(serverID, tool string, args map[string]any) (*types.ToolResponse, error) {
	u, _ := c.constructAPIEndpoint(
		"/servers/" + url.PathEscape(serverID) + "/tools/" + url.PathEscape(tool) + "/invoke",
	)

	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}
	req, err := c.newRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	var resp types.ToolResponse
	if err := c.do(req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VendorTools returns the tool declarations of a vendor as raw JSON, restricted to the named
// servers if any are given.
func (c *Client) VendorTools(vendor string, servers ...string) (json.RawMessage, error) {
	path := "/vendors/" + url.PathEscape(vendor) + "/tools"
	if len(servers) > 0 {
		path += "?servers=" + url.QueryEscape(strings.Join(servers, ","))
	}
	u, _ := c.constructAPIEndpoint(path)

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	var raw json.RawMessage
	if err := c.do(req, http.StatusOK, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ParseToolUse extracts the <tool_use> blocks of model output.
func (c *Client) ParseToolUse(content string, startIdx int, servers ...string) ([]ParsedToolUse, error) {
	u, _ := c.constructAPIEndpoint("/tool-use/parse")

	body, err := json.Marshal(map[string]any{
		"content":  content,
		"startIdx": startIdx,
		"servers":  servers,
	})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	var parsed []ParsedToolUse
	if err := c.do(req, http.StatusOK, &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}
