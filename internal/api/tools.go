package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mcpbridge/mcpbridge/internal/adapter"
	"github.com/mcpbridge/mcpbridge/internal/service/aggregator"
	"github.com/mcpbridge/mcpbridge/internal/service/tools"
	"github.com/mcpbridge/mcpbridge/pkg/types"
)

// VendorToolCallInput is the body of a vendor tool call request.
type VendorToolCallInput struct {
	// Call is the tool call exactly as the vendor emitted it.
	Call    json.RawMessage `json:"call" binding:"required"`
	Options adapter.Options `json:"options"`
	// Servers restricts tool resolution to the named servers. Empty means all active servers.
	Servers []string `json:"servers"`
}

// VendorToolCallOutput reports a completed vendor tool call.
type VendorToolCallOutput struct {
	Response      *types.ToolResponse       `json:"response"`
	Message       any                       `json:"message"`
	Notifications []aggregator.Notification `json:"notifications"`
}

// ParseToolUseInput is the body of a free-text tool use parse request.
type ParseToolUseInput struct {
	Content  string   `json:"content" binding:"required"`
	StartIdx int      `json:"startIdx"`
	Servers  []string `json:"servers"`
}

// ParsedToolUse is one tool invocation found in model output.
type ParsedToolUse struct {
	types.ToolResponse
	AutoApproved bool `json:"autoApproved"`
}

func (s *Server) listServerToolsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		serverTools, err := s.tools.ServerTools(c.Request.Context(), c.Param("id"))
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, serverTools)
	}
}

func (s *Server) invokeToolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var args map[string]any
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&args); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("arguments must be a JSON object: %v", err)})
				return
			}
		}

		serverTools, err := s.tools.ServerTools(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		tool, ok := findTool(serverTools, c.Param("tool"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("tool not found: %s", c.Param("tool"))})
			return
		}

		resp := &types.ToolResponse{
			ID:        uuid.NewString(),
			Tool:      tool,
			Arguments: args,
			Status:    types.ToolStatusInvoking,
		}
		resp.Response = s.tools.Invoke(c.Request.Context(), resp)
		resp.Status = types.ToolStatusDone

		c.JSON(http.StatusOK, resp)
	}
}

func (s *Server) listVendorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.adapters.Vendors())
	}
}

func (s *Server) vendorToolsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := s.adapters.Lookup(adapter.Vendor(c.Param("vendor")))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		var names []string
		if q := c.Query("servers"); q != "" {
			names = strings.Split(q, ",")
		}
		catalog, _, err := s.catalog(c.Request.Context(), names)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, a.EncodeTools(catalog))
	}
}

func (s *Server) vendorToolCallHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := s.adapters.Lookup(adapter.Vendor(c.Param("vendor")))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		var input VendorToolCallInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		catalog, _, err := s.catalog(c.Request.Context(), input.Servers)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp, ok := a.DecodeToolResponse(catalog, input.Call)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no tool found for tool call"})
			return
		}

		var notes []aggregator.Notification
		agg := aggregator.New(func(n aggregator.Notification) {
			notes = append(notes, n)
		}, s.logger)

		agg.Upsert(*resp)
		resp.Status = types.ToolStatusInvoking
		agg.Upsert(*resp)
		resp.Response = s.tools.Invoke(c.Request.Context(), resp)
		resp.Status = types.ToolStatusDone
		agg.Upsert(*resp)

		final, _ := agg.Get(resp.ID)
		c.JSON(http.StatusOK, VendorToolCallOutput{
			Response:      &final,
			Message:       a.EncodeResult(&final, final.Response, input.Options),
			Notifications: notes,
		})
	}
}

func (s *Server) parseToolUseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ParseToolUseInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		catalog, servers, err := s.catalog(c.Request.Context(), input.Servers)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		responses := s.parser.Parse(input.Content, catalog, input.StartIdx)
		parsed := make([]ParsedToolUse, 0, len(responses))
		for _, r := range responses {
			parsed = append(parsed, ParsedToolUse{
				ToolResponse: r,
				AutoApproved: tools.IsAutoApproved(r.Tool, serverByID(servers, r.Tool.ServerID)),
			})
		}
		c.JSON(http.StatusOK, parsed)
	}
}

// catalog returns the tools of all active servers, restricted to the named servers if any
// names are given, together with the servers considered.
func (s *Server) catalog(ctx context.Context, names []string) ([]types.Tool, []types.MCPServer, error) {
	servers, err := s.registry.ListServers(ctx)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := s.tools.ListTools(ctx, servers)
	if err != nil {
		return nil, nil, err
	}
	if len(names) == 0 {
		return catalog, servers, nil
	}

	enabled := slices.DeleteFunc(slices.Clone(servers), func(server types.MCPServer) bool {
		return !slices.Contains(names, server.Name)
	})
	return tools.FilterByServers(catalog, enabled), enabled, nil
}

func findTool(catalog []types.Tool, name string) (types.Tool, bool) {
	for _, t := range catalog {
		if t.ID == name {
			return t, true
		}
	}
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return types.Tool{}, false
}

func serverByID(servers []types.MCPServer, id string) *types.MCPServer {
	for i := range servers {
		if servers[i].ID == id {
			return &servers[i]
		}
	}
	return nil
}
