// Package tools is the caller side of the tool core. It decides where a tool call goes,
// assembles the tool catalog across servers and answers approval questions.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcpbridge/mcpbridge/internal/service/builtin"
	"github.com/mcpbridge/mcpbridge/internal/toolerr"
	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// listConcurrency bounds how many servers are asked for their catalog at the same time.
const listConcurrency = 8

// ServerStore looks up server configuration records.
// GetServer returns types.ErrServerNotFound when no server has the id.
type ServerStore interface {
	GetServer(ctx context.Context, id string) (*types.MCPServer, error)
}

// NetworkClient talks to network MCP servers.
type NetworkClient interface {
	ListTools(ctx context.Context, server *types.MCPServer) ([]types.Tool, error)
	CallTool(ctx context.Context, server *types.MCPServer, toolID string, args map[string]any) (*types.ToolCallResult, error)
	Dispose(serverID string)
}

// ServiceConfig holds the configuration parameters for initializing a Service.
type ServiceConfig struct {
	Servers    ServerStore
	Network    NetworkClient
	Dispatcher *builtin.Dispatcher

	// ValidateArguments checks call arguments against the tool's input schema before dispatch.
	ValidateArguments bool

	Logger *zap.Logger
}

// Service routes tool calls to the built-in dispatcher or to network servers.
type Service struct {
	servers    ServerStore
	network    NetworkClient
	dispatcher *builtin.Dispatcher
	validator  *argumentValidator
	logger     *zap.Logger
}

// NewService creates a new Service.
func NewService(c *ServiceConfig) *Service {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		servers:    c.Servers,
		network:    c.Network,
		dispatcher: c.Dispatcher,
		logger:     logger.Named("tools"),
	}
	if c.ValidateArguments {
		s.validator = newArgumentValidator()
	}
	return s
}

// Invoke runs the tool call described by resp and returns its result.
// Every failure is reported in-band as an isError result so that the model always gets an answer.
func (s *Service) Invoke(ctx context.Context, resp *types.ToolResponse) *types.ToolCallResult {
	tool := resp.Tool
	serverName := tool.ServerName
	if serverName == "" {
		serverName = "unknown"
	}
	s.logger.Info("calling MCP tool", zap.String("server", serverName), zap.String("tool", tool.ID))

	if tool.ServerID == "" {
		return types.ErrorResult("Tool is missing associated MCP server information.")
	}

	args := resp.ArgumentsMap()
	if resp.Arguments != nil && args == nil {
		s.logger.Warn("tool call arguments are not an object, sending none",
			zap.String("tool", tool.ID), zap.Any("arguments", resp.Arguments))
	}

	if s.validator != nil {
		if err := s.validator.validate(tool, args); err != nil {
			return types.ErrorResult(toolerr.Format(err))
		}
	}

	if builtin.IsBuiltinServer(tool.ServerID) || builtin.IsBuiltinServer(tool.ServerName) {
		return s.dispatcher.Dispatch(ctx, tool, args)
	}

	server, err := s.lookup(ctx, tool)
	if err != nil {
		s.logger.Error("MCP tool invocation failed", zap.String("tool", tool.ID), zap.Error(err))
		return types.ErrorResult(toolerr.Format(err))
	}
	if server.Type == types.ServerTypeInMemory {
		err := toolerr.ForServer(toolerr.KindConfiguration, "call tool", server.ID,
			fmt.Errorf("built-in MCP tool should use the built-in dispatcher: %s", tool.Name))
		return types.ErrorResult(toolerr.Format(err))
	}
	if !server.IsActive {
		return types.ErrorResult("MCP server is disabled. Please enable it before retrying.")
	}

	toolID := tool.ID
	if toolID == "" {
		toolID = tool.Name
	}
	res, err := s.network.CallTool(ctx, server, toolID, args)
	if err != nil {
		s.logger.Error("MCP tool invocation failed", zap.String("tool", toolID), zap.Error(err))
		return types.ErrorResult(toolerr.Format(err))
	}
	return res
}

func (s *Service) lookup(ctx context.Context, tool types.Tool) (*types.MCPServer, error) {
	server, err := s.servers.GetServer(ctx, tool.ServerID)
	if errors.Is(err, types.ErrServerNotFound) {
		name := tool.ServerName
		if name == "" {
			name = tool.ServerID
		}
		return nil, toolerr.ForServer(toolerr.KindToolNotFound, "call tool", tool.ServerID,
			fmt.Errorf("%w: %s", types.ErrServerNotFound, name))
	}
	if err != nil {
		return nil, toolerr.ForServer(toolerr.KindConfiguration, "call tool", tool.ServerID, err)
	}
	return server, nil
}

// ServerTools returns the enabled tools of one server, looked up by id.
func (s *Service) ServerTools(ctx context.Context, serverID string) ([]types.Tool, error) {
	if builtin.IsBuiltinServer(serverID) {
		return builtin.ToolsForServer(serverID), nil
	}
	server, err := s.servers.GetServer(ctx, serverID)
	if err != nil {
		return nil, err
	}
	return s.serverTools(ctx, server)
}

func (s *Service) serverTools(ctx context.Context, server *types.MCPServer) ([]types.Tool, error) {
	var tools []types.Tool
	if server.Type == types.ServerTypeInMemory {
		tools = builtin.ToolsForServer(server.ID)
	} else {
		var err error
		if tools, err = s.network.ListTools(ctx, server); err != nil {
			return nil, err
		}
	}

	enabled := tools[:0:0]
	for _, t := range tools {
		if server.IsToolDisabled(t.ID) {
			continue
		}
		enabled = append(enabled, t)
	}
	return enabled, nil
}

// ListTools builds the catalog of all active servers, in the order the servers are given.
// Servers are queried concurrently. A server that fails is logged and left out of the catalog.
func (s *Service) ListTools(ctx context.Context, servers []types.MCPServer) ([]types.Tool, error) {
	perServer := make([][]types.Tool, len(servers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i := range servers {
		server := &servers[i]
		if !server.IsActive {
			continue
		}
		g.Go(func() error {
			tools, err := s.serverTools(gctx, server)
			if err != nil {
				s.logger.Warn("failed to list tools of MCP server, skipping it",
					zap.String("server", server.ID), zap.Error(err))
				return nil
			}
			perServer[i] = tools
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var catalog []types.Tool
	for _, tools := range perServer {
		catalog = append(catalog, tools...)
	}
	return catalog, nil
}

// Disconnect drops the live connection to a server, if any.
func (s *Service) Disconnect(serverID string) {
	if builtin.IsBuiltinServer(serverID) {
		return
	}
	s.network.Dispose(serverID)
}

// FilterByServers keeps the tools that belong to one of the enabled servers, matched by server name.
// No enabled servers means no tools.
func FilterByServers(tools []types.Tool, enabled []types.MCPServer) []types.Tool {
	if tools == nil {
		return nil
	}
	filtered := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		for i := range enabled {
			if enabled[i].Name == t.ServerName {
				filtered = append(filtered, t)
				break
			}
		}
	}
	return filtered
}

// IsAutoApproved reports whether a call to tool may run without asking the user.
// Built-in tools always may. Other tools need their server, which must not list the tool
// (by wire name or display name) among its disabledAutoApproveTools.
func IsAutoApproved(tool types.Tool, server *types.MCPServer) bool {
	if tool.IsBuiltIn {
		return true
	}
	if server == nil {
		return false
	}
	return !server.IsAutoApproveDisabled(tool.ID) && !server.IsAutoApproveDisabled(tool.Name)
}
