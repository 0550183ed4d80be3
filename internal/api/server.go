// Package api provides HTTP API functionality for the mcpbridge server.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpbridge/mcpbridge/internal/adapter"
	"github.com/mcpbridge/mcpbridge/internal/service/registry"
	"github.com/mcpbridge/mcpbridge/internal/service/tooluse"
	"github.com/mcpbridge/mcpbridge/internal/service/tools"
	"github.com/mcpbridge/mcpbridge/internal/telemetry"
	"github.com/mcpbridge/mcpbridge/pkg/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	V0PathPrefix    = "/v0"
	V0ApiPathPrefix = "/api" + V0PathPrefix
)

type ServerOptions struct {
	// Port is the HTTP ports to bind the server to
	Port string

	Registry *registry.Registry
	Tools    *tools.Service
	Adapters *adapter.Registry
	Parser   *tooluse.Parser

	OtelProviders *telemetry.Providers
	Logger        *zap.Logger
}

// Server represents the mcpbridge HTTP server that serves the tool API and the built-in MCP endpoint
type Server struct {
	port   string
	router *gin.Engine

	registry *registry.Registry
	tools    *tools.Service
	adapters *adapter.Registry
	parser   *tooluse.Parser

	// builtinMCPServer answers MCP clients with the built-in tools.
	builtinMCPServer *server.MCPServer

	otelProviders *telemetry.Providers
	logger        *zap.Logger
}

// NewServer initializes a new Gin server for mcpbridge
func NewServer(opts *ServerOptions) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		port:          opts.Port,
		registry:      opts.Registry,
		tools:         opts.Tools,
		adapters:      opts.Adapters,
		parser:        opts.Parser,
		otelProviders: opts.OtelProviders,
		logger:        logger.Named("api"),
	}
	s.builtinMCPServer = newBuiltinMCPServer(s.tools)

	// Set up the router after the server is fully initialized
	r, err := s.setupRouter()
	if err != nil {
		return nil, err
	}
	s.router = r

	return s, nil
}

// Start runs the Gin server (blocking call)
func (s *Server) Start() error {
	if err := s.router.Run(":" + s.port); err != nil {
		return fmt.Errorf("failed to run the server: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter sets up the Gin router with the built-in MCP server and API endpoints.
func (s *Server) setupRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// built-in server ids contain slashes, route on the escaped path
	r.UseRawPath = true
	r.UnescapePathValues = true

	// if otel is enabled, setup prometheus metrics endpoint
	if s.otelProviders != nil && s.otelProviders.IsEnabled() {
		// instrument gin
		r.Use(otelgin.Middleware(s.otelProviders.ServiceName()))

		// expose prometheus metrics endpoint
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET(
		"/health",
		func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		},
	)

	// Serve the built-in tools over MCP on /mcp
	streamableHTTPServer := server.NewStreamableHTTPServer(s.builtinMCPServer, server.WithStateLess(true))
	r.Any("/mcp", gin.WrapH(streamableHTTPServer))

	apiV0 := r.Group(V0ApiPathPrefix)
	{
		apiV0.GET("/servers", s.listServersHandler())
		apiV0.POST("/servers", s.registerServerHandler())
		apiV0.DELETE("/servers/:id", s.deregisterServerHandler())
		apiV0.DELETE("/servers/:id/connection", s.disconnectServerHandler())

		apiV0.GET("/servers/:id/tools", s.listServerToolsHandler())
		apiV0.POST("/servers/:id/tools/:tool/invoke", s.invokeToolHandler())

		apiV0.GET("/vendors", s.listVendorsHandler())
		apiV0.GET("/vendors/:vendor/tools", s.vendorToolsHandler())
		apiV0.POST("/vendors/:vendor/tool-calls", s.vendorToolCallHandler())

		apiV0.POST("/tool-use/parse", s.parseToolUseHandler())
	}

	return r, nil
}

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrServerNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrReservedServerID):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
