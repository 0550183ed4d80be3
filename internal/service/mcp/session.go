package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mcpbridge/mcpbridge/pkg/types"
)

// clientName is reported to MCP servers during initialization.
const clientName = "mcpbridge"

// maxToolPages bounds tools/list pagination against servers that keep returning a cursor.
const maxToolPages = 100

// Session is an initialized protocol session with exactly one MCP server.
type Session interface {
	ListTools(ctx context.Context) ([]RawTool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*RawCallResult, error)
	Close() error
}

// DialFunc establishes a Session with a network MCP server.
// onClose must be called when the transport closes on its own, so the caller can forget the session.
// The server has already been validated: it is an sse or streamableHttp server with a usable base URL.
type DialFunc func(ctx context.Context, server *types.MCPServer, onClose func()) (Session, error)

// NewSessionDialer returns a DialFunc that speaks MCP using mcp-go clients.
// initReqTimeout bounds the initialization handshake.
func NewSessionDialer(initReqTimeout time.Duration) DialFunc {
	return func(ctx context.Context, s *types.MCPServer, onClose func()) (Session, error) {
		u, err := s.ResolveBaseURL()
		if err != nil {
			return nil, err
		}
		baseURL := u.String()

		c, err := newTransportClient(ctx, s, baseURL)
		if err != nil {
			return nil, err
		}

		c.OnConnectionLost(func(error) {
			onClose()
		})

		if err := initializeClient(ctx, c, baseURL, initReqTimeout); err != nil {
			_ = c.Close()
			return nil, err
		}

		return &clientSession{client: c}, nil
	}
}

// newTransportClient creates (and for SSE, starts) the mcp-go client for the server's transport.
func newTransportClient(ctx context.Context, s *types.MCPServer, baseURL string) (*client.Client, error) {
	headers := s.ForwardedHeaders()

	switch s.Type {
	case types.ServerTypeSSE:
		var opts []transport.ClientOption
		if len(headers) > 0 {
			opts = append(opts, transport.WithHeaders(headers))
		}

		c, err := client.NewSSEMCPClient(baseURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSE client for MCP server: %w", err)
		}
		if err = c.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start SSE transport for MCP server: %w", err)
		}
		return c, nil

	case types.ServerTypeStreamableHTTP:
		opts := []transport.StreamableHTTPCOption{
			transport.WithSession(s.ID),
		}
		if len(headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(headers))
		}

		c, err := client.NewStreamableHttpClient(baseURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable HTTP client for MCP server: %w", err)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unsupported MCP server type: %s", s.Type)
	}
}

func initializeClient(ctx context.Context, c *client.Client, baseURL string, timeout time.Duration) error {
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: "0.1.0",
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := c.Initialize(initCtx, initRequest); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("initialization request to MCP server timed out after %s", timeout)
		}
		if errors.Is(err, syscall.ECONNREFUSED) && isLoopbackURL(baseURL) {
			return fmt.Errorf(
				"connection to the MCP server %s was refused. "+
					"If mcpbridge is running inside Docker, use 'host.docker.internal' as your MCP server's hostname",
				baseURL,
			)
		}
		return fmt.Errorf("failed to initialize connection with MCP server: %w", err)
	}
	return nil
}

// clientSession adapts an mcp-go client to Session.
// tools/list and tools/call go out as raw JSON-RPC requests so that results reach the tool core in
// their wire form. mcp-go's typed result parsers reject unknown content blocks and legacy results,
// and strip schema keywords they do not model.
type clientSession struct {
	client *client.Client
	nextID atomic.Int64
}

// request sends one JSON-RPC request over the session's transport and decodes its result into out.
// Request ids live in their own namespace so they never collide with the client's numeric ids.
func (cs *clientSession) request(ctx context.Context, method string, params, out any) error {
	resp, err := cs.client.GetTransport().SendRequest(ctx, transport.JSONRPCRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(fmt.Sprintf("%s-%d", clientName, cs.nextID.Add(1))),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error.AsError()
	}
	if len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

type listToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

type listToolsResult struct {
	Tools      []RawTool `json:"tools"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

func (cs *clientSession) ListTools(ctx context.Context) ([]RawTool, error) {
	var tools []RawTool

	var params listToolsParams
	for page := 0; page < maxToolPages; page++ {
		var res listToolsResult
		if err := cs.request(ctx, "tools/list", params, &res); err != nil {
			return nil, fmt.Errorf("failed to fetch tools: %w", err)
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			break
		}
		params.Cursor = res.NextCursor
	}

	return tools, nil
}

func (cs *clientSession) CallTool(ctx context.Context, name string, args map[string]any) (*RawCallResult, error) {
	var raw RawCallResult
	if err := cs.request(ctx, "tools/call", callToolParams{Name: name, Arguments: args}, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

func (cs *clientSession) Close() error {
	return cs.client.Close()
}
