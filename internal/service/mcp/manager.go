// Package mcp provides the MCP client core of mcpbridge: connections to upstream MCP servers,
// their tool catalogs and the normalization of tool call results.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mcpbridge/mcpbridge/internal/telemetry"
	"github.com/mcpbridge/mcpbridge/internal/toolerr"
	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

// DefaultInitReqTimeout is used when ManagerConfig.InitReqTimeout is not set.
const DefaultInitReqTimeout = 10 * time.Second

// ErrUnsupportedTransport is returned for servers whose type cannot be dialed over the network.
var ErrUnsupportedTransport = errors.New("unsupported transport")

// ManagerConfig holds the configuration parameters for initializing a Manager.
type ManagerConfig struct {
	// Dial establishes sessions. Defaults to NewSessionDialer(InitReqTimeout).
	Dial DialFunc
	// InitReqTimeout bounds the initialization handshake of the default dialer.
	InitReqTimeout time.Duration

	Logger  *zap.Logger
	Metrics telemetry.CustomMetrics
}

// connection pairs one established session with the server it belongs to.
type connection struct {
	serverID  string
	session   Session
	closeOnce sync.Once
	closeErr  error
}

func (c *connection) close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.session.Close()
	})
	return c.closeErr
}

// connEntry is the in-flight memo of a connection attempt.
// ready is closed once conn or err is set; neither changes afterwards.
type connEntry struct {
	ready chan struct{}
	conn  *connection
	err   error
}

// Manager owns at most one live connection per server id.
// Concurrent first callers for the same server share a single connection attempt.
type Manager struct {
	dial    DialFunc
	logger  *zap.Logger
	metrics telemetry.CustomMetrics

	mu      sync.Mutex
	entries map[string]*connEntry
}

// NewManager creates a new Manager.
func NewManager(c *ManagerConfig) *Manager {
	if c == nil {
		c = &ManagerConfig{}
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := c.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopCustomMetrics()
	}
	dial := c.Dial
	if dial == nil {
		timeout := c.InitReqTimeout
		if timeout <= 0 {
			timeout = DefaultInitReqTimeout
		}
		dial = NewSessionDialer(timeout)
	}
	return &Manager{
		dial:    dial,
		logger:  logger.Named("mcp"),
		metrics: metrics,
		entries: make(map[string]*connEntry),
	}
}

// ListTools returns the canonical tool catalog of a network MCP server.
func (m *Manager) ListTools(ctx context.Context, server *types.MCPServer) ([]types.Tool, error) {
	entry, conn, err := m.connect(ctx, server)
	if err != nil {
		return nil, err
	}

	rawTools, err := detach(ctx, func(ctx context.Context) ([]RawTool, error) {
		return conn.session.ListTools(ctx)
	})
	if err != nil {
		if ctx.Err() == nil {
			m.evict(entry)
		}
		return nil, toolerr.ForServer(toolerr.KindTransport, "list tools", server.ID, err)
	}

	tools := make([]types.Tool, 0, len(rawTools))
	for _, raw := range rawTools {
		tools = append(tools, toCanonicalTool(m.logger, server, raw))
	}
	return tools, nil
}

// CallTool invokes the tool toolID on a network MCP server and returns its normalized result.
// A nil args map sends no arguments. The server's Timeout, if set, bounds the round-trip.
func (m *Manager) CallTool(
	ctx context.Context, server *types.MCPServer, toolID string, args map[string]any,
) (*types.ToolCallResult, error) {
	start := time.Now()

	entry, conn, err := m.connect(ctx, server)
	if err != nil {
		if server != nil {
			m.metrics.RecordToolCall(ctx, server.ID, toolID, telemetry.ToolCallOutcomeError, time.Since(start))
		}
		return nil, err
	}

	raw, err := detach(ctx, func(ctx context.Context) (*RawCallResult, error) {
		callCtx, cancel := callTimeout(ctx, server.Timeout)
		defer cancel()
		return conn.session.CallTool(callCtx, toolID, args)
	})
	if err != nil {
		m.metrics.RecordToolCall(ctx, server.ID, toolID, telemetry.ToolCallOutcomeError, time.Since(start))
		if ctx.Err() == nil {
			m.evict(entry)
		}
		return nil, toolerr.ForServer(
			toolerr.KindTransport, fmt.Sprintf("call tool %s", toolID), server.ID, err,
		)
	}

	res := foldCallResult(m.logger, raw)

	outcome := telemetry.ToolCallOutcomeSuccess
	if res.IsError {
		outcome = telemetry.ToolCallOutcomeToolError
	}
	m.metrics.RecordToolCall(ctx, server.ID, toolID, outcome, time.Since(start))

	return res, nil
}

// Dispose closes and forgets the connection of a server.
// Disposing an unknown or already disposed server is a no-op.
func (m *Manager) Dispose(serverID string) {
	m.mu.Lock()
	entry, ok := m.entries[serverID]
	if ok {
		delete(m.entries, serverID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	m.closeEntry(entry)
}

// Shutdown disposes every connection held by the manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[string]*connEntry)
	m.mu.Unlock()

	for _, entry := range entries {
		m.closeEntry(entry)
	}
}

// Connected reports whether the manager currently holds a live connection for a server.
func (m *Manager) Connected(serverID string) bool {
	m.mu.Lock()
	entry, ok := m.entries[serverID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-entry.ready:
		return entry.err == nil
	default:
		return false
	}
}

// validateServer rejects configurations that can never be dialed.
func validateServer(server *types.MCPServer) error {
	if server == nil {
		return toolerr.New(toolerr.KindConfiguration, "connect", errors.New("server is required"))
	}
	switch server.Type {
	case types.ServerTypeSSE, types.ServerTypeStreamableHTTP:
	default:
		return toolerr.ForServer(
			toolerr.KindConfiguration, "connect", server.ID,
			fmt.Errorf("%w: %q", ErrUnsupportedTransport, server.Type),
		)
	}
	if _, err := server.ResolveBaseURL(); err != nil {
		return toolerr.ForServer(toolerr.KindConfiguration, "connect", server.ID, err)
	}
	return nil
}

// connect returns the live connection of a server, establishing it if needed.
func (m *Manager) connect(ctx context.Context, server *types.MCPServer) (*connEntry, *connection, error) {
	if err := validateServer(server); err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	entry, ok := m.entries[server.ID]
	if !ok {
		entry = &connEntry{ready: make(chan struct{})}
		m.entries[server.ID] = entry
		// the dial outlives the caller that started it, other callers may be waiting on it
		go m.establish(context.WithoutCancel(ctx), server, entry)
	}
	m.mu.Unlock()

	select {
	case <-entry.ready:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	if entry.err != nil {
		return nil, nil, entry.err
	}
	return entry, entry.conn, nil
}

func (m *Manager) establish(ctx context.Context, server *types.MCPServer, entry *connEntry) {
	defer close(entry.ready)

	serverID := server.ID
	session, err := m.dial(ctx, server, func() {
		m.logger.Debug("transport closed by server", zap.String("server", serverID))
		go m.evict(entry)
	})
	if err != nil {
		m.metrics.RecordConnectionAttempt(ctx, serverID, telemetry.ConnectionOutcomeError)
		m.forget(entry, serverID)
		entry.err = toolerr.ForServer(toolerr.KindTransport, "connect", serverID, err)
		return
	}

	m.metrics.RecordConnectionAttempt(ctx, serverID, telemetry.ConnectionOutcomeSuccess)
	m.logger.Debug("connected to MCP server", zap.String("server", serverID), zap.String("type", string(server.Type)))
	entry.conn = &connection{serverID: serverID, session: session}
}

// forget removes entry from the cache if it is still the current entry of serverID.
func (m *Manager) forget(entry *connEntry, serverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[serverID] == entry {
		delete(m.entries, serverID)
		return true
	}
	return false
}

// evict drops a known-bad connection. A newer connection for the same server is left alone.
func (m *Manager) evict(entry *connEntry) {
	<-entry.ready
	if entry.conn == nil {
		return
	}
	if m.forget(entry, entry.conn.serverID) {
		m.closeEntry(entry)
	}
}

func (m *Manager) closeEntry(entry *connEntry) {
	<-entry.ready
	if entry.conn == nil {
		return
	}
	if err := entry.conn.close(); err != nil {
		m.logger.Warn("failed to close MCP server connection",
			zap.String("server", entry.conn.serverID), zap.Error(err))
		return
	}
	m.logger.Debug("disconnected from MCP server", zap.String("server", entry.conn.serverID))
}
