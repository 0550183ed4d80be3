package internal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpbridge/mcpbridge/internal/adapter"
	"github.com/mcpbridge/mcpbridge/internal/db"
	"github.com/mcpbridge/mcpbridge/internal/migrations"
	"github.com/mcpbridge/mcpbridge/internal/service/aggregator"
	"github.com/mcpbridge/mcpbridge/internal/service/builtin"
	mcpService "github.com/mcpbridge/mcpbridge/internal/service/mcp"
	"github.com/mcpbridge/mcpbridge/internal/service/registry"
	"github.com/mcpbridge/mcpbridge/internal/service/tooluse"
	"github.com/mcpbridge/mcpbridge/internal/service/tools"
	"github.com/mcpbridge/mcpbridge/internal/telemetry"
	"github.com/mcpbridge/mcpbridge/pkg/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newWeatherServer starts a streamable HTTP MCP server with a single "forecast" tool.
func newWeatherServer(t *testing.T) string {
	s := server.NewMCPServer("weather", "0.0.1", server.WithToolCapabilities(true))
	s.AddTool(
		mcp.NewTool(
			"forecast",
			mcp.WithDescription("Weather forecast for a city"),
			mcp.WithString("city", mcp.Required()),
		),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			city, _ := request.GetArguments()["city"].(string)
			return mcp.NewToolResultText("sunny in " + city), nil
		},
	)
	ts := httptest.NewServer(server.NewStreamableHTTPServer(s, server.WithStateLess(true)))
	t.Cleanup(ts.Close)
	return ts.URL + "/mcp"
}

func TestToolCallIntegration(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	// Setup test database
	conn, err := db.NewDBConnection(filepath.Join(t.TempDir(), "integration.db"))
	require.NoError(t, err)
	require.NoError(t, migrations.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	reg := registry.NewRegistry(conn, logger)
	require.NoError(t, reg.SaveServer(ctx, &types.MCPServer{
		ID:       "weather",
		Name:     "Weather",
		Type:     types.ServerTypeStreamableHTTP,
		BaseURL:  newWeatherServer(t),
		IsActive: true,
	}))

	manager := mcpService.NewManager(&mcpService.ManagerConfig{
		InitReqTimeout: 5 * time.Second,
		Logger:         logger,
		Metrics:        telemetry.NewNoopCustomMetrics(),
	})
	t.Cleanup(manager.Shutdown)

	svc := tools.NewService(&tools.ServiceConfig{
		Servers:           reg,
		Network:           manager,
		Dispatcher:        builtin.NewDispatcher(builtin.NewSandbox(afero.NewMemMapFs(), "/sandbox", logger), logger),
		ValidateArguments: true,
		Logger:            logger,
	})

	servers, err := reg.ListServers(ctx)
	require.NoError(t, err)
	catalog, err := svc.ListTools(ctx, servers)
	require.NoError(t, err)
	require.Len(t, catalog, 1+len(builtin.Tools()))
	assert.Equal(t, "forecast", catalog[0].ID)
	assert.True(t, manager.Connected("weather"))

	t.Run("anthropic tool_use round trip", func(t *testing.T) {
		a, err := adapter.NewRegistry(logger).Lookup(adapter.VendorAnthropic)
		require.NoError(t, err)

		decls, err := json.Marshal(a.EncodeTools(catalog))
		require.NoError(t, err)
		assert.Contains(t, string(decls), `"name":"forecast"`)

		resp, ok := a.DecodeToolResponse(catalog, json.RawMessage(
			`{"type":"tool_use","id":"toolu_1","name":"forecast","input":{"city":"Oslo"}}`,
		))
		require.True(t, ok)

		var kinds []aggregator.NotificationKind
		agg := aggregator.New(func(n aggregator.Notification) { kinds = append(kinds, n.Kind) }, logger)
		agg.Upsert(*resp)

		resp.Status = types.ToolStatusInvoking
		agg.Upsert(*resp)

		resp.Response = svc.Invoke(ctx, resp)
		resp.Status = types.ToolStatusDone
		agg.Upsert(*resp)

		require.Len(t, agg.Results(), 1)
		assert.Equal(t, types.ToolStatusDone, agg.Results()[0].Status)
		assert.Equal(t, []aggregator.NotificationKind{
			aggregator.NotificationToolPending, aggregator.NotificationToolInProgress, aggregator.NotificationToolComplete,
		}, kinds)

		msg, err := json.Marshal(a.EncodeResult(resp, resp.Response, adapter.Options{}))
		require.NoError(t, err)
		assert.Contains(t, string(msg), "toolu_1")
		assert.Contains(t, string(msg), "sunny in Oslo")
	})

	t.Run("free text tool use", func(t *testing.T) {
		content := "Checking.\n" +
			"<tool_use><name>forecast</name><arguments>{\"city\":\"Lima\"}</arguments></tool_use>\n" +
			"<tool_use><name>think</name><arguments>{\"thought\":\"compare cities\"}</arguments></tool_use>"

		parsed := tooluse.NewParser(logger).Parse(content, catalog, 0)
		require.Len(t, parsed, 2)

		res := svc.Invoke(ctx, &parsed[0])
		assert.False(t, res.IsError)
		assert.Equal(t, "sunny in Lima", res.Content[0].Text)

		res = svc.Invoke(ctx, &parsed[1])
		assert.False(t, res.IsError)
		assert.Equal(t, "compare cities", res.Content[0].Text)
	})

	t.Run("schema violations never reach the server", func(t *testing.T) {
		res := svc.Invoke(ctx, &types.ToolResponse{ID: "x", Tool: catalog[0], Arguments: map[string]any{}})
		assert.True(t, res.IsError)
		assert.Contains(t, res.Content[0].Text, "invalid arguments for tool forecast")
	})

	t.Run("disconnect then reconnect", func(t *testing.T) {
		svc.Disconnect("weather")
		assert.False(t, manager.Connected("weather"))

		res := svc.Invoke(ctx, &types.ToolResponse{
			ID: "y", Tool: catalog[0], Arguments: map[string]any{"city": "Rome"},
		})
		assert.Equal(t, "sunny in Rome", res.Content[0].Text)
		assert.True(t, manager.Connected("weather"))
	})
}
