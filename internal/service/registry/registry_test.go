package registry

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcpbridge/mcpbridge/internal/db"
	"github.com/mcpbridge/mcpbridge/internal/migrations"
	"github.com/mcpbridge/mcpbridge/internal/service/builtin"
	"github.com/mcpbridge/mcpbridge/pkg/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRegistry(t *testing.T) *Registry {
	conn, err := db.NewDBConnection(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	require.NoError(t, migrations.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRegistry(conn, zaptest.NewLogger(t))
}

func searchServer() *types.MCPServer {
	return &types.MCPServer{
		ID:            "search",
		Name:          "Search",
		Type:          types.ServerTypeStreamableHTTP,
		BaseURL:       "https://search.example.com/mcp",
		Headers:       map[string]string{"Authorization": "Bearer x"},
		IsActive:      true,
		DisabledTools: []string{"delete"},
	}
}

func TestSaveAndGetServer(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.SaveServer(ctx, searchServer()))

	got, err := r.GetServer(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, searchServer(), got)

	// saving again replaces the stored record
	updated := searchServer()
	updated.IsActive = false
	updated.BaseURL = "https://search2.example.com/mcp"
	require.NoError(t, r.SaveServer(ctx, updated))

	got, err = r.GetServer(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	servers, err := r.ListServers(ctx)
	require.NoError(t, err)
	assert.Len(t, servers, 1+len(builtin.Servers()))
}

func TestGetServerNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.GetServer(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrServerNotFound)
}

func TestBuiltinServersAreReserved(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	got, err := r.GetServer(ctx, builtin.FilesServer)
	require.NoError(t, err)
	assert.Equal(t, types.ServerTypeInMemory, got.Type)

	err = r.SaveServer(ctx, &types.MCPServer{ID: builtin.ThinkServer, Type: types.ServerTypeInMemory})
	assert.ErrorIs(t, err, ErrReservedServerID)
	assert.ErrorIs(t, r.DeleteServer(ctx, builtin.ThinkServer), ErrReservedServerID)
}

func TestSaveServerRejectsInvalidRecords(t *testing.T) {
	r := newTestRegistry(t)
	err := r.SaveServer(context.Background(), &types.MCPServer{ID: "x", Type: types.ServerTypeSSE})
	assert.ErrorIs(t, err, types.ErrMissingBaseURL)
}

func TestDeleteServer(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, r.SaveServer(ctx, searchServer()))

	require.NoError(t, r.DeleteServer(ctx, "search"))
	_, err := r.GetServer(ctx, "search")
	assert.ErrorIs(t, err, types.ErrServerNotFound)
	assert.ErrorIs(t, r.DeleteServer(ctx, "search"), types.ErrServerNotFound)

	// the id can be reused after deletion
	require.NoError(t, r.SaveServer(ctx, searchServer()))
}

const serversFile = `
servers:
  - id: search
    name: Search
    type: streamableHttp
    baseUrl: https://search.example.com/mcp
    isActive: true
    disabledAutoApproveTools: [write]
  - id: events
    name: Events
    type: sse
    baseUrl: http://localhost:9000/sse
    timeout: 15
`

func TestImport(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/servers.yaml", []byte(serversFile), 0o644))

	n, err := r.ImportFile(ctx, fs, "/etc/servers.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	events, err := r.GetServer(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, 15, events.Timeout)
	assert.False(t, events.IsActive)

	search, err := r.GetServer(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, []string{"write"}, search.DisabledAutoApproveTools)

	servers, err := r.ListServers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "events", servers[0].ID)
	assert.Equal(t, "search", servers[1].ID)
}

func TestImportErrors(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Import(ctx, strings.NewReader("servers:\n  - id: x\n    bogus: 1\n"))
	assert.ErrorContains(t, err, "failed to parse servers file")

	n, err := r.Import(ctx, strings.NewReader("servers:\n  - id: ok\n    type: inMemory\n  - id: bad\n    type: pigeon\n"))
	assert.Equal(t, 1, n)
	assert.ErrorContains(t, err, "server #2 (bad)")

	n, err = r.Import(ctx, strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = r.ImportFile(ctx, afero.NewMemMapFs(), "/missing.yaml")
	assert.ErrorContains(t, err, "failed to open servers file")
}
