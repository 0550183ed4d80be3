package builtin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mcpbridge/mcpbridge/internal/toolerr"
	"github.com/mcpbridge/mcpbridge/pkg/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, afero.Fs) {
	fs := afero.NewMemMapFs()
	return NewDispatcher(NewSandbox(fs, "/sandbox", zaptest.NewLogger(t)), zaptest.NewLogger(t)), fs
}

func toolByName(t *testing.T, name string) types.Tool {
	for _, tool := range Tools() {
		if tool.ID == name {
			return tool
		}
	}
	t.Fatalf("no built-in tool named %s", name)
	return types.Tool{}
}

func TestDispatchThink(t *testing.T) {
	d, _ := newTestDispatcher(t)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"string thought", map[string]any{"thought": "step one"}, "step one"},
		{"no arguments", nil, ""},
		{"null thought", map[string]any{"thought": nil}, ""},
		{"number thought", map[string]any{"thought": 42}, "42"},
		{"boolean thought", map[string]any{"thought": true}, "true"},
		{"object thought", map[string]any{"thought": map[string]any{"plan": []any{"a", "b"}}}, `{"plan":["a","b"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Dispatch(context.Background(), toolByName(t, ToolThink), tt.args)
			assert.Equal(t, types.TextResult(tt.want), res)
		})
	}
}

func TestDispatchFileTools(t *testing.T) {
	d, fs := newTestDispatcher(t)
	ctx := context.Background()

	res := d.Dispatch(ctx, toolByName(t, ToolWriteSandboxFile), map[string]any{
		"path":    "../../etc/passwd",
		"content": "root:x",
	})
	assert.False(t, res.IsError)
	assert.Equal(t, "Saved file: ../../etc/passwd", res.Content[0].Text)

	b, err := afero.ReadFile(fs, "/sandbox/etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "root:x", string(b))

	res = d.Dispatch(ctx, toolByName(t, ToolReadSandboxFile), map[string]any{"path": "etc/passwd"})
	assert.Equal(t, types.TextResult("root:x"), res)

	res = d.Dispatch(ctx, toolByName(t, ToolListSandboxFiles), map[string]any{})
	require.False(t, res.IsError)
	var entries []Entry
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "etc", entries[0].Name)
	assert.Equal(t, EntryTypeDirectory, entries[0].Type)

	res = d.Dispatch(ctx, toolByName(t, ToolDeleteSandboxEntry), map[string]any{"path": "etc"})
	assert.Equal(t, types.TextResult("Deleted: etc"), res)
}

func TestDispatchFailuresBecomeErrorResults(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"read without path", ToolReadSandboxFile, map[string]any{}, "requires a valid path"},
		{"read with empty path", ToolReadSandboxFile, map[string]any{"path": ""}, "requires a valid path"},
		{"read with non string path", ToolReadSandboxFile, map[string]any{"path": 42}, "requires a valid path"},
		{"write without content", ToolWriteSandboxFile, map[string]any{"path": "a.txt"}, "requires string content"},
		{"delete without path", ToolDeleteSandboxEntry, nil, "requires a valid path"},
		{"read missing file", ToolReadSandboxFile, map[string]any{"path": "nope.txt"}, "does not exist"},
		{"delete missing entry", ToolDeleteSandboxEntry, map[string]any{"path": "nope"}, "does not exist"},
		{"list missing directory", ToolListSandboxFiles, map[string]any{"path": "nope"}, "does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Dispatch(ctx, toolByName(t, tt.tool), tt.args)
			require.True(t, res.IsError)
			require.Len(t, res.Content, 1)
			assert.Equal(t, types.ContentTypeText, res.Content[0].Type)
			assert.Contains(t, res.Content[0].Text, tt.want)
		})
	}
}

func TestDispatchUnsupportedSandboxTool(t *testing.T) {
	d, _ := newTestDispatcher(t)

	tool := types.Tool{ID: "FormatDisk", Name: "FormatDisk", ServerID: FilesServer, ServerName: FilesServer}
	res := d.Dispatch(context.Background(), tool, nil)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "Unsupported sandbox tool: FormatDisk")
}

func TestDispatchUnknownServer(t *testing.T) {
	d, _ := newTestDispatcher(t)

	tests := []struct {
		name string
		tool types.Tool
	}{
		{"remote server id", types.Tool{ID: "search", ServerID: "s1"}},
		{"remote server name", types.Tool{ID: "search", ServerID: "s1", ServerName: "Search"}},
		{"no server", types.Tool{ID: ToolThink}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Dispatch(context.Background(), tt.tool, nil)
			require.NotNil(t, res)
			require.True(t, res.IsError)
			require.Len(t, res.Content, 1)
			assert.Contains(t, res.Content[0].Text, "Error ["+string(toolerr.KindToolNotFound)+"]")
			assert.Contains(t, res.Content[0].Text, ErrUnknownServer.Error())
		})
	}
}

func TestDispatchFallsBackToServerID(t *testing.T) {
	d, _ := newTestDispatcher(t)

	res := d.Dispatch(context.Background(), types.Tool{ID: ToolThink, ServerID: ThinkServer}, map[string]any{"thought": "x"})
	assert.Equal(t, types.TextResult("x"), res)
}

func TestBuiltinCatalog(t *testing.T) {
	tools := Tools()
	require.Len(t, tools, 5)
	for _, tool := range tools {
		assert.True(t, tool.IsBuiltIn)
		assert.Equal(t, types.ToolTypeBuiltin, tool.Type)
		assert.Equal(t, "object", tool.InputSchema["type"])
		assert.True(t, IsBuiltinServer(tool.ServerID))
	}

	writeTool := toolByName(t, ToolWriteSandboxFile)
	assert.Equal(t, []string{"path", "content"}, writeTool.RequiredProperties())
	assert.Empty(t, ToolsForServer("s1"))

	for _, s := range Servers() {
		assert.Equal(t, types.ServerTypeInMemory, s.Type)
		assert.NoError(t, s.Validate())
	}
}
