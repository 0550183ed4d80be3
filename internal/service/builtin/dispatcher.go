// Package builtin answers the in-process tools of mcpbridge: a no-op "think" tool and a set of
// file tools confined to a sandbox directory. No network connection is ever opened.
package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcpbridge/mcpbridge/internal/toolerr"
	"github.com/mcpbridge/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

// ErrUnknownServer is reported when a tool does not belong to any built-in server.
var ErrUnknownServer = errors.New("not a built-in server")

type handlerFunc func(ctx context.Context, args map[string]any) (*types.ToolCallResult, error)

type toolKey struct {
	server string
	tool   string
}

// Dispatcher routes calls to the built-in tools, keyed by server name and tool name.
type Dispatcher struct {
	sandbox  *Sandbox
	handlers map[toolKey]handlerFunc
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher whose file tools operate on sandbox.
func NewDispatcher(sandbox *Sandbox, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{sandbox: sandbox, logger: logger.Named("builtin")}
	d.handlers = map[toolKey]handlerFunc{
		{ThinkServer, ToolThink}:              d.think,
		{FilesServer, ToolListSandboxFiles}:   d.listFiles,
		{FilesServer, ToolReadSandboxFile}:    d.readFile,
		{FilesServer, ToolWriteSandboxFile}:   d.writeFile,
		{FilesServer, ToolDeleteSandboxEntry}: d.deleteEntry,
	}
	return d
}

// Dispatch calls a built-in tool. Every failure, a tool that is not built-in included,
// comes back as an isError result.
func (d *Dispatcher) Dispatch(ctx context.Context, tool types.Tool, args map[string]any) *types.ToolCallResult {
	server := tool.ServerName
	if server == "" {
		server = tool.ServerID
	}
	if !IsBuiltinServer(server) {
		err := toolerr.ForServer(
			toolerr.KindToolNotFound, "dispatch built-in tool", server, fmt.Errorf("%w: %s", ErrUnknownServer, tool.ID),
		)
		d.logger.Warn("tool is not built-in", zap.String("server", server), zap.String("tool", tool.ID), zap.Error(err))
		return types.ErrorResult(toolerr.Format(err))
	}

	d.logger.Info("calling built-in tool", zap.String("server", server), zap.String("tool", tool.ID))

	handler, ok := d.handlers[toolKey{server, tool.ID}]
	if !ok {
		handler = func(context.Context, map[string]any) (*types.ToolCallResult, error) {
			return nil, fmt.Errorf("Unsupported sandbox tool: %s", tool.ID)
		}
	}

	res, err := toolerr.Guard(func() (*types.ToolCallResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return handler(ctx, args)
	})
	if err != nil {
		d.logger.Error("built-in tool failed",
			zap.String("server", server), zap.String("tool", tool.ID), zap.Error(err))
	}
	return res
}

func (d *Dispatcher) think(_ context.Context, args map[string]any) (*types.ToolCallResult, error) {
	switch thought := args["thought"].(type) {
	case nil:
		return types.TextResult(""), nil
	case string:
		return types.TextResult(thought), nil
	default:
		b, err := json.Marshal(thought)
		if err != nil {
			return types.TextResult(fmt.Sprint(thought)), nil
		}
		return types.TextResult(string(b)), nil
	}
}

func (d *Dispatcher) listFiles(_ context.Context, args map[string]any) (*types.ToolCallResult, error) {
	// path is optional here, anything that is not a string lists the root
	p, _ := args["path"].(string)

	entries, err := d.sandbox.List(p)
	if err != nil {
		return nil, toolerr.New(toolerr.KindBuiltin, ToolListSandboxFiles, err)
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, toolerr.New(toolerr.KindSerialization, ToolListSandboxFiles, err)
	}
	return types.TextResult(string(b)), nil
}

func (d *Dispatcher) readFile(_ context.Context, args map[string]any) (*types.ToolCallResult, error) {
	p, err := requirePath(ToolReadSandboxFile, args)
	if err != nil {
		return nil, err
	}
	content, err := d.sandbox.Read(p)
	if err != nil {
		return nil, toolerr.New(toolerr.KindBuiltin, ToolReadSandboxFile, err)
	}
	return types.TextResult(content), nil
}

func (d *Dispatcher) writeFile(_ context.Context, args map[string]any) (*types.ToolCallResult, error) {
	p, err := requirePath(ToolWriteSandboxFile, args)
	if err != nil {
		return nil, err
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, toolerr.New(toolerr.KindBuiltin, ToolWriteSandboxFile, errors.New("requires string content"))
	}
	if err := d.sandbox.Write(p, content); err != nil {
		return nil, toolerr.New(toolerr.KindBuiltin, ToolWriteSandboxFile, err)
	}
	return types.TextResult("Saved file: " + p), nil
}

func (d *Dispatcher) deleteEntry(_ context.Context, args map[string]any) (*types.ToolCallResult, error) {
	p, err := requirePath(ToolDeleteSandboxEntry, args)
	if err != nil {
		return nil, err
	}
	if err := d.sandbox.Delete(p); err != nil {
		return nil, toolerr.New(toolerr.KindBuiltin, ToolDeleteSandboxEntry, err)
	}
	return types.TextResult("Deleted: " + p), nil
}

// requirePath extracts the mandatory "path" argument before any storage is touched.
func requirePath(op string, args map[string]any) (string, error) {
	p, ok := args["path"].(string)
	if !ok || p == "" {
		return "", toolerr.New(toolerr.KindBuiltin, op, errors.New("requires a valid path"))
	}
	return p, nil
}
