package builtin

import "github.com/mcpbridge/mcpbridge/pkg/types"

// Names of the built-in servers. A built-in server's id equals its name.
const (
	ThinkServer = "@mcpbridge/think"
	FilesServer = "@mcpbridge/files"
)

// Names of the built-in tools.
const (
	ToolThink              = "think"
	ToolListSandboxFiles   = "ListSandboxFiles"
	ToolReadSandboxFile    = "ReadSandboxFile"
	ToolWriteSandboxFile   = "WriteSandboxFile"
	ToolDeleteSandboxEntry = "DeleteSandboxEntry"
)

// Servers returns the configuration records of the built-in servers.
func Servers() []types.MCPServer {
	return []types.MCPServer{
		{
			ID:          ThinkServer,
			Name:        ThinkServer,
			Type:        types.ServerTypeInMemory,
			Description: "A scratchpad tool the model can use to think step by step",
			IsActive:    true,
		},
		{
			ID:          FilesServer,
			Name:        FilesServer,
			Type:        types.ServerTypeInMemory,
			Description: "Read and write files inside a private sandbox directory",
			IsActive:    true,
		},
	}
}

// IsBuiltinServer reports whether id names a built-in server.
func IsBuiltinServer(id string) bool {
	return id == ThinkServer || id == FilesServer
}

func pathProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func builtinTool(server, name, description string, properties map[string]any, required ...string) types.Tool {
	req := make([]any, 0, len(required))
	for _, r := range required {
		req = append(req, r)
	}
	return types.Tool{
		ID:          name,
		Name:        name,
		Description: description,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   req,
		},
		ServerID:   server,
		ServerName: server,
		Type:       types.ToolTypeBuiltin,
		IsBuiltIn:  true,
	}
}

// ToolsForServer returns the tool catalog of one built-in server.
// An unknown server has no tools.
func ToolsForServer(serverID string) []types.Tool {
	switch serverID {
	case ThinkServer:
		return []types.Tool{
			builtinTool(ThinkServer, ToolThink,
				"Use the tool to think about something. It will not obtain new information or change anything, "+
					"but just append the thought to the log.",
				map[string]any{
					"thought": map[string]any{"type": "string", "description": "A thought to think about."},
				},
				"thought",
			),
		}
	case FilesServer:
		return []types.Tool{
			builtinTool(FilesServer, ToolListSandboxFiles,
				"List the files and directories of a sandbox directory. Omit path to list the sandbox root.",
				map[string]any{"path": pathProperty("Directory path relative to the sandbox root.")},
			),
			builtinTool(FilesServer, ToolReadSandboxFile,
				"Read a UTF-8 text file from the sandbox.",
				map[string]any{"path": pathProperty("File path relative to the sandbox root.")},
				"path",
			),
			builtinTool(FilesServer, ToolWriteSandboxFile,
				"Write a UTF-8 text file to the sandbox, creating parent directories as needed.",
				map[string]any{
					"path":    pathProperty("File path relative to the sandbox root."),
					"content": map[string]any{"type": "string", "description": "Text content to write."},
				},
				"path", "content",
			),
			builtinTool(FilesServer, ToolDeleteSandboxEntry,
				"Delete a file or directory from the sandbox.",
				map[string]any{"path": pathProperty("Path relative to the sandbox root.")},
				"path",
			),
		}
	default:
		return nil
	}
}

// Tools returns the catalog of every built-in tool.
func Tools() []types.Tool {
	return append(ToolsForServer(ThinkServer), ToolsForServer(FilesServer)...)
}
