package types

// ToolType tags where a tool comes from.
type ToolType string

const (
	ToolTypeMCP     ToolType = "mcp"
	ToolTypeBuiltin ToolType = "builtin"
)

// Tool is the provider-agnostic description of an invocable tool.
// It is owned by the server that produced it and is rebuilt on every catalog refresh.
type Tool struct {
	// ID is the wire tool name. It is what vendors are told to call.
	ID string `json:"id"`

	// Name is the display name. It prefers the server-supplied title annotation and may
	// therefore differ from ID.
	Name string `json:"name"`

	Description string `json:"description,omitempty"`

	// InputSchema is a JSON schema that describes the input parameters for the tool.
	InputSchema map[string]any `json:"inputSchema"`

	// OutputSchema is the JSON schema of the tool's structured output, if it declares one.
	OutputSchema map[string]any `json:"outputSchema,omitempty"`

	ServerID   string   `json:"serverId"`
	ServerName string   `json:"serverName,omitempty"`
	Type       ToolType `json:"type"`
	IsBuiltIn  bool     `json:"isBuiltIn,omitempty"`
}

// EmptyObjectSchema returns the schema used for tools that declare no input schema.
func EmptyObjectSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []any{},
	}
}

// RequiredProperties returns the names listed in the input schema's "required" keyword.
func (t *Tool) RequiredProperties() []string {
	return StringList(t.InputSchema["required"])
}

// StringList converts a decoded JSON array into a list of strings, skipping non-string items.
func StringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
