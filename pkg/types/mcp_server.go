package types

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ServerType represents the kind of MCP server, which decides how mcpbridge reaches it.
// All server types known to mcpbridge are defined in this file with this type.
type ServerType string

const (
	ServerTypeStdio          ServerType = "stdio"
	ServerTypeSSE            ServerType = "sse"
	ServerTypeStreamableHTTP ServerType = "streamableHttp"

	// ServerTypeInMemory servers are answered in-process by the built-in dispatcher.
	// They never open a transport.
	ServerTypeInMemory ServerType = "inMemory"
)

// MCPServer is the configuration record of a tool-providing server.
// It is created and edited outside the tool core, which only ever reads it.
type MCPServer struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Type        ServerType `json:"type" yaml:"type"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`

	// BaseURL is mandatory for sse and streamableHttp servers and must be an absolute URL.
	BaseURL string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`

	// Headers are forwarded with every request made to the server.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Timeout bounds a single tool call round-trip, in seconds. Zero means no bound.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	IsActive bool `json:"isActive" yaml:"isActive"`

	DisabledTools            []string `json:"disabledTools,omitempty" yaml:"disabledTools,omitempty"`
	DisabledAutoApproveTools []string `json:"disabledAutoApproveTools,omitempty" yaml:"disabledAutoApproveTools,omitempty"`
}

// ErrServerNotFound is returned when no server is registered under the requested id.
var ErrServerNotFound = errors.New("MCP server not found")

// ErrMissingBaseURL is returned when a network server has no base URL configured.
var ErrMissingBaseURL = errors.New("MCP server is missing a baseUrl")

// ResolveBaseURL parses and validates the server's base URL.
// The URL must be absolute and use the http or https scheme.
func (s *MCPServer) ResolveBaseURL() (*url.URL, error) {
	raw := strings.TrimSpace(s.BaseURL)
	if raw == "" {
		return nil, ErrMissingBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid baseUrl '%s': %w", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("invalid baseUrl '%s': must be an absolute URL", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid baseUrl '%s': scheme must be http or https", raw)
	}
	return u, nil
}

// ForwardedHeaders returns a copy of the configured headers with empty keys removed.
// It returns nil when there is nothing to forward.
func (s *MCPServer) ForwardedHeaders() map[string]string {
	if len(s.Headers) == 0 {
		return nil
	}
	headers := make(map[string]string, len(s.Headers))
	for k, v := range s.Headers {
		if strings.TrimSpace(k) == "" {
			continue
		}
		headers[k] = v
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// IsToolDisabled reports whether the tool has been disabled for this server.
func (s *MCPServer) IsToolDisabled(toolName string) bool {
	return slices.Contains(s.DisabledTools, toolName)
}

// IsAutoApproveDisabled reports whether calls to the tool need explicit user approval.
func (s *MCPServer) IsAutoApproveDisabled(toolName string) bool {
	return slices.Contains(s.DisabledAutoApproveTools, toolName)
}

// Validate checks the parts of the record the tool core relies on.
func (s *MCPServer) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("MCP server id must not be empty")
	}
	if _, err := ValidateServerType(string(s.Type)); err != nil {
		return err
	}
	if s.Type == ServerTypeSSE || s.Type == ServerTypeStreamableHTTP {
		if _, err := s.ResolveBaseURL(); err != nil {
			return err
		}
	}
	if s.Timeout < 0 {
		return fmt.Errorf("invalid timeout %d: must not be negative", s.Timeout)
	}
	return nil
}

// ValidateServerType validates the input string and returns the corresponding ServerType.
// It returns an error if the input is invalid or empty.
func ValidateServerType(input string) (ServerType, error) {
	errMsgExt := fmt.Sprintf(
		"(acceptable values: '%s', '%s', '%s', '%s')",
		ServerTypeStreamableHTTP, ServerTypeSSE, ServerTypeStdio, ServerTypeInMemory,
	)

	switch input {
	case string(ServerTypeStreamableHTTP):
		return ServerTypeStreamableHTTP, nil
	case string(ServerTypeSSE):
		return ServerTypeSSE, nil
	case string(ServerTypeStdio):
		return ServerTypeStdio, nil
	case string(ServerTypeInMemory):
		return ServerTypeInMemory, nil
	case "":
		return "", fmt.Errorf("server type is required %s", errMsgExt)
	default:
		return "", fmt.Errorf("unsupported server type: %s %s", input, errMsgExt)
	}
}
