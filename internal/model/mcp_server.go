package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NetworkConfig is the transport configuration of sse and streamableHttp servers.
type NetworkConfig struct {
	// URL must be a valid http/https URL.
	URL string `json:"url"`

	// Headers are optional custom HTTP headers forwarded to the MCP server.
	Headers map[string]string `json:"headers,omitempty"`

	// Timeout bounds a single tool call, in seconds.
	Timeout int `json:"timeout,omitempty"`
}

// McpServer represents a MCP server registered in mcpbridge
type McpServer struct {
	gorm.Model

	// ServerID is the id clients refer to the server by. It is unique across the registry.
	ServerID string           `json:"id" gorm:"uniqueIndex;not null"`
	Name     string           `json:"name" gorm:"not null"`
	Type     types.ServerType `json:"type" gorm:"type:varchar(30);not null"`

	Description string `json:"description"`

	// Config describes the transport-specific configuration for the MCP server.
	// It contains the JSON representation of NetworkConfig for network servers and an empty
	// object otherwise.
	Config datatypes.JSON `json:"config" gorm:"type:jsonb;not null"`

	IsActive bool `json:"is_active" gorm:"not null;default:false"`

	// DisabledTools and DisabledAutoApproveTools are JSON arrays of tool names.
	DisabledTools            datatypes.JSON `json:"disabled_tools" gorm:"type:jsonb"`
	DisabledAutoApproveTools datatypes.JSON `json:"disabled_auto_approve_tools" gorm:"type:jsonb"`
}

// NewMcpServer creates a registry row from a server configuration record.
// The record is validated first.
func NewMcpServer(s *types.MCPServer) (*McpServer, error) {
	if s == nil {
		return nil, errors.New("server is required")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	config := []byte("{}")
	if s.Type == types.ServerTypeSSE || s.Type == types.ServerTypeStreamableHTTP {
		var err error
		config, err = json.Marshal(NetworkConfig{URL: s.BaseURL, Headers: s.Headers, Timeout: s.Timeout})
		if err != nil {
			return nil, err
		}
	}
	disabled, err := marshalNames(s.DisabledTools)
	if err != nil {
		return nil, err
	}
	disabledAutoApprove, err := marshalNames(s.DisabledAutoApproveTools)
	if err != nil {
		return nil, err
	}

	return &McpServer{
		ServerID:                 s.ID,
		Name:                     s.Name,
		Type:                     s.Type,
		Description:              s.Description,
		Config:                   config,
		IsActive:                 s.IsActive,
		DisabledTools:            disabled,
		DisabledAutoApproveTools: disabledAutoApprove,
	}, nil
}

// GetNetworkConfig returns the configuration if this is an sse or streamableHttp server
func (m *McpServer) GetNetworkConfig() (*NetworkConfig, error) {
	if m.Type != types.ServerTypeSSE && m.Type != types.ServerTypeStreamableHTTP {
		return nil, fmt.Errorf("server is not a network transport type: %s", m.Type)
	}
	var config NetworkConfig
	if err := json.Unmarshal(m.Config, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// ToServer converts the row back into a server configuration record.
func (m *McpServer) ToServer() (*types.MCPServer, error) {
	s := &types.MCPServer{
		ID:          m.ServerID,
		Name:        m.Name,
		Type:        m.Type,
		Description: m.Description,
		IsActive:    m.IsActive,
	}
	if m.Type == types.ServerTypeSSE || m.Type == types.ServerTypeStreamableHTTP {
		config, err := m.GetNetworkConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to read config of server %s: %w", m.ServerID, err)
		}
		s.BaseURL = config.URL
		s.Headers = config.Headers
		s.Timeout = config.Timeout
	}

	var err error
	if s.DisabledTools, err = unmarshalNames(m.DisabledTools); err != nil {
		return nil, fmt.Errorf("failed to read disabled tools of server %s: %w", m.ServerID, err)
	}
	if s.DisabledAutoApproveTools, err = unmarshalNames(m.DisabledAutoApproveTools); err != nil {
		return nil, fmt.Errorf("failed to read disabled auto-approve tools of server %s: %w", m.ServerID, err)
	}
	return s, nil
}

func marshalNames(names []string) (datatypes.JSON, error) {
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

func unmarshalNames(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	return names, nil
}
