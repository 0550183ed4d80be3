package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mcpbridge/mcpbridge/pkg/types"
)

// ListServers returns every server known to mcpbridge, built-in servers included.
func (c *Client) ListServers() ([]types.MCPServer, error) {
	u, _ := c.constructAPIEndpoint("/servers")

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	var servers []types.MCPServer
	if err := c.do(req, http.StatusOK, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// RegisterServer stores a server, replacing any server with the same id.
func (c *Client) RegisterServer(server *types.MCPServer) error {
	u, _ := c.constructAPIEndpoint("/servers")

	body, err := json.Marshal(server)
	if err != nil {
		return err
	}
	req, err := c.newRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	return c.do(req, http.StatusCreated, nil)
}

// DeregisterServer removes a server.
func (c *Client) DeregisterServer(id string) error {
	u, _ := c.constructAPIEndpoint("/servers/" + url.PathEscape(id))

	req, err := c.newRequest(http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	return c.do(req, http.StatusNoContent, nil)
}

// Disconnect drops the live connection mcpbridge holds to a server.
func (c *Client) Disconnect(id string) error {
	u, _ := c.constructAPIEndpoint("/servers/" + url.PathEscape(id) + "/connection")

	req, err := c.newRequest(http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	return c.do(req, http.StatusNoContent, nil)
}
