package cmd

import (
	"bytes"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Manage the MCP servers known to mcpbridge",
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "2",
	},
}

var listServersCmd = &cobra.Command{
	Use:   "list",
	Short: "List MCP servers, built-in servers included",
	Args:  cobra.NoArgs,
	RunE:  runListServers,
}

var registerServerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register an MCP server",
	Long: "Register an MCP server by supplying a configuration file.\n" +
		"The file is YAML or JSON and holds a single server, eg:\n\n" +
		"    id: search\n" +
		"    name: Search\n" +
		"    type: streamableHttp\n" +
		"    baseUrl: https://search.example.com/mcp\n" +
		"    isActive: true\n\n" +
		"A server registered under an existing id replaces it, and its live connection is dropped.\n",
	Args: cobra.NoArgs,
	RunE: runRegisterServer,
}

var deregisterServerCmd = &cobra.Command{
	Use:   "deregister <id>",
	Short: "Remove an MCP server",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeregisterServer,
}

var disconnectServerCmd = &cobra.Command{
	Use:   "disconnect <id>",
	Short: "Drop the live connection to an MCP server",
	Long:  "Drop the live connection to an MCP server. The next tool call reconnects.\n",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisconnectServer,
}

var registerServerCmdConfigFilePath string

func init() {
	registerServerCmd.Flags().StringVarP(
		&registerServerCmdConfigFilePath,
		"conf",
		"c",
		"",
		"Path to a YAML or JSON configuration file for the MCP server",
	)
	_ = registerServerCmd.MarkFlagRequired("conf")

	serversCmd.AddCommand(listServersCmd)
	serversCmd.AddCommand(registerServerCmd)
	serversCmd.AddCommand(deregisterServerCmd)
	serversCmd.AddCommand(disconnectServerCmd)

	rootCmd.AddCommand(serversCmd)
}

func runListServers(cmd *cobra.Command, args []string) error {
	servers, err := apiClient.ListServers()
	if err != nil {
		return fmt.Errorf("failed to list servers: %w", err)
	}
	if len(servers) == 0 {
		cmd.Println("There are no MCP servers registered")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPE\tACTIVE\tURL")
	for _, s := range servers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", s.ID, s.Name, s.Type, s.IsActive, s.BaseURL)
	}
	return w.Flush()
}

// readServerConfig decodes a single server record from a YAML or JSON file.
func readServerConfig(path string) (*types.MCPServer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s types.MCPServer
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &s, nil
}

func runRegisterServer(cmd *cobra.Command, args []string) error {
	s, err := readServerConfig(registerServerCmdConfigFilePath)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid MCP server configuration: %w", err)
	}
	if err := apiClient.RegisterServer(s); err != nil {
		return fmt.Errorf("failed to register server %s: %w", s.ID, err)
	}
	cmd.Printf("MCP server '%s' registered successfully!\n", s.ID)
	return nil
}

func runDeregisterServer(cmd *cobra.Command, args []string) error {
	if err := apiClient.DeregisterServer(args[0]); err != nil {
		return fmt.Errorf("failed to deregister server %s: %w", args[0], err)
	}
	cmd.Printf("MCP server '%s' deregistered\n", args[0])
	return nil
}

func runDisconnectServer(cmd *cobra.Command, args []string) error {
	if err := apiClient.Disconnect(args[0]); err != nil {
		return fmt.Errorf("failed to disconnect server %s: %w", args[0], err)
	}
	cmd.Printf("Disconnected from MCP server '%s'\n", args[0])
	return nil
}
