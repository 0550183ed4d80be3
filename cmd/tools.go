package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mcpbridge/mcpbridge/pkg/types"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools <server-id>",
	Short: "List the enabled tools of an MCP server",
	Args:  cobra.ExactArgs(1),
	RunE:  runListTools,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "3",
	},
}

var callCmd = &cobra.Command{
	Use:   "call <server-id> <tool>",
	Short: "Call a MCP tool",
	Long: "Call a MCP tool and print its result.\n" +
		"Arguments are supplied as a JSON object with --input, eg:\n\n" +
		"    mcpbridge call search search --input '{\"q\": \"golang\"}'\n\n" +
		"Tool failures are printed as the tool's result and do not fail the command.\n",
	Args: cobra.ExactArgs(2),
	RunE: runCallTool,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "5",
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog <vendor>",
	Short: "Print the tool declarations of a model vendor",
	Long: "Print the tool catalog in the declaration format of a model vendor.\n" +
		"Vendors: openai-response, openai-chat, anthropic, gemini, bedrock.\n",
	Args: cobra.ExactArgs(1),
	RunE: runCatalog,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "1",
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Extract <tool_use> blocks from model output",
	Long: "Extract the <tool_use> blocks a model wrote in free text and print them as tool calls.\n" +
		"The text is read from the file, or from standard input when no file is given.\n",
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "2",
	},
}

var (
	callCmdInput string

	catalogCmdServers string

	parseCmdServers  string
	parseCmdStartIdx int
)

func init() {
	callCmd.Flags().StringVar(&callCmdInput, "input", "{}", "valid JSON payload")

	catalogCmd.Flags().StringVar(
		&catalogCmdServers,
		"servers",
		"",
		"Comma-separated list of server names to include. By default, every active server is included.",
	)

	parseCmd.Flags().StringVar(
		&parseCmdServers,
		"servers",
		"",
		"Comma-separated list of server names whose tools may be matched",
	)
	parseCmd.Flags().IntVar(&parseCmdStartIdx, "start-idx", 0, "index given to the first tool call found")

	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(parseCmd)
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runListTools(cmd *cobra.Command, args []string) error {
	tools, err := apiClient.ListServerTools(args[0])
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	if len(tools) == 0 {
		cmd.Println("There are no tools available")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TOOL\tNAME\tDESCRIPTION")
	for _, t := range tools {
		desc, _, _ := strings.Cut(t.Description, "\n")
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, desc)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cmd.Println()
	cmd.Println("Run 'usage <server-id> <tool>' to see a tool's input parameters.")
	return nil
}

func runCallTool(cmd *cobra.Command, args []string) error {
	var input map[string]any
	if err := json.Unmarshal([]byte(callCmdInput), &input); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}

	resp, err := apiClient.InvokeTool(args[0], args[1], input)
	if err != nil {
		return fmt.Errorf("failed to call tool: %w", err)
	}
	printToolResult(cmd, resp.Response)
	return nil
}

// printToolResult prints text blocks as-is and summarizes everything else.
func printToolResult(cmd *cobra.Command, result *types.ToolCallResult) {
	if result == nil {
		cmd.Println("The tool returned no result")
		return
	}
	if result.IsError {
		cmd.Println("The tool returned an error:")
	}
	for _, block := range result.Content {
		switch block.Type {
		case types.ContentTypeText:
			cmd.Println(block.Text)
		case types.ContentTypeResource:
			if block.Resource != nil {
				cmd.Printf("[resource %s]\n", block.Resource.URI)
				if block.Resource.Text != "" {
					cmd.Println(block.Resource.Text)
				}
			}
		default:
			cmd.Printf("[%s content, %s]\n", block.Type, block.MimeType)
		}
	}
}

func runCatalog(cmd *cobra.Command, args []string) error {
	raw, err := apiClient.VendorTools(args[0], splitList(catalogCmdServers)...)
	if err != nil {
		return fmt.Errorf("failed to get the %s tool catalog: %w", args[0], err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("server returned invalid JSON: %w", err)
	}
	cmd.Println(out.String())
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	var (
		content []byte
		err     error
	)
	if len(args) == 1 {
		content, err = os.ReadFile(args[0])
	} else {
		content, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read model output: %w", err)
	}

	parsed, err := apiClient.ParseToolUse(string(content), parseCmdStartIdx, splitList(parseCmdServers)...)
	if err != nil {
		return fmt.Errorf("failed to parse tool use: %w", err)
	}
	if len(parsed) == 0 {
		cmd.Println("No tool calls found")
		return nil
	}

	j, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(j))
	return nil
}
