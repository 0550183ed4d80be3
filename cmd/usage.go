package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage <server-id> <tool>",
	Short: "Get usage information for a MCP tool",
	Args:  cobra.ExactArgs(2),
	RunE:  runGetToolUsage,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "4",
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}

func runGetToolUsage(cmd *cobra.Command, args []string) error {
	t, err := apiClient.GetTool(args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to get tool '%s': %w", args[1], err)
	}

	cmd.Println(t.ID)
	if t.Name != t.ID {
		cmd.Println(t.Name)
	}
	cmd.Println(t.Description)

	props, _ := t.InputSchema["properties"].(map[string]any)
	if len(props) == 0 {
		cmd.Println("This tool does not require any input parameters.")
		return nil
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	required := t.RequiredProperties()

	cmd.Println()
	cmd.Println("Input Parameters:")
	for _, k := range keys {
		requiredOrOptional := "optional"
		if slices.Contains(required, k) {
			requiredOrOptional = "required"
		}

		boundary := strings.Repeat("=", len(k)+len(requiredOrOptional)+20)

		cmd.Println(boundary)
		cmd.Printf("%s (%s)\n", k, requiredOrOptional)

		j, err := json.MarshalIndent(props[k], "", "  ")
		if err != nil {
			// Simply print the raw object if we fail to marshal it
			cmd.Println(props[k])
		} else {
			cmd.Println(string(j))
		}
		cmd.Println(boundary)

		cmd.Println()
	}

	return nil
}
