// Package cmd implements the mcpbridge command line interface.
package cmd

import (
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/mcpbridge/mcpbridge/client"
	"github.com/spf13/cobra"
)

// subCommandGroup orders sub-commands in the help output.
type subCommandGroup string

const (
	subCommandGroupBasic    subCommandGroup = "basic"
	subCommandGroupAdvanced subCommandGroup = "advanced"
)

const (
	ServerURLEnvVar  = "MCPBRIDGE_SERVER_URL"
	ServerURLDefault = "http://127.0.0.1:8080"
)

var (
	rootCmdServerURL string
	rootCmdDebug     bool

	// apiClient talks to the mcpbridge server for every command except start.
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "mcpbridge",
	Short: "Call MCP tools from any model vendor",
	Long: "mcpbridge connects to MCP servers, builds tool catalogs for model vendors\n" +
		"(OpenAI, Anthropic, Gemini, Bedrock) and executes the tool calls those models make.\n",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.NewClient(getServerURL(), &http.Client{Timeout: 5 * time.Minute})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootCmdServerURL,
		"server",
		"",
		"URL of the mcpbridge server (overrides env var "+ServerURLEnvVar+")",
	)
	rootCmd.PersistentFlags().BoolVar(&rootCmdDebug, "debug", false, "enable debug logging")

	rootCmd.SetHelpTemplate(helpTemplate)
}

// Execute runs the root command.
func Execute() error {
	sortCommands()
	return rootCmd.Execute()
}

// getServerURL returns the URL of the mcpbridge server
// precedence: command line flag > environment variable > default
func getServerURL() string {
	u := rootCmdServerURL
	if u == "" {
		u = os.Getenv(ServerURLEnvVar)
	}
	if u == "" {
		u = ServerURLDefault
	}
	return u
}

// sortCommands orders sub-commands by their group and order annotations.
func sortCommands() {
	cobra.EnableCommandSorting = false
	cmds := rootCmd.Commands()
	sort.SliceStable(cmds, func(i, j int) bool {
		gi, gj := cmds[i].Annotations["group"], cmds[j].Annotations["group"]
		if gi != gj {
			return gi == string(subCommandGroupBasic)
		}
		oi, _ := strconv.Atoi(cmds[i].Annotations["order"])
		oj, _ := strconv.Atoi(cmds[j].Annotations["order"])
		return oi < oj
	})
	rootCmd.ResetCommands()
	rootCmd.AddCommand(cmds...)
}

const helpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}{{if .HasAvailableSubCommands}}

Commands:{{range .Commands}}{{if .IsAvailableCommand}}
  {{rpad .Name .NamePadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}
`
