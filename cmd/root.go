package cmd

import (
	"fmt"
	"os"

	"github.com/mtaran/crdbextract/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crdbextract",
	Short: "Turn Claude Code session logs into readable transcripts",
	Long: `Extract Claude Code conversation logs and render them as Markdown transcripts.

Sub-agent conversations are inlined as quoted blocks at the point where the
main conversation spawned them. Raw logs can be copied out of ~/.claude and
Chrome IndexedDB stores can be dumped to JSON.

Quick Start:
  crdbextract extract --output ./sessions     # Copy raw session logs
  crdbextract list ./sessions                 # List conversations
  crdbextract convert ./sessions ./markdown   # Render every conversation
  crdbextract show ./sessions 3f2a            # Preview one conversation`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --config, or the default config file when the flag is unset
func loadConfig() (*internal.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = internal.DefaultConfigPath()
		if err != nil {
			internal.LogDebug("No default config path: %v", err)
			path = ""
		}
	}
	return internal.LoadConfig(path)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/crdbextract/config.yaml)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
