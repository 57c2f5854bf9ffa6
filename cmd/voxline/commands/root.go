package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxline/voxline/pkg/cli"
)

var (
	// Global flags
	cfgFile     string
	contextName string
	verbose     bool

	// Global configuration
	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "voxline",
	Short: "Live voice conversations with the Gemini Live API",
	Long: `voxline - talk to a streaming speech model from your terminal.

The chat command captures microphone audio, streams it to the model over
a duplex websocket, plays the synthesized replies and prints a
turn-structured transcript as the conversation unfolds.

Configuration is stored in ~/.voxline/config.yaml and supports multiple
contexts, similar to kubectl's context management. The GEMINI_API_KEY
environment variable is used when the active context has no key.

Examples:
  # Set up a context
  voxline config add-context personal --api-key YOUR_KEY --voice Kore
  voxline config use-context personal

  # Talk
  voxline chat

  # One-off with an environment key
  GEMINI_API_KEY=... voxline chat --model gemini-2.0-flash-live-001`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.voxline/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	globalConfig, err = cli.LoadConfigWithPath(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// getContext returns the context configuration to use.
func getContext() (*cli.Context, error) {
	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return globalConfig.ResolveContext(contextName)
}
