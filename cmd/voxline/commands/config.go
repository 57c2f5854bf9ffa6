package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voxline/voxline/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to manage multiple API configurations, similar to
kubectl's context management. Configuration is stored in
~/.voxline/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name.

Example:
  voxline config add-context personal --api-key YOUR_KEY --voice Kore`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		apiKey, err := cmd.Flags().GetString("api-key")
		if err != nil {
			return fmt.Errorf("failed to read 'api-key' flag: %w", err)
		}
		model, err := cmd.Flags().GetString("model")
		if err != nil {
			return fmt.Errorf("failed to read 'model' flag: %w", err)
		}
		voice, err := cmd.Flags().GetString("voice")
		if err != nil {
			return fmt.Errorf("failed to read 'voice' flag: %w", err)
		}
		system, err := cmd.Flags().GetString("system")
		if err != nil {
			return fmt.Errorf("failed to read 'system' flag: %w", err)
		}
		baseURL, err := cmd.Flags().GetString("base-url")
		if err != nil {
			return fmt.Errorf("failed to read 'base-url' flag: %w", err)
		}

		if err := globalConfig.AddContext(name, &cli.Context{
			APIKey:       apiKey,
			Model:        model,
			Voice:        voice,
			SystemPrompt: system,
			BaseURL:      baseURL,
		}); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := globalConfig.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := globalConfig.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var configGetContextsCmd = &cobra.Command{
	Use:   "get-contexts",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tMODEL\tVOICE\tAPI KEY")
		for _, name := range globalConfig.ListContexts() {
			ctx := globalConfig.Contexts[name]
			marker := ""
			if name == globalConfig.CurrentContext {
				marker = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				marker, name, ctx.Model, ctx.Voice, cli.MaskAPIKey(ctx.APIKey))
		}
		return w.Flush()
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view [name]",
	Short: "Show a context (API key masked)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		ctx, err := globalConfig.ResolveContext(name)
		if err != nil {
			return err
		}
		masked := *ctx
		masked.APIKey = cli.MaskAPIKey(ctx.APIKey)
		return cli.Output(&masked, cli.OutputOptions{Format: cli.FormatYAML})
	},
}

func init() {
	configAddContextCmd.Flags().String("api-key", "", "API key (falls back to $GEMINI_API_KEY at run time)")
	configAddContextCmd.Flags().String("model", "", "default model identifier")
	configAddContextCmd.Flags().String("voice", "", "default prebuilt voice")
	configAddContextCmd.Flags().String("system", "", "default system instruction")
	configAddContextCmd.Flags().String("base-url", "", "websocket endpoint override")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
