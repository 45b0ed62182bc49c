package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var useCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Open a named memory store",
	Long: `Open the named memory store, creating it on first use. The name is
sanitized to a lowercase token; the canonical name is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runUse,
}

func init() {
	rootCmd.AddCommand(useCmd)
}

func runUse(cmd *cobra.Command, args []string) error {
	app, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	token, err := app.orch.Activate(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Using memory store %q (file: named-memory-%s.db)\n", token, token)
	return nil
}
