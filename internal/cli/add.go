package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addType string

var addCmd = &cobra.Command{
	Use:   "add <content>",
	Short: "Save a memory",
	Long:  `Save content to the selected memory store, bypassing the ingest gate.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addType, "type", "manual", "memory type tag")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	app, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.activate(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), app.orch.StoreAdd(cmd.Context(), args[0], addType))
	return nil
}
