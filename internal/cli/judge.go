package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var judgeCmd = &cobra.Command{
	Use:   "judge <content>",
	Short: "Judge whether content is worth saving",
	Long: `Evaluate whether content would make a good long-term memory without
saving it: too short, too long, duplicate of an existing memory, or worthy.`,
	Args: cobra.ExactArgs(1),
	RunE: runJudge,
}

func init() {
	rootCmd.AddCommand(judgeCmd)
}

func runJudge(cmd *cobra.Command, args []string) error {
	app, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.activate(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), app.orch.JudgeWorthSaving(cmd.Context(), args[0]))
	return nil
}
