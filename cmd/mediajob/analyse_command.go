package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediajob/internal/job"
)

func newAnalyseCommand(ctx *commandContext) *cobra.Command {
	var sha string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "analyse <token> <name> [args...]",
		Short: "Run an analyser or reader (size, name, mime_type, format...) on a job",
		Long: fmt.Sprintf("Run a registered analyser or one of the built-in readers (%v) against the job's output.",
			job.Readers()),
		Aliases: []string{"analyze"},
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := loadSignedJob(ctx, args[0], sha)
			if err != nil {
				return err
			}
			defer j.Close()
			callArgs := make([]any, 0, len(args)-2)
			for _, arg := range args[2:] {
				callArgs = append(callArgs, arg)
			}
			value, err := j.Call(cmd.Context(), args[1], callArgs...)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, map[string]any{"name": args[1], "value": value})
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
	cmd.Flags().StringVar(&sha, "sha", "", "Token signature (required when a secret is configured)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the result as JSON")
	return cmd
}
