package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"easel/internal/runlog"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent workflow runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.RunLog.Enabled {
				return fmt.Errorf("run history is disabled (set run_log.enabled = true)")
			}

			store, err := runlog.Open(cfg.RunLog.Dir)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, runs)
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			headers := []string{"SUBMITTED", "PROMPT ID", "OUTCOME", "FORMAT", "ARTIFACTS", "FAILED"}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
					run.PromptID,
					string(run.Outcome),
					run.OutputFormat,
					fmt.Sprintf("%d", run.ArtifactCount),
					fmt.Sprintf("%d", run.FailureCount),
				})
			}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit runs as JSON")
	return cmd
}
