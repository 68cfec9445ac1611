package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"easel/internal/jobrun"
)

// renderRunResult prints a per-artifact summary table after a run.
func renderRunResult(cmd *cobra.Command, records []jobrun.OutputRecord, saveDir string, noSave bool) {
	out := cmd.OutOrStdout()

	if len(records) == 0 {
		fmt.Fprintln(out, "Workflow completed with no downloadable artifacts.")
		return
	}

	headers := []string{"FILE", "TYPE", "SIZE", "STATUS"}
	rows := make([][]string, 0, len(records))
	failed := 0
	for _, record := range records {
		status := "ok"
		if !record.OK() {
			status = record.Error
			failed++
		}
		rows = append(rows, []string{record.Filename, record.MimeType, record.Size, status})
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))

	switch {
	case failed == 0 && noSave:
		fmt.Fprintf(out, "%d artifact(s) fetched.\n", len(records))
	case failed == 0:
		fmt.Fprintf(out, "%d artifact(s) saved to %s\n", len(records), saveDir)
	default:
		fmt.Fprintf(out, "%d of %d artifact(s) failed; the rest %s\n",
			failed, len(records), savedNote(noSave, saveDir))
	}
}

func savedNote(noSave bool, saveDir string) string {
	if noSave {
		return "were fetched"
	}
	return "were saved to " + saveDir
}
