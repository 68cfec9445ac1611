package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"easel/internal/config"
	"easel/internal/engine"
	"easel/internal/jobrun"
	"easel/internal/logging"
	"easel/internal/runlog"
	"easel/internal/transcode"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		formatFlag  string
		qualityFlag int
		timeoutFlag int
		outputDir   string
		jsonOut     bool
		noSave      bool
	)

	cmd := &cobra.Command{
		Use:   "run <workflow.json>",
		Short: "Submit a workflow and collect its artifacts",
		Long: `Submit a workflow graph to the engine, wait for it to finish, and download
every produced artifact in the configured output format. Pass "-" to read the
workflow from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			workflowJSON, err := readWorkflow(cmd, args[0])
			if err != nil {
				return err
			}

			format, err := resolveFormat(cfg, formatFlag, qualityFlag)
			if err != nil {
				return err
			}

			timeout := cfg.JobTimeout()
			if timeoutFlag > 0 {
				timeout = time.Duration(timeoutFlag) * time.Minute
			}

			saveDir := cfg.Output.Dir
			if outputDir != "" {
				if saveDir, err = config.ExpandPath(outputDir); err != nil {
					return fmt.Errorf("resolve output dir: %w", err)
				}
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			client, err := engine.New(cfg.Engine.URL, cfg.Engine.APIKey,
				engine.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}))
			if err != nil {
				return err
			}

			runner, err := jobrun.NewRunner(client,
				jobrun.WithLogger(logger),
				jobrun.WithPollInterval(cfg.PollInterval()),
				jobrun.WithStartupGrace(cfg.StartupGrace()),
			)
			if err != nil {
				return err
			}

			submitted := time.Now()
			result, runErr := runner.Run(cmd.Context(), workflowJSON, format, timeout)
			finished := time.Now()

			var records []jobrun.OutputRecord
			promptID := ""
			if result != nil {
				records = result.Records
				promptID = result.PromptID
			}

			if cfg.RunLog.Enabled {
				if err := recordRun(cmd, cfg, format, promptID, submitted, finished, records, runErr); err != nil {
					logger.Warn("failed to record run history", "error", err)
				}
			}
			if runErr != nil {
				return runErr
			}

			if !noSave {
				if err := saveArtifacts(saveDir, records); err != nil {
					return err
				}
			}

			if jsonOut {
				return writeJSON(cmd, records)
			}
			renderRunResult(cmd, records, saveDir, noSave)
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format: jpeg, png, or wav (default from config)")
	cmd.Flags().IntVarP(&qualityFlag, "quality", "q", 0, "JPEG re-encode quality 1-100 (default from config)")
	cmd.Flags().IntVarP(&timeoutFlag, "timeout", "t", 0, "Minutes to wait for completion (default from config)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory to save artifacts into (default from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the output records as JSON")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not write artifacts to disk")
	return cmd
}

func readWorkflow(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read workflow from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return data, nil
}

func resolveFormat(cfg *config.Config, formatFlag string, qualityFlag int) (transcode.Format, error) {
	name := cfg.Output.Format
	if formatFlag != "" {
		name = formatFlag
	}
	quality := cfg.Output.JPEGQuality
	if qualityFlag != 0 {
		quality = qualityFlag
	}
	return transcode.ParseFormat(name, quality)
}

func recordRun(cmd *cobra.Command, cfg *config.Config, format transcode.Format, promptID string,
	submitted, finished time.Time, records []jobrun.OutputRecord, runErr error) error {

	store, err := runlog.Open(cfg.RunLog.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	run := runlog.Run{
		PromptID:      promptID,
		SubmittedAt:   submitted,
		FinishedAt:    finished,
		Outcome:       outcomeFor(runErr),
		OutputFormat:  format.String(),
		ArtifactCount: len(records),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	artifacts := make([]runlog.ArtifactOutcome, 0, len(records))
	for i, record := range records {
		if !record.OK() {
			run.FailureCount++
		}
		artifacts = append(artifacts, runlog.ArtifactOutcome{
			Position:  i,
			Filename:  record.Filename,
			MimeType:  record.MimeType,
			SizeLabel: record.Size,
			Error:     record.Error,
		})
	}

	_, err = store.RecordRun(cmd.Context(), run, artifacts)
	return err
}

func outcomeFor(runErr error) runlog.Outcome {
	switch {
	case runErr == nil:
		return runlog.OutcomeCompleted
	case errors.Is(runErr, jobrun.ErrTimeout):
		return runlog.OutcomeTimedOut
	default:
		return runlog.OutcomeFailed
	}
}

// saveArtifacts writes each successful record's payload to dir. Filenames are
// flattened to their base name; an index prefix keeps duplicates apart.
func saveArtifacts(dir string, records []jobrun.OutputRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", dir, err)
	}

	seen := map[string]int{}
	for _, record := range records {
		if !record.OK() {
			continue
		}
		payload, err := record.Payload()
		if err != nil {
			return fmt.Errorf("decode payload for %s: %w", record.Filename, err)
		}

		name := filepath.Base(record.Filename)
		if count := seen[name]; count > 0 {
			name = fmt.Sprintf("%d-%s", count, name)
		}
		seen[filepath.Base(record.Filename)]++

		if err := os.WriteFile(filepath.Join(dir, name), payload, 0o644); err != nil {
			return fmt.Errorf("write artifact %s: %w", name, err)
		}
	}
	return nil
}
