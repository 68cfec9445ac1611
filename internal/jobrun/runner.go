package jobrun

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"easel/internal/engine"
	"easel/internal/logging"
	"easel/internal/transcode"
)

const (
	defaultPollInterval = time.Second
	defaultStartupGrace = 5 * time.Second
)

// Runner executes one workflow job end to end.
type Runner struct {
	client       *engine.Client
	adapter      *transcode.Adapter
	logger       *slog.Logger
	pollInterval time.Duration
	startupGrace time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAdapter overrides the transcode adapter.
func WithAdapter(adapter *transcode.Adapter) Option {
	return func(r *Runner) {
		if adapter != nil {
			r.adapter = adapter
		}
	}
}

// WithPollInterval overrides the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithStartupGrace overrides the delay between submission and the first poll.
// The engine needs a moment to register a new job; polling immediately races
// its bookkeeping.
func WithStartupGrace(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.startupGrace = d
		}
	}
}

// NewRunner builds a runner around the given engine client.
func NewRunner(client *engine.Client, opts ...Option) (*Runner, error) {
	if client == nil {
		return nil, errors.New("jobrun requires an engine client")
	}
	runner := &Runner{
		client:       client,
		adapter:      transcode.NewAdapter(nil),
		logger:       logging.NewNop(),
		pollInterval: defaultPollInterval,
		startupGrace: defaultStartupGrace,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Result is the outcome of a completed run: the engine-assigned job id and
// one OutputRecord per downloadable artifact in enumeration order.
type Result struct {
	PromptID string
	Records  []OutputRecord
}

// Run submits workflowJSON, waits for completion within timeout, and fetches
// every downloadable artifact. A non-nil error wraps one of the sentinel
// stage markers; per-artifact failures are carried on the result's records
// instead.
func (r *Runner) Run(ctx context.Context, workflowJSON []byte, format transcode.Format, timeout time.Duration) (*Result, error) {
	if _, err := r.client.SystemStats(ctx); err != nil {
		return nil, wrap(ErrConnectivity, "", err)
	}

	workflow, err := engine.ParseWorkflow(workflowJSON)
	if err != nil {
		return nil, wrap(ErrSubmission, "", err)
	}

	promptID, err := r.client.SubmitWorkflow(ctx, workflow)
	if err != nil {
		return nil, wrap(ErrSubmission, "", err)
	}
	r.logger.Info("workflow submitted", "prompt_id", promptID, "nodes", len(workflow), "format", format.String())

	if err := sleepCtx(ctx, r.startupGrace); err != nil {
		return nil, wrap(ErrTimeout, "startup grace", err)
	}

	entry, err := r.poll(ctx, promptID, timeout)
	if err != nil {
		return nil, err
	}

	if entry.Status.StatusStr == "error" {
		return nil, wrap(ErrExecution, "engine reported error status for job "+promptID, nil)
	}
	if len(entry.Outputs) == 0 {
		return nil, wrap(ErrExecution, "workflow produced no outputs", nil)
	}

	refs := enumerateArtifacts(entry.Outputs)
	r.logger.Info("job completed", "prompt_id", promptID, "artifacts", len(refs))

	return &Result{PromptID: promptID, Records: r.fetchAll(ctx, refs, format)}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
