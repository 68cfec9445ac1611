package jobrun

import (
	"context"
	"fmt"
	"time"

	"easel/internal/engine"
)

// poll queries the job history at a fixed cadence until the engine reports a
// completed status or the tick budget runs out. Transient conditions (job
// missing from history, record without a status, not-yet-completed status,
// failed history request) all continue the loop; the budget is the only exit
// besides completion and context cancellation.
func (r *Runner) poll(ctx context.Context, promptID string, timeout time.Duration) (*engine.HistoryEntry, error) {
	budget := int(timeout / r.pollInterval)
	if budget < 1 {
		budget = 1
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for tick := 1; tick <= budget; tick++ {
		select {
		case <-ctx.Done():
			return nil, wrap(ErrTimeout, "poll", ctx.Err())
		case <-ticker.C:
		}

		entry, found, err := r.client.History(ctx, promptID)
		if err != nil {
			r.logger.Warn("history request failed", "prompt_id", promptID, "tick", tick, "error", err)
			continue
		}
		if !found {
			r.logger.Debug("job not in history yet", "prompt_id", promptID, "tick", tick)
			continue
		}
		if entry.Status == nil {
			r.logger.Debug("job status not populated yet", "prompt_id", promptID, "tick", tick)
			continue
		}
		if !entry.Status.Completed {
			r.logger.Debug("job still running", "prompt_id", promptID, "tick", tick)
			continue
		}
		return entry, nil
	}

	elapsed := time.Duration(budget) * r.pollInterval
	return nil, wrap(ErrTimeout, "poll",
		fmt.Errorf("no terminal status after %d checks over %s (%.0f minutes)", budget, elapsed, elapsed.Minutes()))
}
