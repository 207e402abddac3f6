package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"emailscore/internal/bulk/models"
)

// DefaultTimeout is the ceiling on a single list run.
const DefaultTimeout = 5 * time.Minute

// hookTimeout bounds the failure hook, which runs after the job ctx may be gone.
const hookTimeout = 30 * time.Second

// Runner executes a task and invokes the matching completion hook.
type Runner struct {
	job     *Job
	timeout time.Duration
	logger  *slog.Logger
}

type RunnerOption func(*Runner)

func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRunner(job *Job, opts ...RunnerOption) (*Runner, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}
	r := &Runner{job: job, timeout: DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Execute runs the task under the duration ceiling. Exceeding it fails the
// list. A repeat delivery for a finished list runs no hooks.
func (r *Runner) Execute(ctx context.Context, task models.Task) error {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.InfoContext(ctx, "bulk job started",
		"list_id", task.ListID,
		"workspace_id", task.WorkspaceID,
		"size", len(task.Data),
	)
	summary, err := r.job.Run(runCtx, task)
	if errors.Is(err, ErrListFinished) {
		r.logger.InfoContext(ctx, "bulk job skipped, list already finished", "list_id", task.ListID)
		return nil
	}
	if err != nil {
		hookCtx, hookCancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
		defer hookCancel()
		r.job.OnFailure(hookCtx, task, err)
		return err
	}

	r.logger.InfoContext(ctx, "bulk job completed",
		"list_id", task.ListID,
		"deliverable", summary.Deliverable,
		"risky", summary.Risky,
		"undeliverable", summary.Undeliverable,
		"unknown", summary.Unknown,
	)
	r.job.OnSuccess(ctx, task, summary)
	return nil
}
