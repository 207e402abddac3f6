package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"emailscore/internal/bulk/models"
	"emailscore/internal/platform/kafka"
	"emailscore/pkg/requestcontext"
)

// Worker consumes tasks published by KafkaDispatcher and runs them.
type Worker struct {
	runner *Runner
	logger *slog.Logger
}

func NewWorker(runner *Runner, logger *slog.Logger) (*Worker, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{runner: runner, logger: logger}, nil
}

// Handle implements kafka.Handler. A job failure is already recorded on the
// list, so only undecodable messages are reported back to the consumer.
func (w *Worker) Handle(ctx context.Context, msg *kafka.Message) error {
	var task models.Task
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		return fmt.Errorf("decode bulk task at offset %d: %w", msg.Offset, err)
	}
	if task.ListID.IsNil() || task.WorkspaceID.IsNil() {
		return fmt.Errorf("bulk task at offset %d has no list or workspace", msg.Offset)
	}
	if id := msg.Headers["request_id"]; id != "" {
		ctx = requestcontext.WithRequestID(ctx, id)
	}
	if err := w.runner.Execute(ctx, task); err != nil {
		w.logger.WarnContext(ctx, "bulk job from queue ended with error",
			"list_id", task.ListID,
			"error", err,
		)
	}
	return nil
}
