package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"emailscore/internal/bulk/models"
	"emailscore/pkg/requestcontext"
)

// InlineDispatcher runs tasks on a goroutine in this process.
type InlineDispatcher struct {
	runner *Runner
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewInlineDispatcher(runner *Runner, logger *slog.Logger) (*InlineDispatcher, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InlineDispatcher{runner: runner, logger: logger}, nil
}

func (d *InlineDispatcher) Name() string { return "inline" }

// Dispatch detaches the task from the caller's cancellation; the request that
// submitted it finishes before the job does.
func (d *InlineDispatcher) Dispatch(ctx context.Context, task models.Task) error {
	runCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.runner.Execute(runCtx, task); err != nil {
			d.logger.WarnContext(runCtx, "inline bulk job ended with error",
				"list_id", task.ListID,
				"error", err,
			)
		}
	}()
	return nil
}

// Wait blocks until every dispatched task has finished.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}

// Publisher is the subset of the Kafka producer used for dispatch.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// KafkaDispatcher publishes tasks for a Worker to pick up.
type KafkaDispatcher struct {
	publisher Publisher
	topic     string
}

func NewKafkaDispatcher(publisher Publisher, topic string) (*KafkaDispatcher, error) {
	if publisher == nil {
		return nil, errors.New("kafka publisher is required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	return &KafkaDispatcher{publisher: publisher, topic: topic}, nil
}

func (d *KafkaDispatcher) Name() string { return "kafka" }

func (d *KafkaDispatcher) Dispatch(ctx context.Context, task models.Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode bulk task: %w", err)
	}
	headers := map[string]string{}
	if id := requestcontext.RequestID(ctx); id != "" {
		headers["request_id"] = id
	}
	if err := d.publisher.Publish(ctx, d.topic, []byte(task.ListID.String()), body, headers); err != nil {
		return fmt.Errorf("publish bulk task: %w", err)
	}
	return nil
}
