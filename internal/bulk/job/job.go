// Package job runs bulk verification lists: chunked scoring, batch
// persistence and completion hooks, plus the dispatchers that hand lists to
// a runner.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"emailscore/internal/bulk/metrics"
	"emailscore/internal/bulk/models"
	"emailscore/internal/notify"
	resolver "emailscore/internal/resolver/models"
	scoring "emailscore/internal/scoring/models"
	"emailscore/pkg/domain"
	"emailscore/pkg/email"
	strs "emailscore/pkg/platform/strings"
	"emailscore/pkg/requestcontext"
)

const DefaultChunkSize = 250

// ErrListFinished is returned by Run for a task whose list already reached
// a terminal status, as happens when a queued task is delivered twice.
var ErrListFinished = errors.New("list already finished")

type Store interface {
	FindList(ctx context.Context, workspaceID domain.WorkspaceID, id domain.ListID) (*models.List, error)
	UpdateList(ctx context.Context, list *models.List) error
	InsertRecords(ctx context.Context, records []models.Record) error
	DeleteRecords(ctx context.Context, listID domain.ListID) error
}

type Verifier interface {
	VerifyPrefetched(ctx context.Context, address string, prefetched map[string]resolver.DomainInfo) (scoring.EmailRecord, error)
}

// DomainPrefetcher batch-reads fresh cache entries for a chunk.
type DomainPrefetcher interface {
	LookupMany(ctx context.Context, domains []string) map[string]resolver.DomainInfo
}

type CreditDeductor interface {
	Deduct(ctx context.Context, workspaceID domain.WorkspaceID, amount int64) (int64, error)
}

type UserDirectory interface {
	UserEmail(ctx context.Context, userID domain.UserID) (string, error)
}

type Job struct {
	store      Store
	verifier   Verifier
	prefetcher DomainPrefetcher
	credits    CreditDeductor
	users      UserDirectory
	sender     notify.Sender
	chunkSize  int
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option func(*Job)

func WithChunkSize(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.chunkSize = n
		}
	}
}

// WithNotifier enables the completion email sent by OnSuccess.
func WithNotifier(users UserDirectory, sender notify.Sender) Option {
	return func(j *Job) {
		j.users = users
		j.sender = sender
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(j *Job) {
		if logger != nil {
			j.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(j *Job) { j.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(j *Job) {
		if t != nil {
			j.tracer = t
		}
	}
}

func New(store Store, verifier Verifier, prefetcher DomainPrefetcher, credits CreditDeductor, opts ...Option) (*Job, error) {
	if store == nil {
		return nil, errors.New("list store is required")
	}
	if verifier == nil {
		return nil, errors.New("verifier is required")
	}
	if prefetcher == nil {
		return nil, errors.New("domain prefetcher is required")
	}
	if credits == nil {
		return nil, errors.New("credit ledger is required")
	}
	j := &Job{
		store:      store,
		verifier:   verifier,
		prefetcher: prefetcher,
		credits:    credits,
		chunkSize:  DefaultChunkSize,
		logger:     slog.Default(),
		tracer:     otel.Tracer("emailscore/bulk"),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Run verifies every row of the task and marks the list completed. Chunks
// run one after another; rows inside a chunk run concurrently. A chunk that
// cannot be stored is skipped. Credit and final-status failures are fatal,
// as is ctx ending between chunks. A list that is already terminal is left
// untouched and ErrListFinished is returned; records left by an interrupted
// earlier attempt are cleared before scoring starts.
func (j *Job) Run(ctx context.Context, task models.Task) (models.Summary, error) {
	ctx, span := j.tracer.Start(ctx, "bulk.Job.Run",
		trace.WithAttributes(
			attribute.String("list_id", task.ListID.String()),
			attribute.Int("size", len(task.Data)),
		))
	defer span.End()

	start := time.Now()
	defer func() { j.metrics.ObserveJobDuration(time.Since(start)) }()

	summary, err := j.run(ctx, task)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}
	return summary, nil
}

func (j *Job) run(ctx context.Context, task models.Task) (models.Summary, error) {
	var summary models.Summary

	current, err := j.store.FindList(ctx, task.WorkspaceID, task.ListID)
	if err != nil {
		return summary, fmt.Errorf("load list: %w", err)
	}
	if current.Status.IsTerminal() {
		return summary, fmt.Errorf("list %s is %s: %w", task.ListID, current.Status, ErrListFinished)
	}

	if !task.CreditsReserved {
		if _, err := j.credits.Deduct(ctx, task.WorkspaceID, int64(len(task.Data))); err != nil {
			return summary, fmt.Errorf("deduct credits: %w", err)
		}
	}

	if err := j.store.DeleteRecords(ctx, task.ListID); err != nil {
		return summary, fmt.Errorf("clear previous records: %w", err)
	}

	// One clock for the whole run keeps the cache cutoff stable across chunks.
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))

	for start := 0; start < len(task.Data); start += j.chunkSize {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("job interrupted after %d records: %w", start, err)
		}
		end := min(start+j.chunkSize, len(task.Data))

		records, counts := j.processChunk(ctx, task, task.Data[start:end])
		summary.Merge(counts)

		if err := j.store.InsertRecords(ctx, records); err != nil {
			j.metrics.IncrementChunkFailure()
			j.logger.ErrorContext(ctx, "failed to store chunk, skipping",
				"list_id", task.ListID,
				"chunk_start", start,
				"chunk_size", end-start,
				"error", err,
			)
			continue
		}
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("job interrupted: %w", err)
	}

	list, err := j.store.FindList(ctx, task.WorkspaceID, task.ListID)
	if err != nil {
		return summary, fmt.Errorf("load list: %w", err)
	}
	if err := list.Complete(summary, requestcontext.Now(ctx)); err != nil {
		return summary, err
	}
	if err := j.store.UpdateList(ctx, list); err != nil {
		return summary, fmt.Errorf("complete list: %w", err)
	}

	j.metrics.IncrementFinished(models.ListStatusCompleted.String())
	j.metrics.AddRecords(scoring.StatusDeliverable.String(), summary.Deliverable)
	j.metrics.AddRecords(scoring.StatusRisky.String(), summary.Risky)
	j.metrics.AddRecords(scoring.StatusUndeliverable.String(), summary.Undeliverable)
	j.metrics.AddRecords("unknown", summary.Unknown)
	return summary, nil
}

// processChunk scores rows concurrently. Rows whose verification was cut
// short are counted as unknown and not stored.
func (j *Job) processChunk(ctx context.Context, task models.Task, rows []map[string]any) ([]models.Record, models.Summary) {
	addresses := make([]string, len(rows))
	domains := make([]string, len(rows))
	for i, row := range rows {
		addresses[i] = addressOf(row, task.EmailColumn)
		domains[i] = email.Domain(addresses[i])
	}
	prefetched := j.prefetcher.LookupMany(ctx, strs.DedupeAndTrimLower(domains))

	results := make([]*scoring.EmailRecord, len(rows))
	var g errgroup.Group
	for i := range rows {
		g.Go(func() error {
			rec, err := j.verifier.VerifyPrefetched(ctx, addresses[i], prefetched)
			if err != nil {
				return nil
			}
			results[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	var counts models.Summary
	records := make([]models.Record, 0, len(rows))
	for i, rec := range results {
		if rec == nil {
			counts.Unknown++
			continue
		}
		counts.Add(rec.Status)
		records = append(records, models.Record{
			EmailRecord:  *rec,
			ListID:       task.ListID,
			WorkspaceID:  task.WorkspaceID,
			CustomFields: rows[i],
		})
	}
	return records, counts
}

// OnSuccess emails the submitting user a summary. Failures are logged only.
func (j *Job) OnSuccess(ctx context.Context, task models.Task, summary models.Summary) {
	if j.users == nil || j.sender == nil || task.UserID.IsNil() {
		return
	}
	to, err := j.users.UserEmail(ctx, task.UserID)
	if err != nil {
		j.logger.WarnContext(ctx, "no notification address for list owner",
			"list_id", task.ListID,
			"user_id", task.UserID,
			"error", err,
		)
		return
	}
	if err := j.sender.Send(ctx, summaryMessage(to, task, summary)); err != nil {
		j.logger.WarnContext(ctx, "failed to send list summary",
			"list_id", task.ListID,
			"error", err,
		)
	}
}

// OnFailure moves the list to error.
func (j *Job) OnFailure(ctx context.Context, task models.Task, cause error) {
	j.logger.ErrorContext(ctx, "bulk job failed",
		"list_id", task.ListID,
		"workspace_id", task.WorkspaceID,
		"error", cause,
	)
	j.metrics.IncrementFinished(models.ListStatusError.String())

	list, err := j.store.FindList(ctx, task.WorkspaceID, task.ListID)
	if err != nil {
		j.logger.ErrorContext(ctx, "failed to load list for failure", "list_id", task.ListID, "error", err)
		return
	}
	if err := list.Fail(requestcontext.Now(ctx)); err != nil {
		j.logger.WarnContext(ctx, "list already finished", "list_id", task.ListID, "status", list.Status)
		return
	}
	if err := j.store.UpdateList(ctx, list); err != nil {
		j.logger.ErrorContext(ctx, "failed to mark list as error", "list_id", task.ListID, "error", err)
	}
}

func addressOf(row map[string]any, column string) string {
	if v, ok := row[column].(string); ok {
		return v
	}
	return ""
}

func summaryMessage(to string, task models.Task, s models.Summary) notify.Message {
	return notify.Message{
		To:      to,
		Subject: "Your email list has been verified",
		Body: fmt.Sprintf("List %s finished verifying %d addresses.\n\n"+
			"Deliverable: %d\nRisky: %d\nUndeliverable: %d\nUnknown: %d\n",
			task.ListID, len(task.Data), s.Deliverable, s.Risky, s.Undeliverable, s.Unknown),
	}
}
