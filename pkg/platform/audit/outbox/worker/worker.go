package worker

import (
	"context"
	"log/slog"
	"time"

	"audittrail/internal/platform/kafka/producer"
	"audittrail/pkg/platform/audit/outbox"
	"audittrail/pkg/platform/audit/outbox/metrics"
	"audittrail/pkg/platform/circuit"
	"audittrail/pkg/platform/tx"
)

// DefaultTopic receives exported audit records unless WithTopic overrides it.
const DefaultTopic = "audittrail.audit.records"

// Publisher delivers a message synchronously. Satisfied by *producer.Producer.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Worker polls the outbox and exports audit records to Kafka.
type Worker struct {
	store        outbox.Store
	publisher    Publisher
	topic        string
	batchSize    int
	pollInterval time.Duration
	retention    time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
	runner       tx.Runner
	breaker      *circuit.Breaker
}

// Option configures the Worker.
type Option func(*Worker)

func WithTopic(topic string) Option {
	return func(w *Worker) {
		if topic != "" {
			w.topic = topic
		}
	}
}

// WithBatchSize sets the maximum number of entries to fetch per poll.
func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithPollInterval sets the interval between polls.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithRetention enables purging of exported entries older than d.
func WithRetention(d time.Duration) Option {
	return func(w *Worker) {
		w.retention = d
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithRunner runs each batch in one transaction so the row locks taken by
// FetchUnprocessed hold until the batch is marked. Without it every store
// call runs on its own.
func WithRunner(r tx.Runner) Option {
	return func(w *Worker) {
		w.runner = r
	}
}

// WithBreaker backs off while the broker keeps failing: once the circuit
// opens, each poll publishes a single probe entry until enough probes succeed.
func WithBreaker(b *circuit.Breaker) Option {
	return func(w *Worker) {
		w.breaker = b
	}
}

func New(store outbox.Store, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		store:        store,
		publisher:    publisher,
		topic:        DefaultTopic,
		batchSize:    100,
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled, then drains what is left with a bounded
// timeout. It always returns nil so it can sit in an errgroup next to the server.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	if _, err := w.ProcessBatch(ctx); err != nil {
		w.logError(ctx, "failed to fetch outbox entries", "error", err)
	}
	if w.retention > 0 {
		w.purge(ctx)
	}
	if w.metrics != nil {
		if count, err := w.store.CountPending(ctx); err == nil {
			w.metrics.SetPendingDepth(count)
		}
	}
}

// ProcessBatch publishes up to one batch of pending entries and marks each
// published entry processed. Entries that fail to publish stay pending and are
// retried on a later poll. It returns the number of entries published.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	if w.runner == nil {
		return w.processBatch(ctx)
	}
	var published int
	err := w.runner.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		published, err = w.processBatch(txCtx)
		return err
	})
	return published, err
}

func (w *Worker) processBatch(ctx context.Context) (int, error) {
	limit := w.batchSize
	if w.breaker != nil {
		limit = w.breaker.Budget(limit)
	}
	entries, err := w.store.FetchUnprocessed(ctx, limit)
	if err != nil {
		if w.metrics != nil {
			w.metrics.IncPublishFailures()
		}
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if w.metrics != nil {
		w.metrics.ObserveBatchSize(len(entries))
	}

	published := 0
	for _, entry := range entries {
		err := w.publish(ctx, entry)
		if w.breaker != nil {
			w.trip(ctx, err)
		}
		if err != nil {
			w.logError(ctx, "failed to publish outbox entry",
				"id", entry.ID,
				"auditable_type", entry.AggregateType,
				"auditable_id", entry.AggregateID,
				"error", err,
			)
			if w.metrics != nil {
				w.metrics.IncPublishFailures()
			}
			// Later entries may belong to the same entity; they wait so
			// the next batch exports them after this one.
			break
		}

		// A published but unmarked entry is exported again; consumers dedupe on the record key.
		if err := w.store.MarkProcessed(ctx, entry.ID, time.Now()); err != nil {
			w.logError(ctx, "failed to mark outbox entry processed", "id", entry.ID, "error", err)
			continue
		}

		published++
		if w.metrics != nil {
			w.metrics.IncPublished()
		}
	}
	return published, nil
}

// trip records a publish outcome on the breaker and logs state changes.
func (w *Worker) trip(ctx context.Context, err error) {
	change := w.breaker.Record(err)
	switch {
	case change.Opened:
		w.logError(ctx, "audit export circuit opened", "breaker", w.breaker.Name(), "error", err)
	case change.Closed && w.logger != nil:
		w.logger.InfoContext(ctx, "audit export circuit closed", "breaker", w.breaker.Name())
	}
}

func (w *Worker) publish(ctx context.Context, entry *outbox.Entry) error {
	start := time.Now()

	msg := &producer.Message{
		Topic: w.topic,
		Key:   []byte(entry.AggregateType + ":" + entry.AggregateID),
		Value: entry.Payload,
		Headers: map[string]string{
			"outbox_id":      entry.ID.String(),
			"auditable_type": entry.AggregateType,
			"auditable_id":   entry.AggregateID,
			"event_type":     entry.EventType,
		},
	}
	if err := w.publisher.Produce(ctx, msg); err != nil {
		return err
	}

	if w.metrics != nil {
		w.metrics.ObservePublishDuration(time.Since(start).Seconds())
	}
	return nil
}

func (w *Worker) purge(ctx context.Context) {
	deleted, err := w.store.DeleteProcessedBefore(ctx, time.Now().Add(-w.retention))
	if err != nil {
		w.logError(ctx, "failed to purge exported outbox entries", "error", err)
		return
	}
	if w.metrics != nil && deleted > 0 {
		w.metrics.AddPurged(deleted)
	}
}

func (w *Worker) drain() {
	if w.logger != nil {
		w.logger.Info("draining outbox worker")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for ctx.Err() == nil {
		published, err := w.ProcessBatch(ctx)
		if err != nil {
			w.logError(ctx, "failed to fetch entries during drain", "error", err)
			return
		}
		if published == 0 {
			return
		}
	}
}

func (w *Worker) logError(ctx context.Context, msg string, args ...any) {
	if w.logger != nil {
		w.logger.ErrorContext(ctx, msg, args...)
	}
}
