package outbox

import (
	"context"
	"log/slog"
	"time"

	"hearth/internal/platform/kafka/producer"
	"hearth/pkg/requestcontext"
)

const (
	defaultTopic        = "hearth.audit.events"
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
	defaultRetention    = 7 * 24 * time.Hour
	purgeInterval       = time.Hour
	drainTimeout        = 10 * time.Second
)

// Publisher is satisfied by *producer.Producer.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Worker polls the store and publishes pending records in order.
type Worker struct {
	store        Store
	publisher    Publisher
	topic        string
	batchSize    int
	pollInterval time.Duration
	retention    time.Duration
	metrics      *Metrics
	logger       *slog.Logger
}

type WorkerOption func(*Worker)

func WithTopic(topic string) WorkerOption {
	return func(w *Worker) { w.topic = topic }
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) { w.batchSize = n }
}

func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.pollInterval = d }
}

// WithRetention sets how long published records are kept.
func WithRetention(d time.Duration) WorkerOption {
	return func(w *Worker) { w.retention = d }
}

func WithMetrics(m *Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

func NewWorker(store Store, publisher Publisher, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:        store,
		publisher:    publisher,
		topic:        defaultTopic,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
		retention:    defaultRetention,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is done, then drains what is left with a short deadline.
func (w *Worker) Run(ctx context.Context) error {
	poll := time.NewTicker(w.pollInterval)
	defer poll.Stop()
	purge := time.NewTicker(purgeInterval)
	defer purge.Stop()

	w.logger.Info("outbox worker started", "topic", w.topic, "poll_interval", w.pollInterval)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case <-poll.C:
			_, _ = w.Poll(ctx)
		case <-purge.C:
			_, _ = w.Purge(ctx)
		}
	}
}

// Poll publishes one batch and returns how many records went out. A failed
// publish stops the batch so later records never overtake earlier ones.
func (w *Worker) Poll(ctx context.Context) (int, error) {
	records, err := w.store.FetchPending(ctx, w.batchSize)
	if err != nil {
		w.metrics.incFailure()
		w.logger.ErrorContext(ctx, "fetch outbox records failed", "error", err)
		return 0, err
	}

	published := 0
	for _, r := range records {
		start := time.Now()
		err := w.publisher.Produce(ctx, &producer.Message{
			Topic: w.topic,
			Key:   []byte(r.ID),
			Value: r.Payload,
			Headers: map[string]string{
				"action":        string(r.Action),
				"resource_kind": r.ResourceKind,
			},
		})
		if err != nil {
			w.metrics.incFailure()
			w.logger.ErrorContext(ctx, "publish audit entry failed", "audit_id", r.ID, "error", err)
			return published, err
		}
		if err := w.store.MarkPublished(ctx, r.ID, requestcontext.Now(ctx)); err != nil {
			// already on the topic; the next poll publishes it again
			w.metrics.incFailure()
			w.logger.ErrorContext(ctx, "mark outbox record failed", "audit_id", r.ID, "error", err)
			return published, err
		}
		w.metrics.observePublished(time.Since(start).Seconds())
		published++
	}

	if pending, err := w.store.CountPending(ctx); err == nil {
		w.metrics.setPending(pending)
	}
	return published, nil
}

// Purge removes records published before the retention window.
func (w *Worker) Purge(ctx context.Context) (int64, error) {
	n, err := w.store.DeletePublishedBefore(ctx, requestcontext.Now(ctx).Add(-w.retention))
	if err != nil {
		w.logger.ErrorContext(ctx, "purge outbox failed", "error", err)
		return 0, err
	}
	if n > 0 {
		w.metrics.addPurged(n)
		w.logger.InfoContext(ctx, "purged published outbox records", "count", n)
	}
	return n, nil
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	w.logger.Info("draining outbox worker")
	for ctx.Err() == nil {
		n, err := w.Poll(ctx)
		if err != nil || n == 0 {
			return
		}
	}
}
