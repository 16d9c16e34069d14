package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/observability"
	"github.com/couchcryptid/weather-explorer/internal/weather"
)

// BatchExtractor reads up to batchSize messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]Message, error)
}

// Transformer converts a message into an observation.
type Transformer interface {
	Transform(ctx context.Context, msg Message) (weather.Observation, error)
}

// BatchLoader appends observations to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, obs []weather.Observation) error
}

// LoaderFunc adapts a function to BatchLoader.
type LoaderFunc func(ctx context.Context, obs []weather.Observation) error

func (f LoaderFunc) LoadBatch(ctx context.Context, obs []weather.Observation) error {
	return f(ctx, obs)
}

// DeadLetterer receives messages that failed to transform.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, msg Message, cause error) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	dlq         DeadLetterer
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
}

// New creates a Pipeline with the given stages and observability. dlq may be
// nil, in which case invalid messages are only logged.
func New(e BatchExtractor, t Transformer, l BatchLoader, dlq DeadLetterer, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		dlq:         dlq,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err, "fetched", len(batch))
		// Messages fetched before the failure are still processed; their
		// offsets are uncommitted and would otherwise be skipped by later commits.
		if len(batch) > 0 {
			p.metrics.MessagesConsumed.Add(float64(len(batch)))
			p.metrics.BatchSize.Observe(float64(len(batch)))
			if !p.transformAndLoad(ctx, batch, backoff) {
				return false
			}
		}
		return p.backoffOrStop(ctx, backoff)
	}

	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	*backoff = initialBackoff

	return p.transformAndLoad(ctx, batch, backoff)
}

// transformAndLoad transforms each message, dead-letters the failures, loads
// the successes and commits offsets. A failed load retries the same
// observations until it succeeds or ctx ends, so nothing is committed unloaded.
func (p *Pipeline) transformAndLoad(ctx context.Context, batch []Message, backoff *time.Duration) bool {
	obs := make([]weather.Observation, 0, len(batch))
	loaded := make([]Message, 0, len(batch))

	for _, msg := range batch {
		o, err := p.transformer.Transform(ctx, msg)
		if err != nil {
			p.logger.Warn("transform failed, skipping message",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.deadLetter(ctx, msg, err)
			p.commitOffset(ctx, msg)
			continue
		}
		obs = append(obs, o)
		loaded = append(loaded, msg)
	}

	if len(obs) == 0 {
		return true
	}

	for {
		err := p.loader.LoadBatch(ctx, obs)
		if err == nil {
			break
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(obs))
		if !p.backoffOrStop(ctx, backoff) {
			return false
		}
	}
	*backoff = initialBackoff

	p.metrics.ObservationsLoaded.Add(float64(len(obs)))

	for _, msg := range loaded {
		p.commitOffset(ctx, msg)
	}
	return true
}

func (p *Pipeline) deadLetter(ctx context.Context, msg Message, cause error) {
	if p.dlq == nil {
		return
	}
	if err := p.dlq.DeadLetter(ctx, msg, cause); err != nil {
		p.logger.Error("dead-letter publish failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		return
	}
	p.metrics.DeadLettered.Inc()
}

// backoffOrStop sleeps with the current backoff and advances it. Returns false
// if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, msg Message) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
