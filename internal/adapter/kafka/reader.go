package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/config"
	"github.com/couchcryptid/weather-explorer/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Reader consumes observation messages from the source topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        messageReader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaSourceTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, flushInterval: cfg.BatchFlushInterval, logger: logger}
}

// ExtractBatch fetches up to batchSize messages, returning early with what it
// has once the flush interval elapses. Offsets are not committed here; each
// message carries a Commit callback.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]pipeline.Message, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	batch := make([]pipeline.Message, 0, batchSize)
	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(fetchCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if len(batch) > 0 {
				r.logger.Warn("fetch failed, returning partial batch", "error", err, "size", len(batch))
				return batch, nil
			}
			return nil, err
		}
		batch = append(batch, r.mapMessage(msg))
	}
	if len(batch) > 0 {
		r.logger.Debug("batch extracted", "size", len(batch))
	}
	return batch, nil
}

// Close closes the underlying consumer.
func (r *Reader) Close() error {
	return r.reader.Close()
}

func (r *Reader) mapMessage(msg kafkago.Message) pipeline.Message {
	m := mapMessage(msg)
	m.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return m
}

// mapMessage converts a kafka-go message into a pipeline message without a
// commit callback.
func mapMessage(msg kafkago.Message) pipeline.Message {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return pipeline.Message{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
