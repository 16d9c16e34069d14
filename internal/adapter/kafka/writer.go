package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-explorer/internal/config"
	"github.com/couchcryptid/weather-explorer/internal/pipeline"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys attached to dead-lettered messages.
const (
	HeaderError           = "dlq_error"
	HeaderSourceTopic     = "dlq_source_topic"
	HeaderSourcePartition = "dlq_source_partition"
	HeaderSourceOffset    = "dlq_source_offset"
	HeaderFailedAt        = "dlq_failed_at"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// DeadLetterWriter republishes messages that failed validation to the
// dead-letter topic. It implements pipeline.DeadLetterer.
type DeadLetterWriter struct {
	writer messageWriter
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewDeadLetterWriter creates a producer for the configured DLQ topic.
func NewDeadLetterWriter(cfg *config.Config, logger *slog.Logger) *DeadLetterWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaDLQTopic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &DeadLetterWriter{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

// DeadLetter publishes msg unchanged with headers describing the failure.
func (w *DeadLetterWriter) DeadLetter(ctx context.Context, msg pipeline.Message, cause error) error {
	out := deadLetterMessage(msg, cause, w.clock.Now())
	if err := w.writer.WriteMessages(ctx, out); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	w.logger.Debug("message dead-lettered",
		"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	return nil
}

func (w *DeadLetterWriter) Close() error {
	return w.writer.Close()
}

// deadLetterMessage copies the original key, value and headers and appends
// the failure headers.
func deadLetterMessage(msg pipeline.Message, cause error, failedAt time.Time) kafkago.Message {
	headers := make([]kafkago.Header, 0, len(msg.Headers)+5)
	for k, v := range msg.Headers {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	headers = append(headers,
		kafkago.Header{Key: HeaderError, Value: []byte(cause.Error())},
		kafkago.Header{Key: HeaderSourceTopic, Value: []byte(msg.Topic)},
		kafkago.Header{Key: HeaderSourcePartition, Value: []byte(strconv.Itoa(msg.Partition))},
		kafkago.Header{Key: HeaderSourceOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafkago.Header{Key: HeaderFailedAt, Value: []byte(failedAt.UTC().Format(time.RFC3339))},
	)
	return kafkago.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
}
