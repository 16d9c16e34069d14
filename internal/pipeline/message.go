package pipeline

import (
	"context"
	"time"
)

// Message is an unprocessed record from the source topic.
type Message struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
