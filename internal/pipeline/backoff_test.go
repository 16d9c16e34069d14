package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		current time.Duration
		want    time.Duration
	}{
		{200 * time.Millisecond, 400 * time.Millisecond},
		{2 * time.Second, 4 * time.Second},
		{4 * time.Second, 5 * time.Second},
		{5 * time.Second, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextBackoff(tt.current, maxBackoff), "from %s", tt.current)
	}
}

func TestSleepWithContext(t *testing.T) {
	assert.True(t, sleepWithContext(context.Background(), 0))
	assert.True(t, sleepWithContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepWithContext(ctx, time.Hour))
}
