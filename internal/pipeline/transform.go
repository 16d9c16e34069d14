package pipeline

import (
	"context"

	"github.com/couchcryptid/weather-explorer/internal/weather"
)

// ObservationTransformer implements Transformer by decoding the message value
// as a JSON observation.
type ObservationTransformer struct{}

// NewTransformer creates an ObservationTransformer.
func NewTransformer() *ObservationTransformer {
	return &ObservationTransformer{}
}

func (t *ObservationTransformer) Transform(_ context.Context, msg Message) (weather.Observation, error) {
	return weather.ParseObservation(msg.Value)
}
