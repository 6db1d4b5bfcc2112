package tracer_client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracerWithoutProvider(t *testing.T) {
	assert.Nil(t, Provider())

	_, span := Tracer("sensor_watch").Start(context.Background(), "noop")
	span.End()

	assert.NoError(t, Shutdown(context.Background()))
}
