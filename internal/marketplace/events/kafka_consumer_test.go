package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestConsumerHandlerDefaultsToNoop(t *testing.T) {
	consumer := NewConsumer([]string{"localhost:9092"}, "test-group", "test-topic", zaptest.NewLogger(t))
	defer consumer.Close()

	// Usable before RegisterHandler is called.
	assert.NotNil(t, consumer.handler)
	assert.NoError(t, consumer.handler(context.Background(), Event{Type: CarApproved}))

	called := false
	consumer.RegisterHandler(func(context.Context, Event) error {
		called = true
		return nil
	})
	assert.NoError(t, consumer.handler(context.Background(), Event{Type: CarApproved}))
	assert.True(t, called)
}
