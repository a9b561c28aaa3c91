package renderer

import (
	"context"

	"ai-teleprompter-service/internal/models"
	"ai-teleprompter-service/internal/observability/metrics"
)

// CursorPublisher is satisfied by *events.Publisher.
type CursorPublisher interface {
	PublishCursor(ctx context.Context, ev *models.CursorEvent) error
}

// KafkaSink queues cursor events and publishes them from its own goroutine,
// so broker latency never reaches the session loop.
type KafkaSink struct {
	pub     CursorPublisher
	queue   chan models.CursorEvent
	metrics *metrics.Metrics
}

var _ Renderer = (*KafkaSink)(nil)

// NewKafkaSink returns a sink holding up to size pending events.
func NewKafkaSink(pub CursorPublisher, size int) *KafkaSink {
	if size < 1 {
		size = broadcastQueue
	}
	return &KafkaSink{
		pub:     pub,
		queue:   make(chan models.CursorEvent, size),
		metrics: metrics.DefaultMetrics,
	}
}

// Render implements Renderer.
func (k *KafkaSink) Render(ev models.CursorEvent) {
	select {
	case k.queue <- ev:
	default:
		k.metrics.RecordRendererDrop("kafka")
	}
}

// Run publishes queued events until ctx is done. Publish errors are logged
// and counted by the publisher.
func (k *KafkaSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-k.queue:
			_ = k.pub.PublishCursor(ctx, &ev)
		}
	}
}
