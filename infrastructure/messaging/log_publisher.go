// Package messaging holds event publishers that need no external bus
package messaging

import (
	"context"

	"kujisan/application/ports"
	"kujisan/domain/events"

	"go.uber.org/zap"
)

// LogPublisher writes events to the structured log. Used when the event bus
// is disabled so toggles still leave a trail.
type LogPublisher struct {
	logger *zap.Logger
}

var _ ports.EventPublisher = (*LogPublisher)(nil)

// NewLogPublisher creates a publisher that logs at debug level
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger.Named("events")}
}

// Publish logs one event
func (p *LogPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	if event == nil {
		return nil
	}
	fields := []zap.Field{
		zap.String("event_id", event.EventID()),
		zap.String("event_type", event.EventType()),
		zap.String("session_id", event.AggregateID()),
		zap.Int("version", event.Version()),
	}
	for k, v := range event.EventData() {
		fields = append(fields, zap.Any(k, v))
	}
	p.logger.Debug("Tree event", fields...)
	return nil
}

// PublishBatch logs every event
func (p *LogPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, e := range domainEvents {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
