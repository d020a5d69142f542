package ports

import "context"

// EventPublisher delivers lifecycle events pulled from the outbox to the broker.
// The partition key keeps events for one certificate in order.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, partitionKey string, payload []byte) error
}
