// Package services holds the business operations behind the HTTP API and
// the workers.
package services

import (
	"context"

	"conti/internal/amqp"
)

// EventPublisher announces transaction changes to the worker.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error
}

var _ EventPublisher = (*amqp.Client)(nil)
