// Package service implements the business workflows of the rewards
// core: awarding points, reading balances, and the redemption
// transaction.  Services depend on narrow store interfaces so the
// workflows can be exercised against in-memory implementations in tests
// while production wires in the MySQL repositories.
package service

import (
	"context"
	"time"

	"github.com/provia/rewards-service/internal/queue"
)

// Notifier informs users about point events.  Every method is
// fire-and-forget: implementations must not block the caller on broker
// I/O and a failed delivery never affects the committed state that
// triggered it.
type Notifier interface {
	PointsAwarded(ev queue.PointsAwardedEvent)
	RedemptionConfirmed(ev queue.RedemptionConfirmedEvent)
}

// AMQPNotifier publishes notification events to RabbitMQ.  Publishing
// happens on a detached goroutine with its own timeout so a slow or
// down broker cannot stall request handling; queue.Publish already logs
// failures.
type AMQPNotifier struct{}

func (AMQPNotifier) PointsAwarded(ev queue.PointsAwardedEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.Publish(ctx, queue.PointsAwardedQueue, ev)
	}()
}

func (AMQPNotifier) RedemptionConfirmed(ev queue.RedemptionConfirmedEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.Publish(ctx, queue.RedemptionConfirmedQueue, ev)
	}()
}

// NopNotifier discards all events.  Used when the broker is not
// configured and in tests.
type NopNotifier struct{}

func (NopNotifier) PointsAwarded(queue.PointsAwardedEvent)             {}
func (NopNotifier) RedemptionConfirmed(queue.RedemptionConfirmedEvent) {}
