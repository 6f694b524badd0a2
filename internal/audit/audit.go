// Package audit consumes registration lifecycle events and writes an
// audit trail to the structured log.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"registration/internal/metrics"
	"registration/internal/queue"
	"registration/internal/registration"
)

// Lookup resolves the registration an event refers to.
type Lookup interface {
	Get(ctx context.Context, id string) (*registration.Registration, error)
}

type Consumer struct {
	lookup Lookup
	logger *slog.Logger
}

func NewConsumer(lookup Lookup, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{lookup: lookup, logger: logger}
}

// Run handles messages from q until ctx is done or the queue closes.
func (c *Consumer) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume events: %w", err)
	}
	c.logger.Info("audit consumer started")
	for msg := range messages {
		if err := c.Handle(ctx, msg); err != nil {
			c.logger.Warn("audit event failed", slog.String("type", msg.Type), slog.Any("error", err))
		}
	}
	c.logger.Info("audit consumer stopped")
	return nil
}

// Handle records one event. Unknown event types are skipped.
func (c *Consumer) Handle(ctx context.Context, msg queue.Message) error {
	switch msg.Type {
	case registration.EventCreated, registration.EventStatusChanged:
	default:
		metrics.EventsProcessed.WithLabelValues(msg.Type, "skipped").Inc()
		return nil
	}

	id := string(msg.Body)
	reg, err := c.lookup.Get(ctx, id)
	if err != nil {
		result := "error"
		if errors.Is(err, registration.ErrNotFound) {
			result = "missing"
		}
		metrics.EventsProcessed.WithLabelValues(msg.Type, result).Inc()
		return fmt.Errorf("load registration %s: %w", id, err)
	}

	c.logger.Info("audit",
		slog.String("event", msg.Type),
		slog.Time("at", msg.At),
		slog.String("id", reg.ID),
		slog.String("team", reg.TeamName),
		slog.Int("team_size", reg.TeamSize),
		slog.Int("entry_fee", reg.EntryFee),
		slog.String("status", string(reg.Status)),
	)
	metrics.EventsProcessed.WithLabelValues(msg.Type, "ok").Inc()
	return nil
}
