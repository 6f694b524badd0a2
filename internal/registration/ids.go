package registration

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator assigns identifiers to new registrations.
type IDGenerator interface {
	NextID(ctx context.Context) (string, error)
}

// UUIDGenerator issues random identifiers.
type UUIDGenerator struct{}

// NextID returns a new random UUID string.
func (UUIDGenerator) NextID(context.Context) (string, error) {
	return uuid.NewString(), nil
}

// Counter is an atomic, monotonically increasing sequence.
type Counter interface {
	Incr(ctx context.Context) (int64, error)
}

// SequentialGenerator issues zero-padded codes like REG-0001.
type SequentialGenerator struct {
	counter Counter
	prefix  string
}

// NewSequentialGenerator builds codes from the given counter.
func NewSequentialGenerator(counter Counter, prefix string) *SequentialGenerator {
	if prefix == "" {
		prefix = "REG-"
	}
	return &SequentialGenerator{counter: counter, prefix: prefix}
}

// NextID increments the counter and formats the code.
func (g *SequentialGenerator) NextID(ctx context.Context) (string, error) {
	n, err := g.counter.Incr(ctx)
	if err != nil {
		return "", fmt.Errorf("next registration sequence: %w", err)
	}
	return fmt.Sprintf("%s%04d", g.prefix, n), nil
}

// MemoryCounter is a process-local counter. It is reset on restart and
// only pairs with the memory store.
type MemoryCounter struct {
	n atomic.Int64
}

// Incr returns the next value.
func (c *MemoryCounter) Incr(context.Context) (int64, error) {
	return c.n.Add(1), nil
}
