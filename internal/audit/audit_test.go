package audit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"registration/internal/queue"
	"registration/internal/registration"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func seeded(t *testing.T) *registration.MemoryStore {
	t.Helper()
	st := registration.NewMemoryStore()
	require.NoError(t, st.Insert(context.Background(), &registration.Registration{
		ID: "REG-0001", TeamName: "Alpha", TeamSize: 2, EntryFee: 100, Status: registration.StatusApproved,
	}))
	return st
}

func TestHandle(t *testing.T) {
	var out syncBuffer
	c := NewConsumer(seeded(t), slog.New(slog.NewJSONHandler(&out, nil)))
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, queue.Message{Type: registration.EventStatusChanged, Body: []byte("REG-0001")}))
	require.Contains(t, out.String(), `"id":"REG-0001"`)
	require.Contains(t, out.String(), `"status":"approved"`)

	err := c.Handle(ctx, queue.Message{Type: registration.EventCreated, Body: []byte("REG-9999")})
	require.ErrorIs(t, err, registration.ErrNotFound)

	require.NoError(t, c.Handle(ctx, queue.Message{Type: "something.else"}))
}

func TestRun_DrainsQueueUntilCancelled(t *testing.T) {
	var out syncBuffer
	c := NewConsumer(seeded(t), slog.New(slog.NewJSONHandler(&out, nil)))
	q := queue.NewInMemory(8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, q) }()

	require.NoError(t, q.Publish(ctx, queue.Message{Type: registration.EventCreated, Body: []byte("REG-0001")}))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"event":"registration.created"`)
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}
