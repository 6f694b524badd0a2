package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemory_PublishConsume(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Publish(ctx, Message{Type: "registration.created", Body: []byte("r1")}))
	require.NoError(t, q.Publish(ctx, Message{Type: "registration.status_changed", Body: []byte("r1")}))

	first := <-msgs
	require.Equal(t, "registration.created", first.Type)
	require.Equal(t, "r1", string(first.Body))
	require.False(t, first.At.IsZero(), "publish stamps the time")

	second := <-msgs
	require.Equal(t, "registration.status_changed", second.Type)

	cancel()
	select {
	case _, ok := <-msgs:
		require.False(t, ok, "channel closes once ctx is done")
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemory_PublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	require.NoError(t, q.Publish(context.Background(), Message{Type: "a"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Publish(ctx, Message{Type: "b"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
