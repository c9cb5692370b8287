package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnqueueGivesUpWhenWriterIsGone(t *testing.T) {
	c := &client{
		send: make(chan []byte, 2),
		done: make(chan struct{}),
	}
	ctx := context.Background()

	require.True(t, c.enqueue(ctx, []byte(`{}`)))
	require.True(t, c.enqueue(ctx, []byte(`{}`)))

	// Buffer full and the writer has exited: enqueue must return, not block.
	close(c.done)
	require.False(t, c.enqueue(ctx, []byte(`{}`)))
}

func TestEnqueueHonorsContextCancel(t *testing.T) {
	c := &client{
		send: make(chan []byte), // unbuffered, nobody reading
		done: make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, c.enqueue(ctx, []byte(`{}`)))
}
