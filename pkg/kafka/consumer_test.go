package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueReader serves queued messages, then blocks until the context ends
type queueReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *queueReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range msgs {
		r.committed = append(r.committed, msg.Offset)
	}
	return nil
}

func (r *queueReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *queueReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func notification(offset int64, eventID string) kafka.Message {
	return kafka.Message{
		Offset: offset,
		Value:  []byte(`{"notifications":[{"operation":"update","event":{"id":"` + eventID + `"}}]}`),
	}
}

func newTestConsumer(reader messageReader, handler MessageHandler) *Consumer {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return newConsumer(reader, "catalog", "fern", logger, handler)
}

func waitDone(t *testing.T, c *Consumer) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumerStopsOnHandlerError(t *testing.T) {
	reader := &queueReader{queue: []kafka.Message{
		notification(1, "E1"),
		notification(2, "E2"),
		notification(3, "E3"),
	}}

	failure := errors.New("catalog unreachable")
	var handled []string
	c := newTestConsumer(reader, func(ctx context.Context, msg *IncomingMessage) error {
		handled = append(handled, msg.EventIDs()...)
		if msg.EventIDs()[0] == "E2" {
			return failure
		}
		return nil
	})

	require.NoError(t, c.Start(context.Background()))
	waitDone(t, c)

	assert.Equal(t, []string{"E1", "E2"}, handled)
	assert.Equal(t, []int64{1}, reader.commits())
	assert.ErrorIs(t, c.Err(), failure)
	assert.ErrorIs(t, c.PingContext(context.Background()), failure)

	require.NoError(t, c.Stop())
	assert.True(t, reader.closed)
}

func TestConsumerCommitsMalformedAndHandled(t *testing.T) {
	reader := &queueReader{queue: []kafka.Message{
		{Offset: 1, Value: []byte(`not json`)},
		notification(2, "E2"),
	}}

	handled := make(chan string, 2)
	c := newTestConsumer(reader, func(ctx context.Context, msg *IncomingMessage) error {
		handled <- msg.EventIDs()[0]
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	select {
	case id := <-handled:
		assert.Equal(t, "E2", id)
	case <-time.After(5 * time.Second):
		t.Fatal("message was not handled")
	}

	require.NoError(t, c.Stop())
	waitDone(t, c)
	assert.Equal(t, []int64{1, 2}, reader.commits())
	assert.NoError(t, c.Err())
	assert.NoError(t, c.PingContext(ctx))
}
