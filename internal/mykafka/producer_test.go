package mykafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/logging"
)

func TestFromBrokers(t *testing.T) {
	t.Parallel()

	p, err := FromBrokers(nil, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, Noop{}, p)
	require.NoError(t, p.PublishEvent(context.Background(), TopicCart, "k", map[string]int{"a": 1}))
	require.NoError(t, p.Close())

	p, err = FromBrokers([]string{"localhost:9092"}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &Producer{}, p)
	require.NoError(t, p.Close())
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	t.Parallel()

	_, err := NewProducer(nil, logging.Discard())
	require.Error(t, err)
}

func TestPublishEventRejectsUnencodable(t *testing.T) {
	t.Parallel()

	p, err := NewProducer([]string{"localhost:9092"}, logging.Discard())
	require.NoError(t, err)
	defer p.Close()

	err = p.PublishEvent(context.Background(), TopicOrder, "1", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json.Marshal")
}

type stalledWriter struct {
	release chan struct{}

	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *stalledWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	<-w.release
	w.mu.Lock()
	w.msgs = append(w.msgs, msgs...)
	w.mu.Unlock()
	return nil
}

func (w *stalledWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func TestPublishEventDoesNotWaitForBroker(t *testing.T) {
	t.Parallel()

	w := &stalledWriter{release: make(chan struct{})}
	p := newProducer(w, logging.Discard(), 8)

	start := time.Now()
	for i := range 3 {
		require.NoError(t, p.PublishEvent(context.Background(), TopicCart, "alice", map[string]int{"n": i}))
	}
	assert.Less(t, time.Since(start), time.Second)

	close(w.release)
	require.NoError(t, p.Close())

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.True(t, w.closed)
	require.Len(t, w.msgs, 3)
	for i, m := range w.msgs {
		assert.Equal(t, TopicCart, m.Topic)
		assert.Equal(t, "alice", string(m.Key))
		var body map[string]int
		require.NoError(t, json.Unmarshal(m.Value, &body))
		assert.Equal(t, i, body["n"])
	}
}

func TestPublishEventDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	w := &stalledWriter{release: make(chan struct{})}
	p := newProducer(w, logging.Discard(), 1)

	// The worker holds at most one message while the writer is stalled, and
	// the queue holds one more.
	var errs int
	for range 4 {
		if err := p.PublishEvent(context.Background(), TopicOrder, "7", map[string]int{}); err != nil {
			errs++
		}
	}
	assert.GreaterOrEqual(t, errs, 2)

	close(w.release)
	require.NoError(t, p.Close())
}

func TestPublishEventAfterClose(t *testing.T) {
	t.Parallel()

	w := &stalledWriter{release: make(chan struct{})}
	close(w.release)
	p := newProducer(w, logging.Discard(), 4)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err := p.PublishEvent(context.Background(), TopicCart, "k", map[string]int{})
	require.ErrorIs(t, err, ErrClosed)
}
