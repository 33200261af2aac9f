package mykafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicCart  = "cart_events"
	TopicOrder = "order_events"

	publishTimeout = 5 * time.Second
	queueSize      = 256
)

var ErrClosed = errors.New("kafka: producer closed")

// Publisher emits domain events keyed by an entity id.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues events and writes them to Kafka from one background
// goroutine, so callers never wait on the broker.
type Producer struct {
	writer messageWriter
	log    *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

func NewProducer(brokers []string, log *slog.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           publishTimeout,
	}
	return newProducer(w, log, queueSize), nil
}

func newProducer(w messageWriter, log *slog.Logger, size int) *Producer {
	p := &Producer{
		writer: w,
		log:    log.With("component", "kafka"),
		queue:  make(chan kafka.Message, size),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Producer) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := p.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			p.log.Warn("event_write_failed", "topic", msg.Topic, "key", string(msg.Key), "error", err)
		}
	}
}

// PublishEvent encodes event and queues it. It returns an error when the
// queue is full or the producer is closed; the event is dropped then.
func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		return fmt.Errorf("kafka: queue full, dropped event for %s", topic)
	}
}

// Close stops accepting events, writes what is queued and closes the writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) PublishEvent(context.Context, string, string, any) error { return nil }
func (Noop) Close() error                                             { return nil }

// FromBrokers returns a Producer when brokers are set, else Noop.
func FromBrokers(brokers []string, log *slog.Logger) (Publisher, error) {
	if len(brokers) == 0 {
		return Noop{}, nil
	}
	return NewProducer(brokers, log)
}
