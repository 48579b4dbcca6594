package kafka

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// TopicOrderLifecycle carries every committed order event, keyed by order id
// so per-order ordering survives partitioning.
const TopicOrderLifecycle = "order.lifecycle"

// Producer decouples publishing from the request path: Publish only enqueues,
// a single goroutine drains the inbox. Losing an event here never fails the
// business operation that produced it.
type Producer struct {
	w         *kafka.Writer
	inbox     chan kafka.Message
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer func() {
			// flush what is already buffered before shutting the writer
			for {
				select {
				case m := <-p.inbox:
					p.write(m)
				default:
					_ = p.w.Close()
					close(p.closeCh)
					return
				}
			}
		}()
		for {
			select {
			case <-ctx.Done():
				p.markClosed()
				return
			case <-p.closed:
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		log.Printf("kafka: write %s: %v", p.w.Topic, err)
	}
}

// Publish enqueues without blocking the caller beyond the buffer; when the
// inbox is full or the producer already closed, the message is dropped rather
// than stalling a request.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	select {
	case <-p.closed:
		log.Printf("kafka: producer closed, dropping event for key %s", key)
		return
	default:
	}
	m := kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
	select {
	case p.inbox <- m:
	default:
		log.Printf("kafka: inbox full, dropping event for key %s", key)
	}
}

func (p *Producer) markClosed() {
	p.closeOnce.Do(func() { close(p.closed) })
}

// Close stops accepting messages; the drain goroutine flushes what is left.
// Safe to call more than once and alongside context cancellation.
func (p *Producer) Close() { p.markClosed() }

// WaitClosed blocks until the drain goroutine finished.
func (p *Producer) WaitClosed() { <-p.closeCh }
