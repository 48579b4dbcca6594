package kafka

import (
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/duongph/go-order-fulfillment/internal/orders"
)

// Journal wraps the producer with the versioned envelope the lifecycle
// service emits.
type Journal struct {
	p        *Producer
	producer string
}

func NewJournal(p *Producer, producerName string) *Journal {
	return &Journal{p: p, producer: producerName}
}

func (j *Journal) Record(eventType, orderID string, payload any) {
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      j.producer,
		CorrelationID: orderID,
		Payload:       MustMarshal(payload),
	}
	j.p.Publish([]byte(orderID), MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
