package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/vasiliy-maslov/order-fulfillment/internal/order"
)

// Producer publishes order lifecycle events to a single topic. The writer is
// async: WriteMessages enqueues and returns, delivery errors are logged by the
// completion callback. Events are keyed by order id so all events of one order
// land on one partition in order.
type Producer struct {
	w *kafkago.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Async:        true,
	}
	w.Completion = func(messages []kafkago.Message, err error) {
		if err != nil {
			log.Error().Err(err).Int("messages", len(messages)).Msg("kafka: failed to deliver order events")
		}
	}
	return &Producer{w: w}
}

func (p *Producer) Publish(ctx context.Context, e order.Event) {
	value, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("event_type", e.EventType).Msg("kafka: failed to marshal order event")
		return
	}

	msg := kafkago.Message{
		Key:   []byte(e.OrderID.String()),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		log.Error().Err(err).Str("event_type", e.EventType).Stringer("order_id", e.OrderID).
			Msg("kafka: failed to enqueue order event")
	}
}

// Close flushes any buffered messages.
func (p *Producer) Close() error {
	return p.w.Close()
}
