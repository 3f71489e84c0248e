package producer

import (
	"context"
	"encoding/json"
	"time"

	"stonemarket/internal/service"

	"github.com/segmentio/kafka-go"
)

// EventProducer publishes lifecycle events to a single topic, keyed by
// batch id so events for one batch stay ordered within a partition.
type EventProducer struct {
	writer *kafka.Writer
}

func NewEventProducer(brokers []string, topic string) *EventProducer {
	return &EventProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *EventProducer) publish(ctx context.Context, key string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *EventProducer) PublishReservationEvent(ctx context.Context, e service.ReservationEvent) error {
	return p.publish(ctx, e.BatchID.String(), e)
}

func (p *EventProducer) PublishSaleConfirmed(ctx context.Context, e service.SaleConfirmedEvent) error {
	return p.publish(ctx, e.BatchID.String(), e)
}

func (p *EventProducer) Close() error {
	return p.writer.Close()
}
