package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/design-orders-backend/internal/domain/entity"
)

// Publisher отправляет события заказов в Kafka. Ключ сообщения — ID заказа,
// поэтому события одного заказа попадают в одну партицию и читаются по порядку.
type Publisher struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

// NewPublisher возвращает nil, если брокеры не заданы: публикация отключена.
func NewPublisher(brokers []string, topic string, log *logrus.Logger) *Publisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		},
		log: log,
	}
}

type envelope struct {
	entity.OrderEvent
	Recipients []string `json:"recipients"`
}

func (p *Publisher) Publish(ctx context.Context, ev entity.OrderEvent) error {
	if p == nil {
		return nil
	}

	recipients := make([]string, 0, len(ev.Recipients))
	for _, id := range ev.Recipients {
		recipients = append(recipients, id.String())
	}

	value, err := json.Marshal(envelope{OrderEvent: ev, Recipients: recipients})
	if err != nil {
		return fmt.Errorf("events: не удалось сериализовать событие: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.OrderID.String()),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: не удалось отправить %s: %w", ev.Type, err)
	}

	p.log.WithFields(logrus.Fields{
		"event":    ev.Type,
		"order_id": ev.OrderID,
	}).Debug("событие отправлено в kafka")
	return nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
