package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"

	"voicelink_service/internal/room/domain"
	"voicelink_service/pkg/database"
)

// EventPublisher definition room event fan out
type EventPublisher interface {
	Publish(ctx context.Context, event domain.RoomEvent) error
	Close() error
}

// KafkaWriter subset of *kafka.Writer used by the publisher
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaEventPublisher struct {
	writer KafkaWriter
}

// NewKafkaEventPublisher publish room events keyed by room id
func NewKafkaEventPublisher(writer KafkaWriter) EventPublisher {
	return &kafkaEventPublisher{writer: writer}
}

func (p *kafkaEventPublisher) Publish(ctx context.Context, event domain.RoomEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// 同一個房間的事件進同一個 partition
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.RoomID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
}

func (p *kafkaEventPublisher) Close() error {
	return p.writer.Close()
}

type rabbitEventPublisher struct {
	rabbit   database.RabbitRepo
	exchange string
}

// NewRabbitEventPublisher publish room events to a topic exchange, routing key room.{type}
func NewRabbitEventPublisher(rabbit database.RabbitRepo, exchange string) (EventPublisher, error) {
	err := rabbit.GetRabbit().ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return newRabbitEventPublisher(rabbit, exchange), nil
}

func newRabbitEventPublisher(rabbit database.RabbitRepo, exchange string) EventPublisher {
	return &rabbitEventPublisher{rabbit: rabbit, exchange: exchange}
}

func (p *rabbitEventPublisher) Publish(ctx context.Context, event domain.RoomEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.rabbit.Publish(p.exchange, "room."+string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Close 關閉 channel 與連線
func (p *rabbitEventPublisher) Close() error {
	return p.rabbit.Close()
}

type noopEventPublisher struct{}

// NewNoopEventPublisher used when no broker is configured
func NewNoopEventPublisher() EventPublisher {
	return noopEventPublisher{}
}

func (noopEventPublisher) Publish(context.Context, domain.RoomEvent) error { return nil }

func (noopEventPublisher) Close() error { return nil }
