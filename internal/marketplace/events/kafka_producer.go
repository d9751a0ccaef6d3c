// Package events publishes marketplace lifecycle events to Kafka.
// Producing is asynchronous: services enqueue and move on, a single
// loop drains the queue. A full queue drops the event with a warning
// rather than blocking a request.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	CarSubmitted     EventType = "car_submitted"
	CarApproved      EventType = "car_approved"
	CarRejected      EventType = "car_rejected"
	CarSold          EventType = "car_sold"
	CarDeleted       EventType = "car_deleted"
	BookingCreated   EventType = "booking_created"
	BookingApproved  EventType = "booking_approved"
	BookingCancelled EventType = "booking_cancelled"
	RentalStarted    EventType = "rental_started"
	RentalCompleted  EventType = "rental_completed"
	PurchaseCreated  EventType = "purchase_created"
	PurchasePaid     EventType = "purchase_paid"
	PurchaseFailed   EventType = "purchase_failed"
	CompanyApproved  EventType = "company_approved"
	CompanyRejected  EventType = "company_rejected"
	CompanyDisabled  EventType = "company_deactivated"
)

// Event is a lifecycle notification about one entity. EntityID keys
// the Kafka message so events for the same entity stay ordered.
type Event struct {
	Type       EventType
	EntityID   uuid.UUID
	OccurredAt time.Time
	Payload    interface{}
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
}

func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	// Create topic if it doesn't exist
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	topicConfigs := []kafka.TopicConfig{
		{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		},
	}

	err = conn.CreateTopics(topicConfigs...)
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}
	p := &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
			Topic:    topic,
		},
		events:    make(chan Event, 1000),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}

	go p.eventLoop()
	return p, nil
}

// Produce enqueues a lifecycle event for the given entity.
func (p *Producer) Produce(eventType EventType, entityID uuid.UUID, payload interface{}) {
	event := Event{
		Type:       eventType,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("entity_id", entityID.String()),
		)
	}
}

func (p *Producer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("entity_id", event.EntityID.String()),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EntityID.String()),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("entity_id", event.EntityID.String()),
		)
		return
	}
}

func (p *Producer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}
