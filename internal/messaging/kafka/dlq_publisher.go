package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/Selbihan/Codifya-ERP-sub000/internal/domain"
)

// DLQPublisher отправляет сообщения, не доставленные в основной topic,
// в dead letter queue с диагностическими заголовками.
type DLQPublisher struct {
	producer      *Producer
	originalTopic string
	dlqTopic      string
}

// NewDLQPublisher создаёт publisher для dead letter queue.
func NewDLQPublisher(producer *Producer, originalTopic, dlqTopic string) *DLQPublisher {
	if originalTopic == "" {
		originalTopic = TopicOrderEvents
	}
	if dlqTopic == "" {
		dlqTopic = TopicDeadLetterQueue
	}
	return &DLQPublisher{
		producer:      producer,
		originalTopic: originalTopic,
		dlqTopic:      dlqTopic,
	}
}

func (p *DLQPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka dlq publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.dlqTopic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(event.Payload),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderOriginalTopic), Value: []byte(p.originalTopic)},
			{Key: []byte(HeaderErrorMessage), Value: []byte("publish retries exhausted")},
			{Key: []byte(HeaderFailedAt), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}

	if _, _, err := p.producer.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("send dlq message: %w", err)
	}
	return nil
}

var _ domain.OutboxPublisher = (*DLQPublisher)(nil)
