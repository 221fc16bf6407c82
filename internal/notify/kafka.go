package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
)

// KafkaDispatcher publishes notifications to a Kafka topic keyed by recipient.
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

// NewKafkaProducer creates a sync producer that waits for all in-sync replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 0
	return sarama.NewSyncProducer(brokers, cfg)
}

// NewKafkaDispatcher creates a dispatcher over an existing producer.
func NewKafkaDispatcher(producer sarama.SyncProducer, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{producer: producer, topic: topic, now: func() time.Time { return time.Now().UTC() }}
}

// Send publishes n keyed by recipient.
func (d *KafkaDispatcher) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(envelope{Notification: n, SentAt: d.now()})
	if err != nil {
		return Permanent(fmt.Errorf("encode notification: %w", err))
	}
	_, _, err = d.producer.SendMessage(&sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(n.UserID, 10)),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(n.Event)},
		},
	})
	if err != nil {
		if errors.Is(err, sarama.ErrMessageSizeTooLarge) || errors.Is(err, sarama.ErrInvalidMessage) {
			return Permanent(fmt.Errorf("publish notification: %w", err))
		}
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Close closes the producer.
func (d *KafkaDispatcher) Close() error {
	return d.producer.Close()
}
