package notification

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaNotifier publishes events as JSON messages keyed by student id.
type KafkaNotifier struct {
	writer *kafka.Writer
}

// NewKafkaNotifier builds a synchronous producer for the given broker and topic.
func NewKafkaNotifier(broker, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Send publishes the event, bounded by a short timeout.
func (n *KafkaNotifier) Send(ctx context.Context, event Event) error {
	msg, err := eventMessage(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return n.writer.WriteMessages(ctx, msg)
}

// eventMessage keys the message by student id so one student's events stay
// on one partition, in order.
func eventMessage(event Event) (kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.Itoa(event.StudentID)),
		Value: payload,
		Time:  event.OccurredAt,
	}, nil
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
