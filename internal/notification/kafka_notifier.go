package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/courtside/session-booking/internal/dto"
	"github.com/courtside/session-booking/pkg/kafka"
	"github.com/courtside/session-booking/pkg/logger"
)

// KafkaNotifier publishes notification events to Kafka
type KafkaNotifier struct {
	producer *kafka.Producer
	topic    string
	timeout  time.Duration
}

// NewKafkaNotifier creates a Kafka-backed notifier
func NewKafkaNotifier(producer *kafka.Producer, topic string) *KafkaNotifier {
	if topic == "" {
		topic = dto.TopicNotifications
	}
	return &KafkaNotifier{
		producer: producer,
		topic:    topic,
		timeout:  5 * time.Second,
	}
}

var _ Notifier = (*KafkaNotifier)(nil)

// Notify publishes the event, keyed by user ID so per-user ordering holds
func (n *KafkaNotifier) Notify(ctx context.Context, event *dto.NotificationEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.producer.ProduceJSON(ctx, n.topic, event.Key(), event, nil); err != nil {
		logger.Get().Warn("failed to publish notification event",
			zap.String("event_type", string(event.EventType)),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
		return err
	}

	return nil
}
