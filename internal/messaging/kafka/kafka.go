package kafka

import (
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	wkafka "github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"

	"github.com/ecomworks/inventory-service/internal/messaging"
)

// marshaler keys messages by the aggregate id so all events for one item land
// on the same partition and stay ordered.
func marshaler() wkafka.MarshalerUnmarshaler {
	return wkafka.NewWithPartitioningMarshaler(func(topic string, msg *message.Message) (string, error) {
		if key := msg.Metadata.Get(messaging.MetadataPartitionKey); key != "" {
			return key, nil
		}
		return msg.UUID, nil
	})
}

// NewPublisher creates a Kafka publisher with a synchronous, fully-acked
// producer. The sarama timeouts bound every publish call.
func NewPublisher(brokers []string, logger *slog.Logger) (message.Publisher, error) {
	cfg := wkafka.DefaultSaramaSyncPublisherConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Timeout = 10 * time.Second
	cfg.Net.DialTimeout = 10 * time.Second

	return wkafka.NewPublisher(wkafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             marshaler(),
		OverwriteSaramaConfig: cfg,
	}, watermill.NewSlogLogger(logger))
}

// NewSubscriber creates a Kafka consumer-group subscriber. Messages are acked
// only after the handler succeeds, so processing is at-least-once.
func NewSubscriber(brokers []string, groupID string, logger *slog.Logger) (message.Subscriber, error) {
	cfg := wkafka.DefaultSaramaSubscriberConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	return wkafka.NewSubscriber(wkafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           marshaler(),
		OverwriteSaramaConfig: cfg,
		ConsumerGroup:         groupID,
	}, watermill.NewSlogLogger(logger))
}
