package notification

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes donation events to the donation topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (p *KafkaPublisher) PublishDonationCompleted(ctx context.Context, event DonationCompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.TransactionID),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// StartKafkaConsumer runs a background reader that turns donation events into
// donor receipt emails. Send failures are logged and the event is not
// redelivered; the receipt email is a nice-to-have, not part of the money
// path.
func StartKafkaConsumer(brokers, topic string, sender *EmailSender) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: strings.Split(brokers, ","),
		Topic:   topic,
		GroupID: "donation-receipts",
	})

	go func() {
		defer reader.Close()
		for {
			msg, err := reader.ReadMessage(context.Background())
			if err != nil {
				log.Printf("⚠️ Kafka consumer stopped: %v", err)
				return
			}

			var event DonationCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("⚠️ Skipping malformed donation event: %v", err)
				continue
			}

			if err := sender.SendDonationReceipt(event); err != nil {
				log.Printf("⚠️ Receipt email failed for transaction %s: %v", event.TransactionID, err)
			}
		}
	}()

	log.Printf("✅ Kafka consumer started for topic %s", topic)
}
