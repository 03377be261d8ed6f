package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

const TypeDonationPaid = "donation.paid"

// DonationPaid is emitted once per transaction, on its first paid status.
type DonationPaid struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	TransactionID string    `json:"transactionId"`
	Amount        int64     `json:"amount"`
	PaidAt        time.Time `json:"paidAt"`
}

func NewDonationPaid(transactionID string, amount int64, paidAt time.Time) DonationPaid {
	return DonationPaid{
		ID:            uuid.NewString(),
		Type:          TypeDonationPaid,
		TransactionID: transactionID,
		Amount:        amount,
		PaidAt:        paidAt.UTC(),
	}
}

type Publisher interface {
	PublishDonationPaid(ctx context.Context, e DonationPaid) error
}

// Noop is used when no brokers are configured.
type Noop struct{}

func (Noop) PublishDonationPaid(context.Context, DonationPaid) error { return nil }

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger
}

// NewKafkaProducer dials the brokers with acks from all in-sync replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, nil
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, log: log}
}

// PublishDonationPaid keys the message by transaction id so every event of
// one donation lands on the same partition.
func (p *KafkaPublisher) PublishDonationPaid(ctx context.Context, e DonationPaid) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.TransactionID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(e.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s: %w", e.Type, err)
	}

	p.log.Info("event published", "type", e.Type, "transaction_id", e.TransactionID,
		"partition", partition, "offset", offset)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
