package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/harborerp/ledger-core/internal/ledger"
)

const topicVoucherPosted = "ledger.voucher_posted"

// Publisher emits ledger events to Kafka. A nil Publisher is a no-op so
// deployments without brokers keep working.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher builds a publisher for the given brokers.
func NewPublisher(brokers []string) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topicVoucherPosted,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishVoucherPosted emits one message per posted voucher, keyed by
// voucher number so replays stay ordered per voucher.
func (p *Publisher) PublishVoucherPosted(ctx context.Context, event ledger.VoucherPostedEvent) error {
	if p == nil || p.writer == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.VoucherNo),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
