// Package producer publishes records to Kafka through franz-go.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"hearth/internal/platform/config"
)

var ErrClosed = errors.New("producer is closed")

// Message is a single record bound for a topic.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type Producer struct {
	client *kgo.Client
	logger *slog.Logger
	mu     sync.RWMutex
	closed bool
}

func New(cfg config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	var brokers []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(acks(cfg.Acks)),
		kgo.RecordRetries(cfg.Retries),
		kgo.ProducerLinger(5 * time.Millisecond),
		kgo.AllowAutoTopicCreation(),
	}
	if cfg.Acks != "all" && cfg.Acks != "" {
		// idempotent writes require acks from all in-sync replicas
		opts = append(opts, kgo.DisableIdempotentWrite())
	}
	if cfg.DeliveryTimeout > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client, logger: logger}, nil
}

func acks(setting string) kgo.Acks {
	switch setting {
	case "0":
		return kgo.NoAck()
	case "1":
		return kgo.LeaderAck()
	default:
		return kgo.AllISRAcks()
	}
}

// Produce blocks until the record is acknowledged.
func (p *Producer) Produce(ctx context.Context, msg *Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	record := &kgo.Record{Topic: msg.Topic, Key: msg.Key, Value: msg.Value}
	for k, v := range msg.Headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce message: %w", err)
	}
	return nil
}

// Health pings the seed brokers.
func (p *Producer) Health(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	return p.client.Ping(ctx)
}

// Close flushes buffered records and shuts the client down. Safe to call
// twice and on a nil producer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil && p.logger != nil {
		p.logger.Warn("kafka producer closed with unflushed records", "error", err)
	}
	p.client.Close()
	return nil
}
