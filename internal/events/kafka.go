package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog"

	"plate-registry/internal/config"
	"plate-registry/internal/domain/plate"
)

var ErrNotConfigured = errors.New("kafka publisher is not configured")

const (
	maxRetries   = 3
	baseBackoff  = 100 * time.Millisecond
	flushTimeout = 5 * time.Second
)

// Publisher sends outcome events to a Kafka topic keyed by plate text.
type Publisher struct {
	producer     *kafka.Producer
	topic        string
	deliveryChan chan kafka.Event
	done         chan struct{}
	wg           sync.WaitGroup
	log          zerolog.Logger
}

func NewPublisher(cfg config.KafkaConfig, log zerolog.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.BootstrapServers) == "" {
		return nil, ErrNotConfigured
	}

	p, err := kafka.NewProducer(producerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	pub := &Publisher{
		producer:     p,
		topic:        cfg.Topic,
		deliveryChan: make(chan kafka.Event, 1000),
		done:         make(chan struct{}),
		log:          log,
	}

	pub.wg.Add(1)
	go pub.handleDeliveryReports()

	log.Info().
		Str("topic", cfg.Topic).
		Str("bootstrap_servers", cfg.BootstrapServers).
		Msg("kafka publisher initialized")
	return pub, nil
}

func producerConfig(cfg config.KafkaConfig) *kafka.ConfigMap {
	cm := kafka.ConfigMap{
		"bootstrap.servers":   cfg.BootstrapServers,
		"security.protocol":   cfg.SecurityProtocol,
		"acks":                "all",
		"enable.idempotence":  true,
		"request.timeout.ms":  30000,
		"delivery.timeout.ms": 120000,
	}
	if cfg.SASLMechanism != "" {
		cm["sasl.mechanism"] = cfg.SASLMechanism
		cm["sasl.username"] = cfg.SASLUsername
		cm["sasl.password"] = cfg.SASLPassword
	}
	return &cm
}

func (p *Publisher) handleDeliveryReports() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		case e := <-p.deliveryChan:
			m, ok := e.(*kafka.Message)
			if !ok {
				continue
			}
			if m.TopicPartition.Error != nil {
				p.log.Error().
					Err(m.TopicPartition.Error).
					Str("key", string(m.Key)).
					Msg("outcome event delivery failed")
				continue
			}
			p.log.Debug().
				Int32("partition", m.TopicPartition.Partition).
				Str("offset", m.TopicPartition.Offset.String()).
				Msg("outcome event delivered")
		}
	}
}

// Publish enqueues event, retrying retriable producer errors with backoff.
func (p *Publisher) Publish(ctx context.Context, event plate.OutcomeEvent) error {
	message, err := newMessage(p.topic, event)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := p.producer.Produce(message, p.deliveryChan)
		if err == nil {
			return nil
		}
		lastErr = err

		var kafkaErr kafka.Error
		if errors.As(err, &kafkaErr) && !kafkaErr.IsRetriable() {
			return fmt.Errorf("non-retriable error: %w", err)
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func newMessage(topic string, event plate.OutcomeEvent) (*kafka.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize event: %w", err)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.PlateText),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID.String())},
		},
		Timestamp: event.OccurredAt,
	}, nil
}

// Close flushes pending messages and stops the delivery report handler.
func (p *Publisher) Close() {
	if remaining := p.producer.Flush(int(flushTimeout.Milliseconds())); remaining > 0 {
		p.log.Warn().Int("remaining", remaining).Msg("outcome events not flushed before shutdown")
	}
	close(p.done)
	p.wg.Wait()
	p.producer.Close()
}
