// Package kafka wraps segmentio/kafka-go for corpus document events. Values
// travel as JSON: the producer encodes them and consumers decode with
// DecodeJSON.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/config"
)

// MessageHandler processes one message. A returned error leaves the message
// uncommitted.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	commit  bool
	backoff time.Duration
	logger  *slog.Logger
}

type ConsumerOption func(*consumerOptions)

type consumerOptions struct {
	reader  kafka.ReaderConfig
	commit  bool
	backoff time.Duration
}

// Replay makes the consumer read the whole topic from the oldest retained
// message on every start. It joins a group private to this process and never
// commits, so state rebuilt from the topic is complete after a restart.
func Replay() ConsumerOption {
	return func(o *consumerOptions) {
		host, _ := os.Hostname()
		o.reader.GroupID = fmt.Sprintf("%s-%s-%d-%d", o.reader.GroupID, host, os.Getpid(), time.Now().UnixNano())
		o.reader.StartOffset = kafka.FirstOffset
		o.commit = false
	}
}

// WithFetchBackoff sets the pause after a failed fetch. Default 1s.
func WithFetchBackoff(d time.Duration) ConsumerOption {
	return func(o *consumerOptions) { o.backoff = d }
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler, opts ...ConsumerOption) *Consumer {
	o := consumerOptions{
		reader: kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.LastOffset,
		},
		commit:  true,
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Consumer{
		reader:  kafka.NewReader(o.reader),
		handler: handler,
		commit:  o.commit,
		backoff: o.backoff,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", o.reader.GroupID),
	}
}

// Start consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started", "commit", c.commit)
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch failed", "error", err, "backoff", c.backoff)
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
		log.Debug("message received", "key", string(msg.Key), "value_size", len(msg.Value))
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			log.Error("handler failed", "error", err)
			continue
		}
		if !c.commit {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit failed", "error", err)
		}
	}
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
