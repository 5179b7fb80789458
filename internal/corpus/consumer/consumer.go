// Package consumer applies document events from Kafka to an in-memory corpus
// and invalidates the index whenever the corpus changes.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/kafka"
)

// DocumentConsumer wraps a Kafka consumer to keep a MemoryStore current.
type DocumentConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *DocumentConsumer {
	return &DocumentConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "document-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (dc *DocumentConsumer) Start(ctx context.Context) error {
	dc.logger.Info("document consumer starting")
	return dc.consumer.Start(ctx)
}

// HandleMessage returns a MessageHandler that applies each DocumentEvent to
// store and calls invalidate when the stored corpus actually changed.
// Undecodable or malformed events are logged and skipped so they do not
// block the partition.
func HandleMessage(store *corpus.MemoryStore, invalidate func()) kafka.MessageHandler {
	logger := slog.Default().With("component", "document-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[corpus.DocumentEvent](value)
		if err != nil {
			logger.Error("failed to decode document event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if event.ID == "" {
			logger.Warn("document event without id", "key", string(key), "op", event.Op)
			return nil
		}

		changed, err := apply(store, event)
		if err != nil {
			logger.Warn("skipping document event", "doc_id", event.ID, "error", err)
			return nil
		}
		if !changed {
			logger.Debug("document unchanged", "doc_id", event.ID, "op", event.Op)
			return nil
		}
		if invalidate != nil {
			invalidate()
		}
		logger.Info("document applied",
			"doc_id", event.ID,
			"op", event.Op,
			"corpus_size", store.Len(),
		)
		return nil
	}
}

func apply(store *corpus.MemoryStore, event corpus.DocumentEvent) (bool, error) {
	switch event.Op {
	case corpus.OpUpsert, "":
		return store.Upsert(corpus.Document{ID: event.ID, Text: event.Text}), nil
	case corpus.OpDelete:
		return store.Delete(event.ID), nil
	default:
		return false, fmt.Errorf("unknown op %q", event.Op)
	}
}
