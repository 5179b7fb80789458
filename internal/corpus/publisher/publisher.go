// Package publisher sends a corpus snapshot to Kafka as document events.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/kafka"
)

const defaultBatchSize = 100

// BatchProducer is the subset of *kafka.Producer the publisher uses.
type BatchProducer interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Publisher struct {
	producer  BatchProducer
	batchSize int
	logger    *slog.Logger
}

func New(producer BatchProducer) *Publisher {
	return &Publisher{
		producer:  producer,
		batchSize: defaultBatchSize,
		logger:    slog.Default().With("component", "corpus-publisher"),
	}
}

// Publish loads source and publishes every document as an upsert event keyed
// by document ID. It returns the number of documents published.
func (p *Publisher) Publish(ctx context.Context, source corpus.Source) (int, error) {
	docs, err := source.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading corpus: %w", err)
	}
	published := 0
	for start := 0; start < len(docs); start += p.batchSize {
		end := min(start+p.batchSize, len(docs))
		events := make([]kafka.Event, 0, end-start)
		for _, d := range docs[start:end] {
			events = append(events, kafka.Event{
				Key:   d.ID,
				Value: corpus.DocumentEvent{Op: corpus.OpUpsert, ID: d.ID, Text: d.Text},
			})
		}
		if err := p.producer.PublishBatch(ctx, events); err != nil {
			return published, fmt.Errorf("publishing documents %d-%d: %w", start, end-1, err)
		}
		published += len(events)
		p.logger.Debug("batch published", "count", len(events), "total", published)
	}
	p.logger.Info("corpus published", "doc_count", published)
	return published, nil
}
