package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/resilience"
)

const (
	selectDocumentsSQL = `SELECT id, body FROM documents ORDER BY id`
	upsertDocumentSQL  = `INSERT INTO documents (id, body, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`
)

// PostgresSource reads the corpus from the documents table.
type PostgresSource struct {
	client *postgres.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

func NewPostgresSource(client *postgres.Client) *PostgresSource {
	return &PostgresSource{
		client: client,
		logger: slog.Default().With("component", "postgres-source"),
	}
}

// Load reads all documents, retrying transient failures with backoff.
func (s *PostgresSource) Load(ctx context.Context) ([]Document, error) {
	docs, err := resilience.Do(ctx, "load-documents", s.retry, s.query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrCorpusUnavailable, err)
	}
	s.logger.Debug("corpus loaded", "doc_count", len(docs))
	return docs, nil
}

func (s *PostgresSource) query(ctx context.Context) ([]Document, error) {
	rows, err := s.client.DB.QueryContext(ctx, selectDocumentsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Text); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return docs, nil
}

// Import upserts docs in a single transaction.
func (s *PostgresSource) Import(ctx context.Context, docs []Document) error {
	if err := s.client.Migrate(ctx); err != nil {
		return err
	}
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertDocumentSQL)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for _, d := range docs {
			if _, err := stmt.ExecContext(ctx, d.ID, d.Text); err != nil {
				return fmt.Errorf("upserting document %s: %w", d.ID, err)
			}
		}
		s.logger.Info("documents imported", "doc_count", len(docs))
		return nil
	})
}
