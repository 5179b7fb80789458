package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus/publisher"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/postgres"
)

func publishCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Documents)
	defer producer.Close()

	n, err := publisher.New(producer).Publish(c.Context, corpus.NewDirSource(c.String("dir")))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "published %d documents to %s\n", n, cfg.Kafka.Topics.Documents)
	return nil
}

func importCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	docs, err := corpus.NewDirSource(c.String("dir")).Load(ctx)
	if err != nil {
		return err
	}
	client, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := corpus.NewPostgresSource(client).Import(ctx, docs); err != nil {
		return err
	}
	slog.Info("import finished", "doc_count", len(docs), "database", cfg.Postgres.Database)
	fmt.Fprintf(c.App.Writer, "imported %d documents\n", len(docs))
	return nil
}
