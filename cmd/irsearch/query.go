package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/config"
)

const noResults = "No documents found matching the query."

func queryCommand(c *cli.Context) error {
	raw := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(raw) == "" {
		return cli.Exit("a query is required", 2)
	}

	svc := searcher.New(
		corpus.NewDirSource(c.String("dir")),
		analysis.New(),
		searcher.WithIndexConfig(config.IndexConfig{Workers: c.Int("workers")}),
	)

	var (
		result *searcher.Result
		err    error
	)
	if c.Bool("proximity") {
		result, err = svc.Proximity(c.Context, raw, c.Int("k"))
	} else {
		result, err = svc.Boolean(c.Context, raw)
	}
	if err != nil {
		return err
	}

	if result.Total == 0 {
		fmt.Fprintln(c.App.Writer, noResults)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Documents found: %s\n", strings.Join(corpus.DisplayNames(result.Documents), ", "))
	return nil
}
