package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-retrieval/pkg/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "irsearch",
		Usage: "Boolean and proximity retrieval over a text corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"IR_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override logging level (debug, info, warn, error)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the query API over HTTP",
				Action: serveCommand,
			},
			{
				Name:      "query",
				Usage:     "Run one query against a directory and print the matching documents",
				ArgsUsage: "<query...>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dir",
						Aliases:  []string{"d"},
						Usage:    "Corpus directory",
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "proximity",
						Aliases: []string{"p"},
						Usage:   "Treat the query as a two-term proximity query",
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Proximity window in tokens",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Documents normalized in parallel",
						Value: 4,
					},
				},
			},
			{
				Name:   "publish",
				Usage:  "Publish a directory's documents to the Kafka document topic",
				Action: publishCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dir",
						Aliases:  []string{"d"},
						Usage:    "Corpus directory",
						Required: true,
					},
				},
			},
			{
				Name:   "import",
				Usage:  "Copy a directory's documents into the PostgreSQL documents table",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dir",
						Aliases:  []string{"d"},
						Usage:    "Corpus directory",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Give up after this long",
						Value: time.Minute,
					},
				},
			},
		},
	}
}

// setupLogger installs the default logger on stderr so stdout carries only
// command output.
func setupLogger(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	slog.SetDefault(logger.New(c.App.ErrWriter, level, cfg.Logging.Format))
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
