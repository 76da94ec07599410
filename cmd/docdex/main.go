// Copyright 2025 Veldt Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/veldtlabs/docdex"
	"github.com/veldtlabs/docdex/core"
	"github.com/veldtlabs/docdex/embed"
	"github.com/veldtlabs/docdex/ingest"
)

func main() {
	app := &cli.App{
		Name:  "docdex",
		Usage: "Build and query a semantic index over scanned document corpora",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "Ingest a corpus: extract text, embed it, and index it",
				ArgsUsage: "CORPUS_ROOT",
				Action:    buildCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the document store directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to a YAML pipeline config file",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
						Value: "all-minilm",
					},
					&cli.StringFlag{
						Name:  "ocr-lang",
						Usage: "Recognition language passed to tesseract",
						Value: "eng",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Number of recognition workers (0 = half the CPUs)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents embedded and committed per batch",
					},
					&cli.DurationFlag{
						Name:  "flush-timeout",
						Usage: "Flush a partial batch after this duration",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Search the index for documents similar to the query text",
				ArgsUsage: "QUERY...",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the document store directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
						Value: "all-minilm",
					},
					&cli.StringFlag{
						Name:  "label",
						Usage: "Restrict results to one label",
					},
					&cli.IntFlag{
						Name:    "max-hits",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Report ingestion progress recorded in the ledger",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to the document store directory",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "failures",
						Usage: "List failed documents with their last error",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func buildCommand(c *cli.Context) error {
	root := c.Args().First()
	if root == "" {
		return fmt.Errorf("corpus root is required")
	}

	config, err := buildConfig(c)
	if err != nil {
		return err
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline, err := store.NewPipeline(
		ingest.WithConfig(config),
		ingest.WithProgress(os.Stderr),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	// Ctrl-C cancels the run; the pipeline checkpoints its progress so a
	// later build resumes where this one stopped.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Store: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Corpus: %s\n", root)
	fmt.Fprintf(os.Stderr, "Workers: %d, batch size: %d\n\n", config.Workers, config.BatchSize)

	summary, err := pipeline.Run(ctx, root)
	if summary != nil {
		printSummary(summary)
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	return nil
}

func queryCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query text is required")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	searcher, err := store.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	results, err := searcher.SearchLabel(context.Background(), query, c.String("label"), c.Int("max-hits"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matching documents.")
		return nil
	}

	for i, result := range results {
		fmt.Printf("%2d. [%.3f] %-12s %s\n", i+1, result.Score, result.Record.Label, result.Record.SourcePath)
		fmt.Printf("    %s\n", excerpt(result.Record.Text, 120))
	}

	return nil
}

func statusCommand(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	entries, err := store.LedgerRepository().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}

	count, err := store.DocumentRepository().CountDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	byState := map[core.State]int{}
	for _, entry := range entries {
		byState[entry.State]++
	}

	fmt.Printf("Store: %s\n", c.String("db"))
	fmt.Printf("Stored records: %d\n", count)
	fmt.Printf("Ledger entries: %d\n", len(entries))
	for _, state := range []core.State{core.StatePending, core.StateOCRDone, core.StateEmbedded, core.StatePersisted, core.StateFailed} {
		if byState[state] > 0 {
			fmt.Printf("  %-10s %d\n", state.String()+":", byState[state])
		}
	}

	if c.Bool("failures") {
		for _, entry := range entries {
			if entry.State != core.StateFailed {
				continue
			}
			fmt.Printf("failed id=%d attempts=%d lastError=%q\n", entry.Id, entry.Attempts, entry.LastError)
		}
	}

	return nil
}

// openStore opens the document store named by the --db flag, wiring the
// embedding endpoint flags when the command declares them.
func openStore(c *cli.Context) (*docdex.Store, error) {
	opts := []docdex.StoreOption{}

	if host := c.String("embedding-host"); host != "" {
		opts = append(opts, docdex.WithEmbeddingConfig(embed.NewConfig(
			embed.WithHost(host),
			embed.WithModel(c.String("embedding-model")),
		)))
	}
	if lang := c.String("ocr-lang"); lang != "" {
		opts = append(opts, docdex.WithOCRLanguage(lang))
	}

	store, err := docdex.OpenStore(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

// buildConfig assembles the pipeline config: file first, flags override.
func buildConfig(c *cli.Context) (*ingest.Config, error) {
	config := ingest.DefaultConfig()

	if path := c.String("config"); path != "" {
		loaded, err := ingest.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if c.IsSet("workers") {
		config.Workers = c.Int("workers")
	}
	if c.IsSet("batch-size") {
		config.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("flush-timeout") {
		config.FlushTimeout = c.Duration("flush-timeout")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func printSummary(s *ingest.Summary) {
	fmt.Fprintf(os.Stderr, "\nRun %s finished in %v\n", s.RunID, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  scanned:     %d\n", s.Scanned)
	fmt.Fprintf(os.Stderr, "  persisted:   %d\n", s.Persisted)
	fmt.Fprintf(os.Stderr, "  skipped:     %d\n", s.Skipped)
	fmt.Fprintf(os.Stderr, "  unsupported: %d\n", s.Unsupported)
	fmt.Fprintf(os.Stderr, "  failed:      %d\n", s.Failed)
	if s.Exhausted > 0 {
		fmt.Fprintf(os.Stderr, "  exhausted:   %d\n", s.Exhausted)
	}
	if s.Interrupted {
		fmt.Fprintln(os.Stderr, "  run was interrupted; re-run build to resume")
	}
	for _, failure := range s.Failures {
		fmt.Fprintf(os.Stderr, "  FAILED %s (%s): %s\n", failure.SourcePath, failure.Stage, failure.Reason)
	}
	for _, dir := range s.UnreadableDirs {
		fmt.Fprintf(os.Stderr, "  UNREADABLE %s\n", dir)
	}
}

// excerpt returns the first maxLen runes of text on a single line.
func excerpt(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
