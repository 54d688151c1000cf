// Copyright 2025 Poiesic Systems
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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/civiclens/bioindex"
	"github.com/civiclens/bioindex/ai"
	"github.com/civiclens/bioindex/chunker"
	"github.com/civiclens/bioindex/core"
	"github.com/civiclens/bioindex/ingestion"
)

func main() {
	app := &cli.App{
		Name:  "bioindex",
		Usage: "Searchable index over scraped biographical documents",
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
				Name:   "ingest",
				Usage:  "Ingest scraped documents into the index",
				Action: ingestCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:     "data",
						Usage:    "Path to a scraped document JSON file or a directory of them",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Rebuild documents that are already ingested",
					},
					&cli.IntFlag{
						Name:  "window",
						Usage: "Chunk window size in tokens",
						Value: chunker.DefaultWindowSize,
					},
					&cli.IntFlag{
						Name:  "overlap",
						Usage: "Token overlap between consecutive windows",
						Value: chunker.DefaultOverlap,
					},
					&cli.IntFlag{
						Name:  "min-chunk",
						Usage: "Minimum tail size in tokens before folding into the previous window",
						Value: chunker.DefaultMinChunkTokens,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Worker pool size for concurrent embedding",
					},
				),
			},
			{
				Name:   "query",
				Usage:  "Query the index for relevant passages",
				Action: queryCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Query text",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "results",
						Aliases: []string{"n"},
						Usage:   "Number of passages to return",
					},
					&cli.StringFlag{
						Name:    "politician",
						Aliases: []string{"p"},
						Usage:   "Restrict results to one subject by name",
					},
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Restrict results to one section kind (biography, speech, statement, news)",
					},
					&cli.StringFlag{
						Name:  "document",
						Usage: "Restrict results to one document ID",
					},
				),
			},
			{
				Name:   "delete",
				Usage:  "Remove a document's records from the index",
				Action: deleteCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:     "document",
						Usage:    "Document ID to remove",
						Required: true,
					},
				),
			},
			{
				Name:   "count",
				Usage:  "Count records in the index",
				Action: countCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:    "politician",
						Aliases: []string{"p"},
						Usage:   "Count only one subject's records",
					},
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Count only one section kind",
					},
					&cli.StringFlag{
						Name:  "document",
						Usage: "Count only one document's records",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func databaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the index database directory",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "flat",
			Usage: "Force the flat in-memory index instead of badger",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
	}
}

func openDatabase(c *cli.Context) (*bioindex.Database, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []bioindex.DatabaseOption{bioindex.WithAIConfig(aiConfig)}
	if c.Bool("flat") {
		opts = append(opts, bioindex.WithBackend(bioindex.BackendFlat))
	}

	return bioindex.Open(c.String("db"), opts...)
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg := chunker.Config{
		WindowSize:     c.Int("window"),
		Overlap:        c.Int("overlap"),
		MinChunkTokens: c.Int("min-chunk"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	docs, err := loadDocuments(c.String("data"))
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents found at %s", c.String("data"))
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var ctrlOpts []ingestion.Option
	if size := c.Int("pool-size"); size > 0 {
		ctrlOpts = append(ctrlOpts, ingestion.WithPoolSize(size))
	}
	ctrl, err := db.NewIngestionController(ctrlOpts...)
	if err != nil {
		return err
	}
	defer ctrl.Release()

	tracker := ingestion.NewProgressTracker(os.Stderr, len(docs), 1)
	tracker.Start()

	inserted, skipped, deleted, failed := 0, 0, 0, 0
	for _, doc := range docs {
		report, err := ctrl.Ingest(ctx, doc, cfg, c.Bool("force"))
		if err != nil {
			// One bad document must not sink the rest of the batch.
			slog.Error("error ingesting document", "document", doc.ID, "err", err)
			failed++
			tracker.Increment(1)
			continue
		}
		inserted += report.Inserted
		skipped += report.Skipped
		deleted += report.Deleted
		tracker.Increment(1)
	}
	tracker.Finish()

	fmt.Printf("Documents: %d\nInserted: %d\nSkipped: %d\nDeleted: %d\nFailed: %d\n",
		len(docs), inserted, skipped, deleted, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	filter, err := buildFilter(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := db.NewQueryEngine()
	if err != nil {
		return err
	}

	passages, err := engine.Query(context.Background(), c.String("query"), c.Int("results"), filter)
	if err != nil {
		return err
	}

	if len(passages) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, p := range passages {
		fmt.Printf("%d. [%.4f] %s (%s)\n", i+1, p.Score, p.Subject, p.Section)
		fmt.Printf("   %s\n", truncate(p.Text, 300))
		if p.SourceURL != "" {
			fmt.Printf("   source: %s\n", p.SourceURL)
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func deleteCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := db.Index().DeleteByDocument(context.Background(), c.String("document"))
	if err != nil {
		return err
	}

	fmt.Printf("Deleted: %d\n", deleted)
	return nil
}

func countCommand(c *cli.Context) error {
	filter, err := buildFilter(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	count, err := db.Index().Count(context.Background(), filter)
	if err != nil {
		return err
	}

	fmt.Printf("Records: %d\n", count)
	return nil
}

func buildFilter(c *cli.Context) (core.Filter, error) {
	filter := core.Filter{
		Subject:    c.String("politician"),
		DocumentID: c.String("document"),
	}
	if kindStr := c.String("type"); kindStr != "" {
		kind, ok := core.ParseSectionKind(kindStr)
		if !ok {
			return core.Filter{}, fmt.Errorf("%w: %q", core.ErrInvalidSectionKind, kindStr)
		}
		filter.Section = kind
	}
	return filter, nil
}

// loadDocuments reads one scraped document JSON file, or every *.json file
// in a directory.
func loadDocuments(path string) ([]*core.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		doc, err := loadDocument(path)
		if err != nil {
			return nil, err
		}
		return []*core.Document{doc}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var docs []*core.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		doc, err := loadDocument(filepath.Join(path, entry.Name()))
		if err != nil {
			// Skip malformed files so one bad scrape does not block the batch.
			slog.Warn("skipping malformed document file", "file", entry.Name(), "err", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func loadDocument(path string) (*core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc := &core.Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc.ID == "" {
		doc.ID = core.SlugFromName(doc.Name)
	}
	if err := core.ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return doc, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
