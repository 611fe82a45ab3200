// Copyright 2025 Switchwise
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
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/switchwise/newspulse"
	"github.com/switchwise/newspulse/ai"
	"github.com/switchwise/newspulse/ai/openai"
	"github.com/switchwise/newspulse/api"
	"github.com/switchwise/newspulse/reembed"
	"github.com/switchwise/newspulse/schedule"
	"github.com/switchwise/newspulse/storage/badger"
	"github.com/switchwise/newspulse/trending"
	"github.com/switchwise/newspulse/webhook"
	"github.com/urfave/cli/v2"
)

func main() {
	// Load a local .env before flag parsing so EnvVars pick it up
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
	}

	app := &cli.App{
		Name:  "newspulse",
		Usage: "Cross-source news trending and semantic search service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"NEWSPULSE_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and background trending jobs",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
						EnvVars:  []string{"NEWSPULSE_DB"},
					},
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address for the HTTP API",
						Value:   ":8009",
						EnvVars: []string{"NEWSPULSE_ADDR"},
					},
					&cli.StringFlag{
						Name:    "embedding-host",
						Usage:   "Embedding service host URL",
						Value:   "http://localhost:11434/v1",
						EnvVars: []string{"NEWSPULSE_EMBEDDING_HOST"},
					},
					&cli.StringFlag{
						Name:    "embedding-model",
						Usage:   "Embedding model name",
						Value:   "all-mpnet-base-v2",
						EnvVars: []string{"NEWSPULSE_EMBEDDING_MODEL"},
					},
					&cli.Float64Flag{
						Name:    "trending-threshold",
						Usage:   "Cosine similarity threshold for cross-source trending",
						Value:   trending.DefaultThreshold,
						EnvVars: []string{"NEWSPULSE_TRENDING_THRESHOLD"},
					},
					&cli.StringFlag{
						Name:    "trending-schedule",
						Usage:   "Cron expression for the trending webhook job",
						Value:   "*/30 * * * *",
						EnvVars: []string{"NEWSPULSE_TRENDING_SCHEDULE"},
					},
					&cli.IntFlag{
						Name:    "trending-first",
						Usage:   "Page size for the scheduled trending window",
						Value:   150,
						EnvVars: []string{"NEWSPULSE_TRENDING_FIRST"},
					},
					&cli.StringFlag{
						Name:    "webhook-url",
						Usage:   "Endpoint for scheduled trending deliveries (disabled when empty)",
						EnvVars: []string{"NEWSPULSE_WEBHOOK_URL"},
					},
				},
			},
			{
				Name:   "trending",
				Usage:  "Detect trending articles for a window and print them as JSON",
				Action: trendingCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
						EnvVars:  []string{"NEWSPULSE_DB"},
					},
					&cli.StringFlag{
						Name:  "start-date",
						Usage: "Window start (YYYY-MM-DD), defaults to yesterday",
					},
					&cli.StringFlag{
						Name:  "end-date",
						Usage: "Window end (YYYY-MM-DD), defaults to today",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Cosine similarity threshold for cross-source trending",
						Value: trending.DefaultThreshold,
					},
					&cli.IntFlag{
						Name:  "first",
						Usage: "Articles per page",
						Value: trending.DefaultPageSize,
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "1-based page of the window",
						Value: 1,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all articles with new embeddings",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
						EnvVars:  []string{"NEWSPULSE_DB"},
					},
					&cli.StringFlag{
						Name:    "embedding-host",
						Usage:   "Embedding service host URL",
						Value:   "http://localhost:11434/v1",
						EnvVars: []string{"NEWSPULSE_EMBEDDING_HOST"},
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
						EnvVars:  []string{"NEWSPULSE_EMBEDDING_MODEL"},
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of articles to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N articles",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	db, err := newspulse.NewDatabase(c.String("db"), newspulse.WithAIConfig(aiConfig))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	detector, err := db.NewDetector(
		trending.WithThreshold(float32(c.Float64("trending-threshold"))),
	)
	if err != nil {
		return fmt.Errorf("failed to create trending detector: %w", err)
	}

	searcher, err := db.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	server, err := api.NewServer(c.String("addr"), db.ArticleRepository(), pipeline, detector, searcher)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	scheduler, err := schedule.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	// Scheduled trending deliveries are optional
	if webhookURL := c.String("webhook-url"); webhookURL != "" {
		notifier, err := webhook.NewNotifier(webhookURL)
		if err != nil {
			return fmt.Errorf("invalid webhook configuration: %w", err)
		}

		first := c.Int("trending-first")
		job := trendingWebhookJob(detector, notifier, first)
		if err := scheduler.RegisterJob("trending-webhook", c.String("trending-schedule"), job); err != nil {
			return fmt.Errorf("invalid trending schedule: %w", err)
		}
	}

	scheduler.Start()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		slog.Error("scheduler did not stop cleanly", "err", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}

// trendingWebhookJob detects trending stories over yesterday and today
// and posts them to the webhook endpoint.
func trendingWebhookJob(detector *trending.Detector, notifier *webhook.Notifier, first int) schedule.Job {
	return func(ctx context.Context) error {
		now := time.Now().UTC()
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
		end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)

		results, err := detector.Detect(ctx, start, end, first, 1)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			slog.Info("no trending articles in window", "start", start, "end", end)
			return nil
		}

		return notifier.Deliver(ctx, map[string]any{
			"window_start": start,
			"window_end":   end,
			"trending":     results,
		})
	}
}

func trendingCommand(c *cli.Context) error {
	ctx := context.Background()

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)

	if raw := c.String("start-date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid start-date %q: use YYYY-MM-DD", raw)
		}
		start = parsed
	}
	if raw := c.String("end-date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid end-date %q: use YYYY-MM-DD", raw)
		}
		end = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, 0, time.UTC)
	}

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewArticleRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	detector, err := trending.NewDetector(repo,
		trending.WithThreshold(float32(c.Float64("threshold"))),
	)
	if err != nil {
		return err
	}

	results, err := detector.Detect(ctx, start, end, c.Int("first"), c.Int("page"))
	if err != nil {
		return fmt.Errorf("trending detection failed: %w", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	// Validate flags
	dbPath := c.String("db")
	if dbPath == "" {
		return errors.New("database path is required")
	}

	// Open database
	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewArticleRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	// Create AI config
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	// Create embedder
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	// Create reembedding config
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	// Validate config
	if reembedConfig.BatchSize <= 0 {
		return errors.New("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return errors.New("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return errors.New("max-retries must be greater than 0")
	}

	// Create reembedder
	reembedder := reembed.NewReembedder(repo, embedder, reembedConfig, os.Stderr)

	// Run reembedding
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	return nil
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
