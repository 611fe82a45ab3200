package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/switchwise/newspulse"
	"github.com/switchwise/newspulse/core"
	"github.com/switchwise/newspulse/ingestion"
)

// sampleArticles is a small built-in corpus for local development.
// Several stories are deliberately covered by more than one source so
// the trending detector has something to find.
var sampleArticles = []core.Article{
	{
		URL:         "https://daily-ledger.example.com/economy/rate-cut",
		Title:       "Central bank cuts rates for first time in two years",
		Content:     "The central bank lowered its benchmark rate by a quarter point on Wednesday, citing cooling inflation and a softening labor market.",
		PublishedAt: time.Now().UTC().Add(-20 * time.Hour),
	},
	{
		URL:         "https://metro-herald.example.org/business/central-bank-decision",
		Title:       "Surprise rate cut as inflation eases",
		Content:     "Policymakers voted to reduce the benchmark interest rate by 25 basis points, the first cut in two years, pointing to weaker inflation readings.",
		PublishedAt: time.Now().UTC().Add(-18 * time.Hour),
	},
	{
		URL:         "https://coastal-times.example.net/science/coral-recovery",
		Title:       "Reef survey finds unexpected coral recovery",
		Content:     "Marine biologists reported a measurable rebound in coral cover across the northern reef, crediting cooler waters and restoration work.",
		PublishedAt: time.Now().UTC().Add(-16 * time.Hour),
	},
	{
		URL:         "https://daily-ledger.example.com/science/reef-rebound",
		Title:       "Northern reef shows signs of rebound, survey says",
		Content:     "An annual survey of the northern reef found coral cover up for the second year running, a recovery researchers attribute to milder sea temperatures.",
		PublishedAt: time.Now().UTC().Add(-15 * time.Hour),
	},
	{
		URL:         "https://metro-herald.example.org/tech/chip-plant",
		Title:       "New semiconductor plant breaks ground",
		Content:     "Construction began Monday on a fabrication plant expected to employ three thousand workers when it opens in 2028.",
		PublishedAt: time.Now().UTC().Add(-12 * time.Hour),
	},
	{
		URL:         "https://coastal-times.example.net/sports/marathon-record",
		Title:       "City marathon sees course record fall",
		Content:     "The men's course record fell by nearly a minute on Sunday as ideal conditions drew a record field of runners.",
		PublishedAt: time.Now().UTC().Add(-10 * time.Hour),
	},
	{
		URL:         "https://daily-ledger.example.com/weather/storm-front",
		Title:       "Storm front expected to bring heavy rain through Friday",
		Content:     "Forecasters warned of flooding in low-lying areas as a slow-moving front stalls over the region through the end of the week.",
		PublishedAt: time.Now().UTC().Add(-8 * time.Hour),
	},
	{
		URL:         "https://metro-herald.example.org/weather/flood-watch",
		Title:       "Flood watch issued as slow-moving storm stalls",
		Content:     "A flood watch is in effect through Friday evening with forecasters expecting heavy rainfall from a stalled storm system.",
		PublishedAt: time.Now().UTC().Add(-7 * time.Hour),
	},
}

var seedFileName = flag.String("src", "", "JSONL file of articles to seed")
var dbPath = flag.String("db", "./articles_db", "path to BadgerDB database directory")

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// articlesFromFile returns an iterator over articles in a JSONL file,
// one JSON object per line.
func articlesFromFile(filename string) (iter.Seq2[*core.Article, error], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(*core.Article, error) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var article core.Article
			if err := json.Unmarshal(line, &article); err != nil {
				if !yield(nil, fmt.Errorf("malformed article line: %w", err)) {
					return
				}
				continue
			}
			if !yield(&article, nil) {
				return
			}
		}
	}, nil
}

// articlesFromSlice returns an iterator over a slice of articles.
func articlesFromSlice(articles []core.Article) iter.Seq2[*core.Article, error] {
	return func(yield func(*core.Article, error) bool) {
		for i := range articles {
			article := articles[i]
			if !yield(&article, nil) {
				return
			}
		}
	}
}

// ingestBatched reads from a source iterator and ingests articles in batches.
func ingestBatched(ctx context.Context, pipeline *ingestion.Pipeline, source iter.Seq2[*core.Article, error], batchSize int) error {
	batch := make([]*core.Article, 0, batchSize)

	for article, err := range source {
		if err != nil {
			slog.Warn("skipping article", "err", err)
			continue
		}
		batch = append(batch, article)
		if len(batch) == batchSize {
			if _, err := pipeline.Ingest(ctx, batch, nil); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	// Process any remaining articles
	if len(batch) > 0 {
		if _, err := pipeline.Ingest(ctx, batch, nil); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	db, err := newspulse.NewDatabase(*dbPath)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	ingester, err := db.NewIngestionPipeline()
	if err != nil {
		panic(err)
	}
	defer ingester.Release()

	ctx := context.Background()

	// Determine source of seed data
	var source iter.Seq2[*core.Article, error]
	if seedFileName != nil && *seedFileName != "" {
		source, err = articlesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
		slog.Info("seeding from file", "src", *seedFileName)
	} else {
		source = articlesFromSlice(sampleArticles)
		slog.Info("seeding built-in sample articles", "count", len(sampleArticles))
	}

	if err := ingestBatched(ctx, ingester, source, 10); err != nil {
		panic(err)
	}

	slog.Info("seeding complete")
}
