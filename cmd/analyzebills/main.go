package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sejmwatch/bills-tracker/internal/analysis"
	"github.com/sejmwatch/bills-tracker/internal/common"
	"github.com/sejmwatch/bills-tracker/internal/repository"
)

func main() {
	var (
		limit = flag.Int("limit", 0, "max bills to analyze, 0 = all")
		force = flag.Bool("force", false, "re-analyze bills that already have an analysis")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()
	if cfg.Analysis.APIKey == "" {
		logger.Error("OPENAI_API_KEY required")
		os.Exit(1)
	}

	store, err := repository.Open(cfg.Storage.DataDir)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("close database", "error", cerr)
		}
	}()

	analyzer := analysis.NewAnalyzer(analysis.Config{
		BaseURL:     cfg.Analysis.BaseURL,
		Model:       cfg.Analysis.Model,
		APIKey:      cfg.Analysis.APIKey,
		Temperature: cfg.Analysis.Temperature,
		Timeout:     cfg.Analysis.Timeout,
	}, logger)

	filter := repository.Filter{Limit: *limit}
	if !*force {
		filter.MissingAnalysis = true
	}
	bills, err := store.List(ctx, filter)
	if err != nil {
		logger.Error("list bills", "error", err)
		os.Exit(1)
	}

	var done, skipped int
	for i := range bills {
		b := &bills[i]
		payload, err := analyzer.Analyze(ctx, b.FullText, b.Description, b.Title)
		if err != nil {
			if errors.Is(err, common.ErrInvalidInput) {
				logger.Info("analysis.skipped_thin_text", "number", b.Number)
			} else {
				logger.Error("analysis.failed", "number", b.Number, "error", err)
			}
			skipped++
			continue
		}
		if err := store.SetAnalysis(ctx, b.Number, payload, time.Now().UTC()); err != nil {
			logger.Error("analysis.store_failed", "number", b.Number, "error", err)
			skipped++
			continue
		}
		done++
	}

	fmt.Printf("analyzed=%d skipped=%d\n", done, skipped)
}
