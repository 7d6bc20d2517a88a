package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sejmwatch/bills-tracker/internal/common"
	"github.com/sejmwatch/bills-tracker/internal/extract"
	"github.com/sejmwatch/bills-tracker/internal/ocrcache"
	"github.com/sejmwatch/bills-tracker/internal/pipeline"
	"github.com/sejmwatch/bills-tracker/internal/repository"
	"github.com/sejmwatch/bills-tracker/internal/sejmapi"
	"github.com/sejmwatch/bills-tracker/internal/votes"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		source        = flag.String("source", pipeline.SourcePrints, "upstream source: prints | processes | votings")
		proceeding    = flag.Int("proceeding", 0, "sitting number for --source votings, 0 = current sitting")
		term          = flag.Int("term", 0, "Sejm term number (overrides SEJM_TERM)")
		limit         = flag.Int("limit", 0, "max records to process, 0 = all")
		force         = flag.Bool("force", false, "overwrite existing bills")
		missingText   = flag.Bool("missing-text", false, "re-extract text for stored bills without full text")
		refreshStatus = flag.Bool("refresh-status", false, "recompute statuses from titles for all stored bills")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()
	if *term > 0 {
		cfg.SejmAPI.Term = *term
	}
	if *proceeding > 0 {
		cfg.SejmAPI.Proceeding = *proceeding
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

	cache, err := ocrcache.New(cfg.OCR.CacheDir, logger)
	if err != nil {
		logger.Error("open ocr cache", "error", err)
		os.Exit(1)
	}

	client := sejmapi.NewClient(sejmapi.Config{
		BaseURL:         cfg.SejmAPI.BaseURL,
		Term:            cfg.SejmAPI.Term,
		Timeout:         cfg.SejmAPI.Timeout,
		DownloadTimeout: cfg.SejmAPI.DownloadTimeout,
		RequestsPerSec:  cfg.SejmAPI.RequestsPerSec,
	}, logger)

	extractor := extract.NewExtractor(extract.Config{
		Pdftoppm:   cfg.OCR.Pdftoppm,
		Tesseract:  cfg.OCR.Tesseract,
		Language:   cfg.OCR.Language,
		DPI:        cfg.OCR.DPI,
		MinTextLen: cfg.OCR.MinTextLen,
		MaxPages:   cfg.OCR.MaxPages,
	}, cache, logger)

	p := pipeline.New(client, extractor, votes.NewParser(logger), store, logger)

	var sum pipeline.Summary
	switch {
	case *missingText:
		sum, err = p.ReparseMissingText(ctx, *limit)
	case *refreshStatus:
		sum, err = p.RefreshStatuses(ctx)
	default:
		sum, err = p.Ingest(ctx, pipeline.Options{
			Source:     *source,
			Proceeding: cfg.SejmAPI.Proceeding,
			Limit:      *limit,
			Force:      *force,
		})
	}
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("created=%d updated=%d unchanged=%d skipped=%d\n",
		sum.Created, sum.Updated, sum.Unchanged, len(sum.Skipped))
	for _, s := range sum.Skipped {
		fmt.Printf("  skipped %s: %s\n", s.Identifier, s.Reason)
	}
}
