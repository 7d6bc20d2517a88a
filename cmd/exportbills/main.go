package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sejmwatch/bills-tracker/constants"
	"github.com/sejmwatch/bills-tracker/internal/common"
	"github.com/sejmwatch/bills-tracker/internal/export"
	"github.com/sejmwatch/bills-tracker/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		out     = flag.String("out", "bills.xlsx", "output XLSX file path")
		status  = flag.String("status", "", "only bills with this status")
		fromStr = flag.String("from", "", "from submission date YYYY-MM-DD")
		toStr   = flag.String("to", "", "to submission date YYYY-MM-DD")
	)
	flag.Parse()

	filter := repository.Filter{Status: constants.BillStatus(*status)}
	if *fromStr != "" {
		parsed, err := time.Parse("2006-01-02", *fromStr)
		if err != nil {
			printError("Error: invalid --from date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		filter.From = parsed
	}
	if *toStr != "" {
		parsed, err := time.Parse("2006-01-02", *toStr)
		if err != nil {
			printError("Error: invalid --to date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		filter.To = parsed
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
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

	svc := export.NewService(store, logger)
	data, err := svc.ExportBillsXLSX(context.Background(), filter)
	if err != nil {
		logger.Error("export bills", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("write workbook", "path", *out, "error", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s (%d bytes)\n", *out, len(data))
}
