package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sejmwatch/bills-tracker/internal/common"
	"github.com/sejmwatch/bills-tracker/internal/ocrcache"
)

func main() {
	var (
		stats    = flag.Bool("stats", false, "print cache entry count and total size")
		clearAll = flag.Bool("clear-all", false, "remove every cache entry")
		clearFor = flag.String("clear-for", "", "remove entries for one document id")
		days     = flag.Int("evict-days", 0, "remove entries older than N days")
		maxBytes = flag.Int64("evict-max-bytes", 0, "remove oldest entries until the cache fits under N bytes")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	cache, err := ocrcache.New(cfg.OCR.CacheDir, logger)
	if err != nil {
		logger.Error("open ocr cache", "error", err)
		os.Exit(1)
	}

	ran := false
	fail := func(op string, err error) {
		logger.Error(op, "error", err)
		os.Exit(1)
	}

	if *clearAll {
		ran = true
		n, err := cache.ClearAll()
		if err != nil {
			fail("clear cache", err)
		}
		fmt.Printf("removed %d entries\n", n)
	}
	if *clearFor != "" {
		ran = true
		n, err := cache.ClearFor(*clearFor)
		if err != nil {
			fail("clear document entries", err)
		}
		fmt.Printf("removed %d entries for %s\n", n, *clearFor)
	}
	if *days > 0 {
		ran = true
		n, err := cache.EvictOlderThan(*days)
		if err != nil {
			fail("evict by age", err)
		}
		fmt.Printf("evicted %d entries older than %d days\n", n, *days)
	}
	if *maxBytes > 0 {
		ran = true
		n, err := cache.EvictOverSize(*maxBytes)
		if err != nil {
			fail("evict by size", err)
		}
		fmt.Printf("evicted %d entries over the %d byte limit\n", n, *maxBytes)
	}
	if *stats || !ran {
		st, err := cache.Stats()
		if err != nil {
			fail("read cache stats", err)
		}
		fmt.Printf("dir=%s entries=%d bytes=%d\n", cache.Dir(), st.FileCount, st.TotalBytes)
	}
}
