package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sejmwatch/bills-tracker/constants"
	"github.com/sejmwatch/bills-tracker/internal/common"
	"github.com/sejmwatch/bills-tracker/internal/ocrcache"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Language   string // tesseract language pack, default "pol"
	DPI        int    // rasterization DPI for scanned PDFs, default 300
	MinTextLen int    // below this the text layer counts as absent, default 50
	MaxPages   int    // 0 = no limit
}

// Result is the outcome of one document extraction. Empty Text with a
// nil error means the document was readable but carried no recoverable
// text.
type Result struct {
	Text      string
	Pages     int
	Format    constants.FileType
	Method    string // "pdf-text" | "pdf-ocr" | "docx" | "cache"
	CacheHits int
	Warnings  []string
	Duration  time.Duration
}

// Extractor turns downloaded attachments into plain text. PDFs are read
// through their embedded text layer first; scanned PDFs fall back to
// rasterization plus OCR, with every OCR page consulted against and
// written back to the cache.
type Extractor struct {
	cfg    Config
	runner Runner
	pages  PageTextReader
	cache  *ocrcache.Cache
	logger *slog.Logger
}

func NewExtractor(cfg Config, cache *ocrcache.Cache, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "pol"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextLen <= 0 {
		cfg.MinTextLen = 50
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, pages: pdfPageReader{}, cache: cache, logger: logger}
}

// Extract picks a strategy from the attachment name, falling back to
// content sniffing when the extension is unknown. docID keys the OCR
// cache; extraction itself never fails on empty output, only on a
// document that cannot be opened at all.
func (e *Extractor) Extract(ctx context.Context, docID, name string, data []byte) (Result, error) {
	start := time.Now()

	format := formatFor(name, data)
	e.logger.Debug("extract.start", "doc_id", docID, "name", name, "format", string(format), "bytes", len(data))

	var res Result
	var err error
	switch format {
	case constants.PDF:
		res, err = e.extractPDF(ctx, docID, data)
	case constants.DOCX:
		res, err = e.extractDOCX(data)
	default:
		return Result{}, fmt.Errorf("%w: unsupported attachment %q", common.ErrUnreadableDocument, name)
	}
	res.Format = format
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	e.logger.Info("extract.done",
		"doc_id", docID,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"cache_hits", res.CacheHits,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractDOCX(data []byte) (Result, error) {
	txt, err := docxText(data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", common.ErrUnreadableDocument, err)
	}
	return Result{Text: txt, Pages: 1, Method: "docx"}, nil
}

func (e *Extractor) extractPDF(ctx context.Context, docID string, data []byte) (Result, error) {
	if e.cache != nil {
		if txt, ok := e.cache.Get(docID, ocrcache.WholeDocument); ok {
			return Result{Text: txt, Method: "cache", CacheHits: 1}, nil
		}
	}

	pages, layerErr := e.pages.ReadPages(data)
	if layerErr == nil {
		txt := joinPages(pages)
		if len(strings.TrimSpace(txt)) >= e.cfg.MinTextLen {
			return Result{Text: txt, Pages: len(pages), Method: "pdf-text"}, nil
		}
		e.logger.Debug("extract.text_layer_thin", "doc_id", docID, "chars", len(strings.TrimSpace(txt)))
	} else {
		e.logger.Warn("extract.text_layer_failed", "doc_id", docID, "error", layerErr)
	}

	res, ocrErr := e.ocrPDF(ctx, docID, data)
	if ocrErr != nil {
		if layerErr != nil {
			return Result{}, fmt.Errorf("%w: text layer: %v; ocr: %v", common.ErrUnreadableDocument, layerErr, ocrErr)
		}
		// A readable but thin text layer still wins over a failed OCR run.
		txt := joinPages(pages)
		res := Result{Text: txt, Pages: len(pages), Method: "pdf-text"}
		res.Warnings = append(res.Warnings, ocrErr.Error())
		return res, nil
	}
	return res, nil
}

// ocrPDF rasterizes the document and runs OCR page by page. Each page is
// consulted against the cache before tesseract runs; a page that fails
// OCR contributes empty text and a warning rather than failing the
// document.
func (e *Extractor) ocrPDF(ctx context.Context, docID string, data []byte) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "bt-ocr-*")
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			e.logger.Warn("extract.tmp_cleanup_failed", "dir", tmpDir, "error", rerr)
		}
	}()

	pdfPath := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return Result{}, err
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", pdfPath, prefix)
	if err != nil {
		return Result{}, fmt.Errorf("pdftoppm: %v: %s", err, truncate(string(errb), 512))
	}

	// generated as prefix-1.png, prefix-2.png, ...
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return Result{}, fmt.Errorf("pdftoppm produced no images")
	}

	res := Result{Method: "pdf-ocr", Pages: len(matches)}
	texts := make([]string, 0, len(matches))
	for i, img := range matches {
		if e.cache != nil {
			if txt, ok := e.cache.Get(docID, i); ok {
				res.CacheHits++
				texts = append(texts, txt)
				continue
			}
		}
		txt, err := e.tesseractOCR(ctx, img)
		if err != nil {
			e.logger.Warn("extract.ocr_page_failed", "doc_id", docID, "page", i, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i, err))
			texts = append(texts, "")
			continue
		}
		texts = append(texts, txt)
		if e.cache != nil && strings.TrimSpace(txt) != "" {
			_ = e.cache.Put(docID, txt, i)
		}
	}

	res.Text = joinPages(texts)
	if e.cache != nil && strings.TrimSpace(res.Text) != "" {
		_ = e.cache.Put(docID, res.Text, ocrcache.WholeDocument)
	}
	return res, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Language)
	if err != nil {
		return "", fmt.Errorf("tesseract: %v: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// joinPages concatenates page texts with a blank line between non-empty
// neighbors.
func joinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p)
	}
	return b.String()
}

// formatFor resolves the extraction strategy for an attachment: an
// allowed extension wins, anything else falls back to content sniffing.
func formatFor(name string, data []byte) constants.FileType {
	ext := constants.NormalizeExt(filepath.Ext(name))
	if _, ok := constants.AllowedExtensions[ext]; ok {
		return constants.MapExtToFormat(ext)
	}
	return sniffFormat(data)
}

// sniffFormat inspects magic bytes when the attachment name gives no
// usable extension. DOCX containers are ZIP archives.
func sniffFormat(data []byte) constants.FileType {
	switch {
	case len(data) >= 5 && string(data[:5]) == "%PDF-":
		return constants.PDF
	case len(data) >= 2 && string(data[:2]) == "PK":
		return constants.DOCX
	default:
		return constants.Unknown
	}
}
