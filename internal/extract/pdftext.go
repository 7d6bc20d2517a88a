package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PageTextReader reads the embedded text layer of a PDF, one string per
// page. Scanned PDFs typically yield empty or near-empty pages.
type PageTextReader interface {
	ReadPages(data []byte) ([]string, error)
}

type pdfPageReader struct{}

// NewPDFPageReader returns the native text-layer reader, for callers
// that work on PDFs without the OCR fallback.
func NewPDFPageReader() PageTextReader {
	return pdfPageReader{}
}

// ReadPages decodes the text layer page by page. The underlying library
// panics on some malformed documents, so the whole read is guarded and a
// panic surfaces as a plain error.
func (pdfPageReader) ReadPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf text layer: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdf text layer: %w", err)
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}
	return pages, nil
}
