// Package analysis produces the Polish-language AI summary stored on a
// bill: what the bill does, its upsides and its risks. The model output
// is sliced into labeled sections and persisted as a validated JSON
// payload.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sejmwatch/bills-tracker/internal/common"
)

// Prompt text limits. Bills shorter than minFullTextLen fall back to
// the description; a bill with neither is not analyzable.
const (
	maxPromptTextLen  = 8000
	minFullTextLen    = 100
	minDescriptionLen = 50
)

type Config struct {
	BaseURL     string // default https://api.openai.com/v1
	Model       string // default gpt-4o-mini
	APIKey      string
	Temperature float32       // default 0.7
	Timeout     time.Duration // default 60s
	Labels      SectionLabels // zero value -> DefaultSectionLabels
}

// Result is the stored analysis payload.
type Result struct {
	Sections
	Model       string `json:"model"`
	GeneratedAt string `json:"generated_at"`
}

type Analyzer struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewAnalyzer(cfg Config, logger *slog.Logger) *Analyzer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Labels == (SectionLabels{}) {
		cfg.Labels = DefaultSectionLabels()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

// Analyze generates the analysis payload for one bill. It returns
// common.ErrInvalidInput when neither full text nor description carries
// enough material to analyze.
func (a *Analyzer) Analyze(ctx context.Context, fullText, description, title string) (json.RawMessage, error) {
	text, ok := prepareText(fullText, description)
	if !ok {
		return nil, fmt.Errorf("%w: not enough text to analyze", common.ErrInvalidInput)
	}

	body := map[string]any{
		"model":       a.cfg.Model,
		"temperature": a.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "user", "content": a.buildPrompt(text, title)},
		},
	}
	endpoint := strings.TrimRight(a.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{}
	if a.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + a.cfg.APIKey
	}

	raw, _, err := sendJSON(ctx, a.http, endpoint, body, headers, a.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: analysis request: %v", common.ErrUpstreamUnavailable, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("%w: decode analysis response: %v", common.ErrMalformedPayload, err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("%w: analysis response has no choices", common.ErrMalformedPayload)
	}

	result := Result{
		Sections:    ParseSections(cc.Choices[0].Message.Content, a.cfg.Labels),
		Model:       a.cfg.Model,
		GeneratedAt: a.now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	if err := validateJSONAgainstSchema(buildAnalysisJSONSchema(), payload); err != nil {
		return nil, fmt.Errorf("%w: analysis payload: %v", common.ErrMalformedPayload, err)
	}

	a.logger.Info("analysis.done",
		"model", a.cfg.Model,
		"summary_chars", len(result.Summary),
		"benefits_chars", len(result.Benefits),
		"risks_chars", len(result.Risks),
	)
	return payload, nil
}

// prepareText picks what goes into the prompt: the full text when it is
// substantial (capped), otherwise a long-enough description.
func prepareText(fullText, description string) (string, bool) {
	if len(fullText) > minFullTextLen {
		r := []rune(fullText)
		if len(r) > maxPromptTextLen {
			r = r[:maxPromptTextLen]
		}
		return string(r), true
	}
	if len(description) > minDescriptionLen {
		return description, true
	}
	return "", false
}

func (a *Analyzer) buildPrompt(text, title string) string {
	l := a.cfg.Labels
	return fmt.Sprintf(`Przeanalizuj poniższy projekt ustawy i napisz szczegółową analizę w języku polskim w następującym formacie:

%s
[Napisz w kilkunastu zdaniach szczegółowe omówienie tego projektu ustawy. Wyjaśnij co dokładnie reguluje, jakie zmiany wprowadza, jakie są jego główne postanowienia i cele.]

%s
[Napisz w kilkunastu zdaniach o potencjalnych korzyściach tego projektu dla Państwa Polskiego i obywateli polskich.]

%s
[Napisz w kilkunastu zdaniach o potencjalnych zagrożeniach tego projektu dla Państwa Polskiego i obywateli polskich.]

---

TYTUŁ PROJEKTU: %s

TEKST PROJEKTU USTAWY DO ANALIZY:
%s

---

WYMAGANIA ANALIZY:
- Bądź obiektywny, rzeczowy i szczegółowy
- Skup się na faktach prawnych i ekonomicznych, nie na opiniach politycznych
- Używaj języka zrozumiałego dla przeciętnego obywatela
- Jeśli nie ma wystarczających informacji w tekście, napisz o tym szczerze
`, l.Summary, l.Benefits, l.Risks, title, text)
}
