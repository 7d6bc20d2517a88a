package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sejmwatch/bills-tracker/internal/common"
)

const modelResponse = `**O CZYM JEST TEN PROJEKT:**
Projekt zmienia zasady opodatkowania dochodów osobistych.

**DOBRE STRONY PROJEKTU:**
Uproszczenie rozliczeń dla podatników.

**ZAGROŻENIA Z PROJEKTU:**
Możliwy ubytek dochodów budżetowych.`

func TestParseSections(t *testing.T) {
	s := ParseSections(modelResponse, DefaultSectionLabels())
	assert.Equal(t, "Projekt zmienia zasady opodatkowania dochodów osobistych.", s.Summary)
	assert.Equal(t, "Uproszczenie rozliczeń dla podatników.", s.Benefits)
	assert.Equal(t, "Możliwy ubytek dochodów budżetowych.", s.Risks)
}

func TestParseSectionsLegacyLabels(t *testing.T) {
	legacy := `**ZAGROŻENIA DLA PAŃSTWA POLSKIEGO:**
Ryzyko fiskalne.

**KORZYŚCI DLA PAŃSTWA POLSKIEGO:**
Niższe podatki.`

	s := ParseSections(legacy, DefaultSectionLabels())
	assert.Equal(t, "Ryzyko fiskalne.", s.Risks)
	assert.Equal(t, "Niższe podatki.", s.Benefits)
	assert.Empty(t, s.Summary)
}

func TestParseSectionsMissingSections(t *testing.T) {
	s := ParseSections("Brak struktury w odpowiedzi.", DefaultSectionLabels())
	assert.Empty(t, s.Summary)
	assert.Empty(t, s.Benefits)
	assert.Empty(t, s.Risks)
}

func TestPrepareText(t *testing.T) {
	long := strings.Repeat("a", 9000)
	text, ok := prepareText(long, "")
	require.True(t, ok)
	assert.Len(t, text, maxPromptTextLen)

	text, ok = prepareText("krótki", "opis który jest wystarczająco długi żeby go użyć zamiast tekstu")
	require.True(t, ok)
	assert.Contains(t, text, "opis")

	_, ok = prepareText("krótki", "też krótki")
	assert.False(t, ok)
}

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": modelResponse}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	a := NewAnalyzer(Config{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	payload, err := a.Analyze(context.Background(), strings.Repeat("Art. 1. Tekst ustawy. ", 20), "", "Projekt ustawy o podatkach")
	require.NoError(t, err)

	var res Result
	require.NoError(t, json.Unmarshal(payload, &res))
	assert.Equal(t, "Projekt zmienia zasady opodatkowania dochodów osobistych.", res.Summary)
	assert.Equal(t, "gpt-4o-mini", res.Model)
	assert.NotEmpty(t, res.GeneratedAt)
}

func TestAnalyzeRejectsThinText(t *testing.T) {
	a := NewAnalyzer(Config{BaseURL: "http://unused"}, nil)
	_, err := a.Analyze(context.Background(), "", "", "Tytuł")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewAnalyzer(Config{BaseURL: srv.URL}, nil)
	_, err := a.Analyze(context.Background(), strings.Repeat("tekst ", 50), "", "Tytuł")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUpstreamUnavailable))
}
