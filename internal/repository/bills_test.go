package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sejmwatch/bills-tracker/constants"
	"github.com/sejmwatch/bills-tracker/internal/common"
	"github.com/sejmwatch/bills-tracker/internal/entity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleBill(number string) *entity.Bill {
	return &entity.Bill{
		Number:         number,
		SejmID:         "sejm_" + number,
		Title:          "Rządowy projekt ustawy o zmianie ustawy",
		Description:    "Opis projektu",
		FullText:       "Art. 1. W ustawie wprowadza się zmiany.",
		Status:         constants.StatusFirstReading,
		SubmissionDate: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		Authors:        "Rząd Rzeczypospolitej Polskiej",
		SourceURL:      "https://www.sejm.gov.pl/Sejm10.nsf/druk.xsp?nr=" + number,
		DocumentType:   "projekt ustawy",
		ProjectType:    constants.ProjectGovernmental,
		DataSource:     constants.SourceAPI,
		Tags:           []string{"Podatki"},
		Attachments: []entity.Attachment{
			{Name: number + ".pdf", Type: "pdf", URL: "https://api.sejm.gov.pl/sejm/term10/prints/" + number + "/" + number + ".pdf"},
		},
	}
}

func TestCreateAndGetByNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := sampleBill("1219")
	b.VotingResults = &entity.VotingResults{Yes: 231, No: 198, Abstain: 4, TotalVoted: 433}
	b.ClubResults = []entity.ClubResult{{Club: "PiS", Members: 188, For: 10, Against: 170, Voted: 180}}
	b.APIData = json.RawMessage(`{"number":"1219"}`)

	require.NoError(t, s.Create(ctx, b))
	assert.NotZero(t, b.ID)

	got, err := s.GetByNumber(ctx, "1219")
	require.NoError(t, err)
	assert.Equal(t, b.Title, got.Title)
	assert.Equal(t, b.FullText, got.FullText)
	assert.Equal(t, []string{"Podatki"}, got.Tags)
	assert.Equal(t, b.SubmissionDate, got.SubmissionDate)
	require.NotNil(t, got.VotingResults)
	assert.Equal(t, 231, got.VotingResults.Yes)
	require.Len(t, got.ClubResults, 1)
	assert.Equal(t, "PiS", got.ClubResults[0].Club)
	assert.JSONEq(t, `{"number":"1219"}`, string(got.APIData))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetByNumberMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetByNumber(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestCreateDuplicateNumberFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sampleBill("1219")))
	assert.Error(t, s.Create(ctx, sampleBill("1219")))
}

func TestUpdateOverwritesFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := sampleBill("1219")
	require.NoError(t, s.Create(ctx, b))

	b.Status = constants.StatusSenate
	b.FullText = "Nowy tekst po ponownej ekstrakcji"
	b.Passed = true
	require.NoError(t, s.Update(ctx, b))

	got, err := s.GetByNumber(ctx, "1219")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusSenate, got.Status)
	assert.Equal(t, "Nowy tekst po ponownej ekstrakcji", got.FullText)
	assert.True(t, got.Passed)
}

func TestUpdateMissingBill(t *testing.T) {
	s := newTestStore(t)
	b := sampleBill("1219")
	b.ID = 12345
	err := s.Update(context.Background(), b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleBill("100")
	first.SubmissionDate = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(ctx, first))

	second := sampleBill("200")
	second.SubmissionDate = time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	second.Status = constants.StatusSenate
	second.FullText = ""
	require.NoError(t, s.Create(ctx, second))

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "200", all[0].Number, "newest submission first")

	senate, err := s.List(ctx, Filter{Status: constants.StatusSenate})
	require.NoError(t, err)
	require.Len(t, senate, 1)
	assert.Equal(t, "200", senate[0].Number)

	missing, err := s.List(ctx, Filter{MissingText: true})
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "200", missing[0].Number)

	limited, err := s.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	ranged, err := s.List(ctx, Filter{
		From: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "200", ranged[0].Number)
}

func TestSetAnalysis(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sampleBill("1219")))

	at := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
	analysis := json.RawMessage(`{"summary":"Projekt zmienia zasady"}`)
	require.NoError(t, s.SetAnalysis(ctx, "1219", analysis, at))

	got, err := s.GetByNumber(ctx, "1219")
	require.NoError(t, err)
	assert.JSONEq(t, string(analysis), string(got.AIAnalysis))
	require.NotNil(t, got.AIAnalysisDate)
	assert.Equal(t, at, *got.AIAnalysisDate)

	pending, err := s.List(ctx, Filter{MissingAnalysis: true})
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = s.SetAnalysis(ctx, "nope", analysis, at)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
