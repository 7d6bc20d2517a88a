package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sejmwatch/bills-tracker/constants"
	"github.com/sejmwatch/bills-tracker/internal/entity"
	"github.com/sejmwatch/bills-tracker/internal/repository"
)

func seedStore(t *testing.T) *repository.Store {
	t.Helper()
	store, err := repository.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &entity.Bill{
		Number:         "1219",
		Title:          "Rządowy projekt ustawy o podatkach",
		Status:         constants.StatusFirstReading,
		SubmissionDate: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
		Authors:        "Rząd Rzeczypospolitej Polskiej",
		ProjectType:    constants.ProjectGovernmental,
		DataSource:     constants.SourceAPI,
		Tags:           []string{"Podatki"},
		VotingResults:  &entity.VotingResults{Yes: 231, No: 198, Abstain: 4},
	}))
	require.NoError(t, store.Create(ctx, &entity.Bill{
		Number:         "1300",
		Title:          "Poselski projekt ustawy o ochronie zdrowia",
		Status:         constants.StatusSenate,
		SubmissionDate: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
		DataSource:     constants.SourceAPI,
	}))
	return store
}

func TestExportBillsXLSX(t *testing.T) {
	s := NewService(seedStore(t), nil)

	data, err := s.ExportBillsXLSX(context.Background(), repository.Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bills")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two bills")

	assert.Equal(t, "Number", rows[0][0])
	// Newest submission first.
	assert.Equal(t, "1300", rows[1][0])
	assert.Equal(t, "1219", rows[2][0])
	assert.Equal(t, "231", rows[2][8])
	assert.Equal(t, "Podatki", rows[2][6])
}

func TestExportBillsXLSXStatusFilter(t *testing.T) {
	s := NewService(seedStore(t), nil)

	data, err := s.ExportBillsXLSX(context.Background(), repository.Filter{Status: constants.StatusSenate})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bills")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1300", rows[1][0])
}
