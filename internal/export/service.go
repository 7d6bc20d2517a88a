// Package export produces XLSX workbooks of stored bills for offline
// review and sharing.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sejmwatch/bills-tracker/internal/repository"
)

// Service is a tiny façade over the bill repository that produces XLSX
// bytes for exports.
type Service struct {
	repo   repository.BillRepository
	logger *slog.Logger
}

func NewService(repo repository.BillRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportBillsXLSX returns an XLSX workbook (as bytes) for bills
// matching the filter. If only From is provided the window runs to
// today; if neither is provided every bill is exported.
func (s *Service) ExportBillsXLSX(ctx context.Context, filter repository.Filter) ([]byte, error) {
	start := time.Now()

	if !filter.From.IsZero() && filter.To.IsZero() {
		today := time.Now().UTC()
		filter.To = time.Date(today.Year(), today.Month(), today.Day(), 23, 59, 59, 0, time.UTC)
	}

	bills, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Bills"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defaultIndex, _ := f.GetSheetIndex("Sheet1"); defaultIndex != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Number",
		"Title",
		"Status",
		"Submission Date",
		"Authors",
		"Project Type",
		"Tags",
		"Passed",
		"Votes For",
		"Votes Against",
		"Abstained",
		"Source URL",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, b := range bills {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, b.Number)
		write(2, b.Title)
		write(3, string(b.Status))
		if !b.SubmissionDate.IsZero() {
			write(4, b.SubmissionDate.Format("2006-01-02"))
		} else {
			write(4, "")
		}
		write(5, b.Authors)
		write(6, string(b.ProjectType))
		write(7, strings.Join(b.Tags, ", "))
		write(8, b.Passed)
		if b.VotingResults != nil {
			write(9, b.VotingResults.Yes)
			write(10, b.VotingResults.No)
			write(11, b.VotingResults.Abstain)
		}
		write(12, b.SourceURL)
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.done",
		"bills", len(bills),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
