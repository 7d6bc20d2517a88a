// Package pipeline orchestrates one ingestion batch: fetch candidate
// records from the upstream listing, fetch per-record details, extract
// attachment text, parse roll-call votes and upsert canonical bills.
// Records are processed sequentially; a per-record failure is recorded
// as a skip and never aborts the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sejmwatch/bills-tracker/internal/common"
	"github.com/sejmwatch/bills-tracker/internal/entity"
	"github.com/sejmwatch/bills-tracker/internal/extract"
	"github.com/sejmwatch/bills-tracker/internal/repository"
	"github.com/sejmwatch/bills-tracker/internal/sejmapi"
	"github.com/sejmwatch/bills-tracker/internal/status"
	"github.com/sejmwatch/bills-tracker/internal/votes"
)

// Source selects which upstream resource family supplies the candidate
// listing.
const (
	SourcePrints    = "prints"
	SourceProcesses = "processes"
	SourceVotings   = "votings"
)

// SejmClient is the upstream accessor surface the pipeline needs.
type SejmClient interface {
	Term() int
	ListPrints(ctx context.Context) ([]sejmapi.Print, error)
	GetPrint(ctx context.Context, number string) (*sejmapi.Print, error)
	GetPrintAttachment(ctx context.Context, number, name string) ([]byte, error)
	AttachmentURL(number, name string) string
	ListProcesses(ctx context.Context) ([]sejmapi.Process, error)
	GetProcess(ctx context.Context, id string) (*sejmapi.Process, error)
	ListVotings(ctx context.Context, proceeding int) ([]sejmapi.Voting, error)
	ListProceedings(ctx context.Context) ([]sejmapi.Proceeding, error)
	GetVoting(ctx context.Context, proceeding, number int) (*sejmapi.Voting, error)
	GetVotingPDF(ctx context.Context, proceeding, number int) ([]byte, error)
}

// TextExtractor turns attachment blobs into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, docID, name string, data []byte) (extract.Result, error)
}

// RollCallParser parses per-deputy votes out of roll-call PDFs.
type RollCallParser interface {
	ParsePDF(data []byte) ([]votes.DeputyVote, error)
}

// Options parameterizes one batch run.
type Options struct {
	Source     string // prints | processes | votings; default prints
	Proceeding int    // sitting number, votings source only; 0 = current sitting
	Limit      int    // max records; 0 = all
	Force      bool   // overwrite existing records
}

// SkippedRecord identifies one record that failed and the reason.
type SkippedRecord struct {
	Identifier string
	Reason     string
}

// Summary is the batch outcome. Unchanged counts existing records left
// untouched on an unforced run.
type Summary struct {
	Created   int
	Updated   int
	Unchanged int
	Skipped   []SkippedRecord
}

type Pipeline struct {
	client    SejmClient
	extractor TextExtractor
	votes     RollCallParser
	repo      repository.BillRepository
	logger    *slog.Logger
	now       func() time.Time
}

func New(client SejmClient, extractor TextExtractor, parser RollCallParser, repo repository.BillRepository, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		client:    client,
		extractor: extractor,
		votes:     parser,
		repo:      repo,
		logger:    logger,
		now:       time.Now,
	}
}

// Ingest runs one batch against the selected source family.
func (p *Pipeline) Ingest(ctx context.Context, opts Options) (Summary, error) {
	switch opts.Source {
	case "", SourcePrints:
		return p.ingestPrints(ctx, opts)
	case SourceProcesses:
		return p.ingestProcesses(ctx, opts)
	case SourceVotings:
		return p.ingestVotings(ctx, opts)
	default:
		return Summary{}, fmt.Errorf("%w: unknown source %q", common.ErrInvalidInput, opts.Source)
	}
}

func (p *Pipeline) ingestPrints(ctx context.Context, opts Options) (Summary, error) {
	listing, err := p.client.ListPrints(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing prints: %w", err)
	}
	listing = applyLimit(listing, opts.Limit)

	var sum Summary
	for _, item := range listing {
		if err := p.ingestOnePrint(ctx, item.Number, opts.Force, &sum); err != nil {
			p.logger.Error("pipeline.print_skipped", "number", item.Number, "error", err)
			sum.Skipped = append(sum.Skipped, SkippedRecord{Identifier: item.Number, Reason: err.Error()})
		}
	}
	p.logSummary("prints", sum)
	return sum, nil
}

func (p *Pipeline) ingestOnePrint(ctx context.Context, number string, force bool, sum *Summary) error {
	pr, err := p.client.GetPrint(ctx, number)
	if err != nil {
		return fmt.Errorf("fetching print: %w", err)
	}

	stages := pr.Stages
	if len(stages) == 0 {
		stages = p.fetchStages(ctx, number)
	}

	bill := p.billFromPrint(pr, stages)
	bill.FullText = p.extractPrimaryText(ctx, number, bill)
	return p.upsert(ctx, bill, force, sum)
}

// fetchStages pulls the process record for a print. A missing process is
// normal for fresh prints and yields an empty history.
func (p *Pipeline) fetchStages(ctx context.Context, number string) []sejmapi.Stage {
	proc, err := p.client.GetProcess(ctx, number)
	if err != nil {
		if !errors.Is(err, common.ErrUpstreamNotFound) {
			p.logger.Warn("pipeline.process_fetch_failed", "number", number, "error", err)
		}
		return nil
	}
	return proc.Stages
}

// extractPrimaryText downloads the first PDF or DOCX attachment and
// extracts its text. Failures are contained: the bill simply carries no
// full text.
func (p *Pipeline) extractPrimaryText(ctx context.Context, number string, bill *entity.Bill) string {
	att := primaryDocument(bill)
	if att == nil {
		return ""
	}
	data, err := p.client.GetPrintAttachment(ctx, number, att.Name)
	if err != nil {
		p.logger.Warn("pipeline.attachment_download_failed", "number", number, "attachment", att.Name, "error", err)
		return ""
	}
	res, err := p.extractor.Extract(ctx, number, att.Name, data)
	if err != nil {
		p.logger.Warn("pipeline.text_extraction_failed", "number", number, "attachment", att.Name, "error", err)
		return ""
	}
	return res.Text
}

// primaryDocument prefers the first .pdf in manifest order, then the
// first .docx.
func primaryDocument(b *entity.Bill) *entity.Attachment {
	if pdf := b.PrimaryPDF(); pdf != nil {
		return pdf
	}
	for i := range b.Attachments {
		if strings.HasSuffix(strings.ToLower(b.Attachments[i].Name), ".docx") {
			return &b.Attachments[i]
		}
	}
	return nil
}

func (p *Pipeline) ingestProcesses(ctx context.Context, opts Options) (Summary, error) {
	listing, err := p.client.ListProcesses(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing processes: %w", err)
	}

	// Only statutes; resolutions and reports flow through the prints
	// source instead.
	filtered := listing[:0:0]
	for _, item := range listing {
		if strings.EqualFold(item.DocumentType, "ustawa") {
			filtered = append(filtered, item)
		}
	}
	filtered = applyLimit(filtered, opts.Limit)

	var sum Summary
	for _, item := range filtered {
		if err := p.ingestOneProcess(ctx, item.Number, opts.Force, &sum); err != nil {
			p.logger.Error("pipeline.process_skipped", "number", item.Number, "error", err)
			sum.Skipped = append(sum.Skipped, SkippedRecord{Identifier: item.Number, Reason: err.Error()})
		}
	}
	p.logSummary("processes", sum)
	return sum, nil
}

func (p *Pipeline) ingestOneProcess(ctx context.Context, number string, force bool, sum *Summary) error {
	proc, err := p.client.GetProcess(ctx, number)
	if err != nil {
		return fmt.Errorf("fetching process: %w", err)
	}

	// The matching print supplies the attachment manifest and authors.
	var pr *sejmapi.Print
	if got, err := p.client.GetPrint(ctx, number); err == nil {
		pr = got
	} else if !errors.Is(err, common.ErrUpstreamNotFound) {
		p.logger.Warn("pipeline.print_fetch_failed", "number", number, "error", err)
	}

	bill := p.billFromProcess(proc, pr)
	if pr != nil {
		bill.FullText = p.extractPrimaryText(ctx, pr.Number, bill)
	}
	return p.upsert(ctx, bill, force, sum)
}

func (p *Pipeline) ingestVotings(ctx context.Context, opts Options) (Summary, error) {
	proceeding := opts.Proceeding
	if proceeding <= 0 {
		var err error
		if proceeding, err = p.currentProceeding(ctx); err != nil {
			return Summary{}, err
		}
		p.logger.Info("pipeline.proceeding_resolved", "proceeding", proceeding)
	}
	listing, err := p.client.ListVotings(ctx, proceeding)
	if err != nil {
		return Summary{}, fmt.Errorf("listing votings for proceeding %d: %w", proceeding, err)
	}
	listing = applyLimit(listing, opts.Limit)

	var sum Summary
	for _, item := range listing {
		id := fmt.Sprintf("%d/%d", proceeding, item.VotingNumber)
		if err := p.ingestOneVoting(ctx, proceeding, item.VotingNumber, opts.Force, &sum); err != nil {
			p.logger.Error("pipeline.voting_skipped", "voting", id, "error", err)
			sum.Skipped = append(sum.Skipped, SkippedRecord{Identifier: id, Reason: err.Error()})
		}
	}
	p.logSummary("votings", sum)
	return sum, nil
}

// currentProceeding resolves the sitting to ingest when none was given:
// the agenda entry flagged current, else the highest-numbered one.
func (p *Pipeline) currentProceeding(ctx context.Context) (int, error) {
	agenda, err := p.client.ListProceedings(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing proceedings: %w", err)
	}
	latest := 0
	for _, item := range agenda {
		if item.Current {
			return item.Number, nil
		}
		if item.Number > latest {
			latest = item.Number
		}
	}
	if latest == 0 {
		return 0, fmt.Errorf("%w: no proceedings listed for the term", common.ErrUpstreamNotFound)
	}
	return latest, nil
}

func (p *Pipeline) ingestOneVoting(ctx context.Context, proceeding, number int, force bool, sum *Summary) error {
	v, err := p.client.GetVoting(ctx, proceeding, number)
	if err != nil {
		return fmt.Errorf("fetching voting: %w", err)
	}

	// Per-caucus tallies come from the roll-call PDF; a missing or
	// unparsable PDF leaves the bill with chamber totals only.
	var clubs []entity.ClubResult
	if data, err := p.client.GetVotingPDF(ctx, proceeding, number); err != nil {
		p.logger.Warn("pipeline.voting_pdf_failed", "proceeding", proceeding, "voting", number, "error", err)
	} else if deputies, err := p.votes.ParsePDF(data); err != nil {
		p.logger.Warn("pipeline.voting_parse_failed", "proceeding", proceeding, "voting", number, "error", err)
	} else {
		clubs = votes.GroupByClub(deputies)
	}

	bill := p.billFromVoting(v, p.client.Term(), proceeding, clubs)
	return p.upsert(ctx, bill, force, sum)
}

// upsert applies the create-or-update-if-forced policy. A forced update
// overwrites every mapped field, except that a present full text is
// never regressed to empty and stored analysis output is preserved.
func (p *Pipeline) upsert(ctx context.Context, bill *entity.Bill, force bool, sum *Summary) error {
	existing, err := p.repo.GetByNumber(ctx, bill.Number)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("looking up bill %s: %w", bill.Number, err)
		}
		if err := p.repo.Create(ctx, bill); err != nil {
			return fmt.Errorf("creating bill %s: %w", bill.Number, err)
		}
		p.logger.Info("pipeline.bill_created", "number", bill.Number, "status", string(bill.Status))
		sum.Created++
		return nil
	}

	if !force {
		sum.Unchanged++
		return nil
	}

	bill.ID = existing.ID
	bill.CreatedAt = existing.CreatedAt
	bill.AIAnalysis = existing.AIAnalysis
	bill.AIAnalysisDate = existing.AIAnalysisDate
	if bill.FullText == "" && existing.FullText != "" {
		bill.FullText = existing.FullText
	}
	if err := p.repo.Update(ctx, bill); err != nil {
		return fmt.Errorf("updating bill %s: %w", bill.Number, err)
	}
	p.logger.Info("pipeline.bill_updated", "number", bill.Number, "status", string(bill.Status))
	sum.Updated++
	return nil
}

// ReparseMissingText re-runs extraction for stored bills whose full
// text is empty, using their primary document attachment.
func (p *Pipeline) ReparseMissingText(ctx context.Context, limit int) (Summary, error) {
	bills, err := p.repo.List(ctx, repository.Filter{MissingText: true, Limit: limit})
	if err != nil {
		return Summary{}, fmt.Errorf("listing bills without text: %w", err)
	}

	var sum Summary
	for i := range bills {
		bill := &bills[i]
		if primaryDocument(bill) == nil {
			sum.Unchanged++
			continue
		}
		text := p.extractPrimaryText(ctx, bill.SejmID, bill)
		if text == "" {
			sum.Skipped = append(sum.Skipped, SkippedRecord{Identifier: bill.Number, Reason: "no text recovered"})
			continue
		}
		bill.FullText = text
		if err := p.repo.Update(ctx, bill); err != nil {
			sum.Skipped = append(sum.Skipped, SkippedRecord{Identifier: bill.Number, Reason: err.Error()})
			continue
		}
		sum.Updated++
	}
	p.logSummary("missing-text", sum)
	return sum, nil
}

// RefreshStatuses recomputes statuses from title heuristics for every
// stored bill. Used when stage data is absent or stale.
func (p *Pipeline) RefreshStatuses(ctx context.Context) (Summary, error) {
	bills, err := p.repo.List(ctx, repository.Filter{})
	if err != nil {
		return Summary{}, fmt.Errorf("listing bills: %w", err)
	}

	var sum Summary
	for i := range bills {
		bill := &bills[i]
		next := status.FromTitle(bill.Title)
		if next == bill.Status {
			sum.Unchanged++
			continue
		}
		prev := bill.Status
		bill.Status = next
		if err := p.repo.Update(ctx, bill); err != nil {
			sum.Skipped = append(sum.Skipped, SkippedRecord{Identifier: bill.Number, Reason: err.Error()})
			continue
		}
		p.logger.Info("pipeline.status_refreshed", "number", bill.Number, "from", string(prev), "to", string(next))
		sum.Updated++
	}
	p.logSummary("refresh-status", sum)
	return sum, nil
}

func (p *Pipeline) logSummary(source string, sum Summary) {
	p.logger.Info("pipeline.batch_done",
		"source", source,
		"created", sum.Created,
		"updated", sum.Updated,
		"unchanged", sum.Unchanged,
		"skipped", len(sum.Skipped),
	)
}

func applyLimit[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
