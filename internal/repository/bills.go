package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sejmwatch/bills-tracker/internal/common"
	"github.com/sejmwatch/bills-tracker/internal/entity"
)

// BillRepository is the storage contract the pipeline and batch jobs
// depend on. Lookups are by the natural key (print number or the
// synthesized voting number).
type BillRepository interface {
	GetByNumber(ctx context.Context, number string) (*entity.Bill, error)
	Create(ctx context.Context, b *entity.Bill) error
	Update(ctx context.Context, b *entity.Bill) error
	List(ctx context.Context, f Filter) ([]entity.Bill, error)
	SetAnalysis(ctx context.Context, number string, analysis json.RawMessage, at time.Time) error
}

var _ BillRepository = (*Store)(nil)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Status          string
	MissingText     bool // only bills with empty full_text
	MissingAnalysis bool // only bills with no stored analysis
	From            time.Time
	To              time.Time
	Limit           int
}

const billColumns = `id, number, sejm_id, title, title_final, description, full_text,
	attachments, status, submission_date, authors, source_url, document_type, eli,
	passed, project_type, data_source, tags, voting_results, club_results,
	api_data, ai_analysis, ai_analysis_date, created_at, updated_at`

// GetByNumber returns the bill stored under number, or
// common.ErrNotFound.
func (s *Store) GetByNumber(ctx context.Context, number string) (*entity.Bill, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+billColumns+` FROM bills WHERE number = ?`, number)
	b, err := scanBill(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: bill %s", common.ErrNotFound, number)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Create inserts a new bill and fills in its ID and timestamps.
func (s *Store) Create(ctx context.Context, b *entity.Bill) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	attachments, tags, votingResults, clubResults, err := marshalJSONFields(b)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bills (number, sejm_id, title, title_final, description, full_text,
			attachments, status, submission_date, authors, source_url, document_type, eli,
			passed, project_type, data_source, tags, voting_results, club_results,
			api_data, ai_analysis, ai_analysis_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Number, b.SejmID, b.Title, b.TitleFinal, b.Description, b.FullText,
		attachments, string(b.Status), formatTime(b.SubmissionDate), b.Authors, b.SourceURL,
		b.DocumentType, b.ELI, boolToInt(b.Passed), string(b.ProjectType), string(b.DataSource),
		tags, votingResults, clubResults,
		rawOrNil(b.APIData), rawOrNil(b.AIAnalysis), timeOrNil(b.AIAnalysisDate),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting bill %s: %w", b.Number, err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	return nil
}

// Update overwrites every mapped field of the bill identified by ID.
func (s *Store) Update(ctx context.Context, b *entity.Bill) error {
	b.UpdatedAt = time.Now().UTC()

	attachments, tags, votingResults, clubResults, err := marshalJSONFields(b)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE bills SET number = ?, sejm_id = ?, title = ?, title_final = ?, description = ?,
			full_text = ?, attachments = ?, status = ?, submission_date = ?, authors = ?,
			source_url = ?, document_type = ?, eli = ?, passed = ?, project_type = ?,
			data_source = ?, tags = ?, voting_results = ?, club_results = ?, api_data = ?,
			ai_analysis = ?, ai_analysis_date = ?, updated_at = ?
		WHERE id = ?`,
		b.Number, b.SejmID, b.Title, b.TitleFinal, b.Description,
		b.FullText, attachments, string(b.Status), formatTime(b.SubmissionDate), b.Authors,
		b.SourceURL, b.DocumentType, b.ELI, boolToInt(b.Passed), string(b.ProjectType),
		string(b.DataSource), tags, votingResults, clubResults, rawOrNil(b.APIData),
		rawOrNil(b.AIAnalysis), timeOrNil(b.AIAnalysisDate),
		b.UpdatedAt.Format(time.RFC3339), b.ID,
	)
	if err != nil {
		return fmt.Errorf("updating bill %s: %w", b.Number, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: bill id %d", common.ErrNotFound, b.ID)
	}
	return nil
}

// List returns bills matching the filter, newest submissions first.
func (s *Store) List(ctx context.Context, f Filter) ([]entity.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE 1=1`
	var args []any

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.MissingText {
		query += ` AND full_text = ''`
	}
	if f.MissingAnalysis {
		query += ` AND ai_analysis IS NULL`
	}
	if !f.From.IsZero() {
		query += ` AND submission_date >= ?`
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND submission_date <= ?`
		args = append(args, formatTime(f.To))
	}
	query += ` ORDER BY submission_date DESC, number DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// SetAnalysis stores the analysis payload and its timestamp without
// touching the rest of the record.
func (s *Store) SetAnalysis(ctx context.Context, number string, analysis json.RawMessage, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bills SET ai_analysis = ?, ai_analysis_date = ?, updated_at = ? WHERE number = ?`,
		rawOrNil(analysis), at.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339), number,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: bill %s", common.ErrNotFound, number)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (*entity.Bill, error) {
	var b entity.Bill
	var attachments, tags string
	var votingResults, clubResults, apiData, aiAnalysis sql.NullString
	var submissionDate, analysisDate sql.NullString
	var createdAt, updatedAt string
	var passed int

	err := row.Scan(
		&b.ID, &b.Number, &b.SejmID, &b.Title, &b.TitleFinal, &b.Description, &b.FullText,
		&attachments, &b.Status, &submissionDate, &b.Authors, &b.SourceURL, &b.DocumentType,
		&b.ELI, &passed, &b.ProjectType, &b.DataSource, &tags, &votingResults, &clubResults,
		&apiData, &aiAnalysis, &analysisDate, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Passed = passed != 0
	if err := json.Unmarshal([]byte(attachments), &b.Attachments); err != nil {
		return nil, fmt.Errorf("decoding attachments for %s: %w", b.Number, err)
	}
	if err := json.Unmarshal([]byte(tags), &b.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags for %s: %w", b.Number, err)
	}
	if votingResults.Valid && votingResults.String != "" {
		b.VotingResults = &entity.VotingResults{}
		if err := json.Unmarshal([]byte(votingResults.String), b.VotingResults); err != nil {
			return nil, fmt.Errorf("decoding voting results for %s: %w", b.Number, err)
		}
	}
	if clubResults.Valid && clubResults.String != "" {
		if err := json.Unmarshal([]byte(clubResults.String), &b.ClubResults); err != nil {
			return nil, fmt.Errorf("decoding club results for %s: %w", b.Number, err)
		}
	}
	if apiData.Valid {
		b.APIData = json.RawMessage(apiData.String)
	}
	if aiAnalysis.Valid {
		b.AIAnalysis = json.RawMessage(aiAnalysis.String)
	}
	if submissionDate.Valid && submissionDate.String != "" {
		if b.SubmissionDate, err = time.Parse(time.RFC3339, submissionDate.String); err != nil {
			return nil, fmt.Errorf("parsing submission_date for %s: %w", b.Number, err)
		}
	}
	if analysisDate.Valid && analysisDate.String != "" {
		t, err := time.Parse(time.RFC3339, analysisDate.String)
		if err != nil {
			return nil, fmt.Errorf("parsing ai_analysis_date for %s: %w", b.Number, err)
		}
		b.AIAnalysisDate = &t
	}
	if b.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", b.Number, err)
	}
	if b.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at for %s: %w", b.Number, err)
	}
	return &b, nil
}

func marshalJSONFields(b *entity.Bill) (attachments, tags string, votingResults, clubResults any, err error) {
	a, err := json.Marshal(emptySliceIfNil(b.Attachments))
	if err != nil {
		return "", "", nil, nil, fmt.Errorf("encoding attachments: %w", err)
	}
	tg, err := json.Marshal(emptyStringsIfNil(b.Tags))
	if err != nil {
		return "", "", nil, nil, fmt.Errorf("encoding tags: %w", err)
	}
	if b.VotingResults != nil {
		v, err := json.Marshal(b.VotingResults)
		if err != nil {
			return "", "", nil, nil, fmt.Errorf("encoding voting results: %w", err)
		}
		votingResults = string(v)
	}
	if len(b.ClubResults) > 0 {
		c, err := json.Marshal(b.ClubResults)
		if err != nil {
			return "", "", nil, nil, fmt.Errorf("encoding club results: %w", err)
		}
		clubResults = string(c)
	}
	return string(a), string(tg), votingResults, clubResults, nil
}

func emptySliceIfNil(a []entity.Attachment) []entity.Attachment {
	if a == nil {
		return []entity.Attachment{}
	}
	return a
}

func emptyStringsIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
