package entity

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sejmwatch/bills-tracker/constants"
)

// Attachment is one entry of a bill's attachment manifest.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
	Size int64  `json:"size,omitempty"`
}

// VotingResults holds the chamber-wide totals of one roll call.
type VotingResults struct {
	Yes          int    `json:"yes"`
	No           int    `json:"no"`
	Abstain      int    `json:"abstain"`
	NotVoting    int    `json:"not_voting"`
	TotalVoted   int    `json:"total_voted"`
	MajorityType string `json:"majority_type,omitempty"`
}

// ClubResult is the per-caucus tally aggregated from a roll-call PDF.
type ClubResult struct {
	Club       string `json:"club"`
	Members    int    `json:"members"`
	Voted      int    `json:"voted"`
	For        int    `json:"for"`
	Against    int    `json:"against"`
	Abstained  int    `json:"abstained"`
	DidNotVote int    `json:"did_not_vote"`
	Present    int    `json:"present"`
}

// Bill is the canonical reconciled record of one legislative item.
// Number is the natural key; everything else may be overwritten by a
// forced re-ingestion.
type Bill struct {
	ID             int64                 `json:"id"`
	Number         string                `json:"number"`
	SejmID         string                `json:"sejm_id,omitempty"`
	Title          string                `json:"title"`
	TitleFinal     string                `json:"title_final,omitempty"`
	Description    string                `json:"description,omitempty"`
	FullText       string                `json:"full_text,omitempty"`
	Attachments    []Attachment          `json:"attachments,omitempty"`
	Status         constants.BillStatus  `json:"status"`
	SubmissionDate time.Time             `json:"submission_date"`
	Authors        string                `json:"authors,omitempty"`
	SourceURL      string                `json:"source_url,omitempty"`
	DocumentType   string                `json:"document_type,omitempty"`
	ELI            string                `json:"eli,omitempty"`
	Passed         bool                  `json:"passed"`
	ProjectType    constants.ProjectType `json:"project_type"`
	DataSource     constants.DataSource  `json:"data_source"`
	Tags           []string              `json:"tags,omitempty"`
	VotingResults  *VotingResults        `json:"voting_results,omitempty"`
	ClubResults    []ClubResult          `json:"club_results,omitempty"`
	APIData        json.RawMessage       `json:"api_data,omitempty"`
	AIAnalysis     json.RawMessage       `json:"ai_analysis,omitempty"`
	AIAnalysisDate *time.Time            `json:"ai_analysis_date,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// PrimaryPDF returns the first attachment with a .pdf name, in manifest
// order, or nil when the bill has none.
func (b *Bill) PrimaryPDF() *Attachment {
	for i := range b.Attachments {
		if strings.HasSuffix(strings.ToLower(b.Attachments[i].Name), ".pdf") {
			return &b.Attachments[i]
		}
	}
	return nil
}
