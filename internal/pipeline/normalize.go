package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sejmwatch/bills-tracker/constants"
	"github.com/sejmwatch/bills-tracker/internal/entity"
	"github.com/sejmwatch/bills-tracker/internal/sejmapi"
	"github.com/sejmwatch/bills-tracker/internal/status"
)

// topicTags is the ordered keyword table behind tag derivation. Stems
// match declined Polish forms ("podatk" covers podatki, podatkowy, ...).
var topicTags = []struct {
	stem string
	tag  string
}{
	{"zdrowia", "Zdrowie"},
	{"oświat", "Oświata"},
	{"podatk", "Podatki"},
	{"bezpieczeńst", "Bezpieczeństwo"},
	{"transport", "Transport"},
	{"środowisk", "Środowisko"},
	{"gospod", "Gospodarka"},
	{"prac", "Praca"},
	{"emeryt", "Emerytury"},
	{"rent", "Renty"},
	{"rodzin", "Rodzina"},
	{"mieszka", "Mieszkalnictwo"},
	{"energet", "Energetyka"},
	{"cyfryz", "Cyfryzacja"},
	{"samorzą", "Samorząd"},
}

const maxTags = 3

// GenerateTags derives up to three topic tags from a bill title, in
// table order.
func GenerateTags(title string) []string {
	lower := strings.ToLower(title)
	var tags []string
	for _, t := range topicTags {
		if strings.Contains(lower, t.stem) {
			tags = append(tags, t.tag)
			if len(tags) == maxTags {
				break
			}
		}
	}
	return tags
}

// ExtractAuthors derives the submitting body from the title.
func ExtractAuthors(title string) string {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "rząd"):
		return "Rząd Rzeczypospolitej Polskiej"
	case strings.Contains(lower, "posłowie") || strings.Contains(lower, "poselski"):
		return "Grupa posłów"
	case strings.Contains(lower, "senat"):
		return "Senat RP"
	case strings.Contains(lower, "obywatelski"):
		return "Obywatele RP"
	case strings.Contains(lower, "prezydencki") || strings.Contains(lower, "prezydenta"):
		return "Prezydent RP"
	default:
		return "Nieznany"
	}
}

// DetermineProjectType classifies the submitter from the title.
func DetermineProjectType(title string) constants.ProjectType {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "rządowy"):
		return constants.ProjectGovernmental
	case strings.Contains(lower, "obywatelski"):
		return constants.ProjectCitizen
	case strings.Contains(lower, "poselski"):
		return constants.ProjectParliamentary
	case strings.Contains(lower, "senacki"):
		return constants.ProjectSenate
	case strings.Contains(lower, "prezydencki"):
		return constants.ProjectPresidential
	default:
		return constants.ProjectUnknown
	}
}

// ParseFlexibleDate accepts the date shapes the upstream mixes freely:
// bare ISO dates, ISO timestamps with or without zone, and the European
// day-first forms that show up in older records. Empty or unparseable
// input falls back to now.
func ParseFlexibleDate(s string, now func() time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now().UTC()
	}
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "02.01.2006", "02-01-2006"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return now().UTC()
}

// attachmentEntries maps a print's manifest names to typed attachment
// records with absolute URLs.
func attachmentEntries(names []string, urlFor func(name string) string) []entity.Attachment {
	out := make([]entity.Attachment, 0, len(names))
	for _, name := range names {
		out = append(out, entity.Attachment{
			Name: name,
			Type: constants.NormalizeExt(filepath.Ext(name)),
			URL:  urlFor(name),
		})
	}
	return out
}

// billFromPrint builds the canonical record for one print. stages may be
// empty when the print has no process; fullText is filled in later by
// the caller.
func (p *Pipeline) billFromPrint(pr *sejmapi.Print, stages []sejmapi.Stage) *entity.Bill {
	title := pr.Title
	b := &entity.Bill{
		Number:         pr.Number,
		SejmID:         pr.Number,
		Title:          title,
		TitleFinal:     pr.TitleFinal,
		Description:    pr.Description,
		Status:         status.Resolve(stages, title),
		SubmissionDate: ParseFlexibleDate(firstNonEmpty(pr.DeliveryDate, pr.DocumentDate), p.now),
		Authors:        ExtractAuthors(title),
		SourceURL:      pr.Address,
		DocumentType:   pr.DocumentType,
		ELI:            pr.ELI,
		Passed:         pr.Passed,
		ProjectType:    DetermineProjectType(title),
		DataSource:     constants.SourceAPI,
		Tags:           GenerateTags(title),
		APIData:        pr.Raw,
		Attachments: attachmentEntries(pr.AllAttachments(), func(name string) string {
			return p.client.AttachmentURL(pr.Number, name)
		}),
	}
	return b
}

// billFromProcess builds the canonical record for one legislative
// process, enriched with its matching print when one exists.
func (p *Pipeline) billFromProcess(proc *sejmapi.Process, pr *sejmapi.Print) *entity.Bill {
	title := firstNonEmpty(proc.TitleFinal, proc.Title)
	b := &entity.Bill{
		Number:         proc.Number,
		SejmID:         proc.Number,
		Title:          title,
		TitleFinal:     proc.TitleFinal,
		Description:    proc.Description,
		Status:         status.Resolve(proc.Stages, title),
		SubmissionDate: ParseFlexibleDate(proc.ProcessStartDate, p.now),
		Authors:        ExtractAuthors(title),
		SourceURL:      proc.Address,
		DocumentType:   proc.DocumentType,
		ELI:            proc.ELI,
		Passed:         proc.Passed,
		ProjectType:    DetermineProjectType(title),
		DataSource:     constants.SourceAPI,
		Tags:           GenerateTags(title),
		APIData:        proc.Raw,
	}
	if pr != nil {
		b.Attachments = attachmentEntries(pr.AllAttachments(), func(name string) string {
			return p.client.AttachmentURL(pr.Number, name)
		})
		if b.Description == "" {
			b.Description = pr.Description
		}
	}
	return b
}

// billFromVoting builds the canonical record for one roll call. The
// number and sejm id are synthesized since votings carry no print
// number of their own.
func (p *Pipeline) billFromVoting(v *sejmapi.Voting, term, proceeding int, clubs []entity.ClubResult) *entity.Bill {
	title := v.Title
	if title == "" {
		title = "Głosowanie bez tytułu"
	}
	b := &entity.Bill{
		Number:         fmt.Sprintf("Głosowanie nr %d", v.VotingNumber),
		SejmID:         fmt.Sprintf("term%d_proc%d_vote%d", term, proceeding, v.VotingNumber),
		Title:          title,
		Description:    v.Topic,
		Status:         "Zakończone",
		SubmissionDate: ParseFlexibleDate(v.Date, p.now),
		Authors:        fmt.Sprintf("Sejm RP - Posiedzenie %d", proceeding),
		SourceURL: fmt.Sprintf(
			"https://www.sejm.gov.pl/sejm%d.nsf/agent.xsp?symbol=glosowania&NrKadencji=%d&NrPosiedzenia=%d&NrGlosowania=%d",
			term, term, proceeding, v.VotingNumber),
		ProjectType: constants.ProjectUnknown,
		DataSource:  constants.SourceAPI,
		Tags:        GenerateTags(title),
		APIData:     v.Raw,
		VotingResults: &entity.VotingResults{
			Yes:          v.Yes,
			No:           v.No,
			Abstain:      v.Abstain,
			NotVoting:    v.NotParticipating,
			TotalVoted:   v.TotalVoted,
			MajorityType: v.MajorityType,
		},
		ClubResults: clubs,
	}
	if href := v.PDFLink(); href != "" {
		b.Attachments = []entity.Attachment{{
			Name: fmt.Sprintf("Głosowanie %d - PDF", v.VotingNumber),
			Type: "pdf",
			URL:  href,
		}}
	}
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
