package votes

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/sejmwatch/bills-tracker/internal/common"
	"github.com/sejmwatch/bills-tracker/internal/extract"
)

// Vote is a single deputy's recorded position.
type Vote string

const (
	VoteFor        Vote = "ZA"
	VoteAgainst    Vote = "PRZECIW"
	VoteAbstained  Vote = "WSTRZYMAŁ"
	VoteDidNotVote Vote = "NIE GŁOSOWAŁ"
	VotePresent    Vote = "OBECNY"
)

// DeputyVote is one parsed roll-call record. Names are kept in the
// layout's NAZWISKO IMIĘ order.
type DeputyVote struct {
	Club      string `json:"club"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Vote      Vote   `json:"vote"`
}

// Caucus section headers look like "PiS(188)", "Konfederacja_KP(3)",
// "PSL-TD(63)" or "niez.(4)". The parenthesized count is layout noise
// and is not trusted.
var clubHeaderRe = regexp.MustCompile(`^([A-ZĄĆĘŁŃÓŚŹŻa-ząćęłńóśźż_.\-]+)\([0-9]+\)`)

// voteMarkers gates lines worth scanning for deputy records.
var voteMarkers = []string{"za", "pr.", "wstrzymał", "ws.", "ng.", "nie", "ob."}

// Parser extracts per-deputy votes from roll-call result PDFs. These
// documents always carry a text layer, so there is no OCR path here.
type Parser struct {
	pages  extract.PageTextReader
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{pages: extract.NewPDFPageReader(), logger: logger}
}

// ParsePDF reads the PDF's text layer and parses every page. A PDF that
// cannot be opened is an error; a readable PDF with no recognizable
// records returns an empty slice.
func (p *Parser) ParsePDF(data []byte) ([]DeputyVote, error) {
	pages, err := p.pages.ReadPages(data)
	if err != nil {
		return nil, fmt.Errorf("%w: roll-call pdf: %v", common.ErrUnreadableDocument, err)
	}
	var out []DeputyVote
	for _, page := range pages {
		out = append(out, ParseText(page)...)
	}
	p.logger.Debug("votes.parsed", "pages", len(pages), "deputies", len(out))
	return out, nil
}

// ParseText scans one page of roll-call text. The layout interleaves
// caucus headers with multi-record lines; a record is two consecutive
// all-uppercase tokens (surname, first name) followed by a vote code.
// Records before the first caucus header are skipped.
func ParseText(text string) []DeputyVote {
	var out []DeputyVote
	currentClub := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := clubHeaderRe.FindStringSubmatch(line); m != nil {
			currentClub = strings.TrimSpace(m[1])
			continue
		}
		if currentClub == "" || !hasVoteMarker(line) {
			continue
		}

		words := strings.Fields(line)
		i := 0
		for i < len(words) {
			if i+2 >= len(words) || !isUpperToken(words[i]) || !isUpperToken(words[i+1]) {
				i++
				continue
			}

			rec := DeputyVote{
				Club:      currentClub,
				LastName:  words[i],
				FirstName: words[i+1],
			}
			advance := 3
			switch code := strings.ToLower(words[i+2]); code {
			case "za":
				rec.Vote = VoteFor
			case "pr.":
				rec.Vote = VoteAgainst
			case "wstrzymał", "ws.":
				rec.Vote = VoteAbstained
			case "ng.":
				rec.Vote = VoteDidNotVote
			case "ob.":
				rec.Vote = VotePresent
			case "nie":
				// two-word form "nie głosował"
				if i+3 < len(words) && strings.ToLower(words[i+3]) == "głosował" {
					rec.Vote = VoteDidNotVote
					advance = 4
				} else {
					i++
					continue
				}
			default:
				i++
				continue
			}

			out = append(out, rec)
			i += advance
		}
	}
	return out
}

func hasVoteMarker(line string) bool {
	lower := strings.ToLower(line)
	for _, m := range voteMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// isUpperToken reports whether the token has at least one letter and no
// lowercase letters. Hyphenated double surnames qualify.
func isUpperToken(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}
