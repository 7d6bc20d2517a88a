package sejmapi

import "encoding/json"

// Upstream payload shapes drift between API revisions, so every field is
// optional and zero values are meaningful "absent" markers. Raw keeps the
// undecoded payload for forward compatibility (stored as api_data).

// Link is the rel/href pair the votings endpoints attach to a result.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// Stage is one step of a legislative process history, oldest first.
type Stage struct {
	StageName string `json:"stageName"`
	Date      string `json:"date"`
	Decision  string `json:"decision,omitempty"`
}

// AdditionalPrint is a supplementary document shipped with a print.
type AdditionalPrint struct {
	Number      string   `json:"number"`
	Title       string   `json:"title"`
	Attachments []string `json:"attachments"`
}

// Print is the /prints document metadata with its attachment manifest.
type Print struct {
	Number           string            `json:"number"`
	Term             int               `json:"term"`
	Title            string            `json:"title"`
	TitleFinal       string            `json:"titleFinal"`
	Description      string            `json:"description"`
	DocumentType     string            `json:"documentType"`
	DocumentDate     string            `json:"documentDate"`
	DeliveryDate     string            `json:"deliveryDate"`
	ChangeDate       string            `json:"changeDate"`
	Address          string            `json:"address"`
	ELI              string            `json:"ELI"`
	Passed           bool              `json:"passed"`
	Attachments      []string          `json:"attachments"`
	AdditionalPrints []AdditionalPrint `json:"additionalPrints"`
	Stages           []Stage           `json:"stages"`

	Raw json.RawMessage `json:"-"`
}

// AllAttachments returns the print's own attachments followed by those of
// its additional prints, in manifest order.
func (p *Print) AllAttachments() []string {
	out := append([]string(nil), p.Attachments...)
	for _, add := range p.AdditionalPrints {
		out = append(out, add.Attachments...)
	}
	return out
}

// Process is the /processes lifecycle record for a legislative item.
type Process struct {
	Number           string  `json:"number"`
	Term             int     `json:"term"`
	Title            string  `json:"title"`
	TitleFinal       string  `json:"titleFinal"`
	Description      string  `json:"description"`
	DocumentType     string  `json:"documentType"`
	ProcessStartDate string  `json:"processStartDate"`
	ChangeDate       string  `json:"changeDate"`
	Address          string  `json:"address"`
	ELI              string  `json:"ELI"`
	Passed           bool    `json:"passed"`
	Stages           []Stage `json:"stages"`
	Links            []Link  `json:"links"`

	Raw json.RawMessage `json:"-"`
}

// Voting is a /votings roll-call result. On the sitting listing only the
// header fields are populated; the per-voting detail adds totals and links.
type Voting struct {
	Term             int    `json:"term"`
	Sitting          int    `json:"sitting"`
	SittingDay       int    `json:"sittingDay"`
	Proceeding       int    `json:"proceeding"`
	VotingNumber     int    `json:"votingNumber"`
	VotingsNum       int    `json:"votingsNum"`
	Date             string `json:"date"`
	Title            string `json:"title"`
	Topic            string `json:"topic"`
	Description      string `json:"description"`
	Yes              int    `json:"yes"`
	No               int    `json:"no"`
	Abstain          int    `json:"abstain"`
	NotParticipating int    `json:"notParticipating"`
	TotalVoted       int    `json:"totalVoted"`
	MajorityVotes    int    `json:"majorityVotes"`
	MajorityType     string `json:"majorityType"`
	Links            []Link `json:"links"`

	Raw json.RawMessage `json:"-"`
}

// PDFLink returns the href of the roll-call PDF link, if the voting
// carries one.
func (v *Voting) PDFLink() string {
	for _, l := range v.Links {
		if l.Rel == "pdf" {
			return l.Href
		}
	}
	return ""
}

// Proceeding is one entry of the sitting agenda listing.
type Proceeding struct {
	Number  int      `json:"number"`
	Title   string   `json:"title"`
	Dates   []string `json:"dates"`
	Current bool     `json:"current"`
}
