package analysis

import "strings"

// SectionLabels names the markdown headers the model is asked to emit.
// The legacy labels cover responses produced under the older prompt and
// are only consulted when the current label is absent.
type SectionLabels struct {
	Summary        string
	Benefits       string
	Risks          string
	LegacyBenefits string
	LegacyRisks    string
}

// DefaultSectionLabels returns the current header set.
func DefaultSectionLabels() SectionLabels {
	return SectionLabels{
		Summary:        "**O CZYM JEST TEN PROJEKT:**",
		Benefits:       "**DOBRE STRONY PROJEKTU:**",
		Risks:          "**ZAGROŻENIA Z PROJEKTU:**",
		LegacyBenefits: "**KORZYŚCI DLA PAŃSTWA POLSKIEGO:**",
		LegacyRisks:    "**ZAGROŻENIA DLA PAŃSTWA POLSKIEGO:**",
	}
}

// Sections is the structured form of one model response.
type Sections struct {
	Summary  string `json:"changes"`
	Benefits string `json:"benefits"`
	Risks    string `json:"risks"`
}

// ParseSections slices the response text into its labeled sections. A
// missing section stays empty; legacy labels are honored when the
// current ones do not appear.
func ParseSections(text string, labels SectionLabels) Sections {
	var s Sections

	s.Summary = between(text, labels.Summary, labels.Benefits, labels.Risks)

	if strings.Contains(text, labels.Risks) {
		s.Risks = between(text, labels.Risks, labels.Benefits)
	} else if strings.Contains(text, labels.LegacyRisks) {
		s.Risks = between(text, labels.LegacyRisks, labels.LegacyBenefits)
	}

	if strings.Contains(text, labels.Benefits) {
		s.Benefits = between(text, labels.Benefits, labels.Risks)
	} else if strings.Contains(text, labels.LegacyBenefits) {
		s.Benefits = between(text, labels.LegacyBenefits)
	}

	return s
}

// between returns the trimmed text after the first occurrence of label
// up to the earliest of the terminators that follows it, or the end of
// the text.
func between(text, label string, terminators ...string) string {
	start := strings.Index(text, label)
	if start == -1 {
		return ""
	}
	start += len(label)
	end := len(text)
	for _, term := range terminators {
		if idx := strings.Index(text[start:], term); idx != -1 && start+idx < end {
			end = start + idx
		}
	}
	return strings.TrimSpace(text[start:end])
}
