// Package status maps upstream stage histories and bill titles onto the
// canonical status codes stored on bills.
package status

import (
	"strings"

	"github.com/sejmwatch/bills-tracker/constants"
	"github.com/sejmwatch/bills-tracker/internal/sejmapi"
)

// stageRules is an ordered substring table matched against the lowercased
// last stage name. Order matters: "III czytanie" contains "II czytanie"
// which contains "I czytanie", so the longer readings come first.
var stageRules = []struct {
	substr string
	status constants.BillStatus
}{
	{"projekt wpłynął", constants.StatusReceived},
	{"iii czytanie", constants.StatusThirdReading},
	{"ii czytanie", constants.StatusSecondReading},
	{"i czytanie w komisjach", constants.StatusFirstReadingCommittee},
	{"i czytania w komisjach", constants.StatusFirstReadingCommittee},
	{"i czytanie", constants.StatusFirstReading},
	{"i czytania", constants.StatusFirstReading},
	{"praca w komisjach", constants.StatusInCommittee},
	{"stanowisko senatu", constants.StatusSenate},
	{"uchwała senatu", constants.StatusSenate},
	{"prezydent", constants.StatusPresident},
	{"ogłoszono", constants.StatusPublished},
	{"opublikowan", constants.StatusPublished},
}

// Resolve returns the canonical status for a bill. With stage history
// present the last stage decides; otherwise the title heuristics apply.
// It always returns a non-empty status.
func Resolve(stages []sejmapi.Stage, title string) constants.BillStatus {
	if len(stages) > 0 {
		return FromStage(stages[len(stages)-1].StageName)
	}
	return FromTitle(title)
}

// FromStage maps one stage name. An unmapped non-empty name passes
// through verbatim, truncated to the storage limit.
func FromStage(stageName string) constants.BillStatus {
	name := strings.TrimSpace(stageName)
	if name == "" {
		return constants.StatusInProgress
	}
	lower := strings.ToLower(name)
	for _, r := range stageRules {
		if strings.Contains(lower, r.substr) {
			return r.status
		}
	}
	return truncate(name, constants.MaxStatusLen)
}

// FromTitle classifies a bill by title keywords. Committee reports on
// Senate resolutions count as the Senate stage, not as plain reports.
func FromTitle(title string) constants.BillStatus {
	t := strings.ToLower(title)

	if strings.Contains(t, "sprawozdanie") {
		switch {
		case strings.Contains(t, "uchwała senatu") || strings.Contains(t, "uchwały senatu"):
			return constants.StatusSenate
		case strings.Contains(t, "rządowy projekt") || strings.Contains(t, "poselski projekt"):
			return constants.StatusInCommittee
		default:
			return constants.StatusReport
		}
	}
	if strings.Contains(t, "uchwała senatu") || strings.Contains(t, "uchwały senatu") {
		return constants.StatusSenate
	}
	if strings.Contains(t, "projekt ustawy") {
		return constants.StatusFirstReading
	}
	if strings.Contains(t, "lista kandydatów") {
		return constants.StatusNomination
	}
	if strings.Contains(t, "opinia") {
		return constants.StatusOpinion
	}
	if strings.Contains(t, "projekt uchwały") {
		return constants.StatusFirstReading
	}
	if strings.Contains(t, "ustawa") || strings.Contains(t, "projekt") {
		return constants.StatusFirstReading
	}
	return constants.StatusInProgress
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
