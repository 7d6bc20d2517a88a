package status

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sejmwatch/bills-tracker/constants"
	"github.com/sejmwatch/bills-tracker/internal/sejmapi"
)

func TestFromStage(t *testing.T) {
	tests := []struct {
		stage string
		want  constants.BillStatus
	}{
		{"Projekt wpłynął do Sejmu", constants.StatusReceived},
		{"Skierowano do I czytania na posiedzeniu Sejmu", constants.StatusFirstReading},
		{"Skierowano do I czytania w komisjach", constants.StatusFirstReadingCommittee},
		{"I czytanie na posiedzeniu Sejmu", constants.StatusFirstReading},
		{"I czytanie w komisjach", constants.StatusFirstReadingCommittee},
		{"Praca w komisjach po I czytaniu", constants.StatusInCommittee},
		{"II czytanie na posiedzeniu Sejmu", constants.StatusSecondReading},
		{"III czytanie na posiedzeniu Sejmu", constants.StatusThirdReading},
		{"Stanowisko Senatu", constants.StatusSenate},
		{"Praca w komisjach nad stanowiskiem Senatu", constants.StatusInCommittee},
		{"Ustawę przekazano Prezydentowi do podpisu", constants.StatusPresident},
		{"Ogłoszono w Dzienniku Ustaw", constants.StatusPublished},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			assert.Equal(t, tt.want, FromStage(tt.stage))
		})
	}
}

func TestFromStageUnmappedPassesThrough(t *testing.T) {
	assert.Equal(t, "Uchwalono", FromStage("Uchwalono"))

	long := strings.Repeat("x", 150)
	got := FromStage(long)
	assert.Len(t, got, constants.MaxStatusLen)
}

func TestFromStageEmpty(t *testing.T) {
	assert.Equal(t, constants.StatusInProgress, FromStage(""))
	assert.Equal(t, constants.StatusInProgress, FromStage("   "))
}

func TestFromTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  constants.BillStatus
	}{
		{"senate report beats generic report", "Sprawozdanie Komisji Finansów Publicznych w sprawie uchwały Senatu", constants.StatusSenate},
		{"government report goes to committee", "Sprawozdanie Komisji o rządowym projekcie ustawy, rządowy projekt", constants.StatusInCommittee},
		{"plain report", "Sprawozdanie z realizacji programu", constants.StatusReport},
		{"senate resolution", "Uchwała Senatu w sprawie ustawy o zmianie ustawy", constants.StatusSenate},
		{"bill draft", "Rządowy projekt ustawy o zmianie ustawy o podatku dochodowym", constants.StatusFirstReading},
		{"candidate list", "Lista kandydatów na stanowisko sędziego", constants.StatusNomination},
		{"opinion", "Opinia w sprawie wniosku", constants.StatusOpinion},
		{"resolution draft", "Poselski projekt uchwały w sprawie upamiętnienia", constants.StatusFirstReading},
		{"bare ustawa", "Ustawa budżetowa na rok 2025", constants.StatusFirstReading},
		{"empty title", "", constants.StatusInProgress},
		{"unclassifiable", "Informacja dla Sejmu", constants.StatusInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromTitle(tt.title))
		})
	}
}

func TestResolvePrefersLastStage(t *testing.T) {
	stages := []sejmapi.Stage{
		{StageName: "Projekt wpłynął do Sejmu", Date: "2025-01-10"},
		{StageName: "I czytanie na posiedzeniu Sejmu", Date: "2025-02-01"},
		{StageName: "II czytanie na posiedzeniu Sejmu", Date: "2025-03-05"},
	}
	assert.Equal(t, constants.StatusSecondReading, Resolve(stages, "Rządowy projekt ustawy"))
}

func TestResolveFallsBackToTitle(t *testing.T) {
	assert.Equal(t, constants.StatusFirstReading, Resolve(nil, "Poselski projekt ustawy o zmianie"))
	assert.Equal(t, constants.StatusInProgress, Resolve(nil, ""))
}
