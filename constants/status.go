package constants

// BillStatus is the canonical status for rows in bills.
type BillStatus = string

// Stable values (store these exact strings in DB). Stage names that the
// resolver cannot map are stored verbatim, truncated to MaxStatusLen.
const (
	StatusReceived              BillStatus = "received"                // wpłynął do Sejmu
	StatusFirstReading          BillStatus = "first_reading"           // I czytanie
	StatusFirstReadingCommittee BillStatus = "first_reading_committee" // I czytanie w komisjach
	StatusSecondReading         BillStatus = "second_reading"          // II czytanie
	StatusThirdReading          BillStatus = "third_reading"           // III czytanie
	StatusInCommittee           BillStatus = "in_committee"            // praca w komisjach
	StatusSenate                BillStatus = "senate"                  // przekazano do Senatu / uchwała Senatu
	StatusPresident             BillStatus = "president"               // przekazano Prezydentowi
	StatusPublished             BillStatus = "published"               // opublikowana
	StatusReport                BillStatus = "report"                  // sprawozdanie
	StatusNomination            BillStatus = "nomination"              // lista kandydatów
	StatusOpinion               BillStatus = "opinion"                 // opinia
	StatusInProgress            BillStatus = "in_progress"             // generic fallback
)

// MaxStatusLen bounds raw stage names passed through as statuses.
const MaxStatusLen = 100
