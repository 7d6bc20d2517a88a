package constants

// ProjectType classifies who submitted a bill, derived from its title.
type ProjectType = string

const (
	ProjectGovernmental  ProjectType = "governmental"  // rządowy
	ProjectCitizen       ProjectType = "citizen"       // obywatelski
	ProjectParliamentary ProjectType = "parliamentary" // poselski
	ProjectSenate        ProjectType = "senate"        // senacki
	ProjectPresidential  ProjectType = "presidential"  // prezydencki
	ProjectUnknown       ProjectType = "unknown"
)

// DataSource records which ingestion path produced a bill record.
type DataSource = string

const (
	SourceAPI    DataSource = "api"
	SourceScrape DataSource = "scrape"
	SourceHybrid DataSource = "hybrid"
)
