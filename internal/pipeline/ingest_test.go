package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sejmwatch/bills-tracker/constants"
	"github.com/sejmwatch/bills-tracker/internal/common"
	"github.com/sejmwatch/bills-tracker/internal/extract"
	"github.com/sejmwatch/bills-tracker/internal/repository"
	"github.com/sejmwatch/bills-tracker/internal/sejmapi"
	"github.com/sejmwatch/bills-tracker/internal/votes"
)

type fakeClient struct {
	term        int
	prints      []sejmapi.Print
	printErr    map[string]error
	processes   map[string]*sejmapi.Process
	votings     map[int][]sejmapi.Voting
	proceedings []sejmapi.Proceeding
	votingPDF   []byte
	attachments map[string][]byte
}

func (f *fakeClient) Term() int { return f.term }

func (f *fakeClient) ListPrints(context.Context) ([]sejmapi.Print, error) {
	return f.prints, nil
}

func (f *fakeClient) GetPrint(_ context.Context, number string) (*sejmapi.Print, error) {
	if err := f.printErr[number]; err != nil {
		return nil, err
	}
	for i := range f.prints {
		if f.prints[i].Number == number {
			return &f.prints[i], nil
		}
	}
	return nil, fmt.Errorf("%w: print %s", common.ErrUpstreamNotFound, number)
}

func (f *fakeClient) GetPrintAttachment(_ context.Context, number, name string) ([]byte, error) {
	if data, ok := f.attachments[number+"/"+name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: attachment %s", common.ErrUpstreamNotFound, name)
}

func (f *fakeClient) AttachmentURL(number, name string) string {
	return "https://api.example/term10/prints/" + number + "/" + name
}

func (f *fakeClient) ListProcesses(context.Context) ([]sejmapi.Process, error) {
	var out []sejmapi.Process
	for _, p := range f.processes {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeClient) GetProcess(_ context.Context, id string) (*sejmapi.Process, error) {
	if p, ok := f.processes[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: process %s", common.ErrUpstreamNotFound, id)
}

func (f *fakeClient) ListVotings(_ context.Context, proceeding int) ([]sejmapi.Voting, error) {
	return f.votings[proceeding], nil
}

func (f *fakeClient) GetVoting(_ context.Context, proceeding, number int) (*sejmapi.Voting, error) {
	for i := range f.votings[proceeding] {
		if f.votings[proceeding][i].VotingNumber == number {
			return &f.votings[proceeding][i], nil
		}
	}
	return nil, fmt.Errorf("%w: voting %d/%d", common.ErrUpstreamNotFound, proceeding, number)
}

func (f *fakeClient) ListProceedings(context.Context) ([]sejmapi.Proceeding, error) {
	return f.proceedings, nil
}

func (f *fakeClient) GetVotingPDF(context.Context, int, int) ([]byte, error) {
	if f.votingPDF == nil {
		return nil, common.ErrUpstreamNotFound
	}
	return f.votingPDF, nil
}

// fakeExtractor returns canned text per document id and counts calls.
type fakeExtractor struct {
	texts map[string]string
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, docID, _ string, _ []byte) (extract.Result, error) {
	f.calls++
	return extract.Result{Text: f.texts[docID], Method: "pdf-text"}, nil
}

type fakeParser struct {
	deputies []votes.DeputyVote
}

func (f *fakeParser) ParsePDF([]byte) ([]votes.DeputyVote, error) {
	return f.deputies, nil
}

func newTestPipeline(t *testing.T, client SejmClient, ex TextExtractor, parser RollCallParser) (*Pipeline, *repository.Store) {
	t.Helper()
	store, err := repository.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	if ex == nil {
		ex = &fakeExtractor{}
	}
	if parser == nil {
		parser = &fakeParser{}
	}
	return New(client, ex, parser, store, nil), store
}

func printFixture(number, title string) sejmapi.Print {
	return sejmapi.Print{
		Number:       number,
		Term:         10,
		Title:        title,
		DocumentDate: "2025-03-12",
		Attachments:  []string{number + ".pdf"},
		Stages: []sejmapi.Stage{
			{StageName: "Projekt wpłynął do Sejmu", Date: "2025-03-12"},
		},
	}
}

func TestIngestPrintsCreates(t *testing.T) {
	client := &fakeClient{
		term: 10,
		prints: []sejmapi.Print{
			printFixture("100", "Rządowy projekt ustawy o podatkach"),
			printFixture("101", "Poselski projekt ustawy o ochronie zdrowia"),
		},
		attachments: map[string][]byte{
			"100/100.pdf": []byte("%PDF-"),
			"101/101.pdf": []byte("%PDF-"),
		},
	}
	ex := &fakeExtractor{texts: map[string]string{"100": "Art. 1. Tekst ustawy.", "101": ""}}
	p, store := newTestPipeline(t, client, ex, nil)

	sum, err := p.Ingest(context.Background(), Options{Source: SourcePrints})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Created)
	assert.Empty(t, sum.Skipped)

	got, err := store.GetByNumber(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusReceived, got.Status)
	assert.Equal(t, "Art. 1. Tekst ustawy.", got.FullText)
	assert.Equal(t, "Rząd Rzeczypospolitej Polskiej", got.Authors)
	assert.Equal(t, constants.ProjectGovernmental, got.ProjectType)
	assert.Equal(t, []string{"Podatki"}, got.Tags)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "100.pdf", got.Attachments[0].Name)
}

func TestIngestIsIdempotentWithoutForce(t *testing.T) {
	client := &fakeClient{term: 10, prints: []sejmapi.Print{printFixture("100", "Projekt ustawy")}}
	p, _ := newTestPipeline(t, client, nil, nil)
	ctx := context.Background()

	first, err := p.Ingest(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := p.Ingest(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 1, second.Unchanged)
}

func TestIngestPartialFailureContainment(t *testing.T) {
	client := &fakeClient{
		term: 10,
		prints: []sejmapi.Print{
			printFixture("100", "Projekt ustawy"),
			printFixture("101", "Projekt ustawy"),
			printFixture("102", "Projekt ustawy"),
		},
		printErr: map[string]error{"101": common.ErrUpstreamUnavailable},
	}
	p, _ := newTestPipeline(t, client, nil, nil)

	sum, err := p.Ingest(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Created)
	require.Len(t, sum.Skipped, 1)
	assert.Equal(t, "101", sum.Skipped[0].Identifier)
}

func TestIngestForceOverwritesButKeepsText(t *testing.T) {
	client := &fakeClient{
		term:        10,
		prints:      []sejmapi.Print{printFixture("100", "Rządowy projekt ustawy")},
		attachments: map[string][]byte{"100/100.pdf": []byte("%PDF-")},
	}
	ex := &fakeExtractor{texts: map[string]string{"100": "Pełny tekst"}}
	p, store := newTestPipeline(t, client, ex, nil)
	ctx := context.Background()

	_, err := p.Ingest(ctx, Options{})
	require.NoError(t, err)

	// Second run: extraction now yields nothing and the title changed.
	ex.texts["100"] = ""
	client.prints[0].Title = "Rządowy projekt ustawy (tekst jednolity)"

	sum, err := p.Ingest(ctx, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Updated)

	got, err := store.GetByNumber(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "Rządowy projekt ustawy (tekst jednolity)", got.Title)
	assert.Equal(t, "Pełny tekst", got.FullText, "stored text must survive an empty re-extraction")
}

func TestIngestLimit(t *testing.T) {
	client := &fakeClient{
		term: 10,
		prints: []sejmapi.Print{
			printFixture("100", "Projekt ustawy"),
			printFixture("101", "Projekt ustawy"),
			printFixture("102", "Projekt ustawy"),
		},
	}
	p, _ := newTestPipeline(t, client, nil, nil)

	sum, err := p.Ingest(context.Background(), Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Created)
}

func TestIngestProcessesFiltersStatutes(t *testing.T) {
	client := &fakeClient{
		term: 10,
		processes: map[string]*sejmapi.Process{
			"200": {Number: "200", Title: "Projekt ustawy o lasach", DocumentType: "ustawa", ProcessStartDate: "2025-02-01"},
			"201": {Number: "201", Title: "Projekt bez typu dokumentu", ProcessStartDate: "2025-02-02"},
			"202": {Number: "202", Title: "Projekt uchwały Sejmu", DocumentType: "uchwała", ProcessStartDate: "2025-02-03"},
		},
	}
	p, store := newTestPipeline(t, client, nil, nil)
	ctx := context.Background()

	sum, err := p.Ingest(ctx, Options{Source: SourceProcesses})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Created)

	_, err = store.GetByNumber(ctx, "200")
	require.NoError(t, err)
	_, err = store.GetByNumber(ctx, "201")
	assert.ErrorIs(t, err, common.ErrNotFound, "untyped processes are not statutes")
	_, err = store.GetByNumber(ctx, "202")
	assert.ErrorIs(t, err, common.ErrNotFound, "resolutions flow through the prints source")
}

func TestIngestVotings(t *testing.T) {
	client := &fakeClient{
		term: 10,
		votings: map[int][]sejmapi.Voting{
			15: {{
				VotingNumber: 42,
				Title:        "Głosowanie nad całością projektu",
				Topic:        "Projekt ustawy o podatkach",
				Date:         "2025-10-15T10:11:50",
				Yes:          231, No: 198, Abstain: 4, NotParticipating: 27, TotalVoted: 433,
				Links: []sejmapi.Link{{Rel: "pdf", Href: "https://api.example/votings/15/42/pdf"}},
			}},
		},
		votingPDF: []byte("%PDF-"),
	}
	parser := &fakeParser{deputies: []votes.DeputyVote{
		{Club: "PiS", LastName: "NOWAK", FirstName: "JAN", Vote: votes.VoteFor},
		{Club: "PiS", LastName: "KOWALSKI", FirstName: "ANNA", Vote: votes.VoteAgainst},
		{Club: "PSL-TD", LastName: "MAZUR", FirstName: "EWA", Vote: votes.VoteAbstained},
	}}
	p, store := newTestPipeline(t, client, nil, parser)
	ctx := context.Background()

	sum, err := p.Ingest(ctx, Options{Source: SourceVotings, Proceeding: 15})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Created)

	got, err := store.GetByNumber(ctx, "Głosowanie nr 42")
	require.NoError(t, err)
	assert.Equal(t, "term10_proc15_vote42", got.SejmID)
	require.NotNil(t, got.VotingResults)
	assert.Equal(t, 231, got.VotingResults.Yes)
	assert.Equal(t, 433, got.VotingResults.TotalVoted)
	require.Len(t, got.ClubResults, 2)
	assert.Equal(t, "PiS", got.ClubResults[0].Club)
	assert.Equal(t, 2, got.ClubResults[0].Voted)
}

func TestIngestVotingsResolvesCurrentProceeding(t *testing.T) {
	client := &fakeClient{
		term: 10,
		proceedings: []sejmapi.Proceeding{
			{Number: 14},
			{Number: 15, Current: true},
		},
		votings: map[int][]sejmapi.Voting{
			15: {{VotingNumber: 7, Title: "Głosowanie nad poprawką", Date: "2025-10-15"}},
		},
	}
	p, store := newTestPipeline(t, client, nil, nil)
	ctx := context.Background()

	sum, err := p.Ingest(ctx, Options{Source: SourceVotings})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Created)

	got, err := store.GetByNumber(ctx, "Głosowanie nr 7")
	require.NoError(t, err)
	assert.Equal(t, "term10_proc15_vote7", got.SejmID)
}

func TestIngestVotingsNoProceedingsListed(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeClient{term: 10}, nil, nil)
	_, err := p.Ingest(context.Background(), Options{Source: SourceVotings})
	assert.ErrorIs(t, err, common.ErrUpstreamNotFound)
}

func TestReparseMissingText(t *testing.T) {
	client := &fakeClient{
		term:        10,
		prints:      []sejmapi.Print{printFixture("100", "Projekt ustawy")},
		attachments: map[string][]byte{"100/100.pdf": []byte("%PDF-")},
	}
	ex := &fakeExtractor{texts: map[string]string{}}
	p, store := newTestPipeline(t, client, ex, nil)
	ctx := context.Background()

	_, err := p.Ingest(ctx, Options{})
	require.NoError(t, err)

	got, err := store.GetByNumber(ctx, "100")
	require.NoError(t, err)
	require.Empty(t, got.FullText)

	ex.texts["100"] = "Odzyskany tekst"
	sum, err := p.ReparseMissingText(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Updated)

	got, err = store.GetByNumber(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "Odzyskany tekst", got.FullText)
}

func TestRefreshStatuses(t *testing.T) {
	client := &fakeClient{term: 10, prints: []sejmapi.Print{
		{
			Number:       "100",
			Title:        "Sprawozdanie Komisji w sprawie uchwały Senatu",
			DocumentDate: "2025-03-12",
		},
	}}
	p, store := newTestPipeline(t, client, nil, nil)
	ctx := context.Background()

	_, err := p.Ingest(ctx, Options{})
	require.NoError(t, err)

	// The print's stage history pinned the status; force a stale value.
	got, err := store.GetByNumber(ctx, "100")
	require.NoError(t, err)
	got.Status = constants.StatusInProgress
	require.NoError(t, store.Update(ctx, got))

	sum, err := p.RefreshStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Updated)

	got, err = store.GetByNumber(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusSenate, got.Status)
}
