package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/r3form/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
)

var errBoom = errors.New("boom")

// fakeRemote is an in-memory RemoteDataSource that records writes.
type fakeRemote struct {
	mu          sync.Mutex
	cases       []domain.CaseRecord
	subs        []domain.SubmissionRecord
	caseErr     error
	subsErr     error
	writeErr    error
	nextRowID   int
	caseFetches int
	subFetches  int
	creates     []domain.SubmissionRecord
	updates     map[int]domain.SubmissionRecord
}

var _ driven.RemoteDataSource = (*fakeRemote)(nil)

func newFakeRemote(cases []domain.CaseRecord, subs []domain.SubmissionRecord) *fakeRemote {
	return &fakeRemote{
		cases:     cases,
		subs:      subs,
		nextRowID: 100,
		updates:   make(map[int]domain.SubmissionRecord),
	}
}

func (f *fakeRemote) FetchCaseList(_ context.Context) ([]domain.CaseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.caseFetches++
	if f.caseErr != nil {
		return nil, f.caseErr
	}
	return append([]domain.CaseRecord(nil), f.cases...), nil
}

func (f *fakeRemote) FetchSubmissions(_ context.Context) ([]domain.SubmissionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subFetches++
	if f.subsErr != nil {
		return nil, f.subsErr
	}
	return append([]domain.SubmissionRecord(nil), f.subs...), nil
}

func (f *fakeRemote) CreateSubmission(_ context.Context, rec domain.SubmissionRecord) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.creates = append(f.creates, rec)
	rec.RowID = f.nextRowID
	f.nextRowID++
	f.subs = append(f.subs, rec)
	return rec.RowID, nil
}

func (f *fakeRemote) UpdateSubmission(_ context.Context, rowID int, rec domain.SubmissionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.updates[rowID] = rec
	return nil
}

func (f *fakeRemote) setSubs(subs []domain.SubmissionRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = subs
}

func (f *fakeRemote) counts() (caseFetches, subFetches, creates, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.caseFetches, f.subFetches, len(f.creates), len(f.updates)
}

// fakeGenerator scripts a response per stage.
type fakeGenerator struct {
	mu      sync.Mutex
	results map[domain.ReportStage]*domain.StageResult
	errs    map[domain.ReportStage]error
	calls   []domain.ReportStage
	pings   []domain.ReportStage
}

var _ driven.ReportGenerator = (*fakeGenerator)(nil)

func newFakeGenerator() *fakeGenerator {
	ok := true
	results := make(map[domain.ReportStage]*domain.StageResult)
	for _, s := range domain.AllReportStages() {
		results[s] = &domain.StageResult{Stage: s, Success: &ok, Message: string(s) + " done"}
	}
	results[domain.ReportStageReport].Progress = &domain.StageProgress{
		Status: "complete",
		Details: &domain.StageDetails{
			DocumentURL: "https://docs.example.com/d/1",
			EmailStatus: &domain.EmailStatus{Sent: true, RecipientEmail: "clinic@example.com"},
		},
	}
	return &fakeGenerator{results: results, errs: make(map[domain.ReportStage]error)}
}

func (g *fakeGenerator) RunStage(_ context.Context, stage domain.ReportStage, _ string) (*domain.StageResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, stage)
	if err := g.errs[stage]; err != nil {
		return nil, err
	}
	return g.results[stage], nil
}

func (g *fakeGenerator) Ping(_ context.Context, stage domain.ReportStage) (*domain.StageResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pings = append(g.pings, stage)
	if err := g.errs[stage]; err != nil {
		return nil, err
	}
	return g.results[stage], nil
}

// recordingNotifier remembers the last warning shown.
type recordingNotifier struct {
	mu      sync.Mutex
	shown   []domain.SubmissionRecord
	cleared int
}

var _ driven.Notifier = (*recordingNotifier)(nil)

func (n *recordingNotifier) ShowExistingSubmission(rec domain.SubmissionRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, rec)
}

func (n *recordingNotifier) ClearExistingSubmission() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cleared++
}

// failingCacheStore fails every operation.
type failingCacheStore struct{}

func (failingCacheStore) Get(context.Context, string) (*domain.CacheEntry, error) {
	return nil, errBoom
}

func (failingCacheStore) Put(context.Context, string, []byte, time.Time) error {
	return errBoom
}

func (failingCacheStore) Delete(context.Context, ...string) error {
	return errBoom
}

// failingFormStateStore fails saves but loads nothing.
type failingFormStateStore struct{}

func (failingFormStateStore) Load(context.Context) (*domain.FormState, error) {
	return nil, domain.ErrNotFound
}

func (failingFormStateStore) Save(context.Context, domain.FormState) error {
	return errBoom
}

func (failingFormStateStore) Delete(context.Context) error {
	return errBoom
}

func testCases() []domain.CaseRecord {
	return []domain.CaseRecord{
		{ID: "C001", Name: "Alice", ReportURLA: "https://docs.example.com/r1/C001"},
		{ID: "C002", Name: "Bob"},
		{ID: "C003", Name: "Cara"},
	}
}

func testCacheSettings() domain.CacheSettings {
	return domain.CacheSettings{TTL: time.Hour, MinCaseRows: 2, KeyPrefix: "test."}
}

func testFormSettings() domain.FormSettings {
	s := domain.DefaultAppSettings().Form
	s.Debounce = 10 * time.Millisecond
	s.CharLimit = 50
	return s
}

// formFixture wires a form controller over memory stores and a fake remote.
type formFixture struct {
	remote *fakeRemote
	store  *memory.CacheStore
	states *memory.FormStateStore
	cache  *CacheService
	track  *TrackerService
	form   *FormService
}

func newFormFixture(t *testing.T, remote *fakeRemote) *formFixture {
	t.Helper()
	return newFormFixtureWith(t, remote, testFormSettings())
}

func newFormFixtureWith(t *testing.T, remote *fakeRemote, settings domain.FormSettings) *formFixture {
	t.Helper()
	store := memory.NewCacheStore()
	states := memory.NewFormStateStore()
	cache := NewCacheService(store, testCacheSettings())
	tracker := NewTrackerService(cache, remote)
	form := NewFormService(cache, remote, tracker, states, settings)
	t.Cleanup(func() { _ = form.Close() })
	return &formFixture{
		remote: remote,
		store:  store,
		states: states,
		cache:  cache,
		track:  tracker,
		form:   form,
	}
}

func (f *formFixture) init(t *testing.T) {
	t.Helper()
	if err := f.form.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
}
