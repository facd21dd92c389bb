package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
	"github.com/custodia-labs/r3form/internal/logger"
)

// Ensure FormService implements the interface.
var _ driving.FormService = (*FormService)(nil)

// timestampLayout matches the millisecond ISO-8601 stamps already in the sheet.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormService owns the form state for one process run and orchestrates
// loading, case selection, editing and submission.
type FormService struct {
	cache    *CacheService
	remote   driven.RemoteDataSource
	tracker  *TrackerService
	states   driven.FormStateStore
	settings domain.FormSettings
	specs    []domain.FieldSpec
	saver    *autosaver
	now      func() time.Time

	mu          sync.RWMutex
	initialised bool
	cases       []domain.CaseRecord
	state       domain.FormState
	lookup      domain.Lookup

	listenersMu sync.Mutex
	listeners   map[int]domain.FormListener
	nextID      int
}

// NewFormService creates a form controller.
func NewFormService(
	cache *CacheService,
	remote driven.RemoteDataSource,
	tracker *TrackerService,
	states driven.FormStateStore,
	settings domain.FormSettings,
) *FormService {
	specs := settings.FieldSpecs()
	s := &FormService{
		cache:     cache,
		remote:    remote,
		tracker:   tracker,
		states:    states,
		settings:  settings,
		specs:     specs,
		now:       time.Now,
		state:     domain.NewFormState(specs),
		listeners: make(map[int]domain.FormListener),
	}
	s.saver = newAutosaver(settings.Debounce, s.persist)
	return s
}

// Init loads cases and submissions and restores the saved form.
func (s *FormService) Init(ctx context.Context) error {
	logger.Section("Init")
	if err := s.loadAll(ctx, false); err != nil {
		return err
	}

	restored := s.restore(ctx)

	s.mu.Lock()
	s.state = restored
	s.initialised = true
	s.mu.Unlock()

	s.emit(domain.FormEvent{Kind: domain.FormEventCasesLoaded})

	if restored.CaseID != "" {
		if _, err := s.recheck(ctx, restored.CaseID); err != nil {
			logger.Warn("restore: check %s for an existing submission: %v", restored.CaseID, err)
		}
	}
	return nil
}

// Refresh bypasses the cache and re-checks the selected case.
func (s *FormService) Refresh(ctx context.Context) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	logger.Section("Refresh")
	if err := s.loadAll(ctx, true); err != nil {
		return err
	}
	s.emit(domain.FormEvent{Kind: domain.FormEventCasesLoaded})

	s.mu.RLock()
	caseID := s.state.CaseID
	s.mu.RUnlock()
	if caseID == "" {
		return nil
	}
	_, err := s.recheck(ctx, caseID)
	return err
}

// loadAll serves the case list from a valid cache unless forced. Otherwise
// both collections are fetched concurrently and cached. A failed fetch falls
// back to any non-empty cached case list, even a stale one.
func (s *FormService) loadAll(ctx context.Context, force bool) error {
	if !force {
		if cases := s.cache.CaseList(ctx, true); cases != nil {
			logger.Debug("using cached case list (%d cases)", len(cases))
			s.setCases(cases)
			return nil
		}
	}

	var (
		cases []domain.CaseRecord
		subs  []domain.SubmissionRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cases, err = s.remote.FetchCaseList(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = s.remote.FetchSubmissions(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		if fallback := s.cache.CaseList(ctx, false); len(fallback) > 0 {
			logger.Warn("load failed, using cached case list: %v", err)
			s.setCases(fallback)
			return nil
		}
		return fmt.Errorf("load case data: %w", err)
	}

	logger.Info("fetched %d cases and %d submissions", len(cases), len(subs))
	s.cache.Set(ctx, domain.CacheKeyCaseList, cases)
	s.cache.Set(ctx, domain.CacheKeySubmissions, subs)
	s.cacheReportURLs(ctx, cases)
	s.setCases(cases)
	return nil
}

func (s *FormService) setCases(cases []domain.CaseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases = cases
}

func (s *FormService) cacheReportURLs(ctx context.Context, cases []domain.CaseRecord) {
	urls := s.cache.ReportURLs(ctx)
	for _, c := range cases {
		if u := c.ReportURLs(); !u.IsEmpty() {
			urls[c.ID] = u
		}
	}
	s.cache.Set(ctx, domain.CacheKeyReportURLs, urls)
}

// restore loads the saved form. Missing or unreadable state yields defaults.
func (s *FormService) restore(ctx context.Context) domain.FormState {
	fresh := domain.NewFormState(s.specs)
	saved, err := s.states.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("restore form state: %v", err)
		}
		return fresh
	}

	state := saved.Clone()
	if state.Fields == nil {
		state.Fields = fresh.Fields
	}
	for _, spec := range s.specs {
		text, ok := state.Fields[spec.ID]
		if !ok {
			state.Fields[spec.ID] = spec.DefaultText
			continue
		}
		state.Fields[spec.ID] = spec.Truncate(text)
	}
	logger.Debug("restored form state for case %q", state.CaseID)
	return state
}

// Cases returns the loaded case list.
func (s *FormService) Cases() []domain.CaseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CaseRecord(nil), s.cases...)
}

// SelectCase makes a case current and looks up its prior submission.
func (s *FormService) SelectCase(ctx context.Context, caseID string) (*domain.CaseView, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	c, ok := domain.FindCase(s.cases, caseID)
	s.mu.RUnlock()
	if !ok {
		return nil, &domain.ValidationError{
			Missing: []string{"case"},
			Message: fmt.Sprintf("Unknown case %q", caseID),
		}
	}

	lookup, existing, err := s.tracker.Check(ctx, caseID)
	if err != nil {
		return nil, err
	}

	urls := s.resolveReportURLs(ctx, c)

	s.mu.Lock()
	s.state.CaseID = caseID
	for _, spec := range s.specs {
		if s.state.Fields[spec.ID] == "" {
			s.state.Fields[spec.ID] = spec.DefaultText
		}
	}
	s.lookup = lookup
	s.mu.Unlock()
	s.saver.Schedule()

	s.emit(domain.FormEvent{Kind: domain.FormEventCaseSelected, CaseID: caseID})
	s.emitLookup(caseID, existing)

	return &domain.CaseView{Case: c, Existing: existing, Viewers: urls.Viewers()}, nil
}

// resolveReportURLs prefers the per-case URL cache and fills it on a miss.
func (s *FormService) resolveReportURLs(ctx context.Context, c domain.CaseRecord) domain.ReportURLs {
	cached := s.cache.ReportURLs(ctx)
	if u, ok := cached[c.ID]; ok && !u.IsEmpty() {
		return u
	}
	u := c.ReportURLs()
	if u.IsEmpty() {
		return u
	}
	cached[c.ID] = u
	s.cache.Set(ctx, domain.CacheKeyReportURLs, cached)
	return u
}

func (s *FormService) recheck(ctx context.Context, caseID string) (*domain.SubmissionRecord, error) {
	lookup, existing, err := s.tracker.Check(ctx, caseID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.state.CaseID == caseID {
		s.lookup = lookup
	}
	s.mu.Unlock()
	s.emitLookup(caseID, existing)
	return existing, nil
}

func (s *FormService) emitLookup(caseID string, existing *domain.SubmissionRecord) {
	if existing != nil {
		s.emit(domain.FormEvent{Kind: domain.FormEventExistingFound, CaseID: caseID, Existing: existing})
		return
	}
	s.emit(domain.FormEvent{Kind: domain.FormEventExistingCleared, CaseID: caseID})
}

// SetValue updates a free-text field. Text is kept as a bullet list and
// anything beyond the field's limit is cut.
func (s *FormService) SetValue(field domain.FieldID, text string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	spec, ok := domain.FindFieldSpec(s.specs, field)
	if !ok {
		return fmt.Errorf("%w: unknown field %q", domain.ErrInvalidInput, field)
	}
	s.edit(func(st *domain.FormState) {
		st.Fields[field] = spec.Normalize(text)
	})
	return nil
}

// Value returns a free-text field.
func (s *FormService) Value(field domain.FieldID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Fields[field]
}

// SetStatus updates the ASC and ADHD selectors. Empty values clear them.
func (s *FormService) SetStatus(status domain.StatusFields) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if status.ASC != "" && !contains(s.settings.ASCOptions, status.ASC) {
		return fmt.Errorf("%w: unknown ASC status %q", domain.ErrInvalidInput, status.ASC)
	}
	if status.ADHD != "" && !contains(s.settings.ADHDOptions, status.ADHD) {
		return fmt.Errorf("%w: unknown ADHD status %q", domain.ErrInvalidInput, status.ADHD)
	}
	s.edit(func(st *domain.FormState) {
		st.Status = status
	})
	return nil
}

// ToggleReferral checks or unchecks a referral option. Checked options keep
// the configured order.
func (s *FormService) ToggleReferral(option string, checked bool) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if !contains(s.settings.ReferralOptions, option) {
		return fmt.Errorf("%w: unknown referral %q", domain.ErrInvalidInput, option)
	}
	s.edit(func(st *domain.FormState) {
		var next []string
		for _, o := range s.settings.ReferralOptions {
			on := st.Referrals.Has(o)
			if o == option {
				on = checked
			}
			if on {
				next = append(next, o)
			}
		}
		st.Referrals.Checked = next
	})
	return nil
}

// SetRemarks updates the referrals remark.
func (s *FormService) SetRemarks(remarks string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	s.edit(func(st *domain.FormState) {
		st.Referrals.Remarks = domain.TruncateRunes(remarks, s.settings.CharLimit)
	})
	return nil
}

func (s *FormService) edit(fn func(st *domain.FormState)) {
	s.mu.Lock()
	fn(&s.state)
	caseID := s.state.CaseID
	s.mu.Unlock()
	s.saver.Schedule()
	s.emit(domain.FormEvent{Kind: domain.FormEventChanged, CaseID: caseID})
}

// State returns a copy of the form.
func (s *FormService) State() domain.FormState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Lookup returns the prior submission finding for the selected case.
func (s *FormService) Lookup() domain.Lookup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup
}

// Submit creates or updates the submission for the selected case.
//
// Validation failures return a *domain.ValidationError before any request.
// An existing row without a usable row id returns a *domain.FormatError
// instead of updating row 0. A rejected write returns the remote error and
// leaves the form intact.
func (s *FormService) Submit(ctx context.Context) (*domain.SubmitResult, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	state := s.state.Clone()
	lookup := s.lookup
	c, found := domain.FindCase(s.cases, state.CaseID)
	s.mu.RUnlock()

	if missing := state.Missing(); len(missing) > 0 {
		msg := "Please select both ASC and ADHD status"
		if state.CaseID == "" {
			msg = "Please select a case"
		}
		return nil, &domain.ValidationError{Missing: missing, Message: msg}
	}
	if !found {
		return nil, &domain.ValidationError{
			Missing: []string{"case"},
			Message: fmt.Sprintf("Selected case %q not found", state.CaseID),
		}
	}

	rec := state.Record(c, s.now().UTC().Format(timestampLayout))

	result := &domain.SubmitResult{CaseID: c.ID}
	if lookup.Found && lookup.CaseID == c.ID {
		if lookup.RowID <= 0 {
			return nil, &domain.FormatError{
				Op:    fmt.Sprintf("update submission for %s", c.ID),
				Field: domain.RowIDKey,
			}
		}
		logger.Info("updating submission row %d for %s", lookup.RowID, c.ID)
		if err := s.remote.UpdateSubmission(ctx, lookup.RowID, rec); err != nil {
			return nil, err
		}
		result.RowID = lookup.RowID
		result.Updated = true
	} else {
		logger.Info("creating submission for %s", c.ID)
		rowID, err := s.remote.CreateSubmission(ctx, rec)
		if err != nil {
			return nil, err
		}
		result.RowID = rowID
	}

	s.cache.Clear(ctx)

	s.mu.Lock()
	if s.state.CaseID == c.ID {
		s.lookup = domain.Lookup{CaseID: c.ID, RowID: result.RowID, Found: result.RowID > 0}
	}
	s.mu.Unlock()

	s.emit(domain.FormEvent{Kind: domain.FormEventSubmitted, CaseID: c.ID, Result: result})
	return result, nil
}

// Clear resets the form to its defaults and removes the saved copy.
func (s *FormService) Clear(ctx context.Context) error {
	s.saver.Cancel()

	s.mu.Lock()
	s.state = domain.NewFormState(s.specs)
	s.lookup = domain.Lookup{}
	s.mu.Unlock()

	if err := s.states.Delete(ctx); err != nil {
		logger.Warn("clear saved form state: %v", err)
	}
	s.tracker.Reset()

	s.emit(domain.FormEvent{Kind: domain.FormEventViewersReset})
	s.emit(domain.FormEvent{Kind: domain.FormEventExistingCleared})
	s.emit(domain.FormEvent{Kind: domain.FormEventCleared})
	return nil
}

// Flush persists any pending edit immediately.
func (s *FormService) Flush(ctx context.Context) error {
	return s.saver.Flush(ctx)
}

// Close stops the autosave timer after flushing.
func (s *FormService) Close() error {
	return s.saver.Close(context.Background())
}

func (s *FormService) persist(ctx context.Context) error {
	state := s.State()
	err := s.states.Save(ctx, state)
	if err != nil {
		logger.Error("save form state: %v", err)
	}
	s.emit(domain.FormEvent{Kind: domain.FormEventSaved, CaseID: state.CaseID, Err: err})
	return err
}

// Subscribe registers a listener and returns its dispose function.
func (s *FormService) Subscribe(listener domain.FormListener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *FormService) emit(ev domain.FormEvent) {
	s.listenersMu.Lock()
	listeners := make([]domain.FormListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}

func (s *FormService) requireInit() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialised {
		return domain.ErrNotInitialised
	}
	return nil
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
