package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 123e6, time.UTC)

func TestFormService_RequiresInit(t *testing.T) {
	ctx := context.Background()
	f := newFormFixture(t, newFakeRemote(testCases(), nil))

	_, err := f.form.SelectCase(ctx, "C001")
	assert.ErrorIs(t, err, domain.ErrNotInitialised)
	assert.ErrorIs(t, f.form.SetValue(domain.FieldPrioritySupport, "x"), domain.ErrNotInitialised)
	assert.ErrorIs(t, f.form.SetStatus(domain.StatusFields{}), domain.ErrNotInitialised)
	assert.ErrorIs(t, f.form.ToggleReferral("Psychology", true), domain.ErrNotInitialised)
	assert.ErrorIs(t, f.form.SetRemarks("x"), domain.ErrNotInitialised)
	assert.ErrorIs(t, f.form.Refresh(ctx), domain.ErrNotInitialised)
	_, err = f.form.Submit(ctx)
	assert.ErrorIs(t, err, domain.ErrNotInitialised)
}

func TestFormService_Init_LoadsAndCaches(t *testing.T) {
	ctx := context.Background()
	f := newFormFixture(t, newFakeRemote(testCases(), nil))

	f.init(t)

	assert.Equal(t, testCases(), f.form.Cases())
	assert.True(t, f.cache.IsValid(ctx, domain.CacheKeyCaseList))
	assert.True(t, f.cache.IsValid(ctx, domain.CacheKeySubmissions))
	urls := f.cache.ReportURLs(ctx)
	assert.Equal(t, "https://docs.example.com/r1/C001", urls["C001"].A)
	assert.NotContains(t, urls, "C002")

	state := f.form.State()
	assert.Empty(t, state.CaseID)
	for _, spec := range testFormSettings().FieldSpecs() {
		assert.Equal(t, spec.DefaultText, state.Fields[spec.ID])
	}
}

func TestFormService_Init_UsesValidCache(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(testCases(), nil)
	f := newFormFixture(t, remote)
	f.cache.Set(ctx, domain.CacheKeyCaseList, testCases()[:2])

	f.init(t)

	assert.Len(t, f.form.Cases(), 2)
	caseFetches, _, _, _ := remote.counts()
	assert.Zero(t, caseFetches)
}

func TestFormService_Init_FailureWithoutCache(t *testing.T) {
	remote := newFakeRemote(nil, nil)
	remote.caseErr = &domain.NetworkError{Op: "fetch case list", Status: 502}
	f := newFormFixture(t, remote)

	err := f.form.Init(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	_, err = f.form.SelectCase(context.Background(), "C001")
	assert.ErrorIs(t, err, domain.ErrNotInitialised)
}

func TestFormService_Init_FallsBackToStaleCache(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(nil, nil)
	remote.caseErr = &domain.NetworkError{Op: "fetch case list", Status: 502}
	f := newFormFixture(t, remote)

	payload, err := json.Marshal(testCases())
	require.NoError(t, err)
	require.NoError(t, f.store.Put(ctx, "test.case_list", payload, time.Now().Add(-48*time.Hour)))

	require.NoError(t, f.form.Init(ctx))
	assert.Equal(t, testCases(), f.form.Cases())
}

// An expired snapshot is refetched and overwritten.
func TestFormService_Init_StaleCacheRefetched(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(testCases(), []domain.SubmissionRecord{
		{RowID: 7, CaseID: "C001", Timestamp: "2024-01-10T10:00:00.000Z"},
	})
	f := newFormFixture(t, remote)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, f.store.Put(ctx, "test.case_list", []byte(`[{"id":"OLD1"},{"id":"OLD2"}]`), old))
	require.NoError(t, f.store.Put(ctx, "test.submissions", []byte(`[]`), old))

	f.init(t)

	caseFetches, subFetches, _, _ := remote.counts()
	assert.Equal(t, 1, caseFetches)
	assert.Equal(t, 1, subFetches)
	assert.Equal(t, testCases(), f.cache.CaseList(ctx, true))

	subs, ok := f.cache.Submissions(ctx, true)
	require.True(t, ok)
	require.Len(t, subs, 1)
	assert.Equal(t, 7, subs[0].RowID)

	view, err := f.form.SelectCase(ctx, "C001")
	require.NoError(t, err)
	require.NotNil(t, view.Existing)
	assert.Equal(t, 7, view.Existing.RowID)
}

func TestFormService_SelectCase(t *testing.T) {
	ctx := context.Background()
	f := newFormFixture(t, newFakeRemote(testCases(), nil))
	f.init(t)

	view, err := f.form.SelectCase(ctx, "C001")

	require.NoError(t, err)
	assert.Equal(t, "C001 - Alice", view.Case.Label())
	assert.Nil(t, view.Existing)
	assert.Equal(t, "https://docs.example.com/r1/C001", view.Viewers[0].URL)
	assert.True(t, view.Viewers[1].Placeholder())
	assert.Equal(t, "C001", f.form.State().CaseID)
	assert.False(t, f.form.Lookup().Found)
}

func TestFormService_SelectCase_Unknown(t *testing.T) {
	f := newFormFixture(t, newFakeRemote(testCases(), nil))
	f.init(t)

	_, err := f.form.SelectCase(context.Background(), "C404")

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, f.form.State().CaseID)
}

func TestFormService_Edits(t *testing.T) {
	f := newFormFixture(t, newFakeRemote(testCases(), nil))
	f.init(t)

	require.NoError(t, f.form.SetValue(domain.FieldStrengthsAbilities, "Strong recall"))
	assert.Equal(t, "• Strong recall", f.form.Value(domain.FieldStrengthsAbilities))

	err := f.form.SetValue(domain.FieldID("mood"), "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, f.form.SetStatus(domain.StatusFields{ASC: "ASC confirmed", ADHD: "ADHD queried"}))
	err = f.form.SetStatus(domain.StatusFields{ASC: "maybe"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Checked referrals keep the configured order.
	require.NoError(t, f.form.ToggleReferral("Psychology", true))
	require.NoError(t, f.form.ToggleReferral("Speech Pathology", true))
	require.NoError(t, f.form.ToggleReferral("Dietitian", true))
	require.NoError(t, f.form.ToggleReferral("Dietitian", false))
	assert.ErrorIs(t, f.form.ToggleReferral("Astrology", true), domain.ErrInvalidInput)
	require.NoError(t, f.form.SetRemarks("Urgent"))

	state := f.form.State()
	assert.Equal(t, "ASC confirmed", state.Status.ASC)
	assert.Equal(t, []string{"Speech Pathology", "Psychology"}, state.Referrals.Checked)
	assert.Equal(t, "Urgent", state.Referrals.Remarks)
}

func TestFormService_SetValue_Bullets(t *testing.T) {
	f := newFormFixture(t, newFakeRemote(testCases(), nil))
	f.init(t)

	require.NoError(t, f.form.SetValue(domain.FieldClinicalObservations, "calm\nengaged"))
	assert.Equal(t, "• calm\n• engaged", f.form.Value(domain.FieldClinicalObservations))

	require.NoError(t, f.form.SetValue(domain.FieldClinicalObservations, ""))
	assert.Equal(t, domain.Bullet, f.form.Value(domain.FieldClinicalObservations))
}

func TestFormService_SetValue_Truncates(t *testing.T) {
	f := newFormFixture(t, newFakeRemote(testCases(), nil))
	f.init(t)

	long := strings.Repeat("é", 80)
	require.NoError(t, f.form.SetValue(domain.FieldPrioritySupport, long))

	got := f.form.Value(domain.FieldPrioritySupport)
	assert.Equal(t, "• "+strings.Repeat("é", 48), got)
}

// Scenario: a prior submission exists, so submit updates its row.
func TestFormService_Submit_UpdatesExisting(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(testCases(), []domain.SubmissionRecord{
		{RowID: 3, CaseID: "C001", Timestamp: "2024-01-01T10:00:00.000Z"},
		{RowID: 7, CaseID: "C001", Timestamp: "2024-02-01T10:00:00.000Z"},
	})
	f := newFormFixture(t, remote)
	f.form.now = func() time.Time { return fixedNow }
	f.init(t)

	view, err := f.form.SelectCase(ctx, "C001")
	require.NoError(t, err)
	require.NotNil(t, view.Existing)
	assert.Equal(t, domain.Lookup{CaseID: "C001", RowID: 7, Found: true}, f.form.Lookup())

	require.NoError(t, f.form.SetStatus(domain.StatusFields{ASC: "ASC confirmed", ADHD: "ADHD not confirmed"}))
	require.NoError(t, f.form.ToggleReferral("Psychology", true))

	result, err := f.form.Submit(ctx)

	require.NoError(t, err)
	assert.Equal(t, &domain.SubmitResult{RowID: 7, CaseID: "C001", Updated: true}, result)

	_, _, creates, updates := remote.counts()
	assert.Zero(t, creates)
	assert.Equal(t, 1, updates)

	rec := remote.updates[7]
	assert.Equal(t, "C001", rec.CaseID)
	assert.Equal(t, "Alice", rec.Name)
	assert.Equal(t, "2024-05-06T07:08:09.123Z", rec.Timestamp)
	assert.Equal(t, "ADHD not confirmed", rec.Status.ADHD)
	assert.Equal(t, []string{"Psychology"}, rec.Referrals.Checked)

	// The snapshot is invalidated after a write.
	assert.Nil(t, f.cache.Get(ctx, domain.CacheKeySubmissions))
}

// Scenario: no prior submission, so submit creates a row.
func TestFormService_Submit_CreatesNew(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(testCases(), []domain.SubmissionRecord{
		{RowID: 7, CaseID: "C001", Timestamp: "2024-02-01T10:00:00.000Z"},
	})
	f := newFormFixture(t, remote)
	f.init(t)

	_, err := f.form.SelectCase(ctx, "C002")
	require.NoError(t, err)
	require.NoError(t, f.form.SetStatus(domain.StatusFields{ASC: "ASC queried", ADHD: "ADHD queried"}))

	result, err := f.form.Submit(ctx)

	require.NoError(t, err)
	assert.False(t, result.Updated)
	assert.Equal(t, 100, result.RowID)
	_, _, creates, updates := remote.counts()
	assert.Equal(t, 1, creates)
	assert.Zero(t, updates)
	assert.Equal(t, domain.Lookup{CaseID: "C002", RowID: 100, Found: true}, f.form.Lookup())

	// A second submit now updates the row just created.
	result, err = f.form.Submit(ctx)
	require.NoError(t, err)
	assert.True(t, result.Updated)
	assert.Equal(t, 100, result.RowID)
}

// Scenario: missing selections fail before any request.
func TestFormService_Submit_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		caseID  string
		status  domain.StatusFields
		message string
		missing []string
	}{
		{
			name:    "no case",
			message: "Please select a case",
			missing: []string{"case", "ASC status", "ADHD status"},
		},
		{
			name:    "no status",
			caseID:  "C001",
			message: "Please select both ASC and ADHD status",
			missing: []string{"ASC status", "ADHD status"},
		},
		{
			name:    "no adhd",
			caseID:  "C001",
			status:  domain.StatusFields{ASC: "ASC confirmed"},
			message: "Please select both ASC and ADHD status",
			missing: []string{"ADHD status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newFakeRemote(testCases(), nil)
			f := newFormFixture(t, remote)
			f.init(t)
			if tt.caseID != "" {
				_, err := f.form.SelectCase(ctx, tt.caseID)
				require.NoError(t, err)
			}
			require.NoError(t, f.form.SetStatus(tt.status))

			_, err := f.form.Submit(ctx)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.message, verr.Message)
			assert.Equal(t, tt.missing, verr.Missing)

			_, _, creates, updates := remote.counts()
			assert.Zero(t, creates)
			assert.Zero(t, updates)
		})
	}
}

func TestFormService_Submit_MissingRowID(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(testCases(), []domain.SubmissionRecord{
		{CaseID: "C002", Timestamp: "2024-02-01T10:00:00.000Z"},
	})
	f := newFormFixture(t, remote)
	f.init(t)

	_, err := f.form.SelectCase(ctx, "C002")
	require.NoError(t, err)
	require.NoError(t, f.form.SetStatus(domain.StatusFields{ASC: "ASC confirmed", ADHD: "ADHD confirmed"}))

	result, err := f.form.Submit(ctx)

	assert.Nil(t, result)
	var ferr *domain.FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, domain.RowIDKey, ferr.Field)
	assert.ErrorIs(t, err, domain.ErrFormat)
	_, _, creates, updates := remote.counts()
	assert.Zero(t, creates)
	assert.Zero(t, updates)
	assert.True(t, f.cache.IsValid(ctx, domain.CacheKeyCaseList))
}

// Submit empties the cache; unknown ids must still resolve to nothing.
func TestFormService_Submit_UnknownCaseStaysUnknown(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(testCases(), []domain.SubmissionRecord{
		{RowID: 4, CaseID: "C999", Timestamp: "2024-01-01T10:00:00.000Z"},
	})
	f := newFormFixture(t, remote)
	f.init(t)

	_, err := f.form.SelectCase(ctx, "C002")
	require.NoError(t, err)
	require.NoError(t, f.form.SetStatus(domain.StatusFields{ASC: "ASC queried", ADHD: "ADHD queried"}))
	_, err = f.form.Submit(ctx)
	require.NoError(t, err)
	require.Nil(t, f.cache.Get(ctx, domain.CacheKeyCaseList))

	rec, err := f.track.FindExisting(ctx, "C999")

	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFormService_Submit_RemoteRejects(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(testCases(), nil)
	f := newFormFixture(t, remote)
	f.init(t)

	_, err := f.form.SelectCase(ctx, "C003")
	require.NoError(t, err)
	require.NoError(t, f.form.SetStatus(domain.StatusFields{ASC: "ASC confirmed", ADHD: "ADHD confirmed"}))
	require.NoError(t, f.form.SetRemarks("keep me"))

	remote.writeErr = &domain.SubmitError{Method: "POST", URL: "x", Status: 400, Body: "bad row"}
	_, err = f.form.Submit(ctx)

	assert.ErrorIs(t, err, domain.ErrSubmit)
	assert.Equal(t, "keep me", f.form.State().Referrals.Remarks)
	assert.True(t, f.cache.IsValid(ctx, domain.CacheKeyCaseList))
}

func TestFormService_Refresh_RechecksSelected(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(testCases(), nil)
	f := newFormFixture(t, remote)
	f.init(t)

	_, err := f.form.SelectCase(ctx, "C002")
	require.NoError(t, err)
	assert.False(t, f.form.Lookup().Found)

	remote.setSubs([]domain.SubmissionRecord{{RowID: 12, CaseID: "C002", Timestamp: "2024-04-01T00:00:00Z"}})
	require.NoError(t, f.form.Refresh(ctx))

	assert.Equal(t, domain.Lookup{CaseID: "C002", RowID: 12, Found: true}, f.form.Lookup())
	caseFetches, _, _, _ := remote.counts()
	assert.Equal(t, 2, caseFetches)
}

func TestFormService_Clear(t *testing.T) {
	ctx := context.Background()
	f := newFormFixture(t, newFakeRemote(testCases(), nil))
	f.init(t)

	_, err := f.form.SelectCase(ctx, "C001")
	require.NoError(t, err)
	require.NoError(t, f.form.SetValue(domain.FieldClinicalObservations, "calm"))
	require.NoError(t, f.form.SetStatus(domain.StatusFields{ASC: "ASC confirmed", ADHD: "ADHD queried"}))
	require.NoError(t, f.form.ToggleReferral("Psychology", true))
	require.NoError(t, f.form.SetRemarks("notes"))
	require.NoError(t, f.form.Flush(ctx))
	_, err = f.states.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, f.form.Clear(ctx))
	first := f.form.State()
	firstLookup := f.form.Lookup()

	assert.Empty(t, first.CaseID)
	assert.Equal(t, domain.StatusFields{}, first.Status)
	assert.Empty(t, first.Referrals.Checked)
	assert.Empty(t, first.Referrals.Remarks)
	assert.False(t, firstLookup.Found)
	specs := testFormSettings().FieldSpecs()
	require.Len(t, first.Fields, len(specs))
	for _, spec := range specs {
		assert.Equal(t, spec.DefaultText, first.Fields[spec.ID], spec.ID)
	}

	require.NoError(t, f.form.Clear(ctx))
	assert.Equal(t, first, f.form.State())
	assert.Equal(t, firstLookup, f.form.Lookup())
	_, err = f.states.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The case list cache survives a form clear.
	assert.True(t, f.cache.IsValid(ctx, domain.CacheKeyCaseList))
}

func TestFormService_Restore(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(testCases(), []domain.SubmissionRecord{
		{RowID: 5, CaseID: "C002", Timestamp: "2024-01-01T00:00:00Z"},
	})
	f := newFormFixture(t, remote)

	saved := domain.FormState{
		CaseID: "C002",
		Status: domain.StatusFields{ASC: "ASC confirmed"},
		Fields: map[domain.FieldID]string{
			domain.FieldClinicalObservations: strings.Repeat("a", 70),
		},
		Referrals: domain.Referrals{Checked: []string{"Psychology"}},
	}
	require.NoError(t, f.states.Save(ctx, saved))

	f.init(t)

	state := f.form.State()
	assert.Equal(t, "C002", state.CaseID)
	assert.Equal(t, "ASC confirmed", state.Status.ASC)
	assert.Equal(t, strings.Repeat("a", 50), state.Fields[domain.FieldClinicalObservations])
	specs := testFormSettings().FieldSpecs()
	spec, _ := domain.FindFieldSpec(specs, domain.FieldSupportRecommendations)
	assert.Equal(t, spec.DefaultText, state.Fields[domain.FieldSupportRecommendations])
	assert.Equal(t, domain.Lookup{CaseID: "C002", RowID: 5, Found: true}, f.form.Lookup())
}

func TestFormService_Autosave(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	settings := testFormSettings()
	settings.Debounce = time.Hour
	f := newFormFixtureWith(t, newFakeRemote(testCases(), nil), settings)
	f.init(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.form.SetRemarks(strings.Repeat("x", i+1)))
	}
	assert.Zero(t, f.states.Saves())

	require.NoError(t, f.form.Flush(ctx))
	assert.Equal(t, 1, f.states.Saves())

	// Nothing pending, nothing saved.
	require.NoError(t, f.form.Flush(ctx))
	assert.Equal(t, 1, f.states.Saves())

	saved, err := f.states.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "xxxxx", saved.Referrals.Remarks)

	require.NoError(t, f.form.SetRemarks("last"))
	require.NoError(t, f.form.Close())
	assert.Equal(t, 2, f.states.Saves())
}

func TestFormService_Autosave_Debounces(t *testing.T) {
	f := newFormFixture(t, newFakeRemote(testCases(), nil))
	f.init(t)

	require.NoError(t, f.form.SetRemarks("quick"))

	require.Eventually(t, func() bool {
		return f.states.Saves() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestFormService_PersistFailureIsReported(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(testCases(), nil)
	cache := NewCacheService(failingCacheStore{}, testCacheSettings())
	tracker := NewTrackerService(cache, remote)
	settings := testFormSettings()
	settings.Debounce = time.Hour
	form := NewFormService(cache, remote, tracker, failingFormStateStore{}, settings)
	defer form.Close()

	require.NoError(t, form.Init(ctx))

	var mu sync.Mutex
	var saveErr error
	form.Subscribe(func(ev domain.FormEvent) {
		if ev.Kind == domain.FormEventSaved {
			mu.Lock()
			saveErr = ev.Err
			mu.Unlock()
		}
	})

	require.NoError(t, form.SetRemarks("x"))
	err := form.Flush(ctx)

	assert.ErrorIs(t, err, errBoom)
	mu.Lock()
	assert.ErrorIs(t, saveErr, errBoom)
	mu.Unlock()

	// Clear still resets the form when the store cannot delete.
	require.NoError(t, form.Clear(ctx))
	assert.Empty(t, form.State().Referrals.Remarks)
}

func TestFormService_Subscribe(t *testing.T) {
	ctx := context.Background()
	settings := testFormSettings()
	settings.Debounce = time.Hour
	f := newFormFixtureWith(t, newFakeRemote(testCases(), nil), settings)
	f.init(t)

	var mu sync.Mutex
	var kinds []domain.FormEventKind
	dispose := f.form.Subscribe(func(ev domain.FormEvent) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, ev.Kind)
	})

	_, err := f.form.SelectCase(ctx, "C002")
	require.NoError(t, err)
	require.NoError(t, f.form.SetRemarks("x"))

	dispose()
	dispose()
	require.NoError(t, f.form.SetRemarks("y"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.FormEventKind{
		domain.FormEventCaseSelected,
		domain.FormEventExistingCleared,
		domain.FormEventChanged,
	}, kinds)
}
