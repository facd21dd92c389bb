package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
	"github.com/custodia-labs/r3form/internal/logger"
)

// Ensure TrackerService implements the interface.
var _ driving.SubmissionService = (*TrackerService)(nil)

// TrackerService decides whether a case already has a submission.
type TrackerService struct {
	cache  *CacheService
	remote driven.RemoteDataSource

	mu        sync.Mutex
	notifiers []driven.Notifier
}

// NewTrackerService creates a tracker reading through the cache.
func NewTrackerService(cache *CacheService, remote driven.RemoteDataSource) *TrackerService {
	return &TrackerService{cache: cache, remote: remote}
}

// AddNotifier registers a notifier for Check results.
func (t *TrackerService) AddNotifier(n driven.Notifier) {
	if n == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notifiers = append(t.notifiers, n)
}

// FindExisting returns the canonical submission for caseID, or nil.
//
// A fresh cached snapshot is preferred; on a miss the submission log is
// fetched and cached. Ids absent from the case list always yield nil; the
// list is fetched when nothing is cached.
func (t *TrackerService) FindExisting(ctx context.Context, caseID string) (*domain.SubmissionRecord, error) {
	if caseID == "" {
		return nil, nil
	}
	cases, err := t.knownCases(ctx)
	if err != nil {
		return nil, fmt.Errorf("find existing submission: %w", err)
	}
	if _, ok := domain.FindCase(cases, caseID); !ok {
		logger.Debug("tracker: %s is not in the case list", caseID)
		return nil, nil
	}

	subs, ok := t.cache.Submissions(ctx, true)
	if !ok {
		logger.Debug("tracker: submissions cache miss, fetching")
		fetched, err := t.remote.FetchSubmissions(ctx)
		if err != nil {
			return nil, fmt.Errorf("find existing submission: %w", err)
		}
		t.cache.Set(ctx, domain.CacheKeySubmissions, fetched)
		subs = fetched
	}

	return domain.SelectExisting(subs, caseID), nil
}

// knownCases returns the cached case list, stale or not. With nothing cached
// the list is fetched and cached.
func (t *TrackerService) knownCases(ctx context.Context) ([]domain.CaseRecord, error) {
	if cases := t.cache.CaseList(ctx, false); cases != nil {
		return cases, nil
	}
	logger.Debug("tracker: case list cache miss, fetching")
	cases, err := t.remote.FetchCaseList(ctx)
	if err != nil {
		return nil, err
	}
	t.cache.Set(ctx, domain.CacheKeyCaseList, cases)
	return cases, nil
}

// Check runs FindExisting and tells every notifier the result.
func (t *TrackerService) Check(ctx context.Context, caseID string) (domain.Lookup, *domain.SubmissionRecord, error) {
	rec, err := t.FindExisting(ctx, caseID)
	if err != nil {
		return domain.Lookup{CaseID: caseID}, nil, err
	}

	t.mu.Lock()
	notifiers := append([]driven.Notifier(nil), t.notifiers...)
	t.mu.Unlock()

	for _, n := range notifiers {
		if rec != nil {
			n.ShowExistingSubmission(*rec)
		} else {
			n.ClearExistingSubmission()
		}
	}
	return domain.LookupFor(caseID, rec), rec, nil
}

// Reset clears every notifier's warning.
func (t *TrackerService) Reset() {
	t.mu.Lock()
	notifiers := append([]driven.Notifier(nil), t.notifiers...)
	t.mu.Unlock()

	for _, n := range notifiers {
		n.ClearExistingSubmission()
	}
}
