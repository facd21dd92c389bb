package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
	"github.com/custodia-labs/r3form/internal/logger"
)

// Ensure CacheService implements the interface.
var _ driving.CacheService = (*CacheService)(nil)

// CacheService is the local snapshot cache in front of the remote store.
//
// Storage failures never escape: reads degrade to a miss and writes are
// logged and dropped.
type CacheService struct {
	store       driven.CacheStore
	ttl         time.Duration
	minCaseRows int
	prefix      string
	now         func() time.Time
}

// NewCacheService creates a cache over the given store.
func NewCacheService(store driven.CacheStore, settings domain.CacheSettings) *CacheService {
	return &CacheService{
		store:       store,
		ttl:         settings.TTL,
		minCaseRows: settings.MinCaseRows,
		prefix:      settings.KeyPrefix,
		now:         time.Now,
	}
}

// Get returns the entry for key, or nil on a miss, a storage failure or a
// payload that is not valid JSON.
func (c *CacheService) Get(ctx context.Context, key domain.CacheKey) *domain.CacheEntry {
	entry, err := c.store.Get(ctx, key.Qualified(c.prefix))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("cache read %s: %v", key, err)
		}
		return nil
	}
	if !json.Valid(entry.Payload) {
		logger.Warn("cache read %s: stored payload is not valid JSON", key)
		return nil
	}
	entry.Key = key
	return entry
}

// Set stores value under key with the current time.
func (c *CacheService) Set(ctx context.Context, key domain.CacheKey, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache write %s: %v", key, err)
		return
	}
	if err := c.store.Put(ctx, key.Qualified(c.prefix), payload, c.now()); err != nil {
		logger.Error("cache write %s: %v", key, err)
	}
}

// IsValid reports whether key holds a fresh entry. The case list must also
// hold at least the minimum number of rows.
func (c *CacheService) IsValid(ctx context.Context, key domain.CacheKey) bool {
	entry := c.Get(ctx, key)
	return c.valid(entry)
}

func (c *CacheService) valid(entry *domain.CacheEntry) bool {
	if entry == nil {
		return false
	}
	if !entry.Fresh(c.now(), c.ttl) {
		return false
	}
	if entry.Key == domain.CacheKeyCaseList && entry.Rows() < c.minCaseRows {
		return false
	}
	return true
}

// Clear removes every key in the cache registry.
func (c *CacheService) Clear(ctx context.Context) {
	keys := domain.CacheKeys()
	qualified := make([]string, len(keys))
	for i, k := range keys {
		qualified[i] = k.Qualified(c.prefix)
	}
	if err := c.store.Delete(ctx, qualified...); err != nil {
		logger.Warn("cache clear: %v", err)
		return
	}
	logger.Debug("cache cleared")
}

// Status reports every key in the cache registry.
func (c *CacheService) Status(ctx context.Context) []driving.CacheStatus {
	keys := domain.CacheKeys()
	out := make([]driving.CacheStatus, 0, len(keys))
	for _, k := range keys {
		st := driving.CacheStatus{Key: k, Rows: -1}
		if entry := c.Get(ctx, k); entry != nil {
			st.Present = true
			st.Valid = c.valid(entry)
			st.Rows = entry.Rows()
			st.StoredAt = entry.StoredAt.Format(time.RFC3339)
		}
		out = append(out, st)
	}
	return out
}

// CaseList returns the cached case list. When validOnly is set a stale or
// short list is treated as a miss.
func (c *CacheService) CaseList(ctx context.Context, validOnly bool) []domain.CaseRecord {
	var cases []domain.CaseRecord
	if !c.decode(ctx, domain.CacheKeyCaseList, validOnly, &cases) {
		return nil
	}
	return cases
}

// Submissions returns the cached submission log.
// The second result is false on a miss.
func (c *CacheService) Submissions(ctx context.Context, validOnly bool) ([]domain.SubmissionRecord, bool) {
	var subs []domain.SubmissionRecord
	if !c.decode(ctx, domain.CacheKeySubmissions, validOnly, &subs) {
		return nil, false
	}
	return subs, true
}

// ReportURLs returns the cached per-case report URLs.
func (c *CacheService) ReportURLs(ctx context.Context) map[string]domain.ReportURLs {
	urls := make(map[string]domain.ReportURLs)
	if !c.decode(ctx, domain.CacheKeyReportURLs, false, &urls) || urls == nil {
		return make(map[string]domain.ReportURLs)
	}
	return urls
}

func (c *CacheService) decode(ctx context.Context, key domain.CacheKey, validOnly bool, v any) bool {
	entry := c.Get(ctx, key)
	if entry == nil {
		return false
	}
	if validOnly && !c.valid(entry) {
		return false
	}
	if err := entry.Decode(v); err != nil {
		logger.Warn("cache decode %s: %v", key, err)
		return false
	}
	return true
}
