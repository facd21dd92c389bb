package domain

import (
	"encoding/json"
	"time"
)

// CacheKey is the logical name of a cached snapshot.
type CacheKey string

// Cache keys for remote data snapshots.
const (
	CacheKeyCaseList    CacheKey = "case_list"
	CacheKeySubmissions CacheKey = "submissions"
	CacheKeyReportURLs  CacheKey = "report_urls"
)

// FormStateKey is the storage key of the persisted form. It is not part of
// the cache registry, so clearing the cache keeps an in-progress form.
const FormStateKey CacheKey = "form_state"

// CacheKeys returns every key removed by a cache clear.
func CacheKeys() []CacheKey {
	return []CacheKey{CacheKeyCaseList, CacheKeySubmissions, CacheKeyReportURLs}
}

// String returns the string representation.
func (k CacheKey) String() string {
	return string(k)
}

// Qualified returns the storage key under a namespace prefix.
func (k CacheKey) Qualified(prefix string) string {
	if prefix == "" {
		return string(k)
	}
	return prefix + string(k)
}

// CacheEntry is one timestamped snapshot held in local storage.
type CacheEntry struct {
	Key      CacheKey        `json:"key"`
	Payload  json.RawMessage `json:"payload"`
	StoredAt time.Time       `json:"storedAt"`
}

// Age returns how long ago the entry was written.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Fresh reports whether the entry is younger than ttl.
func (e CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return e.Age(now) < ttl
}

// Rows returns the number of elements when the payload is a JSON array.
// Returns -1 for any other payload.
func (e CacheEntry) Rows() int {
	var rows []json.RawMessage
	if err := json.Unmarshal(e.Payload, &rows); err != nil {
		return -1
	}
	return len(rows)
}

// Decode unmarshals the payload into v.
func (e CacheEntry) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
