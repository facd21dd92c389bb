// Package sqlite provides the persistent local store for r3form.
//
// The database lives at ~/.r3form/data/r3form.db by default and holds two
// tables: cache_entries, the timestamped snapshots of remote collections,
// and form_state, the single in-progress form. Migrations are embedded and
// applied on open.
package sqlite
