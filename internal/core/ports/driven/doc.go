// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - RemoteDataSource: Case list and submission log access (Sheety or Google Sheets)
//   - CacheStore: Timestamped snapshot persistence
//   - FormStateStore: In-progress form persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ReportGenerator: Document generation scripts. Without it, reports are unavailable.
//   - Notifier: Existing submission warnings. Without it, only the returned values are shown.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
