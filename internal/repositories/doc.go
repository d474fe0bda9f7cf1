// Package repositories implements SQLite persistence for client-side state.
//
// Key Implementations:
//   - [RecordRepository] : named, versioned records (the persisted session)
//   - [CartSnapshotRepository] : the last fetched cart per user, for offline viewing
//
// Both write inside a transaction so a reader never observes a half-written record or cart.
package repositories
