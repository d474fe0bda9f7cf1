// Package models defines the data exchanged between the pricepal client, the price tracker backend, and local storage.
//
// Backend payloads:
//   - [ProductSnapshot] : a point-in-time product listing returned by a lookup
//   - [TrackedProduct] : a product registered for price tracking, owned by the backend
//   - [CartSummary] : the user's tracked products with aggregate counters
//   - [UserStats] : account-wide counters from the stats endpoint
//
// Client state:
//   - [Session] : the authenticated identity plus bearer token, owned by the session store
//   - [LocalRecord] : a named versioned blob, used to persist the session
//
// JSON tags follow the backend's snake_case field names.
package models
