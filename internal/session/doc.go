// Package session owns the authenticated identity and bearer token.
//
// [Store] is the only writer. Other components see the session through [Reader],
// which hands out copies and fresh tokens. The session is persisted as a single
// named, versioned record and rehydrated when the store opens; older record
// versions are migrated forward and unknown ones are discarded.
package session
