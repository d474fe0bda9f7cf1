package models

import "time"

// LocalRecord is a named, versioned blob kept in local storage.
//
// Payload is opaque JSON whose shape is determined by Version.
type LocalRecord struct {
	Name      string
	Version   int
	Payload   []byte
	UpdatedAt time.Time
}
