package models

import "time"

// User is the authenticated identity.
type User struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the authenticated identity plus the bearer token used for backend calls.
//
// RefreshToken and Expiry let the holder obtain a fresh token at point of use.
type Session struct {
	User         *User     `json:"user"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// IsAuthenticated reports whether both an identity and a token are present.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.User != nil && s.Token != ""
}

// Clone returns a deep copy so callers can't mutate the owner's state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	return &c
}
