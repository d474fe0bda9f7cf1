// Package identity signs users in against an email/password identity provider.
//
// [Firebase] talks to the Identity Toolkit REST API and exposes the secure-token
// endpoint as an [oauth2.TokenSource], so callers always obtain a fresh ID token
// at the point of use. ID tokens are JWTs whose claims are read with [ParseClaims];
// they are never verified here, the backend does that.
package identity
