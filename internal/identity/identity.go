package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/pricepal/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Provider is the identity capability the session store depends on.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Credential, error)
	// SignUp creates the account and sets its display name.
	SignUp(ctx context.Context, email, password, displayName string) (*Credential, error)
	SignOut(ctx context.Context, refreshToken string) error
	SendPasswordReset(ctx context.Context, email string) error
	// TokenSource returns a source that refreshes tok when it expires.
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
}

// Metadata holds account timestamps reported by the provider.
type Metadata struct {
	CreatedAt    time.Time
	LastSignInAt time.Time
}

// Credential is the result of a successful sign-in or sign-up.
type Credential struct {
	UID          string
	Email        string
	DisplayName  string
	IDToken      string
	RefreshToken string
	Expiry       time.Time
	Metadata     Metadata
}

// IsNewUser reports whether this sign-in created the account.
func (c *Credential) IsNewUser() bool {
	return c != nil && !c.Metadata.CreatedAt.IsZero() && c.Metadata.CreatedAt.Equal(c.Metadata.LastSignInAt)
}

// Token converts the credential into an [oauth2.Token] carrying the ID token as the access token.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.IDToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// IDToken extracts the ID token from tok.
//
// Refresh responses carry it in the "id_token" field; stored tokens keep it as the access token.
func IDToken(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	if s, ok := tok.Extra("id_token").(string); ok && s != "" {
		return s
	}
	return tok.AccessToken
}

// TokenClaims are the ID token claims the client reads.
type TokenClaims struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// ParseClaims decodes an ID token's claims without verifying its signature.
func ParseClaims(idToken string) (*TokenClaims, error) {
	var claims TokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return nil, fmt.Errorf("%w: malformed id token: %v", shared.ErrInvalidArgument, err)
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return &claims, nil
}

// Expiry returns the token's exp claim, or the zero time when absent.
func (c *TokenClaims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
