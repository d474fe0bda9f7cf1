package main

import (
	"context"
	"time"

	"github.com/desertthunder/pricepal/internal/identity"
	"github.com/urfave/cli/v3"
)

// AuthLogin signs in with email and password and stores the session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}

	if err := r.session.LoginWithEmail(ctx, cmd.String("email"), cmd.String("password")); err != nil {
		return err
	}

	user := r.session.Current().User
	r.logger.Info("signed in", "uid", user.UID)
	return r.writePlain("✓ Signed in as %s\n", displayName(user.Name, user.Email))
}

// AuthSignup creates an account, signs in, and queues the welcome email.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}

	if err := r.session.SignupWithEmail(ctx, cmd.String("name"), cmd.String("email"), cmd.String("password")); err != nil {
		return err
	}

	user := r.session.Current().User
	r.logger.Info("account created", "uid", user.UID)
	return r.writePlain("✓ Welcome, %s! Your account is ready.\n", displayName(user.Name, user.Email))
}

// AuthLogout clears the session locally even when the provider call fails.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}

	sess := r.session.Current()
	if !sess.IsAuthenticated() {
		return r.writePlain("Not signed in\n")
	}

	if err := r.session.Logout(ctx); err != nil {
		r.logger.Warn("logout finished with errors", "error", err)
	}
	if err := r.cart.Forget(ctx, sess.User.UID); err != nil {
		r.logger.Warn("cached cart kept after logout", "error", err)
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthReset sends a password reset email.
func (r *Runner) AuthReset(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}

	email := cmd.String("email")
	if err := r.session.SendPasswordReset(ctx, email); err != nil {
		return err
	}
	return r.writePlain("✓ Password reset email sent to %s\n", email)
}

type authStatus struct {
	Authenticated bool      `json:"authenticated"`
	UID           string    `json:"uid,omitempty"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"email_verified,omitempty"`
	Expiry        time.Time `json:"expiry,omitzero"`
	Expired       bool      `json:"expired,omitempty"`
}

// AuthStatus shows the stored identity and when its ID token expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.wire(ctx); err != nil {
		return err
	}

	status := authStatus{}
	if sess := r.session.Current(); sess.IsAuthenticated() {
		status = authStatus{
			Authenticated: true,
			UID:           sess.User.UID,
			Name:          sess.User.Name,
			Email:         sess.User.Email,
			Expiry:        sess.Expiry,
		}
		if claims, err := identity.ParseClaims(sess.Token); err == nil {
			status.EmailVerified = claims.EmailVerified
			if exp := claims.Expiry(); !exp.IsZero() {
				status.Expiry = exp
			}
		} else {
			r.logger.Debug("stored token is not a readable JWT", "error", err)
		}
		status.Expired = !status.Expiry.IsZero() && !time.Now().Before(status.Expiry)
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if !status.Authenticated {
		return r.writePlain("✗ Not signed in\nRun 'pricepal auth login' to sign in.\n")
	}

	r.writePlainHeader("Signed in")
	r.writePlain("User:  %s\n", displayName(status.Name, status.Email))
	r.writePlain("Email: %s\n", status.Email)
	r.writePlain("UID:   %s\n", status.UID)
	switch {
	case status.Expiry.IsZero():
		r.writePlain("Token: expiry unknown\n")
	case status.Expired:
		r.writePlain("Token: expired %s ago (refreshed on next use)\n", time.Since(status.Expiry).Round(time.Second))
	default:
		r.writePlain("Token: valid for %s\n", time.Until(status.Expiry).Round(time.Second))
	}
	return nil
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	if email != "" {
		return email
	}
	return "unknown user"
}
