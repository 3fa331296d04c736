package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/recicla-upao/validation-core/pkg/auth"
	"github.com/recicla-upao/validation-core/pkg/client"
	"github.com/recicla-upao/validation-core/pkg/guard"
)

// runLoginCmd implements `recicla login`.
//
// Exit codes:
//
//	0 = session stored
//	1 = rejected credentials, bad token or backend failure
//	2 = usage error
func runLoginCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("login", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var username, password string
	cmd.StringVar(&username, "username", "", "Portal username (REQUIRED)")
	cmd.StringVar(&password, "password", "", "Password (default: $RECICLA_PASSWORD)")

	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}
	if password == "" {
		password = os.Getenv("RECICLA_PASSWORD")
	}
	if username == "" || password == "" {
		_, _ = fmt.Fprintln(stderr, "Error: -username and a password are required")
		return exitUsage
	}

	return withApp(stdout, stderr, func(ctx context.Context, a *app) int {
		token, err := a.client.Login(ctx, username, password)
		if err != nil {
			if errors.Is(err, client.ErrInvalidCredentials) {
				_, _ = fmt.Fprintln(stderr, "Error: invalid credentials, try again")
			} else {
				_, _ = fmt.Fprintf(stderr, "Error: login failed: %v\n", err)
			}
			return exitFailure
		}
		if err := a.session.Login(ctx, token); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}

		role := a.session.CurrentRole(ctx)
		user, _ := a.session.CurrentUser(ctx)
		_, _ = fmt.Fprintf(stdout, "Logged in as %s (%s)\n", user.Username, displayRole(role))
		_, _ = fmt.Fprintf(stdout, "Home: %s\n", guard.HomeFor(role))
		return exitOK
	})
}

// runLogoutCmd implements `recicla logout`. It succeeds with or without a
// stored session.
func runLogoutCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("logout", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}

	return withApp(stdout, stderr, func(ctx context.Context, a *app) int {
		if err := a.session.Logout(ctx); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitFailure
		}
		_, _ = fmt.Fprintln(stdout, "Logged out")
		return exitOK
	})
}

// runWhoamiCmd implements `recicla whoami`.
func runWhoamiCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("whoami", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return exitUsage
	}

	return withApp(stdout, stderr, func(ctx context.Context, a *app) int {
		if !a.session.IsActive(ctx) {
			_, _ = fmt.Fprintln(stderr, "Not logged in")
			return exitFailure
		}

		role := a.session.CurrentRole(ctx)
		user, ok := a.session.CurrentUser(ctx)
		if !ok {
			_, _ = fmt.Fprintf(stdout, "Session active, role %s (token claims unreadable)\n", displayRole(role))
			return exitOK
		}
		_, _ = fmt.Fprintf(stdout, "User:    %s\n", user.Username)
		_, _ = fmt.Fprintf(stdout, "User ID: %d\n", user.ID)
		_, _ = fmt.Fprintf(stdout, "Role:    %s\n", displayRole(role))
		if user.ExpiresAt != nil {
			state := "valid"
			if time.Now().After(*user.ExpiresAt) {
				state = "expired"
			}
			_, _ = fmt.Fprintf(stdout, "Expires: %s (%s)\n", user.ExpiresAt.Format(time.RFC3339), state)
		}
		return exitOK
	})
}

func displayRole(r auth.Role) string {
	if !r.Known() {
		return "unknown"
	}
	return r.String()
}
