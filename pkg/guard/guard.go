// Package guard decides whether the current session may enter a route and
// redirects to the login page when it may not.
//
// Denial is never an error. Every check returns a bool, and a denied check
// sends the navigator to RouteLogin.
package guard

import (
	"context"
	"log/slog"

	"github.com/recicla-upao/validation-core/pkg/auth"
)

// SessionReader is the read side of the session manager.
type SessionReader interface {
	IsActive(ctx context.Context) bool
	CurrentRole(ctx context.Context) auth.Role
}

// Navigator performs the redirect side effect.
type Navigator interface {
	Navigate(ctx context.Context, to Route)
}

// NavigatorFunc adapts a func to Navigator.
type NavigatorFunc func(ctx context.Context, to Route)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(ctx context.Context, to Route) { f(ctx, to) }

// Guard is the single choke point for route authorization.
type Guard struct {
	session SessionReader
	nav     Navigator
	logger  *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// New returns a guard reading from session. A nil nav disables redirects.
func New(session SessionReader, nav Navigator, opts ...Option) *Guard {
	g := &Guard{
		session: session,
		nav:     nav,
		logger:  slog.Default().With("component", "guard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanEnter reports whether the session is active and holds required.
// On denial it redirects to RouteLogin.
func (g *Guard) CanEnter(ctx context.Context, required auth.Role) bool {
	active, role := g.state(ctx)
	if active && required.Known() && role == required {
		return true
	}
	g.deny(ctx, "role", required.String(), active, role)
	return false
}

// CanNavigate applies Allowed to path for the current session.
// On denial it redirects to RouteLogin.
func (g *Guard) CanNavigate(ctx context.Context, path string) bool {
	active, role := g.state(ctx)
	if Allowed(active, role, path) {
		return true
	}
	g.deny(ctx, "path", path, active, role)
	return false
}

func (g *Guard) state(ctx context.Context) (bool, auth.Role) {
	if g.session == nil {
		return false, auth.RoleUnknown
	}
	if !g.session.IsActive(ctx) {
		return false, auth.RoleUnknown
	}
	return true, g.session.CurrentRole(ctx)
}

func (g *Guard) deny(ctx context.Context, kind, target string, active bool, role auth.Role) {
	g.logger.InfoContext(ctx, "access denied",
		kind, target,
		"session_active", active,
		"role", role.String(),
		"redirect", string(RouteLogin),
	)
	if g.nav != nil {
		g.nav.Navigate(ctx, RouteLogin)
	}
}
