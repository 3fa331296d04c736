// Package session owns the lifecycle of the operator's authenticated session:
// establishing it from a server-issued token, tearing it down, and telling
// subscribers when it changes.
//
// The Credential Store is the only source of truth. The manager caches the
// persisted record after the first read and keeps that cache in step with
// every write it performs.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/recicla-upao/validation-core/pkg/auth"
	"github.com/recicla-upao/validation-core/pkg/credstore"
	"github.com/recicla-upao/validation-core/pkg/events"
)

// Manager is the single mutator of session state. Create one per process
// and hand the same instance to every consumer.
type Manager struct {
	store  credstore.Store
	bus    *events.Bus[bool]
	logger *slog.Logger

	// opMu serialises Login/Logout including their broadcast.
	opMu sync.Mutex

	mu     sync.RWMutex
	loaded bool
	cached credstore.Record
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager builds a manager over store. Nothing is read until the first
// query.
func NewManager(store credstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		bus:    events.NewBus[bool](),
		logger: slog.Default().With("component", "session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers fn for "session active" changes. The returned func
// must be called when the subscriber goes away. Handlers may read session
// state but must not call Login or Logout.
func (m *Manager) Subscribe(fn func(active bool)) events.Unsubscribe {
	return m.bus.Subscribe(fn)
}

// Login decodes token, persists token, role and user together, then
// broadcasts true. On any failure the previous session is left untouched.
func (m *Manager) Login(ctx context.Context, token string) error {
	claims, err := auth.DecodeClaims(token)
	if err != nil {
		m.logger.WarnContext(ctx, "login rejected: undecodable token", "token_len", len(token))
		return err
	}
	if claims.Role == "" {
		m.logger.WarnContext(ctx, "login rejected: token has no role claim")
		return fmt.Errorf("%w: missing role claim", auth.ErrInvalidToken)
	}

	user, err := json.Marshal(claims.User())
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	rec := credstore.Record{Token: token, Role: claims.Role, User: user}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	m.mu.Lock()
	m.cached = rec
	m.loaded = true
	m.mu.Unlock()

	if !auth.ParseRole(claims.Role).Known() {
		m.logger.WarnContext(ctx, "session role is not a known portal role", "role", claims.Role)
	}
	m.logger.InfoContext(ctx, "session established", "role", claims.Role, "username", claims.Username)

	m.bus.Publish(true)
	return nil
}

// Logout clears every session key and broadcasts false. It is safe to call
// without an active session.
func (m *Manager) Logout(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	m.mu.Lock()
	m.cached = credstore.Record{}
	m.loaded = true
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session cleared")
	m.bus.Publish(false)
	return nil
}

// record returns the persisted record, reading the store on first use.
func (m *Manager) record(ctx context.Context) (credstore.Record, error) {
	m.mu.RLock()
	if m.loaded {
		rec := m.cached
		m.mu.RUnlock()
		return rec, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return m.cached, nil
	}

	rec, err := m.store.Load(ctx)
	if err != nil {
		return credstore.Record{}, err
	}
	m.cached = rec
	m.loaded = true
	return rec, nil
}

// IsActive reports whether a non-empty token is held. It never decodes the
// token; a store read failure counts as inactive.
func (m *Manager) IsActive(ctx context.Context) bool {
	rec, err := m.record(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to read session", "error", err)
		return false
	}
	return rec.Active()
}

// Token returns the raw stored token, or "".
func (m *Manager) Token(ctx context.Context) string {
	rec, err := m.record(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to read session", "error", err)
		return ""
	}
	return rec.Token
}

// CurrentRole returns the persisted role, falling back to the token's role
// claim. It returns auth.RoleUnknown when neither is usable.
func (m *Manager) CurrentRole(ctx context.Context) auth.Role {
	rec, err := m.record(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to read session", "error", err)
		return auth.RoleUnknown
	}
	if rec.Role != "" {
		return auth.ParseRole(rec.Role)
	}
	if !rec.Active() {
		return auth.RoleUnknown
	}

	claims, err := auth.DecodeClaims(rec.Token)
	if err != nil {
		m.logger.DebugContext(ctx, "role fallback decode failed", "error", err)
		return auth.RoleUnknown
	}
	return auth.ParseRole(claims.Role)
}

// CurrentUser decodes the stored token into a user view. ok is false when no
// token is held or it cannot be decoded.
func (m *Manager) CurrentUser(ctx context.Context) (auth.User, bool) {
	rec, err := m.record(ctx)
	if err != nil || !rec.Active() {
		return auth.User{}, false
	}
	claims, err := auth.DecodeClaims(rec.Token)
	if err != nil {
		return auth.User{}, false
	}
	return claims.User(), true
}

// Reload drops the cached record so the next query reads the store again.
func (m *Manager) Reload() {
	m.mu.Lock()
	m.loaded = false
	m.cached = credstore.Record{}
	m.mu.Unlock()
}
