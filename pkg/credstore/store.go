// Package credstore persists the session credential (token, cached role and
// serialized user) so that it survives process restarts.
//
// The three keys are written and cleared together. A store is either fully
// populated (logged in) or empty (logged out); implementations never expose
// a partial write.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Persisted key names.
const (
	KeyToken = "token"
	KeyRole  = "role"
	KeyUser  = "user"
)

// Keys lists every key owned by the session, in write order.
var Keys = []string{KeyToken, KeyRole, KeyUser}

// ErrIncompleteRecord is returned by Save when any of the three values is
// empty.
var ErrIncompleteRecord = errors.New("credstore: token, role and user must all be set")

// Record is the persisted session state.
type Record struct {
	Token string
	Role  string
	User  json.RawMessage
}

// Active reports whether the record holds a non-empty token.
func (r Record) Active() bool {
	return strings.TrimSpace(r.Token) != ""
}

func (r Record) validate() error {
	if strings.TrimSpace(r.Token) == "" || strings.TrimSpace(r.Role) == "" || len(r.User) == 0 {
		return ErrIncompleteRecord
	}
	return nil
}

// Store is durable key/value persistence for the session.
type Store interface {
	// Load returns the persisted record; a zero Record means logged out.
	Load(ctx context.Context) (Record, error)
	// Save atomically replaces all three keys.
	Save(ctx context.Context, rec Record) error
	// Clear atomically removes all three keys. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
	Close() error
}

type options struct {
	sealer *sealer
	prefix string
}

// Option configures a store.
type Option func(*options) error

// WithSecret enables at-rest encryption of the token value. The AES-256 key
// is derived from secret with HKDF-SHA256.
func WithSecret(secret []byte) Option {
	return func(o *options) error {
		if len(secret) == 0 {
			return nil
		}
		s, err := newSealer(secret)
		if err != nil {
			return err
		}
		o.sealer = s
		return nil
	}
}

// WithKeyPrefix namespaces keys, e.g. per profile.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) error {
		o.prefix = prefix
		return nil
	}
}

func buildOptions(opts []Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *options) key(name string) string {
	return o.prefix + name
}

func (o *options) sealToken(token string) (string, error) {
	if o.sealer == nil {
		return token, nil
	}
	return o.sealer.seal(token)
}

func (o *options) openToken(stored string) (string, error) {
	if o.sealer == nil {
		if isSealed(stored) {
			return "", errSealedWithoutSecret
		}
		return stored, nil
	}
	return o.sealer.open(stored)
}
