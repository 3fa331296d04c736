// Package wallet holds the wallet-provider plumbing that sits next to the
// validation panel: address format checks and revocable subscriptions to
// account and chain changes.
package wallet

import (
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/recicla-upao/validation-core/pkg/events"
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
// Checksum casing is not verified.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return IsValidAddress(a) && IsValidAddress(b) && strings.EqualFold(a, b)
}

// Hub fans wallet-provider events out to listeners. Every registration
// returns a disposer; listeners that outlive their owner must call it.
type Hub struct {
	accounts *events.Bus[[]string]
	chains   *events.Bus[string]
	logger   *slog.Logger
}

// NewHub returns a hub with no listeners.
func NewHub() *Hub {
	return &Hub{
		accounts: events.NewBus[[]string](),
		chains:   events.NewBus[string](),
		logger:   slog.Default().With("component", "wallet"),
	}
}

// OnAccountsChanged registers fn for account switches.
func (h *Hub) OnAccountsChanged(fn func(accounts []string)) events.Unsubscribe {
	return h.accounts.Subscribe(fn)
}

// OnChainChanged registers fn for network switches. chainID is the hex id
// reported by the provider, e.g. "0x7a69".
func (h *Hub) OnChainChanged(fn func(chainID string)) events.Unsubscribe {
	return h.chains.Subscribe(fn)
}

// AccountsChanged delivers a provider accountsChanged event. Listeners
// receive a copy of accounts, not the caller's slice.
func (h *Hub) AccountsChanged(accounts []string) {
	h.logger.Debug("accounts changed", "count", len(accounts))
	h.accounts.Publish(slices.Clone(accounts))
}

// ChainChanged delivers a provider chainChanged event.
func (h *Hub) ChainChanged(chainID string) {
	h.logger.Debug("chain changed", "chain_id", chainID)
	h.chains.Publish(chainID)
}

// RemoveAllListeners drops every registered listener.
func (h *Hub) RemoveAllListeners() {
	h.accounts.Reset()
	h.chains.Reset()
}

// Listeners returns the number of live listeners.
func (h *Hub) Listeners() int {
	return h.accounts.Len() + h.chains.Len()
}
