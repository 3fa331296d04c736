package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0x" + strings.Repeat("a", 40), true},
		{"0x52908400098527886E0F7030069857D2E4169EE7", true},
		{"0x" + strings.Repeat("a", 39), false},
		{"0x" + strings.Repeat("a", 41), false},
		{"0X" + strings.Repeat("a", 40), false},
		{"0x" + strings.Repeat("g", 40), false},
		{strings.Repeat("a", 42), false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidAddress(tt.in), tt.in)
	}
}

func TestSameAddress(t *testing.T) {
	a := "0x52908400098527886E0F7030069857D2E4169EE7"
	assert.True(t, SameAddress(a, strings.ToLower(a)))
	assert.False(t, SameAddress(a, "0x"+strings.Repeat("0", 40)))
	assert.False(t, SameAddress("bogus", "bogus"))
}

func TestHub_DisposersDetachListeners(t *testing.T) {
	h := NewHub()

	var gotAccounts [][]string
	var gotChains []string
	offAccounts := h.OnAccountsChanged(func(a []string) { gotAccounts = append(gotAccounts, a) })
	offChain := h.OnChainChanged(func(id string) { gotChains = append(gotChains, id) })
	assert.Equal(t, 2, h.Listeners())

	src := []string{"0xabc"}
	h.AccountsChanged(src)
	src[0] = "mutated"
	h.ChainChanged("0x7a69")

	offAccounts()
	offChain()
	offChain()
	h.AccountsChanged([]string{"0xdef"})
	h.ChainChanged("0x13882")

	assert.Equal(t, [][]string{{"0xabc"}}, gotAccounts)
	assert.Equal(t, []string{"0x7a69"}, gotChains)
	assert.Zero(t, h.Listeners())
}

func TestHub_RemoveAllListeners(t *testing.T) {
	h := NewHub()
	calls := 0
	h.OnChainChanged(func(string) { calls++ })
	h.OnAccountsChanged(func([]string) { calls++ })

	h.RemoveAllListeners()
	h.ChainChanged("0x1")
	h.AccountsChanged(nil)

	assert.Zero(t, calls)
}
