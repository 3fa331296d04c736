package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Built-in network names.
const (
	NetworkHardhat = "hardhat"
	NetworkAmoy    = "amoy"
)

// Network describes a chain the validator's wallet may be connected to.
type Network struct {
	Name         string   `yaml:"name" json:"name"`
	ChainID      string   `yaml:"chain_id" json:"chain_id"` // hex, e.g. "0x7a69"
	ChainName    string   `yaml:"chain_name" json:"chain_name"`
	Currency     Currency `yaml:"currency" json:"currency"`
	RPCURLs      []string `yaml:"rpc_urls" json:"rpc_urls"`
	ExplorerURLs []string `yaml:"explorer_urls,omitempty" json:"explorer_urls,omitempty"`
}

// Currency is the chain's native currency.
type Currency struct {
	Name     string `yaml:"name" json:"name"`
	Symbol   string `yaml:"symbol" json:"symbol"`
	Decimals int    `yaml:"decimals" json:"decimals"`
}

// Matches reports whether chainID (hex or decimal) identifies n.
func (n Network) Matches(chainID string) bool {
	want, err := parseChainID(n.ChainID)
	if err != nil {
		return false
	}
	got, err := parseChainID(chainID)
	if err != nil {
		return false
	}
	return want == got
}

// ChainIDDecimal returns the chain id as an integer.
func (n Network) ChainIDDecimal() (uint64, error) {
	return parseChainID(n.ChainID)
}

func parseChainID(s string) (uint64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		return strconv.ParseUint(rest, 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// DefaultNetworks returns the built-in local and testnet profiles.
func DefaultNetworks() map[string]Network {
	return map[string]Network{
		NetworkHardhat: {
			Name:      NetworkHardhat,
			ChainID:   "0x7a69",
			ChainName: "Hardhat Local",
			Currency:  Currency{Name: "ETH", Symbol: "ETH", Decimals: 18},
			RPCURLs:   []string{"http://127.0.0.1:8545"},
		},
		NetworkAmoy: {
			Name:         NetworkAmoy,
			ChainID:      "0x13882",
			ChainName:    "Polygon Amoy Testnet",
			Currency:     Currency{Name: "MATIC", Symbol: "MATIC", Decimals: 18},
			RPCURLs:      []string{"https://rpc-amoy.polygon.technology/"},
			ExplorerURLs: []string{"https://amoy.polygonscan.com/"},
		},
	}
}

type networksFile struct {
	Networks []Network `yaml:"networks"`
}

// LoadNetworks returns the built-in profiles overlaid with those in path.
// An empty path yields the built-ins only.
func LoadNetworks(path string) (map[string]Network, error) {
	nets := DefaultNetworks()
	if path == "" {
		return nets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load networks %q: %w", path, err)
	}
	var f networksFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse networks %q: %w", path, err)
	}

	for i, n := range f.Networks {
		name := strings.ToLower(strings.TrimSpace(n.Name))
		if name == "" {
			return nil, fmt.Errorf("parse networks %q: entry %d has no name", path, i)
		}
		if _, err := parseChainID(n.ChainID); err != nil {
			return nil, fmt.Errorf("parse networks %q: %s: invalid chain_id %q", path, name, n.ChainID)
		}
		n.Name = name
		nets[name] = n
	}
	return nets, nil
}

// ActiveNetwork resolves c.Network against the built-ins and c.NetworksFile.
func (c *Config) ActiveNetwork() (Network, error) {
	nets, err := LoadNetworks(c.NetworksFile)
	if err != nil {
		return Network{}, err
	}
	n, ok := nets[c.Network]
	if !ok {
		return Network{}, fmt.Errorf("unknown network %q", c.Network)
	}
	return n, nil
}
