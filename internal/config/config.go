// Package config holds the per-network address tables. The tables are
// loaded once at startup into an explicit Networks value and passed by
// reference; there is no package-level mutable state.
package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// UnknownNetworkError is returned when no address table exists for the
// active network. It is a configuration error and fatal for the
// triggering event.
type UnknownNetworkError struct {
	Network string
}

func (e *UnknownNetworkError) Error() string {
	return fmt.Sprintf("no address configuration for network %q", e.Network)
}

// Network is the address table for a single chain.
type Network struct {
	Name       string         // network identifier, e.g. "mainnet"
	OhmToken   common.Address // primary asset (OHM)
	GohmToken  common.Address // secondary asset (gOHM), priced via index
	OhmUsdFeed common.Address // Chainlink-style OHM/USD aggregator
}

// Networks maps network identifiers to their address tables.
type Networks struct {
	byName map[string]Network
}

// Lookup returns the address table for the given network identifier, or an
// UnknownNetworkError if none is configured.
func (n *Networks) Lookup(name string) (Network, error) {
	net, ok := n.byName[name]
	if !ok {
		return Network{}, &UnknownNetworkError{Network: name}
	}
	return net, nil
}

// Names returns the configured network identifiers.
func (n *Networks) Names() []string {
	names := make([]string, 0, len(n.byName))
	for name := range n.byName {
		names = append(names, name)
	}
	return names
}

// networkYAML is the on-disk shape of one network entry.
type networkYAML struct {
	OhmToken   string `yaml:"ohm_token"`
	GohmToken  string `yaml:"gohm_token"`
	OhmUsdFeed string `yaml:"ohm_usd_feed"`
}

// Parse reads a YAML document mapping network names to address entries.
func Parse(data []byte) (*Networks, error) {
	var raw map[string]networkYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse networks yaml: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("networks yaml defines no networks")
	}

	networks := &Networks{byName: make(map[string]Network, len(raw))}
	for name, entry := range raw {
		net := Network{Name: name}
		var err error
		if net.OhmToken, err = parseAddress(entry.OhmToken); err != nil {
			return nil, fmt.Errorf("network %s: ohm_token: %w", name, err)
		}
		if net.GohmToken, err = parseAddress(entry.GohmToken); err != nil {
			return nil, fmt.Errorf("network %s: gohm_token: %w", name, err)
		}
		if net.OhmUsdFeed, err = parseAddress(entry.OhmUsdFeed); err != nil {
			return nil, fmt.Errorf("network %s: ohm_usd_feed: %w", name, err)
		}
		networks.byName[name] = net
	}
	return networks, nil
}

// Load reads and parses a networks YAML file.
func Load(path string) (*Networks, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read networks file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in address tables, used when no config file is
// given.
func Default() *Networks {
	return &Networks{byName: map[string]Network{
		"mainnet": {
			Name:       "mainnet",
			OhmToken:   common.HexToAddress("0x64aa3364F17a4D01c6f1751Fd97C2BD3D7e7f1D5"),
			GohmToken:  common.HexToAddress("0x0ab87046fBb341D058F17CBC4c1133F25a20a52f"),
			OhmUsdFeed: common.HexToAddress("0x9a72298ae3886221820B1c878d12D872087D3a23"),
		},
	}}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
