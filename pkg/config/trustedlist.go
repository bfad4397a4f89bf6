package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/synnergy-network/marketengine/core/venue"
)

// trustedTokenYAML is the on-disk shape of one trusted-list entry.
type trustedTokenYAML struct {
	ChainID  uint64 `yaml:"chain_id"`
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Decimals uint8  `yaml:"decimals"`
}

// YAMLTrustedListLoader implements tokenregistry.TrustedListLoader by
// reading a flat YAML list of token entries from disk.
type YAMLTrustedListLoader struct {
	Path string
}

func (l YAMLTrustedListLoader) Load() ([]venue.Token, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("config: read trusted list %s: %w", l.Path, err)
	}
	var entries []trustedTokenYAML
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("config: parse trusted list %s: %w", l.Path, err)
	}
	out := make([]venue.Token, 0, len(entries))
	for _, e := range entries {
		if !common.IsHexAddress(e.Address) {
			return nil, fmt.Errorf("config: trusted list %s: invalid address %q", l.Path, e.Address)
		}
		out = append(out, venue.Token{
			ChainID:  venue.ChainID(e.ChainID),
			Address:  common.HexToAddress(e.Address),
			Symbol:   e.Symbol,
			Name:     e.Name,
			Decimals: e.Decimals,
			Trusted:  true,
		})
	}
	return out, nil
}
