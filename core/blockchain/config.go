package blockchain

import (
	"fmt"

	"github.com/Siasom1/herbchain/params"
)

// ChainConfig defines how a blockchain instance should behave.
type ChainConfig struct {
	// DataDir holds the LevelDB archive. Empty keeps the archive in memory.
	DataDir string `yaml:"dataDir"`

	// IDLength is how many hex characters of the hash form a block id.
	IDLength int `yaml:"idLength"`

	GenesisMessage string `yaml:"genesisMessage"`
}

func DefaultChainConfig(dataDir string) ChainConfig {
	return ChainConfig{
		DataDir:        dataDir,
		IDLength:       params.DefaultIDLength,
		GenesisMessage: params.GenesisMessage,
	}
}

func (c ChainConfig) Validate() error {
	if c.IDLength < params.MinIDLength || c.IDLength > params.MaxIDLength {
		return fmt.Errorf("blockchain: idLength must be within [%d, %d], got %d",
			params.MinIDLength, params.MaxIDLength, c.IDLength)
	}
	return nil
}
