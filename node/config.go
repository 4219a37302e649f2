package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Siasom1/herbchain/core/blockchain"
	"github.com/Siasom1/herbchain/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Chain blockchain.ChainConfig `yaml:"chain"`
	Log   log.Config             `yaml:"log"`

	RPCAddr      string `yaml:"rpcAddr"`      // empty disables JSON-RPC
	ExplorerAddr string `yaml:"explorerAddr"` // empty disables the explorer
	Metrics      bool   `yaml:"metrics"`
}

// DefaultConfig keeps the archive in memory and serves RPC on :8545 and the
// explorer on :9500.
func DefaultConfig() *Config {
	return &Config{
		Chain:        blockchain.DefaultChainConfig(""),
		Log:          log.DefaultConfig(),
		RPCAddr:      ":8545",
		ExplorerAddr: ":9500",
		Metrics:      true,
	}
}

// LoadConfig reads a YAML file over the defaults. Keys the file omits keep
// their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandPaths resolves a leading ~ in file paths.
func (c *Config) expandPaths() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	expand := func(p string) string {
		if p == "~" {
			return home
		}
		if strings.HasPrefix(p, "~/") {
			return filepath.Join(home, p[2:])
		}
		return p
	}
	c.Chain.DataDir = expand(c.Chain.DataDir)
	c.Log.FilePath = expand(c.Log.FilePath)
}

func (c *Config) Validate() error {
	if err := c.Chain.Validate(); err != nil {
		return err
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("node: unknown log level %q", c.Log.Level)
	}
	if c.RPCAddr != "" && c.RPCAddr == c.ExplorerAddr {
		return fmt.Errorf("node: rpc and explorer cannot share %s", c.RPCAddr)
	}
	return nil
}

// Marshal renders the config as YAML, e.g. for `herbchaind config`.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
