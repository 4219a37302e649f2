package params

// ChainConfig holds the ledger constants shared by node, rpc and label code.
type ChainConfig struct {
	ChainName      string `json:"chainName"`
	IDLength       int    `json:"idLength"`
	GenesisMessage string `json:"genesisMessage"`
}

func HerbChainConfig() *ChainConfig {
	return &ChainConfig{
		ChainName:      "herbchain",
		IDLength:       DefaultIDLength,
		GenesisMessage: GenesisMessage,
	}
}
