package types

// Receipt acknowledges a committed block and names the item it touched.
type Receipt struct {
	BlockID     string `json:"blockId"`
	BlockHash   string `json:"blockHash"`
	BlockNumber uint64 `json:"blockNumber"`
	Kind        string `json:"kind"`
	ItemID      string `json:"itemId"` // batch id, or product id for formulations
}

func NewReceipt(b Block, number uint64, itemID string) *Receipt {
	return &Receipt{
		BlockID:     b.ID,
		BlockHash:   b.Hash,
		BlockNumber: number,
		Kind:        b.Kind().String(),
		ItemID:      itemID,
	}
}
