package state

import "slices"

// HerbBatch is the derived view of one collected batch. Its id is the id of
// the collection block that created it.
type HerbBatch struct {
	ID           string   `json:"id"`
	HerbName     string   `json:"herbName"`
	Status       string   `json:"status"`
	History      []string `json:"history"` // block ids, earliest first
	CurrentOwner string   `json:"currentOwner"`
}

// FinalProduct is the derived view of one formulation. History is a snapshot
// taken when the formulation was folded.
type FinalProduct struct {
	ID            string   `json:"id"`
	ProductName   string   `json:"productName"`
	Manufacturer  string   `json:"manufacturer"`
	InputBatchIDs []string `json:"inputBatchIds"`
	History       []string `json:"history"`
}

// Item is anything with a provenance history: a batch or a product.
type Item interface {
	ItemID() string
	ItemName() string
	ItemHistory() []string
	IsProduct() bool
}

func (b *HerbBatch) ItemID() string        { return b.ID }
func (b *HerbBatch) ItemName() string      { return b.HerbName }
func (b *HerbBatch) ItemHistory() []string { return slices.Clone(b.History) }
func (b *HerbBatch) IsProduct() bool       { return false }

func (p *FinalProduct) ItemID() string        { return p.ID }
func (p *FinalProduct) ItemName() string      { return p.ProductName }
func (p *FinalProduct) ItemHistory() []string { return slices.Clone(p.History) }
func (p *FinalProduct) IsProduct() bool       { return true }

func (b *HerbBatch) Clone() *HerbBatch {
	c := *b
	c.History = slices.Clone(b.History)
	return &c
}

func (p *FinalProduct) Clone() *FinalProduct {
	c := *p
	c.InputBatchIDs = slices.Clone(p.InputBatchIDs)
	c.History = slices.Clone(p.History)
	return &c
}
