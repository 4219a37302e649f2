// Package state derives batch and product records from the block sequence.
// Nothing here is authoritative: a State can always be rebuilt with Fold.
package state

import (
	"fmt"
	"slices"
	"sort"

	"github.com/Siasom1/herbchain/core/types"
	"github.com/Siasom1/herbchain/params"
)

type State struct {
	batches  map[string]*HerbBatch
	products map[string]*FinalProduct

	// creation order, for listings
	batchOrder   []string
	productOrder []string

	height int // blocks folded so far
}

func New() *State {
	return &State{
		batches:  map[string]*HerbBatch{},
		products: map[string]*FinalProduct{},
	}
}

// --------------------------------------------------
// Fold
// --------------------------------------------------

// Fold replays blocks from genesis to tail. It aborts on the first block that
// cannot be applied and returns no partial state.
func Fold(blocks []types.Block) (*State, error) {
	s := New()
	for _, b := range blocks {
		if err := s.Apply(b); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Apply folds one block. It checks everything before mutating, so on error
// the state is unchanged.
func (s *State) Apply(b types.Block) error {
	switch b.Kind() {
	case types.KindGenesis:
		// no state change

	case types.KindCollection:
		d, _ := b.Transaction.Collection()
		if s.exists(b.ID) {
			return fmt.Errorf("%w: %s (block #%d)", ErrDuplicateItem, b.ID, s.height)
		}
		s.batches[b.ID] = &HerbBatch{
			ID:           b.ID,
			HerbName:     d.HerbName,
			Status:       params.InitialBatchStatus,
			History:      []string{b.ID},
			CurrentOwner: d.Collector,
		}
		s.batchOrder = append(s.batchOrder, b.ID)

	case types.KindProcessing:
		d, _ := b.Transaction.Processing()
		batch, ok := s.batches[d.BatchID]
		if !ok {
			return s.dangling(b, d.BatchID)
		}
		batch.Status = d.ProcessType
		batch.History = append(batch.History, b.ID)
		batch.CurrentOwner = d.Processor

	case types.KindFormulation:
		d, _ := b.Transaction.Formulation()
		for _, id := range d.InputBatchIDs {
			if _, ok := s.batches[id]; !ok {
				return s.dangling(b, id)
			}
		}
		if len(d.InputBatchIDs) == 0 {
			return s.dangling(b, "")
		}
		if s.exists(b.ID) {
			return fmt.Errorf("%w: %s (block #%d)", ErrDuplicateItem, b.ID, s.height)
		}
		history := []string{b.ID}
		for _, id := range d.InputBatchIDs {
			history = append(history, s.batches[id].History...)
		}
		s.products[b.ID] = &FinalProduct{
			ID:            b.ID,
			ProductName:   d.ProductName,
			Manufacturer:  d.Manufacturer,
			InputBatchIDs: d.InputBatchIDs,
			History:       history,
		}
		s.productOrder = append(s.productOrder, b.ID)

	default:
		return fmt.Errorf("state: block %s (#%d): %w: %s", b.ID, s.height, types.ErrUnknownKind, b.Kind())
	}

	s.height++
	return nil
}

func (s *State) dangling(b types.Block, batchID string) error {
	return &ReferentialIntegrityError{
		Index:   s.height,
		BlockID: b.ID,
		Kind:    b.Kind(),
		BatchID: batchID,
	}
}

func (s *State) exists(id string) bool {
	_, isBatch := s.batches[id]
	_, isProduct := s.products[id]
	return isBatch || isProduct
}

// --------------------------------------------------
// Reads (all return copies)
// --------------------------------------------------

// Height is the number of blocks folded, genesis included.
func (s *State) Height() int {
	return s.height
}

// Len reports how many batches and products the projection holds.
func (s *State) Len() (batches, products int) {
	return len(s.batchOrder), len(s.productOrder)
}

func (s *State) HasBatch(id string) bool {
	_, ok := s.batches[id]
	return ok
}

func (s *State) Batch(id string) (*HerbBatch, bool) {
	b, ok := s.batches[id]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

func (s *State) Product(id string) (*FinalProduct, bool) {
	p, ok := s.products[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Item looks an id up among batches, then products.
func (s *State) Item(id string) (Item, bool) {
	if b, ok := s.Batch(id); ok {
		return b, true
	}
	if p, ok := s.Product(id); ok {
		return p, true
	}
	return nil, false
}

// Batches lists batches in creation order.
func (s *State) Batches() []*HerbBatch {
	out := make([]*HerbBatch, 0, len(s.batchOrder))
	for _, id := range s.batchOrder {
		out = append(out, s.batches[id].Clone())
	}
	return out
}

// Products lists products in creation order.
func (s *State) Products() []*FinalProduct {
	out := make([]*FinalProduct, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		out = append(out, s.products[id].Clone())
	}
	return out
}

// Clone returns an independent deep copy.
func (s *State) Clone() *State {
	c := New()
	for id, b := range s.batches {
		c.batches[id] = b.Clone()
	}
	for id, p := range s.products {
		c.products[id] = p.Clone()
	}
	c.batchOrder = slices.Clone(s.batchOrder)
	c.productOrder = slices.Clone(s.productOrder)
	c.height = s.height
	return c
}

// --------------------------------------------------
// Trace
// --------------------------------------------------

// TraceHistory selects the blocks named in item's history and sorts them by
// timestamp. Ties keep chain order.
func TraceHistory(item Item, blocks []types.Block) []types.Block {
	want := make(map[string]bool)
	for _, id := range item.ItemHistory() {
		want[id] = true
	}
	out := make([]types.Block, 0, len(want))
	for _, b := range blocks {
		if want[b.ID] {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}
