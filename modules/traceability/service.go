// Package traceability runs the ledger: it validates submissions, commits
// them to the chain and keeps the batch/product projection in step.
package traceability

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Siasom1/herbchain/core/blockchain"
	"github.com/Siasom1/herbchain/core/state"
	"github.com/Siasom1/herbchain/core/txfactory"
	"github.com/Siasom1/herbchain/core/types"
	"github.com/Siasom1/herbchain/events"
	"github.com/Siasom1/herbchain/log"
	"github.com/Siasom1/herbchain/metrics"
	"go.uber.org/zap"
)

type Service struct {
	chain   *blockchain.Blockchain
	factory *txfactory.Factory
	bus     *events.EventBus
	metrics *metrics.Metrics
	log     *log.Logger

	// mu spans pre-check, commit and apply, so state is always the fold
	// of the chain prefix committed through this service.
	mu    sync.RWMutex
	state *state.State
}

type Option func(*Service)

func WithFactory(f *txfactory.Factory) Option {
	return func(s *Service) { s.factory = f }
}

func WithEventBus(bus *events.EventBus) Option {
	return func(s *Service) { s.bus = bus }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService folds the chain's current blocks. A chain that does not fold
// cleanly is refused.
func NewService(chain *blockchain.Blockchain, logger *log.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{
		chain:   chain,
		factory: txfactory.New(nil),
		bus:     events.NewEventBus(),
		log:     logger.Named("traceability"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) Events() *events.EventBus {
	return s.bus
}

func (s *Service) Chain() *blockchain.Blockchain {
	return s.chain
}

// ------------------------------------------------------------
// Writes
// ------------------------------------------------------------

// RegisterBatch records a new herb collection. The receipt's ItemID is the
// new batch id.
func (s *Service) RegisterBatch(in txfactory.CollectionInput) (*types.Receipt, error) {
	tx, err := s.factory.Collection(in)
	if err != nil {
		return nil, s.rejected(types.KindCollection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, n, err := s.commitLocked(tx)
	if err != nil {
		return nil, err
	}
	return types.NewReceipt(b, n, b.ID), nil
}

// ProcessBatch records one processing step on an existing batch.
func (s *Service) ProcessBatch(in txfactory.ProcessingInput) (*types.Receipt, error) {
	tx, err := s.factory.Processing(in)
	if err != nil {
		return nil, s.rejected(types.KindProcessing, err)
	}
	d, _ := tx.Processing()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.HasBatch(d.BatchID) {
		return nil, s.rejected(types.KindProcessing, &UnknownBatchError{Kind: types.KindProcessing, BatchID: d.BatchID})
	}
	b, n, err := s.commitLocked(tx)
	if err != nil {
		return nil, err
	}
	return types.NewReceipt(b, n, d.BatchID), nil
}

// FormulateProduct records a product made from existing batches. The
// receipt's ItemID is the new product id.
func (s *Service) FormulateProduct(in txfactory.FormulationInput) (*types.Receipt, error) {
	tx, err := s.factory.Formulation(in)
	if err != nil {
		return nil, s.rejected(types.KindFormulation, err)
	}
	d, _ := tx.Formulation()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range d.InputBatchIDs {
		if !s.state.HasBatch(id) {
			return nil, s.rejected(types.KindFormulation, &UnknownBatchError{Kind: types.KindFormulation, BatchID: id})
		}
	}
	b, n, err := s.commitLocked(tx)
	if err != nil {
		return nil, err
	}
	return types.NewReceipt(b, n, b.ID), nil
}

func (s *Service) rejected(kind types.Kind, err error) error {
	switch {
	case errors.Is(err, txfactory.ErrValidation):
		s.metrics.ValidationFailed(kind.String())
	case errors.Is(err, state.ErrReferentialIntegrity):
		s.metrics.ReferenceFailed(kind.String())
	}
	s.log.Debug("submission rejected", zap.Stringer("kind", kind), zap.Error(err))
	return err
}

// commitLocked appends tx and folds the block into the projection. Caller
// holds s.mu.
func (s *Service) commitLocked(tx types.Transaction) (types.Block, uint64, error) {
	b, n, err := s.chain.Commit(tx)
	if err != nil {
		s.log.Error("commit failed", zap.Stringer("kind", tx.Kind()), zap.Error(err))
		return types.Block{}, 0, err
	}

	if err := s.state.Apply(b); err != nil {
		// The block is on the chain; the projection must catch up from scratch.
		s.log.Error("apply failed, rebuilding projection", zap.String("block", b.ID), zap.Error(err))
		if rerr := s.rebuildLocked(); rerr != nil {
			return b, n, fmt.Errorf("traceability: block %s committed but projection is stale: %w", b.ID, rerr)
		}
	}

	nb, np := s.state.Len()
	s.metrics.BlockAppended(b.Kind().String(), s.state.Height())
	s.metrics.Projection(s.state.Height(), nb, np)
	s.publish(b)

	s.log.Info("block appended",
		zap.String("block", b.ID),
		zap.Uint64("index", n),
		zap.Stringer("kind", b.Kind()))
	return b, n, nil
}

func (s *Service) publish(b types.Block) {
	s.bus.PublishBlock(b)

	item := b.ID
	if d, ok := b.Transaction.Processing(); ok {
		item = d.BatchID
	}
	s.bus.PublishItem(events.ItemEvent{ItemID: item, BlockID: b.ID, Kind: b.Kind().String()})
}

// ------------------------------------------------------------
// Projection maintenance
// ------------------------------------------------------------

// Rebuild discards the projection and folds the chain again.
func (s *Service) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked()
}

func (s *Service) rebuildLocked() error {
	st, err := state.Fold(s.chain.Blocks())
	if err != nil {
		s.metrics.FoldFailed()
		s.log.Error("fold failed", zap.Error(err))
		return err
	}
	s.state = st
	nb, np := st.Len()
	s.metrics.Projection(st.Height(), nb, np)
	s.log.Debug("projection rebuilt", zap.Int("height", st.Height()))
	return nil
}

// Verify checks the whole chain's hash links and block hashes.
func (s *Service) Verify() error {
	err := s.chain.Verify()
	s.metrics.Verified(err == nil)
	if err != nil {
		s.log.Warn("chain verification failed", zap.Error(err))
	}
	return err
}

// ------------------------------------------------------------
// Queries
// ------------------------------------------------------------

func (s *Service) Batches() []*state.HerbBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Batches()
}

func (s *Service) Products() []*state.FinalProduct {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Products()
}

func (s *Service) Batch(id string) (*state.HerbBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.Batch(id)
	if !ok {
		return nil, fmt.Errorf("%w: batch %q", ErrNotFound, id)
	}
	return b, nil
}

func (s *Service) Product(id string) (*state.FinalProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.Product(id)
	if !ok {
		return nil, fmt.Errorf("%w: product %q", ErrNotFound, id)
	}
	return p, nil
}

// Item finds a batch or product by id.
func (s *Service) Item(id string) (state.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.state.Item(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return item, nil
}

// Trace returns the blocks in an item's provenance history, by timestamp.
func (s *Service) Trace(id string) ([]types.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.state.Item(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return state.TraceHistory(item, s.chain.Blocks()), nil
}

// Block looks a block up by id and returns it with its chain position.
func (s *Service) Block(id string) (types.Block, uint64, error) {
	b, n, err := s.chain.BlockByID(id)
	if err != nil {
		return types.Block{}, 0, fmt.Errorf("%w: block %q", ErrNotFound, id)
	}
	return b, n, nil
}

func (s *Service) BlockByNumber(n uint64) (types.Block, error) {
	b, err := s.chain.BlockByNumber(n)
	if err != nil {
		return types.Block{}, fmt.Errorf("%w: block #%d", ErrNotFound, n)
	}
	return b, nil
}

// Latest returns up to n blocks, newest first.
func (s *Service) Latest(n int) []types.Block {
	return s.chain.Latest(n)
}

func (s *Service) BlockCount() int {
	return s.chain.Len()
}
