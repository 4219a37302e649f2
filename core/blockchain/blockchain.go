package blockchain

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Siasom1/herbchain/core/rawdb"
	"github.com/Siasom1/herbchain/core/types"
	"github.com/Siasom1/herbchain/log"
	"go.uber.org/zap"
)

var (
	ErrChainEmpty  = errors.New("blockchain: chain has no genesis block")
	ErrNotFound    = errors.New("blockchain: block not found")
	ErrIDCollision = errors.New("blockchain: block id collision")
	ErrGenesisTx   = errors.New("blockchain: genesis transaction cannot be appended")
)

// --------------------------------------------------------
// Block construction (pure)
// --------------------------------------------------------

// NewGenesisBlock builds block #0: a genesis transaction whose previousHash
// is the "0" sentinel.
func NewGenesisBlock(now time.Time, message string, idLength int) (types.Block, error) {
	return newBlock(types.NewGenesisTx(message), types.GenesisPreviousHash, now.UnixMilli(), idLength)
}

// NewBlock builds the block that appends tx after prev. It does not touch any
// chain; the caller pushes the result.
func NewBlock(tx types.Transaction, prev types.Block, now time.Time, idLength int) (types.Block, error) {
	if tx.IsZero() {
		return types.Block{}, types.ErrEmptyTransaction
	}
	if tx.Kind() == types.KindGenesis {
		return types.Block{}, ErrGenesisTx
	}
	return newBlock(tx, prev.Hash, now.UnixMilli(), idLength)
}

func newBlock(tx types.Transaction, previousHash string, ts int64, idLength int) (types.Block, error) {
	hash, err := types.ComputeHash(ts, tx, previousHash)
	if err != nil {
		return types.Block{}, err
	}
	return types.Block{
		ID:           types.DeriveID(hash, idLength),
		Timestamp:    ts,
		Transaction:  tx,
		PreviousHash: previousHash,
		Hash:         hash,
	}, nil
}

// --------------------------------------------------------
// Blockchain
// --------------------------------------------------------

// Blockchain owns the ordered block sequence. Appends are serialized; reads
// hand out copies.
type Blockchain struct {
	cfg ChainConfig
	log *log.Logger
	db  *rawdb.Database
	now func() time.Time

	// onCollision is told about every id collision, including retried ones.
	onCollision func(id string)

	mu     sync.RWMutex
	blocks []types.Block
	index  map[string]int
}

type Option func(*Blockchain)

// WithCollisionHook registers fn to run, under the commit lock, whenever a
// new block's id is already taken.
func WithCollisionHook(fn func(id string)) Option {
	return func(bc *Blockchain) { bc.onCollision = fn }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(bc *Blockchain) { bc.now = now }
}

// NewBlockchain opens the archive, replays and verifies any stored blocks,
// and creates the genesis block when the archive is empty.
func NewBlockchain(cfg ChainConfig, logger *log.Logger, opts ...Option) (*Blockchain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}

	bc := &Blockchain{
		cfg:   cfg,
		log:   logger.Named("chain"),
		now:   time.Now,
		index: make(map[string]int),
	}
	for _, opt := range opts {
		opt(bc)
	}

	dbPath := ""
	if cfg.DataDir != "" {
		dbPath = filepath.Join(cfg.DataDir, "chaindata")
	}
	db, err := rawdb.Open(dbPath)
	if err != nil {
		return nil, err
	}
	bc.db = db

	stored, err := db.ReadBlocks()
	if err != nil {
		db.Close()
		return nil, err
	}

	if len(stored) == 0 {
		genesis, err := NewGenesisBlock(bc.now(), cfg.GenesisMessage, cfg.IDLength)
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := db.WriteBlock(0, genesis); err != nil {
			db.Close()
			return nil, err
		}
		bc.push(genesis)
		bc.log.Info("genesis block created", zap.String("block", genesis.ID), zap.String("hash", genesis.Hash))
		return bc, nil
	}

	if err := Verify(stored); err != nil {
		db.Close()
		return nil, fmt.Errorf("blockchain: archived chain rejected: %w", err)
	}
	for i, b := range stored {
		n, err := db.BlockNumber(b.ID)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("blockchain: archived id index for block %d (%s): %w", i, b.ID, err)
		}
		if n != uint64(i) {
			db.Close()
			return nil, fmt.Errorf("blockchain: archived id index maps %s to %d, stored at %d", b.ID, n, i)
		}
		bc.push(b)
	}
	head := bc.blocks[len(bc.blocks)-1]
	bc.log.Info("chain loaded from archive",
		zap.Int("blocks", len(bc.blocks)),
		zap.String("head", head.ID))
	return bc, nil
}

func (bc *Blockchain) Close() error {
	return bc.db.Close()
}

func (bc *Blockchain) Config() ChainConfig {
	return bc.cfg
}

func (bc *Blockchain) push(b types.Block) {
	bc.index[b.ID] = len(bc.blocks)
	bc.blocks = append(bc.blocks, b)
}

// Commit appends tx as one block: read tail, build block, check the id,
// archive, push. Either the block is fully linked and stored or nothing
// changes. The returned number is the block's chain position.
//
// When the id is taken the block is rebuilt once, one millisecond after the
// colliding attempt, which changes the hash. A second collision returns
// ErrIDCollision.
func (bc *Blockchain) Commit(tx types.Transaction) (types.Block, uint64, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if len(bc.blocks) == 0 {
		return types.Block{}, 0, ErrChainEmpty
	}
	head := bc.blocks[len(bc.blocks)-1]

	// Keep timestamps non-decreasing so timestamp order equals chain order.
	now := bc.now()
	if now.UnixMilli() < head.Timestamp {
		now = time.UnixMilli(head.Timestamp)
	}

	b, err := bc.unclaimedBlock(tx, head, now)
	if errors.Is(err, ErrIDCollision) {
		retryAt := bc.now()
		if retryAt.UnixMilli() <= now.UnixMilli() {
			retryAt = time.UnixMilli(now.UnixMilli() + 1)
		}
		bc.log.Warn("retrying commit after id collision", zap.Error(err))
		b, err = bc.unclaimedBlock(tx, head, retryAt)
	}
	if err != nil {
		return types.Block{}, 0, err
	}

	number := uint64(len(bc.blocks))
	if err := bc.db.WriteBlock(number, b); err != nil {
		return types.Block{}, 0, fmt.Errorf("blockchain: archive block %d: %w", number, err)
	}
	bc.push(b)

	bc.log.Debug("block committed",
		zap.String("block", b.ID),
		zap.Uint64("number", number),
		zap.Stringer("kind", b.Kind()))
	return b, number, nil
}

// unclaimedBlock builds the block for tx at ts and fails if its id is in use.
// Caller holds bc.mu.
func (bc *Blockchain) unclaimedBlock(tx types.Transaction, head types.Block, ts time.Time) (types.Block, error) {
	b, err := NewBlock(tx, head, ts, bc.cfg.IDLength)
	if err != nil {
		return types.Block{}, err
	}
	if j, dup := bc.index[b.ID]; dup {
		if bc.onCollision != nil {
			bc.onCollision(b.ID)
		}
		return types.Block{}, fmt.Errorf("%w: %s already names block %d", ErrIDCollision, b.ID, j)
	}
	return b, nil
}

// --------------------------------------------------------
// Reads
// --------------------------------------------------------

func (bc *Blockchain) Head() types.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.blocks[len(bc.blocks)-1]
}

func (bc *Blockchain) Genesis() types.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.blocks[0]
}

func (bc *Blockchain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return len(bc.blocks)
}

// Blocks returns a point-in-time copy of the whole chain.
func (bc *Blockchain) Blocks() []types.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	out := make([]types.Block, len(bc.blocks))
	copy(out, bc.blocks)
	return out
}

// Latest returns up to n blocks, newest first.
func (bc *Blockchain) Latest(n int) []types.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if n > len(bc.blocks) {
		n = len(bc.blocks)
	}
	out := make([]types.Block, 0, n)
	for i := len(bc.blocks) - 1; i >= len(bc.blocks)-n; i-- {
		out = append(out, bc.blocks[i])
	}
	return out
}

func (bc *Blockchain) BlockByID(id string) (types.Block, uint64, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	i, ok := bc.index[id]
	if !ok {
		return types.Block{}, 0, ErrNotFound
	}
	return bc.blocks[i], uint64(i), nil
}

func (bc *Blockchain) BlockByNumber(number uint64) (types.Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if number >= uint64(len(bc.blocks)) {
		return types.Block{}, ErrNotFound
	}
	return bc.blocks[number], nil
}

// Verify checks the live chain; see the package-level Verify.
func (bc *Blockchain) Verify() error {
	return Verify(bc.Blocks())
}
