package blockchain

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Siasom1/herbchain/core/rawdb"
	"github.com/Siasom1/herbchain/core/types"
	"github.com/Siasom1/herbchain/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
)

// stepClock advances one millisecond per call.
func stepClock(start int64) func() time.Time {
	var mu sync.Mutex
	ms := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ms++
		return time.UnixMilli(ms)
	}
}

func newTestChain(t *testing.T, opts ...Option) *Blockchain {
	t.Helper()
	opts = append([]Option{WithClock(stepClock(1760688000000))}, opts...)
	bc, err := NewBlockchain(DefaultChainConfig(""), log.Nop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { bc.Close() })
	return bc
}

func collectionTx(herb string) types.Transaction {
	return types.NewCollectionTx(types.CollectionData{
		HerbName:       herb,
		Quantity:       5,
		Collector:      "Asha",
		Location:       types.GeoLocation{Lat: 12.9, Lon: 77.6},
		CollectionDate: "2026-10-17T08:00:00.000Z",
	})
}

func TestNewBlockchain_CreatesGenesis(t *testing.T) {
	bc := newTestChain(t)

	require.Equal(t, 1, bc.Len())
	g := bc.Genesis()
	assert.Equal(t, types.GenesisPreviousHash, g.PreviousHash)
	assert.Equal(t, types.KindGenesis, g.Kind())
	assert.Equal(t, g.Hash[:8], g.ID)
	data, ok := g.Transaction.Genesis()
	require.True(t, ok)
	assert.Equal(t, "Genesis Block", data.Message)
	assert.NoError(t, bc.Verify())
}

func TestNewBlockchain_RejectsBadIDLength(t *testing.T) {
	cfg := DefaultChainConfig("")
	cfg.IDLength = 4
	_, err := NewBlockchain(cfg, log.Nop())
	assert.Error(t, err)
}

func TestNewBlock_IsPure(t *testing.T) {
	prev, err := NewGenesisBlock(time.UnixMilli(1000), "Genesis Block", 8)
	require.NoError(t, err)

	at := time.UnixMilli(2000)
	a, err := NewBlock(collectionTx("Tulsi"), prev, at, 8)
	require.NoError(t, err)
	b, err := NewBlock(collectionTx("Tulsi"), prev, at, 8)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, prev.Hash, a.PreviousHash)
	assert.Equal(t, int64(2000), a.Timestamp)
}

func TestNewBlock_RejectsGenesisAndEmpty(t *testing.T) {
	prev, err := NewGenesisBlock(time.UnixMilli(1000), "Genesis Block", 8)
	require.NoError(t, err)

	_, err = NewBlock(types.NewGenesisTx("again"), prev, time.UnixMilli(2000), 8)
	assert.ErrorIs(t, err, ErrGenesisTx)
	_, err = NewBlock(types.Transaction{}, prev, time.UnixMilli(2000), 8)
	assert.ErrorIs(t, err, types.ErrEmptyTransaction)
}

func TestCommit_LinksAndVerifiesAfterEveryAppend(t *testing.T) {
	bc := newTestChain(t)

	col, n, err := bc.Commit(collectionTx("Ashwagandha"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.NoError(t, bc.Verify())

	proc := types.NewProcessingTx(types.ProcessingData{
		BatchID: col.ID, Processor: "Raj", ProcessType: "Dried", OutputQuantity: 4,
		ProcessDate: "2026-10-17T09:00:00.000Z",
	})
	_, _, err = bc.Commit(proc)
	require.NoError(t, err)
	assert.NoError(t, bc.Verify())

	blocks := bc.Blocks()
	require.Len(t, blocks, 3)
	for i := 1; i < len(blocks); i++ {
		assert.Equal(t, blocks[i-1].Hash, blocks[i].PreviousHash)
	}
}

func TestCommit_TimestampsNeverGoBackwards(t *testing.T) {
	times := []int64{5000, 4000, 3000}
	i := 0
	clock := func() time.Time {
		ts := times[i%len(times)]
		i++
		return time.UnixMilli(ts)
	}
	bc, err := NewBlockchain(DefaultChainConfig(""), log.Nop(), WithClock(clock))
	require.NoError(t, err)
	defer bc.Close()

	a, _, err := bc.Commit(collectionTx("Tulsi"))
	require.NoError(t, err)
	b, _, err := bc.Commit(collectionTx("Neem"))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, a.Timestamp, bc.Genesis().Timestamp)
	assert.GreaterOrEqual(t, b.Timestamp, a.Timestamp)
}

func TestCommit_RetriesAfterIDCollision(t *testing.T) {
	fixed := time.UnixMilli(1760688000500)
	var collided []string
	bc := newTestChain(t, WithCollisionHook(func(id string) { collided = append(collided, id) }))
	bc.now = func() time.Time { return fixed }

	// Predict the next block and squat its id. The clock does not move.
	next, err := NewBlock(collectionTx("Tulsi"), bc.Head(), fixed, 8)
	require.NoError(t, err)
	bc.index[next.ID] = 0

	b, n, err := bc.Commit(collectionTx("Tulsi"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.NotEqual(t, next.ID, b.ID)
	assert.Equal(t, fixed.UnixMilli()+1, b.Timestamp)
	assert.Equal(t, []string{next.ID}, collided)

	got, _, err := bc.BlockByID(b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)
	assert.NoError(t, Verify(bc.Blocks()))
}

func TestCommit_SecondCollisionFails(t *testing.T) {
	fixed := time.UnixMilli(1760688000500)
	bc := newTestChain(t)
	bc.now = func() time.Time { return fixed }

	first, err := NewBlock(collectionTx("Tulsi"), bc.Head(), fixed, 8)
	require.NoError(t, err)
	retry, err := NewBlock(collectionTx("Tulsi"), bc.Head(), fixed.Add(time.Millisecond), 8)
	require.NoError(t, err)
	bc.index[first.ID] = 0
	bc.index[retry.ID] = 0

	_, _, err = bc.Commit(collectionTx("Tulsi"))
	assert.ErrorIs(t, err, ErrIDCollision)
	assert.Equal(t, 1, bc.Len())
}

func TestCommit_ConcurrentAppendsStayLinked(t *testing.T) {
	bc := newTestChain(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			herb := "herb-" + string(rune('a'+i%26))
			_, _, err := bc.Commit(collectionTx(herb))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 33, bc.Len())
	assert.NoError(t, bc.Verify())
}

func TestBlocks_IsSnapshot(t *testing.T) {
	bc := newTestChain(t)
	snap := bc.Blocks()
	snap[0].Hash = "tampered"

	assert.NoError(t, bc.Verify())
	_, _, err := bc.Commit(collectionTx("Tulsi"))
	require.NoError(t, err)
	assert.Len(t, snap, 1)
}

func TestReads(t *testing.T) {
	bc := newTestChain(t)
	a, _, err := bc.Commit(collectionTx("Tulsi"))
	require.NoError(t, err)
	b, _, err := bc.Commit(collectionTx("Neem"))
	require.NoError(t, err)

	got, n, err := bc.BlockByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, a.Hash, got.Hash)

	byNum, err := bc.BlockByNumber(2)
	require.NoError(t, err)
	assert.Equal(t, b.ID, byNum.ID)

	_, _, err = bc.BlockByID("ffffffff")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = bc.BlockByNumber(3)
	assert.ErrorIs(t, err, ErrNotFound)

	latest := bc.Latest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, b.ID, latest[0].ID)
	assert.Equal(t, a.ID, latest[1].ID)
	assert.Len(t, bc.Latest(10), 3)
	assert.Equal(t, b.ID, bc.Head().ID)
}

func TestArchive_ReplayOnRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultChainConfig(dir)

	bc, err := NewBlockchain(cfg, log.Nop(), WithClock(stepClock(1000)))
	require.NoError(t, err)
	_, _, err = bc.Commit(collectionTx("Tulsi"))
	require.NoError(t, err)
	head := bc.Head()
	require.NoError(t, bc.Close())

	again, err := NewBlockchain(cfg, log.Nop())
	require.NoError(t, err)
	defer again.Close()

	assert.Equal(t, 2, again.Len())
	assert.Equal(t, head.Hash, again.Head().Hash)
	assert.NoError(t, again.Verify())
}

func TestArchive_TamperedChainIsRejected(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultChainConfig(dir)

	bc, err := NewBlockchain(cfg, log.Nop(), WithClock(stepClock(1000)))
	require.NoError(t, err)
	b, n, err := bc.Commit(collectionTx("Tulsi"))
	require.NoError(t, err)
	require.NoError(t, bc.Close())

	db, err := rawdb.Open(dir + "/chaindata")
	require.NoError(t, err)
	b.Hash = types.HashHex([]byte("forged"))
	require.NoError(t, db.WriteBlock(n, b))
	require.NoError(t, db.Close())

	_, err = NewBlockchain(cfg, log.Nop())
	require.Error(t, err)
	var iv *IntegrityViolation
	require.True(t, errors.As(err, &iv))
	assert.Equal(t, 1, iv.Index)
}

func TestArchive_IDIndexMustMatchPositions(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultChainConfig(dir)

	bc, err := NewBlockchain(cfg, log.Nop(), WithClock(stepClock(1000)))
	require.NoError(t, err)
	b, _, err := bc.Commit(collectionTx("Tulsi"))
	require.NoError(t, err)
	require.NoError(t, bc.Close())

	// Drop the id entry while leaving the block itself in place.
	ldb, err := leveldb.OpenFile(filepath.Join(dir, "chaindata"), nil)
	require.NoError(t, err)
	require.NoError(t, ldb.Delete([]byte("i"+b.ID), nil))
	require.NoError(t, ldb.Close())

	_, err = NewBlockchain(cfg, log.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, rawdb.ErrNotFound)
	assert.Contains(t, err.Error(), b.ID)
}
