// Package rawdb archives committed blocks in LevelDB so a node can replay its
// chain on start. With an empty path the database lives in memory.
package rawdb

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Siasom1/herbchain/core/types"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrNotFound = errors.New("rawdb: not found")

var (
	blockPrefix = []byte("b") // b + num (uint64 big endian) -> rlp(block)
	idPrefix    = []byte("i") // i + block id -> num
)

func blockKey(number uint64) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], number)
	return key
}

func idKey(id string) []byte {
	return append(append([]byte{}, idPrefix...), id...)
}

// Database is the low-level LevelDB wrapper.
type Database struct {
	db *leveldb.DB
}

// Open opens the LevelDB at path, or an in-memory one when path is empty.
func Open(path string) (*Database, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("rawdb: open %q: %w", path, err)
	}
	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// WriteBlock stores the block at chain position number together with its
// id index entry, in one batch.
func (d *Database) WriteBlock(number uint64, b types.Block) error {
	enc, err := types.EncodeBlock(b)
	if err != nil {
		return err
	}
	var num [8]byte
	binary.BigEndian.PutUint64(num[:], number)

	batch := new(leveldb.Batch)
	batch.Put(blockKey(number), enc)
	batch.Put(idKey(b.ID), num[:])
	return d.db.Write(batch, nil)
}

// BlockNumber resolves a block id to its chain position.
func (d *Database) BlockNumber(id string) (uint64, error) {
	data, err := d.db.Get(idKey(id), nil)
	if err == leveldb.ErrNotFound {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("rawdb: corrupt id index for %s", id)
	}
	return binary.BigEndian.Uint64(data), nil
}

// ReadBlocks returns every archived block in chain order. Positions must be
// contiguous from 0; a gap is reported as corruption.
func (d *Database) ReadBlocks() ([]types.Block, error) {
	it := d.db.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer it.Release()

	var blocks []types.Block
	for it.Next() {
		key := it.Key()
		if len(key) != len(blockPrefix)+8 {
			continue
		}
		number := binary.BigEndian.Uint64(key[len(blockPrefix):])
		if number != uint64(len(blocks)) {
			return nil, fmt.Errorf("rawdb: missing block %d", len(blocks))
		}
		b, err := types.DecodeBlock(it.Value())
		if err != nil {
			return nil, fmt.Errorf("rawdb: decode block %d: %w", number, err)
		}
		blocks = append(blocks, b)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return blocks, nil
}
