package types

import (
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
)

// GenesisPreviousHash is the sentinel parent of the genesis block.
const GenesisPreviousHash = "0"

// ------------------------------------------------------------
// Block
// ------------------------------------------------------------

// Block is one hash-linked ledger record. Blocks are values; once appended
// to a chain they are never modified.
type Block struct {
	ID           string      `json:"id"`
	Timestamp    int64       `json:"timestamp"` // ms since epoch
	Transaction  Transaction `json:"transaction"`
	PreviousHash string      `json:"previousHash"`
	Hash         string      `json:"hash"`
}

// ComputeHash hashes timestamp || canonical(tx) || previousHash with SHA-256.
// It is a pure function of its three inputs.
func ComputeHash(timestamp int64, tx Transaction, previousHash string) (string, error) {
	canon, err := tx.Canonical()
	if err != nil {
		return "", err
	}
	data := strconv.FormatInt(timestamp, 10) + canon + previousHash
	return HashHex([]byte(data)), nil
}

// DeriveID returns the first n hex characters of hash.
func DeriveID(hash string, n int) string {
	if n <= 0 || n > len(hash) {
		return hash
	}
	return hash[:n]
}

// ComputeHash recomputes the hash from the block's stored fields.
func (b Block) ComputeHash() (string, error) {
	return ComputeHash(b.Timestamp, b.Transaction, b.PreviousHash)
}

func (b Block) Kind() Kind {
	return b.Transaction.Kind()
}

func (b Block) IsGenesis() bool {
	return b.Transaction.Kind() == KindGenesis
}

func (b Block) Time() time.Time {
	return time.UnixMilli(b.Timestamp).UTC()
}

// ------------------------------------------------------------
// RLP storage form
// ------------------------------------------------------------

type extblock struct {
	ID           string
	Timestamp    uint64
	Transaction  Transaction
	PreviousHash string
	Hash         string
}

func EncodeBlock(b Block) ([]byte, error) {
	if b.Timestamp < 0 {
		return nil, ErrNegativeTime
	}
	return rlp.EncodeToBytes(extblock{
		ID:           b.ID,
		Timestamp:    uint64(b.Timestamp),
		Transaction:  b.Transaction,
		PreviousHash: b.PreviousHash,
		Hash:         b.Hash,
	})
}

func DecodeBlock(data []byte) (Block, error) {
	var eb extblock
	if err := rlp.DecodeBytes(data, &eb); err != nil {
		return Block{}, err
	}
	return Block{
		ID:           eb.ID,
		Timestamp:    int64(eb.Timestamp),
		Transaction:  eb.Transaction,
		PreviousHash: eb.PreviousHash,
		Hash:         eb.Hash,
	}, nil
}
