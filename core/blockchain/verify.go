package blockchain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Siasom1/herbchain/core/types"
	"github.com/Siasom1/herbchain/params"
)

var ErrIntegrity = errors.New("blockchain: integrity violation")

// IntegrityViolation reports the first block that fails verification.
type IntegrityViolation struct {
	Index   int
	BlockID string
	Reason  string
}

func (e *IntegrityViolation) Error() string {
	return fmt.Sprintf("blockchain: integrity violation at block %d (%s): %s", e.Index, e.BlockID, e.Reason)
}

func (e *IntegrityViolation) Is(target error) bool {
	return target == ErrIntegrity
}

func violation(i int, b types.Block, format string, args ...interface{}) error {
	return &IntegrityViolation{Index: i, BlockID: b.ID, Reason: fmt.Sprintf(format, args...)}
}

// Verify walks the chain from genesis to tail. For every block it recomputes
// the previous block's hash and checks the link, then recomputes the block's
// own hash from its stored fields. The first mismatch is returned as an
// *IntegrityViolation; a nil error means the chain is intact.
func Verify(blocks []types.Block) error {
	if len(blocks) == 0 {
		return ErrChainEmpty
	}

	seen := make(map[string]int, len(blocks))
	var prevHash string
	for i, b := range blocks {
		if i == 0 {
			if b.PreviousHash != types.GenesisPreviousHash {
				return violation(i, b, "genesis previousHash %q is not the sentinel", b.PreviousHash)
			}
			if !b.IsGenesis() {
				return violation(i, b, "first block is %s, not GENESIS", b.Kind())
			}
		} else {
			if b.PreviousHash != prevHash {
				return violation(i, b, "previousHash does not match hash of block %d", i-1)
			}
			if b.IsGenesis() {
				return violation(i, b, "genesis transaction after block 0")
			}
		}

		if !types.IsHashHex(b.Hash) {
			return violation(i, b, "stored hash is not a hex SHA-256 digest")
		}
		h, err := b.ComputeHash()
		if err != nil {
			return violation(i, b, "cannot hash block: %v", err)
		}
		if h != b.Hash {
			return violation(i, b, "stored hash does not match contents")
		}
		if len(b.ID) < params.MinIDLength || !strings.HasPrefix(h, b.ID) {
			return violation(i, b, "id is not a prefix of the block hash")
		}
		if j, dup := seen[b.ID]; dup {
			return violation(i, b, "id already used by block %d", j)
		}
		seen[b.ID] = i
		prevHash = h
	}
	return nil
}

// Valid is the boolean form of Verify.
func Valid(blocks []types.Block) bool {
	return Verify(blocks) == nil
}
