package state

import (
	"errors"
	"fmt"

	"github.com/Siasom1/herbchain/core/types"
)

var (
	ErrReferentialIntegrity = errors.New("state: referential integrity failure")
	ErrDuplicateItem        = errors.New("state: item id already exists")
)

// ReferentialIntegrityError marks the block that named a batch the
// projection does not know.
type ReferentialIntegrityError struct {
	Index   int // chain position of the offending block
	BlockID string
	Kind    types.Kind
	BatchID string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("state: %s block %s (#%d) references unknown batch %q",
		e.Kind, e.BlockID, e.Index, e.BatchID)
}

func (e *ReferentialIntegrityError) Is(target error) bool {
	return target == ErrReferentialIntegrity
}
