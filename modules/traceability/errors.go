package traceability

import (
	"errors"
	"fmt"

	"github.com/Siasom1/herbchain/core/state"
	"github.com/Siasom1/herbchain/core/types"
)

var ErrNotFound = errors.New("traceability: item not found")

// UnknownBatchError rejects a submission naming a batch the projection does
// not hold. Nothing is committed. It matches state.ErrReferentialIntegrity.
type UnknownBatchError struct {
	Kind    types.Kind
	BatchID string
}

func (e *UnknownBatchError) Error() string {
	return fmt.Sprintf("traceability: %s references unknown batch %q", e.Kind, e.BatchID)
}

func (e *UnknownBatchError) Is(target error) bool {
	return target == state.ErrReferentialIntegrity
}
