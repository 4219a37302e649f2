package label

import (
	"fmt"

	"github.com/Siasom1/herbchain/core/state"
	"github.com/Siasom1/herbchain/core/types"
)

// Ledger is the read side a label needs.
type Ledger interface {
	Item(id string) (state.Item, error)
	Trace(id string) ([]types.Block, error)
	Verify() error
}

// Scan decodes a marker and looks its id up. Malformed markers fail with
// ErrUnrecognized; unknown ids fail with the ledger's not-found error.
func Scan(l Ledger, data []byte) (state.Item, error) {
	p, err := Decode(data)
	if err != nil {
		return nil, err
	}
	item, err := l.Item(p.ID)
	if err != nil {
		return nil, fmt.Errorf("label: scan %s: %w", p.ID, err)
	}
	return item, nil
}

// Label builds the smart label for id.
func Label(l Ledger, id string) (*SmartLabel, error) {
	item, err := l.Item(id)
	if err != nil {
		return nil, err
	}
	trace, err := l.Trace(id)
	if err != nil {
		return nil, err
	}
	return Build(item, trace, l.Verify() == nil), nil
}

// ScanLabel is Scan followed by Label.
func ScanLabel(l Ledger, data []byte) (*SmartLabel, error) {
	item, err := Scan(l, data)
	if err != nil {
		return nil, err
	}
	return Label(l, item.ItemID())
}
