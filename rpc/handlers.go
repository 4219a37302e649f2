package rpc

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Siasom1/herbchain/core/blockchain"
	"github.com/Siasom1/herbchain/core/txfactory"
	"github.com/Siasom1/herbchain/core/types"
	"github.com/Siasom1/herbchain/modules/label"
	"github.com/Siasom1/herbchain/modules/traceability"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type RPCHandlers struct {
	Ledger *traceability.Service
}

// BlockResult is a block with its chain position.
type BlockResult struct {
	Block  types.Block    `json:"block"`
	Number hexutil.Uint64 `json:"number"`
}

// VerifyResult reports a chain verification. Index and BlockID are set
// only when Valid is false.
type VerifyResult struct {
	Valid   bool   `json:"valid"`
	Blocks  int    `json:"blocks"`
	Error   string `json:"error,omitempty"`
	Index   *int   `json:"index,omitempty"`
	BlockID string `json:"blockId,omitempty"`
}

// ---------------------------------------------------------------
// REGISTER METHODS
// ---------------------------------------------------------------
func NewHandlers(ledger *traceability.Service) map[string]RPCHandler {
	h := &RPCHandlers{Ledger: ledger}

	return map[string]RPCHandler{
		// ---------------- writes ----------------
		"herb_registerBatch":    h.registerBatch,
		"herb_processBatch":     h.processBatch,
		"herb_formulateProduct": h.formulateProduct,

		// ---------------- items ----------------
		"herb_getItem":      h.getItem,
		"herb_listBatches":  h.listBatches,
		"herb_listProducts": h.listProducts,
		"herb_trace":        h.trace,
		"herb_label":        h.label,
		"herb_scan":         h.scan,

		// ---------------- chain ----------------
		"herb_blockCount":       h.blockCount,
		"herb_getBlock":         h.getBlock,
		"herb_getBlockByNumber": h.getBlockByNumber,
		"herb_latestBlocks":     h.latestBlocks,
		"herb_verifyChain":      h.verifyChain,
		"herb_rebuild":          h.rebuild,
	}
}

// ---------------------------------------------------------------
// WRITES
// ---------------------------------------------------------------
func (h *RPCHandlers) registerBatch(params []json.RawMessage) (interface{}, error) {
	var in txfactory.CollectionInput
	if err := decodeParams(params, 1, &in); err != nil {
		return nil, err
	}
	return h.Ledger.RegisterBatch(in)
}

func (h *RPCHandlers) processBatch(params []json.RawMessage) (interface{}, error) {
	var in txfactory.ProcessingInput
	if err := decodeParams(params, 1, &in); err != nil {
		return nil, err
	}
	return h.Ledger.ProcessBatch(in)
}

func (h *RPCHandlers) formulateProduct(params []json.RawMessage) (interface{}, error) {
	var in txfactory.FormulationInput
	if err := decodeParams(params, 1, &in); err != nil {
		return nil, err
	}
	return h.Ledger.FormulateProduct(in)
}

// ---------------------------------------------------------------
// ITEMS
// ---------------------------------------------------------------
func idParam(params []json.RawMessage) (string, error) {
	var id string
	if err := decodeParams(params, 1, &id); err != nil {
		return "", err
	}
	if id = strings.TrimSpace(id); id == "" {
		return "", errInvalidParams("empty id")
	}
	return id, nil
}

func (h *RPCHandlers) getItem(params []json.RawMessage) (interface{}, error) {
	id, err := idParam(params)
	if err != nil {
		return nil, err
	}
	return h.Ledger.Item(id)
}

func (h *RPCHandlers) listBatches(params []json.RawMessage) (interface{}, error) {
	return h.Ledger.Batches(), nil
}

func (h *RPCHandlers) listProducts(params []json.RawMessage) (interface{}, error) {
	return h.Ledger.Products(), nil
}

func (h *RPCHandlers) trace(params []json.RawMessage) (interface{}, error) {
	id, err := idParam(params)
	if err != nil {
		return nil, err
	}
	return h.Ledger.Trace(id)
}

func (h *RPCHandlers) label(params []json.RawMessage) (interface{}, error) {
	id, err := idParam(params)
	if err != nil {
		return nil, err
	}
	return label.Label(h.Ledger, id)
}

// scan takes the QR text as a string param.
func (h *RPCHandlers) scan(params []json.RawMessage) (interface{}, error) {
	var payload string
	if err := decodeParams(params, 1, &payload); err != nil {
		return nil, err
	}
	return label.Scan(h.Ledger, []byte(payload))
}

// ---------------------------------------------------------------
// CHAIN
// ---------------------------------------------------------------
func (h *RPCHandlers) blockCount(params []json.RawMessage) (interface{}, error) {
	return hexutil.Uint64(h.Ledger.BlockCount()), nil
}

func (h *RPCHandlers) getBlock(params []json.RawMessage) (interface{}, error) {
	id, err := idParam(params)
	if err != nil {
		return nil, err
	}
	b, n, err := h.Ledger.Block(id)
	if err != nil {
		return nil, err
	}
	return BlockResult{Block: b, Number: hexutil.Uint64(n)}, nil
}

// getBlockByNumber accepts a hex quantity or "latest".
func (h *RPCHandlers) getBlockByNumber(params []json.RawMessage) (interface{}, error) {
	var raw string
	if err := decodeParams(params, 1, &raw); err != nil {
		return nil, err
	}

	var n uint64
	if raw == "latest" {
		n = uint64(h.Ledger.BlockCount() - 1)
	} else {
		v, err := hexutil.DecodeUint64(raw)
		if err != nil {
			return nil, errInvalidParams("block number: %v", err)
		}
		n = v
	}

	b, err := h.Ledger.BlockByNumber(n)
	if err != nil {
		return nil, err
	}
	return BlockResult{Block: b, Number: hexutil.Uint64(n)}, nil
}

func (h *RPCHandlers) latestBlocks(params []json.RawMessage) (interface{}, error) {
	n := 10
	if err := decodeParams(params, 0, &n); err != nil {
		return nil, err
	}
	if n <= 0 || n > 100 {
		return nil, errInvalidParams("count must be between 1 and 100")
	}
	return h.Ledger.Latest(n), nil
}

func (h *RPCHandlers) verifyChain(params []json.RawMessage) (interface{}, error) {
	res := VerifyResult{Valid: true, Blocks: h.Ledger.BlockCount()}
	if err := h.Ledger.Verify(); err != nil {
		res.Valid = false
		res.Error = err.Error()
		var v *blockchain.IntegrityViolation
		if errors.As(err, &v) {
			res.Index = &v.Index
			res.BlockID = v.BlockID
		}
	}
	return res, nil
}

func (h *RPCHandlers) rebuild(params []json.RawMessage) (interface{}, error) {
	if err := h.Ledger.Rebuild(); err != nil {
		return nil, err
	}
	return map[string]int{
		"batches":  len(h.Ledger.Batches()),
		"products": len(h.Ledger.Products()),
	}, nil
}
