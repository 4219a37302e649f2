package explorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Siasom1/herbchain/core/blockchain"
	"github.com/Siasom1/herbchain/core/state"
	"github.com/Siasom1/herbchain/core/txfactory"
	"github.com/Siasom1/herbchain/modules/label"
	"github.com/Siasom1/herbchain/modules/traceability"
)

const (
	defaultLatest = 10
	maxLatest     = 100
	maxScanBody   = 4 << 10
)

// Utility response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, txfactory.ErrValidation), errors.Is(err, label.ErrUnrecognized):
		return http.StatusBadRequest
	case errors.Is(err, traceability.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrReferentialIntegrity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), map[string]string{"error": err.Error()})
}

// ------------------------------------------------------------
// /explorer/latest-blocks?n=10
// ------------------------------------------------------------
func (api *ExplorerAPI) handleLatestBlocks(w http.ResponseWriter, r *http.Request) {
	n := defaultLatest
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid n"})
			return
		}
		n = min(v, maxLatest)
	}
	writeJSON(w, http.StatusOK, api.Ledger.Latest(n))
}

// ------------------------------------------------------------
// /explorer/block/{id}
// ------------------------------------------------------------
func (api *ExplorerAPI) handleBlock(w http.ResponseWriter, r *http.Request) {
	b, n, err := api.Ledger.Block(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"block":  b,
		"number": n,
		"detail": label.Describe(b),
	})
}

// ------------------------------------------------------------
// /explorer/batches, /explorer/products
// ------------------------------------------------------------
func (api *ExplorerAPI) handleBatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Ledger.Batches())
}

func (api *ExplorerAPI) handleProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Ledger.Products())
}

// ------------------------------------------------------------
// /explorer/item/{id}, /explorer/trace/{id}, /explorer/label/{id}
// ------------------------------------------------------------
func (api *ExplorerAPI) handleItem(w http.ResponseWriter, r *http.Request) {
	item, err := api.Ledger.Item(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (api *ExplorerAPI) handleTrace(w http.ResponseWriter, r *http.Request) {
	trace, err := api.Ledger.Trace(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, label.DescribeAll(trace))
}

func (api *ExplorerAPI) handleLabel(w http.ResponseWriter, r *http.Request) {
	l, err := label.Label(api.Ledger, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ------------------------------------------------------------
// POST /explorer/scan  (body: QR payload)
// ------------------------------------------------------------
func (api *ExplorerAPI) handleScan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxScanBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	l, err := label.ScanLabel(api.Ledger, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ------------------------------------------------------------
// /explorer/verify
// ------------------------------------------------------------
func (api *ExplorerAPI) handleVerify(w http.ResponseWriter, r *http.Request) {
	out := map[string]interface{}{
		"valid":  true,
		"blocks": api.Ledger.BlockCount(),
	}
	if err := api.Ledger.Verify(); err != nil {
		out["valid"] = false
		out["error"] = err.Error()
		var v *blockchain.IntegrityViolation
		if errors.As(err, &v) {
			out["index"] = v.Index
			out["blockId"] = v.BlockID
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// ------------------------------------------------------------
// /explorer/stream/blocks, /explorer/stream/items  (SSE)
// ------------------------------------------------------------
func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

func (api *ExplorerAPI) handleStreamBlocks(w http.ResponseWriter, r *http.Request) {
	bus := api.Ledger.Events()
	sub := bus.SubscribeBlocks()
	defer bus.Unsubscribe(sub.ID)

	flusher, ok := startStream(w)
	if !ok {
		return
	}
	ctx := r.Context()

	for {
		select {
		case block, open := <-sub.C:
			if !open {
				return
			}
			data, _ := json.Marshal(block)
			fmt.Fprintf(w, "event: block\ndata: %s\n\n", data)
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (api *ExplorerAPI) handleStreamItems(w http.ResponseWriter, r *http.Request) {
	bus := api.Ledger.Events()
	sub := bus.SubscribeItems()
	defer bus.Unsubscribe(sub.ID)

	flusher, ok := startStream(w)
	if !ok {
		return
	}
	ctx := r.Context()

	for {
		select {
		case ev, open := <-sub.C:
			if !open {
				return
			}
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "event: item\ndata: %s\n\n", data)
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
