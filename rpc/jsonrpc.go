package rpc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

const (
	version     = "2.0"
	maxBodySize = 1 << 20
)

type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

var nullID = json.RawMessage("null")

// HandleJSONRPC serves single and batched JSON-RPC 2.0 calls over POST.
func (s *Server) HandleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body = bytes.TrimSpace(body)

	w.Header().Set("Content-Type", "application/json")

	if len(body) > 0 && body[0] == '[' {
		var reqs []RPCRequest
		if err := json.Unmarshal(body, &reqs); err != nil {
			json.NewEncoder(w).Encode(errorResponse(nullID, errParse(err)))
			return
		}
		if len(reqs) == 0 {
			json.NewEncoder(w).Encode(errorResponse(nullID, errInvalidRequest("empty batch")))
			return
		}
		out := make([]RPCResponse, 0, len(reqs))
		for _, req := range reqs {
			out = append(out, s.call(req))
		}
		json.NewEncoder(w).Encode(out)
		return
	}

	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		json.NewEncoder(w).Encode(errorResponse(nullID, errParse(err)))
		return
	}
	json.NewEncoder(w).Encode(s.call(req))
}

func (s *Server) call(req RPCRequest) RPCResponse {
	id := req.ID
	if len(id) == 0 {
		id = nullID
	}
	if req.JSONRPC != version || req.Method == "" {
		return errorResponse(id, errInvalidRequest("expected jsonrpc 2.0 with a method"))
	}

	result, err := s.Dispatch(req.Method, req.Params)
	if err != nil {
		return errorResponse(id, err)
	}
	return RPCResponse{JSONRPC: version, Result: result, ID: id}
}

func errorResponse(id json.RawMessage, err *RPCError) RPCResponse {
	return RPCResponse{JSONRPC: version, Error: err, ID: id}
}
