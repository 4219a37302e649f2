package rpc

import (
	"bytes"
	"encoding/json"
)

type RPCHandler func(params []json.RawMessage) (interface{}, error)

// Dispatch runs one method call. Params must be absent, null or a
// positional array.
func (s *Server) Dispatch(method string, raw json.RawMessage) (interface{}, *RPCError) {
	h, ok := s.methods[method]
	if !ok {
		return nil, errMethodNotFound(method)
	}

	var params []json.RawMessage
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &params); err != nil {
			return nil, errInvalidParams("expected a positional array")
		}
	}

	result, err := h(params)
	if err != nil {
		return nil, toRPCError(err)
	}
	return result, nil
}

// decodeParams fills targets from positional params. The first required
// targets must be present; the rest are optional.
func decodeParams(params []json.RawMessage, required int, targets ...interface{}) error {
	if len(params) < required {
		return errInvalidParams("want at least %d params, got %d", required, len(params))
	}
	if len(params) > len(targets) {
		return errInvalidParams("want at most %d params, got %d", len(targets), len(params))
	}
	for i, p := range params {
		if err := json.Unmarshal(p, targets[i]); err != nil {
			return errInvalidParams("param %d: %v", i, err)
		}
	}
	return nil
}
