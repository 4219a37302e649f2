package rpc

import (
	"errors"
	"fmt"

	"github.com/Siasom1/herbchain/core/blockchain"
	"github.com/Siasom1/herbchain/core/state"
	"github.com/Siasom1/herbchain/core/txfactory"
	"github.com/Siasom1/herbchain/modules/label"
	"github.com/Siasom1/herbchain/modules/traceability"
)

// JSON-RPC error codes. The -320xx range is ours.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603

	CodeUnknownBatch = -32000
	CodeNotFound     = -32004
	CodeIntegrity    = -32010
)

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

func errParse(err error) *RPCError {
	return &RPCError{Code: CodeParseError, Message: "parse error: " + err.Error()}
}

func errInvalidRequest(msg string) *RPCError {
	return &RPCError{Code: CodeInvalidRequest, Message: "invalid request: " + msg}
}

func errMethodNotFound(method string) *RPCError {
	return &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %s not found", method)}
}

func errInvalidParams(format string, args ...interface{}) *RPCError {
	return &RPCError{Code: CodeInvalidParams, Message: "invalid params: " + fmt.Sprintf(format, args...)}
}

// toRPCError maps a ledger error onto a JSON-RPC error object.
func toRPCError(err error) *RPCError {
	var rerr *RPCError
	if errors.As(err, &rerr) {
		return rerr
	}

	out := &RPCError{Code: CodeInternal, Message: err.Error()}
	var ve *txfactory.ValidationError
	var ub *traceability.UnknownBatchError
	switch {
	case errors.As(err, &ve):
		out.Code = CodeInvalidParams
		out.Data = ve.Fields
	case errors.Is(err, label.ErrUnrecognized):
		out.Code = CodeInvalidParams
	case errors.As(err, &ub):
		out.Code = CodeUnknownBatch
		out.Data = map[string]string{"batchId": ub.BatchID}
	case errors.Is(err, state.ErrReferentialIntegrity):
		out.Code = CodeUnknownBatch
	case errors.Is(err, traceability.ErrNotFound):
		out.Code = CodeNotFound
	case errors.Is(err, blockchain.ErrIntegrity):
		out.Code = CodeIntegrity
	}
	return out
}
