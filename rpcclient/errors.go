package rpcclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors reported to the caller of a dispatcher operation. They never end up
// in an envelope's error code.
var (
	ErrNilRequest           = errors.New("nil request")
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrMalformedPayload     = errors.New("malformed payload")
	ErrUnknownMessage       = errors.New("message is neither reply nor notification")
	ErrInFlight             = errors.New("request already in flight")
)

// Error codes returned by the validator node.
const (
	ErrCodeBlockCleanedUp         = -32001
	ErrCodeSendTxPreflightFailure = -32002
	ErrCodeTxSignatureVerify      = -32003
	ErrCodeBlockNotAvailable      = -32004
	ErrCodeNodeUnhealthy          = -32005
	ErrCodeTxPrecompileVerify     = -32006
	ErrCodeSlotSkipped            = -32007
	ErrCodeNoSnapshot             = -32008
	ErrCodeLongTermSlotSkipped    = -32009
)

// Standard JSON-RPC 2.0 error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
)

// Local error codes, -1 down to -99. A node never sends these, they are set
// by the client when it retires an envelope on its own.
const (
	ErrCodeConnectionLost        = -1
	ErrCodeInvalidSubscriptionID = -2

	minLocalErrCode = -99
)

var errCodeNames = map[int]string{
	ErrCodeBlockCleanedUp:         "block cleaned up",
	ErrCodeSendTxPreflightFailure: "send transaction preflight failure",
	ErrCodeTxSignatureVerify:      "transaction signature verification failure",
	ErrCodeBlockNotAvailable:      "block not available",
	ErrCodeNodeUnhealthy:          "node unhealthy",
	ErrCodeTxPrecompileVerify:     "transaction precompile verification failure",
	ErrCodeSlotSkipped:            "slot skipped",
	ErrCodeNoSnapshot:             "no snapshot",
	ErrCodeLongTermSlotSkipped:    "long-term storage slot skipped",

	ErrCodeParse:          "parse error",
	ErrCodeInvalidRequest: "invalid request",
	ErrCodeMethodNotFound: "method not found",
	ErrCodeInvalidParams:  "invalid params",
	ErrCodeInternal:       "internal error",

	ErrCodeConnectionLost:        "connection lost",
	ErrCodeInvalidSubscriptionID: "invalid subscription id",
}

// ErrorCodeName returns a human readable name for code, or "unknown".
func ErrorCodeName(code int) string {
	if name, ok := errCodeNames[code]; ok {
		return name
	}
	return "unknown"
}

// IsLocalErrCode reports whether code was assigned by the client rather than
// by the node.
func IsLocalErrCode(code int) bool {
	return code < 0 && code >= minLocalErrCode
}

// RPCError is the error object of a JSON-RPC reply.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d (%s): %s", e.Code, ErrorCodeName(e.Code), e.Message)
}
