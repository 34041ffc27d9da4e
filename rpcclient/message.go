package rpcclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const jsonrpcVersion = "2.0"

var null = []byte("null")

// outbound is a JSON-RPC request object.
type outbound struct {
	Version string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// inbound is any message received from the node: a reply, an error reply or
// a subscription notification.
type inbound struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
	Params *notifyParams   `json:"params,omitempty"`
}

type notifyParams struct {
	Subscription json.RawMessage `json:"subscription"`
	Result       json.RawMessage `json:"result,omitempty"`
}

func (msg *inbound) hasID() bool {
	return len(msg.ID) > 0
}

func (msg *inbound) isNotification() bool {
	return !msg.hasID() && msg.Params != nil && len(msg.Params.Subscription) > 0
}

// Reply is a decoded reply to a request, handed to Request.Response.
type Reply struct {
	ID     uint64
	Result json.RawMessage
	Error  *RPCError
}

// Decode unmarshals the result of a successful reply into v.
func (r *Reply) Decode(v interface{}) error {
	if r.Error != nil {
		return r.Error
	}
	return json.Unmarshal(r.Result, v)
}

// Notification is a decoded subscription notification, handed to
// Notifier.Notify.
type Notification struct {
	Method       string
	Subscription uint64
	Result       json.RawMessage
}

// Decode unmarshals the notification result into v.
func (n *Notification) Decode(v interface{}) error {
	return json.Unmarshal(n.Result, v)
}

func encodeRequest(id uint64, req Request) (json.RawMessage, error) {
	params, err := req.Params()
	if err != nil {
		return nil, fmt.Errorf("build %s params: %w", req.Method(), err)
	}
	msg := outbound{Version: jsonrpcVersion, ID: id, Method: req.Method()}
	if params != nil {
		if msg.Params, err = json.Marshal(params); err != nil {
			return nil, fmt.Errorf("encode %s params: %w", req.Method(), err)
		}
	}
	return json.Marshal(&msg)
}

// splitPayload returns the messages contained in payload, one for a single
// object and one per element for a batch.
func splitPayload(payload []byte) ([]json.RawMessage, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformedPayload)
	}
	if payload[0] != '[' {
		if !json.Valid(payload) {
			return nil, fmt.Errorf("%w: invalid json", ErrMalformedPayload)
		}
		return []json.RawMessage{payload}, nil
	}
	var batch []json.RawMessage
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return batch, nil
}

// decodeRequestID parses a reply id. Only unsigned integers can have been
// assigned by this client.
func decodeRequestID(raw json.RawMessage) (uint64, bool) {
	if bytes.Equal(raw, null) {
		return 0, false
	}
	var id uint64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, false
	}
	return id, true
}

var errSubscriptionID = errors.New("subscription id is neither an unsigned integer nor a hex quantity")

// decodeSubscriptionID parses a subscription id as returned by a subscribe
// reply or carried by a notification. Numbers and 0x-prefixed hex quantities
// are accepted.
func decodeSubscriptionID(raw json.RawMessage) (uint64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, null) {
		return 0, errSubscriptionID
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, errSubscriptionID
		}
		if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
			return 0, errSubscriptionID
		}
		id, err := hexutil.DecodeUint64(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", errSubscriptionID, err)
		}
		return id, nil
	}
	var id uint64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, errSubscriptionID
	}
	return id, nil
}
