package rpc

import (
	"encoding/json"

	"github.com/DOIDFoundation/validator-rpc/events"
	"github.com/DOIDFoundation/validator-rpc/rpcclient"
	"github.com/DOIDFoundation/validator-rpc/types"
)

// GetHealth asks whether the node is in sync with the cluster. An unhealthy
// node answers with rpcclient.ErrCodeNodeUnhealthy.
type GetHealth struct {
	rpcclient.Envelope
	status string
}

func (r *GetHealth) Method() string { return "getHealth" }

func (r *GetHealth) Params() (interface{}, error) { return nil, nil }

func (r *GetHealth) Response(reply *rpcclient.Reply) {
	r.status = ""
	if reply.Error != nil {
		return
	}
	if err := reply.Decode(&r.status); err != nil {
		r.Fail(err)
	}
}

// Healthy reports whether the node answered "ok".
func (r *GetHealth) Healthy() bool { return r.status == "ok" }

// GetAccountInfo fetches the state of one account.
type GetAccountInfo struct {
	rpcclient.Envelope
	Account    string
	Commitment types.Commitment
	// Feed receives the account state after every successful reply, if set.
	Feed *events.FeedOf[types.AccountInfo]

	info  types.AccountInfo
	found bool
}

func (r *GetAccountInfo) Method() string { return "getAccountInfo" }

func (r *GetAccountInfo) Params() (interface{}, error) {
	if r.Account == "" {
		return nil, ErrMissingAccount
	}
	return []interface{}{r.Account, config{Encoding: encodingBase64, Commitment: r.Commitment}}, nil
}

func (r *GetAccountInfo) Response(reply *rpcclient.Reply) {
	r.info, r.found = types.AccountInfo{}, false
	if reply.Error != nil {
		return
	}
	var res withContext
	if err := reply.Decode(&res); err != nil {
		r.Fail(err)
		return
	}
	info, found, err := decodeAccount(res.Value, r.Account, res.Context.Slot)
	if err != nil {
		r.Fail(err)
		return
	}
	r.info, r.found = info, found
	if found && r.Feed != nil {
		r.Feed.Send(info)
	}
}

// Info returns the account state of the last reply.
func (r *GetAccountInfo) Info() types.AccountInfo { return r.info }

// Found reports whether the account exists.
func (r *GetAccountInfo) Found() bool { return r.found }

// GetRecentBlockhash fetches a recent block hash and its fee schedule.
type GetRecentBlockhash struct {
	rpcclient.Envelope
	Commitment types.Commitment

	hash types.Blockhash
}

func (r *GetRecentBlockhash) Method() string { return "getRecentBlockhash" }

func (r *GetRecentBlockhash) Params() (interface{}, error) {
	if r.Commitment == types.CommitmentDefault {
		return nil, nil
	}
	return []interface{}{config{Commitment: r.Commitment}}, nil
}

func (r *GetRecentBlockhash) Response(reply *rpcclient.Reply) {
	r.hash = types.Blockhash{}
	if reply.Error != nil {
		return
	}
	var res withContext
	if err := reply.Decode(&res); err != nil {
		r.Fail(err)
		return
	}
	var value struct {
		Blockhash     string `json:"blockhash"`
		FeeCalculator struct {
			LamportsPerSignature uint64 `json:"lamportsPerSignature"`
		} `json:"feeCalculator"`
	}
	if err := json.Unmarshal(res.Value, &value); err != nil {
		r.Fail(err)
		return
	}
	r.hash = types.Blockhash{
		Slot:                 res.Context.Slot,
		Blockhash:            value.Blockhash,
		LamportsPerSignature: value.FeeCalculator.LamportsPerSignature,
	}
}

func (r *GetRecentBlockhash) Blockhash() types.Blockhash { return r.hash }

// GetSlot fetches the slot the node has reached.
type GetSlot struct {
	rpcclient.Envelope
	Commitment types.Commitment

	slot uint64
}

func (r *GetSlot) Method() string { return "getSlot" }

func (r *GetSlot) Params() (interface{}, error) {
	if r.Commitment == types.CommitmentDefault {
		return nil, nil
	}
	return []interface{}{config{Commitment: r.Commitment}}, nil
}

func (r *GetSlot) Response(reply *rpcclient.Reply) {
	r.slot = 0
	if reply.Error != nil {
		return
	}
	if err := reply.Decode(&r.slot); err != nil {
		r.Fail(err)
	}
}

func (r *GetSlot) Slot() uint64 { return r.slot }

// SendTransaction submits a signed transaction. Signing happens elsewhere,
// Transaction holds the base64 encoded wire format.
type SendTransaction struct {
	rpcclient.Envelope
	Transaction   string
	SkipPreflight bool
	Commitment    types.Commitment

	signature string
	logs      []string
}

type sendTxConfig struct {
	Encoding            string           `json:"encoding"`
	SkipPreflight       bool             `json:"skipPreflight,omitempty"`
	PreflightCommitment types.Commitment `json:"preflightCommitment,omitempty"`
}

func (r *SendTransaction) Method() string { return "sendTransaction" }

func (r *SendTransaction) Params() (interface{}, error) {
	if r.Transaction == "" {
		return nil, ErrMissingTransaction
	}
	return []interface{}{r.Transaction, sendTxConfig{
		Encoding:            encodingBase64,
		SkipPreflight:       r.SkipPreflight,
		PreflightCommitment: r.Commitment,
	}}, nil
}

func (r *SendTransaction) Response(reply *rpcclient.Reply) {
	r.signature, r.logs = "", nil
	if reply.Error != nil {
		// Preflight failures carry the simulation logs.
		if len(reply.Error.Data) > 0 {
			var data struct {
				Logs []string `json:"logs"`
			}
			if json.Unmarshal(reply.Error.Data, &data) == nil {
				r.logs = data.Logs
			}
		}
		return
	}
	if err := reply.Decode(&r.signature); err != nil {
		r.Fail(err)
	}
}

// Signature returns the transaction signature of a successful reply.
func (r *SendTransaction) Signature() string { return r.signature }

// Logs returns the simulation logs of a failed preflight.
func (r *SendTransaction) Logs() []string { return r.logs }
