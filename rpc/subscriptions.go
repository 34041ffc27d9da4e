package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/DOIDFoundation/validator-rpc/events"
	"github.com/DOIDFoundation/validator-rpc/rpcclient"
	"github.com/DOIDFoundation/validator-rpc/types"
)

// SignatureSubscribe waits for a transaction to reach its commitment. The
// node ends the subscription after the single notification.
type SignatureSubscribe struct {
	rpcclient.Subscription
	Signature  string
	Commitment types.Commitment
	Feed       *events.FeedOf[types.SignatureStatus]

	status    types.SignatureStatus
	confirmed bool
}

func (r *SignatureSubscribe) Method() string { return "signatureSubscribe" }

func (r *SignatureSubscribe) UnsubscribeMethod() string { return "signatureUnsubscribe" }

func (r *SignatureSubscribe) Params() (interface{}, error) {
	if r.Signature == "" {
		return nil, ErrMissingSignature
	}
	if r.Commitment == types.CommitmentDefault {
		return []interface{}{r.Signature}, nil
	}
	return []interface{}{r.Signature, config{Commitment: r.Commitment}}, nil
}

func (r *SignatureSubscribe) Response(*rpcclient.Reply) {
	r.status, r.confirmed = types.SignatureStatus{}, false
}

func (r *SignatureSubscribe) Notify(n *rpcclient.Notification) bool {
	var res withContext
	if err := n.Decode(&res); err != nil {
		r.Fail(err)
		return true
	}
	var value struct {
		Err json.RawMessage `json:"err"`
	}
	if err := json.Unmarshal(res.Value, &value); err != nil {
		r.Fail(err)
		return true
	}
	r.status = types.SignatureStatus{Signature: r.Signature, Slot: res.Context.Slot}
	if len(value.Err) > 0 && string(value.Err) != "null" {
		r.status.Err = string(value.Err)
	}
	r.confirmed = true
	if r.Feed != nil {
		r.Feed.Send(r.status)
	}
	return true
}

// Status returns the transaction outcome once Confirmed.
func (r *SignatureSubscribe) Status() types.SignatureStatus { return r.status }

// Confirmed reports whether the notification arrived.
func (r *SignatureSubscribe) Confirmed() bool { return r.confirmed }

// AccountSubscribe streams the state of an account whenever it changes.
type AccountSubscribe struct {
	rpcclient.Subscription
	Account    string
	Commitment types.Commitment
	Feed       *events.FeedOf[types.AccountInfo]

	info types.AccountInfo
}

func (r *AccountSubscribe) Method() string { return "accountSubscribe" }

func (r *AccountSubscribe) UnsubscribeMethod() string { return "accountUnsubscribe" }

func (r *AccountSubscribe) Params() (interface{}, error) {
	if r.Account == "" {
		return nil, ErrMissingAccount
	}
	return []interface{}{r.Account, config{Encoding: encodingBase64, Commitment: r.Commitment}}, nil
}

func (r *AccountSubscribe) Response(*rpcclient.Reply) {}

func (r *AccountSubscribe) Notify(n *rpcclient.Notification) bool {
	r.Fail(nil)
	var res withContext
	if err := n.Decode(&res); err != nil {
		r.Fail(err)
		return false
	}
	info, found, err := decodeAccount(res.Value, r.Account, res.Context.Slot)
	if err != nil {
		r.Fail(err)
		return false
	}
	if !found {
		r.Fail(fmt.Errorf("account %s closed at slot %d", r.Account, res.Context.Slot))
	}
	r.info = info
	if r.Feed != nil {
		r.Feed.Send(info)
	}
	return false
}

// Info returns the account state of the last notification.
func (r *AccountSubscribe) Info() types.AccountInfo { return r.info }

// SlotSubscribe streams every slot processed by the node.
type SlotSubscribe struct {
	rpcclient.Subscription
	Feed *events.FeedOf[types.SlotInfo]

	slot types.SlotInfo
}

func (r *SlotSubscribe) Method() string { return "slotSubscribe" }

func (r *SlotSubscribe) UnsubscribeMethod() string { return "slotUnsubscribe" }

func (r *SlotSubscribe) Params() (interface{}, error) { return nil, nil }

func (r *SlotSubscribe) Response(*rpcclient.Reply) {}

func (r *SlotSubscribe) Notify(n *rpcclient.Notification) bool {
	r.Fail(nil)
	var slot types.SlotInfo
	if err := n.Decode(&slot); err != nil {
		r.Fail(err)
		return false
	}
	r.slot = slot
	if r.Feed != nil {
		r.Feed.Send(slot)
	}
	return false
}

// Slot returns the slot of the last notification.
func (r *SlotSubscribe) Slot() types.SlotInfo { return r.slot }
