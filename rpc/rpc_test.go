package rpc_test

import (
	"encoding/json"
	"testing"

	"github.com/DOIDFoundation/validator-rpc/events"
	"github.com/DOIDFoundation/validator-rpc/rpc"
	"github.com/DOIDFoundation/validator-rpc/rpcclient"
	"github.com/DOIDFoundation/validator-rpc/types"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	payloads []json.RawMessage
}

func (r *recorder) Send(payload []byte) error {
	r.payloads = append(r.payloads, append(json.RawMessage(nil), payload...))
	return nil
}

func (r *recorder) last(t *testing.T) (id uint64, method string, params string) {
	require.NotEmpty(t, r.payloads)
	var msg struct {
		ID     uint64          `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	require.NoError(t, json.Unmarshal(r.payloads[len(r.payloads)-1], &msg))
	return msg.ID, msg.Method, string(msg.Params)
}

func newClient() (*rpcclient.Client, *recorder, *recorder) {
	http, ws := &recorder{}, &recorder{}
	c := rpcclient.NewClient(log.NewNopLogger(), rpcclient.WithHTTP(http), rpcclient.WithWS(ws))
	return c, http, ws
}

func reply(t *testing.T, c *rpcclient.Client, id uint64, body string) {
	payload := `{"jsonrpc":"2.0","id":` + jsonString(id) + `,` + body + `}`
	require.NoError(t, c.ParseResponse([]byte(payload)))
}

func notify(t *testing.T, c *rpcclient.Client, method string, subID uint64, result string) {
	payload := `{"jsonrpc":"2.0","method":"` + method + `","params":{"subscription":` + jsonString(subID) + `,"result":` + result + `}}`
	require.NoError(t, c.ParseResponse([]byte(payload)))
}

func jsonString(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestGetHealth(t *testing.T) {
	c, http, _ := newClient()
	req := &rpc.GetHealth{}
	require.NoError(t, c.Send(req))
	id, method, params := http.last(t)
	assert.Equal(t, "getHealth", method)
	assert.Empty(t, params)

	reply(t, c, id, `"result":"ok"`)
	assert.True(t, req.Healthy())
	assert.NoError(t, req.Err())

	require.NoError(t, c.Send(req))
	id, _, _ = http.last(t)
	reply(t, c, id, `"error":{"code":-32005,"message":"Node is behind by 42 slots","data":{"numSlotsBehind":42}}`)
	assert.False(t, req.Healthy())
	assert.Equal(t, rpcclient.ErrCodeNodeUnhealthy, req.ErrCode())
	assert.Error(t, req.Err())
}

func TestGetAccountInfo(t *testing.T) {
	c, http, _ := newClient()
	feed := &events.FeedOf[types.AccountInfo]{}
	req := &rpc.GetAccountInfo{Account: "vines1vzrYbzLMRdu58ou5XTby4qAqVRLmqo36NKPTg", Commitment: types.CommitmentFinalized, Feed: feed}
	require.NoError(t, c.Send(req))
	id, method, params := http.last(t)
	assert.Equal(t, "getAccountInfo", method)
	assert.JSONEq(t, `["vines1vzrYbzLMRdu58ou5XTby4qAqVRLmqo36NKPTg",{"encoding":"base64","commitment":"finalized"}]`, params)

	reply(t, c, id, `"result":{"context":{"slot":9},"value":{"data":["aGVsbG8=","base64"],"executable":true,"lamports":1000,"owner":"11111111111111111111111111111111","rentEpoch":2}}`)
	require.NoError(t, req.Err())
	assert.True(t, req.Found())
	assert.Equal(t, types.AccountInfo{
		Account:    req.Account,
		Slot:       9,
		Lamports:   1000,
		Owner:      "11111111111111111111111111111111",
		Data:       []byte("hello"),
		Executable: true,
		RentEpoch:  2,
	}, req.Info())

	require.NoError(t, c.Send(req))
	id, _, _ = http.last(t)
	reply(t, c, id, `"result":{"context":{"slot":10},"value":null}`)
	assert.NoError(t, req.Err())
	assert.False(t, req.Found())

	require.NoError(t, c.Send(req))
	id, _, _ = http.last(t)
	reply(t, c, id, `"result":{"context":{"slot":10},"value":{"data":["x","jsonParsed"]}}`)
	assert.ErrorIs(t, req.Err(), rpc.ErrUnexpectedEncoding)
	assert.Zero(t, req.ErrCode())

	assert.ErrorIs(t, c.Send(&rpc.GetAccountInfo{}), rpc.ErrMissingAccount)
}

func TestGetRecentBlockhash(t *testing.T) {
	c, http, _ := newClient()
	req := &rpc.GetRecentBlockhash{}
	require.NoError(t, c.Send(req))
	id, method, params := http.last(t)
	assert.Equal(t, "getRecentBlockhash", method)
	assert.Empty(t, params)
	reply(t, c, id, `"result":{"context":{"slot":1},"value":{"blockhash":"CSymwgTNX1j3E4qhKfJAUE41nBWEwXufoYryPbkde5RR","feeCalculator":{"lamportsPerSignature":5000}}}`)
	assert.Equal(t, types.Blockhash{
		Slot:                 1,
		Blockhash:            "CSymwgTNX1j3E4qhKfJAUE41nBWEwXufoYryPbkde5RR",
		LamportsPerSignature: 5000,
	}, req.Blockhash())

	req.Commitment = types.CommitmentConfirmed
	require.NoError(t, c.Send(req))
	_, _, params = http.last(t)
	assert.JSONEq(t, `[{"commitment":"confirmed"}]`, params)
}

func TestGetSlot(t *testing.T) {
	c, http, _ := newClient()
	req := &rpc.GetSlot{}
	require.NoError(t, c.Send(req))
	id, _, _ := http.last(t)
	reply(t, c, id, `"result":1234`)
	assert.Equal(t, uint64(1234), req.Slot())

	require.NoError(t, c.Send(req))
	id, _, _ = http.last(t)
	reply(t, c, id, `"result":"soon"`)
	assert.Error(t, req.Err())
	assert.Zero(t, req.Slot())
}

func TestSendTransaction(t *testing.T) {
	c, http, _ := newClient()
	req := &rpc.SendTransaction{Transaction: "AQID", SkipPreflight: true}
	require.NoError(t, c.Send(req))
	id, method, params := http.last(t)
	assert.Equal(t, "sendTransaction", method)
	assert.JSONEq(t, `["AQID",{"encoding":"base64","skipPreflight":true}]`, params)
	reply(t, c, id, `"result":"2id3YC2jK9G5Wo2phDx4gJVAew8DcY5NAojnVuao8rkxwPYPe8cSwE5GzhEgJA2y8fVjDEo6iR6ykBvDxrTQrtpb"`)
	assert.Equal(t, "2id3YC2jK9G5Wo2phDx4gJVAew8DcY5NAojnVuao8rkxwPYPe8cSwE5GzhEgJA2y8fVjDEo6iR6ykBvDxrTQrtpb", req.Signature())

	req.SkipPreflight = false
	require.NoError(t, c.Send(req))
	id, _, _ = http.last(t)
	reply(t, c, id, `"error":{"code":-32002,"message":"Transaction simulation failed","data":{"err":"AccountNotFound","logs":["Program log: nope"]}}`)
	assert.Equal(t, rpcclient.ErrCodeSendTxPreflightFailure, req.ErrCode())
	assert.Empty(t, req.Signature())
	assert.Equal(t, []string{"Program log: nope"}, req.Logs())

	assert.ErrorIs(t, c.Send(&rpc.SendTransaction{}), rpc.ErrMissingTransaction)
}

func TestSignatureSubscribe(t *testing.T) {
	c, http, ws := newClient()
	req := &rpc.SignatureSubscribe{Signature: "sig", Commitment: types.CommitmentFinalized}
	done := 0
	rpcclient.Observe(req, func(r *rpc.SignatureSubscribe) {
		if r.Confirmed() {
			done++
		}
	})
	require.NoError(t, c.Send(req))
	assert.Empty(t, http.payloads)
	id, method, params := ws.last(t)
	assert.Equal(t, "signatureSubscribe", method)
	assert.JSONEq(t, `["sig",{"commitment":"finalized"}]`, params)

	reply(t, c, id, `"result":17`)
	assert.Equal(t, rpcclient.StateSubscribed, req.State())
	notify(t, c, "signatureNotification", 17, `{"context":{"slot":5207624},"value":{"err":{"InstructionError":[0,"Custom"]}}}`)
	assert.Equal(t, 1, done)
	assert.True(t, req.Confirmed())
	assert.Equal(t, uint64(5207624), req.Status().Slot)
	assert.JSONEq(t, `{"InstructionError":[0,"Custom"]}`, req.Status().Err)
	assert.Equal(t, rpcclient.StateUnsubscribed, req.State())
	assert.Zero(t, c.Subscriptions())
}

func TestAccountSubscribe(t *testing.T) {
	c, _, ws := newClient()
	cache, err := rpc.NewAccountCache(4)
	require.NoError(t, err)
	req := &rpc.AccountSubscribe{Account: "acct"}
	require.NoError(t, c.Send(req))
	id, method, params := ws.last(t)
	assert.Equal(t, "accountSubscribe", method)
	assert.JSONEq(t, `["acct",{"encoding":"base64"}]`, params)
	reply(t, c, id, `"result":3`)

	rpcclient.Observe(req, func(r *rpc.AccountSubscribe) { cache.Update(r.Info()) })
	notify(t, c, "accountNotification", 3, `{"context":{"slot":20},"value":{"data":["","base64"],"lamports":5,"owner":"o","rentEpoch":1}}`)
	notify(t, c, "accountNotification", 3, `{"context":{"slot":21},"value":{"data":["","base64"],"lamports":6,"owner":"o","rentEpoch":1}}`)
	info, ok := cache.Get("acct")
	require.True(t, ok)
	assert.Equal(t, uint64(6), info.Lamports)
	assert.Equal(t, rpcclient.StateSubscribed, req.State())
	assert.Equal(t, uint64(2), req.Notifications())

	notify(t, c, "accountNotification", 3, `{"context":{"slot":22},"value":null}`)
	assert.Error(t, req.Err())
	notify(t, c, "accountNotification", 3, `{"context":{"slot":23},"value":{"lamports":1}}`)
	assert.NoError(t, req.Err())

	require.NoError(t, c.Unsubscribe(req))
	_, method, params = ws.last(t)
	assert.Equal(t, "accountUnsubscribe", method)
	assert.JSONEq(t, `[3]`, params)
}

func TestSlotSubscribe(t *testing.T) {
	c, _, ws := newClient()
	req := &rpc.SlotSubscribe{}
	require.NoError(t, c.Send(req))
	id, method, _ := ws.last(t)
	assert.Equal(t, "slotSubscribe", method)
	reply(t, c, id, `"result":"0x1"`)
	notify(t, c, "slotNotification", 1, `{"parent":75,"root":44,"slot":76}`)
	assert.Equal(t, types.SlotInfo{Parent: 75, Root: 44, Slot: 76}, req.Slot())
}
