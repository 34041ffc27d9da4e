/*
Package rpc contains the calls a client makes to a validator node. Each call
type embeds [github.com/DOIDFoundation/validator-rpc/rpcclient.Envelope] or,
when it creates a subscription,
[github.com/DOIDFoundation/validator-rpc/rpcclient.Subscription], and is sent
with [github.com/DOIDFoundation/validator-rpc/rpcclient.Client.Send].

# Example

request:

	{"jsonrpc":"2.0","id":1,"method":"getAccountInfo","params":["vines1vzrYbzLMRdu58ou5XTby4qAqVRLmqo36NKPTg",{"encoding":"base64"}]}

response:

	{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":{"data":["","base64"],"executable":false,"lamports":1000000000,"owner":"11111111111111111111111111111111","rentEpoch":2}}}

# Subscriptions

Subscriptions only work over the websocket. The subscribe reply carries the
subscription id assigned by the node:

	{"jsonrpc":"2.0","method":"slotSubscribe","id":7}
	{"jsonrpc":"2.0","id":7,"result":42}

and every notification carries that id instead of the request id:

	{"jsonrpc":"2.0","method":"slotNotification","params":{"subscription":42,"result":{"parent":75,"root":44,"slot":76}}}

# Errors

A rejected call keeps the code sent by the node, see
[github.com/DOIDFoundation/validator-rpc/rpcclient.Envelope.ErrCode]. Every
call type also reports decoding failures through Err.

# Call List

HTTP
  - getHealth [GetHealth]
  - getAccountInfo [GetAccountInfo]
  - getRecentBlockhash [GetRecentBlockhash]
  - getSlot [GetSlot]
  - sendTransaction [SendTransaction]

websocket
  - signatureSubscribe [SignatureSubscribe]
  - accountSubscribe [AccountSubscribe]
  - slotSubscribe [SlotSubscribe]
*/
package rpc
