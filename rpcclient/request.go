package rpcclient

import (
	"time"
)

// Request is implemented by every RPC call type. Implementations embed
// Envelope (plain calls) or Subscription (calls that receive notifications).
type Request interface {
	// Base returns the bookkeeping embedded in the request.
	Base() *Envelope
	// IsHTTP selects the transport. It is fixed per request type.
	IsHTTP() bool
	Method() string
	// Params returns the value marshalled into the "params" member, or nil
	// to omit it.
	Params() (interface{}, error)
	// Response decodes a reply. It is called for error replies as well,
	// after the error code has been recorded.
	Response(reply *Reply)
}

// Notifier is a Request that receives notifications once subscribed.
type Notifier interface {
	Request
	// Notify decodes a notification and reports whether the subscription
	// is finished.
	Notify(n *Notification) (done bool)
	// UnsubscribeMethod names the call that ends the subscription on the
	// node.
	UnsubscribeMethod() string
	// SubscriptionID returns the id assigned by the node.
	SubscriptionID() uint64

	subscription() *Subscription
}

// Envelope carries the per-request state shared by all request types. It is
// owned by the caller and is only touched by the Client while registered.
type Envelope struct {
	client   *Client
	id       uint64
	state    State
	errCode  int
	errMsg   string
	sentTime time.Time
	recvTime time.Time
	notified uint64
	err      error

	// callback is a borrowed reference to the caller's observer, valid
	// until Detach.
	callback func()
}

// Base implements Request.
func (e *Envelope) Base() *Envelope { return e }

// IsHTTP implements Request. Plain calls default to HTTP.
func (e *Envelope) IsHTTP() bool { return true }

// Client returns the client the envelope was last sent through.
func (e *Envelope) Client() *Client { return e.client }

// ID returns the request id, zero if the envelope was never sent. The value
// is stale once the envelope is retired.
func (e *Envelope) ID() uint64 { return e.id }

func (e *Envelope) State() State { return e.state }

// ErrCode returns the error code of the last reply, zero on success.
func (e *Envelope) ErrCode() int { return e.errCode }

// ErrMessage returns the error message of the last reply.
func (e *Envelope) ErrMessage() string { return e.errMsg }

// HasReply reports whether a reply has been received since the last send.
func (e *Envelope) HasReply() bool { return !e.recvTime.IsZero() }

func (e *Envelope) SentTime() time.Time { return e.sentTime }

func (e *Envelope) RecvTime() time.Time { return e.recvTime }

// Latency returns the round trip time of the last reply.
func (e *Envelope) Latency() time.Duration {
	if !e.HasReply() {
		return 0
	}
	return e.recvTime.Sub(e.sentTime)
}

// Notifications returns how many notifications were delivered since the
// envelope was last sent.
func (e *Envelope) Notifications() uint64 { return e.notified }

// Err returns the error of the last reply: an *RPCError when the node
// rejected the request, or the decoding error recorded with Fail.
func (e *Envelope) Err() error {
	if e.errCode != 0 {
		return &RPCError{Code: e.errCode, Message: e.errMsg}
	}
	return e.err
}

// Fail records a local decoding failure, nil clears it. It does not touch
// the error code.
func (e *Envelope) Fail(err error) {
	e.err = err
}

// Detach drops the callback. The envelope never calls back afterwards.
func (e *Envelope) Detach() {
	e.callback = nil
}

func (e *Envelope) setCallback(fn func()) {
	e.callback = fn
}

func (e *Envelope) invoke() {
	if cb := e.callback; cb != nil {
		cb()
	}
}

func (e *Envelope) reset(c *Client, id uint64) {
	e.client = c
	e.id = id
	e.state = StateSent
	e.errCode = 0
	e.errMsg = ""
	e.err = nil
	e.recvTime = time.Time{}
	e.notified = 0
}

func (e *Envelope) setReplyError(code int, msg string) {
	e.errCode = code
	e.errMsg = msg
	e.state = StateRepliedError
}

// Subscription is embedded by requests that create a subscription, and is
// the only way to implement Notifier. Subscriptions are only available on the
// WebSocket transport.
type Subscription struct {
	Envelope
	subID uint64
}

// IsHTTP implements Request.
func (s *Subscription) IsHTTP() bool { return false }

// SubscriptionID returns the id assigned by the node, zero before the
// subscribe reply.
func (s *Subscription) SubscriptionID() uint64 { return s.subID }

func (s *Subscription) subscription() *Subscription { return s }

// Observe sets fn as the callback of req. It runs after every reply and
// every notification delivered to req, on the goroutine that called into the
// Client. Passing nil detaches.
func Observe[T Request](req T, fn func(T)) {
	if fn == nil {
		req.Base().Detach()
		return
	}
	req.Base().setCallback(func() { fn(req) })
}
