package rpcclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cometbft/cometbft/libs/log"
)

// Sender writes a serialized request to a transport.
type Sender interface {
	Send(payload []byte) error
}

// Client correlates requests sent to a validator node with the replies and
// notifications coming back.
//
// A Client has no goroutines of its own and is not safe for concurrent use:
// every method, including ParseResponse, must be called from a single
// goroutine. Callbacks run on that goroutine and may call back into the
// Client.
type Client struct {
	Logger  log.Logger
	metrics *Metrics
	now     func() time.Time

	http Sender
	ws   Sender

	ids     *idAllocator
	waiting map[uint64]Request  // request id -> request
	subs    map[uint64]Notifier // subscription id -> request
}

// Option sets a parameter for the client.
type Option func(*Client)

// WithMetrics sets the metrics of the client.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) { c.metrics = metrics }
}

// WithHTTP sets the HTTP transport.
func WithHTTP(s Sender) Option {
	return func(c *Client) { c.http = s }
}

// WithWS sets the WebSocket transport.
func WithWS(s Sender) Option {
	return func(c *Client) { c.ws = s }
}

// WithClock replaces time.Now for send and receive timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient returns a client without transports unless given as options.
func NewClient(logger log.Logger, options ...Option) *Client {
	c := &Client{
		Logger:  logger.With("module", "rpcclient"),
		now:     time.Now,
		ids:     newIDAllocator(),
		waiting: make(map[uint64]Request),
		subs:    make(map[uint64]Notifier),
	}
	for _, option := range options {
		option(c)
	}
	if c.metrics == nil {
		c.metrics = NopMetrics()
	}
	return c
}

func (c *Client) SetHTTP(s Sender) { c.http = s }

func (c *Client) HTTP() Sender { return c.http }

func (c *Client) SetWS(s Sender) { c.ws = s }

func (c *Client) WS() Sender { return c.ws }

// Metrics returns the metrics the client reports to.
func (c *Client) Metrics() *Metrics { return c.metrics }

// Pending returns the number of requests waiting for a reply.
func (c *Client) Pending() int { return len(c.waiting) }

// Subscriptions returns the number of live subscriptions.
func (c *Client) Subscriptions() int { return len(c.subs) }

// Lookup returns the request waiting for a reply under id.
func (c *Client) Lookup(id uint64) (Request, bool) {
	req, ok := c.waiting[id]
	return req, ok
}

func usesHTTP(req Request) bool {
	return !isNotifier(req) && req.IsHTTP()
}

func (c *Client) senderFor(req Request) Sender {
	if usesHTTP(req) {
		return c.http
	}
	return c.ws
}

// Send assigns req an id, registers it as waiting and writes it to the
// transport of its type. Errors are local: the envelope is left unregistered
// and its error code untouched.
func (c *Client) Send(req Request) error {
	if req == nil {
		return ErrNilRequest
	}
	if req.Base().state.Registered() {
		return fmt.Errorf("%w: %s id %d", ErrInFlight, req.Method(), req.Base().id)
	}
	sender := c.senderFor(req)
	if sender == nil {
		return fmt.Errorf("%w: %s", ErrTransportUnavailable, req.Method())
	}
	id := c.ids.Allocate()
	body, err := encodeRequest(id, req)
	if err != nil {
		c.ids.Release(id)
		return err
	}
	c.register(req, id)
	if err := sender.Send(body); err != nil {
		c.abort(req, id)
		return fmt.Errorf("send %s: %w", req.Method(), err)
	}
	c.metrics.RequestsSent.Inc()
	return nil
}

// SendBatch sends reqs as JSON-RPC batches, one per transport. Either every
// request of a batch is registered or none is.
func (c *Client) SendBatch(reqs ...Request) error {
	var httpReqs, wsReqs []Request
	seen := make(map[*Envelope]struct{}, len(reqs))
	for _, req := range reqs {
		if req == nil {
			return ErrNilRequest
		}
		env := req.Base()
		if _, dup := seen[env]; dup || env.state.Registered() {
			return fmt.Errorf("%w: %s id %d", ErrInFlight, req.Method(), env.id)
		}
		seen[env] = struct{}{}
		if c.senderFor(req) == nil {
			return fmt.Errorf("%w: %s", ErrTransportUnavailable, req.Method())
		}
		if usesHTTP(req) {
			httpReqs = append(httpReqs, req)
		} else {
			wsReqs = append(wsReqs, req)
		}
	}
	if err := c.sendBatch(c.http, httpReqs); err != nil {
		return err
	}
	return c.sendBatch(c.ws, wsReqs)
}

func (c *Client) sendBatch(sender Sender, reqs []Request) error {
	if len(reqs) == 0 {
		return nil
	}
	ids := make([]uint64, len(reqs))
	batch := make([]json.RawMessage, len(reqs))
	release := func() {
		for _, id := range ids {
			if id != 0 {
				c.ids.Release(id)
			}
		}
	}
	for i, req := range reqs {
		ids[i] = c.ids.Allocate()
		body, err := encodeRequest(ids[i], req)
		if err != nil {
			release()
			return err
		}
		batch[i] = body
	}
	body, err := json.Marshal(batch)
	if err != nil {
		release()
		return fmt.Errorf("encode batch: %w", err)
	}
	for i, req := range reqs {
		c.register(req, ids[i])
	}
	if err := sender.Send(body); err != nil {
		for i, req := range reqs {
			c.abort(req, ids[i])
		}
		return fmt.Errorf("send batch: %w", err)
	}
	c.metrics.RequestsSent.Add(float64(len(reqs)))
	return nil
}

func (c *Client) register(req Request, id uint64) {
	env := req.Base()
	env.reset(c, id)
	env.sentTime = c.now()
	if sub, ok := req.(Notifier); ok {
		sub.subscription().subID = 0
	}
	c.waiting[id] = req
	c.metrics.Pending.Set(float64(len(c.waiting)))
}

// abort undoes register after a failed write, unless a reply already
// resolved the request.
func (c *Client) abort(req Request, id uint64) {
	if c.waiting[id] != req {
		return
	}
	delete(c.waiting, id)
	c.metrics.Pending.Set(float64(len(c.waiting)))
	req.Base().state = StateBuilt
	c.ids.Release(id)
}

// ParseResponse routes every message of payload, a single JSON value or a
// batch array. Replies and notifications that match nothing are dropped.
// Parse failures are returned; messages of a batch that parsed are still
// routed.
func (c *Client) ParseResponse(payload []byte) error {
	msgs, err := splitPayload(payload)
	if err != nil {
		c.metrics.ParseFailures.Inc()
		return err
	}
	var errs []error
	for _, raw := range msgs {
		if err := c.handleMsg(raw); err != nil {
			c.metrics.ParseFailures.Inc()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) handleMsg(raw json.RawMessage) error {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	switch {
	case msg.hasID():
		id, ok := decodeRequestID(msg.ID)
		if !ok {
			c.dropReply(string(msg.ID), msg.Error)
			return nil
		}
		c.handleReply(id, &msg)
		return nil
	case msg.isNotification():
		return c.handleNotification(&msg)
	default:
		return ErrUnknownMessage
	}
}

func (c *Client) dropReply(id string, rpcErr *RPCError) {
	c.metrics.DroppedReplies.Inc()
	if rpcErr != nil {
		c.Logger.Debug("dropped reply", "id", id, "err", rpcErr)
		return
	}
	c.Logger.Debug("dropped reply", "id", id)
}

func (c *Client) handleReply(id uint64, msg *inbound) {
	req, ok := c.waiting[id]
	if !ok {
		c.dropReply(fmt.Sprint(id), msg.Error)
		return
	}
	delete(c.waiting, id)
	c.metrics.Pending.Set(float64(len(c.waiting)))

	env := req.Base()
	env.recvTime = c.now()
	reply := &Reply{ID: id, Result: msg.Result, Error: msg.Error}
	subscribed := false
	if msg.Error != nil {
		env.setReplyError(msg.Error.Code, msg.Error.Message)
	} else if sub, ok := req.(Notifier); ok {
		subID, err := decodeSubscriptionID(msg.Result)
		if err != nil {
			reply.Error = &RPCError{Code: ErrCodeInvalidSubscriptionID, Message: err.Error()}
			env.setReplyError(reply.Error.Code, reply.Error.Message)
		} else {
			c.subscribe(sub, subID)
			subscribed = true
		}
	} else {
		env.state = StateRepliedSuccess
	}

	req.Response(reply)
	env.invoke()

	// A subscription keeps its request id until it is removed.
	if !subscribed {
		c.ids.Release(id)
	}
}

func (c *Client) handleNotification(msg *inbound) error {
	subID, err := decodeSubscriptionID(msg.Params.Subscription)
	if err != nil {
		return fmt.Errorf("%w: notification: %v", ErrMalformedPayload, err)
	}
	sub, ok := c.subs[subID]
	if !ok {
		c.metrics.DroppedNotifications.Inc()
		c.Logger.Debug("dropped notification", "method", msg.Method, "subscription", subID)
		return nil
	}
	env := sub.Base()
	id := env.id
	env.notified++
	done := sub.Notify(&Notification{Method: msg.Method, Subscription: subID, Result: msg.Params.Result})
	env.invoke()
	// The callback may have removed or resent sub already.
	if done && env.state == StateSubscribed && env.id == id && c.subs[subID] == sub {
		c.retireSub(sub, subID)
	}
	return nil
}

func (c *Client) subscribe(sub Notifier, subID uint64) {
	old, replaced := c.subs[subID]
	if replaced && old != sub {
		c.Logger.Error("subscription id reused by node, replacing", "subscription", subID,
			"old", old.Method(), "new", sub.Method())
		c.retireSub(old, subID)
	}
	sub.subscription().subID = subID
	sub.Base().state = StateSubscribed
	c.subs[subID] = sub
	c.metrics.Subscriptions.Set(float64(len(c.subs)))
	if replaced && old != sub {
		old.Base().invoke()
	}
}

func (c *Client) retireSub(sub Notifier, subID uint64) {
	delete(c.subs, subID)
	c.metrics.Subscriptions.Set(float64(len(c.subs)))
	env := sub.Base()
	env.state = StateUnsubscribed
	c.ids.Release(env.id)
}

// AddNotify registers req under the subscription id subID, taking it out of
// the waiting table or from under its previous subscription id. The request
// id travels with the subscription and is released when it ends.
func (c *Client) AddNotify(req Notifier, subID uint64) {
	env := req.Base()
	switch cur := req.subscription().subID; {
	case env.state == StateSubscribed && c.subs[cur] == req:
		if cur == subID {
			return
		}
		delete(c.subs, cur)
	case env.state == StateSent && c.waiting[env.id] == req:
		delete(c.waiting, env.id)
		c.metrics.Pending.Set(float64(len(c.waiting)))
	default:
		env.reset(c, c.ids.Allocate())
	}
	c.subscribe(req, subID)
}

// RemoveNotify removes req from the subscription table, or from the waiting
// table if its subscribe reply has not arrived yet, and releases its request
// id. The node is not told; see Unsubscribe. Removing a request that is not
// registered is a no-op.
func (c *Client) RemoveNotify(req Notifier) {
	env := req.Base()
	switch env.state {
	case StateSubscribed:
		subID := req.subscription().subID
		if c.subs[subID] != req {
			return
		}
		c.retireSub(req, subID)
	case StateSent:
		if c.waiting[env.id] != req {
			return
		}
		delete(c.waiting, env.id)
		c.metrics.Pending.Set(float64(len(c.waiting)))
		env.state = StateUnsubscribed
		c.ids.Release(env.id)
	}
}

// Unsubscribe removes req like RemoveNotify and asks the node to end the
// subscription. The reply to the unsubscribe call is discarded.
func (c *Client) Unsubscribe(req Notifier) error {
	env := req.Base()
	subID := req.subscription().subID
	if env.state != StateSubscribed || c.subs[subID] != req {
		c.RemoveNotify(req)
		return nil
	}
	c.RemoveNotify(req)
	if c.ws == nil {
		return fmt.Errorf("%w: %s", ErrTransportUnavailable, req.UnsubscribeMethod())
	}
	return c.Send(&unsubscribe{method: req.UnsubscribeMethod(), subID: subID})
}

// Cancel retires req wherever it is registered and releases its id. A later
// reply or notification for it is dropped. Cancelling a request that is not
// registered is a no-op.
func (c *Client) Cancel(req Request) {
	if sub, ok := req.(Notifier); ok {
		c.RemoveNotify(sub)
		return
	}
	env := req.Base()
	if env.state != StateSent || c.waiting[env.id] != req {
		return
	}
	delete(c.waiting, env.id)
	c.metrics.Pending.Set(float64(len(c.waiting)))
	env.state = StateBuilt
	c.ids.Release(env.id)
}

// Teardown retires everything bound to the WebSocket transport after the
// connection went away and unsets it. Waiting requests get an error reply
// with ErrCodeConnectionLost, subscriptions end as Unsubscribed with the same
// code. Every retired request is called back once.
func (c *Client) Teardown() {
	c.ws = nil

	var lost []Request
	for id, req := range c.waiting {
		if !usesHTTP(req) {
			lost = append(lost, req)
			delete(c.waiting, id)
		}
	}
	c.metrics.Pending.Set(float64(len(c.waiting)))
	subs := make([]Notifier, 0, len(c.subs))
	for subID, sub := range c.subs {
		subs = append(subs, sub)
		delete(c.subs, subID)
	}
	c.metrics.Subscriptions.Set(0)

	// Everything is retired before the first callback runs, callbacks may
	// send or register any of these again.
	now := c.now()
	replies := make([]*Reply, len(lost))
	for i, req := range lost {
		env := req.Base()
		env.recvTime = now
		env.setReplyError(ErrCodeConnectionLost, ErrorCodeName(ErrCodeConnectionLost))
		replies[i] = &Reply{ID: env.id, Error: &RPCError{Code: env.errCode, Message: env.errMsg}}
		c.ids.Release(env.id)
	}
	for _, sub := range subs {
		env := sub.Base()
		env.errCode = ErrCodeConnectionLost
		env.errMsg = ErrorCodeName(ErrCodeConnectionLost)
		env.state = StateUnsubscribed
		c.ids.Release(env.id)
	}

	for i, req := range lost {
		req.Response(replies[i])
		req.Base().invoke()
	}
	for _, sub := range subs {
		sub.Base().invoke()
	}
	if len(lost) > 0 || len(subs) > 0 {
		c.Logger.Info("websocket teardown", "requests", len(lost), "subscriptions", len(subs))
	}
}

func isNotifier(req Request) bool {
	_, ok := req.(Notifier)
	return ok
}

// unsubscribe is sent by Unsubscribe. The node answers with a boolean that
// nobody waits for.
type unsubscribe struct {
	Envelope
	method string
	subID  uint64
}

func (u *unsubscribe) IsHTTP() bool { return false }

func (u *unsubscribe) Method() string { return u.method }

func (u *unsubscribe) Params() (interface{}, error) { return []uint64{u.subID}, nil }

func (u *unsubscribe) Response(reply *Reply) {
	if reply.Error != nil {
		u.Base().client.Logger.Debug("unsubscribe rejected", "method", u.method,
			"subscription", u.subID, "err", reply.Error)
	}
}
