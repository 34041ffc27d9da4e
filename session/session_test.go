package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DOIDFoundation/validator-rpc/config"
	"github.com/DOIDFoundation/validator-rpc/events"
	"github.com/DOIDFoundation/validator-rpc/rpc"
	"github.com/DOIDFoundation/validator-rpc/rpcclient"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcMsg struct {
	ID     uint64 `json:"id"`
	Method string `json:"method"`
}

// fakeNode answers getSlot over HTTP and slotSubscribe over websocket.
// Closing drop disconnects the websocket.
type fakeNode struct {
	*httptest.Server
	drop chan struct{}
}

func newFakeNode(t *testing.T) *fakeNode {
	node := &fakeNode{drop: make(chan struct{})}
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg rpcMsg
		if json.Unmarshal(body, &msg) != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":` + jsonUint(msg.ID) + `,"result":77}`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		go func() {
			<-node.drop
			conn.Close()
		}()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg rpcMsg
			if json.Unmarshal(frame, &msg) != nil {
				return
			}
			switch msg.Method {
			case "slotSubscribe":
				conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":`+jsonUint(msg.ID)+`,"result":9}`))
				conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","method":"slotNotification","params":{"subscription":9,"result":{"parent":4,"root":1,"slot":5}}}`))
			default:
				conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":`+jsonUint(msg.ID)+`,"result":true}`))
			}
		}
	})
	node.Server = httptest.NewServer(mux)
	t.Cleanup(node.Close)
	return node
}

func (n *fakeNode) config() *config.Config {
	cfg := config.DefaultConfig
	cfg.HTTPAddress = n.URL
	cfg.WSAddress = "ws" + strings.TrimPrefix(n.URL, "http") + "/ws"
	cfg.Timeout = 5 * time.Second
	return &cfg
}

func jsonUint(v uint64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func startSession(t *testing.T, cfg *config.Config, configure func(*Session)) *Session {
	s := NewSession(cfg, log.NewNopLogger())
	if configure != nil {
		configure(s)
	}
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		if s.IsRunning() {
			s.Stop()
		}
	})
	return s
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for " + what)
	}
}

func TestSessionCall(t *testing.T) {
	node := newFakeNode(t)
	s := startSession(t, node.config(), nil)

	req := &rpc.GetSlot{}
	done := make(chan struct{})
	require.NoError(t, s.Do(func(c *rpcclient.Client) error {
		rpcclient.Observe(req, func(*rpc.GetSlot) { close(done) })
		return c.Send(req)
	}))
	waitFor(t, done, "reply")

	require.NoError(t, s.Do(func(c *rpcclient.Client) error {
		assert.Equal(t, rpcclient.StateRepliedSuccess, req.State())
		assert.Equal(t, uint64(77), req.Slot())
		assert.Equal(t, 0, c.Pending())
		return nil
	}))
}

func TestSessionSubscription(t *testing.T) {
	node := newFakeNode(t)
	s := startSession(t, node.config(), nil)

	lost := make(chan string, 1)
	events.ConnectionLost.Subscribe("session_test", func(url string) { lost <- url })
	defer func() { events.ConnectionLost.Unsubscribe("session_test").Wait() }()

	req := &rpc.SlotSubscribe{}
	notified := make(chan struct{})
	retired := make(chan struct{})
	require.NoError(t, s.Do(func(c *rpcclient.Client) error {
		rpcclient.Observe(req, func(r *rpc.SlotSubscribe) {
			switch {
			case r.State() == rpcclient.StateSubscribed && r.Notifications() == 1:
				close(notified)
			case r.State() == rpcclient.StateUnsubscribed:
				close(retired)
			}
		})
		return c.Send(req)
	}))
	waitFor(t, notified, "notification")
	require.NoError(t, s.Do(func(c *rpcclient.Client) error {
		assert.Equal(t, uint64(9), req.SubscriptionID())
		assert.Equal(t, uint64(5), req.Slot().Slot)
		assert.Equal(t, 1, c.Subscriptions())
		return nil
	}))

	close(node.drop)
	waitFor(t, retired, "teardown")
	select {
	case url := <-lost:
		assert.Equal(t, node.config().WSAddress, url)
	case <-time.After(5 * time.Second):
		t.Fatal("connection loss not announced")
	}
	require.NoError(t, s.Do(func(c *rpcclient.Client) error {
		assert.Equal(t, rpcclient.ErrCodeConnectionLost, req.ErrCode())
		assert.Equal(t, 0, c.Subscriptions())
		assert.ErrorIs(t, c.Send(&rpc.SlotSubscribe{}), rpcclient.ErrTransportUnavailable)
		return nil
	}))
}

func TestSessionHTTPFailure(t *testing.T) {
	node := newFakeNode(t)
	cfg := node.config()
	cfg.HTTPAddress = node.URL + "/broken"
	cfg.WSAddress = ""

	req := &rpc.GetHealth{}
	failed := make(chan struct{})
	s := startSession(t, cfg, func(s *Session) {
		s.OnFailure = func(r rpcclient.Request, err error) {
			assert.Same(t, req.Base(), r.Base())
			assert.Error(t, err)
			assert.Equal(t, rpcclient.StateBuilt, r.Base().State())
			close(failed)
		}
	})

	require.NoError(t, s.Send(req))
	waitFor(t, failed, "failure")
	require.NoError(t, s.Do(func(c *rpcclient.Client) error {
		assert.Equal(t, 0, c.Pending())
		return nil
	}))
}

func TestSessionHTTPFailureReusedID(t *testing.T) {
	// The node never answers.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig
	cfg.HTTPAddress = srv.URL
	cfg.WSAddress = ""
	failed := make(chan rpcclient.Request, 4)
	s := startSession(t, &cfg, func(s *Session) {
		// Every request is stamped with the same time.
		now := time.Unix(1700000000, 0)
		s.client = rpcclient.NewClient(log.NewNopLogger(), rpcclient.WithClock(func() time.Time { return now }))
		s.client.SetHTTP(&httpSender{s})
		s.OnFailure = func(r rpcclient.Request, err error) {
			select {
			case failed <- r:
			default:
			}
		}
	})

	first, second := &rpc.GetSlot{}, &rpc.GetHealth{}
	var firstSent, secondSent sentRequest
	require.NoError(t, s.Do(func(c *rpcclient.Client) error {
		if err := c.Send(first); err != nil {
			return err
		}
		firstSent = sentRequest{req: first, id: first.ID(), sent: first.SentTime()}
		c.Cancel(first)
		if err := c.Send(second); err != nil {
			return err
		}
		secondSent = sentRequest{req: second, id: second.ID(), sent: second.SentTime()}
		return nil
	}))
	require.Equal(t, firstSent.id, secondSent.id, "id is reused")
	require.Equal(t, firstSent.sent, secondSent.sent)

	s.httpFailed([]sentRequest{firstSent}, errors.New("connection refused"))
	require.NoError(t, s.Do(func(c *rpcclient.Client) error {
		assert.Equal(t, rpcclient.StateSent, second.State(), "request reusing the id is kept")
		assert.Equal(t, 1, c.Pending())
		return nil
	}))
	assert.Empty(t, failed)

	s.httpFailed([]sentRequest{secondSent}, errors.New("connection refused"))
	require.NoError(t, s.Do(func(c *rpcclient.Client) error {
		assert.Equal(t, rpcclient.StateBuilt, second.State())
		assert.Zero(t, c.Pending())
		return nil
	}))
	select {
	case r := <-failed:
		assert.Same(t, second.Base(), r.Base())
	default:
		t.Fatal("failure not reported")
	}
}

func TestSessionMetrics(t *testing.T) {
	node := newFakeNode(t)
	cfg := node.config()
	cfg.WSAddress = ""
	cfg.Metrics.ListenAddress = "127.0.0.1:0"
	cfg.Metrics.Namespace = "test"
	s := startSession(t, cfg, nil)
	require.NotNil(t, s.Registry())

	req := &rpc.GetSlot{}
	done := make(chan struct{})
	require.NoError(t, s.Do(func(c *rpcclient.Client) error {
		rpcclient.Observe(req, func(*rpc.GetSlot) { close(done) })
		return c.Send(req)
	}))
	waitFor(t, done, "reply")

	resp, err := http.Get("http://" + s.metrics.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_rpcclient_requests_sent_total 1")
	assert.Contains(t, string(body), "test_rpcclient_pending_requests 0")
}

func TestRequestIDs(t *testing.T) {
	assert.Equal(t, []uint64{3}, requestIDs([]byte(`{"jsonrpc":"2.0","id":3,"method":"getHealth"}`)))
	assert.Equal(t, []uint64{1, 2}, requestIDs([]byte(`[{"id":1},{"id":2}]`)))
	assert.Empty(t, requestIDs([]byte(`garbage`)))
}
