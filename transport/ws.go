package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var ErrNotConnected = errors.New("websocket not connected")

// WSConn is a duplex websocket connection to the node. Received frames are
// handed to Deliver on the read goroutine; OnClose runs once when the
// connection is gone.
type WSConn struct {
	service.BaseService
	Deliver func(msg []byte)
	OnClose func()

	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex // guards conn and serializes writes
	conn *websocket.Conn
	done chan struct{}
}

func NewWSConn(url string, handshakeTimeout time.Duration, logger log.Logger) *WSConn {
	c := &WSConn{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: handshakeTimeout,
		},
	}
	c.BaseService = *service.NewBaseService(logger.With("module", "ws"), "WSConn", c)
	return c
}

func (c *WSConn) OnStart() error {
	c.Logger.Debug("dialing", "url", c.url)
	conn, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		return err
	}
	c.Logger.Info("connected", "url", c.url)
	c.mu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	c.mu.Unlock()
	go c.readLoop(conn, c.done)
	return nil
}

func (c *WSConn) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
		if c.OnClose != nil {
			c.OnClose()
		}
	}()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if c.IsRunning() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.Logger.Error("read failed", "url", c.url, "err", err)
			}
			return
		}
		if c.Deliver != nil {
			c.Deliver(msg)
		}
	}
}

// Send implements rpcclient.Sender.
func (c *WSConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *WSConn) OnStop() {
	c.mu.Lock()
	conn, done := c.conn, c.done
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
			c.Logger.Debug("close handshake failed", "err", err)
		}
		conn.Close()
	}
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}
