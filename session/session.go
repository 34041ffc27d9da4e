package session

import (
	"encoding/json"
	"time"

	"github.com/DOIDFoundation/validator-rpc/config"
	"github.com/DOIDFoundation/validator-rpc/events"
	"github.com/DOIDFoundation/validator-rpc/rpcclient"
	"github.com/DOIDFoundation/validator-rpc/transport"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/prometheus/client_golang/prometheus"
)

//------------------------------------------------------------------------------

// Session is a running connection to a validator node. It owns the client
// and every goroutine feeding it.
type Session struct {
	service.BaseService
	config *config.Config

	// OnFailure is called on the event loop for every HTTP request whose
	// round trip failed. The request has been cancelled already.
	OnFailure func(req rpcclient.Request, err error)

	client   *rpcclient.Client
	loop     *transport.Loop
	http     *transport.HTTPSender
	ws       *transport.WSConn
	metrics  *MetricsServer
	registry *prometheus.Registry
}

// Option sets a parameter for the session.
type Option func(*Session)

// WithRegistry makes the client report metrics to registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(s *Session) { s.registry = registry }
}

// NewSession returns a session for cfg. Nothing connects before Start.
func NewSession(cfg *config.Config, logger log.Logger, options ...Option) *Session {
	s := &Session{config: cfg}
	s.BaseService = *service.NewBaseService(logger.With("module", "session"), "Session", s)
	for _, option := range options {
		option(s)
	}
	if s.registry == nil && cfg.Metrics.ListenAddress != "" {
		s.registry = prometheus.NewRegistry()
	}

	metrics := rpcclient.NopMetrics()
	if s.registry != nil {
		metrics = rpcclient.PrometheusMetrics(cfg.Metrics.Namespace, s.registry)
	}
	if cfg.Metrics.ListenAddress != "" {
		s.metrics = NewMetricsServer(cfg.Metrics.ListenAddress, s.registry, logger)
	}

	s.loop = transport.NewLoop(logger)
	s.client = rpcclient.NewClient(logger, rpcclient.WithMetrics(metrics))
	if cfg.HTTPAddress != "" {
		s.http = transport.NewHTTPSender(cfg.HTTPAddress, cfg.Timeout, logger)
		s.http.Deliver = s.deliver
		s.client.SetHTTP(&httpSender{s})
	}
	if cfg.WSAddress != "" {
		s.ws = transport.NewWSConn(cfg.WSAddress, cfg.Timeout, logger)
		s.ws.Deliver = s.deliver
		s.ws.OnClose = s.wsClosed
	}
	return s
}

// OnStart starts the loop and connects the websocket. It implements
// service.Service.
func (s *Session) OnStart() error {
	if s.metrics != nil {
		if err := s.metrics.Start(); err != nil {
			return err
		}
	}
	if err := s.loop.Start(); err != nil {
		return err
	}
	if s.ws != nil {
		if err := s.ws.Start(); err != nil {
			s.loop.Stop()
			if s.metrics != nil {
				s.metrics.Stop()
			}
			return err
		}
		return s.loop.Do(func() error {
			s.client.SetWS(s.ws)
			return nil
		})
	}
	return nil
}

// OnStop closes the connections, then stops the loop. It implements
// service.Service.
func (s *Session) OnStop() {
	if s.ws != nil && s.ws.IsRunning() {
		if err := s.ws.Stop(); err != nil {
			s.Logger.Error("unable to stop websocket", "err", err)
		}
	}
	if s.http != nil {
		s.http.Close()
	}
	if err := s.loop.Stop(); err != nil {
		s.Logger.Error("unable to stop event loop", "err", err)
	}
	if s.metrics != nil && s.metrics.IsRunning() {
		if err := s.metrics.Stop(); err != nil {
			s.Logger.Error("unable to stop metrics server", "err", err)
		}
	}
}

// Do runs fn with the client on the event loop and waits for it.
func (s *Session) Do(fn func(c *rpcclient.Client) error) error {
	return s.loop.Do(func() error { return fn(s.client) })
}

// Post runs fn with the client on the event loop without waiting.
func (s *Session) Post(fn func(c *rpcclient.Client)) bool {
	return s.loop.Post(func() { fn(s.client) })
}

// Send sends req from the event loop.
func (s *Session) Send(req rpcclient.Request) error {
	return s.Do(func(c *rpcclient.Client) error { return c.Send(req) })
}

// Registry returns the metrics registry, nil if metrics are disabled.
func (s *Session) Registry() *prometheus.Registry { return s.registry }

func (s *Session) deliver(payload []byte) {
	s.loop.Post(func() {
		if err := s.client.ParseResponse(payload); err != nil {
			s.Logger.Error("unable to parse payload", "err", err)
		}
	})
}

func (s *Session) wsClosed() {
	s.loop.Post(s.client.Teardown)
	events.ConnectionLost.Send(s.config.WSAddress)
}

// sentRequest is a request as it was when its payload was written.
type sentRequest struct {
	req  rpcclient.Request
	id   uint64
	sent time.Time
}

// httpSender is the HTTP transport of the client. It remembers which
// requests a payload carries so a failed round trip cancels exactly those.
type httpSender struct {
	s *Session
}

// Send runs on the loop from within Client.Send, after the requests of
// payload were registered.
func (h *httpSender) Send(payload []byte) error {
	var reqs []sentRequest
	for _, id := range requestIDs(payload) {
		if req, ok := h.s.client.Lookup(id); ok {
			reqs = append(reqs, sentRequest{req: req, id: id, sent: req.Base().SentTime()})
		}
	}
	return h.s.http.Post(payload, func(err error) { h.s.httpFailed(reqs, err) })
}

func (s *Session) httpFailed(reqs []sentRequest, err error) {
	s.loop.Post(func() {
		for _, sr := range reqs {
			env := sr.req.Base()
			// The request may have been answered, cancelled or sent again.
			cur, ok := s.client.Lookup(sr.id)
			if !ok || cur.Base() != env || !env.SentTime().Equal(sr.sent) {
				continue
			}
			s.client.Cancel(sr.req)
			if s.OnFailure != nil {
				s.OnFailure(sr.req, err)
			}
		}
	})
}

// requestIDs returns the ids of a request payload or batch written by the
// client.
func requestIDs(payload []byte) []uint64 {
	type idOnly struct {
		ID uint64 `json:"id"`
	}
	var batch []idOnly
	if err := json.Unmarshal(payload, &batch); err == nil {
		ids := make([]uint64, 0, len(batch))
		for _, msg := range batch {
			ids = append(ids, msg.ID)
		}
		return ids
	}
	var msg idOnly
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil
	}
	return []uint64{msg.ID}
}
