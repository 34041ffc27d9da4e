package session

import (
	"net"
	"net/http"
	"time"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the prometheus metrics of a session over HTTP.
type MetricsServer struct {
	service.BaseService
	listenAddr string
	gatherer   prometheus.Gatherer
	server     *http.Server
	listener   net.Listener
}

func NewMetricsServer(listenAddr string, gatherer prometheus.Gatherer, logger log.Logger) *MetricsServer {
	m := &MetricsServer{listenAddr: listenAddr, gatherer: gatherer}
	m.BaseService = *service.NewBaseService(logger.With("module", "metrics"), "MetricsServer", m)
	return m
}

func (m *MetricsServer) OnStart() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	m.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	m.Logger.Debug("try listening", "listenAddr", m.listenAddr)
	listener, err := net.Listen("tcp", m.listenAddr)
	if err != nil {
		return err
	}
	m.listener = listener
	m.Logger.Info("listening", "listenAddr", listener.Addr().String())
	go m.server.Serve(listener)
	return nil
}

func (m *MetricsServer) OnStop() {
	m.server.Close()
}

// Addr returns the address the server listens on once started.
func (m *MetricsServer) Addr() string {
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}
