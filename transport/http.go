package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cometbft/cometbft/libs/log"
)

const maxResponseSize = 16 << 20

// HTTPSender performs one POST per payload. Response bodies are handed to
// Deliver on the goroutine of the round trip.
type HTTPSender struct {
	Logger log.Logger
	// Deliver receives every response body.
	Deliver func(body []byte)
	// OnError is told about round trips started by Send that produced no
	// body to deliver.
	OnError func(payload []byte, err error)

	url    string
	client *http.Client
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHTTPSender(url string, timeout time.Duration, logger log.Logger) *HTTPSender {
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPSender{
		Logger: logger.With("module", "http"),
		url:    url,
		client: &http.Client{Timeout: timeout},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Send implements rpcclient.Sender. It never blocks on the network.
func (s *HTTPSender) Send(payload []byte) error {
	return s.Post(payload, func(err error) {
		if s.OnError != nil {
			s.OnError(payload, err)
		}
	})
}

// Post starts the round trip of payload. A failure is reported to onError
// instead of OnError.
func (s *HTTPSender) Post(payload []byte, onError func(err error)) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		body, err := s.post(payload)
		if err != nil {
			s.Logger.Error("round trip failed", "url", s.url, "err", err)
			if onError != nil {
				onError(err)
			}
			return
		}
		if s.Deliver != nil {
			s.Deliver(body)
		}
	}()
	return nil
}

func (s *HTTPSender) post(payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	// Nodes answer JSON-RPC errors with a JSON body even on 4xx/5xx.
	if resp.StatusCode/100 != 2 && !bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) &&
		!bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		return nil, fmt.Errorf("http status %s", resp.Status)
	}
	return body, nil
}

// Close aborts round trips in progress and waits for them.
func (s *HTTPSender) Close() {
	s.cancel()
	s.wg.Wait()
}
