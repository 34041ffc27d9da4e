package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/DOIDFoundation/validator-rpc/config"
	"github.com/DOIDFoundation/validator-rpc/events"
	"github.com/DOIDFoundation/validator-rpc/rpcclient"
	"github.com/DOIDFoundation/validator-rpc/session"
	cmtos "github.com/cometbft/cometbft/libs/os"
)

var ErrTimeout = errors.New("timed out waiting for the node")

func startSession(cfg *config.Config) (*session.Session, error) {
	s := session.NewSession(cfg, logger)
	if err := s.Start(); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return s, nil
}

func stopSession(s *session.Session) {
	if s.IsRunning() {
		if err := s.Stop(); err != nil {
			logger.Error("unable to stop session", "err", err)
		}
	}
}

// call sends req over HTTP and waits for its reply.
func call[T rpcclient.Request](req T) error {
	cfg := config.Load()
	cfg.WSAddress = ""
	s, err := startSession(cfg)
	if err != nil {
		return err
	}
	defer stopSession(s)

	done := make(chan error, 1)
	s.OnFailure = func(failed rpcclient.Request, err error) {
		if failed.Base() == req.Base() {
			finish(done, err)
		}
	}
	err = s.Do(func(c *rpcclient.Client) error {
		rpcclient.Observe(req, func(r T) { finish(done, r.Base().Err()) })
		return c.Send(req)
	})
	if err != nil {
		return err
	}
	return wait(s, req, cfg.Timeout, done)
}

// watch subscribes with req and waits until the subscription ends, until
// returns true after a notification, or the process is interrupted.
func watch[T rpcclient.Notifier](cfg *config.Config, req T, until func(T) bool) error {
	s, err := startSession(cfg)
	if err != nil {
		return err
	}
	defer stopSession(s)

	events.ConnectionLost.Subscribe(printer, func(url string) {
		logger.Error("connection lost", "url", url)
	})
	defer events.ConnectionLost.Unsubscribe(printer)

	done := make(chan error, 1)
	err = s.Do(func(c *rpcclient.Client) error {
		rpcclient.Observe(req, func(r T) {
			env := r.Base()
			switch env.State() {
			case rpcclient.StateRepliedError, rpcclient.StateUnsubscribed:
				finish(done, env.Err())
			case rpcclient.StateSubscribed:
				if env.Notifications() == 0 {
					logger.Info("subscribed", "method", r.Method(), "subscription", r.SubscriptionID())
				} else if err := env.Err(); err != nil {
					logger.Error("bad notification", "method", r.Method(), "err", err)
				} else if until != nil && until(r) {
					finish(done, nil)
				}
			}
		})
		return c.Send(req)
	})
	if err != nil {
		return err
	}

	// Stop upon receiving SIGTERM or CTRL-C.
	cmtos.TrapSignal(logger, func() {
		if err := s.Do(func(c *rpcclient.Client) error { return c.Unsubscribe(req) }); err != nil {
			logger.Error("unable to unsubscribe", "err", err)
		}
		stopSession(s)
	})

	return wait(s, req, cfg.Timeout, done)
}

func finish(done chan<- error, err error) {
	select {
	case done <- err:
	default:
	}
}

// wait returns the outcome sent to done. A request still waiting for its
// reply timeout after it was sent is cancelled.
func wait(s *session.Session, req rpcclient.Request, timeout time.Duration, done <-chan error) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-timer.C:
			expired := false
			err := s.Do(func(c *rpcclient.Client) error {
				env := req.Base()
				if env.State() == rpcclient.StateSent && time.Since(env.SentTime()) >= timeout {
					c.Cancel(req)
					expired = true
				}
				return nil
			})
			if err != nil {
				return err
			}
			if expired {
				return fmt.Errorf("%w: %s after %s", ErrTimeout, req.Method(), timeout)
			}
		}
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
