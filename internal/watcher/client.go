package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fasthttp/websocket"

	"checkin-queue/internal/realtime"
)

const (
	DefaultMaxAttempts = 5
	DefaultDelay       = 2 * time.Second
)

// ErrConnectionFailed is returned once every reconnect attempt has failed.
var ErrConnectionFailed = errors.New("connection failed")

type Status int

const (
	Connected Status = iota
	Reconnecting
	Failed
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Client follows the realtime queue channel. After a dropped or refused
// connection it retries up to MaxAttempts times with a fixed Delay; a
// successful connect resets the count.
type Client struct {
	URL         string
	MaxAttempts int
	Delay       time.Duration
	Dialer      *websocket.Dialer

	OnEvent  func(realtime.Envelope)
	OnStatus func(status Status, attempt, max int)
}

func (c *Client) maxAttempts() int {
	if c.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return c.MaxAttempts
}

func (c *Client) delay() time.Duration {
	if c.Delay <= 0 {
		return DefaultDelay
	}
	return c.Delay
}

func (c *Client) status(s Status, attempt int) {
	if c.OnStatus != nil {
		c.OnStatus(s, attempt, c.maxAttempts())
	}
}

// Run blocks until ctx is done or reconnecting gives up.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			attempts = 0
		}
		if attempts >= c.maxAttempts() {
			c.status(Failed, attempts)
			return fmt.Errorf("%w after %d attempts: %v", ErrConnectionFailed, attempts, err)
		}

		attempts++
		log.Printf("[watch] disconnected (%v), retry %d/%d in %s", err, attempts, c.maxAttempts(), c.delay())
		c.status(Reconnecting, attempts)

		select {
		case <-time.After(c.delay()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// session dials once and reads until the connection ends. connected
// reports whether the dial succeeded.
func (c *Client) session(ctx context.Context) (connected bool, err error) {
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	c.status(Connected, 0)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}

		var env realtime.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[watch] skipping malformed message: %v", err)
			continue
		}
		if c.OnEvent != nil {
			c.OnEvent(env)
		}
	}
}
