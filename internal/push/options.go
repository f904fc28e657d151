package push

import (
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithReconnectDelay sets the fixed delay between reconnects.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		c.policy.Delay = d
	}
}

// WithMaxAttempts sets how many reconnects are tried before giving up.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.policy.MaxAttempts = n
	}
}

// WithPingInterval enables websocket pings. Zero disables them.
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pingInterval = d
	}
}

// WithRequestOnConnect sends get_config and get_status after every open.
func WithRequestOnConnect() Option {
	return func(c *Client) {
		c.requestOnConnect = true
	}
}

// OnStateChange registers an observer for connection state transitions.
func OnStateChange(f func(State)) Option {
	return func(c *Client) {
		c.observers = append(c.observers, f)
	}
}
