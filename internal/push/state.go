package push

import (
	"fmt"
	"time"
)

// State is the lifecycle state of the push connection.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

const (
	// DefaultReconnectDelay is the fixed wait before each reconnect.
	DefaultReconnectDelay = 3 * time.Second

	// DefaultMaxAttempts caps consecutive reconnects without a successful open.
	DefaultMaxAttempts = 5
)

// ReconnectPolicy is a fixed-delay policy with a hard attempt cap. There is
// no backoff: the device is small and polling covers the gap once the cap is
// reached.
type ReconnectPolicy struct {
	Attempt     int
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy returns the 5 x 3s policy.
func DefaultPolicy() ReconnectPolicy {
	return ReconnectPolicy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultReconnectDelay}
}

// Next consumes one attempt. It returns false once the cap is reached.
func (p *ReconnectPolicy) Next() (time.Duration, bool) {
	if p.Attempt >= p.MaxAttempts {
		return 0, false
	}
	p.Attempt++
	return p.Delay, true
}

// Reset is called on every successful open.
func (p *ReconnectPolicy) Reset() {
	p.Attempt = 0
}
